package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"reflect"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/example/storefront/internal/appstate"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/client"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/i18n"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/journal"
	"github.com/example/storefront/internal/pricing"
	"github.com/example/storefront/internal/session"
)

var errUsage = errors.New("usage error")

// basketItem is one productID:qty argument
type basketItem struct {
	ProductID string
	Quantity  int
}

func parseBasket(args []string) ([]basketItem, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: no products given", errUsage)
	}
	items := make([]basketItem, 0, len(args))
	for _, arg := range args {
		id, qty, hasQty := strings.Cut(arg, ":")
		item := basketItem{ProductID: strings.TrimSpace(id), Quantity: 1}
		if hasQty {
			n, err := strconv.Atoi(qty)
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("%w: bad quantity in %q", errUsage, arg)
			}
			item.Quantity = n
		}
		if item.ProductID == "" {
			return nil, fmt.Errorf("%w: missing product in %q", errUsage, arg)
		}
		items = append(items, item)
	}
	return items, nil
}

func run(ctx context.Context, cfg config.ClientConfig, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return fmt.Errorf("%w: missing command", errUsage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "products":
		return runProducts(ctx, cfg, rest, out)
	case "quote":
		return runQuote(cfg, rest, out)
	case "checkout":
		return runCheckout(ctx, cfg, rest, out)
	case "help", "-h", "--help":
		fmt.Fprintln(out, usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func newClient(cfg config.ClientConfig) *client.Client {
	return client.New(client.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
}

// ============================================
// products
// ============================================

func runProducts(ctx context.Context, cfg config.ClientConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	fs.SetOutput(out)
	var q client.ProductQuery
	var sortBy, sortOrder string
	fs.StringVar(&q.Category, "category", "", "category ID or name")
	fs.StringVar(&q.Search, "search", "", "text to search for")
	fs.StringVar(&sortBy, "sort", "", "price, rating or name")
	fs.StringVar(&sortOrder, "order", "asc", "asc or desc")
	fs.IntVar(&q.Page, "page", 1, "page number")
	fs.IntVar(&q.Limit, "limit", catalog.DefaultLimit, "products per page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	q.SortBy = catalog.SortField(sortBy)
	q.SortOrder = catalog.SortOrder(sortOrder)

	page, err := newClient(cfg).GetProducts(ctx, q)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tWAS\tRATING\tSTORE\tSTOCK")
	for _, p := range page.Products {
		was := ""
		if p.Discounted() {
			was = p.OriginalPrice.String()
		}
		stock := "in stock"
		if !p.InStock {
			stock = "sold out"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.1f\t%s\t%s\n", p.ID, p.Name, p.Price, was, p.Rating, p.Store, stock)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d, %d of %d products\n", page.Page, len(page.Products), page.Total)
	return nil
}

// ============================================
// quote
// ============================================

// runQuote prices a basket from the built-in catalog without any network
// access, through the same store the app keeps its cart in.
func runQuote(cfg config.ClientConfig, args []string, out io.Writer) error {
	items, err := parseBasket(args)
	if err != nil {
		return err
	}

	c := catalog.Default()
	store := appstate.NewStore()
	store.SetLanguage(cfg.Language())
	for _, item := range items {
		p, ok := c.Product(item.ProductID)
		if !ok {
			return fmt.Errorf("unknown product %q", item.ProductID)
		}
		store.AddToCart(p.CartItem(item.Quantity))
	}

	policy := cfg.Pricing.Policy()
	state := store.State()
	printCart(out, state)
	printSummary(out, state.Language, "cart", store.CartSummary(policy))
	printSummary(out, state.Language, "checkout", policy.CheckoutSummary(appstate.CartLines(state)))
	return nil
}

// ============================================
// checkout
// ============================================

func runCheckout(ctx context.Context, cfg config.ClientConfig, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("checkout", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	address := fs.String("address", "", "delivery address")
	payment := fs.String("payment", "card", "card, mobile or cash")
	notes := fs.String("notes", "", "special delivery instructions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" || *address == "" {
		return fmt.Errorf("%w: -email, -password and -address are required", errUsage)
	}
	items, err := parseBasket(fs.Args())
	if err != nil {
		return err
	}

	store := appstate.NewStore()
	store.SetLanguage(cfg.Language())
	publisher, closePublisher := journalPublisher(cfg)
	defer closePublisher()
	j := journal.New("", publisher)
	defer j.Close()
	detach := j.Attach(store)
	defer detach()

	api := newClient(cfg)
	s := session.New(api, store, cfg.Pricing.Policy())

	user, err := s.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Logout(context.WithoutCancel(ctx)); err != nil {
			log.Printf("[CLI] Logout failed: %v", err)
		}
	}()
	fmt.Fprintf(out, "Signed in as %s <%s>\n", user.Name, user.Email)

	if err := s.SyncCart(ctx); err != nil {
		return err
	}
	if err := s.SyncFavorites(ctx); err != nil {
		return err
	}
	for _, item := range items {
		p, err := api.GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		if _, err := s.AddToCart(ctx, *p, item.Quantity); err != nil {
			return err
		}
	}

	printCart(out, store.State())
	printSummary(out, store.State().Language, "quote", s.Quote())

	placed, charged, err := s.Checkout(ctx, session.CheckoutRequest{
		DeliveryAddress:     *address,
		PaymentMethod:       *payment,
		SpecialInstructions: *notes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Order %s placed (%s, %s)\n", placed.ID, placed.Status, placed.PaymentMethod.DisplayName())
	printSummary(out, store.State().Language, "charged", charged)

	return verifyJournal(out, j, store)
}

// journalPublisher sends the action journal to Kafka when brokers are set
func journalPublisher(cfg config.ClientConfig) (journal.Publisher, func()) {
	if !cfg.Kafka.Enabled() {
		return nil, func() {}
	}
	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.JournalTopic)
	return producer, func() {
		if err := producer.Close(); err != nil {
			log.Printf("[CLI] Failed to close journal producer: %v", err)
		}
	}
}

// verifyJournal rebuilds the state from the journal and checks it matches
// the live store.
func verifyJournal(out io.Writer, j *journal.Journal, store *appstate.Store) error {
	replayed, err := j.Replay()
	if err != nil {
		return fmt.Errorf("replay journal: %w", err)
	}
	if !reflect.DeepEqual(replayed, store.State()) {
		return errors.New("journal replay does not match the live state")
	}
	fmt.Fprintf(out, "Journal %s: %d actions, replay matches\n", j.StreamID(), len(j.Events()))
	return nil
}

// ============================================
// Output
// ============================================

func printCart(out io.Writer, state appstate.State) {
	lang := state.Language
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
		strings.ToUpper(i18n.T(lang, "product")), strings.ToUpper(i18n.T(lang, "quantity")),
		strings.ToUpper(i18n.T(lang, "price")), strings.ToUpper(i18n.T(lang, "lineTotal")))
	for _, item := range state.Cart {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", item.Name, item.Quantity, item.Price, item.Price.Mul(item.Quantity))
	}
	_ = tw.Flush()
}

// printSummary writes s under the translated titleKey
func printSummary(out io.Writer, lang appstate.Language, titleKey string, s pricing.Summary) {
	fmt.Fprintf(out, "%s:\n", i18n.T(lang, titleKey))
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "  %s\t%s\t\n", i18n.T(lang, "subtotal"), s.Subtotal)
	if s.Savings > 0 {
		fmt.Fprintf(tw, "  %s\t%s\t\n", i18n.T(lang, "savings"), s.Savings)
	}
	fmt.Fprintf(tw, "  %s\t%s\t\n", i18n.T(lang, "delivery"), deliveryText(lang, s.DeliveryFee))
	if s.Tax > 0 {
		fmt.Fprintf(tw, "  %s\t%s\t\n", i18n.T(lang, "tax"), s.Tax)
	}
	fmt.Fprintf(tw, "  %s\t%s\t\n", i18n.T(lang, "total"), s.Total)
	_ = tw.Flush()
}

func deliveryText(lang appstate.Language, fee pricing.Money) string {
	if fee.IsZero() {
		return i18n.T(lang, "free")
	}
	return fee.String()
}
