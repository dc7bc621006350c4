// Command storefront is a terminal client for the storefront API: it lists
// products, prices a basket locally and places orders through the same
// session layer the app uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/storefront/internal/config"
)

const usage = `usage: storefront <command> [flags] [productID:qty ...]

commands:
  products   list products from the API
  quote      price a basket with the cart and checkout rules, offline
  checkout   sign in, fill the cart and place an order

Settings are read from the environment (STOREFRONT_API_URL, TAX_RATE, ...).`

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("[CLI] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(1)
	}
}
