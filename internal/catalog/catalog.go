// Package catalog serves the storefront's product, store and category data
// with the filtering, sorting and paging the app's listing screens use.
package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/example/storefront/internal/pricing"
	"github.com/example/storefront/internal/readmodel"
)

type SortField string

const (
	SortByPrice  SortField = "price"
	SortByRating SortField = "rating"
	SortByName   SortField = "name"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filters narrow a listing or search. Zero values disable a filter.
type Filters struct {
	Category    string // category ID or name
	MinPrice    pricing.Money
	MaxPrice    pricing.Money
	MinRating   float64
	InStockOnly bool
}

// Query is a product listing request
type Query struct {
	Filters
	Search    string
	SortBy    SortField
	SortOrder SortOrder
	Page      int
	Limit     int
}

type Catalog struct {
	products   []readmodel.Product
	stores     []readmodel.Store
	categories []readmodel.Category
}

func New(products []readmodel.Product, stores []readmodel.Store, categories []readmodel.Category) *Catalog {
	return &Catalog{
		products:   slices.Clone(products),
		stores:     slices.Clone(stores),
		categories: slices.Clone(categories),
	}
}

// Default returns the built-in mock catalog
func Default() *Catalog {
	return New(seedProducts(), seedStores(), seedCategories())
}

// List filters, sorts and pages the products
func (c *Catalog) List(q Query) readmodel.ProductPage {
	matched := make([]readmodel.Product, 0, len(c.products))
	for _, p := range c.products {
		if c.matches(p, q.Filters) && matchesText(p, q.Search) {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, q.SortBy, q.SortOrder)

	page, limit := normalizePage(q.Page, q.Limit)
	start := len(matched)
	// compare before multiplying so huge pages cannot overflow
	if page-1 < len(matched)/limit+1 {
		start = min((page-1)*limit, len(matched))
	}
	end := start + min(limit, len(matched)-start)

	return readmodel.ProductPage{
		Products: slices.Clone(matched[start:end]),
		Total:    len(matched),
		Page:     page,
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return page, min(limit, MaxLimit)
}

func (c *Catalog) matches(p readmodel.Product, f Filters) bool {
	if f.Category != "" && !c.inCategory(p, f.Category) {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if p.Rating < f.MinRating {
		return false
	}
	return !f.InStockOnly || p.InStock
}

// inCategory matches the product's own category, or a top-level category
// whose subcategories include it.
func (c *Catalog) inCategory(p readmodel.Product, category string) bool {
	if strings.EqualFold(p.Category, category) {
		return true
	}
	for _, cat := range c.categories {
		if cat.ID != category && !strings.EqualFold(cat.Name, category) {
			continue
		}
		if strings.EqualFold(p.Category, cat.Name) {
			return true
		}
		for _, sub := range cat.Subcategories {
			if strings.EqualFold(p.Category, sub) {
				return true
			}
		}
	}
	return false
}

func matchesText(p readmodel.Product, text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), text) ||
		strings.Contains(strings.ToLower(p.Category), text) ||
		strings.Contains(strings.ToLower(p.Store), text)
}

// sortProducts sorts in place; ties keep catalog order
func sortProducts(products []readmodel.Product, by SortField, order SortOrder) {
	var compare func(a, b readmodel.Product) int
	switch by {
	case SortByPrice:
		compare = func(a, b readmodel.Product) int { return cmp.Compare(a.Price, b.Price) }
	case SortByRating:
		compare = func(a, b readmodel.Product) int { return cmp.Compare(a.Rating, b.Rating) }
	case SortByName:
		compare = func(a, b readmodel.Product) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	default:
		return
	}
	if order == Descending {
		asc := compare
		compare = func(a, b readmodel.Product) int { return asc(b, a) }
	}
	slices.SortStableFunc(products, compare)
}

func (c *Catalog) Product(id string) (readmodel.Product, bool) {
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return readmodel.Product{}, false
}

// Featured returns the products currently on sale
func (c *Catalog) Featured() []readmodel.Product {
	featured := make([]readmodel.Product, 0)
	for _, p := range c.products {
		if p.Discounted() {
			featured = append(featured, p)
		}
	}
	return featured
}

// Recommended returns up to n in-stock products, best rated first,
// skipping the excluded IDs.
func (c *Catalog) Recommended(exclude []string, n int) []readmodel.Product {
	out := make([]readmodel.Product, 0)
	for _, p := range c.products {
		if p.InStock && !slices.Contains(exclude, p.ID) {
			out = append(out, p)
		}
	}
	sortProducts(out, SortByRating, Descending)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func (c *Catalog) Categories() []readmodel.Category {
	return slices.Clone(c.categories)
}

func (c *Catalog) Category(id string) (readmodel.Category, bool) {
	for _, cat := range c.categories {
		if cat.ID == id {
			return cat, true
		}
	}
	return readmodel.Category{}, false
}

func (c *Catalog) Stores() []readmodel.Store {
	return slices.Clone(c.stores)
}

func (c *Catalog) Store(id string) (readmodel.Store, bool) {
	for _, s := range c.stores {
		if s.ID == id {
			return s, true
		}
	}
	return readmodel.Store{}, false
}

// StoreProducts returns the products sold by the store with the given ID
func (c *Catalog) StoreProducts(id string) ([]readmodel.Product, bool) {
	s, ok := c.Store(id)
	if !ok {
		return nil, false
	}
	products := make([]readmodel.Product, 0)
	for _, p := range c.products {
		if p.Store == s.Name {
			products = append(products, p)
		}
	}
	return products, true
}

// Search matches query against product names, categories and stores, store
// names, and category names or subcategories. Filters apply to products.
func (c *Catalog) Search(query string, f Filters) readmodel.SearchResult {
	result := readmodel.SearchResult{
		Products:   make([]readmodel.Product, 0),
		Stores:     make([]readmodel.Store, 0),
		Categories: make([]readmodel.Category, 0),
	}
	for _, p := range c.products {
		if c.matches(p, f) && matchesText(p, query) {
			result.Products = append(result.Products, p)
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return result
	}
	for _, s := range c.stores {
		if strings.Contains(strings.ToLower(s.Name), q) {
			result.Stores = append(result.Stores, s)
		}
	}
	for _, cat := range c.categories {
		if strings.Contains(strings.ToLower(cat.Name), q) || slices.ContainsFunc(cat.Subcategories, func(sub string) bool {
			return strings.Contains(strings.ToLower(sub), q)
		}) {
			result.Categories = append(result.Categories, cat)
		}
	}
	return result
}
