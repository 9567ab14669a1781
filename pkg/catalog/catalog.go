// Package catalog holds the immutable product and category lists loaded at
// start and answers listing and lookup queries over them.
package catalog

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	DefaultPerPage = 12
	MaxPerPage     = 50
)

var (
	// ErrProductNotFound indicates no product has the requested id.
	ErrProductNotFound = errors.New("product not found")
	// ErrUnknownCategory indicates a filter named a category that was not loaded.
	ErrUnknownCategory = errors.New("unknown category")
)

// RoastLevel is the roast of a coffee product.
type RoastLevel string

const (
	RoastLight  RoastLevel = "Light"
	RoastMedium RoastLevel = "Medium"
	RoastDark   RoastLevel = "Dark"
)

// Valid reports whether r is one of the known roast levels.
func (r RoastLevel) Valid() bool {
	switch r {
	case RoastLight, RoastMedium, RoastDark:
		return true
	}
	return false
}

// Product is a sellable coffee item.
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price" swaggertype:"number"`
	Category         string          `json:"category"`
	RoastLevel       RoastLevel      `json:"roast_level"`
	Origin           string          `json:"origin"`
	ImageURL         string          `json:"image_url"`
	InStock          bool            `json:"in_stock"`
	Weight           string          `json:"weight"`
	FlavorNotes      []string        `json:"flavor_notes"`
	ProcessingMethod string          `json:"processing_method"`
}

// Category groups products for browsing.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
	ImageURL     string `json:"image_url"`
}

// Filter narrows a product listing. Zero value matches everything.
type Filter struct {
	Category string
}

// Page is one page of a product listing.
type Page struct {
	Products []Product
	Total    int
	Page     int
	PerPage  int
}

// Catalog is safe for concurrent use because it never changes after New.
type Catalog struct {
	products   []Product
	byID       map[string]int
	categories []Category
	categoryID map[string]struct{}
}

// New validates products and categories and builds a Catalog. Categories are
// ordered by DisplayOrder; products keep their given order.
func New(products []Product, categories []Category) (*Catalog, error) {
	c := &Catalog{
		products:   make([]Product, len(products)),
		byID:       make(map[string]int, len(products)),
		categories: make([]Category, len(categories)),
		categoryID: make(map[string]struct{}, len(categories)),
	}
	copy(c.categories, categories)
	sort.SliceStable(c.categories, func(i, j int) bool {
		return c.categories[i].DisplayOrder < c.categories[j].DisplayOrder
	})
	for _, cat := range c.categories {
		if cat.ID == "" {
			return nil, errors.New("category with empty id")
		}
		if _, dup := c.categoryID[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}
		c.categoryID[cat.ID] = struct{}{}
	}

	for i, p := range products {
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("product %d: empty id", i)
		case p.Price.IsNegative():
			return nil, fmt.Errorf("product %q: negative price %s", p.ID, p.Price)
		case !p.RoastLevel.Valid():
			return nil, fmt.Errorf("product %q: invalid roast level %q", p.ID, p.RoastLevel)
		}
		if _, ok := c.categoryID[p.Category]; !ok {
			return nil, fmt.Errorf("product %q: %w %q", p.ID, ErrUnknownCategory, p.Category)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = i
		c.products[i] = p
	}
	return c, nil
}

// List returns the requested page of products matching f in load order.
// page defaults to 1; perPage defaults to DefaultPerPage and is clamped to
// MaxPerPage. A page past the end yields no products.
func (c *Catalog) List(f Filter, page, perPage int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	matched := c.products
	if f.Category != "" {
		if _, ok := c.categoryID[f.Category]; !ok {
			return Page{}, fmt.Errorf("%w %q", ErrUnknownCategory, f.Category)
		}
		matched = make([]Product, 0, len(c.products))
		for _, p := range c.products {
			if p.Category == f.Category {
				matched = append(matched, p)
			}
		}
	}

	out := Page{Products: []Product{}, Total: len(matched), Page: page, PerPage: perPage}
	start := (page - 1) * perPage
	if start >= len(matched) {
		return out, nil
	}
	end := min(start+perPage, len(matched))
	out.Products = append(out.Products, matched[start:end]...)
	return out, nil
}

// Product looks a product up by id.
func (c *Catalog) Product(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return c.products[i], nil
}

// Categories returns all categories ordered by DisplayOrder.
func (c *Catalog) Categories() []Category {
	out := make([]Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Len is the number of loaded products.
func (c *Catalog) Len() int {
	return len(c.products)
}
