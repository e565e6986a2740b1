package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	pkgerrors "github.com/ArthurDevel/agentic-payments-hackathon-example-repo/pkg/errors"
)

//go:embed products.json
var embeddedProducts []byte

// Product is a feed entry. Price is in minor currency units.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Currency    string `json:"currency"`
	Category    string `json:"category,omitempty"`
}

// Catalog serves the static product feed. Read-only after construction.
type Catalog struct {
	products []Product
	byID     map[string]Product
}

// Load builds the catalog from the file at path, or from the embedded feed
// when path is empty.
func Load(path string) (*Catalog, error) {
	raw := embeddedProducts
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading product feed %s: %w", path, err)
		}
		raw = data
	}

	var products []Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decoding product feed: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("product feed is empty")
	}

	byID := make(map[string]Product, len(products))
	for _, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("product feed entry without id")
		}
		if p.Price <= 0 {
			return nil, fmt.Errorf("product %s has non-positive price", p.ID)
		}
		if _, exists := byID[p.ID]; exists {
			return nil, fmt.Errorf("duplicate product id %s", p.ID)
		}
		byID[p.ID] = p
	}

	return &Catalog{products: products, byID: byID}, nil
}

// Search returns products whose name, description or category contains the
// query, case-insensitive. An empty query returns the full feed in order.
func (c *Catalog) Search(ctx context.Context, query string) ([]Product, error) {
	_ = ctx

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		out := make([]Product, len(c.products))
		copy(out, c.products)
		return out, nil
	}

	var out []Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strings.ToLower(p.Description), query) ||
			strings.Contains(strings.ToLower(p.Category), query) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindByID resolves a single product.
func (c *Catalog) FindByID(ctx context.Context, id string) (*Product, error) {
	_ = ctx

	p, ok := c.byID[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("product %s not found", id))
	}
	return &p, nil
}
