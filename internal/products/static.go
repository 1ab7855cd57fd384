package products

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

// StaticSource serves a fixed product list, matched in-process.
type StaticSource struct {
	name     string
	brands   []string
	table    *brand.Table
	products []model.Product
}

func NewStatic(name string, brands []string, table *brand.Table, items []model.Product) *StaticSource {
	if table == nil {
		table = brand.Default()
	}
	return &StaticSource{name: name, brands: brands, table: table, products: items}
}

// LoadStatic reads a JSON array of products from path.
func LoadStatic(name, path string, brands []string, table *brand.Table) (*StaticSource, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read products %s: %w", path, err)
	}
	var items []model.Product
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("decode products %s: %w", path, err)
	}
	return NewStatic(name, brands, table, items), nil
}

func (s *StaticSource) Name() string     { return s.name }
func (s *StaticSource) Brands() []string { return s.brands }

func (s *StaticSource) Search(ctx context.Context, q Query) ([]model.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tokens := Tokens(q.Keyword)
	var out []model.Product
	for _, p := range s.products {
		if !Matches(p.Title, tokens) {
			continue
		}
		if len(q.Brands) > 0 && !Serves([]string{s.table.Canonical(p.Supermarket)}, q.Brands) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
