// Package products defines product sources the search aggregator fans out to.
package products

import (
	"context"
	"strings"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

// Query is what a source receives. Brands holds canonical brand names; an
// empty list means no brand restriction.
type Query struct {
	Keyword string
	Brands  []string
}

type Source interface {
	Name() string
	// Brands lists the canonical brands the source serves; empty means any.
	Brands() []string
	Search(ctx context.Context, q Query) ([]model.Product, error)
}

// Tokens splits a keyword into lower-cased search tokens.
func Tokens(keyword string) []string {
	return strings.Fields(strings.ToLower(keyword))
}

// Matches reports whether every token occurs in title, ignoring case.
func Matches(title string, tokens []string) bool {
	if len(tokens) == 0 {
		return false
	}
	t := strings.ToLower(title)
	for _, tok := range tokens {
		if !strings.Contains(t, tok) {
			return false
		}
	}
	return true
}

// Serves reports whether a source with the given brand list can answer for
// any of want. A source without a brand list serves everything.
func Serves(sourceBrands, want []string) bool {
	if len(sourceBrands) == 0 || len(want) == 0 {
		return true
	}
	for _, s := range sourceBrands {
		for _, w := range want {
			if s == w {
				return true
			}
		}
	}
	return false
}
