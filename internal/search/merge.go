package search

import (
	"context"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	mylog "github.com/mohammed-shakir/supermarkt-search/internal/logger"
	"github.com/mohammed-shakir/supermarkt-search/internal/products"
)

type identity struct {
	title, supermarket, price string
}

func (id identity) digest() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(id.title)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(id.supermarket)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(id.price)
	return d.Sum64()
}

// dedupe remembers product identities; digests index the exact tuples so a
// hash collision never drops a distinct product.
type dedupe struct {
	seen map[uint64][]identity
}

func newDedupe() *dedupe { return &dedupe{seen: map[uint64][]identity{}} }

// add reports whether id is new.
func (d *dedupe) add(id identity) bool {
	h := id.digest()
	for _, prev := range d.seen[h] {
		if prev == id {
			return false
		}
	}
	d.seen[h] = append(d.seen[h], id)
	return true
}

// merge keeps source order, then each source's own order. Failed sources
// are reported by name.
func (a *Aggregator) merge(ctx context.Context, keyword string, scope []string, jobs []job, results []sourceResult) model.SearchResult {
	tokens := products.Tokens(keyword)
	inScope := make(map[string]struct{}, len(scope))
	for _, b := range scope {
		inScope[b] = struct{}{}
	}

	res := model.SearchResult{Keyword: keyword, Products: []model.Product{}}
	seen := newDedupe()
	for i, r := range results {
		name := jobs[i].src.Name()
		if r.err != nil {
			res.FailedSources = append(res.FailedSources, name)
			a.log.WarnContext(mylog.WithSource(ctx, name), "product source failed",
				"err", r.err, "elapsed", r.elapsed)
			continue
		}
		for _, p := range r.products {
			p = a.normalize(p)
			if !products.Matches(p.Title, tokens) {
				continue
			}
			if len(inScope) > 0 {
				if _, ok := inScope[p.Supermarket]; !ok {
					continue
				}
			}
			if !seen.add(identity{p.Title, p.Supermarket, p.Price}) {
				continue
			}
			res.Products = append(res.Products, p)
		}
	}
	res.Count = len(res.Products)
	res.Partial = len(res.FailedSources) > 0
	return res
}

func (a *Aggregator) normalize(p model.Product) model.Product {
	p.Title = strings.TrimSpace(p.Title)
	p.Price = strings.TrimSpace(p.Price)
	p.Supermarket = a.brands.Canonical(p.Supermarket)
	if !p.OnDiscount {
		p.OriginalPrice = ""
	}
	return p
}
