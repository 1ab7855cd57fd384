// Package search fans a keyword query out to the product sources, tolerating
// partial failure, and merges the answers.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/apperr"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/observability"
	mylog "github.com/mohammed-shakir/supermarkt-search/internal/logger"
	"github.com/mohammed-shakir/supermarkt-search/internal/products"
)

type StoreFinder interface {
	FindNearby(ctx context.Context, center model.Coordinate, radiusKm float64) ([]model.RankedStore, error)
}

// Publisher receives a summary of every completed search.
type Publisher interface {
	PublishSearch(q model.SearchQuery, r model.SearchResult)
}

type Config struct {
	SourceTimeout time.Duration
	SearchTimeout time.Duration
	MaxWorkers    int
}

func (c Config) withDefaults() Config {
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = 5 * time.Second
	}
	if c.SearchTimeout <= 0 {
		c.SearchTimeout = 10 * time.Second
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 8
	}
	return c
}

type Aggregator struct {
	sources []products.Source
	finder  StoreFinder
	brands  *brand.Table
	cfg     Config
	log     *slog.Logger
	pub     Publisher
}

type Option func(*Aggregator)

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(a *Aggregator) { a.pub = p }
}

func WithBrands(t *brand.Table) Option {
	return func(a *Aggregator) {
		if t != nil {
			a.brands = t
		}
	}
}

// New builds an aggregator over sources, merged in the given order.
func New(sources []products.Source, finder StoreFinder, cfg Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: sources,
		finder:  finder,
		brands:  brand.Default(),
		cfg:     cfg.withDefaults(),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type sourceResult struct {
	idx      int
	products []model.Product
	err      error
	elapsed  time.Duration
}

type job struct {
	idx   int
	src   products.Source
	query products.Query
}

// Search runs q against every eligible source. A scoped query (Center set)
// only reaches sources serving a brand present within the radius.
func (a *Aggregator) Search(ctx context.Context, q model.SearchQuery) (model.SearchResult, error) {
	q.Keyword = strings.TrimSpace(q.Keyword)
	if q.Keyword == "" {
		return model.SearchResult{}, apperr.Invalid("keyword", "must not be empty")
	}
	ctx = mylog.WithComponent(ctx, "search")

	var scope []string
	if q.Center != nil {
		if a.finder == nil {
			return model.SearchResult{}, errors.New("search: scoped query without a store finder")
		}
		stores, err := a.finder.FindNearby(ctx, *q.Center, q.RadiusKm)
		if err != nil {
			return model.SearchResult{}, err
		}
		scope = a.candidateBrands(stores)
		if len(scope) == 0 {
			return a.finish(q, emptyResult(q.Keyword)), nil
		}
	}

	jobs := a.plan(q.Keyword, scope)
	if len(jobs) == 0 {
		return a.finish(q, emptyResult(q.Keyword)), nil
	}

	results, err := a.fanOut(ctx, jobs)
	if err != nil {
		return model.SearchResult{}, err
	}

	res := a.merge(ctx, q.Keyword, scope, jobs, results)
	if len(res.FailedSources) == len(jobs) {
		return model.SearchResult{}, &apperr.AggregationError{
			Reason: apperr.AllSourcesFailed,
			Failed: res.FailedSources,
		}
	}
	if res.Partial {
		observability.IncPartialSearch()
	}
	return a.finish(q, res), nil
}

func (a *Aggregator) finish(q model.SearchQuery, r model.SearchResult) model.SearchResult {
	if a.pub != nil {
		a.pub.PublishSearch(q, r)
	}
	return r
}

func emptyResult(keyword string) model.SearchResult {
	return model.SearchResult{Keyword: keyword, Products: []model.Product{}}
}

// candidateBrands returns the distinct canonical brands of stores, nearest first.
func (a *Aggregator) candidateBrands(stores []model.RankedStore) []string {
	seen := make(map[string]struct{}, len(stores))
	var out []string
	for _, s := range stores {
		b := a.brands.Canonical(s.Brand)
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// plan selects sources in registration order and narrows each query to the
// brands the source serves.
func (a *Aggregator) plan(keyword string, scope []string) []job {
	var jobs []job
	for _, src := range a.sources {
		if !products.Serves(src.Brands(), scope) {
			continue
		}
		jobs = append(jobs, job{
			idx:   len(jobs),
			src:   src,
			query: products.Query{Keyword: keyword, Brands: narrow(src.Brands(), scope)},
		})
	}
	return jobs
}

func narrow(sourceBrands, scope []string) []string {
	if len(scope) == 0 || len(sourceBrands) == 0 {
		return scope
	}
	var out []string
	for _, s := range scope {
		for _, b := range sourceBrands {
			if s == b {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// fanOut queries every job on a bounded pool. It returns once all sources
// have settled, or fails when the outer budget or the caller's context ends
// first. Workers never block on send, so abandoned ones drain on their own.
func (a *Aggregator) fanOut(parent context.Context, jobs []job) ([]sourceResult, error) {
	ctx, cancel := context.WithTimeout(parent, a.cfg.SearchTimeout)
	defer cancel()

	queue := make(chan job, len(jobs))
	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	results := make(chan sourceResult, len(jobs))
	workerN := min(a.cfg.MaxWorkers, len(jobs))

	var wg sync.WaitGroup
	wg.Add(workerN)
	for range workerN {
		go func() {
			defer wg.Done()
			for j := range queue {
				results <- a.query(ctx, j)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]sourceResult, len(jobs))
	for settled := 0; settled < len(jobs); {
		select {
		case r, ok := <-results:
			if !ok {
				return out, nil
			}
			out[r.idx] = r
			settled++
		case <-ctx.Done():
			return nil, budgetError(parent, ctx)
		}
	}
	// sources cut short by the outer budget fail the whole search
	if ctx.Err() != nil {
		for _, r := range out {
			if r.err != nil {
				return nil, budgetError(parent, ctx)
			}
		}
	}
	return out, nil
}

func budgetError(parent, ctx context.Context) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	return &apperr.AggregationError{Reason: apperr.Timeout, Err: ctx.Err()}
}

func (a *Aggregator) query(parent context.Context, j job) sourceResult {
	ctx, cancel := context.WithTimeout(parent, a.cfg.SourceTimeout)
	defer cancel()

	start := time.Now()
	items, err := j.src.Search(ctx, j.query)
	elapsed := time.Since(start)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	observability.ObserveSourceResult(j.src.Name(), outcome, elapsed.Seconds())
	return sourceResult{idx: j.idx, products: items, err: err, elapsed: elapsed}
}
