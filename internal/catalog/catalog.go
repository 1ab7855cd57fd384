// Package catalog holds the in-memory store catalog. Readers load an
// immutable Snapshot; Reload builds a new one from a Source and swaps it in.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/observability"
	"github.com/mohammed-shakir/supermarkt-search/internal/geo/h3index"
)

// Source loads the raw store list from a backing store.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]Record, error)
}

// Record is the wire shape shared by every source.
type Record struct {
	Name      string  `json:"name"`
	Brand     string  `json:"brand"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Snapshot struct {
	Version  string
	LoadedAt time.Time
	Stores   []model.Store
	Skipped  int

	// Index is nil when it could not be built; callers then scan Stores.
	Index *h3index.Index
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Stores)
}

var emptySnapshot = &Snapshot{}

type Catalog struct {
	src    Source
	brands *brand.Table
	res    int
	log    *slog.Logger

	reloadMu sync.Mutex
	cur      atomic.Pointer[Snapshot]
}

type Option func(*Catalog)

func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) {
		if l != nil {
			c.log = l
		}
	}
}

// WithResolution sets the H3 resolution used for the spatial index.
func WithResolution(res int) Option {
	return func(c *Catalog) { c.res = res }
}

func New(src Source, brands *brand.Table, opts ...Option) *Catalog {
	if brands == nil {
		brands = brand.Default()
	}
	c := &Catalog{
		src:    src,
		brands: brands,
		res:    7,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns the active snapshot. It never returns nil.
func (c *Catalog) Snapshot() *Snapshot {
	if s := c.cur.Load(); s != nil {
		return s
	}
	return emptySnapshot
}

func (c *Catalog) Brands() *brand.Table { return c.brands }

// Readiness reports whether any snapshot has been loaded, and its size.
func (c *Catalog) Readiness() (bool, int) {
	s := c.cur.Load()
	return s != nil, s.Len()
}

// Reload fetches the store list and atomically replaces the active
// snapshot. On error the previous snapshot stays in place.
func (c *Catalog) Reload(ctx context.Context, version string) error {
	if c.src == nil {
		return errors.New("catalog: no source configured")
	}
	c.reloadMu.Lock()
	defer c.reloadMu.Unlock()

	start := time.Now()
	recs, err := c.src.Load(ctx)
	observability.ObserveUpstreamLatency("catalog:"+c.src.Name(), time.Since(start).Seconds())
	if err != nil {
		observability.ObserveCatalogReload(err)
		return fmt.Errorf("catalog load from %s: %w", c.src.Name(), err)
	}

	snap := c.build(recs)
	snap.Version = version
	c.cur.Store(snap)

	observability.ObserveCatalogReload(nil)
	observability.SetCatalogSize(len(snap.Stores))
	c.log.InfoContext(ctx, "catalog reloaded",
		"source", c.src.Name(),
		"version", version,
		"stores", len(snap.Stores),
		"skipped", snap.Skipped,
		"indexed", snap.Index != nil,
		"elapsed", time.Since(start),
	)
	return nil
}

func (c *Catalog) build(recs []Record) *Snapshot {
	stores, skipped := Normalize(recs, c.brands)
	snap := &Snapshot{
		LoadedAt: time.Now().UTC(),
		Stores:   stores,
		Skipped:  skipped,
	}

	coords := make([]model.Coordinate, len(stores))
	for i, s := range stores {
		coords[i] = s.Coordinate
	}
	ix, err := h3index.Build(coords, c.res)
	if err != nil {
		c.log.Warn("catalog index unavailable, falling back to scans", "err", err)
	} else {
		snap.Index = ix
	}
	return snap
}
