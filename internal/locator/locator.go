// Package locator finds catalog stores within a radius of a point.
package locator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/mohammed-shakir/supermarkt-search/internal/catalog"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/apperr"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/geo"
)

const DefaultMaxRadiusKm = 20.0

type SnapshotProvider interface {
	Snapshot() *catalog.Snapshot
}

type Locator struct {
	catalog   SnapshotProvider
	maxRadius float64
	log       *slog.Logger
}

func New(c SnapshotProvider, maxRadiusKm float64, log *slog.Logger) *Locator {
	if maxRadiusKm <= 0 {
		maxRadiusKm = DefaultMaxRadiusKm
	}
	if log == nil {
		log = slog.Default()
	}
	return &Locator{catalog: c, maxRadius: maxRadiusKm, log: log}
}

func (l *Locator) MaxRadiusKm() float64 { return l.maxRadius }

// ValidateRadius rejects radii outside (0, max]; values are never clamped.
func (l *Locator) ValidateRadius(radiusKm float64) error {
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return apperr.Invalid("radius_km", "must be greater than 0")
	}
	if radiusKm > l.maxRadius {
		return apperr.Invalid("radius_km", "must not exceed %g km", l.maxRadius)
	}
	return nil
}

func ValidateCenter(c model.Coordinate) error {
	if !geo.ValidLatitude(c.Lat) {
		return apperr.Invalid("latitude", "must be between -90 and 90")
	}
	if !geo.ValidLongitude(c.Lon) {
		return apperr.Invalid("longitude", "must be between -180 and 180")
	}
	return nil
}

// FindNearby returns the stores whose rounded distance from center is at
// most radiusKm, nearest first. Stores at equal distance keep catalog order.
func (l *Locator) FindNearby(ctx context.Context, center model.Coordinate, radiusKm float64) ([]model.RankedStore, error) {
	if err := ValidateCenter(center); err != nil {
		return nil, err
	}
	if err := l.ValidateRadius(radiusKm); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap := l.catalog.Snapshot()
	out := make([]model.RankedStore, 0)
	visit := func(s model.Store) {
		d := geo.DistanceKm(center, s.Coordinate)
		if d <= radiusKm {
			out = append(out, model.RankedStore{Store: s, DistanceKm: d})
		}
	}

	positions, err := candidates(snap, center, radiusKm)
	if err != nil {
		l.log.DebugContext(ctx, "spatial index unavailable, scanning catalog", "err", err)
		for _, s := range snap.Stores {
			visit(s)
		}
	} else {
		for _, p := range positions {
			visit(snap.Stores[p])
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DistanceKm < out[j].DistanceKm })
	return out, nil
}

func candidates(snap *catalog.Snapshot, center model.Coordinate, radiusKm float64) ([]int, error) {
	if snap.Index == nil {
		return nil, errNoIndex
	}
	return snap.Index.Candidates(center, radiusKm)
}

var errNoIndex = errors.New("catalog snapshot has no spatial index")
