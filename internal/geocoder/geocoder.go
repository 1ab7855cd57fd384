// Package geocoder resolves free-text addresses to coordinates through an
// external provider.
package geocoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/apperr"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/observability"
	"github.com/mohammed-shakir/supermarkt-search/internal/geo"
)

// Provider performs one lookup. found is false when the provider answered
// but had no match.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, address string) (loc model.Location, found bool, err error)
}

type Geocoder struct {
	p       Provider
	limiter *rate.Limiter
	log     *slog.Logger
}

// New wraps p with an outbound rate limit. rps <= 0 disables the limit.
func New(p Provider, rps float64, burst int, log *slog.Logger) *Geocoder {
	if log == nil {
		log = slog.Default()
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Inf, burst)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &Geocoder{p: p, limiter: lim, log: log}
}

// Geocode makes exactly one provider call per valid address. Empty input
// fails before any network traffic.
func (g *Geocoder) Geocode(ctx context.Context, address string) (model.Location, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return model.Location{}, &apperr.GeocodeError{
			Reason: apperr.GeocodeInvalidInput,
			Err:    apperr.Invalid("address", "must not be empty"),
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return model.Location{}, fmt.Errorf("geocode wait: %w", ctx.Err())
		}
		return model.Location{}, unavailable(address, fmt.Errorf("rate limited: %w", err))
	}

	start := time.Now()
	loc, found, err := g.p.Lookup(ctx, address)
	observability.ObserveUpstreamLatency("geocoder", time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return model.Location{}, fmt.Errorf("geocode: %w", ctx.Err())
		}
		g.log.WarnContext(ctx, "geocoding provider failed",
			"provider", g.p.Name(), "err", err, "elapsed", time.Since(start))
		return model.Location{}, unavailable(address, err)
	}
	if !found {
		return model.Location{}, &apperr.GeocodeError{Reason: apperr.GeocodeNotFound, Address: address}
	}
	if !geo.ValidCoordinate(loc.Coordinate) {
		return model.Location{}, unavailable(address,
			fmt.Errorf("provider %s returned invalid coordinate %s", g.p.Name(), loc.Coordinate))
	}
	if strings.TrimSpace(loc.Address) == "" {
		loc.Address = address
	}
	return loc, nil
}

func unavailable(address string, err error) error {
	return &apperr.GeocodeError{Reason: apperr.GeocodeProviderUnavailable, Address: address, Err: err}
}
