// Package router holds the HTTP handlers: request parsing, validation,
// response shaping and the error envelope.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/apperr"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/observability"
)

const maxBodyBytes = 64 << 10

type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Location, error)
}

type StoreLocator interface {
	FindNearby(ctx context.Context, center model.Coordinate, radiusKm float64) ([]model.RankedStore, error)
}

type Searcher interface {
	Search(ctx context.Context, q model.SearchQuery) (model.SearchResult, error)
}

type Deps struct {
	Geocoder        Geocoder
	Locator         StoreLocator
	Search          Searcher
	Brands          *brand.Table
	DefaultRadiusKm float64
	Logger          *slog.Logger
}

type Handlers struct {
	geo           Geocoder
	loc           StoreLocator
	search        Searcher
	brands        *brand.Table
	defaultRadius float64
	logger        *slog.Logger
}

func New(d Deps) *Handlers {
	h := &Handlers{
		geo:           d.Geocoder,
		loc:           d.Locator,
		search:        d.Search,
		brands:        d.Brands,
		defaultRadius: d.DefaultRadiusKm,
		logger:        d.Logger,
	}
	if h.brands == nil {
		h.brands = brand.Default()
	}
	if h.defaultRadius <= 0 {
		h.defaultRadius = 5
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Observe wraps fn with request metrics under the given route label.
func Observe(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		fn(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

type errorBody struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to the envelope. The client only sees the sanitized
// detail; 5xx causes are logged at error level.
func (h *Handlers) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code, detail := apperr.Status(err)
	if code >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed", "status", code, "err", err)
	} else {
		h.logger.DebugContext(ctx, "request rejected", "status", code, "err", err)
	}
	writeJSON(w, code, errorBody{Status: code, Detail: detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return apperr.Invalid("body", "request body too large")
		}
		return apperr.Invalid("body", "malformed JSON")
	}
	return nil
}
