package router

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/apperr"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	mylog "github.com/mohammed-shakir/supermarkt-search/internal/logger"
)

type geocodeRequest struct {
	Address string `json:"address"`
}

type geocodeResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

func (h *Handlers) Geocode(w http.ResponseWriter, r *http.Request) {
	ctx := mylog.WithOperation(r.Context(), "geocode")
	var req geocodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	loc, err := h.geo.Geocode(ctx, req.Address)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, geocodeResponse{
		Latitude:  loc.Lat,
		Longitude: loc.Lon,
		Address:   loc.Address,
	})
}

type supermarketsRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	RadiusKm  *float64 `json:"radius_km"`
}

type supermarket struct {
	Name       string  `json:"name"`
	Brand      string  `json:"brand"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
	BrandColor string  `json:"brand_color"`
}

type supermarketsResponse struct {
	Supermarkets []supermarket `json:"supermarkets"`
	Count        int           `json:"count"`
}

func (h *Handlers) Supermarkets(w http.ResponseWriter, r *http.Request) {
	ctx := mylog.WithOperation(r.Context(), "find_nearby")
	var req supermarketsRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if req.Latitude == nil {
		h.writeError(ctx, w, apperr.Invalid("latitude", "is required"))
		return
	}
	if req.Longitude == nil {
		h.writeError(ctx, w, apperr.Invalid("longitude", "is required"))
		return
	}
	radius := h.defaultRadius
	if req.RadiusKm != nil {
		radius = *req.RadiusKm
	}

	stores, err := h.loc.FindNearby(ctx, model.Coordinate{Lat: *req.Latitude, Lon: *req.Longitude}, radius)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	out := supermarketsResponse{Supermarkets: make([]supermarket, 0, len(stores)), Count: len(stores)}
	for _, s := range stores {
		b := h.brands.Lookup(s.Brand)
		out.Supermarkets = append(out.Supermarkets, supermarket{
			Name:       s.Name,
			Brand:      b.Name,
			Latitude:   s.Lat,
			Longitude:  s.Lon,
			DistanceKm: s.DistanceKm,
			BrandColor: b.Color,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type searchResponse struct {
	Keyword       string          `json:"keyword"`
	Products      []model.Product `json:"products"`
	Count         int             `json:"count"`
	Partial       bool            `json:"partial,omitempty"`
	FailedSources []string        `json:"failed_sources,omitempty"`
}

func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	ctx := mylog.WithOperation(r.Context(), "search")
	q, err := ParseSearchQuery(r)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	res, err := h.search.Search(ctx, q)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	if res.Products == nil {
		res.Products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Keyword:       res.Keyword,
		Products:      res.Products,
		Count:         res.Count,
		Partial:       res.Partial,
		FailedSources: res.FailedSources,
	})
}

// ParseSearchQuery reads keyword and the optional location scope. A radius
// without coordinates is ignored; coordinates require a radius.
func ParseSearchQuery(r *http.Request) (model.SearchQuery, error) {
	v := r.URL.Query()
	q := model.SearchQuery{Keyword: strings.TrimSpace(v.Get("keyword"))}
	if q.Keyword == "" {
		return q, apperr.Invalid("keyword", "must not be empty")
	}

	rawLat, rawLon := strings.TrimSpace(v.Get("latitude")), strings.TrimSpace(v.Get("longitude"))
	switch {
	case rawLat == "" && rawLon == "":
		return q, nil
	case rawLat == "":
		return q, apperr.Invalid("latitude", "is required when longitude is set")
	case rawLon == "":
		return q, apperr.Invalid("longitude", "is required when latitude is set")
	}

	lat, err := parseFloat("latitude", rawLat)
	if err != nil {
		return q, err
	}
	lon, err := parseFloat("longitude", rawLon)
	if err != nil {
		return q, err
	}
	rawRadius := strings.TrimSpace(v.Get("radius_km"))
	if rawRadius == "" {
		return q, apperr.Invalid("radius_km", "is required when coordinates are set")
	}
	radius, err := parseFloat("radius_km", rawRadius)
	if err != nil {
		return q, err
	}

	q.Center = &model.Coordinate{Lat: lat, Lon: lon}
	q.RadiusKm = radius
	return q, nil
}

func parseFloat(field, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, apperr.Invalid(field, "must be a number")
	}
	return f, nil
}
