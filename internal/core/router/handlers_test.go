package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/apperr"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

type stubGeocoder struct {
	loc model.Location
	err error
	got string
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (model.Location, error) {
	s.got = address
	return s.loc, s.err
}

type stubLocator struct {
	stores []model.RankedStore
	err    error
	radius float64
}

func (s *stubLocator) FindNearby(_ context.Context, _ model.Coordinate, radiusKm float64) ([]model.RankedStore, error) {
	s.radius = radiusKm
	return s.stores, s.err
}

type stubSearcher struct {
	res model.SearchResult
	err error
	got model.SearchQuery
}

func (s *stubSearcher) Search(_ context.Context, q model.SearchQuery) (model.SearchResult, error) {
	s.got = q
	return s.res, s.err
}

func newHandlers(g Geocoder, l StoreLocator, s Searcher) *Handlers {
	return New(Deps{
		Geocoder:        g,
		Locator:         l,
		Search:          s,
		DefaultRadiusKm: 5,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var e errorBody
	if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rr.Body.String())
	}
	if e.Status != rr.Code || e.Detail == "" {
		t.Fatalf("envelope=%+v code=%d", e, rr.Code)
	}
	return e
}

func TestGeocode_Handler(t *testing.T) {
	g := &stubGeocoder{loc: model.Location{Coordinate: model.Coordinate{Lat: 52.37, Lon: 4.89}, Address: "Dam, Amsterdam"}}
	h := newHandlers(g, nil, nil)

	rr := httptest.NewRecorder()
	h.Geocode(rr, httptest.NewRequest(http.MethodPost, "/geocode", strings.NewReader(`{"address":"Dam"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var body map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&body)
	if body["latitude"] != 52.37 || body["longitude"] != 4.89 || body["address"] != "Dam, Amsterdam" || g.got != "Dam" {
		t.Fatalf("body=%v got=%q", body, g.got)
	}
}

func TestGeocode_ErrorMapping(t *testing.T) {
	cases := []struct {
		body string
		err  error
		code int
	}{
		{`{"address":`, nil, http.StatusBadRequest},
		{`{"address":""}`, &apperr.GeocodeError{Reason: apperr.GeocodeInvalidInput, Err: apperr.Invalid("address", "must not be empty")}, http.StatusBadRequest},
		{`{"address":"x"}`, &apperr.GeocodeError{Reason: apperr.GeocodeNotFound, Address: "x"}, http.StatusNotFound},
		{`{"address":"x"}`, &apperr.GeocodeError{Reason: apperr.GeocodeProviderUnavailable, Err: errors.New("dial tcp 10.0.0.1: refused")}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		h := newHandlers(&stubGeocoder{err: tc.err}, nil, nil)
		rr := httptest.NewRecorder()
		h.Geocode(rr, httptest.NewRequest(http.MethodPost, "/geocode", strings.NewReader(tc.body)))
		if rr.Code != tc.code {
			t.Fatalf("body=%s status=%d want %d", tc.body, rr.Code, tc.code)
		}
		env := decodeEnvelope(t, rr)
		if strings.Contains(env.Detail, "10.0.0.1") {
			t.Fatalf("internal detail leaked: %q", env.Detail)
		}
	}
}

func TestGeocode_BodyTooLarge(t *testing.T) {
	h := newHandlers(&stubGeocoder{}, nil, nil)
	big := `{"address":"` + strings.Repeat("a", maxBodyBytes+10) + `"}`
	rr := httptest.NewRecorder()
	h.Geocode(rr, httptest.NewRequest(http.MethodPost, "/geocode", strings.NewReader(big)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}

func TestSupermarkets_Handler(t *testing.T) {
	l := &stubLocator{stores: []model.RankedStore{
		{Store: model.Store{Name: "Jumbo Nieuwmarkt", Brand: "Jumbo", Coordinate: model.Coordinate{Lat: 52.3725, Lon: 4.9005}}, DistanceKm: 0.6},
		{Store: model.Store{Name: "Buurtsuper", Brand: "Spar", Coordinate: model.Coordinate{Lat: 52.36, Lon: 4.88}}, DistanceKm: 1.75},
	}}
	h := newHandlers(nil, l, nil)

	rr := httptest.NewRecorder()
	h.Supermarkets(rr, httptest.NewRequest(http.MethodPost, "/supermarkets", strings.NewReader(`{"latitude":52.3676,"longitude":4.9041}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if l.radius != 5 {
		t.Fatalf("default radius not applied: %v", l.radius)
	}
	var body supermarketsResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Count != 2 || len(body.Supermarkets) != 2 {
		t.Fatalf("body=%+v", body)
	}
	if body.Supermarkets[0].BrandColor != "#ffff00" || body.Supermarkets[1].BrandColor != "#ff5722" {
		t.Fatalf("brand colours=%q,%q", body.Supermarkets[0].BrandColor, body.Supermarkets[1].BrandColor)
	}
	if body.Supermarkets[0].DistanceKm != 0.6 {
		t.Fatalf("distance=%v", body.Supermarkets[0].DistanceKm)
	}
}

func TestSupermarkets_Validation(t *testing.T) {
	cases := []struct {
		body string
		err  error
	}{
		{`{"longitude":4.9}`, nil},
		{`{"latitude":52.3}`, nil},
		{`not json`, nil},
		{`{"latitude":52.3,"longitude":4.9,"radius_km":25}`, apperr.Invalid("radius_km", "must not exceed 20 km")},
	}
	for _, tc := range cases {
		h := newHandlers(nil, &stubLocator{err: tc.err}, nil)
		rr := httptest.NewRecorder()
		h.Supermarkets(rr, httptest.NewRequest(http.MethodPost, "/supermarkets", strings.NewReader(tc.body)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("body=%s status=%d want 400", tc.body, rr.Code)
		}
		decodeEnvelope(t, rr)
	}
}

func TestSupermarkets_EmptyIsArray(t *testing.T) {
	h := newHandlers(nil, &stubLocator{}, nil)
	rr := httptest.NewRecorder()
	h.Supermarkets(rr, httptest.NewRequest(http.MethodPost, "/supermarkets", strings.NewReader(`{"latitude":0,"longitude":0,"radius_km":1}`)))
	if !strings.Contains(rr.Body.String(), `"supermarkets":[]`) {
		t.Fatalf("body=%s", rr.Body.String())
	}
}

func TestParseSearchQuery(t *testing.T) {
	cases := []struct {
		query   string
		field   string
		scoped  bool
		keyword string
	}{
		{"keyword=knorr", "", false, "knorr"},
		{"keyword=+knorr+&radius_km=3", "", false, "knorr"},
		{"keyword=knorr&latitude=52.37&longitude=4.89&radius_km=5", "", true, "knorr"},
		{"keyword=", "keyword", false, ""},
		{"latitude=52", "keyword", false, ""},
		{"keyword=k&latitude=52.37", "longitude", false, ""},
		{"keyword=k&longitude=4.89", "latitude", false, ""},
		{"keyword=k&latitude=north&longitude=4.89&radius_km=1", "latitude", false, ""},
		{"keyword=k&latitude=52&longitude=4.89", "radius_km", false, ""},
		{"keyword=k&latitude=52&longitude=4.89&radius_km=far", "radius_km", false, ""},
	}
	for _, tc := range cases {
		q, err := ParseSearchQuery(httptest.NewRequest(http.MethodGet, "/search?"+tc.query, nil))
		if tc.field != "" {
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) || ve.Field != tc.field {
				t.Fatalf("%s: err=%v want field %s", tc.query, err, tc.field)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tc.query, err)
		}
		if (q.Center != nil) != tc.scoped || q.Keyword != tc.keyword {
			t.Fatalf("%s: q=%+v", tc.query, q)
		}
		if !tc.scoped && q.RadiusKm != 0 {
			t.Fatalf("%s: radius without coordinates must be ignored", tc.query)
		}
	}
}

func TestSearch_Handler(t *testing.T) {
	s := &stubSearcher{res: model.SearchResult{
		Keyword:       "knorr",
		Products:      []model.Product{{Title: "Knorr Soep", Price: "1.89", Size: "570 ml", Supermarket: "Jumbo"}},
		Count:         1,
		Partial:       true,
		FailedSources: []string{"ah"},
	}}
	h := newHandlers(nil, nil, s)

	rr := httptest.NewRecorder()
	h.Search(rr, httptest.NewRequest(http.MethodGet, "/search?keyword=knorr&latitude=52.37&longitude=4.89&radius_km=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if s.got.Center == nil || s.got.RadiusKm != 5 {
		t.Fatalf("query=%+v", s.got)
	}
	var body map[string]any
	_ = json.NewDecoder(rr.Body).Decode(&body)
	if body["count"] != float64(1) || body["partial"] != true {
		t.Fatalf("body=%v", body)
	}
	p := body["products"].([]any)[0].(map[string]any)
	if _, ok := p["image"]; !ok || p["image"] != nil || p["on_discount"] != false {
		t.Fatalf("product=%v", p)
	}
	if _, ok := p["original_price"]; ok {
		t.Fatalf("original_price must be omitted when empty: %v", p)
	}
}

func TestSearch_HandlerErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&apperr.AggregationError{Reason: apperr.AllSourcesFailed, Failed: []string{"a"}}, http.StatusBadGateway},
		{&apperr.AggregationError{Reason: apperr.Timeout}, http.StatusGatewayTimeout},
		{context.Canceled, http.StatusRequestTimeout},
		{errors.New("pq: password authentication failed"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := newHandlers(nil, nil, &stubSearcher{err: tc.err})
		rr := httptest.NewRecorder()
		h.Search(rr, httptest.NewRequest(http.MethodGet, "/search?keyword=knorr", nil))
		if rr.Code != tc.code {
			t.Fatalf("err=%v status=%d want %d", tc.err, rr.Code, tc.code)
		}
		if env := decodeEnvelope(t, rr); strings.Contains(env.Detail, "password") {
			t.Fatalf("leaked: %q", env.Detail)
		}
	}
}

func TestSearch_EmptyProductsIsArray(t *testing.T) {
	h := newHandlers(nil, nil, &stubSearcher{res: model.SearchResult{Keyword: "x"}})
	rr := httptest.NewRecorder()
	h.Search(rr, httptest.NewRequest(http.MethodGet, "/search?keyword=x", nil))
	got := rr.Body.String()
	if !strings.Contains(got, `"products":[]`) || strings.Contains(got, "partial") || strings.Contains(got, "failed_sources") {
		t.Fatalf("body=%s", got)
	}
}
