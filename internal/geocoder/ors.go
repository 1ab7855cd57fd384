package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

const DefaultORSURL = "https://api.openrouteservice.org"

// ORS queries the OpenRouteService geocoding API.
type ORS struct {
	BaseURL string
	APIKey  string
	Country string
	Client  *http.Client
}

type orsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

func (o *ORS) Name() string { return "ors" }

func (o *ORS) Lookup(ctx context.Context, address string) (model.Location, bool, error) {
	base := strings.TrimRight(o.BaseURL, "/")
	if base == "" {
		base = DefaultORSURL
	}
	q := url.Values{}
	q.Set("text", address)
	q.Set("size", "1")
	if o.Country != "" {
		q.Set("boundary.country", strings.ToUpper(o.Country))
	}

	resp, err := getJSON(ctx, o.Client, base+"/geocode/search?"+q.Encode(), func(r *http.Request) {
		r.Header.Set("Authorization", o.APIKey)
	})
	if err != nil {
		return model.Location{}, false, err
	}
	defer resp.Body.Close()

	var decoded orsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return model.Location{}, false, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(decoded.Features) == 0 {
		return model.Location{}, false, nil
	}

	f := decoded.Features[0]
	if len(f.Geometry.Coordinates) != 2 {
		return model.Location{}, false, fmt.Errorf("invalid coordinate format for %q", address)
	}
	return model.Location{
		// GeoJSON order is [lon, lat]
		Coordinate: model.Coordinate{Lat: f.Geometry.Coordinates[1], Lon: f.Geometry.Coordinates[0]},
		Address:    f.Properties.Label,
	}, true, nil
}
