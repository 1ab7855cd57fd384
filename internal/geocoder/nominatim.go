package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim queries an OpenStreetMap Nominatim instance.
type Nominatim struct {
	BaseURL     string
	CountryCode string
	UserAgent   string
	Client      *http.Client
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Name() string { return "nominatim" }

func (n *Nominatim) Lookup(ctx context.Context, address string) (model.Location, bool, error) {
	base := strings.TrimRight(n.BaseURL, "/")
	if base == "" {
		base = DefaultNominatimURL
	}
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	if n.CountryCode != "" {
		q.Set("countrycodes", n.CountryCode)
	}

	resp, err := getJSON(ctx, n.Client, base+"/search?"+q.Encode(), func(r *http.Request) {
		if n.UserAgent != "" {
			r.Header.Set("User-Agent", n.UserAgent)
		}
	})
	if err != nil {
		return model.Location{}, false, err
	}
	defer resp.Body.Close()

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return model.Location{}, false, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(places) == 0 {
		return model.Location{}, false, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return model.Location{}, false, fmt.Errorf("parse lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return model.Location{}, false, fmt.Errorf("parse lon %q: %w", places[0].Lon, err)
	}
	return model.Location{
		Coordinate: model.Coordinate{Lat: lat, Lon: lon},
		Address:    places[0].DisplayName,
	}, true, nil
}
