package geocoder

import (
	"fmt"
	"net/http"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/config"
)

// NewProvider builds the provider named in cfg.
func NewProvider(cfg config.GeocoderCfg, client *http.Client) (Provider, error) {
	switch cfg.Provider {
	case "", "nominatim":
		return &Nominatim{
			BaseURL:     cfg.URL,
			CountryCode: cfg.Country,
			UserAgent:   cfg.UserAgent,
			Client:      client,
		}, nil
	case "ors", "openrouteservice":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("geocoder %q requires GEOCODER_API_KEY", cfg.Provider)
		}
		return &ORS{BaseURL: cfg.URL, APIKey: cfg.APIKey, Country: cfg.Country, Client: client}, nil
	default:
		return nil, fmt.Errorf("unknown geocoder provider %q", cfg.Provider)
	}
}
