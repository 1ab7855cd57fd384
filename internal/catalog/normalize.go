package catalog

import (
	"strings"

	"github.com/mohammed-shakir/supermarkt-search/internal/brand"
	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/geo"
)

// Normalize canonicalizes brands and drops records without a name or with
// out-of-range coordinates. Input order is preserved.
func Normalize(recs []Record, brands *brand.Table) ([]model.Store, int) {
	out := make([]model.Store, 0, len(recs))
	skipped := 0
	for _, r := range recs {
		name := strings.TrimSpace(r.Name)
		c := model.Coordinate{Lat: r.Latitude, Lon: r.Longitude}
		if name == "" || !geo.ValidCoordinate(c) {
			skipped++
			continue
		}
		out = append(out, model.Store{
			Name:       name,
			Brand:      brands.Canonical(r.Brand),
			Coordinate: c,
		})
	}
	return out, skipped
}
