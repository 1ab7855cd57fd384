// Package h3index buckets catalog positions by H3 cell so radius queries only
// visit nearby stores.
package h3index

import (
	"errors"
	"fmt"
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
)

// disks above this ring count cost more than a linear scan of a city-sized catalog
const maxRings = 256

var ErrTooWide = errors.New("h3index: radius too wide for index resolution")

type Index struct {
	res    int
	edgeKm float64
	cells  map[h3.Cell][]int
	size   int
}

// Build indexes coords by their cell at res. Positions are the slice indexes,
// so callers can map candidates back to catalog order.
func Build(coords []model.Coordinate, res int) (*Index, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	edge, err := h3.HexagonEdgeLengthAvgKm(res)
	if err != nil {
		return nil, fmt.Errorf("h3 edge length: %w", err)
	}

	ix := &Index{
		res:    res,
		edgeKm: edge,
		cells:  make(map[h3.Cell][]int, len(coords)),
	}
	for i, c := range coords {
		cell, err := h3.LatLngToCell(h3.NewLatLng(c.Lat, c.Lon), res)
		if err != nil {
			return nil, fmt.Errorf("h3 cell for position %d (%s): %w", i, c, err)
		}
		ix.cells[cell] = append(ix.cells[cell], i)
		ix.size++
	}
	return ix, nil
}

// Candidates returns, in ascending position order, every indexed position that
// may lie within radiusKm of center. It over-approximates; callers must still
// apply the exact distance check.
func (ix *Index) Candidates(center model.Coordinate, radiusKm float64) ([]int, error) {
	if ix == nil || ix.size == 0 {
		return nil, nil
	}
	k := ix.rings(radiusKm)
	if k > maxRings {
		return nil, ErrTooWide
	}

	origin, err := h3.LatLngToCell(h3.NewLatLng(center.Lat, center.Lon), ix.res)
	if err != nil {
		return nil, fmt.Errorf("h3 center cell: %w", err)
	}
	disk, err := h3.GridDisk(origin, k)
	if err != nil {
		return nil, fmt.Errorf("h3 grid disk k=%d: %w", k, err)
	}

	var out []int
	for _, cell := range disk {
		out = append(out, ix.cells[cell]...)
	}
	sort.Ints(out)
	return out, nil
}

func (ix *Index) Len() int { return ix.size }

func (ix *Index) Resolution() int { return ix.res }

// rings over-approximates: cell edges vary across the globe and the
// exact filter works on rounded distances.
func (ix *Index) rings(radiusKm float64) int {
	if radiusKm <= 0 || ix.edgeKm <= 0 {
		return 1
	}
	return int(math.Ceil(radiusKm/(0.5*ix.edgeKm))) + 1
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}
