package h3index

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"sort"
	"testing"

	"github.com/mohammed-shakir/supermarkt-search/internal/core/model"
	"github.com/mohammed-shakir/supermarkt-search/internal/geo"
)

func randomAround(r *rand.Rand, center model.Coordinate, spreadDeg float64, n int) []model.Coordinate {
	out := make([]model.Coordinate, n)
	for i := range out {
		out[i] = model.Coordinate{
			Lat: center.Lat + (r.Float64()*2-1)*spreadDeg,
			Lon: center.Lon + (r.Float64()*2-1)*spreadDeg,
		}
	}
	return out
}

func TestCandidates_CoverBruteForce(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	center := model.Coordinate{Lat: 52.37, Lon: 4.89}
	coords := randomAround(r, center, 0.4, 2000)

	for _, res := range []int{5, 7, 8} {
		ix, err := Build(coords, res)
		if err != nil {
			t.Fatalf("Build res=%d: %v", res, err)
		}
		for _, radius := range []float64{0.5, 1, 5, 12.5, 20} {
			cand, err := ix.Candidates(center, radius)
			if err != nil {
				t.Fatalf("Candidates res=%d r=%v: %v", res, radius, err)
			}
			if !sort.IntsAreSorted(cand) {
				t.Fatalf("candidates must be sorted by position")
			}
			set := make(map[int]struct{}, len(cand))
			for _, p := range cand {
				set[p] = struct{}{}
			}
			for i, c := range coords {
				if geo.DistanceKm(center, c) <= radius {
					if _, ok := set[i]; !ok {
						t.Fatalf("res=%d radius=%v: position %d at %.2fkm missing from candidates",
							res, radius, i, geo.DistanceKm(center, c))
					}
				}
			}
		}
	}
}

func TestCandidates_Deterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	center := model.Coordinate{Lat: 51.92, Lon: 4.48}
	coords := randomAround(r, center, 0.2, 300)

	ix, err := Build(coords, 7)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	a, err := ix.Candidates(center, 5)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	b, err := ix.Candidates(center, 5)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical output for identical input")
	}
	if ix.Len() != len(coords) {
		t.Fatalf("Len=%d want %d", ix.Len(), len(coords))
	}
}

func TestBuild_InvalidResolution(t *testing.T) {
	for _, res := range []int{-1, 16} {
		if _, err := Build(nil, res); err == nil {
			t.Fatalf("expected error for res=%d", res)
		}
	}
}

func TestCandidates_TooWide(t *testing.T) {
	ix, err := Build([]model.Coordinate{{Lat: 52.37, Lon: 4.89}}, 10)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, err := ix.Candidates(model.Coordinate{Lat: 52.37, Lon: 4.89}, 500); !errors.Is(err, ErrTooWide) {
		t.Fatalf("err=%v want ErrTooWide", err)
	}
}

func TestCandidates_EmptyIndex(t *testing.T) {
	ix, err := Build(nil, 7)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got, err := ix.Candidates(model.Coordinate{Lat: 0, Lon: 0}, 5)
	if err != nil || len(got) != 0 {
		t.Fatalf("got=%v err=%v want empty", got, err)
	}
}
