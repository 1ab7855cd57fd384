// Package model defines core domain types shared across the service.
package model

import "fmt"

type Coordinate struct {
	Lat float64
	Lon float64
}

// String representation used in logs
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

type Location struct {
	Coordinate
	Address string
}

type Store struct {
	Name  string
	Brand string
	Coordinate
}

// RankedStore is a store annotated with its distance from a request center.
type RankedStore struct {
	Store
	DistanceKm float64
}

type Product struct {
	Title             string  `json:"title"`
	Price             string  `json:"price"`
	Size              string  `json:"size"`
	Image             *string `json:"image"`
	Supermarket       string  `json:"supermarket"`
	OnDiscount        bool    `json:"on_discount"`
	OriginalPrice     string  `json:"original_price,omitempty"`
	DiscountAction    string  `json:"discount_action,omitempty"`
	DiscountDate      string  `json:"discount_date,omitempty"`
	DiscountTimestamp *int64  `json:"discount_timestamp,omitempty"`
}

type SearchQuery struct {
	Keyword  string
	Center   *Coordinate
	RadiusKm float64
}

type SearchResult struct {
	Keyword       string
	Products      []Product
	Count         int
	Partial       bool
	FailedSources []string
}
