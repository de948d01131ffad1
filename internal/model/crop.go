// Package model defines the marketplace domain entities shared across
// the store, estimator, and HTTP layers.
package model

import "time"

// Crop is master crop data, including the market signals the
// estimators read. The pointer fields are nullable in the store.
type Crop struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Variety        string `json:"variety,omitempty"`
	ScientificName string `json:"scientific_name,omitempty"`
	GrowingSeason  string `json:"growing_season,omitempty"`
	HarvestDays    int    `json:"harvest_time_days,omitempty"`

	AverageYieldPerAcre  *float64 `json:"average_yield_per_acre,omitempty"`
	CurrentMarketPrice   *float64 `json:"current_market_price,omitempty"`
	PriceVolatilityScore *float64 `json:"price_volatility_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarketPrice is a single observed mandi price for a crop.
type MarketPrice struct {
	ID              int64     `json:"id"`
	CropID          int64     `json:"crop_id"`
	Location        string    `json:"location"`
	MarketName      string    `json:"market_name"`
	PricePerQuintal float64   `json:"price_per_quintal"`
	Date            time.Time `json:"date"`
	Season          string    `json:"season,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CropTrend summarizes listing activity and pricing for one crop,
// used by the market-trends endpoint.
type CropTrend struct {
	Crop         Crop    `json:"crop"`
	ListingCount int     `json:"listing_count"`
	AvgPrice     float64 `json:"avg_price"`
}
