// Package store provides persistence for the marketplace entities with
// SQLite and Postgres backends.
package store

import (
	"context"
	"time"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// Party roles for history queries.
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
)

// CropFilter specifies criteria for listing crops.
type CropFilter struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// ListingFilter specifies criteria for listing crop listings.
type ListingFilter struct {
	FarmerID int64               `json:"farmer_id,omitempty"`
	CropID   int64               `json:"crop_id,omitempty"`
	Status   model.ListingStatus `json:"status,omitempty"`
	Location string              `json:"location,omitempty"`
	Limit    int                 `json:"limit,omitempty"`
}

// ContractFilter specifies criteria for listing contracts.
type ContractFilter struct {
	FarmerID int64                `json:"farmer_id,omitempty"`
	BuyerID  int64                `json:"buyer_id,omitempty"`
	Status   model.ContractStatus `json:"status,omitempty"`
	Limit    int                  `json:"limit,omitempty"`
}

// ReviewFilter specifies criteria for listing reviews.
type ReviewFilter struct {
	RevieweeID int64 `json:"reviewee_id,omitempty"`
	ReviewerID int64 `json:"reviewer_id,omitempty"`
	Limit      int   `json:"limit,omitempty"`
}

// FarmerStats aggregates a farmer's marketplace activity.
type FarmerStats struct {
	TotalListings      int     `json:"total_listings"`
	ActiveListings     int     `json:"active_listings"`
	ActiveContracts    int     `json:"active_contracts"`
	CompletedContracts int     `json:"completed_contracts"`
	TotalEarnings      float64 `json:"total_earnings"`
}

// BuyerStats aggregates a buyer's marketplace activity.
type BuyerStats struct {
	TotalContracts     int     `json:"total_contracts"`
	ActiveContracts    int     `json:"active_contracts"`
	CompletedContracts int     `json:"completed_contracts"`
	TotalSpent         float64 `json:"total_spent"`
}

// MarketSummary aggregates marketplace-wide activity.
type MarketSummary struct {
	ActiveListings   int     `json:"total_active_listings"`
	ActiveContracts  int     `json:"total_active_contracts"`
	AvgContractValue float64 `json:"avg_contract_value"`
}

// Store defines the persistence interface for the marketplace.
type Store interface {
	// Crops
	CreateCrop(ctx context.Context, crop *model.Crop) (*model.Crop, error)
	GetCrop(ctx context.Context, id int64) (*model.Crop, error)
	ListCrops(ctx context.Context, filter CropFilter) ([]model.Crop, error)

	// Market prices
	AddMarketPrice(ctx context.Context, price *model.MarketPrice) (*model.MarketPrice, error)
	RecentPrices(ctx context.Context, cropID int64, since time.Time) ([]model.MarketPrice, error)
	PriceHistory(ctx context.Context, cropID int64, limit int) ([]model.MarketPrice, error)
	RecentPriceUpdates(ctx context.Context, since time.Time, limit int) ([]model.MarketPrice, error)
	TrendingCrops(ctx context.Context, limit int) ([]model.CropTrend, error)

	// Listings
	CreateListing(ctx context.Context, listing *model.CropListing) (*model.CropListing, error)
	GetListing(ctx context.Context, id string) (*model.CropListing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]model.CropListing, error)
	UpdateListingStatus(ctx context.Context, id string, status model.ListingStatus) error
	SetListingInsights(ctx context.Context, id string, qualityScore, priceRecommendation float64) error

	// Contracts
	CreateContract(ctx context.Context, contract *model.Contract) (*model.Contract, error)
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]model.Contract, error)
	AddProgress(ctx context.Context, progress *model.ContractProgress) (*model.ContractProgress, error)
	ListProgress(ctx context.Context, contractID string) ([]model.ContractProgress, error)
	CompleteContract(ctx context.Context, id string, deliveredAt time.Time) error
	SetContractRisk(ctx context.Context, id string, score float64) error

	// Reviews
	CreateReview(ctx context.Context, review *model.Review) (*model.Review, error)
	ListReviews(ctx context.Context, filter ReviewFilter) ([]model.Review, error)

	// Derived views
	PartyHistory(ctx context.Context, partyID int64, role string) (model.PartyHistory, error)
	FarmerStats(ctx context.Context, farmerID int64) (*FarmerStats, error)
	BuyerStats(ctx context.Context, buyerID int64) (*BuyerStats, error)
	MarketSummary(ctx context.Context) (*MarketSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
