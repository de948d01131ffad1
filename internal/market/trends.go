// Package market builds aggregate marketplace views: trend reports and
// per-party dashboards.
package market

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

// Analyzer computes market-wide and per-party aggregate views over the
// store. The independent queries behind each view run concurrently.
type Analyzer struct {
	store store.Store

	trendingLimit    int
	recentWindowDays int
}

// NewAnalyzer creates an Analyzer. Limits at or below zero fall back to
// the standard defaults.
func NewAnalyzer(st store.Store, trendingLimit, recentWindowDays int) *Analyzer {
	if trendingLimit <= 0 {
		trendingLimit = 10
	}
	if recentWindowDays <= 0 {
		recentWindowDays = 7
	}
	return &Analyzer{store: st, trendingLimit: trendingLimit, recentWindowDays: recentWindowDays}
}

// Trends is the market-trends report.
type Trends struct {
	TrendingCrops []model.CropTrend   `json:"trending_crops"`
	RecentPrices  []model.MarketPrice `json:"recent_price_updates"`
	Summary       store.MarketSummary `json:"market_summary"`
	GeneratedAt   time.Time           `json:"generated_at"`
}

// Trends assembles the market-trends report from three independent
// store queries.
func (a *Analyzer) Trends(ctx context.Context) (*Trends, error) {
	var (
		trending []model.CropTrend
		recent   []model.MarketPrice
		summary  *store.MarketSummary
	)

	since := time.Now().UTC().AddDate(0, 0, -a.recentWindowDays)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trending, err = a.store.TrendingCrops(gctx, a.trendingLimit)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = a.store.RecentPriceUpdates(gctx, since, 20)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = a.store.MarketSummary(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "market: build trends")
	}

	zap.L().Debug("market: trends built",
		zap.Int("trending_crops", len(trending)),
		zap.Int("recent_prices", len(recent)),
	)

	return &Trends{
		TrendingCrops: trending,
		RecentPrices:  recent,
		Summary:       *summary,
		GeneratedAt:   time.Now().UTC(),
	}, nil
}

// FarmerDashboard is a farmer's activity overview.
type FarmerDashboard struct {
	Stats           store.FarmerStats   `json:"stats"`
	RecentListings  []model.CropListing `json:"recent_listings"`
	ActiveContracts []model.Contract    `json:"active_contracts"`
	History         model.PartyHistory  `json:"contract_history"`
}

// BuyerDashboard is a buyer's activity overview.
type BuyerDashboard struct {
	Stats           store.BuyerStats   `json:"stats"`
	ActiveContracts []model.Contract   `json:"active_contracts"`
	History         model.PartyHistory `json:"contract_history"`
}

// FarmerDashboard assembles a farmer's dashboard.
func (a *Analyzer) FarmerDashboard(ctx context.Context, farmerID int64) (*FarmerDashboard, error) {
	var (
		stats     *store.FarmerStats
		listings  []model.CropListing
		contracts []model.Contract
		history   model.PartyHistory
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = a.store.FarmerStats(gctx, farmerID)
		return err
	})
	g.Go(func() error {
		var err error
		listings, err = a.store.ListListings(gctx, store.ListingFilter{FarmerID: farmerID, Limit: 5})
		return err
	})
	g.Go(func() error {
		var err error
		contracts, err = a.store.ListContracts(gctx, store.ContractFilter{
			FarmerID: farmerID,
			Status:   model.ContractStatusInProgress,
			Limit:    10,
		})
		return err
	})
	g.Go(func() error {
		var err error
		history, err = a.store.PartyHistory(gctx, farmerID, store.RoleFarmer)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "market: farmer dashboard %d", farmerID)
	}

	return &FarmerDashboard{
		Stats:           *stats,
		RecentListings:  listings,
		ActiveContracts: contracts,
		History:         history,
	}, nil
}

// BuyerDashboard assembles a buyer's dashboard.
func (a *Analyzer) BuyerDashboard(ctx context.Context, buyerID int64) (*BuyerDashboard, error) {
	var (
		stats     *store.BuyerStats
		contracts []model.Contract
		history   model.PartyHistory
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = a.store.BuyerStats(gctx, buyerID)
		return err
	})
	g.Go(func() error {
		var err error
		contracts, err = a.store.ListContracts(gctx, store.ContractFilter{
			BuyerID: buyerID,
			Status:  model.ContractStatusInProgress,
			Limit:   10,
		})
		return err
	})
	g.Go(func() error {
		var err error
		history, err = a.store.PartyHistory(gctx, buyerID, store.RoleBuyer)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "market: buyer dashboard %d", buyerID)
	}

	return &BuyerDashboard{
		Stats:           *stats,
		ActiveContracts: contracts,
		History:         history,
	}, nil
}
