package market

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// Trend directions for a crop's recent price movement.
const (
	TrendRising  = "rising"
	TrendFalling = "falling"
	TrendStable  = "stable"
)

// PriceStats summarizes a crop's recent price records.
type PriceStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Samples int     `json:"samples"`
}

// CropAnalysis is the per-crop market analysis: the crop, its recent
// price statistics, and the movement direction.
type CropAnalysis struct {
	Crop        model.Crop          `json:"crop"`
	Stats       PriceStats          `json:"price_stats"`
	Trend       string              `json:"trend"`
	Recent      []model.MarketPrice `json:"recent_prices"`
	GeneratedAt time.Time           `json:"generated_at"`
}

const analysisWindowDays = 30

// CropAnalysis builds the market analysis for one crop from its price
// records over the trailing 30 days.
func (a *Analyzer) CropAnalysis(ctx context.Context, cropID int64) (*CropAnalysis, error) {
	var (
		crop   *model.Crop
		recent []model.MarketPrice
	)

	since := time.Now().UTC().AddDate(0, 0, -analysisWindowDays)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		crop, err = a.store.GetCrop(gctx, cropID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = a.store.RecentPrices(gctx, cropID, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "market: crop analysis %d", cropID)
	}

	return &CropAnalysis{
		Crop:        *crop,
		Stats:       priceStats(recent),
		Trend:       priceTrend(recent),
		Recent:      recent,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func priceStats(prices []model.MarketPrice) PriceStats {
	if len(prices) == 0 {
		return PriceStats{}
	}

	stats := PriceStats{
		Min:     prices[0].PricePerQuintal,
		Max:     prices[0].PricePerQuintal,
		Samples: len(prices),
	}
	var sum float64
	for _, p := range prices {
		v := p.PricePerQuintal
		sum += v
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
	}
	stats.Average = sum / float64(len(prices))
	return stats
}

// priceTrend compares the newer half of the records (they arrive newest
// first) against the older half. Movement within ±2% reads as stable.
func priceTrend(prices []model.MarketPrice) string {
	if len(prices) < 2 {
		return TrendStable
	}

	mid := len(prices) / 2
	newer := meanPrice(prices[:mid])
	older := meanPrice(prices[mid:])
	if older == 0 {
		return TrendStable
	}

	switch change := (newer - older) / older; {
	case change > 0.02:
		return TrendRising
	case change < -0.02:
		return TrendFalling
	default:
		return TrendStable
	}
}

func meanPrice(prices []model.MarketPrice) float64 {
	if len(prices) == 0 {
		return 0
	}
	var sum float64
	for _, p := range prices {
		sum += p.PricePerQuintal
	}
	return sum / float64(len(prices))
}
