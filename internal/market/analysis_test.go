package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

func TestAnalyzer_CropAnalysis(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	crop, err := st.CreateCrop(ctx, &model.Crop{Name: "Onion", Category: "vegetable"})
	require.NoError(t, err)

	now := time.Now().UTC()
	for day, price := range []float64{2000, 2100, 2400, 2500} {
		_, err := st.AddMarketPrice(ctx, &model.MarketPrice{
			CropID:          crop.ID,
			Location:        "Nashik",
			PricePerQuintal: price,
			Date:            now.AddDate(0, 0, -day),
		})
		require.NoError(t, err)
	}

	a := NewAnalyzer(st, 10, 7)
	analysis, err := a.CropAnalysis(ctx, crop.ID)
	require.NoError(t, err)

	assert.Equal(t, "Onion", analysis.Crop.Name)
	assert.InDelta(t, 2000.0, analysis.Stats.Min, 0.001)
	assert.InDelta(t, 2500.0, analysis.Stats.Max, 0.001)
	assert.InDelta(t, 2250.0, analysis.Stats.Average, 0.001)
	assert.Equal(t, 4, analysis.Stats.Samples)

	// Newest-first records: newer half averages 2050, older 2450.
	assert.Equal(t, TrendFalling, analysis.Trend)
	require.Len(t, analysis.Recent, 4)
}

func TestAnalyzer_CropAnalysis_UnknownCrop(t *testing.T) {
	st := newTestStore(t)

	_, err := NewAnalyzer(st, 10, 7).CropAnalysis(context.Background(), 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPriceTrend(t *testing.T) {
	mk := func(vals ...float64) []model.MarketPrice {
		prices := make([]model.MarketPrice, len(vals))
		for i, v := range vals {
			prices[i] = model.MarketPrice{PricePerQuintal: v}
		}
		return prices
	}

	tests := []struct {
		name   string
		prices []model.MarketPrice
		want   string
	}{
		{"empty", nil, TrendStable},
		{"single", mk(2000), TrendStable},
		{"rising", mk(2200, 2100, 2000, 1900), TrendRising},
		{"falling", mk(1900, 2000, 2100, 2200), TrendFalling},
		{"flat", mk(2000, 2001, 2000, 1999), TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, priceTrend(tt.prices))
		})
	}
}

func TestPriceStats_Empty(t *testing.T) {
	assert.Equal(t, PriceStats{}, priceStats(nil))
}
