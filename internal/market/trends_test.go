package market

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedMarketplace(t *testing.T, st store.Store) {
	t.Helper()
	ctx := context.Background()

	crop, err := st.CreateCrop(ctx, &model.Crop{Name: "Wheat", Category: "cereal"})
	require.NoError(t, err)

	_, err = st.AddMarketPrice(ctx, &model.MarketPrice{
		CropID:          crop.ID,
		Location:        "Nashik",
		PricePerQuintal: 2200,
		Date:            time.Now().UTC(),
	})
	require.NoError(t, err)

	listing, err := st.CreateListing(ctx, &model.CropListing{
		FarmerID:          7,
		CropID:            crop.ID,
		QuantityAvailable: 100,
		ExpectedPrice:     2100,
		HarvestDate:       time.Now().AddDate(0, 2, 0),
		Status:            model.ListingStatusActive,
	})
	require.NoError(t, err)

	contract, err := st.CreateContract(ctx, &model.Contract{
		ListingID:        listing.ID,
		FarmerID:         7,
		BuyerID:          20,
		AgreedQuantity:   50,
		AgreedPrice:      2150,
		ExpectedDelivery: time.Now().AddDate(0, 3, 0),
	})
	require.NoError(t, err)

	_, err = st.AddProgress(ctx, &model.ContractProgress{
		ContractID: contract.ID,
		Percentage: 30,
		UpdatedBy:  7,
	})
	require.NoError(t, err)
}

func TestAnalyzer_Trends(t *testing.T) {
	st := newTestStore(t)
	seedMarketplace(t, st)

	a := NewAnalyzer(st, 10, 7)
	trends, err := a.Trends(context.Background())
	require.NoError(t, err)

	require.Len(t, trends.TrendingCrops, 1)
	assert.Equal(t, "Wheat", trends.TrendingCrops[0].Crop.Name)
	assert.Equal(t, 1, trends.TrendingCrops[0].ListingCount)
	assert.InDelta(t, 2200.0, trends.TrendingCrops[0].AvgPrice, 0.001)

	require.Len(t, trends.RecentPrices, 1)
	assert.Equal(t, 1, trends.Summary.ActiveListings)
	assert.False(t, trends.GeneratedAt.IsZero())
}

func TestAnalyzer_Trends_Empty(t *testing.T) {
	st := newTestStore(t)

	a := NewAnalyzer(st, 0, 0) // defaults kick in
	trends, err := a.Trends(context.Background())
	require.NoError(t, err)

	assert.Empty(t, trends.RecentPrices)
	assert.Zero(t, trends.Summary.ActiveListings)
}

func TestAnalyzer_FarmerDashboard(t *testing.T) {
	st := newTestStore(t)
	seedMarketplace(t, st)

	a := NewAnalyzer(st, 10, 7)
	dash, err := a.FarmerDashboard(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 1, dash.Stats.TotalListings)
	require.Len(t, dash.RecentListings, 1)
	require.Len(t, dash.ActiveContracts, 1)
	assert.Equal(t, model.ContractStatusInProgress, dash.ActiveContracts[0].Status)
	assert.Equal(t, 1, dash.History.TotalCount)
	assert.Zero(t, dash.History.CompletedCount)
}

func TestAnalyzer_BuyerDashboard(t *testing.T) {
	st := newTestStore(t)
	seedMarketplace(t, st)

	a := NewAnalyzer(st, 10, 7)
	dash, err := a.BuyerDashboard(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, 1, dash.Stats.TotalContracts)
	require.Len(t, dash.ActiveContracts, 1)
	assert.Equal(t, 1, dash.History.TotalCount)
}
