package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fasaldhan/fasaldhan-cli/internal/estimator"
	"github.com/fasaldhan/fasaldhan-cli/internal/market"
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

func newTestAPI(t *testing.T) (*apiServer, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	api := &apiServer{
		store:    st,
		engine:   estimator.NewService(st, estimator.DefaultConfig()),
		analyzer: market.NewAnalyzer(st, 10, 7),
	}
	return api, st
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func apiCreateCrop(t *testing.T, h http.Handler) model.Crop {
	t.Helper()
	price := 200.0
	rec := doJSON(t, h, http.MethodPost, "/api/crops", model.Crop{
		Name:               "Wheat",
		Category:           "cereal",
		CurrentMarketPrice: &price,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var crop model.Crop
	decodeInto(t, rec, &crop)
	return crop
}

func apiCreateListing(t *testing.T, h http.Handler, cropID int64) model.CropListing {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/listings", model.CropListing{
		FarmerID:          7,
		CropID:            cropID,
		QuantityAvailable: 100,
		ExpectedPrice:     2100,
		HarvestDate:       time.Now().AddDate(0, 2, 0),
		Status:            model.ListingStatusActive,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var listing model.CropListing
	decodeInto(t, rec, &listing)
	return listing
}

func apiCreateContract(t *testing.T, h http.Handler, listingID string) model.Contract {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/contracts", model.Contract{
		ListingID:        listingID,
		BuyerID:          20,
		AgreedQuantity:   50,
		AgreedPrice:      2150,
		ExpectedDelivery: time.Now().AddDate(0, 3, 0),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var contract model.Contract
	decodeInto(t, rec, &contract)
	return contract
}

func TestAPI_Health(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.router(100), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAPI_CropLifecycle(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)

	crop := apiCreateCrop(t, h)
	require.NotZero(t, crop.ID)

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/crops/%d", crop.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/crops?category=cereal", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Crops []model.Crop `json:"crops"`
		Count int          `json:"count"`
	}
	decodeInto(t, rec, &list)
	assert.Equal(t, 1, list.Count)

	rec = doJSON(t, h, http.MethodGet, "/api/crops/9999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/crops", model.Crop{Name: "Rice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_PredictPrice(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/ml/predict-price", estimator.PriceRequest{CropID: crop.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var est estimator.PriceEstimate
	decodeInto(t, rec, &est)
	// No recent market prices: falls back to the crop's base price.
	assert.Equal(t, estimator.MethodBasePriceEstimation, est.Method)
	assert.InDelta(t, 200.0, est.PredictedPrice, 0.001)

	rec = doJSON(t, h, http.MethodPost, "/api/ml/predict-price", estimator.PriceRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_PredictPrice_HistoricalAverage(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)

	for _, p := range []float64{2100, 2300} {
		rec := doJSON(t, h, http.MethodPost, "/api/market-prices", model.MarketPrice{
			CropID:          crop.ID,
			Location:        "Nashik",
			PricePerQuintal: p,
			Date:            time.Now().UTC(),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/ml/predict-price", estimator.PriceRequest{CropID: crop.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var est estimator.PriceEstimate
	decodeInto(t, rec, &est)
	assert.Equal(t, estimator.MethodHistoricalAverage, est.Method)
	assert.InDelta(t, 2200.0, est.PredictedPrice, 0.001)
}

func TestAPI_MarketAnalysis(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)

	for day, p := range []float64{2000, 2200} {
		rec := doJSON(t, h, http.MethodPost, "/api/market-prices", model.MarketPrice{
			CropID:          crop.ID,
			Location:        "Nashik",
			PricePerQuintal: p,
			Date:            time.Now().UTC().AddDate(0, 0, -day),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, fmt.Sprintf("/api/crops/%d/market-analysis", crop.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Analysis      market.CropAnalysis     `json:"analysis"`
		PriceEstimate estimator.PriceEstimate `json:"price_estimate"`
	}
	decodeInto(t, rec, &resp)
	assert.Equal(t, 2, resp.Analysis.Stats.Samples)
	assert.Equal(t, market.TrendFalling, resp.Analysis.Trend)
	assert.Equal(t, estimator.MethodHistoricalAverage, resp.PriceEstimate.Method)

	rec = doJSON(t, h, http.MethodGet, "/api/crops/9999/market-analysis", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AssessQualityAndYield(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/ml/assess-quality", estimator.QualityRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	var quality estimator.QualityAssessment
	decodeInto(t, rec, &quality)
	assert.InDelta(t, 0.75, quality.QualityScore, 0.001)
	assert.Equal(t, model.GradeBPlus, quality.QualityGrade)

	rec = doJSON(t, h, http.MethodPost, "/api/ml/predict-yield", estimator.YieldRequest{
		CropID:      crop.ID,
		LandSize:    5,
		FarmingType: "hydroponic",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var yield estimator.YieldEstimate
	decodeInto(t, rec, &yield)
	// Default base yield 10 * 5 acres * 1.5 hydroponic.
	assert.InDelta(t, 75.0, yield.PredictedYield, 0.001)
}

func TestAPI_ListingFlow(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)
	listing := apiCreateListing(t, h, crop.ID)

	rec := doJSON(t, h, http.MethodPatch, "/api/listings/"+listing.ID+"/status",
		map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/api/listings/"+listing.ID+"/status",
		map[string]string{"status": "in_negotiation"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/listings/"+listing.ID+"/insights", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/listings/"+listing.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.CropListing
	decodeInto(t, rec, &got)
	require.NotNil(t, got.AIQualityScore)
	assert.InDelta(t, 0.75, *got.AIQualityScore, 0.001)
	require.NotNil(t, got.AIPriceRecommendation)
	assert.InDelta(t, 200.0, *got.AIPriceRecommendation, 0.001)
}

func TestAPI_CreateListing_UnknownCrop(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)

	rec := doJSON(t, h, http.MethodPost, "/api/listings", model.CropListing{
		FarmerID:          7,
		CropID:            999,
		QuantityAvailable: 10,
		ExpectedPrice:     100,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ContractFlow(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)
	listing := apiCreateListing(t, h, crop.ID)
	contract := apiCreateContract(t, h, listing.ID)

	// Farmer comes from the listing, not the request.
	assert.Equal(t, int64(7), contract.FarmerID)
	assert.InDelta(t, 50*2150.0, contract.TotalValue, 0.001)

	rec := doJSON(t, h, http.MethodPost, "/api/contracts/"+contract.ID+"/progress",
		map[string]any{"progress_percentage": 40.0, "updated_by": 7})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/contracts/"+contract.ID+"/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var progress struct {
		Count int `json:"count"`
	}
	decodeInto(t, rec, &progress)
	assert.Equal(t, 1, progress.Count)

	rec = doJSON(t, h, http.MethodGet, "/api/contracts/"+contract.ID+"/risk-analysis", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var risk estimator.RiskAssessment
	decodeInto(t, rec, &risk)
	assert.Equal(t, estimator.MethodSimplifiedAssessment, risk.Method)

	// The score is persisted on the contract.
	rec = doJSON(t, h, http.MethodGet, "/api/contracts/"+contract.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got model.Contract
	decodeInto(t, rec, &got)
	require.NotNil(t, got.AIRiskScore)
	assert.InDelta(t, risk.OverallRiskScore, *got.AIRiskScore, 0.001)

	rec = doJSON(t, h, http.MethodPost, "/api/contracts/"+contract.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &got)
	assert.Equal(t, model.ContractStatusCompleted, got.Status)
	assert.InDelta(t, 100.0, got.CompletionPct, 0.001)
}

func TestAPI_RiskAnalysis_UnknownContract(t *testing.T) {
	api, _ := newTestAPI(t)
	rec := doJSON(t, api.router(100), http.MethodGet, "/api/contracts/nope/risk-analysis", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Progress_OutOfRange(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)
	listing := apiCreateListing(t, h, crop.ID)
	contract := apiCreateContract(t, h, listing.ID)

	rec := doJSON(t, h, http.MethodPost, "/api/contracts/"+contract.ID+"/progress",
		map[string]any{"progress_percentage": 140.0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Reviews(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)
	listing := apiCreateListing(t, h, crop.ID)
	contract := apiCreateContract(t, h, listing.ID)

	rec := doJSON(t, h, http.MethodPost, "/api/reviews", model.Review{
		ContractID:    contract.ID,
		ReviewerID:    20,
		RevieweeID:    7,
		OverallRating: 6,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/reviews", model.Review{
		ContractID:     contract.ID,
		ReviewerID:     20,
		RevieweeID:     7,
		OverallRating:  5,
		WouldRecommend: true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/reviews?reviewee_id=7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	decodeInto(t, rec, &list)
	assert.Equal(t, 1, list.Count)
}

func TestAPI_MarketTrendsAndDashboards(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(100)
	crop := apiCreateCrop(t, h)
	listing := apiCreateListing(t, h, crop.ID)
	apiCreateContract(t, h, listing.ID)

	rec := doJSON(t, h, http.MethodGet, "/api/market-trends", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var trends market.Trends
	decodeInto(t, rec, &trends)
	assert.Equal(t, 1, trends.Summary.ActiveListings)

	rec = doJSON(t, h, http.MethodGet, "/api/dashboard/farmer/7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/dashboard/buyer/20", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/api/dashboard/farmer/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_EngineUnavailable(t *testing.T) {
	api, _ := newTestAPI(t)
	api.engine = estimator.Unavailable{}
	h := api.router(100)
	crop := apiCreateCrop(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/ml/predict-price", estimator.PriceRequest{CropID: crop.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	var est estimator.PriceEstimate
	decodeInto(t, rec, &est)
	assert.Equal(t, estimator.MethodUnavailable, est.Method)
}

func TestAPI_RateLimit(t *testing.T) {
	api, _ := newTestAPI(t)
	h := api.router(1)

	limited := false
	for i := 0; i < 10; i++ {
		if doJSON(t, h, http.MethodGet, "/health", nil).Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)
}
