package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fasaldhan/fasaldhan-cli/internal/estimator"
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeError maps a store failure onto the right status code.
func storeError(w http.ResponseWriter, err error) {
	if strings.Contains(err.Error(), "not found") {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	zap.L().Error("api: store error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func urlInt64(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	return id, err == nil && id > 0
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Estimation engine

func (a *apiServer) handlePredictPrice(w http.ResponseWriter, r *http.Request) {
	var req estimator.PriceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CropID <= 0 {
		writeError(w, http.StatusBadRequest, "crop_id is required")
		return
	}
	writeJSON(w, http.StatusOK, a.engine.EstimatePrice(r.Context(), req))
}

func (a *apiServer) handleAssessQuality(w http.ResponseWriter, r *http.Request) {
	var req estimator.QualityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, a.engine.AssessQuality(r.Context(), req))
}

func (a *apiServer) handlePredictYield(w http.ResponseWriter, r *http.Request) {
	var req estimator.YieldRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CropID <= 0 {
		writeError(w, http.StatusBadRequest, "crop_id is required")
		return
	}
	writeJSON(w, http.StatusOK, a.engine.EstimateYield(r.Context(), req))
}

func (a *apiServer) handleRiskAnalysis(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")
	if _, err := a.store.GetContract(r.Context(), contractID); err != nil {
		storeError(w, err)
		return
	}

	assessment := a.engine.AssessContractRisk(r.Context(), estimator.RiskRequest{ContractID: contractID})

	// Persist the score on the contract; the response stands either way.
	if err := a.store.SetContractRisk(r.Context(), contractID, assessment.OverallRiskScore); err != nil {
		zap.L().Warn("api: persist risk score failed",
			zap.String("contract_id", contractID),
			zap.Error(err),
		)
	}

	writeJSON(w, http.StatusOK, assessment)
}

// Crops and prices

func (a *apiServer) handleCreateCrop(w http.ResponseWriter, r *http.Request) {
	var crop model.Crop
	if !decodeBody(w, r, &crop) {
		return
	}
	if crop.Name == "" || crop.Category == "" {
		writeError(w, http.StatusBadRequest, "name and category are required")
		return
	}

	created, err := a.store.CreateCrop(r.Context(), &crop)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *apiServer) handleGetCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt64(r, "cropID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid crop id")
		return
	}
	crop, err := a.store.GetCrop(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, crop)
}

func (a *apiServer) handleListCrops(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	crops, err := a.store.ListCrops(r.Context(), store.CropFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Limit:    limit,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"crops": crops, "count": len(crops)})
}

func (a *apiServer) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt64(r, "cropID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid crop id")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	history, err := a.store.PriceHistory(r.Context(), id, limit)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prices": history, "count": len(history)})
}

func (a *apiServer) handleAddMarketPrice(w http.ResponseWriter, r *http.Request) {
	var price model.MarketPrice
	if !decodeBody(w, r, &price) {
		return
	}
	if price.CropID <= 0 || price.PricePerQuintal <= 0 || price.Location == "" {
		writeError(w, http.StatusBadRequest, "crop_id, location and price_per_quintal are required")
		return
	}
	if price.Date.IsZero() {
		price.Date = time.Now().UTC()
	}

	created, err := a.store.AddMarketPrice(r.Context(), &price)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleMarketAnalysis combines the crop's recent price statistics
// with a fresh price estimate.
func (a *apiServer) handleMarketAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt64(r, "cropID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid crop id")
		return
	}

	analysis, err := a.analyzer.CropAnalysis(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	estimate := a.engine.EstimatePrice(r.Context(), estimator.PriceRequest{CropID: id})

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":       analysis,
		"price_estimate": estimate,
	})
}

// Listings

func (a *apiServer) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var listing model.CropListing
	if !decodeBody(w, r, &listing) {
		return
	}
	if listing.FarmerID <= 0 || listing.CropID <= 0 {
		writeError(w, http.StatusBadRequest, "farmer_id and crop_id are required")
		return
	}
	if listing.QuantityAvailable <= 0 || listing.ExpectedPrice <= 0 {
		writeError(w, http.StatusBadRequest, "quantity_available and expected_price_per_quintal must be positive")
		return
	}
	if _, err := a.store.GetCrop(r.Context(), listing.CropID); err != nil {
		writeError(w, http.StatusBadRequest, "unknown crop")
		return
	}

	created, err := a.store.CreateListing(r.Context(), &listing)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *apiServer) handleGetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := a.store.GetListing(r.Context(), chi.URLParam(r, "listingID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (a *apiServer) handleListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	farmerID, _ := strconv.ParseInt(q.Get("farmer_id"), 10, 64)
	cropID, _ := strconv.ParseInt(q.Get("crop_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	listings, err := a.store.ListListings(r.Context(), store.ListingFilter{
		FarmerID: farmerID,
		CropID:   cropID,
		Status:   model.ListingStatus(q.Get("status")),
		Location: q.Get("location"),
		Limit:    limit,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"listings": listings, "count": len(listings)})
}

func (a *apiServer) handleUpdateListingStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status model.ListingStatus `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !model.ValidListingStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "invalid listing status")
		return
	}

	id := chi.URLParam(r, "listingID")
	if err := a.store.UpdateListingStatus(r.Context(), id, req.Status); err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(req.Status)})
}

// handleListingInsights runs quality and price estimation for a listing
// and stores the results on it.
func (a *apiServer) handleListingInsights(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "listingID")
	listing, err := a.store.GetListing(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}

	quality := a.engine.AssessQuality(r.Context(), estimator.QualityRequest{})
	price := a.engine.EstimatePrice(r.Context(), estimator.PriceRequest{
		CropID:   listing.CropID,
		Location: listing.FarmLocation,
		Quantity: listing.QuantityAvailable,
	})

	if err := a.store.SetListingInsights(r.Context(), id, quality.QualityScore, price.PredictedPrice); err != nil {
		storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"listing_id":           id,
		"quality_assessment":   quality,
		"price_recommendation": price,
	})
}

// Contracts

func (a *apiServer) handleCreateContract(w http.ResponseWriter, r *http.Request) {
	var contract model.Contract
	if !decodeBody(w, r, &contract) {
		return
	}
	if contract.BuyerID <= 0 {
		writeError(w, http.StatusBadRequest, "buyer_id is required")
		return
	}
	if contract.AgreedQuantity <= 0 || contract.AgreedPrice <= 0 {
		writeError(w, http.StatusBadRequest, "agreed_quantity and agreed_price_per_quintal must be positive")
		return
	}

	listing, err := a.store.GetListing(r.Context(), contract.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown listing")
		return
	}
	contract.FarmerID = listing.FarmerID

	created, err := a.store.CreateContract(r.Context(), &contract)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *apiServer) handleGetContract(w http.ResponseWriter, r *http.Request) {
	contract, err := a.store.GetContract(r.Context(), chi.URLParam(r, "contractID"))
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

func (a *apiServer) handleListContracts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	farmerID, _ := strconv.ParseInt(q.Get("farmer_id"), 10, 64)
	buyerID, _ := strconv.ParseInt(q.Get("buyer_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	contracts, err := a.store.ListContracts(r.Context(), store.ContractFilter{
		FarmerID: farmerID,
		BuyerID:  buyerID,
		Status:   model.ContractStatus(q.Get("status")),
		Limit:    limit,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"contracts": contracts, "count": len(contracts)})
}

func (a *apiServer) handleAddProgress(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Percentage float64 `json:"progress_percentage"`
		Notes      string  `json:"notes"`
		UpdatedBy  int64   `json:"updated_by"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Percentage < 0 || req.Percentage > 100 {
		writeError(w, http.StatusBadRequest, "progress_percentage must be in [0, 100]")
		return
	}

	contractID := chi.URLParam(r, "contractID")
	if _, err := a.store.GetContract(r.Context(), contractID); err != nil {
		storeError(w, err)
		return
	}

	progress, err := a.store.AddProgress(r.Context(), &model.ContractProgress{
		ContractID: contractID,
		Percentage: req.Percentage,
		Notes:      req.Notes,
		UpdatedBy:  req.UpdatedBy,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, progress)
}

func (a *apiServer) handleListProgress(w http.ResponseWriter, r *http.Request) {
	contractID := chi.URLParam(r, "contractID")
	if _, err := a.store.GetContract(r.Context(), contractID); err != nil {
		storeError(w, err)
		return
	}

	updates, err := a.store.ListProgress(r.Context(), contractID)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"progress": updates, "count": len(updates)})
}

func (a *apiServer) handleCompleteContract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeliveredAt *time.Time `json:"actual_delivery_date"`
	}
	if r.ContentLength > 0 && !decodeBody(w, r, &req) {
		return
	}
	deliveredAt := time.Now().UTC()
	if req.DeliveredAt != nil {
		deliveredAt = *req.DeliveredAt
	}

	contractID := chi.URLParam(r, "contractID")
	if err := a.store.CompleteContract(r.Context(), contractID, deliveredAt); err != nil {
		storeError(w, err)
		return
	}

	contract, err := a.store.GetContract(r.Context(), contractID)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contract)
}

// Reviews

func (a *apiServer) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var review model.Review
	if !decodeBody(w, r, &review) {
		return
	}
	if !model.ValidRating(review.OverallRating) {
		writeError(w, http.StatusBadRequest, "overall_rating must be 1-5")
		return
	}
	for _, sub := range []*int{review.QualityRating, review.CommunicationRating, review.TimelinessRating} {
		if sub != nil && !model.ValidRating(*sub) {
			writeError(w, http.StatusBadRequest, "sub-ratings must be 1-5")
			return
		}
	}
	if _, err := a.store.GetContract(r.Context(), review.ContractID); err != nil {
		writeError(w, http.StatusBadRequest, "unknown contract")
		return
	}

	created, err := a.store.CreateReview(r.Context(), &review)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *apiServer) handleListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	revieweeID, _ := strconv.ParseInt(q.Get("reviewee_id"), 10, 64)
	reviewerID, _ := strconv.ParseInt(q.Get("reviewer_id"), 10, 64)
	limit, _ := strconv.Atoi(q.Get("limit"))

	reviews, err := a.store.ListReviews(r.Context(), store.ReviewFilter{
		RevieweeID: revieweeID,
		ReviewerID: reviewerID,
		Limit:      limit,
	})
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews, "count": len(reviews)})
}

// Aggregates

func (a *apiServer) handleMarketTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := a.analyzer.Trends(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (a *apiServer) handleFarmerDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt64(r, "farmerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid farmer id")
		return
	}
	dash, err := a.analyzer.FarmerDashboard(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (a *apiServer) handleBuyerDashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := urlInt64(r, "buyerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid buyer id")
		return
	}
	dash, err := a.analyzer.BuyerDashboard(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
