package estimator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
	"github.com/fasaldhan/fasaldhan-cli/internal/store"
)

// priceWindowDays bounds how far back price records feed the
// historical-average path.
const priceWindowDays = 30

// Snapshots is the read-only slice of the store the engine needs.
// Satisfied by store.Store.
type Snapshots interface {
	GetCrop(ctx context.Context, id int64) (*model.Crop, error)
	RecentPrices(ctx context.Context, cropID int64, since time.Time) ([]model.MarketPrice, error)
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	GetListing(ctx context.Context, id string) (*model.CropListing, error)
	PartyHistory(ctx context.Context, partyID int64, role string) (model.PartyHistory, error)
}

// Service is the store-backed Engine: it gathers entity snapshots and
// runs the pure estimators over them. Every failure path degrades to
// the estimator's fixed fallback; no error ever reaches the caller.
type Service struct {
	snap Snapshots
	cfg  Config
	now  func() time.Time
}

// NewService creates a Service with the given snapshot source and risk
// config. Returns nil if snap is nil.
func NewService(snap Snapshots, cfg Config) *Service {
	if snap == nil {
		return nil
	}
	return &Service{snap: snap, cfg: cfg, now: time.Now}
}

var _ Engine = (*Service)(nil)

func (s *Service) EstimatePrice(ctx context.Context, req PriceRequest) PriceEstimate {
	crop, err := s.snap.GetCrop(ctx, req.CropID)
	if err != nil {
		zap.L().Warn("estimator: crop lookup failed, using default price",
			zap.Int64("crop_id", req.CropID),
			zap.Error(err),
		)
		return DefaultPriceEstimate()
	}

	since := s.now().AddDate(0, 0, -priceWindowDays)
	recent, err := s.snap.RecentPrices(ctx, crop.ID, since)
	if err != nil {
		zap.L().Warn("estimator: price history lookup failed, using default price",
			zap.Int64("crop_id", req.CropID),
			zap.Error(err),
		)
		return DefaultPriceEstimate()
	}

	est := EstimatePrice(crop, recent)
	zap.L().Debug("estimator: price estimated",
		zap.Int64("crop_id", crop.ID),
		zap.Float64("predicted_price", est.PredictedPrice),
		zap.Int("records", len(recent)),
		zap.String("method", est.Method),
	)
	return est
}

func (s *Service) AssessQuality(_ context.Context, req QualityRequest) QualityAssessment {
	return AssessQuality(req.ImageReference)
}

func (s *Service) EstimateYield(ctx context.Context, req YieldRequest) YieldEstimate {
	crop, err := s.snap.GetCrop(ctx, req.CropID)
	if err != nil {
		zap.L().Warn("estimator: crop lookup failed, yield falls back to zero",
			zap.Int64("crop_id", req.CropID),
			zap.Error(err),
		)
		return ErrorYieldEstimate()
	}

	est := EstimateYield(crop, req.LandSize, req.FarmingType, req.Location)
	zap.L().Debug("estimator: yield estimated",
		zap.Int64("crop_id", crop.ID),
		zap.Float64("land_size", req.LandSize),
		zap.String("farming_type", req.FarmingType),
		zap.Float64("predicted_yield", est.PredictedYield),
		zap.String("method", est.Method),
	)
	return est
}

func (s *Service) AssessContractRisk(ctx context.Context, req RiskRequest) RiskAssessment {
	in, err := s.riskInput(ctx, req.ContractID)
	if err != nil {
		zap.L().Warn("estimator: risk snapshot load failed, using fallback",
			zap.String("contract_id", req.ContractID),
			zap.Error(err),
		)
		return FallbackRiskAssessment()
	}

	assessment := AssessContractRisk(*in, s.cfg)
	zap.L().Info("estimator: contract risk assessed",
		zap.String("contract_id", req.ContractID),
		zap.Float64("overall_risk", assessment.OverallRiskScore),
		zap.String("risk_level", string(assessment.RiskLevel)),
	)
	return assessment
}

// riskInput loads the contract, its listing and crop, and both parties'
// histories into a RiskInput snapshot.
func (s *Service) riskInput(ctx context.Context, contractID string) (*RiskInput, error) {
	contract, err := s.snap.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	listing, err := s.snap.GetListing(ctx, contract.ListingID)
	if err != nil {
		return nil, err
	}
	crop, err := s.snap.GetCrop(ctx, listing.CropID)
	if err != nil {
		return nil, err
	}
	farmerHist, err := s.snap.PartyHistory(ctx, contract.FarmerID, store.RoleFarmer)
	if err != nil {
		return nil, err
	}
	buyerHist, err := s.snap.PartyHistory(ctx, contract.BuyerID, store.RoleBuyer)
	if err != nil {
		return nil, err
	}

	return &RiskInput{
		FarmerHistory:     farmerHist,
		BuyerHistory:      buyerHist,
		CropVolatility:    crop.PriceVolatilityScore,
		AgreedQuantity:    contract.AgreedQuantity,
		AvailableQuantity: listing.QuantityAvailable,
	}, nil
}
