// Package estimator implements the marketplace's scoring and estimation
// engine: price estimation from market history, quality assessment,
// yield estimation, and contract risk assessment.
//
// All four estimators are pure functions of their inputs. Learned-model
// inference is not wired in this configuration; each estimator runs a
// deterministic fallback computation and tags its result with a method
// string so callers can tell a real computation from a degraded one.
package estimator

import (
	"context"
	"math"
)

// Method tags identify which computation path produced a result.
const (
	MethodHistoricalAverage    = "historical_average"
	MethodBasePriceEstimation  = "base_price_estimation"
	MethodDefaultFallback      = "default_fallback"
	MethodDefaultAssessment    = "default_assessment"
	MethodSimplifiedCalc       = "simplified_calculation"
	MethodErrorFallback        = "error_fallback"
	MethodSimplifiedAssessment = "simplified_assessment"
	MethodUnavailable          = "unavailable"
)

// PriceRequest asks for a price estimate for a crop.
type PriceRequest struct {
	CropID   int64   `json:"crop_id"`
	Location string  `json:"location"`
	Quantity float64 `json:"quantity"`
	Season   string  `json:"season"`
}

// QualityRequest asks for a quality assessment. The image reference is
// accepted for wire compatibility but ignored while image analysis is
// disabled.
type QualityRequest struct {
	ImageReference string `json:"image_reference"`
}

// YieldRequest asks for a yield estimate.
type YieldRequest struct {
	CropID      int64    `json:"crop_id"`
	LandSize    float64  `json:"land_size"` // acres
	FarmingType string   `json:"farming_type"`
	Location    string   `json:"location"`
	Images      []string `json:"images,omitempty"` // ignored in this mode
}

// RiskRequest asks for a risk assessment of an existing contract.
type RiskRequest struct {
	ContractID string `json:"contract_id"`
}

// Engine is the capability interface the web layer consumes. Every
// operation returns a structurally valid result; failures degrade to
// the per-estimator fallback and are never surfaced as errors.
type Engine interface {
	EstimatePrice(ctx context.Context, req PriceRequest) PriceEstimate
	AssessQuality(ctx context.Context, req QualityRequest) QualityAssessment
	EstimateYield(ctx context.Context, req YieldRequest) YieldEstimate
	AssessContractRisk(ctx context.Context, req RiskRequest) RiskAssessment
}

// Unavailable is the fixed-response Engine used when the estimation
// engine is disabled. It preserves the wire shape of every result with
// safe defaults and the "unavailable" method tag.
type Unavailable struct{}

func (Unavailable) EstimatePrice(context.Context, PriceRequest) PriceEstimate {
	return PriceEstimate{
		PredictedPrice: defaultBasePrice,
		Confidence:     0.1,
		PriceRange:     PriceRange{Min: 80, Max: 120},
		Method:         MethodUnavailable,
	}
}

func (Unavailable) AssessQuality(context.Context, QualityRequest) QualityAssessment {
	return QualityAssessment{
		QualityScore:  0.5,
		RipenessScore: 0.5,
		QualityGrade:  GradeFor(0.5),
		HealthIndicators: HealthIndicators{
			ColorUniformity: 0.5,
			SizeConsistency: 0.5,
			DefectLevel:     0.5,
		},
		Recommendations: []string{},
		Method:          MethodUnavailable,
	}
}

func (Unavailable) EstimateYield(context.Context, YieldRequest) YieldEstimate {
	return YieldEstimate{
		PredictedYield: 10,
		Confidence:     0.1,
		Factors:        YieldFactors{FarmingTypeFactor: 1, LocationFactor: 1, WeatherFactor: 1, ImageFactor: 1},
		Method:         MethodUnavailable,
	}
}

func (Unavailable) AssessContractRisk(context.Context, RiskRequest) RiskAssessment {
	return RiskAssessment{
		OverallRiskScore: 0.5,
		RiskLevel:        RiskMedium,
		RiskFactors: RiskFactors{
			FarmerReliability: 0.5,
			BuyerReliability:  0.5,
			CropVolatility:    0.5,
			Weather:           0.5,
			Market:            0.5,
			Quantity:          0.5,
		},
		Recommendations: []string{},
		Method:          MethodUnavailable,
	}
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// round3 rounds to 3 decimal places.
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }

// clamp01 clamps v to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
