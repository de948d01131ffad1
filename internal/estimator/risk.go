package estimator

import (
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// RiskLevel categorizes an overall risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskInput is the snapshot a risk assessment reads: the two parties'
// contract histories, the crop's volatility score, and the quantity
// commitment against what the listing has available.
type RiskInput struct {
	FarmerHistory     model.PartyHistory
	BuyerHistory      model.PartyHistory
	CropVolatility    *float64
	AgreedQuantity    float64
	AvailableQuantity float64
}

// RiskFactors are the six independent sub-scores, each in [0, 1].
type RiskFactors struct {
	FarmerReliability float64 `json:"farmer_reliability"`
	BuyerReliability  float64 `json:"buyer_reliability"`
	CropVolatility    float64 `json:"crop_volatility"`
	Weather           float64 `json:"weather_risk"`
	Market            float64 `json:"market_risk"`
	Quantity          float64 `json:"quantity_risk"`
}

// RiskAssessment is the result of a contract risk assessment.
type RiskAssessment struct {
	OverallRiskScore float64     `json:"overall_risk_score"` // 0-1
	RiskLevel        RiskLevel   `json:"risk_level"`
	RiskFactors      RiskFactors `json:"risk_factors"`
	Recommendations  []string    `json:"recommendations"`
	Method           string      `json:"method"`
}

// AssessContractRisk computes the weighted composite risk of a proposed
// or existing contract. Each factor is clamped to [0, 1]; the weighted
// sum uses cfg's weights, which must sum to 1.0 (see Config.Validate).
func AssessContractRisk(in RiskInput, cfg Config) RiskAssessment {
	factors := RiskFactors{
		FarmerReliability: reliabilityRisk(in.FarmerHistory),
		BuyerReliability:  reliabilityRisk(in.BuyerHistory),
		CropVolatility:    volatilityRisk(in.CropVolatility),
		Weather:           clamp01(cfg.WeatherRisk),
		Market:            clamp01(cfg.MarketRisk),
		Quantity:          quantityRisk(in.AgreedQuantity, in.AvailableQuantity),
	}

	overall := factors.FarmerReliability*cfg.FarmerReliabilityWeight +
		factors.BuyerReliability*cfg.BuyerReliabilityWeight +
		factors.CropVolatility*cfg.CropVolatilityWeight +
		factors.Weather*cfg.WeatherWeight +
		factors.Market*cfg.MarketWeight +
		factors.Quantity*cfg.QuantityWeight
	overall = round3(clamp01(overall))

	return RiskAssessment{
		OverallRiskScore: overall,
		RiskLevel:        CategorizeRisk(overall),
		RiskFactors:      factors,
		Recommendations:  riskRecommendations(overall, factors),
		Method:           MethodSimplifiedAssessment,
	}
}

// reliabilityRisk converts a party's completion history into a risk
// factor. No history is neutral; otherwise a high completion rate earns
// a low risk, with a 0.2 benefit-of-the-doubt floor on reliability.
func reliabilityRisk(h model.PartyHistory) float64 {
	if h.TotalCount == 0 {
		return 0.5
	}
	reliability := h.CompletionRate()*0.8 + 0.2
	return clamp01(1 - reliability)
}

// volatilityRisk uses the crop's volatility score, neutral when absent.
func volatilityRisk(score *float64) float64 {
	if score == nil {
		return 0.5
	}
	return clamp01(*score)
}

// quantityRisk scores the commitment against available supply. An empty
// listing cannot be fulfilled at all; over-commitment risk grows with
// the excess, capped at 1.0; anything within capacity is flat low risk.
func quantityRisk(agreed, available float64) float64 {
	if available == 0 {
		return 1.0
	}
	ratio := agreed / available
	if ratio > 1 {
		if excess := ratio - 1; excess < 1.0 {
			return excess
		}
		return 1.0
	}
	return 0.1
}

// CategorizeRisk maps an overall risk score to a level. Boundaries
// belong to the higher category: exactly 0.3 is medium, 0.6 is high.
func CategorizeRisk(score float64) RiskLevel {
	switch {
	case score < 0.3:
		return RiskLow
	case score < 0.6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// riskRecommendations assembles advice in a fixed order; every matching
// condition appends. The fallback line applies only when nothing else
// matched.
func riskRecommendations(overall float64, f RiskFactors) []string {
	var recs []string
	if overall > 0.7 {
		recs = append(recs, "High risk contract - consider additional safeguards")
	}
	if f.FarmerReliability > 0.6 {
		recs = append(recs, "Farmer has limited track record - consider milestone payments")
	}
	if f.Quantity > 0.5 {
		recs = append(recs, "High quantity commitment - ensure adequate supply")
	}
	if len(recs) == 0 {
		recs = append(recs, "Moderate risk contract - proceed with standard terms")
	}
	return recs
}

// FallbackRiskAssessment is the constant result returned when the
// assessment cannot be computed at all.
func FallbackRiskAssessment() RiskAssessment {
	return RiskAssessment{
		OverallRiskScore: 0.5,
		RiskLevel:        RiskMedium,
		Recommendations:  []string{},
		Method:           MethodErrorFallback,
	}
}
