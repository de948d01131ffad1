package estimator

import (
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// defaultYieldPerAcre (quintals) is used when a crop carries no
// baseline yield figure.
const defaultYieldPerAcre = 10

// farmingMultipliers adjusts baseline yield by farming method.
// Unrecognized methods fall back to 1.0.
var farmingMultipliers = map[string]float64{
	"organic":     0.8,
	"traditional": 1.0,
	"hydroponic":  1.5,
	"mixed":       1.1,
}

// YieldFactors records the multiplicative factors that entered a yield
// estimate. Location, weather, and image factors are fixed at 1.0 in
// this configuration but stay in the output as hook points for real
// data sources.
type YieldFactors struct {
	FarmingTypeFactor float64 `json:"farming_type_factor"`
	LocationFactor    float64 `json:"location_factor"`
	WeatherFactor     float64 `json:"weather_factor"`
	ImageFactor       float64 `json:"image_factor"`
}

// YieldEstimate is the result of a yield estimation.
type YieldEstimate struct {
	PredictedYield float64      `json:"predicted_yield"` // quintals
	YieldPerAcre   float64      `json:"yield_per_acre"`
	Confidence     float64      `json:"confidence"` // 0-1
	Factors        YieldFactors `json:"factors"`
	Method         string       `json:"method"`
}

// EstimateYield computes expected yield from the crop's baseline yield,
// farmed area in acres, and a categorical farming-method multiplier.
// A missing crop or non-positive land size degrades to
// ErrorYieldEstimate. Never fails.
func EstimateYield(crop *model.Crop, landSize float64, farmingType, _ string) YieldEstimate {
	if crop == nil || landSize <= 0 {
		return ErrorYieldEstimate()
	}

	baseYield := float64(defaultYieldPerAcre)
	if crop.AverageYieldPerAcre != nil && *crop.AverageYieldPerAcre > 0 {
		baseYield = *crop.AverageYieldPerAcre
	}

	multiplier := 1.0
	if m, ok := farmingMultipliers[farmingType]; ok {
		multiplier = m
	}

	factors := YieldFactors{
		FarmingTypeFactor: multiplier,
		LocationFactor:    1.0,
		WeatherFactor:     1.0,
		ImageFactor:       1.0,
	}

	predicted := baseYield * landSize * multiplier *
		factors.LocationFactor * factors.WeatherFactor * factors.ImageFactor

	return YieldEstimate{
		PredictedYield: round2(predicted),
		YieldPerAcre:   round2(predicted / landSize),
		Confidence:     0.5,
		Factors:        factors,
		Method:         MethodSimplifiedCalc,
	}
}

// ErrorYieldEstimate is the zero-yield fallback for degenerate inputs
// or missing reference data.
func ErrorYieldEstimate() YieldEstimate {
	return YieldEstimate{Method: MethodErrorFallback}
}
