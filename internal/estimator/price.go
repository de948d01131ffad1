package estimator

import (
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// defaultBasePrice is the hard-floor price (per quintal) used when no
// market data of any kind is available.
const defaultBasePrice = 100

// PriceRange bounds a price estimate.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PriceEstimate is the result of a price estimation.
type PriceEstimate struct {
	PredictedPrice float64    `json:"predicted_price"`
	Confidence     float64    `json:"confidence"` // 0-1
	PriceRange     PriceRange `json:"price_range"`
	Method         string     `json:"method"`
}

// EstimatePrice estimates a crop's market price per quintal from recent
// price records (the caller filters to the trailing 30 days). With
// records present it uses their arithmetic mean; otherwise it falls back
// to the crop's current market price, then to a fixed default. A nil
// crop degrades to DefaultPriceEstimate. Never fails.
func EstimatePrice(crop *model.Crop, recent []model.MarketPrice) PriceEstimate {
	if crop == nil {
		return DefaultPriceEstimate()
	}

	if len(recent) > 0 {
		var sum float64
		for _, r := range recent {
			sum += r.PricePerQuintal
		}
		mean := sum / float64(len(recent))
		return PriceEstimate{
			PredictedPrice: round2(mean),
			Confidence:     0.6,
			PriceRange: PriceRange{
				Min: round2(mean * 0.85),
				Max: round2(mean * 1.15),
			},
			Method: MethodHistoricalAverage,
		}
	}

	base := float64(defaultBasePrice)
	if crop.CurrentMarketPrice != nil && *crop.CurrentMarketPrice > 0 {
		base = *crop.CurrentMarketPrice
	}
	return PriceEstimate{
		PredictedPrice: round2(base),
		Confidence:     0.3,
		PriceRange: PriceRange{
			Min: round2(base * 0.8),
			Max: round2(base * 1.2),
		},
		Method: MethodBasePriceEstimation,
	}
}

// DefaultPriceEstimate is the constant result returned when reference
// data cannot be loaded at all.
func DefaultPriceEstimate() PriceEstimate {
	return PriceEstimate{
		PredictedPrice: defaultBasePrice,
		Confidence:     0.1,
		PriceRange:     PriceRange{Min: 80, Max: 120},
		Method:         MethodDefaultFallback,
	}
}
