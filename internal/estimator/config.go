package estimator

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// Config holds the risk-assessment weights and the placeholder risk
// constants. The weights must sum to exactly 1.0. The weather and
// market constants have no calibration basis; they are business
// placeholders kept for behavioral compatibility and expected to be
// replaced when real data sources are wired in.
type Config struct {
	FarmerReliabilityWeight float64 `yaml:"farmer_reliability_weight" mapstructure:"farmer_reliability_weight"`
	BuyerReliabilityWeight  float64 `yaml:"buyer_reliability_weight" mapstructure:"buyer_reliability_weight"`
	CropVolatilityWeight    float64 `yaml:"crop_volatility_weight" mapstructure:"crop_volatility_weight"`
	WeatherWeight           float64 `yaml:"weather_weight" mapstructure:"weather_weight"`
	MarketWeight            float64 `yaml:"market_weight" mapstructure:"market_weight"`
	QuantityWeight          float64 `yaml:"quantity_weight" mapstructure:"quantity_weight"`

	WeatherRisk float64 `yaml:"weather_risk" mapstructure:"weather_risk"`
	MarketRisk  float64 `yaml:"market_risk" mapstructure:"market_risk"`
}

// DefaultConfig returns the standard weight set (sum = 1.0).
func DefaultConfig() Config {
	return Config{
		FarmerReliabilityWeight: 0.25,
		BuyerReliabilityWeight:  0.20,
		CropVolatilityWeight:    0.15,
		WeatherWeight:           0.15,
		MarketWeight:            0.15,
		QuantityWeight:          0.10,

		WeatherRisk: 0.3,
		MarketRisk:  0.4,
	}
}

// WeightSum returns the sum of all factor weights.
func (c Config) WeightSum() float64 {
	return c.FarmerReliabilityWeight + c.BuyerReliabilityWeight +
		c.CropVolatilityWeight + c.WeatherWeight +
		c.MarketWeight + c.QuantityWeight
}

// Validate checks that the config is internally consistent: all weights
// non-negative and summing to 1.0, constants within [0, 1].
func (c Config) Validate() error {
	var errs []string

	weights := map[string]float64{
		"farmer_reliability_weight": c.FarmerReliabilityWeight,
		"buyer_reliability_weight":  c.BuyerReliabilityWeight,
		"crop_volatility_weight":    c.CropVolatilityWeight,
		"weather_weight":            c.WeatherWeight,
		"market_weight":             c.MarketWeight,
		"quantity_weight":           c.QuantityWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	if sum := c.WeightSum(); math.Abs(sum-1.0) > 1e-9 {
		errs = append(errs, fmt.Sprintf("weights must sum to 1.0, got %g", sum))
	}

	if c.WeatherRisk < 0 || c.WeatherRisk > 1 {
		errs = append(errs, "weather_risk must be in [0, 1]")
	}
	if c.MarketRisk < 0 || c.MarketRisk > 1 {
		errs = append(errs, "market_risk must be in [0, 1]")
	}

	if len(errs) > 0 {
		return eris.Errorf("estimator: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
