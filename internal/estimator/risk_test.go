package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

func TestAssessContractRisk_HighRisk(t *testing.T) {
	in := RiskInput{
		FarmerHistory:     model.PartyHistory{CompletedCount: 0, TotalCount: 10},
		BuyerHistory:      model.PartyHistory{CompletedCount: 0, TotalCount: 10},
		CropVolatility:    ptrFloat64(1.0),
		AgreedQuantity:    300,
		AvailableQuantity: 100,
	}

	a := AssessContractRisk(in, DefaultConfig())

	assert.Equal(t, MethodSimplifiedAssessment, a.Method)
	assert.InDelta(t, 0.8, a.RiskFactors.FarmerReliability, 0.001)
	assert.InDelta(t, 0.8, a.RiskFactors.BuyerReliability, 0.001)
	assert.InDelta(t, 1.0, a.RiskFactors.CropVolatility, 0.001)
	assert.InDelta(t, 1.0, a.RiskFactors.Quantity, 0.001)
	assert.InDelta(t, 0.715, a.OverallRiskScore, 0.0001)
	assert.Equal(t, RiskHigh, a.RiskLevel)
	assert.Equal(t, []string{
		"High risk contract - consider additional safeguards",
		"Farmer has limited track record - consider milestone payments",
		"High quantity commitment - ensure adequate supply",
	}, a.Recommendations)
}

func TestAssessContractRisk_LowRisk(t *testing.T) {
	in := RiskInput{
		FarmerHistory:     model.PartyHistory{CompletedCount: 10, TotalCount: 10},
		BuyerHistory:      model.PartyHistory{CompletedCount: 10, TotalCount: 10},
		CropVolatility:    ptrFloat64(0),
		AgreedQuantity:    50,
		AvailableQuantity: 100,
	}

	a := AssessContractRisk(in, DefaultConfig())

	assert.InDelta(t, 0.0, a.RiskFactors.FarmerReliability, 0.001)
	assert.InDelta(t, 0.0, a.RiskFactors.BuyerReliability, 0.001)
	assert.InDelta(t, 0.115, a.OverallRiskScore, 0.0001)
	assert.Equal(t, RiskLow, a.RiskLevel)
	assert.Equal(t, []string{"Moderate risk contract - proceed with standard terms"}, a.Recommendations)
}

func TestAssessContractRisk_NeutralDefaults(t *testing.T) {
	// No party history and no volatility score: every unknown reads 0.5.
	in := RiskInput{
		AgreedQuantity:    50,
		AvailableQuantity: 100,
	}

	a := AssessContractRisk(in, DefaultConfig())

	assert.InDelta(t, 0.5, a.RiskFactors.FarmerReliability, 0.001)
	assert.InDelta(t, 0.5, a.RiskFactors.BuyerReliability, 0.001)
	assert.InDelta(t, 0.5, a.RiskFactors.CropVolatility, 0.001)
	assert.InDelta(t, 0.415, a.OverallRiskScore, 0.0001)
	assert.Equal(t, RiskMedium, a.RiskLevel)
}

func TestReliabilityRisk(t *testing.T) {
	tests := []struct {
		name string
		hist model.PartyHistory
		want float64
	}{
		{"no history", model.PartyHistory{}, 0.5},
		{"perfect record", model.PartyHistory{CompletedCount: 10, TotalCount: 10}, 0.0},
		{"good record", model.PartyHistory{CompletedCount: 8, TotalCount: 10}, 0.16},
		{"poor record", model.PartyHistory{CompletedCount: 0, TotalCount: 10}, 0.8},
		{"half record", model.PartyHistory{CompletedCount: 5, TotalCount: 10}, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, reliabilityRisk(tt.hist), 0.0001)
		})
	}
}

func TestQuantityRisk(t *testing.T) {
	tests := []struct {
		name      string
		agreed    float64
		available float64
		want      float64
	}{
		{"empty listing", 50, 0, 1.0},
		{"within capacity", 50, 100, 0.1},
		{"at capacity", 100, 100, 0.1},
		{"half over", 150, 100, 0.5},
		{"just under cap", 199.9, 100, 0.999},
		{"triple commitment capped", 300, 100, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, quantityRisk(tt.agreed, tt.available), 0.0001)
		})
	}
}

func TestVolatilityRisk(t *testing.T) {
	assert.InDelta(t, 0.5, volatilityRisk(nil), 0.0001)
	assert.InDelta(t, 0.7, volatilityRisk(ptrFloat64(0.7)), 0.0001)
	assert.InDelta(t, 1.0, volatilityRisk(ptrFloat64(2.5)), 0.0001)
	assert.InDelta(t, 0.0, volatilityRisk(ptrFloat64(-1)), 0.0001)
}

func TestCategorizeRisk(t *testing.T) {
	tests := []struct {
		score float64
		want  RiskLevel
	}{
		{0.0, RiskLow},
		{0.29, RiskLow},
		{0.3, RiskMedium}, // boundary belongs to the higher category
		{0.59, RiskMedium},
		{0.6, RiskHigh},
		{1.0, RiskHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeRisk(tt.score), "score %v", tt.score)
	}
}

func TestAssessContractRisk_ScoreBounds(t *testing.T) {
	inputs := []RiskInput{
		{},
		{CropVolatility: ptrFloat64(5), AgreedQuantity: 1000, AvailableQuantity: 1},
		{FarmerHistory: model.PartyHistory{CompletedCount: 3, TotalCount: 7}},
	}
	for _, in := range inputs {
		a := AssessContractRisk(in, DefaultConfig())
		assert.GreaterOrEqual(t, a.OverallRiskScore, 0.0)
		assert.LessOrEqual(t, a.OverallRiskScore, 1.0)
		for _, f := range []float64{
			a.RiskFactors.FarmerReliability, a.RiskFactors.BuyerReliability,
			a.RiskFactors.CropVolatility, a.RiskFactors.Weather,
			a.RiskFactors.Market, a.RiskFactors.Quantity,
		} {
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
		}
		assert.NotEmpty(t, a.Recommendations)
	}
}

func TestFallbackRiskAssessment(t *testing.T) {
	a := FallbackRiskAssessment()

	assert.Equal(t, MethodErrorFallback, a.Method)
	assert.InDelta(t, 0.5, a.OverallRiskScore, 0.001)
	assert.Equal(t, RiskMedium, a.RiskLevel)
	assert.Empty(t, a.Recommendations)
}
