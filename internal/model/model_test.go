package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListingTotalValue(t *testing.T) {
	l := CropListing{QuantityAvailable: 40, ExpectedPrice: 2150}
	assert.InDelta(t, 86000, l.TotalValue(), 0.001)
}

func TestValidListingStatus(t *testing.T) {
	assert.True(t, ValidListingStatus(ListingStatusActive))
	assert.True(t, ValidListingStatus(ListingStatusInNegotiation))
	assert.False(t, ValidListingStatus(ListingStatus("archived")))
}

func TestValidContractStatus(t *testing.T) {
	assert.True(t, ValidContractStatus(ContractStatusDisputed))
	assert.False(t, ValidContractStatus(ContractStatus("paused")))
}

func TestDaysUntilDelivery(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := Contract{ExpectedDelivery: now.AddDate(0, 0, 14)}
	assert.Equal(t, 14, c.DaysUntilDelivery(now))

	overdue := Contract{ExpectedDelivery: now.AddDate(0, 0, -3)}
	assert.Equal(t, -3, overdue.DaysUntilDelivery(now))
}

func TestCompletionRate(t *testing.T) {
	assert.Equal(t, 0.0, PartyHistory{}.CompletionRate())
	assert.InDelta(t, 0.8, PartyHistory{CompletedCount: 8, TotalCount: 10}.CompletionRate(), 0.001)
}

func TestValidRating(t *testing.T) {
	assert.False(t, ValidRating(0))
	assert.True(t, ValidRating(1))
	assert.True(t, ValidRating(5))
	assert.False(t, ValidRating(6))
}
