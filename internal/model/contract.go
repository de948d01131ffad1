package model

import "time"

// ContractStatus tracks a contract through its lifecycle.
type ContractStatus string

const (
	ContractStatusPending    ContractStatus = "pending"
	ContractStatusActive     ContractStatus = "active"
	ContractStatusInProgress ContractStatus = "in_progress"
	ContractStatusCompleted  ContractStatus = "completed"
	ContractStatusCancelled  ContractStatus = "cancelled"
	ContractStatusDisputed   ContractStatus = "disputed"
)

// ValidContractStatus reports whether s is a known contract status.
func ValidContractStatus(s ContractStatus) bool {
	switch s {
	case ContractStatusPending, ContractStatusActive, ContractStatusInProgress,
		ContractStatusCompleted, ContractStatusCancelled, ContractStatusDisputed:
		return true
	}
	return false
}

// PaymentTerms is the agreed payment schedule.
type PaymentTerms string

const (
	PayAdvanceFull  PaymentTerms = "advance_full"
	PayAdvance50    PaymentTerms = "advance_50"
	PayAdvance30    PaymentTerms = "advance_30"
	PayOnDelivery   PaymentTerms = "on_delivery"
	PayPostDelivery PaymentTerms = "post_delivery"
)

// Contract binds a buyer to a farmer's listing.
type Contract struct {
	ID        string `json:"id"`
	ListingID string `json:"listing_id"`
	BuyerID   int64  `json:"buyer_id"`
	FarmerID  int64  `json:"farmer_id"`

	AgreedQuantity float64 `json:"agreed_quantity"` // quintals
	AgreedPrice    float64 `json:"agreed_price_per_quintal"`
	TotalValue     float64 `json:"total_contract_value"`

	ExpectedDelivery time.Time  `json:"expected_delivery_date"`
	ActualDelivery   *time.Time `json:"actual_delivery_date,omitempty"`

	PaymentTerms     PaymentTerms   `json:"payment_terms"`
	DeliveryLocation string         `json:"delivery_location"`
	Status           ContractStatus `json:"status"`

	CompletionPct float64  `json:"completion_percentage"`
	AIRiskScore   *float64 `json:"ai_risk_score,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DaysUntilDelivery returns whole days between now and the expected
// delivery date. Negative when overdue.
func (c *Contract) DaysUntilDelivery(now time.Time) int {
	return int(c.ExpectedDelivery.Sub(now).Hours() / 24)
}

// ContractProgress is one progress update on a contract.
type ContractProgress struct {
	ID         int64     `json:"id"`
	ContractID string    `json:"contract_id"`
	Percentage float64   `json:"progress_percentage"` // 0-100
	Notes      string    `json:"notes,omitempty"`
	UpdatedBy  int64     `json:"updated_by"`
	RecordedAt time.Time `json:"update_date"`
}

// PartyHistory is a derived view over a party's past contracts, used
// as the reliability input to risk assessment. Never stored.
type PartyHistory struct {
	CompletedCount int `json:"completed_count"`
	TotalCount     int `json:"total_count"`
}

// CompletionRate returns completed/total, or 0 when the party has no
// contract history.
func (h PartyHistory) CompletionRate() float64 {
	if h.TotalCount == 0 {
		return 0
	}
	return float64(h.CompletedCount) / float64(h.TotalCount)
}
