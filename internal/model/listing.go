package model

import "time"

// ListingStatus tracks a crop listing through its lifecycle.
type ListingStatus string

const (
	ListingStatusDraft         ListingStatus = "draft"
	ListingStatusActive        ListingStatus = "active"
	ListingStatusInNegotiation ListingStatus = "in_negotiation"
	ListingStatusContracted    ListingStatus = "contracted"
	ListingStatusCompleted     ListingStatus = "completed"
	ListingStatusCancelled     ListingStatus = "cancelled"
)

// ValidListingStatus reports whether s is a known listing status.
func ValidListingStatus(s ListingStatus) bool {
	switch s {
	case ListingStatusDraft, ListingStatusActive, ListingStatusInNegotiation,
		ListingStatusContracted, ListingStatusCompleted, ListingStatusCancelled:
		return true
	}
	return false
}

// QualityGrade is the five-step quality scale used on listings and
// produced by the quality estimator.
type QualityGrade string

const (
	GradeAPlus QualityGrade = "A+"
	GradeA     QualityGrade = "A"
	GradeBPlus QualityGrade = "B+"
	GradeB     QualityGrade = "B"
	GradeC     QualityGrade = "C"
)

// CropListing is a farmer's offer of a quantity of a crop.
type CropListing struct {
	ID                string        `json:"id"`
	FarmerID          int64         `json:"farmer_id"`
	CropID            int64         `json:"crop_id"`
	QuantityAvailable float64       `json:"quantity_available"` // quintals
	ExpectedPrice     float64       `json:"expected_price_per_quintal"`
	QualityGrade      QualityGrade  `json:"quality_grade,omitempty"`
	OrganicCertified  bool          `json:"organic_certified"`
	HarvestDate       time.Time     `json:"expected_harvest_date"`
	FarmLocation      string        `json:"farm_location"`
	Status            ListingStatus `json:"status"`
	Description       string        `json:"description,omitempty"`

	// Estimator-derived fields, populated on demand.
	AIQualityScore        *float64 `json:"ai_quality_score,omitempty"`
	AIPriceRecommendation *float64 `json:"ai_price_recommendation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TotalValue is the listing's asking value at full quantity.
func (l *CropListing) TotalValue() float64 {
	return l.QuantityAvailable * l.ExpectedPrice
}
