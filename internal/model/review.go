package model

import "time"

// Review is feedback left on a completed contract. One per contract.
type Review struct {
	ID         int64  `json:"id"`
	ContractID string `json:"contract_id"`
	ReviewerID int64  `json:"reviewer_id"`
	RevieweeID int64  `json:"reviewee_id"`

	OverallRating       int  `json:"overall_rating"` // 1-5
	QualityRating       *int `json:"quality_rating,omitempty"`
	CommunicationRating *int `json:"communication_rating,omitempty"`
	TimelinessRating    *int `json:"timeliness_rating,omitempty"`

	Text           string `json:"review_text,omitempty"`
	WouldRecommend bool   `json:"would_recommend"`

	CreatedAt time.Time `json:"created_at"`
}

// ValidRating reports whether r is a legal star rating.
func ValidRating(r int) bool { return r >= 1 && r <= 5 }
