package estimator

import (
	"github.com/fasaldhan/fasaldhan-cli/internal/model"
)

// HealthIndicators are the per-aspect sub-scores of a quality
// assessment, each in [0, 1].
type HealthIndicators struct {
	ColorUniformity float64 `json:"color_uniformity"`
	SizeConsistency float64 `json:"size_consistency"`
	DefectLevel     float64 `json:"defect_level"`
}

// QualityAssessment is the result of a quality assessment.
type QualityAssessment struct {
	QualityScore     float64            `json:"quality_score"`  // 0-1
	RipenessScore    float64            `json:"ripeness_score"` // 0-1
	QualityGrade     model.QualityGrade `json:"quality_grade"`
	HealthIndicators HealthIndicators   `json:"health_indicators"`
	Recommendations  []string           `json:"recommendations"`
	Method           string             `json:"method"`
}

// AssessQuality produces a quality assessment for a crop image. Image
// analysis is disabled in this configuration, so the reference is
// ignored and a fixed default assessment is returned.
func AssessQuality(_ string) QualityAssessment {
	const defaultScore = 0.75
	return QualityAssessment{
		QualityScore:  defaultScore,
		RipenessScore: defaultScore,
		QualityGrade:  GradeFor(defaultScore),
		HealthIndicators: HealthIndicators{
			ColorUniformity: 0.7,
			SizeConsistency: 0.7,
			DefectLevel:     0.3,
		},
		Recommendations: []string{
			"Manual assessment recommended.",
			"Upload clear images for better analysis.",
		},
		Method: MethodDefaultAssessment,
	}
}

// GradeFor maps a quality score to a grade. Lower bounds are inclusive:
// a boundary value belongs to the higher grade.
func GradeFor(score float64) model.QualityGrade {
	switch {
	case score >= 0.9:
		return model.GradeAPlus
	case score >= 0.8:
		return model.GradeA
	case score >= 0.7:
		return model.GradeBPlus
	case score >= 0.6:
		return model.GradeB
	default:
		return model.GradeC
	}
}
