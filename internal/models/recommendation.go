// internal/models/recommendation.go
package models

// RiskCategory is the coarse bucket derived from a continuous probability.
type RiskCategory string

const (
	RiskLow    RiskCategory = "low"
	RiskMedium RiskCategory = "medium"
	RiskHigh   RiskCategory = "high"
)

// CategoryForProbability applies the fixed contract thresholds:
// below 0.33 low, up to 0.66 medium, above high.
func CategoryForProbability(p float64) RiskCategory {
	switch {
	case p < 0.33:
		return RiskLow
	case p <= 0.66:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// CandidateMatch is one product annotated with eligibility, produced by the
// match-policies worker before any scoring happens.
type CandidateMatch struct {
	ProductID            string   `json:"productId"`
	IsEligible           bool     `json:"isEligible"`
	IneligibilityReasons []string `json:"ineligibilityReasons,omitempty"`
	RelevanceNotes       []string `json:"relevanceNotes,omitempty"`
}

// ClaimReason is one historical claim pattern surfaced in a risk assessment.
type ClaimReason struct {
	Type          string  `json:"type"`
	IncidenceRate float64 `json:"incidenceRate"`
	AverageCost   float64 `json:"averageCost"`
}

// RiskAssessment is the assess-trip-risk output consumed by the scorer.
type RiskAssessment struct {
	RiskProbability           float64       `json:"riskProbability"`
	RiskCategory              RiskCategory  `json:"riskCategory"`
	RecommendedMedicalMinimum float64       `json:"recommendedMedicalMinimum"`
	TopClaimReasons           []ClaimReason `json:"topClaimReasons"`
}

// ScoredPolicy is the engine's final per-product output. The composite score
// is deterministic for identical inputs.
type ScoredPolicy struct {
	ProductID       string   `json:"productId"`
	DisplayName     string   `json:"displayName"`
	CompositeScore  int      `json:"compositeScore"`
	BenefitsSummary []string `json:"benefitsSummary,omitempty"`
	Reasons         []string `json:"reasons,omitempty"`
	IsEligible      bool     `json:"isEligible"`
}

// BenefitRow is one category of a head-to-head comparison.
type BenefitRow struct {
	Category        string  `json:"category"`
	ValueA          float64 `json:"valueA"`
	ValueB          float64 `json:"valueB"`
	RelevanceWeight float64 `json:"relevanceWeight"`
}

// ComparisonResult is the compare-policies output for one scenario.
type ComparisonResult struct {
	ProductAID      string       `json:"productAId"`
	ProductBID      string       `json:"productBId"`
	BenefitTable    []BenefitRow `json:"benefitTable"`
	CompositeScoreA float64      `json:"compositeScoreA"`
	CompositeScoreB float64      `json:"compositeScoreB"`
	Winner          string       `json:"winner"`
	Justification   string       `json:"justification"`
	Citations       []string     `json:"citations,omitempty"`
}
