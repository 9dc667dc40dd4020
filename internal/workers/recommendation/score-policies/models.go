// internal/workers/recommendation/score-policies/models.go
package scorepolicies

import "wandersure-workers/internal/models"

type Input struct {
	UserProfile    models.UserProfile      `json:"userProfile"`
	TripContext    models.TripContext      `json:"tripContext"`
	Candidates     []models.CandidateMatch `json:"candidates"`
	RiskAssessment models.RiskAssessment   `json:"riskAssessment"`
}

type Output struct {
	RankedPolicies []models.ScoredPolicy `json:"rankedPolicies"`
}

// contribution is one scored factor, kept for explanation output.
type contribution struct {
	points int
	reason string
}
