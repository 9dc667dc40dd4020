// internal/workers/recommendation/match-policies/models.go
package matchpolicies

import "wandersure-workers/internal/models"

type Input struct {
	UserProfile models.UserProfile `json:"userProfile"`
	TripContext models.TripContext `json:"tripContext"`
}

type Output struct {
	RecommendationID string                  `json:"recommendationId"`
	Candidates       []models.CandidateMatch `json:"candidates"`
	FallbackApplied  bool                    `json:"fallbackApplied"`
}
