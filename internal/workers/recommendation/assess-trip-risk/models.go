// internal/workers/recommendation/assess-trip-risk/models.go
package assesstriprisk

import "wandersure-workers/internal/models"

type Input struct {
	UserProfile models.UserProfile `json:"userProfile"`
	TripContext models.TripContext `json:"tripContext"`

	// ClaimsStatistics, when present, are used instead of a repository
	// lookup. Processes that already carry the aggregates can replay an
	// assessment without database access.
	ClaimsStatistics []models.ClaimsStatistic `json:"claimsStatistics,omitempty"`
}

type Output struct {
	RiskAssessment models.RiskAssessment `json:"riskAssessment"`

	// DataPoints is the number of claims records behind the estimate,
	// 0 when the default assessment applied.
	DataPoints int `json:"dataPoints"`
}
