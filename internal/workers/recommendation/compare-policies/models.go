// internal/workers/recommendation/compare-policies/models.go
package comparepolicies

import "wandersure-workers/internal/models"

type Input struct {
	ProductAID  string             `json:"productAId"`
	ProductBID  string             `json:"productBId"`
	TripContext models.TripContext `json:"tripContext"`
}

type Output struct {
	Comparison models.ComparisonResult `json:"comparison"`
}
