// internal/workers/recommendation/score-policies/handler_test.go
package scorepolicies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wandersure-workers/internal/common/config"
	"wandersure-workers/internal/common/logger"
	"wandersure-workers/internal/common/taxonomy"
	"wandersure-workers/internal/models"
)

func newTestStore() *taxonomy.Store {
	return taxonomy.NewStore(&taxonomy.Catalog{
		Version: "test",
		Products: []taxonomy.Product{
			{
				ID:          "scootsurance",
				DisplayName: "Scootsurance",
				Tier:        taxonomy.TierBudget,
				Conditions: taxonomy.Conditions{
					MinAge: 1, MaxAge: 70,
					ExcludedActivities: []string{"skiing", "scuba diving"},
					MaxTripDays:        90,
				},
				Benefits: map[string]taxonomy.Benefit{
					"medical": {LimitAmount: 50000, Currency: "SGD"},
					"baggage": {LimitAmount: 2000, Currency: "SGD"},
				},
			},
			{
				ID:          "traveleasy",
				DisplayName: "TravelEasy",
				Tier:        taxonomy.TierStandard,
				Conditions:  taxonomy.Conditions{MaxAge: 80, MaxTripDays: 182},
				Benefits: map[string]taxonomy.Benefit{
					"medical":          {LimitAmount: 200000, Currency: "SGD"},
					"adventure sports": {LimitAmount: 50000, Currency: "SGD"},
					"baggage":          {LimitAmount: 5000, Currency: "SGD"},
				},
			},
			{
				ID:          "traveleasy-preex",
				DisplayName: "TravelEasy Pre-Ex",
				Tier:        taxonomy.TierPremium,
				Conditions: taxonomy.Conditions{
					MaxAge: 75, AcceptsPreExisting: true, MaxTripDays: 182,
				},
				Benefits: map[string]taxonomy.Benefit{
					"medical":          {LimitAmount: 150000, Currency: "SGD"},
					"adventure sports": {LimitAmount: 30000, Currency: "SGD"},
					"baggage":          {LimitAmount: 7500, Currency: "SGD"},
				},
			},
		},
	})
}

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(config.Defaults()), newTestStore(), logger.NewTestLogger(t))
}

func allEligible(ids ...string) []models.CandidateMatch {
	out := make([]models.CandidateMatch, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.CandidateMatch{ProductID: id, IsEligible: true})
	}
	return out
}

func mediumRisk(recommendedMinimum float64) models.RiskAssessment {
	return models.RiskAssessment{
		RiskProbability:           0.45,
		RiskCategory:              models.RiskMedium,
		RecommendedMedicalMinimum: recommendedMinimum,
	}
}

func TestExecute_AdventureTripPrefersAdventureCover(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		UserProfile:    models.UserProfile{Age: 30},
		TripContext:    models.TripContext{Destination: "Japan", Activities: []string{"skiing"}},
		Candidates:     allEligible("scootsurance", "traveleasy", "traveleasy-preex"),
		RiskAssessment: mediumRisk(50000),
	})
	require.NoError(t, err)
	require.Len(t, output.RankedPolicies, 3)

	// Budget product loses points for the excluded activity, standard and
	// premium tie at the cap and break on medical limit.
	assert.Equal(t, "traveleasy", output.RankedPolicies[0].ProductID)
	assert.Equal(t, "traveleasy-preex", output.RankedPolicies[1].ProductID)
	assert.Equal(t, "scootsurance", output.RankedPolicies[2].ProductID)

	top := output.RankedPolicies[0]
	assert.Equal(t, 100, top.CompositeScore)
	assert.Contains(t, top.Reasons, "medical cover well above the recommended minimum")
	assert.NotEmpty(t, top.BenefitsSummary)

	last := output.RankedPolicies[2]
	assert.Contains(t, last.Reasons, "skiing is not covered")
}

func TestExecute_PreExistingConditionsFavorPreExProduct(t *testing.T) {
	handler := newTestHandler(t)

	candidates := []models.CandidateMatch{
		{ProductID: "scootsurance", IsEligible: false, IneligibilityReasons: []string{"pre-existing medical conditions not accepted"}},
		{ProductID: "traveleasy", IsEligible: false, IneligibilityReasons: []string{"pre-existing medical conditions not accepted"}},
		{ProductID: "traveleasy-preex", IsEligible: true},
	}

	output, err := handler.Execute(context.Background(), &Input{
		UserProfile:    models.UserProfile{Age: 55, MedicalConditions: []string{"diabetes"}},
		TripContext:    models.TripContext{Destination: "Malaysia"},
		Candidates:     candidates,
		RiskAssessment: mediumRisk(100000),
	})
	require.NoError(t, err)
	require.Len(t, output.RankedPolicies, 3)

	top := output.RankedPolicies[0]
	assert.Equal(t, "traveleasy-preex", top.ProductID)
	assert.True(t, top.IsEligible)
	assert.Contains(t, top.Reasons, "covers declared pre-existing conditions")

	for _, p := range output.RankedPolicies[1:] {
		assert.False(t, p.IsEligible)
		assert.Less(t, p.CompositeScore, top.CompositeScore)
	}
}

func TestExecute_ScoresStayBounded(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		UserProfile: models.UserProfile{Age: 30, MedicalConditions: []string{"diabetes"}},
		TripContext: models.TripContext{Destination: "Japan", Activities: []string{"skiing", "scuba diving"}},
		Candidates: []models.CandidateMatch{
			{ProductID: "scootsurance", IsEligible: false, IneligibilityReasons: []string{"pre-existing medical conditions not accepted"}},
			{ProductID: "traveleasy-preex", IsEligible: true},
		},
		RiskAssessment: models.RiskAssessment{
			RiskProbability:           0.8,
			RiskCategory:              models.RiskHigh,
			RecommendedMedicalMinimum: 1000000,
		},
	})
	require.NoError(t, err)

	for _, p := range output.RankedPolicies {
		assert.GreaterOrEqual(t, p.CompositeScore, 0, p.ProductID)
		assert.LessOrEqual(t, p.CompositeScore, 100, p.ProductID)
	}
}

func TestMedicalFitIsMonotone(t *testing.T) {
	handler := newTestHandler(t)
	risk := mediumRisk(100000)

	limits := []float64{10000, 50000, 100000, 150000, 300000}
	var prev int
	for i, limit := range limits {
		product := taxonomy.Product{
			ID:   "p",
			Tier: taxonomy.TierStandard,
			Benefits: map[string]taxonomy.Benefit{
				"medical": {LimitAmount: limit, Currency: "SGD"},
			},
		}
		scored := handler.scorePolicy(product, models.CandidateMatch{ProductID: "p", IsEligible: true}, &Input{
			UserProfile:    models.UserProfile{Age: 30},
			RiskAssessment: risk,
		})
		if i > 0 {
			assert.GreaterOrEqual(t, scored.CompositeScore, prev, "limit %.0f", limit)
		}
		prev = scored.CompositeScore
	}
}

func TestSegmentFitMatchesTripShape(t *testing.T) {
	handler := newTestHandler(t)

	shortTrip := models.TripContext{
		Destination:   "Japan",
		DepartureDate: "2026-09-01",
		ReturnDate:    "2026-09-05",
	}
	input := &Input{
		UserProfile:    models.UserProfile{Age: 30},
		TripContext:    shortTrip,
		RiskAssessment: mediumRisk(100000),
	}
	product := taxonomy.Product{
		ID:       "p",
		Tier:     taxonomy.TierBudget,
		Segments: []string{"short-trip"},
		Benefits: map[string]taxonomy.Benefit{
			"medical": {LimitAmount: 100000, Currency: "SGD"},
		},
	}

	with := handler.scorePolicy(product, models.CandidateMatch{ProductID: "p", IsEligible: true}, input)
	product.Segments = nil
	without := handler.scorePolicy(product, models.CandidateMatch{ProductID: "p", IsEligible: true}, input)

	assert.Equal(t, without.CompositeScore+5, with.CompositeScore)
	assert.Contains(t, with.Reasons, "designed for short trips")
}

func TestSegmentFitRewardsFamilyGroups(t *testing.T) {
	handler := newTestHandler(t)

	product := taxonomy.Product{
		ID:       "p",
		Tier:     taxonomy.TierStandard,
		Segments: []string{"family"},
		Benefits: map[string]taxonomy.Benefit{
			"medical": {LimitAmount: 100000, Currency: "SGD"},
		},
	}
	eligible := models.CandidateMatch{ProductID: "p", IsEligible: true}

	solo := &Input{
		UserProfile:    models.UserProfile{Age: 36},
		TripContext:    models.TripContext{Destination: "Japan", TravelerCount: 1},
		RiskAssessment: mediumRisk(100000),
	}
	group := &Input{
		UserProfile:    models.UserProfile{Age: 36},
		TripContext:    models.TripContext{Destination: "Japan", TravelerCount: 5},
		RiskAssessment: mediumRisk(100000),
	}

	alone := handler.scorePolicy(product, eligible, solo)
	family := handler.scorePolicy(product, eligible, group)

	assert.Equal(t, alone.CompositeScore+5, family.CompositeScore)
	assert.Contains(t, family.Reasons, "designed for families and groups")
}

func TestActivityExclusionWaivedByRider(t *testing.T) {
	handler := newTestHandler(t)

	product := taxonomy.Product{
		ID:   "p",
		Tier: taxonomy.TierStandard,
		Conditions: taxonomy.Conditions{
			ExcludedActivities: []string{"golf"},
		},
		Benefits: map[string]taxonomy.Benefit{
			"medical": {LimitAmount: 100000, Currency: "SGD"},
		},
	}
	eligible := models.CandidateMatch{ProductID: "p", IsEligible: true}
	input := &Input{
		UserProfile:    models.UserProfile{Age: 30},
		TripContext:    models.TripContext{Destination: "Japan", Activities: []string{"golf"}},
		RiskAssessment: mediumRisk(100000),
	}

	bare := handler.scorePolicy(product, eligible, input)
	assert.Contains(t, bare.Reasons, "golf is not covered")

	product.Riders = []string{"golf-cover"}
	withRider := handler.scorePolicy(product, eligible, input)

	assert.Equal(t, bare.CompositeScore+20, withRider.CompositeScore)
	assert.NotContains(t, withRider.Reasons, "golf is not covered")
}

func TestScoringWeightsComeFromConfig(t *testing.T) {
	tuned := config.Defaults()
	tuned.Recommendation.Scoring.Weights["no_declarations"] = 12

	standard := newTestHandler(t)
	custom := NewHandler(LoadConfig(tuned), newTestStore(), logger.NewTestLogger(t))

	product := taxonomy.Product{
		ID:   "p",
		Tier: taxonomy.TierStandard,
		Benefits: map[string]taxonomy.Benefit{
			"medical": {LimitAmount: 100000, Currency: "SGD"},
		},
	}
	eligible := models.CandidateMatch{ProductID: "p", IsEligible: true}
	input := &Input{
		UserProfile:    models.UserProfile{Age: 30},
		RiskAssessment: mediumRisk(100000),
	}

	base := standard.scorePolicy(product, eligible, input)
	raised := custom.scorePolicy(product, eligible, input)

	assert.Equal(t, base.CompositeScore+7, raised.CompositeScore)
}

func TestExecute_UnknownCandidateSkipped(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		UserProfile:    models.UserProfile{Age: 30},
		TripContext:    models.TripContext{Destination: "Japan"},
		Candidates:     allEligible("traveleasy", "retired-product"),
		RiskAssessment: mediumRisk(50000),
	})
	require.NoError(t, err)

	require.Len(t, output.RankedPolicies, 1)
	assert.Equal(t, "traveleasy", output.RankedPolicies[0].ProductID)
}

func TestExecute_ReasonsCapped(t *testing.T) {
	handler := newTestHandler(t)

	output, err := handler.Execute(context.Background(), &Input{
		UserProfile:    models.UserProfile{Age: 30, MedicalConditions: []string{"asthma"}},
		TripContext:    models.TripContext{Destination: "Japan", Activities: []string{"skiing"}},
		Candidates:     allEligible("scootsurance", "traveleasy", "traveleasy-preex"),
		RiskAssessment: mediumRisk(100000),
	})
	require.NoError(t, err)

	for _, p := range output.RankedPolicies {
		assert.LessOrEqual(t, len(p.Reasons), 3, p.ProductID)
	}
}

func TestExecute_Deterministic(t *testing.T) {
	handler := newTestHandler(t)

	input := &Input{
		UserProfile:    models.UserProfile{Age: 42},
		TripContext:    models.TripContext{Destination: "Australia", Activities: []string{"surfing"}},
		Candidates:     allEligible("scootsurance", "traveleasy", "traveleasy-preex"),
		RiskAssessment: mediumRisk(50000),
	}

	first, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)
	second, err := handler.Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
