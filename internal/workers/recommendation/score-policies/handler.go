// internal/workers/recommendation/score-policies/handler.go
package scorepolicies

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "wandersure-workers/internal/common/errors"
	"wandersure-workers/internal/common/logger"
	"wandersure-workers/internal/common/metrics"
	"wandersure-workers/internal/common/taxonomy"
	"wandersure-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "score-policies"
)

type Handler struct {
	config *Config
	store  *taxonomy.Store
	logger logger.Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, store *taxonomy.Store, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		logger: l,
		errors: apperrors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	started := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, apperrors.NewParseFailedError("job variables", err))
		return
	}
	if len(input.Candidates) == 0 {
		h.failJob(client, job, apperrors.NewMissingVariableError("candidates"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr, ok := err.(*apperrors.StandardError)
		if !ok {
			stdErr = apperrors.NewBusinessRuleError("policy scoring failed", err.Error())
		}
		h.failJob(client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())
}

// execute turns candidate matches into a ranked list of scored policies.
// Scores are a tier baseline plus bounded additive factor contributions,
// clamped to [0, 100]. Ranking ties break on medical limit, then catalog
// position, so identical inputs always produce identical order.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	ranked := make([]models.ScoredPolicy, 0, len(input.Candidates))

	for _, candidate := range input.Candidates {
		product, ok := h.store.Get(candidate.ProductID)
		if !ok {
			h.logger.Warn("candidate not in catalog, skipping", map[string]interface{}{
				"productId": candidate.ProductID,
			})
			continue
		}
		ranked = append(ranked, h.scorePolicy(product, candidate, input))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].CompositeScore != ranked[j].CompositeScore {
			return ranked[i].CompositeScore > ranked[j].CompositeScore
		}
		pi, _ := h.store.Get(ranked[i].ProductID)
		pj, _ := h.store.Get(ranked[j].ProductID)
		if pi.MedicalLimit() != pj.MedicalLimit() {
			return pi.MedicalLimit() > pj.MedicalLimit()
		}
		return h.store.Rank(ranked[i].ProductID) < h.store.Rank(ranked[j].ProductID)
	})

	h.logger.Info("policies scored", map[string]interface{}{
		"count": len(ranked),
	})

	return &Output{RankedPolicies: ranked}, nil
}

func (h *Handler) scorePolicy(product taxonomy.Product, candidate models.CandidateMatch, input *Input) models.ScoredPolicy {
	score := h.tierBaseline(product.Tier)
	var contributions []contribution

	contributions = append(contributions, h.medicalFit(product, input.RiskAssessment)...)
	contributions = append(contributions, h.conditionsFit(product, input.UserProfile)...)
	contributions = append(contributions, h.activityFit(product, input.TripContext)...)
	contributions = append(contributions, h.riskAlignment(product, input.RiskAssessment)...)
	contributions = append(contributions, h.segmentFit(product, input.UserProfile, input.TripContext)...)

	if !candidate.IsEligible {
		reason := "not eligible for this traveler"
		if len(candidate.IneligibilityReasons) > 0 {
			reason = "not eligible: " + candidate.IneligibilityReasons[0]
		}
		contributions = append(contributions, contribution{points: h.weight("ineligible"), reason: reason})
	}

	for _, c := range contributions {
		score += c.points
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return models.ScoredPolicy{
		ProductID:       product.ID,
		DisplayName:     product.DisplayName,
		CompositeScore:  score,
		BenefitsSummary: benefitsSummary(product),
		Reasons:         h.topReasons(contributions),
		IsEligible:      candidate.IsEligible,
	}
}

func (h *Handler) tierBaseline(tier taxonomy.Tier) int {
	if base, ok := h.config.Scoring.TierBaselines[string(tier)]; ok {
		return base
	}
	return 50
}

// weight looks up a factor's point value in the scoring weight table.
// Unknown factors contribute nothing.
func (h *Handler) weight(factor string) int {
	return h.config.Scoring.Weights[factor]
}

// medicalFit rewards limits at or above the recommended minimum. The steps
// are monotone in the limit: raising a product's medical cover can never
// lower its score.
func (h *Handler) medicalFit(product taxonomy.Product, risk models.RiskAssessment) []contribution {
	rec := risk.RecommendedMedicalMinimum
	if rec <= 0 {
		return nil
	}

	limit := product.MedicalLimit()
	switch {
	case limit >= rec*1.5:
		return []contribution{{points: h.weight("medical_strong"), reason: "medical cover well above the recommended minimum"}}
	case limit >= rec:
		return []contribution{{points: h.weight("medical_meets"), reason: "medical cover meets the recommended minimum"}}
	case limit >= rec*0.5:
		return nil
	default:
		return []contribution{{points: h.weight("medical_below"), reason: "medical cover below the recommended minimum"}}
	}
}

func (h *Handler) conditionsFit(product taxonomy.Product, profile models.UserProfile) []contribution {
	if !profile.HasMedicalConditions() {
		return []contribution{{points: h.weight("no_declarations"), reason: "no medical declarations required"}}
	}
	if product.Conditions.AcceptsPreExisting {
		return []contribution{{points: h.weight("preexisting_covered"), reason: "covers declared pre-existing conditions"}}
	}
	return []contribution{{points: h.weight("preexisting_not_covered"), reason: "does not cover pre-existing conditions"}}
}

// activityFit penalizes excluded activities unless an optional rider buys
// the exclusion back, and rewards adventure sports cover on risky trips.
func (h *Handler) activityFit(product taxonomy.Product, trip models.TripContext) []contribution {
	var out []contribution
	risky := false

	for _, activity := range trip.Activities {
		key := strings.ToLower(strings.TrimSpace(activity))
		if m, ok := h.config.Risk.ActivityMultipliers[key]; ok && m >= h.config.Risk.AdventureThreshold {
			risky = true
		}
		if product.ExcludesActivity(activity) {
			// No penalty when a rider buys the exclusion back.
			if product.HasRiderFor(activity) {
				continue
			}
			out = append(out, contribution{points: h.weight("activity_excluded"), reason: fmt.Sprintf("%s is not covered", key)})
			return out
		}
	}

	if risky {
		if _, ok := product.Benefits["adventure sports"]; ok {
			out = append(out, contribution{points: h.weight("adventure_benefit"), reason: "adventure sports benefit matches planned activities"})
		}
	}
	return out
}

func (h *Handler) riskAlignment(product taxonomy.Product, risk models.RiskAssessment) []contribution {
	switch {
	case risk.RiskCategory == models.RiskHigh && product.Tier == taxonomy.TierPremium:
		return []contribution{{points: h.weight("risk_tier_match"), reason: "premium tier suits a high risk trip"}}
	case risk.RiskCategory == models.RiskHigh && product.Tier == taxonomy.TierBudget:
		return []contribution{{points: h.weight("risk_tier_mismatch"), reason: "budget tier is thin for a high risk trip"}}
	case risk.RiskCategory == models.RiskLow && product.Tier == taxonomy.TierBudget:
		return []contribution{{points: h.weight("risk_tier_match"), reason: "budget tier is sufficient for a low risk trip"}}
	}
	return nil
}

// segmentFit nudges products whose marketing segment matches the trip shape
// or the traveler. First matching segment wins.
func (h *Handler) segmentFit(product taxonomy.Product, profile models.UserProfile, trip models.TripContext) []contribution {
	days := trip.DurationDays()
	points := h.weight("segment_match")
	for _, segment := range product.Segments {
		switch strings.ToLower(strings.TrimSpace(segment)) {
		case "short-trip":
			if days > 0 && days <= h.config.Scoring.ShortTripMaxDays {
				return []contribution{{points: points, reason: "designed for short trips"}}
			}
		case "long-trip":
			if days > h.config.Scoring.LongTripMinDays {
				return []contribution{{points: points, reason: "designed for long trips"}}
			}
		case "senior":
			if profile.Age >= h.config.Scoring.SeniorAge {
				return []contribution{{points: points, reason: "designed for senior travelers"}}
			}
		case "family":
			if trip.TravelerCount > 1 {
				return []contribution{{points: points, reason: "designed for families and groups"}}
			}
		}
	}
	return nil
}

// topReasons keeps the largest-impact factors, preserving evaluation order
// on equal magnitude.
func (h *Handler) topReasons(contributions []contribution) []string {
	sorted := make([]contribution, len(contributions))
	copy(sorted, contributions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return abs(sorted[i].points) > abs(sorted[j].points)
	})

	max := h.config.Scoring.MaxReasons
	reasons := make([]string, 0, max)
	for _, c := range sorted {
		if c.points == 0 {
			continue
		}
		reasons = append(reasons, c.reason)
		if len(reasons) == max {
			break
		}
	}
	return reasons
}

func benefitsSummary(product taxonomy.Product) []string {
	categories := make([]string, 0, len(product.Benefits))
	for name := range product.Benefits {
		categories = append(categories, name)
	}
	sort.Strings(categories)

	summary := make([]string, 0, len(categories))
	for _, name := range categories {
		b := product.Benefits[name]
		summary = append(summary, fmt.Sprintf("%s: %s %.0f", name, b.Currency, b.LimitAmount))
	}
	return summary
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	_, err = cmd.Send(context.Background())
	if err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// failJob routes every failure through the shared error handler, which
// fails the job with retries for retryable codes and throws a BPMN error
// otherwise.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, stdErr *apperrors.StandardError) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
	h.errors.HandleJobError(context.Background(), client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
