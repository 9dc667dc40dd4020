// internal/workers/recommendation/assess-trip-risk/handler.go
package assesstriprisk

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"

	"wandersure-workers/internal/common/claims"
	apperrors "wandersure-workers/internal/common/errors"
	"wandersure-workers/internal/common/logger"
	"wandersure-workers/internal/common/metrics"
	"wandersure-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assess-trip-risk"
)

type Handler struct {
	config *Config
	repo   *claims.Repository
	logger logger.Logger
	errors *apperrors.ErrorHandler
}

func NewHandler(config *Config, repo *claims.Repository, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		repo:   repo,
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
	if input.TripContext.Destination == "" {
		h.failJob(client, job, apperrors.NewInvalidTripContextError("destination is required"))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr, ok := err.(*apperrors.StandardError)
		if !ok {
			stdErr = apperrors.NewBusinessRuleError("risk assessment failed", err.Error())
		}
		h.failJob(client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())
}

// execute estimates the claim probability for a trip from historical
// statistics. Missing or unreachable data degrades to a fixed default
// assessment rather than failing the job.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	trip := input.TripContext

	stats := h.gatherStats(ctx, input)
	stats = filterByActivities(stats, trip.Activities)

	if len(stats) == 0 {
		return &Output{
			RiskAssessment: h.defaultAssessment(),
			DataPoints:     0,
		}, nil
	}

	probability := h.probability(input, stats)
	assessment := models.RiskAssessment{
		RiskProbability:           probability,
		RiskCategory:              models.CategoryForProbability(probability),
		RecommendedMedicalMinimum: h.recommendedMedicalMinimum(stats),
		TopClaimReasons:           h.topClaimReasons(stats),
	}

	h.logger.Info("risk assessed", map[string]interface{}{
		"destination": trip.Destination,
		"probability": assessment.RiskProbability,
		"category":    string(assessment.RiskCategory),
		"dataPoints":  len(stats),
	})

	return &Output{
		RiskAssessment: assessment,
		DataPoints:     len(stats),
	}, nil
}

// gatherStats prefers statistics carried inline in the job variables so
// processes can replay an assessment without database access; otherwise it
// queries the repository for the trip's destination.
func (h *Handler) gatherStats(ctx context.Context, input *Input) []models.ClaimsStatistic {
	if len(input.ClaimsStatistics) > 0 {
		stats := make([]models.ClaimsStatistic, 0, len(input.ClaimsStatistics))
		for _, s := range input.ClaimsStatistics {
			if !s.Valid() {
				h.logger.Warn("skipping invalid inline claims statistic", map[string]interface{}{
					"destination": s.Destination,
					"claimType":   s.ClaimType,
				})
				continue
			}
			stats = append(stats, s)
		}
		sort.SliceStable(stats, func(i, j int) bool {
			return stats[i].IncidenceRate > stats[j].IncidenceRate
		})
		return stats
	}

	stats, err := h.repo.StatsForDestination(ctx, input.TripContext.Destination)
	if err != nil {
		h.logger.Warn("claims lookup failed, using default assessment", map[string]interface{}{
			"destination": input.TripContext.Destination,
			"error":       err.Error(),
		})
		return nil
	}
	return stats
}

// filterByActivities narrows statistics to the declared activities. Rows
// without an activity are general for the destination and always kept; rows
// tied to an activity the trip does not declare are irrelevant to it.
func filterByActivities(stats []models.ClaimsStatistic, activities []string) []models.ClaimsStatistic {
	if len(activities) == 0 {
		return stats
	}

	declared := make(map[string]bool, len(activities))
	for _, a := range activities {
		declared[strings.ToLower(strings.TrimSpace(a))] = true
	}

	filtered := make([]models.ClaimsStatistic, 0, len(stats))
	for _, s := range stats {
		if s.Activity == "" || declared[strings.ToLower(strings.TrimSpace(s.Activity))] {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func (h *Handler) defaultAssessment() models.RiskAssessment {
	p := h.config.Risk.DefaultProbability
	return models.RiskAssessment{
		RiskProbability:           p,
		RiskCategory:              models.CategoryForProbability(p),
		RecommendedMedicalMinimum: h.config.Risk.DefaultMedicalMinimum,
		TopClaimReasons:           []models.ClaimReason{},
	}
}

// probability combines the sample-weighted incidence rate with activity,
// age and duration signals through a logistic squash, keeping the output
// strictly inside (0, 1).
func (h *Handler) probability(input *Input, stats []models.ClaimsStatistic) float64 {
	var weightedRate, totalSamples float64
	for _, s := range stats {
		weightedRate += s.IncidenceRate * float64(s.SampleSize)
		totalSamples += float64(s.SampleSize)
	}
	incidence := weightedRate / totalSamples

	r := h.config.Risk
	multiplier := h.activityMultiplier(input.TripContext.Activities)

	ageTerm := 0.0
	switch age := input.UserProfile.Age; {
	case age > r.AgeHighCutoff || age < r.AgeLowCutoff:
		ageTerm = r.AgeExtremeAdjustment
	case age > r.AgeSeniorCutoff:
		ageTerm = r.AgeSeniorAdjustment
	}

	cap := float64(r.DurationCapDays)
	days := float64(input.TripContext.DurationDays())
	durationTerm := math.Min(days, cap) / cap * r.DurationWeight

	z := r.IncidenceWeight*incidence + r.ActivityWeight*(multiplier-1.0) + ageTerm + durationTerm + r.Bias
	p := 1.0 / (1.0 + math.Exp(-z))

	return math.Min(0.99, math.Max(0.01, p))
}

// activityMultiplier takes the riskiest declared activity. Unknown
// activities are neutral.
func (h *Handler) activityMultiplier(activities []string) float64 {
	multiplier := 1.0
	for _, a := range activities {
		key := strings.ToLower(strings.TrimSpace(a))
		if m, ok := h.config.Risk.ActivityMultipliers[key]; ok && m > multiplier {
			multiplier = m
		}
	}
	return multiplier
}

// recommendedMedicalMinimum scales the worst historical average claim cost
// and snaps it up to the nearest coverage tier products are sold in.
func (h *Handler) recommendedMedicalMinimum(stats []models.ClaimsStatistic) float64 {
	var maxAvgCost float64
	for _, s := range stats {
		if s.AverageCost > maxAvgCost {
			maxAvgCost = s.AverageCost
		}
	}

	target := maxAvgCost * h.config.Risk.MedicalCostFactor
	tiers := h.config.Risk.CoverageTiers
	for _, tier := range tiers {
		if target <= tier {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// topClaimReasons surfaces the highest-incidence claim types, one entry per
// type. Stats arrive sorted by incidence descending from the repository.
func (h *Handler) topClaimReasons(stats []models.ClaimsStatistic) []models.ClaimReason {
	seen := make(map[string]bool)
	reasons := make([]models.ClaimReason, 0, h.config.Risk.TopReasons)

	for _, s := range stats {
		if seen[s.ClaimType] {
			continue
		}
		seen[s.ClaimType] = true
		reasons = append(reasons, models.ClaimReason{
			Type:          s.ClaimType,
			IncidenceRate: s.IncidenceRate,
			AverageCost:   s.AverageCost,
		})
		if len(reasons) == h.config.Risk.TopReasons {
			break
		}
	}
	return reasons
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
