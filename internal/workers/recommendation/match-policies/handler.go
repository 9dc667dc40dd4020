// internal/workers/recommendation/match-policies/handler.go
package matchpolicies

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "wandersure-workers/internal/common/errors"
	"wandersure-workers/internal/common/logger"
	"wandersure-workers/internal/common/metrics"
	"wandersure-workers/internal/common/taxonomy"
	"wandersure-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "match-policies"
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

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		stdErr, ok := err.(*apperrors.StandardError)
		if !ok {
			stdErr = apperrors.NewBusinessRuleError("policy matching failed", err.Error())
		}
		h.failJob(client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())
}

func (h *Handler) validate(input *Input) error {
	if input.UserProfile.Age < 0 || input.UserProfile.Age > h.config.MaxAge {
		return apperrors.NewInvalidProfileError(fmt.Sprintf("age %d out of range", input.UserProfile.Age))
	}
	if input.TripContext.Destination == "" {
		return apperrors.NewInvalidTripContextError("destination is required")
	}
	return nil
}

// execute annotates every catalog product with eligibility. The result is
// never empty: when nothing passes underwriting, every product comes back
// flagged ineligible with its reasons so downstream stages can still rank
// and explain.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := h.validate(input); err != nil {
		return nil, err
	}

	profile := input.UserProfile
	trip := input.TripContext
	days := trip.DurationDays()
	hasConditions := profile.HasMedicalConditions()
	destination := models.NormalizeDestination(trip.Destination)

	products := h.store.Products()
	candidates := make([]models.CandidateMatch, 0, len(products))
	eligibleCount := 0

	for _, p := range products {
		var reasons []string
		var notes []string

		if !p.AgeEligible(profile.Age) {
			reasons = append(reasons, fmt.Sprintf(
				"age %d outside eligible range %d-%d", profile.Age, p.Conditions.MinAge, p.Conditions.MaxAge))
		}

		if hasConditions && !p.Conditions.AcceptsPreExisting {
			reasons = append(reasons, "pre-existing medical conditions not accepted")
		}

		if p.Conditions.MaxTripDays > 0 && days > p.Conditions.MaxTripDays {
			reasons = append(reasons, fmt.Sprintf(
				"trip length %d days exceeds maximum %d", days, p.Conditions.MaxTripDays))
		}

		// Destination exclusions inform relevance rather than gate
		// eligibility; conditions are an open set and the process decides
		// what to do with the note.
		if p.ExcludesCountry(destination) {
			notes = append(notes, fmt.Sprintf("%s is outside this policy's covered destinations", trip.Destination))
		}

		// Activity exclusions inform relevance but do not gate eligibility;
		// the traveler may still want the policy for everything else.
		for _, activity := range trip.Activities {
			if p.ExcludesActivity(activity) {
				notes = append(notes, fmt.Sprintf("%s is excluded from cover", activity))
			} else if _, ok := p.Benefits["adventure sports"]; ok {
				notes = append(notes, fmt.Sprintf("adventure sports benefit applies to %s", activity))
			}
		}

		if hasConditions && p.Conditions.AcceptsPreExisting {
			notes = append(notes, "accepts declared pre-existing conditions")
		}

		eligible := len(reasons) == 0
		if eligible {
			eligibleCount++
		}

		candidates = append(candidates, models.CandidateMatch{
			ProductID:            p.ID,
			IsEligible:           eligible,
			IneligibilityReasons: reasons,
			RelevanceNotes:       notes,
		})
	}

	fallback := eligibleCount == 0
	if fallback {
		h.logger.Warn("no eligible products, returning full catalog as fallback", map[string]interface{}{
			"destination": trip.Destination,
			"age":         profile.Age,
		})
	}

	h.logger.Info("matching complete", map[string]interface{}{
		"candidates": len(candidates),
		"eligible":   eligibleCount,
		"fallback":   fallback,
	})

	return &Output{
		RecommendationID: uuid.NewString(),
		Candidates:       candidates,
		FallbackApplied:  fallback,
	}, nil
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
