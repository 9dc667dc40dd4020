// internal/workers/recommendation/compare-policies/handler.go
package comparepolicies

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
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
	TaskType = "compare-policies"
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
			stdErr = apperrors.NewBusinessRuleError("policy comparison failed", err.Error())
		}
		h.failJob(client, job, stdErr)
		return
	}

	h.completeJob(client, job, output)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(started).Seconds())
}

// execute builds a head-to-head benefit table for two catalog products.
// Benefit values are normalized against the larger of the pair (or the
// reference ceiling for small limits) and weighted by trip relevance, so
// swapping the two product ids mirrors the result exactly.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ProductAID == "" || input.ProductBID == "" {
		return nil, apperrors.NewMissingVariableError("productAId and productBId")
	}

	productA, ok := h.store.Get(input.ProductAID)
	if !ok {
		return nil, apperrors.NewPolicyNotFoundError(input.ProductAID)
	}
	productB, ok := h.store.Get(input.ProductBID)
	if !ok {
		return nil, apperrors.NewPolicyNotFoundError(input.ProductBID)
	}

	weights := h.weightTable(input.TripContext)
	categories := benefitUnion(productA, productB)

	table := make([]models.BenefitRow, 0, len(categories))
	var scoreA, scoreB float64

	for _, category := range categories {
		valueA := benefitLimit(productA, category)
		valueB := benefitLimit(productB, category)

		weight, ok := weights[category]
		if !ok {
			weight = h.config.Comparison.DefaultWeight
		}

		denom := math.Max(valueA, valueB)
		if denom < h.config.Comparison.ReferenceCeiling {
			denom = h.config.Comparison.ReferenceCeiling
		}
		if denom > 0 {
			scoreA += weight * valueA / denom
			scoreB += weight * valueB / denom
		}

		table = append(table, models.BenefitRow{
			Category:        category,
			ValueA:          valueA,
			ValueB:          valueB,
			RelevanceWeight: weight,
		})
	}

	winner, justification := h.decide(productA, productB, scoreA, scoreB, table)

	h.logger.Info("comparison complete", map[string]interface{}{
		"productA": productA.ID,
		"productB": productB.ID,
		"winner":   winner,
	})

	return &Output{
		Comparison: models.ComparisonResult{
			ProductAID:      productA.ID,
			ProductBID:      productB.ID,
			BenefitTable:    table,
			CompositeScoreA: scoreA,
			CompositeScoreB: scoreB,
			Winner:          winner,
			Justification:   justification,
			Citations:       h.citations(productA, productB, table),
		},
	}, nil
}

// citations pin the catalog generation both products came from, then quote
// the benefit limits and relevance weight behind every table row so the
// verdict is checkable without the catalog at hand.
func (h *Handler) citations(productA, productB taxonomy.Product, table []models.BenefitRow) []string {
	out := make([]string, 0, len(table)+2)
	out = append(out,
		fmt.Sprintf("catalog@%s: %s", h.store.Version(), productA.ID),
		fmt.Sprintf("catalog@%s: %s", h.store.Version(), productB.ID),
	)
	for _, row := range table {
		currency := benefitCurrency(productA, productB, row.Category)
		out = append(out, fmt.Sprintf("%s: %s %.0f vs %s %.0f (weight %.2f)",
			row.Category, currency, row.ValueA, currency, row.ValueB, row.RelevanceWeight))
	}
	return out
}

// benefitCurrency picks the currency of whichever product carries the
// benefit; the catalog quotes both sides of a pair in the same currency.
func benefitCurrency(a, b taxonomy.Product, category string) string {
	if benefit, ok := a.Benefits[category]; ok {
		return benefit.Currency
	}
	if benefit, ok := b.Benefits[category]; ok {
		return benefit.Currency
	}
	return ""
}

// weightTable picks the adventure table when any declared activity carries
// an elevated risk multiplier, the leisure table otherwise.
func (h *Handler) weightTable(trip models.TripContext) map[string]float64 {
	for _, activity := range trip.Activities {
		key := strings.ToLower(strings.TrimSpace(activity))
		if m, ok := h.config.Risk.ActivityMultipliers[key]; ok && m >= h.config.Risk.AdventureThreshold {
			return h.config.Comparison.AdventureWeights
		}
	}
	return h.config.Comparison.LeisureWeights
}

func (h *Handler) decide(a, b taxonomy.Product, scoreA, scoreB float64, table []models.BenefitRow) (string, string) {
	var winner, loser taxonomy.Product
	var winnerIsA bool

	switch {
	case scoreA > scoreB:
		winner, loser, winnerIsA = a, b, true
	case scoreB > scoreA:
		winner, loser, winnerIsA = b, a, false
	case a.MedicalLimit() != b.MedicalLimit():
		winnerIsA = a.MedicalLimit() > b.MedicalLimit()
		if winnerIsA {
			winner, loser = a, b
		} else {
			winner, loser = b, a
		}
	default:
		winnerIsA = h.store.Rank(a.ID) < h.store.Rank(b.ID)
		if winnerIsA {
			winner, loser = a, b
		} else {
			winner, loser = b, a
		}
	}

	lead := leadCategory(table, winnerIsA)
	justification := fmt.Sprintf("%s offers stronger cover than %s on the benefits most relevant to this trip", winner.DisplayName, loser.DisplayName)
	if lead != "" {
		justification += fmt.Sprintf(", led by %s", lead)
	}
	return winner.ID, justification
}

// leadCategory is the heaviest-weighted category where the winner holds a
// strictly higher limit.
func leadCategory(table []models.BenefitRow, winnerIsA bool) string {
	best := ""
	bestWeight := -1.0
	for _, row := range table {
		ahead := row.ValueA > row.ValueB
		if !winnerIsA {
			ahead = row.ValueB > row.ValueA
		}
		if ahead && row.RelevanceWeight > bestWeight {
			best = row.Category
			bestWeight = row.RelevanceWeight
		}
	}
	return best
}

func benefitUnion(a, b taxonomy.Product) []string {
	set := make(map[string]bool, len(a.Benefits)+len(b.Benefits))
	for name := range a.Benefits {
		set[name] = true
	}
	for name := range b.Benefits {
		set[name] = true
	}

	categories := make([]string, 0, len(set))
	for name := range set {
		categories = append(categories, name)
	}
	sort.Strings(categories)
	return categories
}

func benefitLimit(p taxonomy.Product, category string) float64 {
	if b, ok := p.Benefits[category]; ok {
		return b.LimitAmount
	}
	return 0
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
