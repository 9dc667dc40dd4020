// Package claims reads historical claims statistics used for risk estimation.
package claims

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	apperrors "wandersure-workers/internal/common/errors"
	"wandersure-workers/internal/common/logger"
	"wandersure-workers/internal/common/metrics"
	"wandersure-workers/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository fetches claims statistics from Postgres with a Redis
// read-through cache. The cache is best effort: any cache failure falls
// back to the database, and a database failure is reported to the caller
// who decides whether to degrade.
type Repository struct {
	db     *sql.DB
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewRepository builds a repository. cache may be nil to disable caching.
func NewRepository(db *sql.DB, cache *redis.Client, ttl time.Duration, log logger.Logger) *Repository {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Repository{db: db, cache: cache, ttl: ttl, logger: log}
}

// StatsForDestination returns the claim aggregates recorded for a
// destination, highest incidence first. The destination is normalized so
// city-level inputs hit the country-level partition. Invalid rows are
// dropped, never propagated.
func (r *Repository) StatsForDestination(ctx context.Context, destination string) ([]models.ClaimsStatistic, error) {
	dest := models.NormalizeDestination(destination)
	cacheKey := fmt.Sprintf("claims:stats:%s", dest)

	if cached, ok := r.fromCache(ctx, cacheKey); ok {
		return cached, nil
	}

	query, args, err := psql.
		Select("destination", "claim_type", "activity", "incidence_rate", "average_cost", "sample_size").
		From("claim_statistics").
		Where(sq.Eq{"destination": dest}).
		OrderBy("incidence_rate DESC").
		ToSql()
	if err != nil {
		return nil, apperrors.NewClaimsQueryFailedError(dest, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewClaimsQueryFailedError(dest, err)
	}
	defer rows.Close()

	var stats []models.ClaimsStatistic
	for rows.Next() {
		var s models.ClaimsStatistic
		var activity sql.NullString
		if err := rows.Scan(&s.Destination, &s.ClaimType, &activity, &s.IncidenceRate, &s.AverageCost, &s.SampleSize); err != nil {
			return nil, apperrors.NewClaimsQueryFailedError(dest, err)
		}
		s.Activity = activity.String
		if !s.Valid() {
			r.logger.Warn("Skipping invalid claims record", map[string]interface{}{
				"destination": s.Destination,
				"claimType":   s.ClaimType,
			})
			continue
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewClaimsQueryFailedError(dest, err)
	}

	r.toCache(ctx, cacheKey, stats)
	return stats, nil
}

func (r *Repository) fromCache(ctx context.Context, key string) ([]models.ClaimsStatistic, bool) {
	if r.cache == nil {
		return nil, false
	}

	raw, err := r.cache.Get(ctx, key).Result()
	if err == redis.Nil {
		metrics.ClaimsCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	if err != nil {
		metrics.ClaimsCacheHits.WithLabelValues("error").Inc()
		r.logger.Warn("Claims cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}

	var stats []models.ClaimsStatistic
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		metrics.ClaimsCacheHits.WithLabelValues("error").Inc()
		return nil, false
	}

	metrics.ClaimsCacheHits.WithLabelValues("hit").Inc()
	return stats, true
}

func (r *Repository) toCache(ctx context.Context, key string, stats []models.ClaimsStatistic) {
	if r.cache == nil {
		return
	}

	data, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Warn("Claims cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
