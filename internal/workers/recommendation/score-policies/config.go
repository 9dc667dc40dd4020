// internal/workers/recommendation/score-policies/config.go
package scorepolicies

import (
	"time"

	"wandersure-workers/internal/common/config"
)

type Config struct {
	Scoring config.ScoringConfig
	Risk    config.RiskConfig
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Scoring: cfg.Recommendation.Scoring,
		Risk:    cfg.Recommendation.Risk,
		Timeout: 30 * time.Second,
	}
}
