// internal/workers/recommendation/compare-policies/config.go
package comparepolicies

import (
	"time"

	"wandersure-workers/internal/common/config"
)

type Config struct {
	Comparison config.ComparisonConfig
	Risk       config.RiskConfig
	Timeout    time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Comparison: cfg.Recommendation.Comparison,
		Risk:       cfg.Recommendation.Risk,
		Timeout:    30 * time.Second,
	}
}
