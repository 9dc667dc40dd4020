// internal/workers/recommendation/assess-trip-risk/config.go
package assesstriprisk

import (
	"time"

	"wandersure-workers/internal/common/config"
)

type Config struct {
	Risk    config.RiskConfig
	Timeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		Risk:    cfg.Recommendation.Risk,
		Timeout: 30 * time.Second,
	}
}
