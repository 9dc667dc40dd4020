// internal/workers/recommendation/match-policies/config.go
package matchpolicies

import "time"

type Config struct {
	// MaxAge rejects implausible profile ages before matching runs.
	MaxAge  int
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		MaxAge:  120,
		Timeout: 30 * time.Second,
	}
}
