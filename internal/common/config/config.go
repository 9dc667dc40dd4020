// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App            AppConfig               `mapstructure:"app"`
	Camunda        CamundaConfig           `mapstructure:"camunda"`
	Database       DatabaseConfig          `mapstructure:"database"`
	Catalog        CatalogConfig           `mapstructure:"catalog"`
	Workers        map[string]WorkerConfig `mapstructure:"workers"`
	Recommendation RecommendationConfig    `mapstructure:"recommendation"`
	Logging        LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // seconds
}

// CatalogConfig locates the product catalog the taxonomy store loads.
type CatalogConfig struct {
	Path            string `mapstructure:"path"`
	RefreshInterval int    `mapstructure:"refresh_interval"` // seconds, 0 disables
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Recommendation Engine Configuration ---

// RecommendationConfig groups the tunables of the scoring pipeline. All maps
// and tables get canonical defaults from applyDefaults so an empty config
// file still produces a working engine.
type RecommendationConfig struct {
	Risk       RiskConfig       `mapstructure:"risk"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Comparison ComparisonConfig `mapstructure:"comparison"`
}

// RiskConfig drives the assess-trip-risk worker.
type RiskConfig struct {
	// ActivityMultipliers scale the risk signal per declared activity.
	// Unknown activities fall back to 1.0 (neutral).
	ActivityMultipliers map[string]float64 `mapstructure:"activity_multipliers"`

	// AdventureThreshold is the multiplier at or above which an activity
	// counts as adventurous for scoring and comparison purposes.
	AdventureThreshold float64 `mapstructure:"adventure_threshold"`

	// IncidenceWeight, ActivityWeight, DurationWeight and Bias are the
	// coefficients of the logistic risk transform.
	IncidenceWeight float64 `mapstructure:"incidence_weight"`
	ActivityWeight  float64 `mapstructure:"activity_weight"`
	DurationWeight  float64 `mapstructure:"duration_weight"`
	Bias            float64 `mapstructure:"bias"`

	// Age bands: below AgeLowCutoff or above AgeHighCutoff adds the extreme
	// adjustment, above AgeSeniorCutoff the senior adjustment.
	AgeLowCutoff         int     `mapstructure:"age_low_cutoff"`
	AgeHighCutoff        int     `mapstructure:"age_high_cutoff"`
	AgeSeniorCutoff      int     `mapstructure:"age_senior_cutoff"`
	AgeExtremeAdjustment float64 `mapstructure:"age_extreme_adjustment"`
	AgeSeniorAdjustment  float64 `mapstructure:"age_senior_adjustment"`

	// DefaultProbability is returned when no claims data matches the trip.
	DefaultProbability float64 `mapstructure:"default_probability"`

	// DurationCapDays bounds the trip-length contribution.
	DurationCapDays int `mapstructure:"duration_cap_days"`

	// MedicalCostFactor multiplies the worst historical average claim cost
	// to produce the recommended medical minimum.
	MedicalCostFactor float64 `mapstructure:"medical_cost_factor"`

	// CoverageTiers are the medical coverage amounts products come in,
	// ascending. Recommended minimums snap up to the nearest tier.
	CoverageTiers []float64 `mapstructure:"coverage_tiers"`

	// DefaultMedicalMinimum applies when no claims data is available.
	DefaultMedicalMinimum float64 `mapstructure:"default_medical_minimum"`

	// TopReasons caps how many claim patterns the assessment surfaces.
	TopReasons int `mapstructure:"top_reasons"`
}

// ScoringConfig drives the score-policies worker.
type ScoringConfig struct {
	// TierBaselines seed the composite score per product tier.
	TierBaselines map[string]int `mapstructure:"tier_baselines"`

	// Weights are the per-factor point values added to the baseline.
	// Penalties carry negative values.
	Weights map[string]int `mapstructure:"weights"`

	// Segment cutoffs: trips of at most ShortTripMaxDays match the
	// short-trip segment, trips over LongTripMinDays the long-trip segment,
	// travelers at or above SeniorAge the senior segment.
	ShortTripMaxDays int `mapstructure:"short_trip_max_days"`
	LongTripMinDays  int `mapstructure:"long_trip_min_days"`
	SeniorAge        int `mapstructure:"senior_age"`

	// MaxReasons caps the explanation strings per scored policy.
	MaxReasons int `mapstructure:"max_reasons"`
}

// ComparisonConfig drives the compare-policies worker.
type ComparisonConfig struct {
	// AdventureWeights and LeisureWeights assign per-benefit-category
	// relevance depending on whether the trip declares risky activities.
	AdventureWeights map[string]float64 `mapstructure:"adventure_weights"`
	LeisureWeights   map[string]float64 `mapstructure:"leisure_weights"`

	// ReferenceCeiling normalizes benefit values when both policies sit
	// below it, so tiny absolute limits do not inflate ratios.
	ReferenceCeiling float64 `mapstructure:"reference_ceiling"`

	// DefaultWeight applies to categories absent from both weight tables.
	DefaultWeight float64 `mapstructure:"default_weight"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
