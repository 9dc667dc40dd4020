// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DB_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment overlay, ignored when absent
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations so tests under test/e2e and
// binaries under cmd/ all pick it up.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
	if cfg.Catalog.Path == "" {
		if val := os.Getenv("CATALOG_PATH"); val != "" {
			cfg.Catalog.Path = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields.
// The recommendation tables here are the canonical ones; config files only
// need to list deviations.
func applyDefaults(cfg *Config) {
	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.CacheTTL == 0 {
		cfg.Database.Redis.CacheTTL = 300
	}

	// Catalog defaults
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "configs/catalog.json"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Worker defaults
	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	// Risk defaults
	risk := &cfg.Recommendation.Risk
	if len(risk.ActivityMultipliers) == 0 {
		risk.ActivityMultipliers = map[string]float64{
			"skiing":         1.8,
			"snowboarding":   1.8,
			"scuba diving":   1.7,
			"mountaineering": 1.9,
			"trekking":       1.4,
			"hiking":         1.3,
			"surfing":        1.4,
			"sightseeing":    1.0,
		}
	}
	if risk.AdventureThreshold == 0 {
		risk.AdventureThreshold = 1.3
	}
	if risk.IncidenceWeight == 0 {
		risk.IncidenceWeight = 6.0
	}
	if risk.ActivityWeight == 0 {
		risk.ActivityWeight = 1.5
	}
	if risk.DurationWeight == 0 {
		risk.DurationWeight = 0.5
	}
	if risk.Bias == 0 {
		risk.Bias = -2.0
	}
	if risk.AgeLowCutoff == 0 {
		risk.AgeLowCutoff = 5
	}
	if risk.AgeHighCutoff == 0 {
		risk.AgeHighCutoff = 70
	}
	if risk.AgeSeniorCutoff == 0 {
		risk.AgeSeniorCutoff = 60
	}
	if risk.AgeExtremeAdjustment == 0 {
		risk.AgeExtremeAdjustment = 0.6
	}
	if risk.AgeSeniorAdjustment == 0 {
		risk.AgeSeniorAdjustment = 0.3
	}
	if risk.DefaultProbability == 0 {
		risk.DefaultProbability = 0.4
	}
	if risk.DurationCapDays == 0 {
		risk.DurationCapDays = 30
	}
	if risk.MedicalCostFactor == 0 {
		risk.MedicalCostFactor = 1.5
	}
	if len(risk.CoverageTiers) == 0 {
		risk.CoverageTiers = []float64{50000, 100000, 200000, 500000, 1000000}
	}
	if risk.DefaultMedicalMinimum == 0 {
		risk.DefaultMedicalMinimum = 100000
	}
	if risk.TopReasons == 0 {
		risk.TopReasons = 3
	}

	// Scoring defaults
	scoring := &cfg.Recommendation.Scoring
	if len(scoring.TierBaselines) == 0 {
		scoring.TierBaselines = map[string]int{
			"budget":   50,
			"standard": 60,
			"premium":  70,
		}
	}
	if len(scoring.Weights) == 0 {
		scoring.Weights = map[string]int{
			"medical_strong":          20,
			"medical_meets":           15,
			"medical_below":           -10,
			"no_declarations":         5,
			"preexisting_covered":     25,
			"preexisting_not_covered": -15,
			"activity_excluded":       -20,
			"adventure_benefit":       15,
			"risk_tier_match":         10,
			"risk_tier_mismatch":      -10,
			"segment_match":           5,
			"ineligible":              -30,
		}
	}
	if scoring.ShortTripMaxDays == 0 {
		scoring.ShortTripMaxDays = 7
	}
	if scoring.LongTripMinDays == 0 {
		scoring.LongTripMinDays = 30
	}
	if scoring.SeniorAge == 0 {
		scoring.SeniorAge = 65
	}
	if scoring.MaxReasons == 0 {
		scoring.MaxReasons = 3
	}

	// Comparison defaults
	cmp := &cfg.Recommendation.Comparison
	if len(cmp.AdventureWeights) == 0 {
		cmp.AdventureWeights = map[string]float64{
			"medical":           1.0,
			"emergency":         0.9,
			"adventure sports":  0.9,
			"trip cancellation": 0.4,
			"baggage":           0.3,
		}
	}
	if len(cmp.LeisureWeights) == 0 {
		cmp.LeisureWeights = map[string]float64{
			"medical":           0.8,
			"emergency":         0.6,
			"adventure sports":  0.1,
			"trip cancellation": 0.9,
			"baggage":           0.7,
		}
	}
	if cmp.ReferenceCeiling == 0 {
		cmp.ReferenceCeiling = 100000
	}
	if cmp.DefaultWeight == 0 {
		cmp.DefaultWeight = 0.5
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}

// Defaults returns a fully defaulted configuration without reading any file.
// Tests use it to get the canonical recommendation tables.
func Defaults() *Config {
	cfg := &Config{Workers: map[string]WorkerConfig{}}
	applyDefaults(cfg)
	return cfg
}
