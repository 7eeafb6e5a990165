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

// DefaultTrustedDomains is the fixed, ordered list of sites the web search is scoped to.
var DefaultTrustedDomains = []string{
	"tga.gov.au",
	"nps.org.au",
	"pbs.gov.au",
	"health.gov.au",
	"medicinesafety.gov.au",
}

var validHistoryBackends = map[string]bool{
	"postgres":      true,
	"redis":         true,
	"elasticsearch": true,
	"memory":        true,
}

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// env-specific overlay, optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finalize(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finalize(v)
}

func finalize(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile looks for a .env in the working directory, its parents and the
// module root. Missing files are fine.
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
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// An unset variable expands to "" which is a valid "not configured".
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

// overrideEmptyConfig fills values the YAML left empty from well-known env vars.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Search.Web.APIKey == "" {
		if val := os.Getenv("GOOGLE_API_KEY"); val != "" {
			cfg.Search.Web.APIKey = val
		}
	}
	if cfg.Search.Web.EngineID == "" {
		if val := os.Getenv("GOOGLE_CSE_ID"); val != "" {
			cfg.Search.Web.EngineID = val
		}
	}

	if cfg.Database.Postgres.URL == "" {
		if val := os.Getenv("DATABASE_URL"); val != "" {
			cfg.Database.Postgres.URL = val
		}
	}
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
	if cfg.Database.Redis.Address == "" {
		if val := os.Getenv("REDIS_ADDRESS"); val != "" {
			cfg.Database.Redis.Address = val
		}
	}

	if cfg.Alerts.SNSTopicARN == "" {
		if val := os.Getenv("ALERTS_SNS_TOPIC_ARN"); val != "" {
			cfg.Alerts.SNSTopicARN = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "medsearch-service"
	}

	// Server defaults
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8001"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 70000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}

	// Search defaults
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 30000
	}
	if cfg.Search.Catalog.BaseURL == "" {
		cfg.Search.Catalog.BaseURL = "https://data-api.health.gov.au/pbs/api/v3"
	}
	if cfg.Search.Catalog.PageLimit == 0 {
		cfg.Search.Catalog.PageLimit = 50
	}
	if cfg.Search.Catalog.MaxResults == 0 {
		cfg.Search.Catalog.MaxResults = 10
	}
	if cfg.Search.Web.BaseURL == "" {
		cfg.Search.Web.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if cfg.Search.Web.ResultsPerDomain == 0 {
		cfg.Search.Web.ResultsPerDomain = 5
	}
	if len(cfg.Search.Web.Domains) == 0 {
		cfg.Search.Web.Domains = append([]string(nil), DefaultTrustedDomains...)
	}
	if cfg.Search.CircuitBreaker.MaxFailures == 0 {
		cfg.Search.CircuitBreaker.MaxFailures = 5
	}
	if cfg.Search.CircuitBreaker.ResetTimeout == 0 {
		cfg.Search.CircuitBreaker.ResetTimeout = 30000
	}
	if cfg.Search.CircuitBreaker.HalfOpenMaxReqs == 0 {
		cfg.Search.CircuitBreaker.HalfOpenMaxReqs = 1
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = "memory"
	}
	if cfg.History.WriteTimeout == 0 {
		cfg.History.WriteTimeout = 2000
	}
	if cfg.History.ReadLimit == 0 {
		cfg.History.ReadLimit = 50
	}
	if cfg.History.Collection == "" {
		cfg.History.Collection = "medication_searches"
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

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

	// Alerts defaults
	if cfg.Alerts.RatePerMin == 0 {
		cfg.Alerts.RatePerMin = 6
	}
	if cfg.Alerts.Burst == 0 {
		cfg.Alerts.Burst = 1
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

	if cfg.Registry.Path == "" {
		cfg.Registry.Path = "configs/activity-registry.json"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 60000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig checks only what the selected components need. Missing web
// search credentials are valid and select the synthetic result path.
func validateConfig(cfg *Config) error {
	if cfg.Search.Timeout < 0 {
		return fmt.Errorf("search.timeout must not be negative")
	}
	if len(cfg.Search.Web.Domains) == 0 {
		return fmt.Errorf("search.web.domains must not be empty")
	}

	if !validHistoryBackends[cfg.History.Backend] {
		return fmt.Errorf("history.backend %q is not supported", cfg.History.Backend)
	}

	switch cfg.History.Backend {
	case "postgres":
		if cfg.Database.Postgres.URL == "" {
			if cfg.Database.Postgres.Host == "" {
				return fmt.Errorf("database.postgres.host is required")
			}
			if cfg.Database.Postgres.Database == "" {
				return fmt.Errorf("database.postgres.database is required")
			}
			if cfg.Database.Postgres.User == "" {
				return fmt.Errorf("database.postgres.user is required")
			}
		}
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required")
		}
	case "elasticsearch":
		if cfg.Database.Elasticsearch.GetURL() == "" {
			return fmt.Errorf("database.elasticsearch.addresses or url is required")
		}
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
		Timeout:       60000,
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
