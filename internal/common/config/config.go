// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Server   ServerConfig            `mapstructure:"server"`
	Search   SearchConfig            `mapstructure:"search"`
	History  HistoryConfig           `mapstructure:"history"`
	Database DatabaseConfig          `mapstructure:"database"`
	Camunda  CamundaConfig           `mapstructure:"camunda"`
	Alerts   AlertsConfig            `mapstructure:"alerts"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Registry RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string   `mapstructure:"address"`
	ReadTimeout     int      `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int      `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int      `mapstructure:"shutdown_timeout"` // milliseconds
	CORSOrigins     []string `mapstructure:"cors_origins"`
}

// --- Search Sources ---

// SearchConfig holds settings for both upstream sources. Timeout applies to
// each client call as a whole.
type SearchConfig struct {
	Timeout        int                  `mapstructure:"timeout"` // milliseconds
	Catalog        CatalogConfig        `mapstructure:"catalog"`
	Web            WebSearchConfig      `mapstructure:"web"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CatalogConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	PageLimit  int    `mapstructure:"page_limit"`
	MaxResults int    `mapstructure:"max_results"`
}

type WebSearchConfig struct {
	BaseURL          string   `mapstructure:"base_url"`
	APIKey           string   `mapstructure:"api_key"`
	EngineID         string   `mapstructure:"engine_id"`
	ResultsPerDomain int      `mapstructure:"results_per_domain"`
	Domains          []string `mapstructure:"domains"`
}

type CircuitBreakerConfig struct {
	MaxFailures     int `mapstructure:"max_failures"`
	ResetTimeout    int `mapstructure:"reset_timeout"` // milliseconds
	HalfOpenMaxReqs int `mapstructure:"half_open_max_requests"`
}

// --- History Ledger ---

// HistoryConfig selects the ledger backend: postgres, redis, elasticsearch or memory.
type HistoryConfig struct {
	Backend      string `mapstructure:"backend"`
	WriteTimeout int    `mapstructure:"write_timeout"` // milliseconds
	ReadLimit    int    `mapstructure:"read_limit"`
	Collection   string `mapstructure:"collection"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string. A configured URL wins.
func (p PostgresConfig) GetDSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// AlertsConfig controls the degradation notifier. An empty topic ARN
// disables publishing.
type AlertsConfig struct {
	Region      string  `mapstructure:"region"`
	SNSTopicARN string  `mapstructure:"sns_topic_arn"`
	RatePerMin  float64 `mapstructure:"rate_per_minute"`
	Burst       int     `mapstructure:"burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// SearchTimeout is the per-call deadline for both upstream clients.
func (c *Config) SearchTimeout() time.Duration {
	return GetDuration(c.Search.Timeout)
}
