package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearSearchEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GOOGLE_API_KEY", "GOOGLE_CSE_ID", "DATABASE_URL", "REDIS_ADDRESS", "ALERTS_SNS_TOPIC_ARN"} {
		t.Setenv(key, "")
	}
}

func TestLoadFromFile_Defaults(t *testing.T) {
	clearSearchEnv(t)
	path := writeConfig(t, `
app:
  name: medsearch-service
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 30000, cfg.Search.Timeout)
	assert.Equal(t, "https://data-api.health.gov.au/pbs/api/v3", cfg.Search.Catalog.BaseURL)
	assert.Equal(t, 50, cfg.Search.Catalog.PageLimit)
	assert.Equal(t, 10, cfg.Search.Catalog.MaxResults)
	assert.Equal(t, 5, cfg.Search.Web.ResultsPerDomain)
	assert.Equal(t, DefaultTrustedDomains, cfg.Search.Web.Domains)
	assert.Equal(t, "memory", cfg.History.Backend)
	assert.Equal(t, 2000, cfg.History.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Empty(t, cfg.Search.Web.APIKey, "absent credentials are valid")
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	clearSearchEnv(t)
	t.Setenv("TEST_CSE_KEY", "key-123")
	path := writeConfig(t, `
search:
  web:
    api_key: ${TEST_CSE_KEY}
    engine_id: ${TEST_CSE_MISSING}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "key-123", cfg.Search.Web.APIKey)
	assert.Empty(t, cfg.Search.Web.EngineID)
}

func TestLoadFromFile_EnvOverridesEmptyCredentials(t *testing.T) {
	clearSearchEnv(t)
	t.Setenv("GOOGLE_API_KEY", "from-env")
	t.Setenv("GOOGLE_CSE_ID", "cx-env")
	path := writeConfig(t, `
search:
  web:
    api_key: ""
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Search.Web.APIKey)
	assert.Equal(t, "cx-env", cfg.Search.Web.EngineID)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown backend",
			body:    "history:\n  backend: mongo\n",
			wantErr: "history.backend",
		},
		{
			name:    "postgres without host",
			body:    "history:\n  backend: postgres\n",
			wantErr: "database.postgres.host",
		},
		{
			name:    "redis without address",
			body:    "history:\n  backend: redis\n",
			wantErr: "database.redis.address",
		},
		{
			name:    "elasticsearch without url",
			body:    "history:\n  backend: elasticsearch\n",
			wantErr: "database.elasticsearch",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSearchEnv(t)
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_PostgresURLSkipsFieldChecks(t *testing.T) {
	clearSearchEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/med?sslmode=disable")
	path := writeConfig(t, "history:\n  backend: postgres\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@localhost/med?sslmode=disable", cfg.Database.Postgres.GetDSN())
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"medication-search": {Enabled: false, MaxJobsActive: 2},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "medication-search"))
	assert.Equal(t, 2, GetWorkerConfig(cfg, "medication-search").MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
	assert.Equal(t, 60000, GetWorkerConfig(cfg, "unknown").Timeout)
}
