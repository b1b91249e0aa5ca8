package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "meddpicc.db", cfg.Store.DatabaseURL)
	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 80, cfg.Scoring.ExcellentThreshold)
	assert.Equal(t, 60, cfg.Scoring.GoodThreshold)
	assert.Equal(t, 40, cfg.Scoring.FairThreshold)
	assert.Equal(t, 60, cfg.Scoring.AttentionThreshold)
	assert.Equal(t, 50, cfg.Scoring.CriticalThreshold)
	assert.Equal(t, 10, cfg.Scoring.MinTextLength)
	assert.Equal(t, 2000, cfg.Scoring.MaxTextLength)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.InDelta(t, 5.0, cfg.Salesforce.RateLimit, 0.001)
	assert.Equal(t, 4, cfg.Sync.Concurrency)
	assert.Equal(t, 3, cfg.Sync.MaxAttempts)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/meddpicc
log:
  level: debug
  format: console
server:
  port: 9090
scoring:
  catalog_path: catalog.yaml
  weights:
    champion: 2
salesforce:
  fields:
    overall_score: MEDDPICC_Score__c
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/meddpicc", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "catalog.yaml", cfg.Scoring.CatalogPath)
	assert.InDelta(t, 2.0, cfg.Scoring.Weights["champion"], 0.001)
	assert.Equal(t, "MEDDPICC_Score__c", cfg.Salesforce.Fields["overall_score"])
	// Defaults still apply for unset values
	assert.Equal(t, 80, cfg.Scoring.ExcellentThreshold)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("MEDDPICC_STORE_DRIVER", "postgres")
	t.Setenv("MEDDPICC_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("MEDDPICC_SERVER_PORT", "3000")
	t.Setenv("MEDDPICC_SCORING_GOOD_THRESHOLD", "65")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 65, cfg.Scoring.GoodThreshold)
}

func TestLoadKeepsExplicitZeroThresholds(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
scoring:
  fair_threshold: 0
  critical_threshold: 0
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Scoring.FairThreshold)
	assert.Equal(t, 0, cfg.Scoring.CriticalThreshold)
	assert.Equal(t, 60, cfg.Scoring.GoodThreshold)
	assert.Equal(t, 10, cfg.Scoring.MinTextLength)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("store: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestValidateStore(t *testing.T) {
	cfg := &Config{Store: StoreConfig{Driver: "sqlite", DatabaseURL: "test.db"}}
	assert.NoError(t, cfg.Validate("store"))

	cfg.Store.Driver = "mysql"
	cfg.Store.DatabaseURL = ""
	err := cfg.Validate("store")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql" is not supported`)
	assert.Contains(t, err.Error(), "store.database_url is required")
}

func TestValidateSalesforce_MissingFields(t *testing.T) {
	cfg := &Config{}

	err := cfg.Validate("salesforce")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.client_id is required")
	assert.Contains(t, err.Error(), "salesforce.username is required")
	assert.Contains(t, err.Error(), "salesforce.key_path is required")
	assert.Contains(t, err.Error(), "sync.concurrency must be between 1 and 20")
}

func TestValidateSalesforce_AllPresent(t *testing.T) {
	cfg := &Config{
		Salesforce: SalesforceConfig{ClientID: "cid", Username: "ops@example.com", KeyPath: "key.pem"},
		Sync:       SyncConfig{Concurrency: 4},
	}
	assert.NoError(t, cfg.Validate("salesforce"))
}

func TestValidateNotion(t *testing.T) {
	cfg := &Config{Notion: NotionConfig{Token: "ntn_token"}}
	err := cfg.Validate("notion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.question_db is required")

	cfg.Notion.QuestionDB = "db-id"
	assert.NoError(t, cfg.Validate("notion"))
}

func TestValidateServe(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Port: 9090}}
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg.Server.Port = 70000
	err = cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be <= 65535")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
