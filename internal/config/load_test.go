package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

const minimalConfig = `
[shopify]
store_name = "mystore"
access_token = "shpat_abc"

[google]
service_account_file = "/secrets/sa.json"
spreadsheet_id = "sheet-1"
`

func TestLoad_MinimalConfigGetsDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mystore", cfg.Shopify.StoreName)
	assert.Equal(t, "https://mystore.myshopify.com/admin/api/2023-04", cfg.Shopify.BaseURL())
	assert.Equal(t, 250, cfg.Shopify.BatchSize)
	assert.Equal(t, "Customer Orders", cfg.Google.OrdersRegion)
	assert.Equal(t, "TEST Customer Orders", cfg.Google.PreviewOrdersRegion)
	assert.Equal(t, 30*24*time.Hour, cfg.Sync.Lookback())
	assert.Equal(t, time.Hour, cfg.Sync.Overlap())
	assert.Equal(t, 5*time.Minute, cfg.Sync.MinRunInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.PageDelay())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, minimalConfig+`
[sync]
lookback_days = 7
overlap_hours = 2
db_path = "/var/lib/sync.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Sync.Lookback())
	assert.Equal(t, 2*time.Hour, cfg.Sync.Overlap())
	assert.Equal(t, "/var/lib/sync.db", cfg.Sync.DBPath)
	// Untouched tunables keep their defaults.
	assert.Equal(t, 5, cfg.Sync.MaxRetries)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_env")
	t.Setenv("SYNC_DB_PATH", "/tmp/env.db")

	path := writeConfigFile(t, minimalConfig)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "shpat_env", cfg.Shopify.AccessToken)
	assert.Equal(t, "/tmp/env.db", cfg.Sync.DBPath)
	// File values untouched by env stay as written.
	assert.Equal(t, "mystore", cfg.Shopify.StoreName)
}

func TestLoad_MissingRequiredFieldsFails(t *testing.T) {
	path := writeConfigFile(t, `
[shopify]
store_name = "mystore"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shopify.access_token")
	assert.Contains(t, err.Error(), "google.spreadsheet_id")
}

func TestLoad_MissingFileUsesEnvOnly(t *testing.T) {
	t.Setenv("SHOPIFY_STORE_NAME", "envstore")
	t.Setenv("SHOPIFY_ACCESS_TOKEN", "shpat_env")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/secrets/sa.json")
	t.Setenv("TARGET_SPREADSHEET_ID", "sheet-env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "envstore", cfg.Shopify.StoreName)
	assert.Equal(t, "sheet-env", cfg.Google.SpreadsheetID)
}

func TestValidate_RejectsOutOfRangeTunables(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Shopify.StoreName = "mystore"
	cfg.Shopify.AccessToken = "shpat_abc"
	cfg.Google.ServiceAccountFile = "/secrets/sa.json"
	cfg.Google.SpreadsheetID = "sheet-1"

	cfg.Shopify.BatchSize = 500

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
}

func TestLoad_MalformedTOMLFails(t *testing.T) {
	path := writeConfigFile(t, `[shopify`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}
