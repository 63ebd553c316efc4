package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultPath is the config file looked for when --config is not given.
const DefaultPath = "bsbsync.toml"

// Load reads and parses a TOML config file, applies environment
// overrides, and validates the result. Validation failures are fatal at
// startup; a sync run must never begin with a half-usable config.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides layers environment variables over the file config.
// Secrets usually arrive this way so they stay out of the config file.
func applyEnvOverrides(cfg *Config) {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setIfPresent(&cfg.Shopify.StoreName, "SHOPIFY_STORE_NAME")
	setIfPresent(&cfg.Shopify.AccessToken, "SHOPIFY_ACCESS_TOKEN")
	setIfPresent(&cfg.Google.ServiceAccountFile, "GOOGLE_SERVICE_ACCOUNT_FILE")
	setIfPresent(&cfg.Google.SpreadsheetID, "TARGET_SPREADSHEET_ID")
	setIfPresent(&cfg.Sync.DBPath, "SYNC_DB_PATH")
}

// Validate checks that every required field is present and every tunable
// is in range.
func Validate(cfg *Config) error {
	var missing []string

	if cfg.Shopify.StoreName == "" {
		missing = append(missing, "shopify.store_name")
	}

	if cfg.Shopify.AccessToken == "" {
		missing = append(missing, "shopify.access_token")
	}

	if cfg.Google.ServiceAccountFile == "" {
		missing = append(missing, "google.service_account_file")
	}

	if cfg.Google.SpreadsheetID == "" {
		missing = append(missing, "google.spreadsheet_id")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration fields: %v", missing)
	}

	if cfg.Shopify.BatchSize <= 0 || cfg.Shopify.BatchSize > 250 {
		return fmt.Errorf("shopify.batch_size must be in 1..250, got %d", cfg.Shopify.BatchSize)
	}

	if cfg.Sync.LookbackDays <= 0 {
		return fmt.Errorf("sync.lookback_days must be positive, got %d", cfg.Sync.LookbackDays)
	}

	if cfg.Sync.OverlapHours < 0 {
		return fmt.Errorf("sync.overlap_hours must not be negative, got %d", cfg.Sync.OverlapHours)
	}

	if cfg.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries must not be negative, got %d", cfg.Sync.MaxRetries)
	}

	return nil
}
