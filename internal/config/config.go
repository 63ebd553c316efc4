// Package config loads, validates, and resolves configuration for the
// sync tool. Precedence: defaults -> config file -> environment -> CLI
// flags, so one-off overrides never require editing the config file.
package config

import (
	"fmt"
	"time"
)

// Config is the full configuration tree as parsed from TOML.
type Config struct {
	LogLevel string `toml:"log_level"`

	Shopify Shopify `toml:"shopify"`
	Google  Google  `toml:"google"`
	Sync    Sync    `toml:"sync"`
}

// Shopify configures the remote order source.
type Shopify struct {
	StoreName   string `toml:"store_name"`
	AccessToken string `toml:"access_token"`
	APIVersion  string `toml:"api_version"`
	BatchSize   int    `toml:"batch_size"`
	// StatusFilter is passed straight through to the orders listing.
	StatusFilter string `toml:"status_filter"`
}

// BaseURL returns the Admin API base URL for the configured store.
func (s Shopify) BaseURL() string {
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s", s.StoreName, s.APIVersion)
}

// Google configures the spreadsheet destination.
type Google struct {
	ServiceAccountFile string `toml:"service_account_file"`
	SpreadsheetID      string `toml:"spreadsheet_id"`

	// Region names (worksheet titles). The preview regions are the only
	// regions the engine ever clears.
	OrdersRegion        string `toml:"orders_region"`
	LinesRegion         string `toml:"lines_region"`
	PreviewOrdersRegion string `toml:"preview_orders_region"`
	PreviewLinesRegion  string `toml:"preview_lines_region"`
}

// Sync tunes the engine itself.
type Sync struct {
	DBPath       string `toml:"db_path"`
	PreviewDir   string `toml:"preview_dir"`
	LookbackDays int    `toml:"lookback_days"`
	OverlapHours int    `toml:"overlap_hours"`
	// MinRunIntervalMinutes spaces consecutive runs; `run --force` bypasses.
	MinRunIntervalMinutes int `toml:"min_run_interval_minutes"`
	// PageDelayMillis paces paginated fetches as an upstream courtesy.
	PageDelayMillis int `toml:"page_delay_millis"`
	MaxRetries      int `toml:"max_retries"`
}

// Lookback returns the cold-start fetch window.
func (s Sync) Lookback() time.Duration {
	return time.Duration(s.LookbackDays) * 24 * time.Hour
}

// Overlap returns the watermark safety margin.
func (s Sync) Overlap() time.Duration {
	return time.Duration(s.OverlapHours) * time.Hour
}

// MinRunInterval returns the minimum spacing between runs.
func (s Sync) MinRunInterval() time.Duration {
	return time.Duration(s.MinRunIntervalMinutes) * time.Minute
}

// PageDelay returns the inter-page pacing delay.
func (s Sync) PageDelay() time.Duration {
	return time.Duration(s.PageDelayMillis) * time.Millisecond
}
