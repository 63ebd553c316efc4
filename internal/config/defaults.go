package config

// Default tuning values. Region names match the live spreadsheet layout;
// the preview regions carry a TEST prefix so a misconfigured run is
// visually obvious in the spreadsheet UI.
const (
	defaultAPIVersion     = "2023-04"
	defaultBatchSize      = 250
	defaultStatusFilter   = "any"
	defaultLookbackDays   = 30
	defaultOverlapHours   = 1
	defaultMinRunMinutes  = 5
	defaultPageDelayMilli = 500
	defaultMaxRetries     = 5
	defaultDBPath         = "shopify_sync.db"
	defaultPreviewDir     = "preview_output"
)

// DefaultConfig returns a Config with every tunable set to its default.
// Credentials have no default; validation rejects a config without them.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Shopify: Shopify{
			APIVersion:   defaultAPIVersion,
			BatchSize:    defaultBatchSize,
			StatusFilter: defaultStatusFilter,
		},
		Google: Google{
			OrdersRegion:        "Customer Orders",
			LinesRegion:         "Bakery Products Ordered",
			PreviewOrdersRegion: "TEST Customer Orders",
			PreviewLinesRegion:  "TEST Bakery Products Ordered",
		},
		Sync: Sync{
			DBPath:                defaultDBPath,
			PreviewDir:            defaultPreviewDir,
			LookbackDays:          defaultLookbackDays,
			OverlapHours:          defaultOverlapHours,
			MinRunIntervalMinutes: defaultMinRunMinutes,
			PageDelayMillis:       defaultPageDelayMilli,
			MaxRetries:            defaultMaxRetries,
		},
	}
}
