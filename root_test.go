package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdawsonsdp/bsbshopify/internal/config"
)

// newRootCmd() binds flags via StringVar/BoolVar, which resets the global
// flag variables. Tests set globals only after newRootCmd() returns.

func resetFlags(t *testing.T) {
	t.Helper()

	oldVerbose, oldQuiet, oldJSON := flagVerbose, flagQuiet, flagJSON
	oldCfg := resolvedCfg

	t.Cleanup(func() {
		flagVerbose, flagQuiet, flagJSON = oldVerbose, oldQuiet, oldJSON
		resolvedCfg = oldCfg
	})

	flagVerbose, flagQuiet, flagJSON = false, false, false
	resolvedCfg = nil
}

func TestNewRootCmd_RegistersSubcommands(t *testing.T) {
	cmd := newRootCmd()

	want := []string{"run", "status", "orders", "errors", "missing", "reset", "export", "validate", "report"}

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	for _, name := range want {
		assert.True(t, names[name], "missing subcommand %q", name)
	}
}

func TestBuildLogger_DefaultIsInfo(t *testing.T) {
	resetFlags(t)

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_VerboseEnablesDebug(t *testing.T) {
	resetFlags(t)
	flagVerbose = true

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_QuietSuppressesWarnings(t *testing.T) {
	resetFlags(t)
	flagQuiet = true

	logger := buildLogger()

	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelError))
}

func TestBuildLogger_ConfigLevelIsBaseline(t *testing.T) {
	resetFlags(t)

	resolvedCfg = config.DefaultConfig()
	resolvedCfg.LogLevel = "warn"

	logger := buildLogger()

	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelWarn))
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))

	// CLI flags win over the config baseline.
	flagVerbose = true
	logger = buildLogger()
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestRunCmd_FlagRegistration(t *testing.T) {
	t.Parallel()

	cmd := newRootCmd()

	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	assert.NotNil(t, runCmd.Flags().Lookup("commit"))
	assert.NotNil(t, runCmd.Flags().Lookup("force"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("json"))
}
