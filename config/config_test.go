package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShuVe1/site-agreement/config"
)

func TestMustLoad_Defaults(t *testing.T) {
	// No CONFIG_PATH and no overrides: every knob falls back to its default.
	t.Setenv("CONFIG_PATH", "")

	cfg := config.MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.HTTPServer.Address)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 12, cfg.Schedule.Divisor)
	assert.False(t, cfg.Schedule.DivideByCount)
	assert.Equal(t, "literal", cfg.Reports.QuarterMode)
}

func TestMustLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_DRIVER", "flatfile")
	t.Setenv("STORAGE_PATH", "ledger.json")
	t.Setenv("REPORTS_QUARTER_MODE", "calendar")

	cfg := config.MustLoad()

	require.Equal(t, "flatfile", cfg.Storage.Driver)
	assert.Equal(t, "ledger.json", cfg.Storage.Path)
	assert.Equal(t, "calendar", cfg.Reports.QuarterMode)
}
