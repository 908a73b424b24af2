package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.Error(t, err)
	require.Equal(t, ":8080", cfg.ListenAddr)
	require.Equal(t, 3, cfg.UrgentWithinDays)
	require.Equal(t, ForecastStageProbability, cfg.ForecastPolicy)
	require.Equal(t, 20*time.Second, cfg.ReportTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lumen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
urgent_within_days: 5
report_timeout: 45s
log:
  level: debug
`), 0o644))

	t.Setenv("LUMEN_CONFIG_PATH", path)
	t.Setenv("DATABASE_URL", "postgres://localhost/lumen")
	t.Setenv("URGENT_WITHIN_DAYS", "7")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddr)
	require.Equal(t, 7, cfg.UrgentWithinDays)
	require.Equal(t, 45*time.Second, cfg.ReportTimeout)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsUnknownForecastPolicy(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/lumen")
	t.Setenv("FORECAST_POLICY", "vibes")
	_, err := Load()
	require.ErrorContains(t, err, "FORECAST_POLICY")
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	require.Equal(t, time.UTC, Config{Timezone: "Nowhere/Special"}.Location())
}
