package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 12, cfg.Scheduling.MaxRecurrenceWeeks)
	assert.Equal(t, 5*time.Minute, cfg.Absence.Interval)
	assert.Equal(t, "trainersamay", cfg.Events.SubjectPrefix)
	assert.Empty(t, cfg.Events.NATSURL)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SCHEDULE_TIMEZONE", "Asia/Kolkata")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("ABSENCE_SWEEP_INTERVAL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Absence.Interval)
	assert.Equal(t, "Asia/Kolkata", cfg.Scheduling.Location().String())
}

func TestSchedulingLocationFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, SchedulingConfig{}.Location())
	assert.Equal(t, time.UTC, SchedulingConfig{Timezone: "Mars/Olympus"}.Location())
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
