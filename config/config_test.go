package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileWithDefaults(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://localhost/beatclash
scheduler:
  backend: ticker
competition:
  group_size: 3
  auto_create_monthly: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://localhost/beatclash", cfg.Postgres.DSN)
	assert.Equal(t, SchedulerBackendTicker, cfg.Scheduler.Backend)
	assert.Equal(t, 60, cfg.Scheduler.CheckFrequencyMinutes)
	assert.Equal(t, time.Hour, cfg.Scheduler.CheckFrequency())
	assert.Equal(t, 3, cfg.Competition.GroupSize)
	assert.Equal(t, 3, cfg.Competition.MinSubmissions)
	assert.Equal(t, 1, cfg.Competition.AdvancePerGroup)
	assert.Equal(t, 7*24*time.Hour, cfg.Competition.Round1Voting())
	assert.True(t, cfg.Competition.AutoCreateMonthly)
	assert.Equal(t, "in 3 weeks", cfg.Competition.MonthlySubmissionWindow)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
postgres:
  dsn: postgres://file/db
scheduler:
  check_frequency_minutes: 15
`)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("CHECK_FREQUENCY_MINUTES", "5")
	t.Setenv("ROUND2_VOTING_DAYS", "3")
	t.Setenv("AUTO_CREATE_MONTHLY", "true")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/db", cfg.Postgres.DSN)
	assert.Equal(t, 5, cfg.Scheduler.CheckFrequencyMinutes)
	assert.Equal(t, 3, cfg.Competition.Round2VotingDays)
	assert.True(t, cfg.Competition.AutoCreateMonthly)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
}

func TestLoadConfig_InvalidEnvNumber(t *testing.T) {
	path := writeConfig(t, "postgres:\n  dsn: postgres://x\n")
	t.Setenv("ROUND1_VOTING_DAYS", "seven")

	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "ROUND1_VOTING_DAYS")
}

func TestLoadConfig_FallsBackToEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-only/db")
	t.Setenv("SCHEDULER_BACKEND", "ticker")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://env-only/db", cfg.Postgres.DSN)
	assert.Equal(t, SchedulerBackendTicker, cfg.Scheduler.Backend)
}

func TestLoadConfig_MissingDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.Scheduler.Backend = "cron" }, wantErr: "unknown scheduler backend"},
		{name: "group size too small", mutate: func(c *Config) { c.Competition.GroupSize = 1 }, wantErr: "group size"},
		{name: "min submissions too small", mutate: func(c *Config) { c.Competition.MinSubmissions = 1 }, wantErr: "min submissions"},
		{name: "negative voting days", mutate: func(c *Config) { c.Competition.Round1VotingDays = -1 }, wantErr: "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Postgres: PostgresConfig{DSN: "postgres://x"}}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
