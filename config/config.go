package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Scheduler backends.
const (
	SchedulerBackendRiver  = "river"
	SchedulerBackendTicker = "ticker"
)

// Config struct to hold the configuration settings
type Config struct {
	Postgres      PostgresConfig      `yaml:"postgres"`
	NATS          NATSConfig          `yaml:"nats"`
	HTTP          HTTPConfig          `yaml:"http"`
	JWT           JWTConfig           `yaml:"jwt"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Competition   CompetitionConfig   `yaml:"competition"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// PostgresConfig holds Postgres configuration.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig holds NATS configuration. An empty URL selects the in-process event bus.
type NATSConfig struct {
	URL string `yaml:"url"`
}

// HTTPConfig holds the admin API listener configuration.
type HTTPConfig struct {
	Address            string  `yaml:"address"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateLimitBurst     int     `yaml:"rate_limit_burst"`
}

// JWTConfig holds JWT configuration.
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

// SchedulerConfig holds the lifecycle job settings.
type SchedulerConfig struct {
	Backend               string        `yaml:"backend"`
	CheckFrequencyMinutes int           `yaml:"check_frequency_minutes"`
	PageSize              int           `yaml:"page_size"`
	MaxWorkers            int           `yaml:"max_workers"`
	JobTimeout            time.Duration `yaml:"job_timeout"`
}

// CompetitionConfig holds the rules applied to every competition.
type CompetitionConfig struct {
	MinSubmissions          int    `yaml:"min_submissions"`
	GroupSize               int    `yaml:"group_size"`
	AdvancePerGroup         int    `yaml:"advance_per_group"`
	Round1VotingDays        int    `yaml:"round1_voting_days"`
	Round2VotingDays        int    `yaml:"round2_voting_days"`
	AutoCreateMonthly       bool   `yaml:"auto_create_monthly"`
	MonthlySubmissionWindow string `yaml:"monthly_submission_window"`
}

// ObservabilityConfig holds configuration for observability components
type ObservabilityConfig struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	ServiceName string `yaml:"service_name"`
}

// CheckFrequency returns the scheduler cadence as a duration.
func (s SchedulerConfig) CheckFrequency() time.Duration {
	return time.Duration(s.CheckFrequencyMinutes) * time.Minute
}

// Round1Voting returns the round 1 voting window.
func (c CompetitionConfig) Round1Voting() time.Duration {
	return time.Duration(c.Round1VotingDays) * 24 * time.Hour
}

// Round2Voting returns the round 2 voting window.
func (c CompetitionConfig) Round2Voting() time.Duration {
	return time.Duration(c.Round2VotingDays) * 24 * time.Hour
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(filename string) (*Config, error) {
	// Try reading configuration from the file first
	data, err := os.ReadFile(filename)
	if err != nil {
		// If the file is not found, try loading from environment variables
		return loadConfigFromEnv()
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadConfigFromEnv loads the configuration from environment variables.
func loadConfigFromEnv() (*Config, error) {
	var cfg Config

	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWT.Secret = v
	}
	if v := os.Getenv("JWT_DEFAULT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_DEFAULT_TTL value: %w", err)
		}
		cfg.JWT.DefaultTTL = d
	}
	if v := os.Getenv("SCHEDULER_BACKEND"); v != "" {
		cfg.Scheduler.Backend = v
	}
	if err := envInt("CHECK_FREQUENCY_MINUTES", &cfg.Scheduler.CheckFrequencyMinutes); err != nil {
		return err
	}
	if err := envInt("ROUND1_VOTING_DAYS", &cfg.Competition.Round1VotingDays); err != nil {
		return err
	}
	if err := envInt("ROUND2_VOTING_DAYS", &cfg.Competition.Round2VotingDays); err != nil {
		return err
	}
	if err := envInt("COMPETITION_GROUP_SIZE", &cfg.Competition.GroupSize); err != nil {
		return err
	}
	if v := os.Getenv("AUTO_CREATE_MONTHLY"); v != "" {
		cfg.Competition.AutoCreateMonthly = v == "true"
	}
	if v := os.Getenv("ENV"); v != "" {
		cfg.Observability.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s value: %w", key, err)
	}
	*dst = n
	return nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.RateLimitPerSecond == 0 {
		c.HTTP.RateLimitPerSecond = 5
	}
	if c.HTTP.RateLimitBurst == 0 {
		c.HTTP.RateLimitBurst = 20
	}
	if c.JWT.DefaultTTL == 0 {
		c.JWT.DefaultTTL = 24 * time.Hour
	}
	if c.Scheduler.Backend == "" {
		c.Scheduler.Backend = SchedulerBackendRiver
	}
	if c.Scheduler.CheckFrequencyMinutes == 0 {
		c.Scheduler.CheckFrequencyMinutes = 60
	}
	if c.Scheduler.PageSize == 0 {
		c.Scheduler.PageSize = 50
	}
	if c.Scheduler.MaxWorkers == 0 {
		c.Scheduler.MaxWorkers = 4
	}
	if c.Scheduler.JobTimeout == 0 {
		c.Scheduler.JobTimeout = 30 * time.Minute
	}
	if c.Competition.MinSubmissions == 0 {
		c.Competition.MinSubmissions = 3
	}
	if c.Competition.GroupSize == 0 {
		c.Competition.GroupSize = 5
	}
	if c.Competition.AdvancePerGroup == 0 {
		c.Competition.AdvancePerGroup = 1
	}
	if c.Competition.Round1VotingDays == 0 {
		c.Competition.Round1VotingDays = 7
	}
	if c.Competition.Round2VotingDays == 0 {
		c.Competition.Round2VotingDays = 7
	}
	if c.Competition.MonthlySubmissionWindow == "" {
		c.Competition.MonthlySubmissionWindow = "in 3 weeks"
	}
	if c.Observability.ServiceName == "" {
		c.Observability.ServiceName = "beatclash"
	}
	if c.Observability.LogLevel == "" {
		c.Observability.LogLevel = "info"
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("postgres dsn is required")
	}
	switch c.Scheduler.Backend {
	case SchedulerBackendRiver, SchedulerBackendTicker:
	default:
		return fmt.Errorf("unknown scheduler backend %q", c.Scheduler.Backend)
	}
	if c.Scheduler.CheckFrequencyMinutes < 1 {
		return fmt.Errorf("check frequency must be at least one minute, got %d", c.Scheduler.CheckFrequencyMinutes)
	}
	if c.Competition.MinSubmissions < 2 {
		return fmt.Errorf("min submissions must be at least 2, got %d", c.Competition.MinSubmissions)
	}
	if c.Competition.GroupSize < 2 {
		return fmt.Errorf("group size must be at least 2, got %d", c.Competition.GroupSize)
	}
	if c.Competition.AdvancePerGroup < 1 {
		return fmt.Errorf("advance per group must be at least 1, got %d", c.Competition.AdvancePerGroup)
	}
	if c.Competition.Round1VotingDays < 0 || c.Competition.Round2VotingDays < 0 {
		return errors.New("voting durations cannot be negative")
	}
	return nil
}
