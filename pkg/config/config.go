package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Scheduling SchedulingConfig
	Absence    AbsenceConfig
	Reports    ReportsConfig
	Events     EventsConfig
	SeedAdmin  SeedAdminConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulingConfig controls how session drafts are gated.
type SchedulingConfig struct {
	// Timezone is the IANA zone used for weekday and "today" calculations.
	Timezone            string
	EnforceWindow       bool
	MaxRecurrenceWeeks  int
	DefaultDurationMins int
}

// AbsenceConfig toggles the background sweeper that persists Absent sessions.
type AbsenceConfig struct {
	Enabled  bool
	Interval time.Duration
	Workers  int
	Retries  int
}

// ReportsConfig governs report caching.
type ReportsConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// EventsConfig configures the NATS publisher. An empty URL disables publishing.
type EventsConfig struct {
	NATSURL       string
	SubjectPrefix string
}

// SeedAdminConfig is consumed by cmd/seed-admin.
type SeedAdminConfig struct {
	Name     string
	Email    string
	Password string
	Avatar   string
}

// Location resolves the configured scheduling timezone, falling back to UTC.
func (c SchedulingConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxWeeks := v.GetInt("MAX_RECURRENCE_WEEKS")
	if maxWeeks <= 0 {
		maxWeeks = 12
	}
	cfg.Scheduling = SchedulingConfig{
		Timezone:            v.GetString("SCHEDULE_TIMEZONE"),
		EnforceWindow:       v.GetBool("SCHEDULE_ENFORCE_WINDOW"),
		MaxRecurrenceWeeks:  maxWeeks,
		DefaultDurationMins: v.GetInt("SCHEDULE_DEFAULT_DURATION"),
	}

	cfg.Absence = AbsenceConfig{
		Enabled:  v.GetBool("ENABLE_ABSENCE_SWEEPER"),
		Interval: parseDuration(v.GetString("ABSENCE_SWEEP_INTERVAL"), 5*time.Minute),
		Workers:  v.GetInt("ABSENCE_SWEEP_WORKERS"),
		Retries:  v.GetInt("ABSENCE_SWEEP_RETRIES"),
	}

	cfg.Reports = ReportsConfig{
		CacheEnabled: v.GetBool("ENABLE_REPORT_CACHE"),
		CacheTTL:     parseDuration(v.GetString("REPORT_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Events = EventsConfig{
		NATSURL:       v.GetString("NATS_URL"),
		SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
	}

	cfg.SeedAdmin = SeedAdminConfig{
		Name:     v.GetString("SEED_ADMIN_NAME"),
		Email:    v.GetString("SEED_ADMIN_EMAIL"),
		Password: v.GetString("SEED_ADMIN_PASSWORD"),
		Avatar:   v.GetString("SEED_ADMIN_AVATAR"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "trainersamay")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SCHEDULE_TIMEZONE", "UTC")
	v.SetDefault("SCHEDULE_ENFORCE_WINDOW", false)
	v.SetDefault("MAX_RECURRENCE_WEEKS", 12)
	v.SetDefault("SCHEDULE_DEFAULT_DURATION", 60)

	v.SetDefault("ENABLE_ABSENCE_SWEEPER", true)
	v.SetDefault("ABSENCE_SWEEP_INTERVAL", "5m")
	v.SetDefault("ABSENCE_SWEEP_WORKERS", 1)
	v.SetDefault("ABSENCE_SWEEP_RETRIES", 3)

	v.SetDefault("ENABLE_REPORT_CACHE", false)
	v.SetDefault("REPORT_CACHE_TTL", "5m")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "trainersamay")

	v.SetDefault("SEED_ADMIN_NAME", "Admin")
	v.SetDefault("SEED_ADMIN_EMAIL", "admin@test.com")
	v.SetDefault("SEED_ADMIN_PASSWORD", "password")
	v.SetDefault("SEED_ADMIN_AVATAR", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
