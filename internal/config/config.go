// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes quiz-core settings
// such as rate-limit caps, session deadlines, outbound pacing, logging, and
// the database path.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the quiz core.
type Config struct {
	// Logging
	LogLevel  string // debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// App
	DBPath string // SQLite path

	// Rate limiting (quota policies, persisted per user)
	DailyCap      int // free-tier questions per calendar day
	HourlyCap     int // paid-tier questions per rolling hour
	MaxPerRequest int // per-request question ceiling, regardless of tier

	// Sessions
	PerQuestionAllowance time.Duration // deadline contribution per dispatched question

	// Outbound
	ChunkSize int     // max bytes per outbound message
	SendRPS   float64 // outbound calls per second (>= 0)
	SendBurst int     // outbound burst size (>= 1)

	// Plans
	UnlimitedPlanDays int // default length of a granted unlimited plan

	// Admin
	AdminChatID int64 // destination for NotifyAdmin events; 0 disables

	// Scheduler
	ResetTZ string // IANA zone for midnight resets; empty means process-local
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
// A .env file in the working directory is honored when present.
func Load() (Config, error) {
	_ = godotenv.Load() // best-effort; absence of .env is the normal case

	cfg := Config{
		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		// App
		DBPath: getenv("DB_PATH", "quiz.db"),

		// Rate limiting
		DailyCap:      getint("DAILY_CAP", 30),
		HourlyCap:     getint("HOURLY_CAP", 60),
		MaxPerRequest: getint("MAX_PER_REQUEST", 15),

		// Sessions
		PerQuestionAllowance: getdur("PER_QUESTION_ALLOWANCE", 30*time.Second),

		// Outbound
		ChunkSize: getint("CHUNK_SIZE", 4096),
		SendRPS:   getfloat("SEND_RPS", 25.0),
		SendBurst: getint("SEND_BURST", 5),

		// Plans
		UnlimitedPlanDays: getint("UNLIMITED_PLAN_DAYS", 30),

		// Admin
		AdminChatID: getint64("ADMIN_CHAT_ID", 0),

		// Scheduler
		ResetTZ: strings.TrimSpace(getenv("RESET_TZ", "")),
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if cfg.DailyCap < 1 {
		return cfg, errors.New("DAILY_CAP must be >= 1")
	}
	if cfg.HourlyCap < 1 {
		return cfg, errors.New("HOURLY_CAP must be >= 1")
	}
	if cfg.MaxPerRequest < 1 {
		return cfg, errors.New("MAX_PER_REQUEST must be >= 1")
	}
	if cfg.PerQuestionAllowance <= 0 {
		return cfg, errors.New("PER_QUESTION_ALLOWANCE must be a positive duration")
	}
	if cfg.ChunkSize < 1 {
		return cfg, errors.New("CHUNK_SIZE must be >= 1")
	}
	if cfg.SendRPS < 0 {
		return cfg, errors.New("SEND_RPS must be >= 0")
	}
	if cfg.SendBurst < 1 {
		return cfg, errors.New("SEND_BURST must be >= 1")
	}
	if cfg.UnlimitedPlanDays < 1 {
		return cfg, errors.New("UNLIMITED_PLAN_DAYS must be >= 1")
	}
	if cfg.ResetTZ != "" {
		if _, err := time.LoadLocation(cfg.ResetTZ); err != nil {
			return cfg, errors.New("RESET_TZ must be a valid IANA zone name")
		}
	}

	return cfg, nil
}

// ResetLocation resolves the scheduler zone, falling back to process-local
// time when RESET_TZ is unset or unknown.
func (c Config) ResetLocation() *time.Location {
	if c.ResetTZ == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.ResetTZ)
	if err != nil {
		return time.Local
	}
	return loc
}

// ---- helpers (no reflection, no external parsing deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getint64(k string, def int64) int64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
