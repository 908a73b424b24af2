package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Forecast weighting policies accepted by FORECAST_POLICY.
const (
	ForecastUnweighted       = "unweighted"
	ForecastDealProbability  = "deal_probability"
	ForecastStageProbability = "stage_probability"
)

type Config struct {
	Env         string `yaml:"env"`
	ListenAddr  string `yaml:"listen_addr"`
	DatabaseURL string `yaml:"database_url"`
	AutoMigrate bool   `yaml:"auto_migrate"`

	ReportWorkers int           `yaml:"report_workers"`
	ReportTimeout time.Duration `yaml:"report_timeout"`

	SummarizerURL    string `yaml:"summarizer_url"`
	SummarizerAPIKey string `yaml:"summarizer_api_key"`

	JWTSecret string `yaml:"jwt_secret"`

	UrgentWithinDays int    `yaml:"urgent_within_days"`
	ForecastPolicy   string `yaml:"forecast_policy"`
	Timezone         string `yaml:"timezone"`

	Log LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
	Dir    string `yaml:"dir"`
}

func defaults() Config {
	return Config{
		Env:              "development",
		ListenAddr:       ":8080",
		AutoMigrate:      true,
		ReportWorkers:    0,
		ReportTimeout:    20 * time.Second,
		UrgentWithinDays: 3,
		ForecastPolicy:   ForecastStageProbability,
		Timezone:         "UTC",
		Log:              LogConfig{Level: "info", Format: "text"},
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Load layers defaults, an optional YAML file (LUMEN_CONFIG_PATH) and the
// environment, in that order. A .env file in the working directory is read
// first when present; real environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("LUMEN_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Env = getenv("APP_ENV", cfg.Env)
	cfg.ListenAddr = getenv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AutoMigrate = getenvBool("AUTO_MIGRATE", cfg.AutoMigrate)
	cfg.ReportWorkers = getenvInt("REPORT_WORKERS", cfg.ReportWorkers)
	cfg.ReportTimeout = getenvDuration("REPORT_TIMEOUT", cfg.ReportTimeout)
	cfg.SummarizerURL = getenv("SUMMARIZER_URL", cfg.SummarizerURL)
	cfg.SummarizerAPIKey = getenv("SUMMARIZER_API_KEY", cfg.SummarizerAPIKey)
	cfg.JWTSecret = getenv("JWT_SECRET", cfg.JWTSecret)
	cfg.UrgentWithinDays = getenvInt("URGENT_WITHIN_DAYS", cfg.UrgentWithinDays)
	cfg.ForecastPolicy = getenv("FORECAST_POLICY", cfg.ForecastPolicy)
	cfg.Timezone = getenv("TIMEZONE", cfg.Timezone)
	cfg.Log.Level = getenv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.Dir = getenv("LOG_DIR", cfg.Log.Dir)

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	if cfg.DatabaseURL == "" {
		// Not fatal for early local runs; warn via error value so callers can decide.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) validate() error {
	switch c.ForecastPolicy {
	case ForecastUnweighted, ForecastDealProbability, ForecastStageProbability:
	default:
		return fmt.Errorf("invalid FORECAST_POLICY %q", c.ForecastPolicy)
	}
	if c.UrgentWithinDays < 0 {
		return fmt.Errorf("URGENT_WITHIN_DAYS must not be negative")
	}
	if c.ReportTimeout <= 0 {
		return fmt.Errorf("REPORT_TIMEOUT must be positive")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		_, err := fmt.Sscanf(v, "%d", &out)
		if err == nil {
			return out
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Console is the terminal client's configuration.
type Console struct {
	APIURL  string
	Token   string
	Timeout time.Duration
}

func LoadConsole() Console {
	_ = godotenv.Load()
	return Console{
		APIURL:  strings.TrimRight(getenv("LUMEN_API_URL", "http://localhost:8080"), "/"),
		Token:   os.Getenv("LUMEN_TOKEN"),
		Timeout: getenvDuration("LUMEN_REQUEST_TIMEOUT", 30*time.Second),
	}
}
