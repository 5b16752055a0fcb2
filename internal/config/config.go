// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	LogLevel    string
	Server      ServerConfig
	Insights    InsightsConfig
	LLM         LLMConfig
	Analysis    AnalysisConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
	CorsOrigins    []string
	StaticDir      string
}

// InsightsConfig holds the remote insights API settings
type InsightsConfig struct {
	BaseURL     string
	APIKey      string
	HTTPTimeout time.Duration
	MaxAttempts int
	BackoffUnit time.Duration
}

// LLMConfig holds the language model settings
type LLMConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	HTTPTimeout  time.Duration
	MaxRetryTime time.Duration
	UseMock      bool
}

// AnalysisConfig holds request defaults for the pipeline
type AnalysisConfig struct {
	SampleCap            int
	DefaultLimit         int
	DefaultAnalysisLimit int
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	cfg := Config{
		Environment: getEnv("ENVIRONMENT", "local"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:           getEnv("PORT", "5000"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 110*time.Second),
			CorsOrigins:    getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
			StaticDir:      getEnv("STATIC_DIR", "static"),
		},
		Insights: InsightsConfig{
			BaseURL:     getEnv("QLOO_API_URL", "https://hackathon.api.qloo.com/v2/insights"),
			APIKey:      getEnv("QLOO_API_KEY", ""),
			HTTPTimeout: getEnvAsDuration("QLOO_HTTP_TIMEOUT", 20*time.Second),
			MaxAttempts: getEnvAsInt("QLOO_MAX_ATTEMPTS", 3),
			BackoffUnit: getEnvAsDuration("QLOO_BACKOFF_UNIT", time.Second),
		},
		LLM: LLMConfig{
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			HTTPTimeout:  getEnvAsDuration("OPENAI_HTTP_TIMEOUT", 60*time.Second),
			MaxRetryTime: getEnvAsDuration("OPENAI_MAX_RETRY_TIME", 90*time.Second),
			UseMock:      getEnvAsBool("USE_MOCK_LLM", false),
		},
		Analysis: AnalysisConfig{
			SampleCap:            getEnvAsInt("SUMMARY_SAMPLE_CAP", 20),
			DefaultLimit:         getEnvAsInt("DEFAULT_LIMIT", 20),
			DefaultAnalysisLimit: getEnvAsInt("DEFAULT_ANALYSIS_LIMIT", 30),
		},
	}

	return cfg, validate(cfg)
}

// validate checks if config is valid
func validate(cfg Config) error {
	if cfg.Insights.MaxAttempts < 1 {
		return fmt.Errorf("QLOO_MAX_ATTEMPTS must be at least 1, got %d", cfg.Insights.MaxAttempts)
	}
	if cfg.Insights.BackoffUnit < 0 {
		return fmt.Errorf("QLOO_BACKOFF_UNIT must not be negative")
	}
	if cfg.Analysis.SampleCap < 1 {
		return fmt.Errorf("SUMMARY_SAMPLE_CAP must be at least 1, got %d", cfg.Analysis.SampleCap)
	}
	if cfg.Analysis.DefaultLimit < 1 || cfg.Analysis.DefaultAnalysisLimit < 1 {
		return fmt.Errorf("default limits must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
