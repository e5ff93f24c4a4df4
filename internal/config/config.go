package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App           App           `mapstructure:"app"`
	AI            AI            `mapstructure:"ai"`
	Pipeline      Pipeline      `mapstructure:"pipeline"`
	Firmographics Firmographics `mapstructure:"firmographics"`
	Database      Database      `mapstructure:"database"`
	Server        Server        `mapstructure:"server"`
	Analytics     Analytics     `mapstructure:"analytics"`
	Logging       Logging       `mapstructure:"logging"`
}

// App holds general application configuration
type App struct {
	Debug       bool   `mapstructure:"debug"`
	Environment string `mapstructure:"environment"` // development or production
	ConfigFile  string `mapstructure:"config_file"`
}

// AI holds model provider configuration
type AI struct {
	Provider string       `mapstructure:"provider"` // gemini or openai
	Gemini   GeminiConfig `mapstructure:"gemini"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Backend     string  `mapstructure:"backend"` // gemini_api or vertex
	Project     string  `mapstructure:"project"`
	Location    string  `mapstructure:"location"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// OpenAIConfig holds configuration for any OpenAI-compatible endpoint
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// Pipeline holds report synthesis tuning
type Pipeline struct {
	CallTimeout        string `mapstructure:"call_timeout"`
	MaxConcurrency     int    `mapstructure:"max_concurrency"` // per batch, 0 = unbounded
	RPM                int    `mapstructure:"rpm"`
	Burst              int    `mapstructure:"burst"`
	KeywordCount       int    `mapstructure:"keyword_count"`
	ReferringDomainCap int    `mapstructure:"referring_domain_cap"`
}

// Firmographics holds firmographic data source configuration
type Firmographics struct {
	Mode     string `mapstructure:"mode"` // live or cache
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	CacheDir string `mapstructure:"cache_dir"`
	StoreDir string `mapstructure:"store_dir"`
	TTL      string `mapstructure:"ttl"`
	Timeout  string `mapstructure:"timeout"`
}

// Database holds Postgres configuration
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
	SaveTimeout      string `mapstructure:"save_timeout"`
}

// Server holds HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin configuration
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Analytics holds PostHog configuration
type Analytics struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Host    string `mapstructure:"host"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".profici")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.environment", "development")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.backend", "gemini_api")
	viper.SetDefault("ai.gemini.location", "europe-west2")
	viper.SetDefault("ai.gemini.max_tokens", 8192)
	viper.SetDefault("ai.gemini.temperature", 0.4)
	viper.SetDefault("ai.openai.model", "gpt-4o-mini")
	viper.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")

	viper.SetDefault("pipeline.call_timeout", "90s")
	viper.SetDefault("pipeline.max_concurrency", 0)
	viper.SetDefault("pipeline.rpm", 600)
	viper.SetDefault("pipeline.burst", 17)
	viper.SetDefault("pipeline.keyword_count", 20)
	viper.SetDefault("pipeline.referring_domain_cap", 100)

	viper.SetDefault("firmographics.mode", "cache")
	viper.SetDefault("firmographics.cache_dir", "data/firmographics")
	viper.SetDefault("firmographics.store_dir", ".profici-cache")
	viper.SetDefault("firmographics.ttl", "168h")
	viper.SetDefault("firmographics.timeout", "20s")

	viper.SetDefault("database.save_timeout", "15s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "300s")
	viper.SetDefault("server.shutdown_timeout", "30s")
	viper.SetDefault("server.request_timeout", "280s")
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("analytics.enabled", false)
	viper.SetDefault("analytics.host", "https://eu.i.posthog.com")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.gemini.project", []string{
		"GOOGLE_CLOUD_PROJECT",
		"GCLOUD_PROJECT",
	})

	bindEnvKeys("ai.gemini.location", []string{
		"GOOGLE_CLOUD_LOCATION",
		"GOOGLE_CLOUD_REGION",
	})

	bindEnvKeys("ai.openai.api_key", []string{
		"OPENAI_API_KEY",
	})

	bindEnvKeys("firmographics.api_key", []string{
		"FIRMOGRAPHICS_API_KEY",
		"ENRICHMENT_API_KEY",
	})

	bindEnvKeys("database.connection_string", []string{
		"DATABASE_URL",
		"POSTGRES_URL",
	})

	bindEnvKeys("analytics.api_key", []string{
		"POSTHOG_API_KEY",
	})

	bindEnvKeys("app.environment", []string{
		"APP_ENV",
		"GO_ENV",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"PROFICI_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.Firmographics.CacheDir != "" {
		config.Firmographics.CacheDir = expandPath(config.Firmographics.CacheDir)
	}
	if config.Firmographics.StoreDir != "" {
		config.Firmographics.StoreDir = expandPath(config.Firmographics.StoreDir)
	}

	durations := map[string]string{
		"pipeline.call_timeout": config.Pipeline.CallTimeout,
		"firmographics.ttl":     config.Firmographics.TTL,
		"firmographics.timeout": config.Firmographics.Timeout,
		"database.save_timeout": config.Database.SaveTimeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures structural configuration is coherent.
// Provider credentials are deliberately not required here: they are checked
// when a report is requested so a missing key surfaces on that request.
func validateConfig(config *Config) error {
	var errors []string

	switch config.AI.Provider {
	case "gemini", "openai":
	default:
		errors = append(errors, fmt.Sprintf("Unknown AI provider: %s. Supported: gemini, openai", config.AI.Provider))
	}

	switch config.AI.Gemini.Backend {
	case "gemini_api", "vertex":
	default:
		errors = append(errors, fmt.Sprintf("Unknown Gemini backend: %s. Supported: gemini_api, vertex", config.AI.Gemini.Backend))
	}

	switch config.Firmographics.Mode {
	case "cache":
	case "live":
		if config.Firmographics.BaseURL == "" {
			errors = append(errors, "firmographics.base_url is required when firmographics.mode is live")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown firmographics mode: %s. Supported: live, cache", config.Firmographics.Mode))
	}

	if config.Pipeline.MaxConcurrency < 0 {
		errors = append(errors, "pipeline.max_concurrency cannot be negative")
	}
	if config.Pipeline.ReferringDomainCap <= 0 {
		errors = append(errors, "pipeline.referring_domain_cap must be positive")
	}

	if config.Analytics.Enabled && config.Analytics.APIKey == "" {
		errors = append(errors, "PostHog analytics enabled but no API key set. Set POSTHOG_API_KEY")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// CallTimeoutDuration returns the per-call model deadline.
func (p Pipeline) CallTimeoutDuration() time.Duration {
	return parseDurationOr(p.CallTimeout, 90*time.Second)
}

// TTLDuration returns the firmographic cache TTL.
func (f Firmographics) TTLDuration() time.Duration {
	return parseDurationOr(f.TTL, 7*24*time.Hour)
}

// TimeoutDuration returns the live firmographic request timeout.
func (f Firmographics) TimeoutDuration() time.Duration {
	return parseDurationOr(f.Timeout, 20*time.Second)
}

// SaveTimeoutDuration bounds the fire-and-forget report write.
func (d Database) SaveTimeoutDuration() time.Duration {
	return parseDurationOr(d.SaveTimeout, 15*time.Second)
}

// IsProduction reports whether the app runs in production mode.
func (a App) IsProduction() bool {
	return strings.EqualFold(a.Environment, "production")
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}
