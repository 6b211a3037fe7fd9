package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/regimen-health/regimen/internal/errors"
)

// Config holds all configuration for the regimen service
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Security    SecurityConfig    `mapstructure:"security"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Suggestions SuggestionsConfig `mapstructure:"suggestions"`
	Vector      VectorConfig      `mapstructure:"vector"`
	Reminders   RemindersConfig   `mapstructure:"reminders"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// StorageConfig holds database settings
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir"`
	SQLitePath string `mapstructure:"sqlite_path"`
	BadgerPath string `mapstructure:"badger_path"`
}

// SecurityConfig holds security settings
type SecurityConfig struct {
	JWTSecret    string   `mapstructure:"jwt_secret"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LLMConfig holds language model settings
type LLMConfig struct {
	DefaultProvider string              `mapstructure:"default_provider"`
	Providers       map[string]Provider `mapstructure:"providers"`
}

// Provider holds individual LLM provider configuration
type Provider struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	Timeout   int    `mapstructure:"timeout"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// SuggestionsConfig holds treatment suggestion settings
type SuggestionsConfig struct {
	Enabled       bool    `mapstructure:"enabled"`
	CacheTTLHours int     `mapstructure:"cache_ttl_hours"`
	Count         int     `mapstructure:"count"`
	RatePerMinute float64 `mapstructure:"rate_per_minute"`
	RateBurst     int     `mapstructure:"rate_burst"`
}

// VectorConfig holds corpus similarity search settings
type VectorConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Provider       string `mapstructure:"provider"` // local, openai
	Dimension      int    `mapstructure:"dimension"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	OpenAIAPIKey   string `mapstructure:"openai_api_key"`
	TopK           int    `mapstructure:"top_k"`
}

// RemindersConfig holds daily reminder job settings
type RemindersConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"` // standard cron expression
	Timezone string `mapstructure:"timezone"`
	SMTP     SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig holds outbound mail settings for reminders
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// Load loads configuration from file, env, and defaults
func Load(configPath, dataDir string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if dataDir == "" {
		dataDir = getDefaultDataDir()
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	v.Set("storage.data_dir", dataDir)
	v.Set("storage.sqlite_path", filepath.Join(dataDir, "regimen.db"))
	v.Set("storage.badger_path", filepath.Join(dataDir, "badger"))

	if configPath == "" {
		configPath = filepath.Join(dataDir, "regimen.yaml")
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Environment variables (REGIMEN_SERVER_PORT, REGIMEN_SECURITY_JWT_SECRET, etc.)
	v.SetEnvPrefix("REGIMEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30)
	v.SetDefault("server.write_timeout", 30)

	v.SetDefault("security.allow_origins", []string{"*"})

	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.providers.openai.model", "gpt-4o")
	v.SetDefault("llm.providers.openai.timeout", 60)
	v.SetDefault("llm.providers.openai.max_tokens", 2048)

	v.SetDefault("suggestions.enabled", true)
	v.SetDefault("suggestions.cache_ttl_hours", 24)
	v.SetDefault("suggestions.count", 5)
	v.SetDefault("suggestions.rate_per_minute", 10)
	v.SetDefault("suggestions.rate_burst", 3)

	v.SetDefault("vector.enabled", false)
	v.SetDefault("vector.provider", "local")
	v.SetDefault("vector.dimension", 384)
	v.SetDefault("vector.embedding_model", "text-embedding-3-small")
	v.SetDefault("vector.top_k", 3)

	v.SetDefault("reminders.enabled", false)
	v.SetDefault("reminders.schedule", "0 8 * * *")
	v.SetDefault("reminders.timezone", "Local")
	v.SetDefault("reminders.smtp.port", 587)
}

func getDefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "regimen")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}

	return filepath.Join(home, ".local", "share", "regimen")
}

// loadEnvOverrides loads specific env vars that Viper doesn't handle well with nested maps
func loadEnvOverrides(cfg *Config) {
	getEnv := func(key, fallback string) string {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return fallback
	}

	cfg.LLM.DefaultProvider = getEnv("REGIMEN_LLM_DEFAULT_PROVIDER", cfg.LLM.DefaultProvider)

	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]Provider)
	}

	if apiKey := os.Getenv("REGIMEN_LLM_PROVIDERS_OPENAI_API_KEY"); apiKey != "" {
		p := cfg.LLM.Providers["openai"]
		p.APIKey = apiKey
		p.BaseURL = getEnv("REGIMEN_LLM_PROVIDERS_OPENAI_BASE_URL", p.BaseURL)
		p.Model = getEnv("REGIMEN_LLM_PROVIDERS_OPENAI_MODEL", p.Model)
		cfg.LLM.Providers["openai"] = p
	}

	cfg.Server.Address = getEnv("REGIMEN_SERVER_ADDRESS", cfg.Server.Address)
	if port := os.Getenv("REGIMEN_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	cfg.Storage.DataDir = getEnv("REGIMEN_STORAGE_DATA_DIR", cfg.Storage.DataDir)
	cfg.Security.JWTSecret = getEnv("REGIMEN_SECURITY_JWT_SECRET", cfg.Security.JWTSecret)
	cfg.Vector.OpenAIAPIKey = getEnv("REGIMEN_VECTOR_OPENAI_API_KEY", cfg.Vector.OpenAIAPIKey)
	cfg.Reminders.SMTP.Password = getEnv("REGIMEN_REMINDERS_SMTP_PASSWORD", cfg.Reminders.SMTP.Password)
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return apperrors.Wrap(nil, apperrors.ErrConfigInvalid.Code, fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}

	// A missing LLM API key is not a boot error; the suggestions endpoint
	// reports LLM_001 at request time so the tracker itself still works.
	if cfg.Suggestions.Enabled {
		if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok {
			cfg.Suggestions.Enabled = false
		}
	}

	return nil
}

// DefaultProvider returns the configured default LLM provider
func (c *Config) DefaultProvider() (Provider, error) {
	p, ok := c.LLM.Providers[c.LLM.DefaultProvider]
	if !ok {
		return Provider{}, apperrors.ErrProviderNotConfigured
	}
	return p, nil
}
