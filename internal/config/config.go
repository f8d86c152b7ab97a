// Package config loads the service configuration from an optional YAML file,
// a .env file and environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/database"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	AI         AIConfig         `yaml:"ai"`
	Rasterizer RasterizerConfig `yaml:"rasterizer"`
	Patterns   PatternsConfig   `yaml:"patterns"`
	Review     ReviewConfig     `yaml:"review"`
	BudgetSync BudgetSyncConfig `yaml:"budget_sync"`
	Watch      WatchConfig      `yaml:"watch"`
}

type ServerConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	UploadDir     string        `yaml:"upload_dir"`
	MaxUploadSize int64         `yaml:"max_upload_size"`
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

type DatabaseConfig struct {
	Type     string `yaml:"type"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"-"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Path     string `yaml:"path"`
}

type AIConfig struct {
	Provider         string        `yaml:"provider"`
	OpenAIModel      string        `yaml:"openai_model"`
	OpenAIBaseURL    string        `yaml:"openai_base_url"`
	AnthropicModel   string        `yaml:"anthropic_model"`
	AnthropicBaseURL string        `yaml:"anthropic_base_url"`
	MaxTokens        int           `yaml:"max_tokens"`
	Timeout          time.Duration `yaml:"timeout"`

	// secrets only come from the environment
	OpenAIAPIKey    string `yaml:"-"`
	AnthropicAPIKey string `yaml:"-"`
}

type RasterizerConfig struct {
	Binary     string        `yaml:"binary"`
	TempDir    string        `yaml:"temp_dir"`
	Timeout    time.Duration `yaml:"timeout"`
	TempMaxAge time.Duration `yaml:"temp_max_age"`
}

type PatternsConfig struct {
	CacheSize int `yaml:"cache_size"`
}

type ReviewConfig struct {
	DuplicateLookback   time.Duration `yaml:"duplicate_lookback"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	AmountTolerance     float64       `yaml:"amount_tolerance"`
}

type BudgetSyncConfig struct {
	Enabled    *bool         `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	TouchedTTL time.Duration `yaml:"touched_ttl"`
}

// EnabledOrDefault reports whether the sync loop runs; defaults to true.
func (b BudgetSyncConfig) EnabledOrDefault() bool {
	if b.Enabled != nil {
		return *b.Enabled
	}
	return true
}

type WatchConfig struct {
	Directory  string        `yaml:"directory"`
	Extensions []string      `yaml:"extensions"`
	Debounce   time.Duration `yaml:"debounce"`
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A .env file in the working directory is
// loaded when present; variables already set win over it.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir := filepath.Dir(path)
		cfg.Server.UploadDir = expandPath(cfg.Server.UploadDir, configDir)
		cfg.Database.Path = expandPath(cfg.Database.Path, configDir)
		cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString("HOST", &cfg.Server.Host)
	setString("UPLOAD_DIR", &cfg.Server.UploadDir)
	setString("DB_TYPE", &cfg.Database.Type)
	setString("DB_HOST", &cfg.Database.Host)
	setString("DB_USER", &cfg.Database.User)
	setString("DB_PASSWORD", &cfg.Database.Password)
	setString("DB_NAME", &cfg.Database.Name)
	setString("DB_SSLMODE", &cfg.Database.SSLMode)
	setString("DB_PATH", &cfg.Database.Path)
	setString("AI_PROVIDER", &cfg.AI.Provider)
	setString("OPENAI_API_KEY", &cfg.AI.OpenAIAPIKey)
	setString("OPENAI_MODEL", &cfg.AI.OpenAIModel)
	setString("ANTHROPIC_API_KEY", &cfg.AI.AnthropicAPIKey)
	setString("ANTHROPIC_MODEL", &cfg.AI.AnthropicModel)
	setString("MAGICK_BINARY", &cfg.Rasterizer.Binary)
	setString("WATCH_DIR", &cfg.Watch.Directory)

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		cfg.Database.Port = port
	}
	if v := os.Getenv("MAX_UPLOAD_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
		}
		cfg.Server.MaxUploadSize = size
	}
	if v := os.Getenv("AI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AI_TIMEOUT: %w", err)
		}
		cfg.AI.Timeout = d
	}
	if v := os.Getenv("DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG: %w", err)
		}
		cfg.Debug = debug
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Database.Type {
	case database.TypeSQLite, database.TypePostgres:
	default:
		return fmt.Errorf("unsupported database type %q", c.Database.Type)
	}
	switch strings.ToLower(c.AI.Provider) {
	case ai.ProviderOpenAI, ai.ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported AI provider %q", c.AI.Provider)
	}
	if c.Review.SimilarityThreshold <= 0 || c.Review.SimilarityThreshold > 1 {
		return fmt.Errorf("review.similarity_threshold must be in (0, 1], got %v", c.Review.SimilarityThreshold)
	}
	return nil
}

func (c *Config) DatabaseConfig() database.Config {
	return database.Config{
		Type:       c.Database.Type,
		Host:       c.Database.Host,
		Port:       c.Database.Port,
		User:       c.Database.User,
		Password:   c.Database.Password,
		Name:       c.Database.Name,
		SSLMode:    c.Database.SSLMode,
		SQLitePath: c.Database.Path,
	}
}

func (c *Config) AIConfig() *ai.Config {
	return &ai.Config{
		Provider:         strings.ToLower(c.AI.Provider),
		OpenAIAPIKey:     c.AI.OpenAIAPIKey,
		OpenAIModel:      c.AI.OpenAIModel,
		OpenAIBaseURL:    c.AI.OpenAIBaseURL,
		AnthropicAPIKey:  c.AI.AnthropicAPIKey,
		AnthropicModel:   c.AI.AnthropicModel,
		AnthropicBaseURL: c.AI.AnthropicBaseURL,
		MaxTokens:        c.AI.MaxTokens,
		Timeout:          c.AI.Timeout,
	}
}

func (c *Config) RasterizerConfig() ai.RasterizerConfig {
	return ai.RasterizerConfig{
		Binary:  c.Rasterizer.Binary,
		TempDir: c.Rasterizer.TempDir,
		Timeout: c.Rasterizer.Timeout,
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// expandPath resolves "./" paths against the config file's directory.
func expandPath(path, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	return path
}
