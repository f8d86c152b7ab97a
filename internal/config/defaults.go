package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/ai"
	"github.com/kdimtricp/budgetmanager/internal/database"
)

const (
	DefaultMaxUploadSize = 10 << 20
	DefaultPort          = 8080
)

var defaultWatchExtensions = []string{".pdf", ".jpg", ".jpeg", ".png"}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = "./uploads"
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = DefaultMaxUploadSize
	}
	if cfg.Server.ShutdownGrace == 0 {
		cfg.Server.ShutdownGrace = 15 * time.Second
	}

	if cfg.Database.Type == "" {
		cfg.Database.Type = database.TypeSQLite
	}
	if cfg.Database.Type == database.TypePostgres {
		if cfg.Database.Host == "" {
			cfg.Database.Host = "localhost"
		}
		if cfg.Database.Port == 0 {
			cfg.Database.Port = 5432
		}
		if cfg.Database.User == "" {
			cfg.Database.User = "budget"
		}
		if cfg.Database.Name == "" {
			cfg.Database.Name = "budgetmanager"
		}
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./budgetmanager.db"
	}

	aiDefaults := ai.NewConfig()
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = aiDefaults.Provider
	}
	if cfg.AI.OpenAIModel == "" {
		cfg.AI.OpenAIModel = aiDefaults.OpenAIModel
	}
	if cfg.AI.AnthropicModel == "" {
		cfg.AI.AnthropicModel = aiDefaults.AnthropicModel
	}
	if cfg.AI.MaxTokens == 0 {
		cfg.AI.MaxTokens = aiDefaults.MaxTokens
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = aiDefaults.Timeout
	}

	if cfg.Rasterizer.TempDir == "" {
		cfg.Rasterizer.TempDir = filepath.Join(os.TempDir(), "budgetmanager-pdf")
	}
	if cfg.Rasterizer.Timeout == 0 {
		cfg.Rasterizer.Timeout = 30 * time.Second
	}
	if cfg.Rasterizer.TempMaxAge == 0 {
		cfg.Rasterizer.TempMaxAge = 24 * time.Hour
	}

	if cfg.Patterns.CacheSize == 0 {
		cfg.Patterns.CacheSize = 256
	}

	if cfg.Review.DuplicateLookback == 0 {
		cfg.Review.DuplicateLookback = 365 * 24 * time.Hour
	}
	if cfg.Review.SimilarityThreshold == 0 {
		cfg.Review.SimilarityThreshold = 0.8
	}
	if cfg.Review.AmountTolerance == 0 {
		cfg.Review.AmountTolerance = 0.01
	}

	if cfg.BudgetSync.Interval == 0 {
		cfg.BudgetSync.Interval = 5 * time.Minute
	}
	if cfg.BudgetSync.TouchedTTL == 0 {
		cfg.BudgetSync.TouchedTTL = time.Hour
	}

	if len(cfg.Watch.Extensions) == 0 {
		cfg.Watch.Extensions = append([]string(nil), defaultWatchExtensions...)
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
