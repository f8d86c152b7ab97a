package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kdimtricp/budgetmanager/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"HOST", "PORT", "UPLOAD_DIR", "MAX_UPLOAD_SIZE", "DEBUG",
		"DB_TYPE", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "DB_PATH",
		"AI_PROVIDER", "AI_TIMEOUT", "OPENAI_API_KEY", "OPENAI_MODEL", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
		"MAGICK_BINARY", "WATCH_DIR",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	// keep a stray .env in the package dir out of the picture
	chdir(t, t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, int64(DefaultMaxUploadSize), cfg.Server.MaxUploadSize)
	assert.Equal(t, database.TypeSQLite, cfg.Database.Type)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, 120*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Rasterizer.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Rasterizer.TempMaxAge)
	assert.Equal(t, 0.8, cfg.Review.SimilarityThreshold)
	assert.True(t, cfg.BudgetSync.EnabledOrDefault())
	assert.Equal(t, []string{".pdf", ".jpg", ".jpeg", ".png"}, cfg.Watch.Extensions)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
debug: true
server:
  port: 9000
  upload_dir: ./data/uploads
database:
  type: postgres
  name: budget_test
ai:
  provider: anthropic
  timeout: 45s
review:
  similarity_threshold: 0.9
budget_sync:
  enabled: false
  interval: 1m
`), 0o644))

	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, 9100, cfg.Server.Port, "env wins over file")
	assert.Equal(t, filepath.Join(dir, "data/uploads"), cfg.Server.UploadDir)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.False(t, cfg.BudgetSync.EnabledOrDefault())
	assert.Equal(t, time.Minute, cfg.BudgetSync.Interval)

	db := cfg.DatabaseConfig()
	assert.Equal(t, database.TypePostgres, db.Type)
	assert.Equal(t, "localhost", db.Host)
	assert.Equal(t, 5432, db.Port)
	assert.Equal(t, "budget_test", db.Name)
	assert.Equal(t, "secret", db.Password)

	aiCfg := cfg.AIConfig()
	assert.Equal(t, "anthropic", aiCfg.Provider)
	assert.Equal(t, "sk-ant", aiCfg.AnthropicAPIKey)
	assert.Equal(t, 4000, aiCfg.MaxTokens)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.WriteFile(".env", []byte("OPENAI_API_KEY=sk-dotenv\nDEBUG=true\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("OPENAI_API_KEY")
		os.Unsetenv("DEBUG")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-dotenv", cfg.AI.OpenAIAPIKey)
	assert.True(t, cfg.Debug)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad port", env: map[string]string{"PORT": "eighty"}},
		{name: "bad db type", env: map[string]string{"DB_TYPE": "mysql"}},
		{name: "bad provider", env: map[string]string{"AI_PROVIDER": "gemini"}},
		{name: "bad timeout", env: map[string]string{"AI_TIMEOUT": "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.Error(t, err)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
