package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_FILE", filepath.Join(dir, "missing.toml"))
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, AuthProviderLocal, cfg.Auth.Provider)
	assert.Equal(t, LLMProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Equal(t, 40000, cfg.Upload.MaxDocumentChars)
	assert.Equal(t, 60*time.Second, cfg.GenerationTimeout())
	assert.Equal(t, "0.0.0.0:5000", cfg.HTTPAddr())
	assert.False(t, cfg.ArchiveEnabled())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9090

[llm]
provider = "openai"
model = "qwen3-max"

[database]
driver = "sqlite"
sqlite_path = "/tmp/chat.db"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("REDIS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, LLMProviderOpenAI, cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, DatabaseSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/chat.db", cfg.Database.SQLitePath)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)
	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("S3_BUCKET=chat-uploads\nLLM_API_KEY=from-dotenv\n"), 0o600))
	t.Setenv("ENV_FILE", envPath)
	t.Cleanup(func() {
		_ = os.Unsetenv("S3_BUCKET")
		_ = os.Unsetenv("LLM_API_KEY")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
	assert.True(t, cfg.ArchiveEnabled())
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Auth.Provider = AuthProviderFirebase
	assert.Error(t, cfg.Validate())
	cfg.Auth.FirebaseProjectID = "demo-project"
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "unknown"
	assert.Error(t, cfg.Validate())
	cfg.LLM.Provider = LLMProviderOpenAI

	cfg.Upload.MaxDocumentChars = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDefaultSecretOutsideDev(t *testing.T) {
	cfg := defaultConfig()
	require.Equal(t, "dev", cfg.App.Env)
	require.NoError(t, cfg.Validate())

	cfg.App.Env = "prod"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")

	cfg.Auth.JWTSecret = "a-real-secret"
	assert.NoError(t, cfg.Validate())

	cfg.Auth.JWTSecret = defaultJWTSecret
	cfg.Auth.Provider = AuthProviderFirebase
	cfg.Auth.FirebaseProjectID = "demo-project"
	assert.NoError(t, cfg.Validate())
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	isolate(t)
	t.Setenv("APP_ENV", "prod")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "rotated-secret")
	_, err = Load()
	assert.NoError(t, err)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT", "abc")
	assert.Equal(t, 7, getEnvAsInt("TEST_INT", 7))
	t.Setenv("TEST_INT", "42")
	assert.Equal(t, 42, getEnvAsInt("TEST_INT", 7))

	t.Setenv("TEST_BOOL", "nope")
	assert.True(t, getEnvAsBool("TEST_BOOL", true))
	t.Setenv("TEST_BOOL", "false")
	assert.False(t, getEnvAsBool("TEST_BOOL", true))
}
