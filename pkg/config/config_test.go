package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required config")
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "database_url")
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestNew_WithEnvVar(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://booklook@localhost/booklook")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "postgres://booklook@localhost/booklook", cfg.DatabaseURL)
	assert.Equal(t, "test-secret-key", cfg.JWTSecret)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "booklook.yaml")

	configContent := `
database_url: postgres://file@db/booklook
server_port: 8080
database_debug: true
jwt_secret: test-secret-from-file
redis_addr: redis:6379
cache_ttl: 15m
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "postgres://file@db/booklook", cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "booklook.yaml")

	configContent := `
database_url: postgres://file@db/booklook
server_port: 8080
jwt_secret: test-secret-from-file
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_URL", "postgres://env@db/booklook")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env@db/booklook", cfg.DatabaseURL)
	assert.Equal(t, 9090, cfg.ServerPort)
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://booklook@localhost/booklook")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.DatabaseConnectRetryCount)
	assert.Equal(t, 2*time.Second, cfg.DatabaseConnectRetryDelay)
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.False(t, cfg.DatabaseDebug)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 8000, cfg.ServerPort)
	assert.Equal(t, 300, cfg.WordsPerPage)
	assert.Equal(t, 10, cfg.MaxPageRangeSpan)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	t.Setenv("DATABASE_URL", "mysql://localhost")
	t.Setenv("DATABASE_DRIVER", "mysql")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database_driver")
}

func TestNew_WordsPerPageBelowOne(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://booklook@localhost/booklook")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("WORDS_PER_PAGE", "0")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Equal(t, "words_per_page must be at least 1", err.Error())
}

func TestValidate_NewForTest(t *testing.T) {
	assert.NoError(t, validate(NewForTest()))
}

func TestNewForTest(t *testing.T) {
	cfg := NewForTest()
	assert.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	assert.Equal(t, ":memory:", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Empty(t, cfg.RedisAddr)
}

func TestRetrieveReaderSettings(t *testing.T) {
	cfg := NewForTest()
	cfg.WordsPerPage = 140

	e := echo.New()
	RegisterRoutes(e, cfg)

	req := httptest.NewRequest(http.MethodGet, "/config/reader", nil)
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var settings ReaderSettings
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &settings))
	assert.Equal(t, 140, settings.WordsPerPage)
	assert.Equal(t, 10, settings.MaxPageRangeSpan)
}
