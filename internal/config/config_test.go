package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "file::memory:")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("DB_DRIVER", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Origins())
	assert.Equal(t, 15*time.Second, cfg.RegistrationDeadline())
}

func TestLoadReadsDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DSN=dsn-from-file\nJWT_SECRET=s\nCORS_ORIGINS=http://a, http://b\nBUSINESS_REGISTRATION_TIMEOUT=3s\n"), 0o600))
	t.Setenv("DB_DSN", "")
	os.Unsetenv("DB_DSN")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("CORS_ORIGINS", "")
	os.Unsetenv("CORS_ORIGINS")
	t.Setenv("BUSINESS_REGISTRATION_TIMEOUT", "")
	os.Unsetenv("BUSINESS_REGISTRATION_TIMEOUT")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dsn-from-file", cfg.DBDSN)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins())
	assert.Equal(t, 3*time.Second, cfg.RegistrationDeadline())
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")
	_, err := Load(filepath.Join(t.TempDir(), "none.env"))
	assert.Error(t, err)
}
