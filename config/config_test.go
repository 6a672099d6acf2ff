package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("TOKEN_TTL", "")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.True(t, cfg.EnableScenarios)
	assert.Equal(t, 26*time.Hour, cfg.MaxShiftAge)
}

func TestLoad_EnvParsing(t *testing.T) {
	t.Setenv("LOGIN_WINDOW", "90")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ALLOW_ADMIN_ON_BEHALF", "true")

	cfg := Load()
	assert.Equal(t, 90*time.Second, cfg.LoginWindow)
	assert.Equal(t, 300, cfg.GlobalRateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.AllowAdminOnBehalf)
}

func TestValidate_Production(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ENABLE_SCENARIOS", "")

	cfg := Load()
	assert.False(t, cfg.EnableScenarios)
	assert.EqualError(t, cfg.Validate(), "JWT_SECRET is required")

	cfg.JWTSecret = "s3cret"
	cfg.DBDriver = DriverPostgres
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg.DatabaseURL = "postgres://localhost/hotel"
	assert.NoError(t, cfg.Validate())
}

func TestAddFlags_OverrideEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	cfg := Load()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "9100", "--db-path", ":memory:", "--seed", "alpha"}))

	assert.Equal(t, "9100", cfg.HTTPPort)
	assert.Equal(t, ":memory:", cfg.DBPath)
	assert.Equal(t, "alpha", cfg.SeedScenario)
}
