package config

import (
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "DB_DRIVER", "DB_PATH", "DATABASE_URL", "SCORING_POLICY",
		"REFRESH_INTERVAL", "CORS_ORIGINS", "MAX_BODY_BYTES", "APP_ENV"} {
		t.Setenv(key, "")
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse(nil)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.Driver)
	assert.Equal(t, "certs.db", cfg.DBPath)
	assert.Equal(t, "balanced", cfg.ScoringPolicy)
	assert.Zero(t, cfg.RefreshInterval)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.CORSOrigins)
	assert.False(t, cfg.IsDevelopment())
}

func TestParse_EnvironmentThenFlags(t *testing.T) {
	// GIVEN: Environment values
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("REFRESH_INTERVAL", "15m")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("APP_ENV", "development")

	// WHEN: A flag overrides the port
	cfg, err := Parse([]string{"-port", "9100", "-scoring", "tenure-weighted"})

	// THEN: Flags win over the environment
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, 15*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "tenure-weighted", cfg.ScoringPolicy)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestParse_ExtraFlags(t *testing.T) {
	clearEnv(t)
	var file string

	_, err := Parse([]string{"-file", "people.json"}, func(fs *flag.FlagSet) {
		fs.StringVar(&file, "file", "", "input")
	})

	require.NoError(t, err)
	assert.Equal(t, "people.json", file)
}

func TestValidate(t *testing.T) {
	valid := Config{Port: 8080, Driver: DriverSQLite, DBPath: "x.db", MaxBodyBytes: 1, Environment: "production"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 0 }},
		{"driver", func(c *Config) { c.Driver = "mysql" }},
		{"sqlite path", func(c *Config) { c.DBPath = " " }},
		{"postgres url", func(c *Config) { c.Driver = DriverPostgres }},
		{"interval", func(c *Config) { c.RefreshInterval = -time.Second }},
		{"body limit", func(c *Config) { c.MaxBodyBytes = 0 }},
		{"environment", func(c *Config) { c.Environment = "staging" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
