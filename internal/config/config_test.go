package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 3.0, c.TargetPct)
	assert.Equal(t, 2.0, c.SLPct)
	assert.Equal(t, 30, c.HorizonDays)
	assert.Equal(t, 7, c.LookupWindowDays)
	assert.Equal(t, ".NS", c.ExchangeSuffix)
	assert.Equal(t, 8, c.Workers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("TARGET_PCT", "5")
	t.Setenv("SL_PCT", " 1.5 ")
	t.Setenv("WORKERS", "3")
	t.Setenv("HTTP_TIMEOUT", "2s")
	t.Setenv("PRICE_SOURCE", "memory")
	t.Setenv("EXCHANGE_SUFFIX", "")

	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5.0, c.TargetPct)
	assert.Equal(t, 1.5, c.SLPct)
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, 2*time.Second, c.HTTPTimeout)
	assert.Equal(t, SourceMemory, c.PriceSource)
	assert.Equal(t, ".NS", c.ExchangeSuffix, "empty variable keeps default")
}

func TestFromEnv_Malformed(t *testing.T) {
	t.Setenv("TARGET_PCT", "three")
	t.Setenv("HORIZON_DAYS", "30d")

	_, err := FromEnv()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "TARGET_PCT")
	assert.Contains(t, err.Error(), "HORIZON_DAYS")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"target at bound", func(c *Config) { c.TargetPct = 50 }, true},
		{"target zero", func(c *Config) { c.TargetPct = 0 }, false},
		{"target over bound", func(c *Config) { c.TargetPct = 50.01 }, false},
		{"negative stop", func(c *Config) { c.SLPct = -1 }, false},
		{"zero horizon", func(c *Config) { c.HorizonDays = 0 }, false},
		{"zero window", func(c *Config) { c.LookupWindowDays = 0 }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, false},
		{"unknown source", func(c *Config) { c.PriceSource = "bloomberg" }, false},
		{"clickhouse without dsn", func(c *Config) { c.PriceSource = SourceClickhouse }, false},
		{"clickhouse with dsn", func(c *Config) {
			c.PriceSource = SourceClickhouse
			c.ClickhouseDSN = "clickhouse://localhost:9000/default"
		}, true},
		{"memory source", func(c *Config) { c.PriceSource = SourceMemory; c.YahooBaseURL = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nLOOKUP_WINDOW_DAYS=5\nWORKERS=2\n"), 0o600))

	// Variables already in the environment are not overwritten.
	t.Setenv("WORKERS", "4")
	t.Setenv("LOOKUP_WINDOW_DAYS", "")
	os.Unsetenv("LOOKUP_WINDOW_DAYS")

	require.NoError(t, LoadEnvFile(path))
	c, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, 5, c.LookupWindowDays)
	assert.Equal(t, 4, c.Workers)
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "absent.env")))
}
