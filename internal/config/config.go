// Package config loads runtime settings from the environment and an optional .env file.
// Binaries use the loaded values as flag defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig is returned when a setting is malformed or out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Upper bound accepted for target and stop-loss percentages.
const MaxPct = 50.0

// Price source names.
const (
	SourceYahoo      = "yahoo"
	SourceClickhouse = "clickhouse"
	SourceMemory     = "memory"
)

// Config holds every setting shared by the binaries.
type Config struct {
	// Evaluation
	TargetPct        float64
	SLPct            float64
	HorizonDays      int
	LookupWindowDays int
	ExchangeSuffix   string
	Workers          int

	// Price source
	PriceSource  string
	YahooBaseURL string
	HTTPTimeout  time.Duration

	// Storage
	PostgresDSN   string
	ClickhouseDSN string

	// Observability
	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		TargetPct:        3.0,
		SLPct:            2.0,
		HorizonDays:      30,
		LookupWindowDays: 7,
		ExchangeSuffix:   ".NS",
		Workers:          8,
		PriceSource:      SourceYahoo,
		YahooBaseURL:     "https://query1.finance.yahoo.com",
		HTTPTimeout:      15 * time.Second,
		LogLevel:         "info",
		LogFormat:        "console",
		MetricsAddr:      ":9090",
	}
}

// LoadEnvFile loads variables from the given .env files (default ".env").
// Missing files are ignored; variables already set in the environment win.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv overlays environment variables on Default. Unset or empty variables keep the default.
func FromEnv() (Config, error) {
	c := Default()
	var errs []string

	floatVar := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q", key, v))
				return
			}
			*dst = f
		}
	}
	intVar := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q", key, v))
				return
			}
			*dst = n
		}
	}
	durationVar := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s=%q", key, v))
				return
			}
			*dst = d
		}
	}
	stringVar := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	floatVar("TARGET_PCT", &c.TargetPct)
	floatVar("SL_PCT", &c.SLPct)
	intVar("HORIZON_DAYS", &c.HorizonDays)
	intVar("LOOKUP_WINDOW_DAYS", &c.LookupWindowDays)
	stringVar("EXCHANGE_SUFFIX", &c.ExchangeSuffix)
	intVar("WORKERS", &c.Workers)
	stringVar("PRICE_SOURCE", &c.PriceSource)
	stringVar("YAHOO_BASE_URL", &c.YahooBaseURL)
	durationVar("HTTP_TIMEOUT", &c.HTTPTimeout)
	stringVar("POSTGRES_DSN", &c.PostgresDSN)
	stringVar("CLICKHOUSE_DSN", &c.ClickhouseDSN)
	stringVar("LOG_LEVEL", &c.LogLevel)
	stringVar("LOG_FORMAT", &c.LogFormat)
	stringVar("METRICS_ADDR", &c.MetricsAddr)

	if len(errs) > 0 {
		return c, fmt.Errorf("%w: malformed %s", ErrInvalidConfig, strings.Join(errs, ", "))
	}
	return c, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if err := ValidatePct("target_pct", c.TargetPct); err != nil {
		return err
	}
	if err := ValidatePct("sl_pct", c.SLPct); err != nil {
		return err
	}
	if c.HorizonDays <= 0 {
		return fmt.Errorf("%w: horizon_days must be positive, got %d", ErrInvalidConfig, c.HorizonDays)
	}
	if c.LookupWindowDays <= 0 {
		return fmt.Errorf("%w: lookup_window_days must be positive, got %d", ErrInvalidConfig, c.LookupWindowDays)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	switch c.PriceSource {
	case SourceYahoo:
		if c.YahooBaseURL == "" {
			return fmt.Errorf("%w: yahoo_base_url is required for the yahoo source", ErrInvalidConfig)
		}
	case SourceClickhouse:
		if c.ClickhouseDSN == "" {
			return fmt.Errorf("%w: clickhouse_dsn is required for the clickhouse source", ErrInvalidConfig)
		}
	case SourceMemory:
	default:
		return fmt.Errorf("%w: unknown price source %q (yahoo, clickhouse, memory)", ErrInvalidConfig, c.PriceSource)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: http_timeout must be positive, got %s", ErrInvalidConfig, c.HTTPTimeout)
	}
	return nil
}

// ValidatePct checks that a percentage lies in (0, MaxPct].
func ValidatePct(name string, v float64) error {
	if v <= 0 || v > MaxPct {
		return fmt.Errorf("%w: %s must be in (0, %g], got %g", ErrInvalidConfig, name, MaxPct, v)
	}
	return nil
}
