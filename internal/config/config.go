package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Provider names with a configuration block
const (
	ProviderFRED         = "fred"
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
	ProviderEtherscan    = "etherscan"
)

// ProviderConfig holds the transport settings of one upstream provider.
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RetryCount  int           `mapstructure:"retry_count"`
	RetryWait   time.Duration `mapstructure:"retry_wait"`
	MaxConns    int           `mapstructure:"max_conns"`
}

// Config holds all configuration for the router.
//
// Credentials are not part of it: they are resolved per call from explicit
// values or <PROVIDER>_<FIELD> environment variables.
type Config struct {
	LogLevel        string        `mapstructure:"log_level"`
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	BlockingWorkers int           `mapstructure:"blocking_workers"`
	ListenAddr      string        `mapstructure:"listen_addr"`

	FRED         ProviderConfig `mapstructure:"fred"`
	Yahoo        ProviderConfig `mapstructure:"yahoo"`
	AlphaVantage ProviderConfig `mapstructure:"alphavantage"`
	Etherscan    ProviderConfig `mapstructure:"etherscan"`
}

// Provider returns the configuration block of the named provider
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderFRED:
		return c.FRED, true
	case ProviderYahoo:
		return c.Yahoo, true
	case ProviderAlphaVantage:
		return c.AlphaVantage, true
	case ProviderEtherscan:
		return c.Etherscan, true
	default:
		return ProviderConfig{}, false
	}
}

var providers = []string{ProviderFRED, ProviderYahoo, ProviderAlphaVantage, ProviderEtherscan}

// Load reads configuration from environment variables and optional config file.
// Environment variables take precedence over config file values.
//
// Expected environment variables (all optional):
//   - FINROUTER_LOG_LEVEL, FINROUTER_FETCH_TIMEOUT, FINROUTER_BLOCKING_WORKERS, FINROUTER_LISTEN_ADDR
//   - <PROVIDER>_BASE_URL, <PROVIDER>_MIN_INTERVAL, <PROVIDER>_TIMEOUT,
//     <PROVIDER>_RETRY_COUNT, <PROVIDER>_RETRY_WAIT, <PROVIDER>_MAX_CONNS
//     for FRED, YAHOO, ALPHAVANTAGE and ETHERSCAN
func Load(paths ...string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optionally read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{".", "$HOME/.finrouter"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Bind environment variables for top-level settings
	for _, key := range []string{"log_level", "fetch_timeout", "blocking_workers", "listen_addr"} {
		v.BindEnv(key, "FINROUTER_"+strings.ToUpper(key))
	}

	// Bind environment variables for provider blocks
	for _, p := range providers {
		for _, field := range []string{"base_url", "min_interval", "timeout", "retry_count", "retry_wait", "max_conns"} {
			v.BindEnv(p+"."+field, strings.ToUpper(p+"_"+field))
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("fetch_timeout", "30s")
	v.SetDefault("blocking_workers", 8)
	v.SetDefault("listen_addr", ":8080")

	// Production endpoints and conservative spacing per provider
	v.SetDefault("fred.base_url", "https://api.stlouisfed.org/fred")
	v.SetDefault("fred.min_interval", "500ms")

	v.SetDefault("yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("yahoo.min_interval", "250ms")

	// AlphaVantage: 5 requests per minute on free tier = 1 request every 12 seconds
	v.SetDefault("alphavantage.base_url", "https://www.alphavantage.co/query")
	v.SetDefault("alphavantage.min_interval", "12s")

	// Etherscan: 4 requests per second (conservative, actual limit may be higher)
	v.SetDefault("etherscan.base_url", "https://api.etherscan.io/v2/api")
	v.SetDefault("etherscan.min_interval", "250ms")

	for _, p := range providers {
		v.SetDefault(p+".timeout", "20s")
		v.SetDefault(p+".retry_count", 3)
		v.SetDefault(p+".retry_wait", "1s")
		v.SetDefault(p+".max_conns", 8)
	}
}

func (c *Config) validate() error {
	var problems []string
	if c.FetchTimeout <= 0 {
		problems = append(problems, "fetch_timeout must be positive")
	}
	if c.BlockingWorkers < 1 {
		problems = append(problems, "blocking_workers must be at least 1")
	}
	for _, p := range providers {
		pc, _ := c.Provider(p)
		if pc.BaseURL == "" {
			problems = append(problems, p+".base_url is required")
		}
		if pc.MinInterval < 0 {
			problems = append(problems, p+".min_interval must not be negative")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
	}
	return nil
}
