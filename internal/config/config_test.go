package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_WithDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v, want 30s", cfg.FetchTimeout)
	}
	if cfg.BlockingWorkers != 8 {
		t.Errorf("BlockingWorkers = %d, want 8", cfg.BlockingWorkers)
	}

	tests := []struct {
		provider    string
		baseURL     string
		minInterval time.Duration
	}{
		{ProviderFRED, "https://api.stlouisfed.org/fred", 500 * time.Millisecond},
		{ProviderYahoo, "https://query1.finance.yahoo.com", 250 * time.Millisecond},
		{ProviderAlphaVantage, "https://www.alphavantage.co/query", 12 * time.Second},
		{ProviderEtherscan, "https://api.etherscan.io/v2/api", 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			pc, ok := cfg.Provider(tt.provider)
			if !ok {
				t.Fatalf("Provider(%q) not found", tt.provider)
			}
			if pc.BaseURL != tt.baseURL {
				t.Errorf("BaseURL = %q, want %q", pc.BaseURL, tt.baseURL)
			}
			if pc.MinInterval != tt.minInterval {
				t.Errorf("MinInterval = %v, want %v", pc.MinInterval, tt.minInterval)
			}
			if pc.Timeout != 20*time.Second || pc.RetryCount != 3 || pc.RetryWait != time.Second || pc.MaxConns != 8 {
				t.Errorf("transport defaults = %+v", pc)
			}
		})
	}

	if _, ok := cfg.Provider("quandl"); ok {
		t.Error("Provider(quandl) found, want unknown")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("FINROUTER_LOG_LEVEL", "debug")
	t.Setenv("FINROUTER_FETCH_TIMEOUT", "5s")
	t.Setenv("FINROUTER_BLOCKING_WORKERS", "2")
	t.Setenv("FRED_BASE_URL", "https://test.stlouisfed.org")
	t.Setenv("YAHOO_MIN_INTERVAL", "1s")
	t.Setenv("ETHERSCAN_RETRY_COUNT", "5")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want 5s", cfg.FetchTimeout)
	}
	if cfg.BlockingWorkers != 2 {
		t.Errorf("BlockingWorkers = %d, want 2", cfg.BlockingWorkers)
	}
	if cfg.FRED.BaseURL != "https://test.stlouisfed.org" {
		t.Errorf("FRED.BaseURL = %q", cfg.FRED.BaseURL)
	}
	if cfg.Yahoo.MinInterval != time.Second {
		t.Errorf("Yahoo.MinInterval = %v, want 1s", cfg.Yahoo.MinInterval)
	}
	if cfg.Etherscan.RetryCount != 5 {
		t.Errorf("Etherscan.RetryCount = %d, want 5", cfg.Etherscan.RetryCount)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := `
log_level: warn
fetch_timeout: 10s
alphavantage:
  base_url: http://localhost:9000/query
  min_interval: 0s
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// The environment still wins over the file
	t.Setenv("FINROUTER_LOG_LEVEL", "error")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.LogLevel != "error" {
		t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
	}
	if cfg.FetchTimeout != 10*time.Second {
		t.Errorf("FetchTimeout = %v, want 10s", cfg.FetchTimeout)
	}
	if cfg.AlphaVantage.BaseURL != "http://localhost:9000/query" {
		t.Errorf("AlphaVantage.BaseURL = %q", cfg.AlphaVantage.BaseURL)
	}
	if cfg.AlphaVantage.MinInterval != 0 {
		t.Errorf("AlphaVantage.MinInterval = %v, want 0", cfg.AlphaVantage.MinInterval)
	}
	// Untouched blocks keep their defaults
	if cfg.AlphaVantage.RetryCount != 3 {
		t.Errorf("AlphaVantage.RetryCount = %d, want 3", cfg.AlphaVantage.RetryCount)
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("fred: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() expected error for malformed file, got nil")
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want []string
	}{
		{
			name: "zero workers",
			env:  map[string]string{"FINROUTER_BLOCKING_WORKERS": "0"},
			want: []string{"blocking_workers"},
		},
		{
			name: "negative timeout and interval",
			env:  map[string]string{"FINROUTER_FETCH_TIMEOUT": "-1s", "FRED_MIN_INTERVAL": "-5ms"},
			want: []string{"fetch_timeout", "fred.min_interval"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(t.TempDir())
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			for _, want := range tt.want {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %q", err.Error(), want)
				}
			}
		})
	}
}
