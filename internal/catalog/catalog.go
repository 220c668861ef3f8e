// Package catalog builds the process-wide provider catalog from configuration.
package catalog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"finrouter/internal/alphavantage"
	"finrouter/internal/bridge"
	"finrouter/internal/config"
	"finrouter/internal/etherscan"
	"finrouter/internal/fetcher"
	"finrouter/internal/fred"
	"finrouter/internal/ratelimit"
	"finrouter/internal/registry"
	"finrouter/internal/yahoo"
)

// Deps are the shared runtime pieces every pipeline uses.
// Zero values fall back to the process-wide defaults.
type Deps struct {
	Gate     *ratelimit.Limiter
	Executor *bridge.Executor
	Logger   *slog.Logger
}

// Build registers fred, yahoo, alphavantage and etherscan, in that order,
// into a new sealed catalog.
func Build(cfg *config.Config, deps Deps) (*registry.Catalog, error) {
	if deps.Gate == nil {
		deps.Gate = ratelimit.Shared()
	}
	if deps.Executor == nil {
		deps.Executor = bridge.NewExecutor(cfg.BlockingWorkers, cfg.FetchTimeout)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	opts := []fetcher.Option{
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithExecutor(deps.Executor),
		fetcher.WithLogger(deps.Logger),
	}
	transports := make(map[string]*fetcher.Transport, 4)
	for _, name := range []string{fred.Name, yahoo.Name, alphavantage.Name, etherscan.Name} {
		t, err := newTransport(cfg, deps.Gate, name)
		if err != nil {
			return nil, err
		}
		transports[name] = t
	}

	c := registry.NewCatalog()

	if err := fred.Register(c, transports[fred.Name], opts...); err != nil {
		return nil, fmt.Errorf("register %s: %w", fred.Name, err)
	}
	if err := yahoo.Register(c, transports[yahoo.Name], extractionTimeout(cfg.FetchTimeout, cfg.Yahoo.Timeout), opts...); err != nil {
		return nil, fmt.Errorf("register %s: %w", yahoo.Name, err)
	}
	if err := alphavantage.Register(c, transports[alphavantage.Name], opts...); err != nil {
		return nil, fmt.Errorf("register %s: %w", alphavantage.Name, err)
	}
	if err := etherscan.Register(c, transports[etherscan.Name], opts...); err != nil {
		return nil, fmt.Errorf("register %s: %w", etherscan.Name, err)
	}

	c.Seal()
	deps.Logger.Debug("catalog sealed",
		"categories", len(c.Fetchers.ListCategories()),
		"providers", len(c.Providers.List()))
	return c, nil
}

// newTransport builds the transport of a configured provider and sets its rate gate
func newTransport(cfg *config.Config, gate *ratelimit.Limiter, name string) (*fetcher.Transport, error) {
	pc, ok := cfg.Provider(name)
	if !ok {
		return nil, fmt.Errorf("no configuration for provider %q", name)
	}
	gate.Configure(name, pc.MinInterval)
	return fetcher.NewTransport(fetcher.TransportConfig{
		Provider:      name,
		BaseURL:       pc.BaseURL,
		Timeout:       pc.Timeout,
		RetryCount:    pc.RetryCount,
		RetryWaitTime: pc.RetryWait,
		MaxConns:      pc.MaxConns,
	}, gate), nil
}

// extractionTimeout bounds a blocking extraction, which keeps its connection
// until then even after the caller stops waiting. The provider timeout wins
// when it is shorter.
func extractionTimeout(fetch, provider time.Duration) time.Duration {
	if provider > 0 && provider < fetch {
		return provider
	}
	return fetch
}

var (
	shared    *registry.Catalog
	sharedErr error
	once      sync.Once
)

// Load builds the shared catalog on first use and returns it on every call.
// cfg is only read by the first call.
func Load(cfg *config.Config) (*registry.Catalog, error) {
	once.Do(func() {
		shared, sharedErr = Build(cfg, Deps{})
	})
	return shared, sharedErr
}
