// Package alphavantage serves equity quotes and US GDP from AlphaVantage.
//
// AlphaVantage answers throttled calls with status 200 and a Note or
// Information field; those map to rate_limit errors.
package alphavantage

import (
	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/registry"
)

const (
	// Name is the provider key
	Name = "alphavantage"

	// CredentialAPIKey is sent as the apikey query parameter
	CredentialAPIKey = "api_key"

	// gdpPriority ranks the GDP fetcher behind sources with per-country coverage
	gdpPriority = 10
)

// NewProvider declares the alphavantage provider on transport t
func NewProvider(t *fetcher.Transport, opts ...fetcher.Option) (*registry.Provider, error) {
	p := registry.NewProvider(Name, "AlphaVantage market data", "https://www.alphavantage.co", CredentialAPIKey)

	quote, err := fetcher.New[models.EquityQuoteQueryParams, *GlobalQuoteResponse, models.EquityQuoteData](
		models.CategoryEquityQuote, Name, NewStockFetcher(t), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Add(models.CategoryEquityQuote, quote, "GLOBAL_QUOTE latest trading day quote"); err != nil {
		return nil, err
	}

	gdp, err := fetcher.New[models.GDPQueryParams, *EconomicResponse, models.GDPData](
		models.CategoryGDP, Name, NewGDPFetcher(t), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Add(models.CategoryGDP, gdp, "US real GDP, quarterly or annual", registry.WithPriority(gdpPriority)); err != nil {
		return nil, err
	}

	return p, nil
}

// Register adds the alphavantage provider to c
func Register(c *registry.Catalog, t *fetcher.Transport, opts ...fetcher.Option) error {
	p, err := NewProvider(t, opts...)
	if err != nil {
		return err
	}
	return c.AddProvider(p)
}
