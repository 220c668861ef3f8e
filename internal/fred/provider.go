// Package fred serves macroeconomic series from the Federal Reserve Economic
// Data service.
package fred

import (
	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/registry"
)

const (
	// Name is the provider key
	Name = "fred"

	// CredentialAPIKey is the single credential field, sent as the api_key query parameter
	CredentialAPIKey = "api_key"
)

// NewProvider declares the fred provider and its fetchers on transport t
func NewProvider(t *fetcher.Transport, opts ...fetcher.Option) (*registry.Provider, error) {
	p := registry.NewProvider(Name,
		"Federal Reserve Economic Data",
		"https://fred.stlouisfed.org",
		CredentialAPIKey,
	)

	gdp, err := fetcher.New[models.GDPQueryParams, *ObservationsResponse, models.GDPData](
		models.CategoryGDP, Name, NewGDPFetcher(t), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Add(models.CategoryGDP, gdp, "GDP per country, quarterly or annual"); err != nil {
		return nil, err
	}

	unemployment, err := fetcher.New[models.UnemploymentQueryParams, *ObservationsResponse, models.UnemploymentData](
		models.CategoryUnemployment, Name, NewUnemploymentFetcher(t), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Add(models.CategoryUnemployment, unemployment, "Harmonised unemployment rate per country"); err != nil {
		return nil, err
	}

	return p, nil
}

// Register adds the fred provider to c
func Register(c *registry.Catalog, t *fetcher.Transport, opts ...fetcher.Option) error {
	p, err := NewProvider(t, opts...)
	if err != nil {
		return err
	}
	return c.AddProvider(p)
}
