// Package etherscan serves the ether spot price from the Etherscan stats API.
package etherscan

import (
	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/registry"
)

const (
	// Name is the provider key
	Name = "etherscan"

	// CredentialAPIKey is sent as the apikey query parameter
	CredentialAPIKey = "api_key"
)

// NewProvider declares the etherscan provider on transport t
func NewProvider(t *fetcher.Transport, opts ...fetcher.Option) (*registry.Provider, error) {
	p := registry.NewProvider(Name, "Etherscan", "https://etherscan.io", CredentialAPIKey)

	price, err := fetcher.New[models.CryptoQuoteQueryParams, *EthPriceResponse, models.CryptoQuoteData](
		models.CategoryCryptoQuote, Name, NewPriceFetcher(t), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Add(models.CategoryCryptoQuote, price, "ETH price in USD or BTC"); err != nil {
		return nil, err
	}
	return p, nil
}

// Register adds the etherscan provider to c
func Register(c *registry.Catalog, t *fetcher.Transport, opts ...fetcher.Option) error {
	p, err := NewProvider(t, opts...)
	if err != nil {
		return err
	}
	return c.AddProvider(p)
}
