// Package yahoo serves equity quotes and price history from the Yahoo
// Finance chart API. It needs no credentials.
package yahoo

import (
	"time"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/registry"
)

// Name is the provider key
const Name = "yahoo"

// NewProvider declares the yahoo provider on transport t.
// timeout bounds each blocking extraction.
func NewProvider(t *fetcher.Transport, timeout time.Duration, opts ...fetcher.Option) (*registry.Provider, error) {
	p := registry.NewProvider(Name, "Yahoo Finance", "https://finance.yahoo.com")
	opts = append([]fetcher.Option{fetcher.WithTimeout(timeout)}, opts...)

	quote, err := fetcher.New[models.EquityQuoteQueryParams, *ChartResponse, models.EquityQuoteData](
		models.CategoryEquityQuote, Name, NewQuoteFetcher(t, timeout), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Add(models.CategoryEquityQuote, quote, "Latest market price with previous close"); err != nil {
		return nil, err
	}

	historical, err := fetcher.New[models.EquityHistoricalQueryParams, *ChartResponse, models.EquityHistoricalData](
		models.CategoryEquityHistorical, Name, NewHistoricalFetcher(t, timeout), opts...)
	if err != nil {
		return nil, err
	}
	if err := p.Add(models.CategoryEquityHistorical, historical, "Daily, weekly or monthly OHLCV bars"); err != nil {
		return nil, err
	}

	return p, nil
}

// Register adds the yahoo provider to c
func Register(c *registry.Catalog, t *fetcher.Transport, timeout time.Duration, opts ...fetcher.Option) error {
	p, err := NewProvider(t, timeout, opts...)
	if err != nil {
		return err
	}
	return c.AddProvider(p)
}
