package yahoo

import (
	"fmt"
	"time"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// QuoteFetcher fetches the latest quote of a security.
// Extraction is blocking and bounded by its own timeout.
type QuoteFetcher struct {
	transport *fetcher.Transport
	timeout   time.Duration
}

// NewQuoteFetcher creates a quote fetcher on t
func NewQuoteFetcher(t *fetcher.Transport, timeout time.Duration) *QuoteFetcher {
	if timeout <= 0 {
		timeout = fetcher.DefaultTimeout
	}
	return &QuoteFetcher{transport: t, timeout: timeout}
}

// TransformQuery implements fetcher.Fetcher
func (f *QuoteFetcher) TransformQuery(params models.Params) (models.EquityQuoteQueryParams, error) {
	var q models.EquityQuoteQueryParams
	if err := models.Decode(params, &q); err != nil {
		return q, err
	}
	return q, q.Validate()
}

// ExtractBlocking implements fetcher.BlockingExtractor
func (f *QuoteFetcher) ExtractBlocking(q models.EquityQuoteQueryParams, _ models.Credentials) (*ChartResponse, error) {
	return chart(f.transport, f.timeout, q.Symbol, map[string]string{
		"interval": "1d",
		"range":    "5d",
	})
}

// Transform implements fetcher.Fetcher
func (f *QuoteFetcher) Transform(q models.EquityQuoteQueryParams, raw *ChartResponse) ([]models.EquityQuoteData, error) {
	result, err := first(raw)
	if err != nil {
		return nil, err
	}

	meta := result.Meta
	if meta.RegularMarketPrice == nil {
		return nil, fmt.Errorf("price not found in response for %s", q.Symbol)
	}
	if meta.RegularMarketTime == 0 {
		return nil, fmt.Errorf("market time not found in response for %s", q.Symbol)
	}

	quote := models.EquityQuoteData{
		Symbol: q.Symbol,
		Date:   time.Unix(meta.RegularMarketTime, 0).UTC(),
		Price:  *meta.RegularMarketPrice,
		Volume: meta.RegularMarketVolume,
	}

	prev := meta.PreviousClose
	if prev == nil {
		prev = meta.ChartPreviousClose
	}
	if prev != nil {
		p := *prev
		quote.PreviousClose = &p
		quote.ChangePercent = models.GrowthRate(p, quote.Price)
	}

	return []models.EquityQuoteData{quote}, nil
}
