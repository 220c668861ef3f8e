package alphavantage

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// GlobalQuoteResponse represents the AlphaVantage API response for stock quotes
type GlobalQuoteResponse struct {
	Envelope
	GlobalQuote struct {
		Symbol           string `json:"01. symbol"`
		Open             string `json:"02. open"`
		High             string `json:"03. high"`
		Low              string `json:"04. low"`
		Price            string `json:"05. price"`
		Volume           string `json:"06. volume"`
		LatestTradingDay string `json:"07. latest trading day"`
		PreviousClose    string `json:"08. previous close"`
		Change           string `json:"09. change"`
		ChangePercent    string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// StockFetcher fetches the latest quote of a listed security
type StockFetcher struct {
	transport *fetcher.Transport
}

// NewStockFetcher creates a new stock quote fetcher on t
func NewStockFetcher(t *fetcher.Transport) *StockFetcher {
	return &StockFetcher{transport: t}
}

// TransformQuery implements fetcher.Fetcher
func (f *StockFetcher) TransformQuery(params models.Params) (models.EquityQuoteQueryParams, error) {
	var q models.EquityQuoteQueryParams
	if err := models.Decode(params, &q); err != nil {
		return q, err
	}
	return q, q.Validate()
}

// Extract implements fetcher.Extractor
func (f *StockFetcher) Extract(ctx context.Context, q models.EquityQuoteQueryParams, creds models.Credentials) (*GlobalQuoteResponse, error) {
	var result GlobalQuoteResponse
	if err := query(ctx, f.transport, "GLOBAL_QUOTE", map[string]string{"symbol": q.Symbol}, creds, &result); err != nil {
		return nil, err
	}
	if err := result.check(); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transform implements fetcher.Fetcher
func (f *StockFetcher) Transform(q models.EquityQuoteQueryParams, raw *GlobalQuoteResponse) ([]models.EquityQuoteData, error) {
	gq := raw.GlobalQuote
	if gq.Price == "" {
		return nil, fetcher.NewProviderError(0, fmt.Sprintf("no quote returned for %s", q.Symbol))
	}

	price, err := strconv.ParseFloat(gq.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stock price: %w", err)
	}
	date, err := models.ParseDate(gq.LatestTradingDay)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latest trading day: %w", err)
	}

	quote := models.EquityQuoteData{
		Symbol: q.Symbol,
		Date:   date,
		Price:  price,
	}
	if gq.Volume != "" {
		if quote.Volume, err = strconv.ParseInt(gq.Volume, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse volume: %w", err)
		}
	}
	if gq.PreviousClose != "" {
		prev, err := strconv.ParseFloat(gq.PreviousClose, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse previous close: %w", err)
		}
		quote.PreviousClose = &prev
	}
	if pct := strings.TrimSuffix(gq.ChangePercent, "%"); pct != "" {
		change, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse change percent: %w", err)
		}
		quote.ChangePercent = &change
	} else if quote.PreviousClose != nil {
		quote.ChangePercent = models.GrowthRate(*quote.PreviousClose, price)
	}

	return []models.EquityQuoteData{quote}, nil
}
