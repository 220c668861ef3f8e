package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"finrouter/internal/fetcher"
)

// ChartResponse is the response structure from the Yahoo Finance chart API
type ChartResponse struct {
	Chart struct {
		Result []ChartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// ChartResult is the chart of one symbol
type ChartResult struct {
	Meta struct {
		Symbol               string   `json:"symbol"`
		Currency             string   `json:"currency"`
		RegularMarketPrice   *float64 `json:"regularMarketPrice"`
		RegularMarketTime    int64    `json:"regularMarketTime"`
		RegularMarketVolume  int64    `json:"regularMarketVolume"`
		ChartPreviousClose   *float64 `json:"chartPreviousClose"`
		PreviousClose        *float64 `json:"previousClose"`
		ExchangeTimezoneName string   `json:"exchangeTimezoneName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// symbolMap maps common index aliases to Yahoo tickers
var symbolMap = map[string]string{
	"SPX500": "^GSPC",
	"SPX":    "^GSPC",
	"SP500":  "^GSPC",
	"NDX":    "^NDX",
	"DJI":    "^DJI",
}

func yahooSymbol(symbol string) string {
	if mapped, ok := symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// chart runs one chart request without a caller context, bounded by timeout
func chart(t *fetcher.Transport, timeout time.Duration, symbol string, query map[string]string) (*ChartResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var result ChartResponse
	err := t.Get(ctx, fetcher.Request{
		Path:    "/v8/finance/chart/" + url.PathEscape(yahooSymbol(symbol)),
		Query:   query,
		Headers: map[string]string{"User-Agent": "Mozilla/5.0"},
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// first returns the single chart result or explains why there is none
func first(resp *ChartResponse) (*ChartResult, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty response")
	}
	if resp.Chart.Error != nil {
		return nil, fetcher.NewProviderError(0, fmt.Sprintf("yahoo api error: %s", resp.Chart.Error.Description))
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart result returned")
	}
	return &resp.Chart.Result[0], nil
}

// day truncates a unix timestamp to its UTC calendar date
func day(ts int64) time.Time {
	y, m, d := time.Unix(ts, 0).UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
