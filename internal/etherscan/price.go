package etherscan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// EthPriceResponse represents the Etherscan API response for ETH price
type EthPriceResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Result  PriceResult `json:"result"`
}

// PriceResult is the ethprice payload. On failure Etherscan sends a plain
// string instead of an object; it is kept in Detail.
type PriceResult struct {
	EthBTC          string `json:"ethbtc"`
	EthBTCTimestamp string `json:"ethbtc_timestamp"`
	EthUSD          string `json:"ethusd"`
	EthUSDTimestamp string `json:"ethusd_timestamp"`

	Detail string `json:"-"`
}

// UnmarshalJSON accepts both the object and the string form of result
func (r *PriceResult) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Detail)
	}
	type plain PriceResult
	return json.Unmarshal(data, (*plain)(r))
}

// quotes lists the quote currencies the ethprice action reports
var quotes = map[string]func(PriceResult) (price, timestamp string){
	"USD": func(r PriceResult) (string, string) { return r.EthUSD, r.EthUSDTimestamp },
	"BTC": func(r PriceResult) (string, string) { return r.EthBTC, r.EthBTCTimestamp },
}

// PriceFetcher fetches the spot price of ether
type PriceFetcher struct {
	transport *fetcher.Transport
}

// NewPriceFetcher creates a new ETH price fetcher on t
func NewPriceFetcher(t *fetcher.Transport) *PriceFetcher {
	return &PriceFetcher{transport: t}
}

// TransformQuery implements fetcher.Fetcher
func (f *PriceFetcher) TransformQuery(params models.Params) (models.CryptoQuoteQueryParams, error) {
	var q models.CryptoQuoteQueryParams
	if err := models.Decode(params, &q); err != nil {
		return q, err
	}
	if err := q.Validate(); err != nil {
		return q, err
	}
	if q.Symbol != "ETH" {
		return q, &models.ParamError{Field: "symbol", Message: fmt.Sprintf("unsupported value %q (supported: ETH)", q.Symbol)}
	}
	if _, ok := quotes[q.Quote]; !ok {
		return q, &models.ParamError{Field: "quote", Message: fmt.Sprintf("unsupported value %q (supported: BTC, USD)", q.Quote)}
	}
	return q, nil
}

// Extract implements fetcher.Extractor
func (f *PriceFetcher) Extract(ctx context.Context, q models.CryptoQuoteQueryParams, creds models.Credentials) (*EthPriceResponse, error) {
	var result EthPriceResponse
	err := f.transport.Get(ctx, fetcher.Request{Query: map[string]string{
		"chainid": "1",
		"module":  "stats",
		"action":  "ethprice",
		"apikey":  creds[CredentialAPIKey],
	}}, &result)
	if err != nil {
		return nil, err
	}

	if result.Status != "1" {
		detail := result.Result.Detail
		if detail == "" {
			detail = result.Message
		}
		if strings.Contains(strings.ToLower(detail), "rate limit") {
			fe := fetcher.NewRateLimitError(0)
			fe.Message = detail
			return nil, fe
		}
		return nil, fetcher.NewProviderError(0, fmt.Sprintf("etherscan: %s", detail))
	}
	return &result, nil
}

// Transform implements fetcher.Fetcher
func (f *PriceFetcher) Transform(q models.CryptoQuoteQueryParams, raw *EthPriceResponse) ([]models.CryptoQuoteData, error) {
	value, ts := quotes[q.Quote](raw.Result)
	if value == "" {
		return nil, fmt.Errorf("ETH price not found in response")
	}

	price, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ETH price: %w", err)
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ETH price timestamp: %w", err)
	}

	return []models.CryptoQuoteData{{
		Symbol: q.Symbol,
		Quote:  q.Quote,
		Date:   time.Unix(sec, 0).UTC(),
		Price:  price,
	}}, nil
}
