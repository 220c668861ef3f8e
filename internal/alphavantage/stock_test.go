package alphavantage

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/testutil"
)

var creds = models.Credentials{CredentialAPIKey: "test_api_key"}

func newStockPipeline(t *testing.T, baseURL string) *fetcher.Pipeline[models.EquityQuoteQueryParams, *GlobalQuoteResponse, models.EquityQuoteData] {
	t.Helper()
	p, err := fetcher.New[models.EquityQuoteQueryParams, *GlobalQuoteResponse, models.EquityQuoteData](
		models.CategoryEquityQuote, Name, NewStockFetcher(testutil.NewTransport(Name, baseURL)))
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}
	return p
}

func TestStockFetcher_Fetch_Success(t *testing.T) {
	server := testutil.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		// Verify query parameters
		if r.URL.Query().Get("function") != "GLOBAL_QUOTE" {
			t.Errorf("function = %q, want GLOBAL_QUOTE", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("symbol") != "AAPL" {
			t.Errorf("symbol = %q, want AAPL", r.URL.Query().Get("symbol"))
		}
		if r.URL.Query().Get("apikey") != "test_api_key" {
			t.Errorf("apikey = %q, want test_api_key", r.URL.Query().Get("apikey"))
		}

		testutil.JSON(http.StatusOK, `{
			"Global Quote": {
				"01. symbol": "AAPL",
				"02. open": "175.50",
				"03. high": "178.75",
				"04. low": "174.25",
				"05. price": "178.23",
				"06. volume": "50000000",
				"07. latest trading day": "2024-01-15",
				"08. previous close": "176.50",
				"09. change": "1.73",
				"10. change percent": "0.98%"
			}
		}`)(w, r)
	})

	records, err := newStockPipeline(t, server.URL).FetchAll(context.Background(), models.Params{"symbol": "AAPL"}, creds)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	got := records[0]
	if got.Price != 178.23 {
		t.Errorf("Price = %v, want 178.23", got.Price)
	}
	if want := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC); !got.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", got.Date, want)
	}
	if got.Volume != 50000000 {
		t.Errorf("Volume = %d, want 50000000", got.Volume)
	}
	if got.PreviousClose == nil || *got.PreviousClose != 176.50 {
		t.Errorf("PreviousClose = %v, want 176.50", got.PreviousClose)
	}
	if got.ChangePercent == nil || *got.ChangePercent != 0.98 {
		t.Errorf("ChangePercent = %v, want 0.98", got.ChangePercent)
	}
}

func TestStockFetcher_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType fetcher.ErrorType
	}{
		{"empty quote", http.StatusOK, `{"Global Quote": {}}`, fetcher.ErrorTypeProvider},
		{"invalid price", http.StatusOK, `{"Global Quote": {"05. price": "invalid", "07. latest trading day": "2024-01-15"}}`, fetcher.ErrorTypeDataShape},
		{"throttle note", http.StatusOK, `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`, fetcher.ErrorTypeRateLimit},
		{"daily limit", http.StatusOK, `{"Information": "Our standard API rate limit is 25 requests per day."}`, fetcher.ErrorTypeRateLimit},
		{"invalid call", http.StatusOK, `{"Error Message": "Invalid API call."}`, fetcher.ErrorTypeProvider},
		{"server error", http.StatusInternalServerError, `{}`, fetcher.ErrorTypeServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewCountingServer(t, testutil.JSON(tt.status, tt.body))

			records, err := newStockPipeline(t, server.URL).FetchAll(context.Background(), models.Params{"symbol": "AAPL"}, creds)
			if err == nil {
				t.Fatal("FetchAll() should return error")
			}
			if got := fetcher.TypeOf(err); got != tt.wantType {
				t.Errorf("error type = %q, want %q (%v)", got, tt.wantType, err)
			}
			if records != nil {
				t.Errorf("records = %v, want nil", records)
			}
		})
	}
}

func TestStockFetcher_Fetch_ContextCancellation(t *testing.T) {
	server := testutil.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newStockPipeline(t, server.URL).FetchAll(ctx, models.Params{"symbol": "AAPL"}, creds)
	if err == nil {
		t.Fatal("FetchAll() should return error when context is cancelled")
	}
	if !fetcher.IsType(err, fetcher.ErrorTypeCanceled) {
		t.Errorf("error type = %q, want %q", fetcher.TypeOf(err), fetcher.ErrorTypeCanceled)
	}
}

func TestGDPFetcher_Fetch(t *testing.T) {
	server := testutil.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("function") != "REAL_GDP" {
			t.Errorf("function = %q, want REAL_GDP", r.URL.Query().Get("function"))
		}
		if r.URL.Query().Get("interval") != "annual" {
			t.Errorf("interval = %q, want annual", r.URL.Query().Get("interval"))
		}
		testutil.JSON(http.StatusOK, `{
			"name": "Real Gross Domestic Product",
			"interval": "annual",
			"unit": "billions of dollars",
			"data": [
				{"date": "2023-01-01", "value": "22671.096"},
				{"date": "2022-01-01", "value": "22034.828"},
				{"date": "2021-01-01", "value": "21609.883"},
				{"date": "2020-01-01", "value": "."}
			]
		}`)(w, r)
	})

	p, err := fetcher.New[models.GDPQueryParams, *EconomicResponse, models.GDPData](
		models.CategoryGDP, Name, NewGDPFetcher(testutil.NewTransport(Name, server.URL)))
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}

	records, err := p.FetchAll(context.Background(), models.Params{"country": "US", "frequency": "annual"}, creds)
	if err != nil {
		t.Fatalf("FetchAll() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	if records[0].Date.Year() != 2021 || records[2].Date.Year() != 2023 {
		t.Errorf("records not ascending: %v .. %v", records[0].Date, records[2].Date)
	}
	if records[0].GrowthRate != nil {
		t.Errorf("records[0].GrowthRate = %v, want nil", *records[0].GrowthRate)
	}
	want := ((22034.828 / 21609.883) - 1) * 100
	if records[1].GrowthRate == nil || math.Abs(*records[1].GrowthRate-want) > 1e-9 {
		t.Errorf("records[1].GrowthRate = %v, want %v", records[1].GrowthRate, want)
	}
}

func TestGDPFetcher_Fetch_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType fetcher.ErrorType
	}{
		{"no data field", `{"name": "Real Gross Domestic Product"}`, fetcher.ErrorTypeDataShape},
		{"empty body", `{}`, fetcher.ErrorTypeDataShape},
		{"throttle note", `{"Note": "Thank you for using Alpha Vantage!"}`, fetcher.ErrorTypeRateLimit},
		{"invalid call", `{"Error Message": "Invalid API call."}`, fetcher.ErrorTypeProvider},
		{"malformed value", `{"data": [{"date": "2023-01-01", "value": "n/a"}]}`, fetcher.ErrorTypeDataShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewCountingServer(t, testutil.JSON(http.StatusOK, tt.body))

			p, err := fetcher.New[models.GDPQueryParams, *EconomicResponse, models.GDPData](
				models.CategoryGDP, Name, NewGDPFetcher(testutil.NewTransport(Name, server.URL)))
			if err != nil {
				t.Fatalf("fetcher.New() error = %v", err)
			}

			records, err := p.FetchAll(context.Background(), models.Params{"country": "US"}, creds)
			if got := fetcher.TypeOf(err); got != tt.wantType {
				t.Errorf("error type = %q, want %q (%v)", got, tt.wantType, err)
			}
			if records != nil {
				t.Errorf("records = %v, want nil", records)
			}
		})
	}
}

func TestGDPFetcher_OnlyUS(t *testing.T) {
	f := NewGDPFetcher(nil)
	if _, err := f.TransformQuery(models.Params{"country": "DE"}); err == nil {
		t.Error("TransformQuery(DE) error = nil, want error")
	}
	if _, err := f.TransformQuery(models.Params{"country": "us"}); err != nil {
		t.Errorf("TransformQuery(us) error = %v", err)
	}
}

func TestNewProvider_GDPPriority(t *testing.T) {
	p, err := NewProvider(testutil.NewTransport(Name, "http://localhost"))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	for _, f := range p.Fetchers() {
		if f.Category == models.CategoryGDP && len(f.Options) != 1 {
			t.Errorf("gdp fetcher options = %d, want the priority option", len(f.Options))
		}
	}
}
