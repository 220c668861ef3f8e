package yahoo

import (
	"context"
	"math"
	"net/http"
	"strings"
	"testing"
	"time"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/testutil"
)

const quoteBody = `{
	"chart": {
		"result": [{
			"meta": {
				"symbol": "AAPL",
				"currency": "USD",
				"regularMarketPrice": 178.23,
				"regularMarketTime": 1705352400,
				"regularMarketVolume": 50000000,
				"chartPreviousClose": 170.00,
				"previousClose": 176.50
			},
			"timestamp": [1705352400],
			"indicators": {"quote": [{"open": [175.5], "high": [178.75], "low": [174.25], "close": [178.23], "volume": [50000000]}]}
		}],
		"error": null
	}
}`

const historyBody = `{
	"chart": {
		"result": [{
			"meta": {"symbol": "AAPL", "regularMarketPrice": 103.0, "regularMarketTime": 1704412800},
			"timestamp": [1704378600, 1704205800, 1704292200, 1704465000],
			"indicators": {"quote": [{
				"open":   [101.0, 99.0,  100.0, null],
				"high":   [103.0, 101.0, 102.0, null],
				"low":    [100.0, 98.0,  99.0,  null],
				"close":  [102.0, 100.0, 101.0, null],
				"volume": [3000,  1000,  2000,  null]
			}]}
		}],
		"error": null
	}
}`

func TestQuoteFetcher_Fetch(t *testing.T) {
	server := testutil.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v8/finance/chart/AAPL" {
			t.Errorf("path = %q, want /v8/finance/chart/AAPL", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("User-Agent header not set")
		}
		testutil.JSON(http.StatusOK, quoteBody)(w, r)
	})

	p, err := fetcher.New[models.EquityQuoteQueryParams, *ChartResponse, models.EquityQuoteData](
		models.CategoryEquityQuote, Name, NewQuoteFetcher(testutil.NewTransport(Name, server.URL), time.Second))
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}
	if p.Mode() != fetcher.ModeBlocking {
		t.Errorf("Mode() = %q, want %q", p.Mode(), fetcher.ModeBlocking)
	}

	// Both calling styles must produce the same result
	for name, fetch := range map[string]func(context.Context, models.Params, models.Credentials) ([]models.EquityQuoteData, error){
		"context":  p.FetchAll,
		"blocking": p.FetchAllBlocking,
	} {
		t.Run(name, func(t *testing.T) {
			records, err := fetch(context.Background(), models.Params{"symbol": "aapl"}, nil)
			if err != nil {
				t.Fatalf("fetch error = %v", err)
			}
			if len(records) != 1 {
				t.Fatalf("len(records) = %d, want 1", len(records))
			}

			got := records[0]
			if got.Symbol != "AAPL" {
				t.Errorf("Symbol = %q, want AAPL", got.Symbol)
			}
			if got.Price != 178.23 {
				t.Errorf("Price = %v, want 178.23", got.Price)
			}
			if got.PreviousClose == nil || *got.PreviousClose != 176.50 {
				t.Errorf("PreviousClose = %v, want 176.50", got.PreviousClose)
			}
			want := ((178.23 / 176.50) - 1) * 100
			if got.ChangePercent == nil || math.Abs(*got.ChangePercent-want) > 1e-9 {
				t.Errorf("ChangePercent = %v, want %v", got.ChangePercent, want)
			}
			if got.Volume != 50000000 {
				t.Errorf("Volume = %d, want 50000000", got.Volume)
			}
		})
	}
}

func TestQuoteFetcher_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType fetcher.ErrorType
	}{
		{"unknown symbol", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, fetcher.ErrorTypeProvider},
		{"error in body", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid input"}}}`, fetcher.ErrorTypeProvider},
		{"no price", http.StatusOK, `{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketTime":1705352400}}],"error":null}}`, fetcher.ErrorTypeDataShape},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`, fetcher.ErrorTypeDataShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewCountingServer(t, testutil.JSON(tt.status, tt.body))
			p, err := fetcher.New[models.EquityQuoteQueryParams, *ChartResponse, models.EquityQuoteData](
				models.CategoryEquityQuote, Name, NewQuoteFetcher(testutil.NewTransport(Name, server.URL), time.Second))
			if err != nil {
				t.Fatalf("fetcher.New() error = %v", err)
			}

			_, err = p.FetchAll(context.Background(), models.Params{"symbol": "AAPL"}, nil)
			if got := fetcher.TypeOf(err); got != tt.wantType {
				t.Errorf("error type = %q, want %q (%v)", got, tt.wantType, err)
			}
		})
	}
}

func TestQuoteFetcher_AbandonedExtractionReleasesUpstream(t *testing.T) {
	released := make(chan struct{}, 1)
	server := testutil.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		select {
		case released <- struct{}{}:
		default:
		}
	})

	p, err := fetcher.New[models.EquityQuoteQueryParams, *ChartResponse, models.EquityQuoteData](
		models.CategoryEquityQuote, Name, NewQuoteFetcher(testutil.NewTransport(Name, server.URL), 100*time.Millisecond),
		fetcher.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := p.FetchAll(ctx, models.Params{"symbol": "AAPL"}, nil); !fetcher.IsType(err, fetcher.ErrorTypeTimeout) {
		t.Fatalf("FetchAll() error = %v, want timeout", err)
	}

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("upstream request still open after the extraction bound")
	}
}

func TestHistoricalFetcher_Bars(t *testing.T) {
	var gotQuery map[string]string
	server := testutil.NewCountingServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		testutil.JSON(http.StatusOK, historyBody)(w, r)
	})

	p, err := fetcher.New[models.EquityHistoricalQueryParams, *ChartResponse, models.EquityHistoricalData](
		models.CategoryEquityHistorical, Name, NewHistoricalFetcher(testutil.NewTransport(Name, server.URL), time.Second))
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}

	records, err := p.FetchAllBlocking(context.Background(), models.Params{
		"symbol":     "AAPL",
		"start_date": "2024-01-01",
		"end_date":   "2024-01-31",
	}, nil)
	if err != nil {
		t.Fatalf("FetchAllBlocking() error = %v", err)
	}

	if gotQuery["interval"] != "1d" {
		t.Errorf("interval = %q, want 1d", gotQuery["interval"])
	}
	if gotQuery["period1"] != "1704067200" {
		t.Errorf("period1 = %q, want 1704067200", gotQuery["period1"])
	}
	if gotQuery["period2"] != "1706745600" {
		t.Errorf("period2 = %q, want 1706745600", gotQuery["period2"])
	}

	wantDates := []string{"2024-01-02", "2024-01-03", "2024-01-04"}
	if len(records) != len(wantDates) {
		t.Fatalf("len(records) = %d, want %d", len(records), len(wantDates))
	}
	for i, rec := range records {
		if got := rec.Date.Format(models.DateLayout); got != wantDates[i] {
			t.Errorf("records[%d].Date = %s, want %s", i, got, wantDates[i])
		}
	}
	if records[0].ReturnPct != nil {
		t.Errorf("records[0].ReturnPct = %v, want nil", *records[0].ReturnPct)
	}
	if records[2].ReturnPct == nil || math.Abs(*records[2].ReturnPct-((102.0/101.0)-1)*100) > 1e-9 {
		t.Errorf("records[2].ReturnPct = %v", records[2].ReturnPct)
	}
	if records[2].Volume != 3000 {
		t.Errorf("records[2].Volume = %d, want 3000", records[2].Volume)
	}
}

func TestHistoricalFetcher_TransformQuery(t *testing.T) {
	f := NewHistoricalFetcher(nil, 0)

	tests := []struct {
		name    string
		params  models.Params
		wantErr string
	}{
		{"defaults", models.Params{"symbol": "msft"}, ""},
		{"weekly", models.Params{"symbol": "MSFT", "frequency": "weekly"}, ""},
		{"quarterly unsupported", models.Params{"symbol": "MSFT", "frequency": "quarterly"}, "frequency"},
		{"missing symbol", models.Params{"frequency": "daily"}, "symbol"},
		{"inverted window", models.Params{"symbol": "MSFT", "start_date": "2024-02-01", "end_date": "2024-01-01"}, "end_date"},
		{"negative limit", models.Params{"symbol": "MSFT", "limit": -1}, "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := f.TransformQuery(tt.params)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("TransformQuery() error = %v", err)
				}
				if q.Symbol != "MSFT" {
					t.Errorf("Symbol = %q, want MSFT", q.Symbol)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("TransformQuery() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(testutil.NewTransport(Name, "http://localhost"), time.Second)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if len(p.Credentials) != 0 {
		t.Errorf("Credentials = %v, want none", p.Credentials)
	}
	want := []string{models.CategoryEquityHistorical, models.CategoryEquityQuote}
	got := p.Categories()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Categories() = %v, want %v", got, want)
	}
}
