package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finrouter/internal/credentials"
	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/ratelimit"
	"finrouter/internal/registry"
)

// SpyFetcher is a context-native GDP fetcher that counts extraction calls
type SpyFetcher struct {
	ExtractFunc func(ctx context.Context, q models.GDPQueryParams, creds models.Credentials) ([]models.GDPData, error)

	calls atomic.Int64
}

// TransformQuery implements fetcher.Fetcher
func (s *SpyFetcher) TransformQuery(params models.Params) (models.GDPQueryParams, error) {
	var q models.GDPQueryParams
	if err := models.Decode(params, &q); err != nil {
		return q, err
	}
	return q, q.Validate()
}

// Extract implements fetcher.Extractor
func (s *SpyFetcher) Extract(ctx context.Context, q models.GDPQueryParams, creds models.Credentials) ([]models.GDPData, error) {
	s.calls.Add(1)
	if s.ExtractFunc != nil {
		return s.ExtractFunc(ctx, q, creds)
	}
	return nil, nil
}

// Transform implements fetcher.Fetcher
func (s *SpyFetcher) Transform(q models.GDPQueryParams, raw []models.GDPData) ([]models.GDPData, error) {
	return append([]models.GDPData(nil), raw...), nil
}

// Calls returns how many times Extract ran
func (s *SpyFetcher) Calls() int64 { return s.calls.Load() }

// NewSpyPipeline binds a SpyFetcher returning records to (gdp, provider)
func NewSpyPipeline(t *testing.T, provider string, records []models.GDPData, opts ...fetcher.Option) (*fetcher.Pipeline[models.GDPQueryParams, []models.GDPData, models.GDPData], *SpyFetcher) {
	t.Helper()
	spy := &SpyFetcher{
		ExtractFunc: func(context.Context, models.GDPQueryParams, models.Credentials) ([]models.GDPData, error) {
			return records, nil
		},
	}
	p, err := fetcher.New[models.GDPQueryParams, []models.GDPData, models.GDPData](models.CategoryGDP, provider, spy, opts...)
	if err != nil {
		t.Fatalf("fetcher.New() error = %v", err)
	}
	return p, spy
}

// GDPSeries builds quarterly GDP records for country starting at 2020-01-01
func GDPSeries(country string, values ...float64) []models.GDPData {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.GDPData, len(values))
	for i, v := range values {
		out[i] = models.GDPData{Country: country, Date: start.AddDate(0, 3*i, 0), Value: v}
	}
	return out
}

// SpyCatalog serves gdp from two spy providers: "open" is the default and
// needs no credentials, "keyed" has priority 1 and requires api_key
type SpyCatalog struct {
	*registry.Catalog
	Open  *SpyFetcher
	Keyed *SpyFetcher
}

// NewSpyCatalog builds a sealed SpyCatalog whose providers return the given records
func NewSpyCatalog(t *testing.T, open, keyed []models.GDPData, opts ...fetcher.Option) *SpyCatalog {
	t.Helper()
	openPipeline, openSpy := NewSpyPipeline(t, "open", open, opts...)
	keyedPipeline, keyedSpy := NewSpyPipeline(t, "keyed", keyed, opts...)

	openProvider := registry.NewProvider("open", "Open data", "https://open.example")
	if err := openProvider.Add(models.CategoryGDP, openPipeline, "open gdp"); err != nil {
		t.Fatalf("Add(open) error = %v", err)
	}
	keyedProvider := registry.NewProvider("keyed", "Keyed data", "https://keyed.example", "api_key")
	if err := keyedProvider.Add(models.CategoryGDP, keyedPipeline, "keyed gdp", registry.WithPriority(1)); err != nil {
		t.Fatalf("Add(keyed) error = %v", err)
	}

	c := registry.NewCatalog()
	for _, p := range []*registry.Provider{openProvider, keyedProvider} {
		if err := c.AddProvider(p); err != nil {
			t.Fatalf("AddProvider(%s) error = %v", p.Name, err)
		}
	}
	c.Seal()
	return &SpyCatalog{Catalog: c, Open: openSpy, Keyed: keyedSpy}
}

// Env returns a credential resolver reading vars instead of the process environment
func Env(vars map[string]string) *credentials.Resolver {
	return &credentials.Resolver{LookupEnv: func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}}
}

// StubClock is a ratelimit.Clock that never sleeps.
// Sleep records the instant the caller would have woken up.
type StubClock struct {
	mu     sync.Mutex
	now    time.Time
	wakeup []time.Time
}

// NewStubClock creates a clock frozen at now
func NewStubClock(now time.Time) *StubClock {
	return &StubClock{now: now}
}

// Now implements ratelimit.Clock
func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep implements ratelimit.Clock
func (c *StubClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wakeup = append(c.wakeup, c.now.Add(d))
	return nil
}

// Wakeups returns the recorded wake-up instants in call order
func (c *StubClock) Wakeups() []time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Time(nil), c.wakeup...)
}

var _ ratelimit.Clock = (*StubClock)(nil)

// CountingServer is an upstream stub that counts the requests it receives
type CountingServer struct {
	*httptest.Server
	hits atomic.Int64
}

// NewCountingServer starts a stub upstream serving h; it is closed with the test
func NewCountingServer(t *testing.T, h http.HandlerFunc) *CountingServer {
	t.Helper()
	s := &CountingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns the number of requests served
func (s *CountingServer) Hits() int64 { return s.hits.Load() }

// JSON returns a handler writing body as a JSON response with status
func JSON(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}

// NewTransport creates an ungated transport for provider against baseURL
// with fast retries
func NewTransport(provider, baseURL string) *fetcher.Transport {
	return fetcher.NewTransport(fetcher.TransportConfig{
		Provider:         provider,
		BaseURL:          baseURL,
		Timeout:          5 * time.Second,
		RetryCount:       2,
		RetryWaitTime:    time.Millisecond,
		RetryMaxWaitTime: 5 * time.Millisecond,
	}, ratelimit.New(ratelimit.RealClock()))
}
