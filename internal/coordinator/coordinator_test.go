package coordinator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"finrouter/internal/models"
	"finrouter/internal/router"
	"finrouter/internal/testutil"
)

// mockRouter answers each request with FetchFunc
type mockRouter struct {
	FetchFunc func(ctx context.Context, req router.Request) ([]models.Record, error)
	blocking  atomic.Int64
}

func (m *mockRouter) ProviderFor(req router.Request) (string, error) {
	if req.Category == "unknown" {
		return "", errors.New("unknown category")
	}
	if req.Provider == "" {
		return "mock", nil
	}
	return req.Provider, nil
}

func (m *mockRouter) Fetch(ctx context.Context, req router.Request) ([]models.Record, error) {
	return m.FetchFunc(ctx, req)
}

func (m *mockRouter) FetchBlocking(ctx context.Context, req router.Request) ([]models.Record, error) {
	m.blocking.Add(1)
	return m.FetchFunc(ctx, req)
}

func records(n int) []models.Record {
	out := make([]models.Record, n)
	for i, r := range testutil.GDPSeries("US", make([]float64, n)...) {
		out[i] = r
	}
	return out
}

func TestRun_Success(t *testing.T) {
	r := &mockRouter{FetchFunc: func(ctx context.Context, req router.Request) ([]models.Record, error) {
		return records(len(req.Category)), nil
	}}

	coord := New(r, []router.Request{
		{Category: "gdp"},
		{Category: "unemployment", Provider: "fred"},
		{Category: "crypto_quote"},
	})

	results, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	wantKeys := []string{"gdp:mock", "unemployment:fred", "crypto_quote:mock"}
	if len(results) != len(wantKeys) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(wantKeys))
	}
	for i, want := range wantKeys {
		if results[i].Key != want {
			t.Errorf("results[%d].Key = %q, want %q", i, results[i].Key, want)
		}
		if results[i].Error != nil {
			t.Errorf("results[%d].Error = %v", i, results[i].Error)
		}
	}
	if len(results[1].Records) != len("unemployment") {
		t.Errorf("len(results[1].Records) = %d, want %d", len(results[1].Records), len("unemployment"))
	}
}

func TestRun_WithErrors(t *testing.T) {
	testErr := errors.New("fetch failed")
	r := &mockRouter{FetchFunc: func(ctx context.Context, req router.Request) ([]models.Record, error) {
		if req.Provider == "broken" {
			return records(1), testErr
		}
		return records(2), nil
	}}

	coord := New(r, []router.Request{
		{Category: "gdp"},
		{Category: "gdp", Provider: "broken"},
		{Category: "unknown"},
		{Category: "gdp"},
	})

	// Errors are reported per request, not at coordinator level
	results, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	if !errors.Is(results[1].Error, testErr) {
		t.Errorf("results[1].Error = %v, want %v", results[1].Error, testErr)
	}
	if results[1].Records != nil {
		t.Errorf("results[1].Records = %v, want nil on error", results[1].Records)
	}
	if results[2].Error == nil || results[2].Key != "unknown:default" {
		t.Errorf("results[2] = %+v, want error for unknown:default", results[2])
	}
	for _, i := range []int{0, 3} {
		if results[i].Error != nil || len(results[i].Records) != 2 {
			t.Errorf("results[%d] = %+v, want 2 records", i, results[i])
		}
	}
}

func TestRun_NoRequests(t *testing.T) {
	coord := New(&mockRouter{}, nil)

	_, err := coord.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error for no requests, got nil")
	}

	expectedErrMsg := "no requests configured"
	if err.Error() != expectedErrMsg {
		t.Errorf("Run() error = %q, want %q", err.Error(), expectedErrMsg)
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	// A slow request that will be cancelled
	r := &mockRouter{FetchFunc: func(ctx context.Context, req router.Request) ([]models.Record, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return records(1), nil
		}
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	results, err := New(r, []router.Request{{Category: "gdp"}}).Run(ctx)
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if !errors.Is(results[0].Error, context.DeadlineExceeded) {
		t.Errorf("results[0].Error = %v, want deadline exceeded", results[0].Error)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run() took %v, want prompt return after cancellation", elapsed)
	}
}

func TestRun_ConcurrentExecution(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	r := &mockRouter{FetchFunc: func(ctx context.Context, req router.Request) ([]models.Record, error) {
		mu.Lock()
		active++
		if active > maxSeen {
			maxSeen = active
		}
		mu.Unlock()

		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return records(1), nil
	}}

	requests := make([]router.Request, 6)
	for i := range requests {
		requests[i] = router.Request{Category: "gdp"}
	}

	start := time.Now()
	if _, err := New(r, requests, WithMaxConcurrency(3)).Run(context.Background()); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	elapsed := time.Since(start)

	if maxSeen > 3 {
		t.Errorf("max concurrent requests = %d, want <= 3", maxSeen)
	}
	if maxSeen < 2 {
		t.Errorf("max concurrent requests = %d, want requests to overlap", maxSeen)
	}
	// Six 50ms requests three at a time take about 100ms, not 300ms
	if elapsed > 250*time.Millisecond {
		t.Errorf("Run() took %v, expected concurrent execution", elapsed)
	}
}

func TestRun_Blocking(t *testing.T) {
	r := &mockRouter{FetchFunc: func(ctx context.Context, req router.Request) ([]models.Record, error) {
		return records(1), nil
	}}

	if _, err := New(r, []router.Request{{Category: "gdp"}, {Category: "gdp"}}, WithBlocking(true)).Run(context.Background()); err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}
	if got := r.blocking.Load(); got != 2 {
		t.Errorf("blocking fetches = %d, want 2", got)
	}
}

func TestPrint(t *testing.T) {
	r := &mockRouter{FetchFunc: func(ctx context.Context, req router.Request) ([]models.Record, error) {
		if req.Provider == "broken" {
			return nil, errors.New("boom")
		}
		return records(3), nil
	}}

	results, err := New(r, []router.Request{{Category: "gdp"}, {Category: "gdp", Provider: "broken"}}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() returned unexpected error: %v", err)
	}

	var buf bytes.Buffer
	Print(&buf, results)

	want := "gdp:mock: 3 records\ngdp:broken: ERROR - boom\n"
	if got := buf.String(); got != want {
		t.Errorf("Print() = %q, want %q", got, want)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Error("Print() missing error line")
	}
}
