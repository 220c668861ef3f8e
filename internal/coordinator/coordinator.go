package coordinator

import (
	"context"
	"fmt"
	"io"

	"github.com/sourcegraph/conc/pool"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
	"finrouter/internal/router"
)

// DefaultMaxConcurrency bounds the number of requests in flight at once
const DefaultMaxConcurrency = 8

// Router is the part of router.Router the coordinator drives
type Router interface {
	ProviderFor(req router.Request) (string, error)
	Fetch(ctx context.Context, req router.Request) ([]models.Record, error)
	FetchBlocking(ctx context.Context, req router.Request) ([]models.Record, error)
}

// Coordinator runs a batch of routed requests concurrently and aggregates results
type Coordinator struct {
	router         Router
	requests       []router.Request
	maxConcurrency int
	blocking       bool
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithMaxConcurrency bounds how many requests run at once
func WithMaxConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithBlocking runs every request on the blocking path
func WithBlocking(blocking bool) Option {
	return func(c *Coordinator) { c.blocking = blocking }
}

// New creates a new Coordinator for the given requests
func New(r Router, requests []router.Request, opts ...Option) *Coordinator {
	c := &Coordinator{
		router:         r,
		requests:       requests,
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes all requests concurrently and returns one result per request,
// in request order. A failing request never cancels the others; its error is
// reported in its own Result.
func (c *Coordinator) Run(ctx context.Context) ([]fetcher.Result, error) {
	if len(c.requests) == 0 {
		return nil, fmt.Errorf("no requests configured")
	}

	results := make([]fetcher.Result, len(c.requests))
	p := pool.New().WithMaxGoroutines(c.maxConcurrency)

	for i, req := range c.requests {
		p.Go(func() {
			results[i] = c.run(ctx, req)
		})
	}
	p.Wait()

	return results, nil
}

func (c *Coordinator) run(ctx context.Context, req router.Request) fetcher.Result {
	provider, err := c.router.ProviderFor(req)
	if err != nil {
		return fetcher.Result{Key: key(req.Category, req.Provider), Error: err}
	}

	var records []models.Record
	if c.blocking {
		records, err = c.router.FetchBlocking(ctx, req)
	} else {
		records, err = c.router.Fetch(ctx, req)
	}
	if err != nil {
		records = nil
	}

	return fetcher.Result{
		Key:     key(req.Category, provider),
		Records: records,
		Error:   err,
	}
}

func key(category, provider string) string {
	if provider == "" {
		provider = "default"
	}
	return category + ":" + provider
}

// Print writes results to w in the format:
//   - Success: "KEY: N records"
//   - Error: "KEY: ERROR - error message"
func Print(w io.Writer, results []fetcher.Result) {
	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(w, "%s: ERROR - %v\n", result.Key, result.Error)
		} else {
			fmt.Fprintf(w, "%s: %d records\n", result.Key, len(result.Records))
		}
	}
}
