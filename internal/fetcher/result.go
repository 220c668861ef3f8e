package fetcher

import "finrouter/internal/models"

// Result represents the outcome of one routed fetch.
// It's produced by worker goroutines and collected by a coordinator that
// reports them in request order.
type Result struct {
	// Key identifies the request, formatted as {category}:{provider}
	Key string

	// Records are the ordered records of the fetch
	Records []models.Record

	// Error contains any error that occurred during the fetch operation.
	// If Error is not nil, Records is empty.
	Error error
}
