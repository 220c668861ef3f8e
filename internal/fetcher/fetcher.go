package fetcher

import (
	"context"

	"finrouter/internal/models"
)

// Fetcher is the core interface that all data fetchers must implement.
// A Fetcher serves one (category, provider) pair in three stages:
// TransformQuery validates raw params into Q, an extractor fetches the raw
// upstream payload R, and Transform normalizes R into ordered D records.
//
// Besides these two methods a Fetcher implements exactly one of Extractor
// or BlockingExtractor; the other calling style is synthesized.
type Fetcher[Q any, R any, D models.Record] interface {
	// TransformQuery validates params and maps them into the fetcher's query.
	// It must not perform I/O.
	TransformQuery(params models.Params) (Q, error)

	// Transform converts the raw payload into canonical records.
	// It must not perform I/O.
	Transform(query Q, raw R) ([]D, error)
}

// Extractor is implemented by fetchers whose extraction is context-native:
// it runs on the caller's goroutine and stops when ctx is done.
type Extractor[Q any, R any] interface {
	Extract(ctx context.Context, query Q, creds models.Credentials) (R, error)
}

// BlockingExtractor is implemented by fetchers whose extraction takes no
// context and runs to completion under its own bounded timeout.
type BlockingExtractor[Q any, R any] interface {
	ExtractBlocking(query Q, creds models.Credentials) (R, error)
}

// Mode names the native calling style of a fetcher's extraction
type Mode string

const (
	// ModeContext marks fetchers implementing Extractor
	ModeContext Mode = "context"
	// ModeBlocking marks fetchers implementing BlockingExtractor
	ModeBlocking Mode = "blocking"
)
