// Package router is the public entry point: it resolves a category (and an
// optional provider) to a fetch pipeline, resolves credentials and runs the
// pipeline on either the context-aware or the blocking path.
//
// The router adds no retry and no provider fallback. The first failure of
// the registry, the resolver, the provider or the pipeline is returned as is.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"finrouter/internal/credentials"
	"finrouter/internal/fetcher"
	"finrouter/internal/metrics"
	"finrouter/internal/models"
	"finrouter/internal/registry"
)

// Request is one routed fetch
type Request struct {
	Category string
	Params   models.Params
	// Provider selects a specific source; empty selects the category default
	Provider string
	// Credentials are explicit values that take precedence over the environment
	Credentials models.Credentials
}

// Router is a stateless view over a sealed catalog.
// Routers are cheap to create and safe for concurrent use.
type Router struct {
	catalog  *registry.Catalog
	resolver *credentials.Resolver
	logger   *slog.Logger
}

// Option configures a Router
type Option func(*Router)

// WithResolver replaces the environment-backed credential resolver
func WithResolver(res *credentials.Resolver) Option {
	return func(r *Router) { r.resolver = res }
}

// WithLogger sets the router logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New creates a router over c
func New(c *registry.Catalog, opts ...Option) *Router {
	r := &Router{
		catalog:  c,
		resolver: credentials.NewResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch runs req on the caller's goroutine; ctx cancellation stops the extraction
func (r *Router) Fetch(ctx context.Context, req Request) ([]models.Record, error) {
	return r.fetch(ctx, req, false)
}

// FetchBlocking runs req to completion without depending on ctx
// cancellation. It must not be called from inside another blocking fetch's
// extraction; such calls fail with a reentrant error.
func (r *Router) FetchBlocking(ctx context.Context, req Request) ([]models.Record, error) {
	return r.fetch(ctx, req, true)
}

// ProviderFor returns the provider that serves req: the named one, or the
// category default when req names none
func (r *Router) ProviderFor(req Request) (string, error) {
	if req.Provider != "" {
		return req.Provider, nil
	}
	return r.catalog.Fetchers.DefaultProvider(req.Category)
}

func (r *Router) fetch(ctx context.Context, req Request, blocking bool) (records []models.Record, err error) {
	start := time.Now()

	name, err := r.ProviderFor(req)
	if err != nil {
		return nil, err
	}

	log := r.logger.With("request_id", uuid.NewString(), "category", req.Category, "provider", name)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = string(fetcher.TypeOf(err))
			if outcome == "" {
				outcome = "error"
			}
			log.Debug("fetch failed", "error", err, "elapsed", time.Since(start))
		} else {
			log.Debug("fetch complete", "records", len(records), "elapsed", time.Since(start))
		}
		metrics.ObserveFetch(req.Category, name, outcome, time.Since(start))
	}()

	runner, err := r.catalog.Fetchers.Get(req.Category, name)
	if err != nil {
		return nil, err
	}

	call, err := runner.Prepare(req.Params)
	if err != nil {
		return nil, err
	}

	log.Debug("fetch stage", "stage", fetcher.StageAuthenticating)
	provider, err := r.catalog.Providers.Get(name)
	if err != nil {
		return nil, err
	}
	creds, err := r.resolver.Resolve(req.Credentials, name, provider.Credentials)
	if err != nil {
		return nil, err
	}
	if err := provider.ValidateCredentials(creds); err != nil {
		return nil, err
	}

	if blocking {
		return call.RunBlocking(ctx, creds)
	}
	return call.Run(ctx, creds)
}

// FetchAs is Router.Fetch with records typed as the category's Data type D
func FetchAs[D models.Record](ctx context.Context, r *Router, req Request) ([]D, error) {
	records, err := r.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return cast[D](req, records)
}

// FetchBlockingAs is Router.FetchBlocking with records typed as D
func FetchBlockingAs[D models.Record](ctx context.Context, r *Router, req Request) ([]D, error) {
	records, err := r.FetchBlocking(ctx, req)
	if err != nil {
		return nil, err
	}
	return cast[D](req, records)
}

func cast[D models.Record](req Request, records []models.Record) ([]D, error) {
	out := make([]D, 0, len(records))
	for _, rec := range records {
		d, ok := rec.(D)
		if !ok {
			var want D
			return nil, fetcher.NewContractError(fmt.Sprintf("%s returned %T, not %T", req.Category, rec, want))
		}
		out = append(out, d)
	}
	return out, nil
}

// CategoryInfo describes a category and the fetchers serving it
type CategoryInfo struct {
	Name            string                     `json:"name" yaml:"name"`
	Description     string                     `json:"description" yaml:"description"`
	QueryType       string                     `json:"query_type" yaml:"query_type"`
	DataType        string                     `json:"data_type" yaml:"data_type"`
	DefaultProvider string                     `json:"default_provider" yaml:"default_provider"`
	Fetchers        []registry.FetcherMetadata `json:"fetchers" yaml:"fetchers"`
}

// ProviderInfo describes a provider
type ProviderInfo struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Website     string   `json:"website" yaml:"website"`
	Credentials []string `json:"credentials" yaml:"credentials"`
	Categories  []string `json:"categories" yaml:"categories"`
}

// ListCategories returns the categories with at least one fetcher, sorted
func (r *Router) ListCategories() []string {
	return r.catalog.Fetchers.ListCategories()
}

// ListProviders returns the providers serving category, sorted
func (r *Router) ListProviders(category string) ([]string, error) {
	providers := r.catalog.Fetchers.ListProviders(category)
	if len(providers) == 0 {
		return nil, fetcher.NewNotFoundError(fmt.Sprintf("unknown category %q", category))
	}
	return providers, nil
}

// CategoryInfo describes category
func (r *Router) CategoryInfo(category string) (CategoryInfo, error) {
	def, err := r.catalog.Fetchers.DefaultProvider(category)
	if err != nil {
		return CategoryInfo{}, err
	}
	spec, _ := models.Standard(category)
	return CategoryInfo{
		Name:            category,
		Description:     spec.Description,
		QueryType:       spec.QueryType.String(),
		DataType:        spec.DataType.String(),
		DefaultProvider: def,
		Fetchers:        r.catalog.Fetchers.Metadata(category),
	}, nil
}

// ProviderInfo describes the provider called name
func (r *Router) ProviderInfo(name string) (ProviderInfo, error) {
	p, err := r.catalog.Providers.Get(name)
	if err != nil {
		return ProviderInfo{}, err
	}
	return providerInfo(p), nil
}

// Providers describes every provider, sorted by name
func (r *Router) Providers() []ProviderInfo {
	list := r.catalog.Providers.List()
	out := make([]ProviderInfo, len(list))
	for i, p := range list {
		out[i] = providerInfo(p)
	}
	return out
}

func providerInfo(p *registry.Provider) ProviderInfo {
	return ProviderInfo{
		Name:        p.Name,
		Description: p.Description,
		Website:     p.Website,
		Credentials: append([]string{}, p.Credentials...),
		Categories:  p.Categories(),
	}
}

// SelfTest runs the contract check of one fetcher with resolved credentials
func (r *Router) SelfTest(ctx context.Context, req Request) (fetcher.Report, error) {
	name, err := r.ProviderFor(req)
	if err != nil {
		return fetcher.Report{}, err
	}
	runner, err := r.catalog.Fetchers.Get(req.Category, name)
	if err != nil {
		return fetcher.Report{}, err
	}
	provider, err := r.catalog.Providers.Get(name)
	if err != nil {
		return fetcher.Report{}, err
	}
	creds, err := r.resolver.Resolve(req.Credentials, name, provider.Credentials)
	if err != nil {
		return fetcher.Report{}, err
	}
	return runner.SelfTest(ctx, req.Params, creds)
}
