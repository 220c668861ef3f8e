// Package registry maps (category, provider) pairs to fetch pipelines and
// holds the providers that own them.
//
// Registries are filled once at start-up and sealed; after Seal they are
// read-only and safe for concurrent readers without locking.
package registry

import (
	"fmt"
	"sort"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// FetcherMetadata describes one registered fetcher
type FetcherMetadata struct {
	Category    string       `json:"category" yaml:"category"`
	Provider    string       `json:"provider" yaml:"provider"`
	Description string       `json:"description" yaml:"description"`
	QueryType   string       `json:"query_type" yaml:"query_type"`
	DataType    string       `json:"data_type" yaml:"data_type"`
	Mode        fetcher.Mode `json:"mode" yaml:"mode"`
	// Priority orders providers of a category when the caller names none; lower wins
	Priority int `json:"priority" yaml:"priority"`
}

// RegisterOption adjusts the metadata of a registration
type RegisterOption func(*FetcherMetadata)

// WithPriority sets the default-selection priority (lower wins, ties go to
// the earlier registration)
func WithPriority(priority int) RegisterOption {
	return func(m *FetcherMetadata) { m.Priority = priority }
}

type key struct {
	category string
	provider string
}

type entry struct {
	meta   FetcherMetadata
	runner fetcher.Runner
	seq    int
}

// FetcherRegistry maps (category, provider) to a Runner
type FetcherRegistry struct {
	entries    map[key]*entry
	byCategory map[string][]*entry
	seq        int
	sealed     bool
}

// NewFetcherRegistry creates an empty registry
func NewFetcherRegistry() *FetcherRegistry {
	return &FetcherRegistry{
		entries:    make(map[key]*entry),
		byCategory: make(map[string][]*entry),
	}
}

// Register adds runner under (category, provider).
// It rejects a pair that is already registered, a runner whose declared
// types differ from the category's standard model, and any registration
// after Seal.
func (r *FetcherRegistry) Register(category, provider string, runner fetcher.Runner, description string, opts ...RegisterOption) error {
	if err := r.check(category, provider, runner); err != nil {
		return err
	}

	meta := FetcherMetadata{
		Category:    category,
		Provider:    provider,
		Description: description,
		QueryType:   runner.QueryType().String(),
		DataType:    runner.DataType().String(),
		Mode:        runner.Mode(),
	}
	for _, opt := range opts {
		opt(&meta)
	}

	e := &entry{meta: meta, runner: runner, seq: r.seq}
	r.seq++
	r.entries[key{category, provider}] = e
	r.byCategory[category] = append(r.byCategory[category], e)
	return nil
}

func (r *FetcherRegistry) check(category, provider string, runner fetcher.Runner) error {
	if r.sealed {
		return fetcher.NewContractError(fmt.Sprintf("registry is sealed; cannot register %s/%s", category, provider))
	}
	if runner == nil {
		return fetcher.NewContractError(fmt.Sprintf("%s/%s: fetcher is nil", category, provider))
	}
	if runner.Category() != category || runner.Provider() != provider {
		return fetcher.NewContractError(fmt.Sprintf("fetcher bound to %s/%s registered as %s/%s",
			runner.Category(), runner.Provider(), category, provider))
	}

	spec, ok := models.Standard(category)
	if !ok {
		return fetcher.NewContractError(fmt.Sprintf("unknown category %q", category))
	}
	if runner.QueryType() != spec.QueryType || runner.DataType() != spec.DataType {
		return fetcher.NewContractError(fmt.Sprintf("%s/%s declares %s -> %s, category requires %s -> %s",
			category, provider, runner.QueryType(), runner.DataType(), spec.QueryType, spec.DataType))
	}

	if _, exists := r.entries[key{category, provider}]; exists {
		return &fetcher.FetchError{
			Type:     fetcher.ErrorTypeDuplicateRegistration,
			Provider: provider,
			Message:  fmt.Sprintf("fetcher for %s/%s already registered", category, provider),
		}
	}
	return nil
}

// Get returns the runner registered under (category, provider)
func (r *FetcherRegistry) Get(category, provider string) (fetcher.Runner, error) {
	e, err := r.lookup(category, provider)
	if err != nil {
		return nil, err
	}
	return e.runner, nil
}

// GetMetadata returns the metadata registered under (category, provider)
func (r *FetcherRegistry) GetMetadata(category, provider string) (FetcherMetadata, error) {
	e, err := r.lookup(category, provider)
	if err != nil {
		return FetcherMetadata{}, err
	}
	return e.meta, nil
}

func (r *FetcherRegistry) lookup(category, provider string) (*entry, error) {
	if _, ok := r.byCategory[category]; !ok {
		return nil, fetcher.NewNotFoundError(fmt.Sprintf("unknown category %q", category))
	}
	e, ok := r.entries[key{category, provider}]
	if !ok {
		return nil, fetcher.NewNotFoundError(fmt.Sprintf("provider %q does not serve category %q", provider, category))
	}
	return e, nil
}

// ListCategories returns every category with at least one fetcher, sorted
func (r *FetcherRegistry) ListCategories() []string {
	categories := make([]string, 0, len(r.byCategory))
	for c := range r.byCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// ListProviders returns the providers serving category, sorted
func (r *FetcherRegistry) ListProviders(category string) []string {
	entries := r.byCategory[category]
	providers := make([]string, 0, len(entries))
	for _, e := range entries {
		providers = append(providers, e.meta.Provider)
	}
	sort.Strings(providers)
	return providers
}

// Metadata returns the fetchers of category in default-selection order
func (r *FetcherRegistry) Metadata(category string) []FetcherMetadata {
	entries := r.ranked(category)
	out := make([]FetcherMetadata, len(entries))
	for i, e := range entries {
		out[i] = e.meta
	}
	return out
}

// DefaultProvider returns the provider used when a caller names none:
// the lowest priority, ties broken by registration order.
func (r *FetcherRegistry) DefaultProvider(category string) (string, error) {
	entries := r.ranked(category)
	if len(entries) == 0 {
		return "", fetcher.NewNotFoundError(fmt.Sprintf("unknown category %q", category))
	}
	return entries[0].meta.Provider, nil
}

func (r *FetcherRegistry) ranked(category string) []*entry {
	entries := append([]*entry(nil), r.byCategory[category]...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].meta.Priority != entries[j].meta.Priority {
			return entries[i].meta.Priority < entries[j].meta.Priority
		}
		return entries[i].seq < entries[j].seq
	})
	return entries
}

// Seal makes the registry read-only
func (r *FetcherRegistry) Seal() { r.sealed = true }
