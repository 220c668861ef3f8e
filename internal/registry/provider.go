package registry

import (
	"fmt"
	"sort"
	"strings"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// Provider groups the fetchers of one upstream source
type Provider struct {
	Name        string
	Description string
	Website     string
	// Credentials lists the credential fields every call to this provider needs
	Credentials []string

	fetchers []ProviderFetcher
}

// ProviderFetcher is one category served by a provider
type ProviderFetcher struct {
	Category    string
	Description string
	Runner      fetcher.Runner
	Options     []RegisterOption
}

// NewProvider creates a provider with no fetchers
func NewProvider(name, description, website string, credentials ...string) *Provider {
	return &Provider{
		Name:        name,
		Description: description,
		Website:     website,
		Credentials: credentials,
	}
}

// Add declares the fetcher serving category
func (p *Provider) Add(category string, runner fetcher.Runner, description string, opts ...RegisterOption) error {
	if _, ok := p.Fetcher(category); ok {
		return &fetcher.FetchError{
			Type:     fetcher.ErrorTypeDuplicateRegistration,
			Provider: p.Name,
			Message:  fmt.Sprintf("provider already serves %s", category),
		}
	}
	p.fetchers = append(p.fetchers, ProviderFetcher{
		Category:    category,
		Description: description,
		Runner:      runner,
		Options:     opts,
	})
	return nil
}

// Fetchers returns the provider's fetchers in declaration order
func (p *Provider) Fetchers() []ProviderFetcher {
	return append([]ProviderFetcher(nil), p.fetchers...)
}

// Fetcher returns the runner serving category
func (p *Provider) Fetcher(category string) (fetcher.Runner, bool) {
	for _, f := range p.fetchers {
		if f.Category == category {
			return f.Runner, true
		}
	}
	return nil, false
}

// Categories returns the categories the provider serves, sorted
func (p *Provider) Categories() []string {
	out := make([]string, 0, len(p.fetchers))
	for _, f := range p.fetchers {
		out = append(out, f.Category)
	}
	sort.Strings(out)
	return out
}

// ValidateCredentials checks that every required field is present.
// The error names all missing fields at once.
func (p *Provider) ValidateCredentials(creds models.Credentials) error {
	var missing []string
	for _, field := range p.Credentials {
		if creds[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return fetcher.NewCredentialsError(p.Name, "missing required credentials: "+strings.Join(missing, ", "))
	}
	return nil
}

// ProviderRegistry holds providers by name
type ProviderRegistry struct {
	providers map[string]*Provider
	sealed    bool
}

// NewProviderRegistry creates an empty registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{providers: make(map[string]*Provider)}
}

// Register adds p, rejecting a name that is already taken
func (r *ProviderRegistry) Register(p *Provider) error {
	if r.sealed {
		return fetcher.NewContractError(fmt.Sprintf("registry is sealed; cannot register provider %s", p.Name))
	}
	if p.Name == "" {
		return fetcher.NewContractError("provider name is empty")
	}
	if _, exists := r.providers[p.Name]; exists {
		return &fetcher.FetchError{
			Type:     fetcher.ErrorTypeDuplicateProvider,
			Provider: p.Name,
			Message:  fmt.Sprintf("provider %s already registered", p.Name),
		}
	}
	r.providers[p.Name] = p
	return nil
}

// Get returns the provider called name
func (r *ProviderRegistry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fetcher.NewNotFoundError(fmt.Sprintf("unknown provider %q", name))
	}
	return p, nil
}

// List returns every provider sorted by name
func (r *ProviderRegistry) List() []*Provider {
	out := make([]*Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Seal makes the registry read-only
func (r *ProviderRegistry) Seal() { r.sealed = true }
