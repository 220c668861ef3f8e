package registry

import (
	"fmt"

	"finrouter/internal/fetcher"
)

// Catalog bundles the fetcher and provider registries
type Catalog struct {
	Fetchers  *FetcherRegistry
	Providers *ProviderRegistry
	sealed    bool
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{
		Fetchers:  NewFetcherRegistry(),
		Providers: NewProviderRegistry(),
	}
}

// AddProvider registers p and every fetcher it declares.
// Either all registrations succeed or none are applied.
func (c *Catalog) AddProvider(p *Provider) error {
	if c.sealed {
		return fetcher.NewContractError(fmt.Sprintf("catalog is sealed; cannot add provider %s", p.Name))
	}
	if _, err := c.Providers.Get(p.Name); err == nil {
		return &fetcher.FetchError{
			Type:     fetcher.ErrorTypeDuplicateProvider,
			Provider: p.Name,
			Message:  fmt.Sprintf("provider %s already registered", p.Name),
		}
	}

	// Validate every pair before mutating either registry
	for _, f := range p.fetchers {
		if err := c.Fetchers.check(f.Category, p.Name, f.Runner); err != nil {
			return err
		}
	}

	if err := c.Providers.Register(p); err != nil {
		return err
	}
	for _, f := range p.fetchers {
		if err := c.Fetchers.Register(f.Category, p.Name, f.Runner, f.Description, f.Options...); err != nil {
			return err
		}
	}
	return nil
}

// Seal makes both registries read-only
func (c *Catalog) Seal() {
	c.sealed = true
	c.Fetchers.Seal()
	c.Providers.Seal()
}

// Sealed reports whether Seal has been called
func (c *Catalog) Sealed() bool { return c.sealed }
