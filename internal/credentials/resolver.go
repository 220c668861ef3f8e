// Package credentials merges explicitly supplied credentials with values
// taken from the environment.
//
// A missing required field named api_key for provider fred is looked up in
// the environment variable FRED_API_KEY.
package credentials

import (
	"fmt"
	"os"
	"strings"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// Resolver resolves the credentials of one call
type Resolver struct {
	// LookupEnv reads an environment value; defaults to os.LookupEnv
	LookupEnv func(key string) (string, bool)
}

// NewResolver returns a Resolver reading the process environment
func NewResolver() *Resolver {
	return &Resolver{LookupEnv: os.LookupEnv}
}

// EnvName returns the environment variable consulted for a provider field
func EnvName(provider, field string) string {
	return strings.ToUpper(provider + "_" + field)
}

// Resolve returns a new map holding every explicit credential plus the
// required fields found in the environment. Explicit values win. Empty values
// count as absent. If any required field is still missing, Resolve fails with
// a single credentials error listing every missing field and where it was
// looked for.
func (r *Resolver) Resolve(explicit models.Credentials, provider string, required []string) (models.Credentials, error) {
	lookup := r.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	merged := make(models.Credentials, len(explicit)+len(required))
	for k, v := range explicit {
		if v != "" {
			merged[k] = v
		}
	}

	var missing []string
	for _, field := range required {
		if merged[field] != "" {
			continue
		}
		env := EnvName(provider, field)
		if v, ok := lookup(env); ok && v != "" {
			merged[field] = v
			continue
		}
		missing = append(missing, fmt.Sprintf("%s (pass credentials[%q] or set %s)", field, field, env))
	}

	if len(missing) > 0 {
		return nil, fetcher.NewCredentialsError(provider, "missing required credentials: "+strings.Join(missing, "; "))
	}
	return merged, nil
}
