package alphavantage

import (
	"context"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// Envelope holds the advisory fields AlphaVantage returns with status 200
// instead of data when a call is throttled or rejected.
type Envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// check turns an advisory payload into an error
func (e Envelope) check() error {
	switch {
	case e.ErrorMessage != "":
		return fetcher.NewProviderError(0, e.ErrorMessage)
	case e.Note != "":
		fe := fetcher.NewRateLimitError(0)
		fe.Message = e.Note
		return fe
	case e.Information != "":
		fe := fetcher.NewRateLimitError(0)
		fe.Message = e.Information
		return fe
	default:
		return nil
	}
}

// query runs one function call against the query endpoint
func query(ctx context.Context, t *fetcher.Transport, function string, params map[string]string, creds models.Credentials, result any) error {
	q := map[string]string{
		"function": function,
		"apikey":   creds[CredentialAPIKey],
	}
	for k, v := range params {
		q[k] = v
	}
	return t.Get(ctx, fetcher.Request{Query: q}, result)
}
