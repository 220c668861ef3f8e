package fred

import (
	"context"
	"fmt"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// unemploymentSeries maps a country code to its harmonised unemployment rate series
var unemploymentSeries = map[string]string{
	"US": "UNRATE",
	"GB": "LRHUTTTTGBM156S",
	"DE": "LRHUTTTTDEM156S",
	"FR": "LRHUTTTTFRM156S",
	"IT": "LRHUTTTTITM156S",
	"JP": "LRHUTTTTJPM156S",
	"CA": "LRHUTTTTCAM156S",
	"AU": "LRHUTTTTAUM156S",
}

// UnemploymentFetcher fetches unemployment rate series
type UnemploymentFetcher struct {
	transport *fetcher.Transport
}

// NewUnemploymentFetcher creates an unemployment fetcher on t
func NewUnemploymentFetcher(t *fetcher.Transport) *UnemploymentFetcher {
	return &UnemploymentFetcher{transport: t}
}

// TransformQuery implements fetcher.Fetcher
func (f *UnemploymentFetcher) TransformQuery(params models.Params) (models.UnemploymentQueryParams, error) {
	var q models.UnemploymentQueryParams
	if err := models.Decode(params, &q); err != nil {
		return q, err
	}
	if err := q.Validate(); err != nil {
		return q, err
	}
	if _, ok := unemploymentSeries[q.Country]; !ok {
		return q, &models.ParamError{
			Field:   "country",
			Message: fmt.Sprintf("unsupported value %q (supported: %s)", q.Country, supported(unemploymentSeries)),
		}
	}
	return q, nil
}

// Extract implements fetcher.Extractor
func (f *UnemploymentFetcher) Extract(ctx context.Context, q models.UnemploymentQueryParams, creds models.Credentials) (*ObservationsResponse, error) {
	return observations(ctx, f.transport, unemploymentSeries[q.Country], q.Frequency, q.DateRange, creds)
}

// Transform implements fetcher.Fetcher
func (f *UnemploymentFetcher) Transform(q models.UnemploymentQueryParams, raw *ObservationsResponse) ([]models.UnemploymentData, error) {
	pts, err := points(raw)
	if err != nil {
		return nil, err
	}

	records := make([]models.UnemploymentData, 0, len(pts))
	for _, p := range pts {
		records = append(records, models.UnemploymentData{
			Country: q.Country,
			Date:    p.date,
			Value:   p.value,
		})
	}

	models.SortRecords(records)
	records = models.Dedupe(records)
	records = models.DateWindow(records, q.DateRange)
	records = models.Latest(records, q.Limit)
	models.UnemploymentChanges(records)
	return records, nil
}
