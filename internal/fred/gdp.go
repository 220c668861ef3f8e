package fred

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// gdpSeries maps an ISO 3166 alpha-2 country code to its GDP series
var gdpSeries = map[string]string{
	"US": "GDP",
	"GB": "UKNGDP",
	"JP": "JPNNGDP",
	"CA": "NGDPSAXDCCAQ",
	"DE": "CLVMNACSCAB1GQDE",
	"FR": "CLVMNACSCAB1GQFR",
	"IT": "CLVMNACSCAB1GQIT",
	"ES": "CLVMNACSCAB1GQES",
}

// GDPFetcher fetches gross domestic product series
type GDPFetcher struct {
	transport *fetcher.Transport
}

// NewGDPFetcher creates a GDP fetcher on t
func NewGDPFetcher(t *fetcher.Transport) *GDPFetcher {
	return &GDPFetcher{transport: t}
}

// TransformQuery implements fetcher.Fetcher
func (f *GDPFetcher) TransformQuery(params models.Params) (models.GDPQueryParams, error) {
	var q models.GDPQueryParams
	if err := models.Decode(params, &q); err != nil {
		return q, err
	}
	if err := q.Validate(); err != nil {
		return q, err
	}
	if _, ok := gdpSeries[q.Country]; !ok {
		return q, &models.ParamError{
			Field:   "country",
			Message: fmt.Sprintf("unsupported value %q (supported: %s)", q.Country, supported(gdpSeries)),
		}
	}
	return q, nil
}

// Extract implements fetcher.Extractor
func (f *GDPFetcher) Extract(ctx context.Context, q models.GDPQueryParams, creds models.Credentials) (*ObservationsResponse, error) {
	return observations(ctx, f.transport, gdpSeries[q.Country], q.Frequency, q.DateRange, creds)
}

// Transform implements fetcher.Fetcher
func (f *GDPFetcher) Transform(q models.GDPQueryParams, raw *ObservationsResponse) ([]models.GDPData, error) {
	pts, err := points(raw)
	if err != nil {
		return nil, err
	}

	records := make([]models.GDPData, 0, len(pts))
	for _, p := range pts {
		records = append(records, models.GDPData{
			Country: q.Country,
			Date:    p.date,
			Value:   p.value,
		})
	}

	models.SortRecords(records)
	records = models.Dedupe(records)
	records = models.DateWindow(records, q.DateRange)
	records = models.Latest(records, q.Limit)
	models.GDPGrowth(records)
	return records, nil
}

func supported(series map[string]string) string {
	codes := make([]string, 0, len(series))
	for code := range series {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return strings.Join(codes, ", ")
}
