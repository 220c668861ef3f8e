package alphavantage

import (
	"context"
	"fmt"
	"strconv"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// EconomicResponse represents an AlphaVantage economic indicator series.
// Data is newest first and unpublished values are ".".
type EconomicResponse struct {
	Envelope
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Unit     string `json:"unit"`
	Data     []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"data"`
}

// GDPFetcher fetches United States real GDP
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
	if q.Country != "US" {
		return q, &models.ParamError{Field: "country", Message: fmt.Sprintf("unsupported value %q (supported: US)", q.Country)}
	}
	return q, nil
}

// Extract implements fetcher.Extractor
func (f *GDPFetcher) Extract(ctx context.Context, q models.GDPQueryParams, creds models.Credentials) (*EconomicResponse, error) {
	interval := "quarterly"
	if q.Frequency == models.FrequencyAnnual {
		interval = "annual"
	}

	var result EconomicResponse
	if err := query(ctx, f.transport, "REAL_GDP", map[string]string{"interval": interval}, creds, &result); err != nil {
		return nil, err
	}
	if err := result.check(); err != nil {
		return nil, err
	}
	return &result, nil
}

// Transform implements fetcher.Fetcher
func (f *GDPFetcher) Transform(q models.GDPQueryParams, raw *EconomicResponse) ([]models.GDPData, error) {
	if raw.Data == nil {
		return nil, fetcher.NewDataShapeError("response has no data field")
	}

	records := make([]models.GDPData, 0, len(raw.Data))
	for _, obs := range raw.Data {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		date, err := models.ParseDate(obs.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q: %w", obs.Date, err)
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse value %q: %w", obs.Value, err)
		}
		records = append(records, models.GDPData{Country: q.Country, Date: date, Value: value})
	}

	models.SortRecords(records)
	records = models.Dedupe(records)
	records = models.DateWindow(records, q.DateRange)
	records = models.Latest(records, q.Limit)
	models.GDPGrowth(records)
	return records, nil
}
