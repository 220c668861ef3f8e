package fred

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

// missingValue marks an observation the source has not published
const missingValue = "."

// ObservationsResponse represents the FRED series/observations response.
// Errors come back as error_code and error_message, sometimes with status 200.
type ObservationsResponse struct {
	ObservationStart string        `json:"observation_start"`
	ObservationEnd   string        `json:"observation_end"`
	Count            int           `json:"count"`
	Observations     []Observation `json:"observations"`
	ErrorCode        int           `json:"error_code"`
	ErrorMessage     string        `json:"error_message"`
}

// Observation is one dated value of a series
type Observation struct {
	Date  string `json:"date"`
	Value string `json:"value"`
}

type point struct {
	date  time.Time
	value float64
}

var frequencyCodes = map[models.Frequency]string{
	models.FrequencyMonthly:   "m",
	models.FrequencyQuarterly: "q",
	models.FrequencyAnnual:    "a",
}

// observations requests one series over an optional window
func observations(ctx context.Context, t *fetcher.Transport, seriesID string, freq models.Frequency, window models.DateRange, creds models.Credentials) (*ObservationsResponse, error) {
	query := map[string]string{
		"series_id":  seriesID,
		"api_key":    creds[CredentialAPIKey],
		"file_type":  "json",
		"sort_order": "asc",
	}
	if code, ok := frequencyCodes[freq]; ok {
		query["frequency"] = code
	}
	if !window.StartDate.IsZero() {
		query["observation_start"] = window.StartDate.Format(models.DateLayout)
	}
	if !window.EndDate.IsZero() {
		query["observation_end"] = window.EndDate.Format(models.DateLayout)
	}

	var result ObservationsResponse
	if err := t.Get(ctx, fetcher.Request{Path: "/series/observations", Query: query}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// points parses the published observations, skipping missing values.
// A body without an observations array is an error, an empty array is not.
func points(resp *ObservationsResponse) ([]point, error) {
	if resp == nil {
		return nil, fmt.Errorf("empty response")
	}
	if resp.ErrorMessage != "" {
		return nil, fetcher.NewProviderError(resp.ErrorCode, resp.ErrorMessage)
	}
	if resp.Observations == nil {
		return nil, fetcher.NewDataShapeError("response has no observations field")
	}
	out := make([]point, 0, len(resp.Observations))
	for _, obs := range resp.Observations {
		if obs.Value == missingValue || obs.Value == "" {
			continue
		}
		date, err := models.ParseDate(obs.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse observation date %q: %w", obs.Date, err)
		}
		value, err := strconv.ParseFloat(obs.Value, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse observation value %q: %w", obs.Value, err)
		}
		out = append(out, point{date: date, value: value})
	}
	return out, nil
}
