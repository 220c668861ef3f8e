package models

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// DateLayout is the calendar date format accepted in query parameters
const DateLayout = "2006-01-02"

// Params holds the raw, caller-supplied query parameters for a fetch
type Params map[string]any

// Credentials maps a credential field name to its secret value.
// Values are resolved per call and must never be logged.
type Credentials map[string]string

// Frequency is the provider-independent sampling frequency of a series
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
)

var frequencies = []Frequency{
	FrequencyDaily,
	FrequencyWeekly,
	FrequencyMonthly,
	FrequencyQuarterly,
	FrequencyAnnual,
}

// Valid reports whether f is one of the known frequencies
func (f Frequency) Valid() bool {
	for _, known := range frequencies {
		if f == known {
			return true
		}
	}
	return false
}

// ParamError describes a missing or out-of-domain query parameter
type ParamError struct {
	Field   string
	Message string
}

func (e *ParamError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ParamError {
	return &ParamError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Decode copies raw params into dst, a pointer to a QueryParams struct.
//
// Values are weakly typed ("10" decodes into an int field), dates use
// DateLayout, and keys that dst does not declare are rejected.
func Decode(params Params, dst any) error {
	normalized := make(map[string]any, len(params))
	for k, v := range params {
		normalized[strings.ToLower(strings.TrimSpace(k))] = v
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			trimStringHook,
			mapstructure.StringToTimeHookFunc(DateLayout),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           dst,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(normalized); err != nil {
		return &ParamError{Message: err.Error()}
	}
	return nil
}

func trimStringHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	return strings.TrimSpace(data.(string)), nil
}

// DateRange is embedded by QueryParams that accept an optional window
type DateRange struct {
	StartDate time.Time `mapstructure:"start_date"`
	EndDate   time.Time `mapstructure:"end_date"`
}

// Validate checks that the window, when bounded on both sides, is ordered
func (r DateRange) Validate() error {
	if !r.StartDate.IsZero() && !r.EndDate.IsZero() && r.EndDate.Before(r.StartDate) {
		return invalid("end_date", "must not be before start_date")
	}
	return nil
}

// Contains reports whether t falls inside the window (bounds inclusive)
func (r DateRange) Contains(t time.Time) bool {
	if !r.StartDate.IsZero() && t.Before(r.StartDate) {
		return false
	}
	if !r.EndDate.IsZero() && t.After(r.EndDate) {
		return false
	}
	return true
}

func validateFrequency(f Frequency, allowed ...Frequency) error {
	if f == "" {
		return nil
	}
	if !f.Valid() {
		return invalid("frequency", "unsupported value %q", f)
	}
	if len(allowed) == 0 {
		return nil
	}
	for _, a := range allowed {
		if f == a {
			return nil
		}
	}
	return invalid("frequency", "unsupported value %q", f)
}

func validateLimit(limit int) error {
	if limit < 0 {
		return invalid("limit", "must be non-negative, got %d", limit)
	}
	return nil
}
