package models

import (
	"strings"
	"time"
)

// GDPQueryParams filters a gross domestic product series
type GDPQueryParams struct {
	Country   string    `mapstructure:"country"`
	Frequency Frequency `mapstructure:"frequency"`
	DateRange `mapstructure:",squash"`
	Limit     int `mapstructure:"limit"`
}

// Validate checks required fields and generic domains
func (q *GDPQueryParams) Validate() error {
	q.Country = strings.ToUpper(q.Country)
	if q.Country == "" {
		return invalid("country", "is required")
	}
	if q.Frequency == "" {
		q.Frequency = FrequencyQuarterly
	}
	if err := validateFrequency(q.Frequency, FrequencyQuarterly, FrequencyAnnual); err != nil {
		return err
	}
	if err := validateLimit(q.Limit); err != nil {
		return err
	}
	return q.DateRange.Validate()
}

// GDPData is one GDP observation.
// GrowthRate is the change from the previous record in percent and is nil on
// the first record of a result.
type GDPData struct {
	Country    string    `json:"country" yaml:"country"`
	Date       time.Time `json:"date" yaml:"date"`
	Value      float64   `json:"value" yaml:"value"`
	GrowthRate *float64  `json:"growth_rate,omitempty" yaml:"growth_rate,omitempty"`
}

// RecordKey implements Record
func (d GDPData) RecordKey() (string, time.Time) { return d.Country, d.Date }

// UnemploymentQueryParams filters an unemployment rate series
type UnemploymentQueryParams struct {
	Country   string    `mapstructure:"country"`
	Frequency Frequency `mapstructure:"frequency"`
	DateRange `mapstructure:",squash"`
	Limit     int `mapstructure:"limit"`
}

// Validate checks required fields and generic domains
func (q *UnemploymentQueryParams) Validate() error {
	q.Country = strings.ToUpper(q.Country)
	if q.Country == "" {
		return invalid("country", "is required")
	}
	if q.Frequency == "" {
		q.Frequency = FrequencyMonthly
	}
	if err := validateFrequency(q.Frequency, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual); err != nil {
		return err
	}
	if err := validateLimit(q.Limit); err != nil {
		return err
	}
	return q.DateRange.Validate()
}

// UnemploymentData is one unemployment rate observation, in percent.
// Change is the difference from the previous record in percentage points.
type UnemploymentData struct {
	Country string    `json:"country" yaml:"country"`
	Date    time.Time `json:"date" yaml:"date"`
	Value   float64   `json:"value" yaml:"value"`
	Change  *float64  `json:"change,omitempty" yaml:"change,omitempty"`
}

// RecordKey implements Record
func (d UnemploymentData) RecordKey() (string, time.Time) { return d.Country, d.Date }

// UnemploymentChanges fills Change on a sorted series
func UnemploymentChanges(records []UnemploymentData) {
	for i := range records {
		records[i].Change = nil
		if i == 0 {
			continue
		}
		c := records[i].Value - records[i-1].Value
		records[i].Change = &c
	}
}

// GDPGrowth fills GrowthRate on a sorted series
func GDPGrowth(records []GDPData) {
	for i := range records {
		records[i].GrowthRate = nil
		if i == 0 {
			continue
		}
		records[i].GrowthRate = GrowthRate(records[i-1].Value, records[i].Value)
	}
}
