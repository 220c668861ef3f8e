package models

import (
	"strings"
	"time"
)

// EquityQuoteQueryParams selects the latest quote of one security
type EquityQuoteQueryParams struct {
	Symbol string `mapstructure:"symbol"`
}

// Validate checks required fields
func (q *EquityQuoteQueryParams) Validate() error {
	q.Symbol = strings.ToUpper(q.Symbol)
	if q.Symbol == "" {
		return invalid("symbol", "is required")
	}
	return nil
}

// EquityQuoteData is the latest quote of a security
type EquityQuoteData struct {
	Symbol        string    `json:"symbol" yaml:"symbol"`
	Date          time.Time `json:"date" yaml:"date"`
	Price         float64   `json:"price" yaml:"price"`
	PreviousClose *float64  `json:"previous_close,omitempty" yaml:"previous_close,omitempty"`
	Volume        int64     `json:"volume,omitempty" yaml:"volume,omitempty"`
	ChangePercent *float64  `json:"change_percent,omitempty" yaml:"change_percent,omitempty"`
}

// RecordKey implements Record
func (d EquityQuoteData) RecordKey() (string, time.Time) { return d.Symbol, d.Date }

// EquityHistoricalQueryParams selects a price history of one security
type EquityHistoricalQueryParams struct {
	Symbol    string    `mapstructure:"symbol"`
	Frequency Frequency `mapstructure:"frequency"`
	DateRange `mapstructure:",squash"`
	Limit     int `mapstructure:"limit"`
}

// Validate checks required fields and generic domains
func (q *EquityHistoricalQueryParams) Validate() error {
	q.Symbol = strings.ToUpper(q.Symbol)
	if q.Symbol == "" {
		return invalid("symbol", "is required")
	}
	if q.Frequency == "" {
		q.Frequency = FrequencyDaily
	}
	if err := validateFrequency(q.Frequency, FrequencyDaily, FrequencyWeekly, FrequencyMonthly); err != nil {
		return err
	}
	if err := validateLimit(q.Limit); err != nil {
		return err
	}
	return q.DateRange.Validate()
}

// EquityHistoricalData is one OHLCV bar.
// ReturnPct is the close-to-close change from the previous bar in percent.
type EquityHistoricalData struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Date      time.Time `json:"date" yaml:"date"`
	Open      float64   `json:"open" yaml:"open"`
	High      float64   `json:"high" yaml:"high"`
	Low       float64   `json:"low" yaml:"low"`
	Close     float64   `json:"close" yaml:"close"`
	Volume    int64     `json:"volume,omitempty" yaml:"volume,omitempty"`
	ReturnPct *float64  `json:"return_pct,omitempty" yaml:"return_pct,omitempty"`
}

// RecordKey implements Record
func (d EquityHistoricalData) RecordKey() (string, time.Time) { return d.Symbol, d.Date }

// BarReturns fills ReturnPct on a sorted series
func BarReturns(records []EquityHistoricalData) {
	for i := range records {
		records[i].ReturnPct = nil
		if i == 0 {
			continue
		}
		records[i].ReturnPct = GrowthRate(records[i-1].Close, records[i].Close)
	}
}

// CryptoQuoteQueryParams selects the spot price of a crypto asset
type CryptoQuoteQueryParams struct {
	Symbol string `mapstructure:"symbol"`
	Quote  string `mapstructure:"quote"`
}

// Validate checks required fields
func (q *CryptoQuoteQueryParams) Validate() error {
	q.Symbol = strings.ToUpper(q.Symbol)
	q.Quote = strings.ToUpper(q.Quote)
	if q.Symbol == "" {
		return invalid("symbol", "is required")
	}
	if q.Quote == "" {
		q.Quote = "USD"
	}
	return nil
}

// CryptoQuoteData is the spot price of a crypto asset in the quote currency
type CryptoQuoteData struct {
	Symbol string    `json:"symbol" yaml:"symbol"`
	Quote  string    `json:"quote" yaml:"quote"`
	Date   time.Time `json:"date" yaml:"date"`
	Price  float64   `json:"price" yaml:"price"`
}

// RecordKey implements Record
func (d CryptoQuoteData) RecordKey() (string, time.Time) { return d.Symbol + "/" + d.Quote, d.Date }
