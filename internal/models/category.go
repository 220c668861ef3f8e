package models

import (
	"reflect"
	"sort"
)

// Category keys
const (
	CategoryGDP              = "gdp"
	CategoryUnemployment     = "unemployment"
	CategoryEquityQuote      = "equity_quote"
	CategoryEquityHistorical = "equity_historical"
	CategoryCryptoQuote      = "crypto_quote"
)

// CategorySpec is the standard model pair of a data category
type CategorySpec struct {
	Name        string
	Description string
	QueryType   reflect.Type
	DataType    reflect.Type
}

var standard = map[string]CategorySpec{
	CategoryGDP: {
		Name:        CategoryGDP,
		Description: "Gross domestic product by country",
		QueryType:   reflect.TypeFor[GDPQueryParams](),
		DataType:    reflect.TypeFor[GDPData](),
	},
	CategoryUnemployment: {
		Name:        CategoryUnemployment,
		Description: "Unemployment rate by country",
		QueryType:   reflect.TypeFor[UnemploymentQueryParams](),
		DataType:    reflect.TypeFor[UnemploymentData](),
	},
	CategoryEquityQuote: {
		Name:        CategoryEquityQuote,
		Description: "Latest quote of a listed security",
		QueryType:   reflect.TypeFor[EquityQuoteQueryParams](),
		DataType:    reflect.TypeFor[EquityQuoteData](),
	},
	CategoryEquityHistorical: {
		Name:        CategoryEquityHistorical,
		Description: "Historical OHLCV bars of a listed security",
		QueryType:   reflect.TypeFor[EquityHistoricalQueryParams](),
		DataType:    reflect.TypeFor[EquityHistoricalData](),
	},
	CategoryCryptoQuote: {
		Name:        CategoryCryptoQuote,
		Description: "Spot price of a crypto asset",
		QueryType:   reflect.TypeFor[CryptoQuoteQueryParams](),
		DataType:    reflect.TypeFor[CryptoQuoteData](),
	},
}

// Standard returns the standard model pair of a category
func Standard(category string) (CategorySpec, bool) {
	spec, ok := standard[category]
	return spec, ok
}

// Categories returns every standard category key, sorted
func Categories() []string {
	names := make([]string, 0, len(standard))
	for name := range standard {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
