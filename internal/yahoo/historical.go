package yahoo

import (
	"strconv"
	"time"

	"finrouter/internal/fetcher"
	"finrouter/internal/models"
)

var intervals = map[models.Frequency]string{
	models.FrequencyDaily:   "1d",
	models.FrequencyWeekly:  "1wk",
	models.FrequencyMonthly: "1mo",
}

// defaultRange is requested when the query has no start date
const defaultRange = "1y"

// HistoricalFetcher fetches OHLCV bars of a security
type HistoricalFetcher struct {
	transport *fetcher.Transport
	timeout   time.Duration
	now       func() time.Time
}

// NewHistoricalFetcher creates a historical fetcher on t
func NewHistoricalFetcher(t *fetcher.Transport, timeout time.Duration) *HistoricalFetcher {
	if timeout <= 0 {
		timeout = fetcher.DefaultTimeout
	}
	return &HistoricalFetcher{transport: t, timeout: timeout, now: time.Now}
}

// TransformQuery implements fetcher.Fetcher
func (f *HistoricalFetcher) TransformQuery(params models.Params) (models.EquityHistoricalQueryParams, error) {
	var q models.EquityHistoricalQueryParams
	if err := models.Decode(params, &q); err != nil {
		return q, err
	}
	return q, q.Validate()
}

// ExtractBlocking implements fetcher.BlockingExtractor
func (f *HistoricalFetcher) ExtractBlocking(q models.EquityHistoricalQueryParams, _ models.Credentials) (*ChartResponse, error) {
	query := map[string]string{
		"interval": intervals[q.Frequency],
		"events":   "history",
	}

	if q.StartDate.IsZero() {
		query["range"] = defaultRange
	} else {
		end := f.now()
		if !q.EndDate.IsZero() {
			// period2 is exclusive
			end = q.EndDate.AddDate(0, 0, 1)
		}
		query["period1"] = strconv.FormatInt(q.StartDate.Unix(), 10)
		query["period2"] = strconv.FormatInt(end.Unix(), 10)
	}

	return chart(f.transport, f.timeout, q.Symbol, query)
}

// Transform implements fetcher.Fetcher
func (f *HistoricalFetcher) Transform(q models.EquityHistoricalQueryParams, raw *ChartResponse) ([]models.EquityHistoricalData, error) {
	result, err := first(raw)
	if err != nil {
		return nil, err
	}
	if len(result.Timestamp) == 0 {
		return []models.EquityHistoricalData{}, nil
	}
	if len(result.Indicators.Quote) == 0 {
		return nil, fetcher.NewDataShapeError("chart has timestamps but no quote indicators")
	}

	quote := result.Indicators.Quote[0]
	bars := make([]models.EquityHistoricalData, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o, h, l, c := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || c == nil {
			// Null bars mark holidays and halted sessions
			continue
		}
		bar := models.EquityHistoricalData{
			Symbol: q.Symbol,
			Date:   day(ts),
			Open:   *o,
			High:   *h,
			Low:    *l,
			Close:  *c,
		}
		if v := at(quote.Volume, i); v != nil {
			bar.Volume = *v
		}
		bars = append(bars, bar)
	}

	models.SortRecords(bars)
	bars = models.Dedupe(bars)
	bars = models.DateWindow(bars, q.DateRange)
	bars = models.Latest(bars, q.Limit)
	models.BarReturns(bars)
	return bars, nil
}

func at[T any](values []*T, i int) *T {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
