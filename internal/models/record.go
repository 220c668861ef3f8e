package models

import (
	"fmt"
	"sort"
	"time"
)

// Record is implemented by every category Data type.
// The key identifies one observation; a fetch never returns two records
// with the same key.
type Record interface {
	RecordKey() (symbol string, date time.Time)
}

// SortRecords orders records ascending by date, then symbol, keeping the
// relative order of equal keys.
func SortRecords[D Record](records []D) {
	sort.SliceStable(records, func(i, j int) bool {
		si, di := records[i].RecordKey()
		sj, dj := records[j].RecordKey()
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return si < sj
	})
}

// Dedupe drops records whose (symbol, date) key was already seen later in the
// slice, so the last revision of an observation wins. Input must be sorted.
func Dedupe[D Record](records []D) []D {
	if len(records) < 2 {
		return records
	}
	out := records[:0]
	for i, r := range records {
		if i+1 < len(records) && sameKey(r, records[i+1]) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// CheckOrdered returns an error if records are not ascending by date or if
// a (symbol, date) pair repeats.
func CheckOrdered[D Record](records []D) error {
	for i := 1; i < len(records); i++ {
		ps, pd := records[i-1].RecordKey()
		cs, cd := records[i].RecordKey()
		if cd.Before(pd) {
			return fmt.Errorf("record %d (%s) is dated before its predecessor (%s)", i, cd.Format(DateLayout), pd.Format(DateLayout))
		}
		if cs == ps && cd.Equal(pd) {
			return fmt.Errorf("duplicate record for %s on %s", cs, cd.Format(DateLayout))
		}
	}
	return nil
}

func sameKey(a, b Record) bool {
	as, ad := a.RecordKey()
	bs, bd := b.RecordKey()
	return as == bs && ad.Equal(bd)
}

// GrowthRate returns the period-over-period change from prev to cur in
// percent, or nil when it is undefined.
func GrowthRate(prev, cur float64) *float64 {
	if prev == 0 {
		return nil
	}
	g := ((cur / prev) - 1) * 100
	return &g
}

// DateWindow keeps the records dated inside r
func DateWindow[D Record](records []D, r DateRange) []D {
	out := records[:0]
	for _, rec := range records {
		if _, d := rec.RecordKey(); r.Contains(d) {
			out = append(out, rec)
		}
	}
	return out
}

// Latest keeps the most recent limit records of a sorted slice.
// A limit of zero keeps everything.
func Latest[D Record](records []D, limit int) []D {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[len(records)-limit:]
}

// ParseDate parses a provider calendar date in DateLayout as UTC
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
