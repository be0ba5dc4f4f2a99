package domain

import (
	"sort"
	"time"
)

// Candle represents a single daily OHLCV bar.
type Candle struct {
	Date   time.Time // Trading day
	Open   float64   // Opening price
	High   float64   // Highest price
	Low    float64   // Lowest price
	Close  float64   // Closing price
	Volume float64   // Traded volume
}

// CandleSeries is an ordered sequence of daily candles, ascending by date
// with no duplicate dates.
type CandleSeries []Candle

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// MergeSeries combines two series into one, ascending by date. When both
// carry a candle for the same day the one from fresh wins, so newly fetched
// data overrides previously cached values.
func MergeSeries(cached, fresh CandleSeries) CandleSeries {
	byDay := make(map[string]Candle, len(cached)+len(fresh))
	for _, c := range cached {
		byDay[dayKey(c.Date)] = c
	}
	for _, c := range fresh {
		byDay[dayKey(c.Date)] = c
	}
	out := make(CandleSeries, 0, len(byDay))
	for _, c := range byDay {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Window returns the sub-series whose dates fall within [start, end]
// inclusive, compared at day granularity.
func (s CandleSeries) Window(start, end time.Time) CandleSeries {
	out := make(CandleSeries, 0, len(s))
	sk, ek := dayKey(start), dayKey(end)
	for _, c := range s {
		k := dayKey(c.Date)
		if k >= sk && k <= ek {
			out = append(out, c)
		}
	}
	return out
}

// Covers reports whether the series spans the requested range, i.e. its
// first candle is on or before start and its last candle on or after end.
// Gaps inside the range (weekends, holidays) do not count against coverage.
func (s CandleSeries) Covers(start, end time.Time) bool {
	if len(s) == 0 {
		return false
	}
	return dayKey(s[0].Date) <= dayKey(start) && dayKey(s[len(s)-1].Date) >= dayKey(end)
}
