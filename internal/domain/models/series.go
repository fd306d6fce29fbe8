package models

import "time"

// Bar is a single OHLCV record.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is the ordered daily price history for one symbol and period.
// Once written to the cache a series is never mutated in place.
type PriceSeries struct {
	Symbol string
	Period string
	Bars   []Bar
}

// Empty reports whether the series carries no rows.
func (s *PriceSeries) Empty() bool {
	return s == nil || len(s.Bars) == 0
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Closes returns the close column.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the high column.
func (s *PriceSeries) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low column.
func (s *PriceSeries) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes returns the volume column.
func (s *PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

// LastClose returns the most recent close, or 0 for an empty series.
func (s *PriceSeries) LastClose() float64 {
	if s.Empty() {
		return 0
	}
	return s.Bars[len(s.Bars)-1].Close
}

// LastDate returns the date of the most recent bar.
func (s *PriceSeries) LastDate() time.Time {
	if s.Empty() {
		return time.Time{}
	}
	return s.Bars[len(s.Bars)-1].Date
}

// CacheEntry is the freshness metadata stored in the cache index for one
// (symbol, period) key.
type CacheEntry struct {
	Symbol    string
	Period    string
	FetchedAt time.Time
	Rows      int
	Path      string
}

// Fresh reports whether the entry is younger than ttl as of now.
func (e *CacheEntry) Fresh(ttl time.Duration, now time.Time) bool {
	if e == nil {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl
}
