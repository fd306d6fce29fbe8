package models

import "time"

// Fundamentals is a curated map of fundamental metrics for one symbol.
// Missing values are absent from the map rather than zero.
type Fundamentals map[string]float64

// ScanResult is one symbol passing a strategy's threshold.
type ScanResult struct {
	Symbol    string             `json:"symbol"`
	Strategy  string             `json:"strategy"`
	Score     float64            `json:"score"`
	Metrics   map[string]float64 `json:"metrics"`
	Reasons   []string           `json:"reasons"`
	LastPrice float64            `json:"last_price"`
	AsOf      time.Time          `json:"as_of"`
	Stale     bool               `json:"stale,omitempty"` // served from an expired cache entry
}

// SignalSide is the direction of a trade signal.
type SignalSide string

const (
	SideBuy  SignalSide = "buy"
	SideSell SignalSide = "sell"
)

// TradeSignal is an actionable entry/exit event emitted by a strategy.
type TradeSignal struct {
	Symbol     string     `json:"symbol"`
	Timestamp  time.Time  `json:"timestamp"`
	Side       SignalSide `json:"side"`
	Confidence float64    `json:"confidence"`
	Reason     string     `json:"reason"`
	Strategy   string     `json:"strategy"`
}

// SymbolState is the terminal state of one symbol in a scan run.
type SymbolState string

const (
	StateScored  SymbolState = "scored"
	StateSkipped SymbolState = "skipped"
	StateFailed  SymbolState = "failed"
)

// ScanEvent is one element of the streamed scan output. Exactly one of
// Result/Summary is set depending on Kind; Signals may accompany a result.
type ScanEvent struct {
	Symbol  string
	State   SymbolState
	Result  *ScanResult
	Signals []TradeSignal
	Reason  string
	Err     error
	Summary *ScanSummary // non-nil only on the final event
}

// ScanSummary is emitted once when a scan run finishes.
type ScanSummary struct {
	Total       int           `json:"total"`
	Scored      int           `json:"scored"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	CacheHits   int           `json:"cache_hits"`
	CacheMisses int           `json:"cache_misses"`
	Cancelled   bool          `json:"cancelled"`
	Duration    time.Duration `json:"duration"`
}
