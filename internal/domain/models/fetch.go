package models

// FetchStatus is the terminal outcome of fetching one symbol.
type FetchStatus int

const (
	// FetchSuccess means a non-empty series was obtained.
	FetchSuccess FetchStatus = iota
	// FetchSkipped means the provider returned no data for the symbol
	// (delisted or unsupported). Not an error.
	FetchSkipped
	// FetchFailed means every attempt errored, including the per-symbol
	// fallback.
	FetchFailed
)

func (s FetchStatus) String() string {
	switch s {
	case FetchSuccess:
		return "success"
	case FetchSkipped:
		return "skipped"
	case FetchFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchOutcome is the per-symbol result of a batch fetch. Every requested
// symbol produces exactly one outcome.
type FetchOutcome struct {
	Symbol string
	Status FetchStatus
	Series *PriceSeries
	Reason string
	Err    error
}

// Success builds a successful outcome.
func Success(series *PriceSeries) FetchOutcome {
	return FetchOutcome{Symbol: series.Symbol, Status: FetchSuccess, Series: series}
}

// Skipped builds a no-data outcome.
func Skipped(symbol, reason string) FetchOutcome {
	return FetchOutcome{Symbol: symbol, Status: FetchSkipped, Reason: reason}
}

// Failed builds an error outcome.
func Failed(symbol string, err error) FetchOutcome {
	return FetchOutcome{Symbol: symbol, Status: FetchFailed, Err: err}
}
