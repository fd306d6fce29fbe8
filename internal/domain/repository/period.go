package repository

// Supported history periods, matching the provider's range parameter.
var validPeriods = map[string]struct{}{
	"1mo": {}, "3mo": {}, "6mo": {}, "1y": {}, "2y": {}, "5y": {}, "10y": {}, "ytd": {}, "max": {},
}

// NormalizePeriod maps free-form input to a supported period, defaulting
// to 1y.
func NormalizePeriod(period string) string {
	if _, ok := validPeriods[period]; ok {
		return period
	}
	return "1y"
}

// ValidPeriod reports whether period is supported as-is.
func ValidPeriod(period string) bool {
	_, ok := validPeriods[period]
	return ok
}
