package util

import (
	"sort"
	"strings"
)

// SanitizeSymbol makes a ticker safe for use in a file name.
func SanitizeSymbol(symbol string) string {
	return strings.ToUpper(strings.ReplaceAll(symbol, "/", "-"))
}

// NormalizeSymbols uppercases, trims and deduplicates tickers preserving order.
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		key := strings.ToUpper(strings.TrimSpace(s))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// CleanListedSymbols filters a raw exchange symbol directory listing:
// drops test issues and derived instruments, maps class suffixes to the
// dash convention and returns a sorted, deduplicated list.
func CleanListedSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if strings.ContainsAny(sym, "^=$") {
			continue
		}
		sym = strings.ReplaceAll(sym, ".", "-")
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
