package scans

import (
	"sort"
	"sync"

	"Rectifex/internal/domain/models"
)

// Params carries per-run scenario tuning merged over a scenario's defaults.
type Params map[string]float64

// Scenario evaluates one symbol's price history and fundamentals. Evaluate
// returns a nil result when the symbol does not pass the scenario's threshold
// or the input lacks enough history; signals may be emitted either way.
type Scenario interface {
	ID() string
	Name() string
	Description() string
	DefaultParams() Params
	Evaluate(series *models.PriceSeries, fundamentals models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Scenario{}
)

// Register adds a scenario to the global registry. Later registrations with
// the same id replace earlier ones.
func Register(s Scenario) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.ID()] = s
}

// Get returns the scenario with the given id.
func Get(id string) (Scenario, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[id]
	return s, ok
}

// List returns all registered scenarios ordered by id.
func List() []Scenario {
	registryMu.RLock()
	defer registryMu.RUnlock()

	out := make([]Scenario, 0, len(registry))
	for _, s := range registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func mergeParams(defaults, overrides Params) Params {
	merged := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return merged
}

func paramOr(p Params, key string, fallback float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

func appendReason(reasons []string, text string) []string {
	if text == "" {
		return reasons
	}
	for _, r := range reasons {
		if r == text {
			return reasons
		}
	}
	return append(reasons, text)
}

func capReasons(reasons []string, n int) []string {
	if len(reasons) > n {
		return reasons[:n]
	}
	return reasons
}

func confidenceFromScore(score, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return clamp(score/threshold, 0, 1)
}
