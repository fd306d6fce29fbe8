package scans

import (
	"fmt"
	"math"
	"sort"

	"Rectifex/internal/domain/models"
)

func init() {
	Register(&LTICompounder{})
}

// LTICompounder blends the five fundamental pillar scores by a weight
// profile, then applies a technical timing modifier.
type LTICompounder struct{}

func (s *LTICompounder) ID() string   { return "lti_compounder" }
func (s *LTICompounder) Name() string { return "LTI Compounder" }
func (s *LTICompounder) Description() string {
	return "Fundamental compounder profile with technical timing overlays."
}

func (s *LTICompounder) DefaultParams() Params {
	return Params{"threshold": 60}
}

// UsesFundamentals marks the scenario as needing fundamental metrics so the
// scan engine knows to resolve them before evaluation.
func (s *LTICompounder) UsesFundamentals() bool { return true }

// EvaluateProfile is Evaluate with an explicit weight profile name. Unknown
// profiles fall back to balanced.
func (s *LTICompounder) EvaluateProfile(series *models.PriceSeries, fundamentals models.Fundamentals, params Params, profile string) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() || len(fundamentals) == 0 {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	threshold := paramOr(p, "threshold", 60)

	weights, ok := WeightProfiles[profile]
	if !ok {
		weights = WeightProfiles["balanced"]
	}

	parts := PillarScores(fundamentals)
	baseScore := Composite(weights, parts)

	timing, timingReason := TimingModifier(series)
	finalScore := clamp(baseScore+timing, 0, 100)

	closes := series.Closes()
	lastClose := last(closes)
	lastSMA50 := last(SMA(closes, 50))
	lastSMA200 := last(SMA(closes, 200))
	lastRSI := last(RSI(closes, 14))

	var reasons []string
	for _, pair := range topPillars(parts, 2) {
		reasons = appendReason(reasons, fmt.Sprintf("%s score %.0f", titleCase(pair.name), pair.score))
	}
	reasons = appendReason(reasons, timingReason)

	metrics := map[string]float64{
		"base_score":      baseScore,
		"timing_modifier": timing,
		"final_score":     finalScore,
		"last_close":      lastClose,
		"last_sma50":      lastSMA50,
		"last_sma200":     lastSMA200,
		"last_rsi":        lastRSI,
	}
	for name, score := range parts {
		metrics["score_"+name] = score
	}

	confidence := confidenceFromScore(finalScore, threshold)
	var signals []models.TradeSignal

	buyTrigger := finalScore >= threshold && timing >= 0 &&
		(math.IsNaN(lastSMA200) || lastClose >= lastSMA200*0.99)
	if buyTrigger {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidence,
			Reason:     "Compounder profile aligned with timing",
			Strategy:   s.ID(),
		})
	}

	prevClose := prevLast(closes)
	sellTrigger := false
	if !math.IsNaN(lastSMA200) && lastClose < lastSMA200*0.98 {
		sellTrigger = true
	} else if lastRSI >= 75 && !math.IsNaN(prevClose) && lastClose < prevClose {
		sellTrigger = true
	}
	if sellTrigger {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideSell,
			Confidence: math.Max(confidence, 0.4),
			Reason:     "Trend deterioration for compounder",
			Strategy:   s.ID(),
		})
	}

	if finalScore < threshold {
		return nil, signals
	}

	return &models.ScanResult{
		Symbol:    series.Symbol,
		Strategy:  s.ID(),
		Score:     finalScore,
		Metrics:   metrics,
		Reasons:   capReasons(reasons, 3),
		LastPrice: lastClose,
		AsOf:      series.LastDate(),
	}, signals
}

func (s *LTICompounder) Evaluate(series *models.PriceSeries, fundamentals models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	return s.EvaluateProfile(series, fundamentals, params, "balanced")
}

type pillar struct {
	name  string
	score float64
}

func topPillars(parts map[string]float64, n int) []pillar {
	out := make([]pillar, 0, len(parts))
	for name, score := range parts {
		out = append(out, pillar{name, score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
