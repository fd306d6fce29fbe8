package scans

import (
	"fmt"
	"math"

	"Rectifex/internal/domain/models"
)

func init() {
	Register(&FloorConsolidationUniversal{})
	Register(&FloorConsolidationQuality{})
}

// floorSnapshot captures the base-and-breakout state shared by the
// floor-consolidation scenarios.
type floorSnapshot struct {
	lastClose     float64
	recentHigh    float64
	trigger       float64
	rangePct      float64
	tightBase     bool
	breakout      bool
	volumeConfirm bool
	higherLows    bool
}

func floorDefaults() Params {
	return Params{
		"range_window":      30,
		"breakout_buffer":   0.005,
		"max_range_pct":     0.12,
		"volume_multiplier": 1.25,
	}
}

// evaluateFloor scores a tight consolidation base with a volume-confirmed
// breakout. Scenarios wrap it with their own id and threshold so signals
// carry the right strategy tag.
func evaluateFloor(id string, series *models.PriceSeries, p Params, threshold float64) (*models.ScanResult, []models.TradeSignal) {
	rangeWindow := int(paramOr(p, "range_window", 30))
	breakoutBuffer := paramOr(p, "breakout_buffer", 0.005)
	maxRangePct := paramOr(p, "max_range_pct", 0.12)
	volumeMultiplier := paramOr(p, "volume_multiplier", 1.25)

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	minBars := rangeWindow + 5
	if minBars < 40 {
		minBars = 40
	}
	if len(closes) < minBars || len(volumes) != len(closes) {
		return nil, nil
	}

	snap := floorSnapshot{lastClose: last(closes)}

	// Base window excludes the latest bar so the breakout candle does not
	// define its own trigger level.
	baseHighs := highs[len(highs)-1-rangeWindow : len(highs)-1]
	baseLows := lows[len(lows)-1-rangeWindow : len(lows)-1]
	snap.recentHigh = maxOf(baseHighs)
	baseLow := minOf(baseLows)
	if snap.recentHigh <= 0 {
		return nil, nil
	}
	snap.rangePct = (snap.recentHigh - baseLow) / snap.recentHigh
	snap.tightBase = snap.rangePct <= maxRangePct

	snap.trigger = snap.recentHigh * (1 - breakoutBuffer)
	snap.breakout = snap.lastClose >= snap.trigger

	volMA := VolMA(volumes, rangeWindow)
	avgVolume := last(volMA)
	snap.volumeConfirm = !math.IsNaN(avgVolume) && last(volumes) >= avgVolume*volumeMultiplier

	tailLows := lows[len(lows)-3:]
	snap.higherLows = tailLows[0] <= tailLows[1] && tailLows[1] <= tailLows[2]

	score := 25.0
	if snap.tightBase {
		score += 20
	}
	if snap.breakout {
		score += 15
	}
	if snap.volumeConfirm {
		score += 20
	}
	if snap.higherLows {
		score += 10
	}
	score = clamp(score, 0, 100)

	var reasons []string
	if snap.tightBase {
		reasons = appendReason(reasons, fmt.Sprintf("Tight base (%.1f%% range)", snap.rangePct*100))
	}
	if snap.breakout {
		reasons = appendReason(reasons, "Close above consolidation high")
	}
	if snap.volumeConfirm {
		reasons = appendReason(reasons, "Breakout volume above average")
	}
	if snap.higherLows {
		reasons = appendReason(reasons, "Higher lows into the breakout")
	}

	var signals []models.TradeSignal
	if snap.breakout && snap.volumeConfirm {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidenceFromScore(score, threshold),
			Reason:     "Volume-confirmed base breakout",
			Strategy:   id,
		})
	}

	if score < threshold {
		return nil, signals
	}

	return &models.ScanResult{
		Symbol:   series.Symbol,
		Strategy: id,
		Score:    score,
		Metrics: map[string]float64{
			"last_close":     snap.lastClose,
			"recent_high":    snap.recentHigh,
			"trigger":        snap.trigger,
			"range_pct":      snap.rangePct,
			"volume_confirm": boolMetric(snap.volumeConfirm),
			"higher_lows":    boolMetric(snap.higherLows),
			"score":          score,
		},
		Reasons:   capReasons(reasons, 4),
		LastPrice: snap.lastClose,
		AsOf:      series.LastDate(),
	}, signals
}

// FloorConsolidationUniversal flags tight multi-week bases breaking out on
// above-average volume, with no fundamental filter.
type FloorConsolidationUniversal struct{}

func (s *FloorConsolidationUniversal) ID() string   { return "floor_consolidation_universal" }
func (s *FloorConsolidationUniversal) Name() string { return "Floor Consolidation (Universal)" }
func (s *FloorConsolidationUniversal) Description() string {
	return "Tight consolidation base breaking out on above-average volume."
}

func (s *FloorConsolidationUniversal) DefaultParams() Params {
	p := floorDefaults()
	p["threshold"] = 55
	return p
}

func (s *FloorConsolidationUniversal) Evaluate(series *models.PriceSeries, _ models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() {
		return nil, nil
	}
	p := mergeParams(s.DefaultParams(), params)
	return evaluateFloor(s.ID(), series, p, paramOr(p, "threshold", 55))
}

// FloorConsolidationQuality applies the same base-breakout logic but only to
// symbols whose quality and finance scores clear configured floors.
type FloorConsolidationQuality struct{}

func (s *FloorConsolidationQuality) ID() string   { return "floor_consolidation_quality" }
func (s *FloorConsolidationQuality) Name() string { return "Floor Consolidation (Quality)" }
func (s *FloorConsolidationQuality) Description() string {
	return "Base breakout restricted to fundamentally strong compounders."
}

// UsesFundamentals marks the scenario as needing fundamental metrics so the
// engine fetches them before evaluation.
func (s *FloorConsolidationQuality) UsesFundamentals() bool { return true }

func (s *FloorConsolidationQuality) DefaultParams() Params {
	p := floorDefaults()
	p["threshold"] = 60
	p["quality_floor"] = 60
	p["finance_floor"] = 55
	return p
}

func (s *FloorConsolidationQuality) Evaluate(series *models.PriceSeries, fundamentals models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() || len(fundamentals) == 0 {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	qualityFloor := paramOr(p, "quality_floor", 60)
	financeFloor := paramOr(p, "finance_floor", 55)

	quality := ScoreQuality(fundamentals)
	finance := ScoreFinance(fundamentals)
	if quality < qualityFloor || finance < financeFloor {
		return nil, nil
	}

	result, signals := evaluateFloor(s.ID(), series, p, paramOr(p, "threshold", 60))
	if result == nil {
		return nil, signals
	}

	result.Metrics["quality_score"] = quality
	result.Metrics["finance_score"] = finance
	result.Reasons = capReasons(append(result.Reasons, "Quality fundamentals confirmed"), 5)
	return result, signals
}

func maxOf(values []float64) float64 {
	m := math.Inf(-1)
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := math.Inf(1)
	for _, v := range values {
		if v < m {
			m = v
		}
	}
	return m
}
