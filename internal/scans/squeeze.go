package scans

import (
	"math"
	"sort"

	"Rectifex/internal/domain/models"
)

func init() {
	Register(&VolatilitySqueeze{})
}

// VolatilitySqueeze detects Bollinger width compression inside Keltner
// channels followed by a directional break.
type VolatilitySqueeze struct{}

func (s *VolatilitySqueeze) ID() string   { return "volatility_squeeze" }
func (s *VolatilitySqueeze) Name() string { return "Volatility Squeeze" }
func (s *VolatilitySqueeze) Description() string {
	return "Compression of Bollinger width within Keltner channels followed by a break."
}

func (s *VolatilitySqueeze) DefaultParams() Params {
	return Params{
		"threshold":         60,
		"lookback":          120,
		"width_percentile":  0.25,
		"volume_multiplier": 1.2,
	}
}

func (s *VolatilitySqueeze) Evaluate(series *models.PriceSeries, _ models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	threshold := paramOr(p, "threshold", 60)
	lookback := int(paramOr(p, "lookback", 120))
	widthPct := paramOr(p, "width_percentile", 0.25)
	volMult := paramOr(p, "volume_multiplier", 1.2)

	closes := series.Closes()
	highs := series.Highs()
	lows := series.Lows()
	volumes := series.Volumes()

	minLen := lookback
	if minLen < 40 {
		minLen = 40
	}
	if len(closes) < minLen || allZero(volumes) {
		return nil, nil
	}

	bb := Bollinger(closes, 20, 2.0)
	kc := Keltner(highs, lows, closes, 20, 10, 1.5)

	recent := finiteTail(bb.Width, lookback)
	if len(recent) == 0 {
		return nil, nil
	}
	widthFloor := percentile(recent, widthPct)

	lastClose := last(closes)
	lastUpper := last(bb.Upper)
	lastLower := last(bb.Lower)
	lastKCUpper := last(kc.Upper)
	lastKCLower := last(kc.Lower)
	lastWidth := last(bb.Width)

	squeezeActive := lastWidth <= widthFloor && lastUpper <= lastKCUpper && lastLower >= lastKCLower

	volMA := last(VolMA(volumes, 20))
	lastVolume := last(volumes)
	volumeConfirm := volMA > 0 && lastVolume >= volMA*volMult

	breakoutUp := lastClose > math.Max(lastUpper, lastKCUpper)
	breakoutDown := lastClose < math.Min(lastLower, lastKCLower)

	score := 35.0
	if squeezeActive {
		score += 25
	}
	if breakoutUp || breakoutDown {
		score += 20
	}
	if volumeConfirm {
		score += 15
	}
	score = clamp(score, 0, 100)

	var reasons []string
	if squeezeActive {
		reasons = appendReason(reasons, "Bollinger width compressed inside Keltner channels")
	}
	if breakoutUp {
		reasons = appendReason(reasons, "Breakout above squeeze range")
	}
	if breakoutDown {
		reasons = appendReason(reasons, "Breakdown below squeeze range")
	}
	if volumeConfirm {
		reasons = appendReason(reasons, "Volume expansion on break")
	}

	volumeRatio := math.NaN()
	if volMA > 0 {
		volumeRatio = lastVolume / volMA
	}
	metrics := map[string]float64{
		"last_width":    lastWidth,
		"width_floor":   widthFloor,
		"breakout_up":   boolMetric(breakoutUp),
		"breakout_down": boolMetric(breakoutDown),
		"volume_ratio":  volumeRatio,
		"score":         score,
	}

	var signals []models.TradeSignal
	confidence := confidenceFromScore(score, threshold)
	if breakoutUp && volumeConfirm {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidence,
			Reason:     "Squeeze breakout to the upside",
			Strategy:   s.ID(),
		})
	}
	if breakoutDown && volumeConfirm {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideSell,
			Confidence: confidence,
			Reason:     "Squeeze breakdown to the downside",
			Strategy:   s.ID(),
		})
	}

	if score < threshold {
		return nil, signals
	}

	return &models.ScanResult{
		Symbol:    series.Symbol,
		Strategy:  s.ID(),
		Score:     score,
		Metrics:   metrics,
		Reasons:   capReasons(reasons, 3),
		LastPrice: lastClose,
		AsOf:      series.LastDate(),
	}, signals
}

func allZero(values []float64) bool {
	for _, v := range values {
		if v != 0 && !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// finiteTail returns the finite values among the last n entries.
func finiteTail(values []float64, n int) []float64 {
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	out := make([]float64, 0, n)
	for _, v := range values[start:] {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// percentile returns the pct (0..1) linear-interpolated percentile of values.
func percentile(values []float64, pct float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	rank := clamp(pct, 0, 1) * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
