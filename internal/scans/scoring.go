package scans

import (
	"math"

	"Rectifex/internal/domain/models"
)

// WeightProfiles maps a profile name to composite weights over the five
// fundamental pillars. Weights are relative, not required to sum to 100.
var WeightProfiles = map[string]map[string]float64{
	"balanced": {"quality": 35, "growth": 25, "value": 20, "finance": 15, "dividend": 5},
	"quality":  {"quality": 45, "growth": 20, "value": 15, "finance": 15, "dividend": 5},
	"growth":   {"quality": 25, "growth": 40, "value": 15, "finance": 15, "dividend": 5},
	"income":   {"quality": 25, "growth": 15, "value": 15, "finance": 20, "dividend": 25},
}

// ScoreQuality rates profitability and margin structure on a 0-100 scale.
func ScoreQuality(f models.Fundamentals) float64 {
	return aggregate(
		scoreLinear(get(f, "roe"), 0.1, 0.25, false),
		scoreLinear(get(f, "roa"), 0.05, 0.15, false),
		scoreLinear(get(f, "grossMargin"), 0.25, 0.55, false),
		scoreLinear(get(f, "operatingMargin"), 0.1, 0.3, false),
		scoreLinear(get(f, "ebitdaMargin"), 0.15, 0.35, false),
	)
}

// ScoreGrowth rates revenue and earnings expansion.
func ScoreGrowth(f models.Fundamentals) float64 {
	return aggregate(
		scoreLinear(get(f, "revenueGrowth"), 0.0, 0.25, false),
		scoreLinear(get(f, "earningsGrowth"), 0.0, 0.3, false),
	)
}

// ScoreValue rates valuation multiples, cheaper is better.
func ScoreValue(f models.Fundamentals) float64 {
	return aggregate(
		scoreLinear(get(f, "trailingPE"), 10.0, 40.0, true),
		scoreLinear(get(f, "forwardPE"), 10.0, 35.0, true),
		scoreLinear(get(f, "pb"), 1.0, 6.0, true),
		scoreLinear(get(f, "enterpriseToEbitda"), 6.0, 20.0, true),
	)
}

// ScoreFinance rates balance sheet strength.
func ScoreFinance(f models.Fundamentals) float64 {
	coverage := math.NaN()
	debt := get(f, "totalDebt")
	cash := get(f, "totalCash")
	if isFinite(debt) && debt > 0 && isFinite(cash) {
		coverage = cash / debt
	}

	return aggregate(
		scoreLinear(get(f, "debtToEquity"), 0.0, 2.0, true),
		scoreLinear(get(f, "currentRatio"), 1.0, 3.0, false),
		scoreLinear(coverage, 0.25, 1.5, false),
	)
}

// ScoreDividend rates yield plus payout sustainability. A payout ratio in the
// 30-60% band scores full marks and decays toward 0% and 90%.
func ScoreDividend(f models.Fundamentals) float64 {
	yieldScore := scoreLinear(get(f, "dividendYield"), 0.005, 0.06, false)
	payoutScore := scoreBand(get(f, "payoutRatio"), 0.0, 0.3, 0.6, 0.9)
	return aggregate(yieldScore, payoutScore)
}

// PillarScores returns all five pillar scores keyed by pillar name.
func PillarScores(f models.Fundamentals) map[string]float64 {
	return map[string]float64{
		"quality":  ScoreQuality(f),
		"growth":   ScoreGrowth(f),
		"value":    ScoreValue(f),
		"finance":  ScoreFinance(f),
		"dividend": ScoreDividend(f),
	}
}

// Composite blends pillar scores by the given weights, clipped to [0, 100].
func Composite(weights, parts map[string]float64) float64 {
	var totalWeight float64
	for _, w := range weights {
		if w > 0 {
			totalWeight += w
		}
	}
	if totalWeight <= 0 {
		return 0
	}

	var accum float64
	for key, w := range weights {
		if w <= 0 {
			continue
		}
		accum += w * clamp(parts[key], 0, 100)
	}
	return clamp(accum/totalWeight, 0, 100)
}

// TimingModifier adjusts a fundamental score by current technical posture.
// It returns a modifier in [-20, +50] and a human-readable reason. Price
// below the SMA200 regime filter always yields the maximum penalty.
func TimingModifier(series *models.PriceSeries) (float64, string) {
	if series.Empty() {
		return 0, "No price data"
	}

	closes := series.Closes()
	if len(closes) < 60 {
		return 0, "Insufficient price history"
	}

	sma50 := SMA(closes, 50)
	sma200 := SMA(closes, 200)
	rsi := RSI(closes, 14)

	lastClose := last(closes)
	lastSMA50 := last(sma50)
	lastSMA200 := last(sma200)
	lastRSI := last(rsi)

	if math.IsNaN(lastSMA200) {
		return 0, "Insufficient long-term trend data"
	}
	if lastClose < lastSMA200*0.995 {
		return -20, "Price below SMA200 regime filter"
	}

	modifier, reason, locked := breakoutSignal(closes, series.Volumes())
	if !locked {
		modifier, reason, locked = pullbackSignal(lastClose, lastSMA50, lastSMA200, lastRSI)
	}
	if !locked {
		modifier, reason = trendBias(lastClose, lastSMA50, lastSMA200, lastRSI)
		if lastRSI >= 75 && !math.IsNaN(lastSMA50) && lastClose > lastSMA50*1.08 {
			modifier, reason = -10, "Extended and overbought"
		}
	}

	return clamp(modifier, -20, 50), reason
}

func breakoutSignal(closes, volumes []float64) (float64, string, bool) {
	if len(closes) < 40 || len(volumes) < 20 {
		return 0, "", false
	}

	recentHigh := math.Inf(-1)
	for _, c := range closes[len(closes)-20:] {
		if c > recentHigh {
			recentHigh = c
		}
	}
	volMA := last(VolMA(volumes, 20))
	if math.IsNaN(volMA) || volMA <= 0 {
		return 0, "", false
	}

	if last(closes) >= recentHigh*0.999 && last(volumes) >= volMA*1.2 {
		return 35, "Breakout above 20-day high with volume confirmation", true
	}
	return 0, "", false
}

func pullbackSignal(lastClose, lastSMA50, lastSMA200, lastRSI float64) (float64, string, bool) {
	if math.IsNaN(lastSMA50) || lastSMA50 <= 0 {
		return 0, "", false
	}

	distance := math.Abs(lastClose-lastSMA50) / lastSMA50
	if distance <= 0.02 && lastRSI >= 40 && lastRSI <= 55 && lastClose > lastSMA200 {
		return 20, "Pullback entry near SMA50 with balanced momentum", true
	}
	return 0, "", false
}

func trendBias(lastClose, lastSMA50, lastSMA200, lastRSI float64) (float64, string) {
	if math.IsNaN(lastSMA50) {
		return 5, "Above long-term trend"
	}
	if lastClose > lastSMA50 && lastRSI >= 45 && lastRSI <= 65 {
		return 12, "Trending above SMA50 with supportive momentum"
	}
	if lastClose > lastSMA200 {
		return 6, "Above long-term trend"
	}
	return 0, "Neutral setup"
}

func scoreLinear(value, low, high float64, reverse bool) float64 {
	if !isFinite(value) {
		return math.NaN()
	}
	if high <= low {
		return 50
	}

	var ratio float64
	if reverse {
		if value <= low {
			return 100
		}
		if value >= high {
			return 0
		}
		ratio = 1 - (value-low)/(high-low)
	} else {
		if value <= low {
			return 0
		}
		if value >= high {
			return 100
		}
		ratio = (value - low) / (high - low)
	}
	return clamp(ratio*100, 0, 100)
}

func scoreBand(value, low, sweetLow, sweetHigh, high float64) float64 {
	if !isFinite(value) {
		return math.NaN()
	}
	if value < low || value > high {
		return 0
	}
	if value >= sweetLow && value <= sweetHigh {
		return 100
	}
	if value < sweetLow {
		if sweetLow == low {
			return 0
		}
		return clamp((value-low)/(sweetLow-low)*100, 0, 100)
	}
	if high == sweetHigh {
		return 0
	}
	return clamp((high-value)/(high-sweetHigh)*100, 0, 100)
}

// aggregate averages the finite scores, ignoring NaN placeholders for metrics
// the provider did not report.
func aggregate(scores ...float64) float64 {
	var sum float64
	var n int
	for _, s := range scores {
		if isFinite(s) {
			sum += s
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return clamp(sum/float64(n), 0, 100)
}

func get(f models.Fundamentals, key string) float64 {
	if v, ok := f[key]; ok {
		return v
	}
	return math.NaN()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
