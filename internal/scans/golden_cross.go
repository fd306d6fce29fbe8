package scans

import (
	"math"

	"Rectifex/internal/domain/models"
)

func init() {
	Register(&GoldenCross{})
}

// GoldenCross scores SMA50 crossing above or below SMA200.
type GoldenCross struct{}

func (s *GoldenCross) ID() string   { return "golden_cross" }
func (s *GoldenCross) Name() string { return "Golden Cross" }
func (s *GoldenCross) Description() string {
	return "SMA50 crossing above SMA200 (buy) and below (sell)."
}

func (s *GoldenCross) DefaultParams() Params {
	return Params{"threshold": 45}
}

func (s *GoldenCross) Evaluate(series *models.PriceSeries, _ models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	threshold := paramOr(p, "threshold", 45)

	closes := series.Closes()
	if len(closes) < 210 {
		return nil, nil
	}

	sma50 := SMA(closes, 50)
	sma200 := SMA(closes, 200)

	lastClose := last(closes)
	lastSMA50, prevSMA50 := last(sma50), prevLast(sma50)
	lastSMA200, prevSMA200 := last(sma200), prevLast(sma200)
	if math.IsNaN(lastSMA200) || math.IsNaN(prevSMA200) {
		return nil, nil
	}

	goldenCross := prevSMA50 <= prevSMA200 && lastSMA50 > lastSMA200
	deathCross := prevSMA50 >= prevSMA200 && lastSMA50 < lastSMA200

	lastRSI := last(RSI(closes, 14))

	score := 25.0
	if goldenCross {
		score += 25
	}
	if deathCross {
		score += 15
	}
	score += clamp((lastSMA50/lastSMA200-1)*100, -20, 20)
	score += clamp((lastRSI-50)/50*15, -15, 15)
	score = clamp(score, 0, 100)

	var reasons []string
	if goldenCross {
		reasons = appendReason(reasons, "SMA50 crossed above SMA200")
	}
	if deathCross {
		reasons = appendReason(reasons, "SMA50 crossed below SMA200")
	}
	if lastRSI >= 55 {
		reasons = appendReason(reasons, "Momentum supportive (RSI >= 55)")
	}
	if lastRSI <= 45 {
		reasons = appendReason(reasons, "Momentum weakening (RSI <= 45)")
	}

	metrics := map[string]float64{
		"sma50":        lastSMA50,
		"sma200":       lastSMA200,
		"last_rsi":     lastRSI,
		"golden_cross": boolMetric(goldenCross),
		"death_cross":  boolMetric(deathCross),
		"score":        score,
	}

	var signals []models.TradeSignal
	confidence := confidenceFromScore(score, threshold)
	if goldenCross {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidence,
			Reason:     "Golden cross triggered",
			Strategy:   s.ID(),
		})
	}
	if deathCross {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideSell,
			Confidence: confidence,
			Reason:     "Death cross triggered",
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

func boolMetric(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
