package scans

import (
	"fmt"
	"math"

	"Rectifex/internal/domain/models"
)

func init() {
	Register(&ClassicOversold{})
	Register(&MeanReversionBollinger{})
	Register(&StochasticOversold{})
}

// ClassicOversold looks for an RSI capitulation followed by a bounce back
// above the lower Bollinger band.
type ClassicOversold struct{}

func (s *ClassicOversold) ID() string   { return "classic_oversold" }
func (s *ClassicOversold) Name() string { return "Classic Oversold" }
func (s *ClassicOversold) Description() string {
	return "RSI capitulation followed by a bounce above the lower Bollinger band."
}

func (s *ClassicOversold) DefaultParams() Params {
	return Params{
		"rsi_threshold": 30,
		"threshold":     50,
	}
}

func (s *ClassicOversold) Evaluate(series *models.PriceSeries, _ models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	rsiThreshold := paramOr(p, "rsi_threshold", 30)
	threshold := paramOr(p, "threshold", 50)

	closes := series.Closes()
	if len(closes) < 40 {
		return nil, nil
	}

	rsi := RSI(closes, 14)
	bb := Bollinger(closes, 20, 2.0)

	lastClose := last(closes)
	prevClose := prevLast(closes)
	lastRSI := last(rsi)
	recentMinRSI := minTail(rsi, 3)
	lastLower := last(bb.Lower)

	oversoldRecent := recentMinRSI <= rsiThreshold
	candleReversal := lastClose > prevClose && lastClose > lastLower

	rsiReference := math.Min(lastRSI, recentMinRSI)
	rsiScore := clamp((rsiThreshold-rsiReference)/math.Max(rsiThreshold, 1e-3), 0, 1.5)
	bounceScore := 0.0
	if candleReversal {
		bounceScore = 1
	}
	score := clamp(20+rsiScore*40+bounceScore*30, 0, 100)

	var reasons []string
	if oversoldRecent {
		if lastRSI <= rsiThreshold {
			reasons = appendReason(reasons, fmt.Sprintf("RSI oversold (%.1f)", lastRSI))
		} else {
			reasons = appendReason(reasons, fmt.Sprintf("RSI rebounded from %.1f", recentMinRSI))
		}
	}
	if candleReversal {
		reasons = appendReason(reasons, "Reversal candle above lower Bollinger band")
	}

	var signals []models.TradeSignal
	if oversoldRecent && candleReversal {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidenceFromScore(score, threshold),
			Reason:     "Oversold reversal setup",
			Strategy:   s.ID(),
		})
	}

	if score < threshold {
		return nil, signals
	}

	return &models.ScanResult{
		Symbol:   series.Symbol,
		Strategy: s.ID(),
		Score:    score,
		Metrics: map[string]float64{
			"last_close":     lastClose,
			"lower_band":     lastLower,
			"last_rsi":       lastRSI,
			"recent_min_rsi": recentMinRSI,
			"score":          score,
		},
		Reasons:   capReasons(reasons, 3),
		LastPrice: lastClose,
		AsOf:      series.LastDate(),
	}, signals
}

// MeanReversionBollinger looks for a pierce of the lower Bollinger band that
// the close reclaims on the next bounce.
type MeanReversionBollinger struct{}

func (s *MeanReversionBollinger) ID() string   { return "mean_reversion_bb" }
func (s *MeanReversionBollinger) Name() string { return "Mean Reversion (Bollinger)" }
func (s *MeanReversionBollinger) Description() string {
	return "Price pierces the lower Bollinger band and reclaims it on a bounce."
}

func (s *MeanReversionBollinger) DefaultParams() Params {
	return Params{
		"threshold":   48,
		"band_window": 20,
	}
}

func (s *MeanReversionBollinger) Evaluate(series *models.PriceSeries, _ models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	threshold := paramOr(p, "threshold", 48)
	bandWindow := int(paramOr(p, "band_window", 20))

	closes := series.Closes()
	lows := series.Lows()
	if len(closes) < bandWindow+5 {
		return nil, nil
	}

	bb := Bollinger(closes, bandWindow, 2.0)
	lastClose := last(closes)
	lastLow := last(lows)
	lowerBand := last(bb.Lower)
	prevClose := prevLast(closes)
	if math.IsNaN(prevClose) {
		prevClose = lastClose
	}

	taggedBand := lastLow < lowerBand
	reclaim := lastClose > lowerBand && prevClose < lowerBand

	score := 20.0
	if taggedBand {
		score += 25
	}
	if reclaim {
		score += 35
	}
	score = clamp(score, 0, 100)

	var reasons []string
	if taggedBand {
		reasons = appendReason(reasons, "Price flushed below lower band")
	}
	if reclaim {
		reasons = appendReason(reasons, "Close reclaimed lower band")
	}

	var signals []models.TradeSignal
	if taggedBand && reclaim {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidenceFromScore(score, threshold),
			Reason:     "Bollinger mean reversion trigger",
			Strategy:   s.ID(),
		})
	}

	if score < threshold {
		return nil, signals
	}

	return &models.ScanResult{
		Symbol:   series.Symbol,
		Strategy: s.ID(),
		Score:    score,
		Metrics: map[string]float64{
			"last_close":  lastClose,
			"lower_band":  lowerBand,
			"tagged_band": boolMetric(taggedBand),
			"reclaim":     boolMetric(reclaim),
			"score":       score,
		},
		Reasons:   capReasons(reasons, 3),
		LastPrice: lastClose,
		AsOf:      series.LastDate(),
	}, signals
}

// StochasticOversold looks for %K crossing above %D inside the oversold zone.
type StochasticOversold struct{}

func (s *StochasticOversold) ID() string   { return "stochastic_oversold" }
func (s *StochasticOversold) Name() string { return "Stochastic Oversold" }
func (s *StochasticOversold) Description() string {
	return "%K crossing above %D in the oversold zone (<20)."
}

func (s *StochasticOversold) DefaultParams() Params {
	return Params{"threshold": 45}
}

func (s *StochasticOversold) Evaluate(series *models.PriceSeries, _ models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	threshold := paramOr(p, "threshold", 45)

	closes := series.Closes()
	if len(closes) < 20 {
		return nil, nil
	}

	st := Stoch(series.Highs(), series.Lows(), closes, 14, 3, 3)
	percentK, percentD := last(st.K), last(st.D)
	prevK, prevD := prevLast(st.K), prevLast(st.D)

	oversold := math.Max(percentK, percentD) < 20
	bullishCross := prevK < prevD && percentK > percentD

	score := 15.0
	if oversold {
		score += 35
	}
	if bullishCross {
		score += 35
	}
	score = clamp(score, 0, 100)

	var reasons []string
	if oversold {
		reasons = appendReason(reasons, "Stochastic deeply oversold")
	}
	if bullishCross {
		reasons = appendReason(reasons, "%K bullish cross over %D")
	}

	var signals []models.TradeSignal
	if oversold && bullishCross {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidenceFromScore(score, threshold),
			Reason:     "Stochastic oversold reversal",
			Strategy:   s.ID(),
		})
	}

	if score < threshold {
		return nil, signals
	}

	return &models.ScanResult{
		Symbol:   series.Symbol,
		Strategy: s.ID(),
		Score:    score,
		Metrics: map[string]float64{
			"percent_k": percentK,
			"percent_d": percentD,
			"score":     score,
		},
		Reasons:   capReasons(reasons, 3),
		LastPrice: last(closes),
		AsOf:      series.LastDate(),
	}, signals
}

// minTail returns the smallest value among the last n entries, ignoring NaN.
func minTail(values []float64, n int) float64 {
	start := len(values) - n
	if start < 0 {
		start = 0
	}
	min := math.NaN()
	for _, v := range values[start:] {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(min) || v < min {
			min = v
		}
	}
	return min
}
