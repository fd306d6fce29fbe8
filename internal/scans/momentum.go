package scans

import (
	"math"

	"Rectifex/internal/domain/models"
)

func init() {
	Register(&Momentum{})
}

// Momentum ranks persistent price strength: a positive rate of change over
// the lookback window, MACD histogram above zero and volume confirmation.
type Momentum struct{}

func (s *Momentum) ID() string   { return "momentum" }
func (s *Momentum) Name() string { return "Momentum" }
func (s *Momentum) Description() string {
	return "Sustained price strength with MACD and volume confirmation."
}

func (s *Momentum) DefaultParams() Params {
	return Params{
		"threshold": 55,
		"lookback":  63,
	}
}

func (s *Momentum) Evaluate(series *models.PriceSeries, _ models.Fundamentals, params Params) (*models.ScanResult, []models.TradeSignal) {
	if series.Empty() {
		return nil, nil
	}

	p := mergeParams(s.DefaultParams(), params)
	threshold := paramOr(p, "threshold", 55)
	lookback := int(paramOr(p, "lookback", 63))
	if lookback < 2 {
		lookback = 2
	}

	closes := series.Closes()
	volumes := series.Volumes()
	if len(closes) < lookback+1 {
		return nil, nil
	}

	lastClose := last(closes)
	refClose := closes[len(closes)-1-lookback]
	if refClose <= 0 {
		return nil, nil
	}
	roc := lastClose/refClose - 1

	macd := MACD(closes, 12, 26, 9)
	lastHist := last(macd.Histogram)
	prevHist := prevLast(macd.Histogram)
	macdPositive := !math.IsNaN(lastHist) && lastHist > 0
	macdRising := macdPositive && !math.IsNaN(prevHist) && lastHist > prevHist

	lastRSI := last(RSI(closes, 14))

	volMA := last(VolMA(volumes, 20))
	volumeConfirm := volMA > 0 && last(volumes) >= volMA

	sma50 := last(SMA(closes, 50))
	aboveTrend := !math.IsNaN(sma50) && lastClose > sma50

	score := 20.0
	score += clamp(roc*200, -20, 35)
	if macdPositive {
		score += 10
	}
	if macdRising {
		score += 5
	}
	if aboveTrend {
		score += 10
	}
	if volumeConfirm {
		score += 10
	}
	score += clamp((lastRSI-50)/50*10, -10, 10)
	score = clamp(score, 0, 100)

	var reasons []string
	if roc > 0 {
		reasons = appendReason(reasons, "Positive rate of change over lookback window")
	}
	if macdRising {
		reasons = appendReason(reasons, "MACD histogram positive and rising")
	} else if macdPositive {
		reasons = appendReason(reasons, "MACD histogram positive")
	}
	if aboveTrend {
		reasons = appendReason(reasons, "Price above SMA50")
	}
	if volumeConfirm {
		reasons = appendReason(reasons, "Volume at or above its 20-day average")
	}
	if lastRSI >= 75 {
		reasons = appendReason(reasons, "Overbought (RSI >= 75)")
	}

	metrics := map[string]float64{
		"roc":       roc,
		"macd_hist": lastHist,
		"last_rsi":  lastRSI,
		"sma50":     sma50,
		"score":     score,
	}

	var signals []models.TradeSignal
	confidence := confidenceFromScore(score, threshold)
	if score >= threshold && macdPositive && aboveTrend && lastRSI < 75 {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideBuy,
			Confidence: confidence,
			Reason:     "Momentum continuation setup",
			Strategy:   s.ID(),
		})
	}
	if !macdPositive && !aboveTrend && roc < 0 {
		signals = append(signals, models.TradeSignal{
			Symbol:     series.Symbol,
			Timestamp:  series.LastDate(),
			Side:       models.SideSell,
			Confidence: math.Max(confidence, 0.4),
			Reason:     "Momentum breakdown",
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
