package scans

import (
	"testing"

	"Rectifex/internal/domain/models"
)

func TestClassicOversoldBounceScores(t *testing.T) {
	s := &ClassicOversold{}
	// A relentless decline pins the RSI near zero, then the last bar closes
	// up and back above the lower Bollinger band.
	series := syntheticSeries("F", 50, func(i int) float64 {
		if i < 49 {
			return 100 - float64(i)
		}
		return 54
	})

	result, signals := s.Evaluate(series, nil, nil)
	if result == nil {
		t.Fatalf("oversold bounce should score")
	}
	if result.Strategy != "classic_oversold" {
		t.Fatalf("unexpected strategy %q", result.Strategy)
	}
	if result.Metrics["recent_min_rsi"] > 30 {
		t.Fatalf("expected an oversold RSI trough, metrics %v", result.Metrics)
	}

	var sawBuy bool
	for _, sig := range signals {
		if sig.Side == models.SideBuy && sig.Strategy == "classic_oversold" {
			sawBuy = true
		}
	}
	if !sawBuy {
		t.Fatalf("expected a buy signal")
	}
}

func TestClassicOversoldSkipsUptrend(t *testing.T) {
	s := &ClassicOversold{}
	// Uptrend closing on a down bar. The RSI never visits the oversold zone
	// and there is no reversal candle to score.
	series := syntheticSeries("F", 50, func(i int) float64 {
		if i < 49 {
			return 100 + float64(i)
		}
		return 147
	})
	result, signals := s.Evaluate(series, nil, nil)
	if result != nil || len(signals) != 0 {
		t.Fatalf("an uptrend pullback is not an oversold setup")
	}
}

func TestClassicOversoldNeedsHistory(t *testing.T) {
	s := &ClassicOversold{}
	series := syntheticSeries("F", 30, func(i int) float64 { return 100 - float64(i) })
	result, signals := s.Evaluate(series, nil, nil)
	if result != nil || len(signals) != 0 {
		t.Fatalf("under 40 bars should be skipped")
	}
}

func TestMeanReversionBollingerReclaim(t *testing.T) {
	s := &MeanReversionBollinger{}
	// Flat series, a crash bar below the lower band, then a close back above
	// it while the session low still tags the band.
	series := syntheticSeries("KO", 30, func(i int) float64 {
		switch i {
		case 28:
			return 90
		case 29:
			return 99
		default:
			return 100
		}
	})
	series.Bars[29].Low = 88

	result, signals := s.Evaluate(series, nil, nil)
	if result == nil {
		t.Fatalf("band reclaim should score")
	}
	if result.Metrics["tagged_band"] != 1 || result.Metrics["reclaim"] != 1 {
		t.Fatalf("expected tag and reclaim flags, metrics %v", result.Metrics)
	}
	if len(signals) == 0 || signals[0].Strategy != "mean_reversion_bb" {
		t.Fatalf("expected a mean reversion buy signal, got %v", signals)
	}
}

func TestMeanReversionBollingerQuietSeries(t *testing.T) {
	s := &MeanReversionBollinger{}
	series := syntheticSeries("KO", 30, func(i int) float64 { return 100 })
	result, signals := s.Evaluate(series, nil, nil)
	if result != nil || len(signals) != 0 {
		t.Fatalf("a flat series never pierces the band")
	}
}

func TestStochasticOversoldCross(t *testing.T) {
	s := &StochasticOversold{}
	// A long decline holds %K and %D under 20, then a sharp up bar lifts %K
	// through %D from below.
	series := syntheticSeries("PFE", 30, func(i int) float64 {
		if i < 29 {
			return 100 - float64(i)
		}
		return 76
	})

	result, signals := s.Evaluate(series, nil, nil)
	if result == nil {
		t.Fatalf("oversold stochastic cross should score")
	}
	if result.Metrics["percent_k"] <= result.Metrics["percent_d"] {
		t.Fatalf("expected %%K above %%D, metrics %v", result.Metrics)
	}
	if result.Metrics["percent_k"] >= 20 {
		t.Fatalf("cross should happen inside the oversold zone, metrics %v", result.Metrics)
	}
	if len(signals) == 0 || signals[0].Strategy != "stochastic_oversold" {
		t.Fatalf("expected a stochastic buy signal, got %v", signals)
	}
}

func TestStochasticOversoldSkipsStrongTrend(t *testing.T) {
	s := &StochasticOversold{}
	series := syntheticSeries("PFE", 30, func(i int) float64 { return 100 + float64(i) })
	result, signals := s.Evaluate(series, nil, nil)
	if result != nil || len(signals) != 0 {
		t.Fatalf("an uptrend pegs the stochastic high, nothing to buy")
	}
}
