package scans

import "math"

// Indicator helpers operate on plain float64 columns, oldest first. Positions
// before a window has filled hold NaN so callers can tell "no value yet" from
// a real zero.

// SMA returns the simple moving average with the given window.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA returns the exponential moving average using span smoothing,
// alpha = 2/(span+1), seeded from the first value.
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}

	alpha := 2.0 / (float64(span) + 1.0)
	ema := values[0]
	out[0] = ema
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		out[i] = ema
	}
	return out
}

// RSI returns the Wilder-smoothed relative strength index on a 0-100 scale.
// Positions without enough history read 50 (neutral), as do flat stretches
// where both average gain and loss vanish.
func RSI(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = 50
	}
	if window <= 0 || len(values) <= window {
		return out
	}

	alpha := 1.0 / float64(window)
	var avgGain, avgLoss float64
	for i := 1; i < len(values); i++ {
		delta := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}

		if i <= window {
			avgGain += gain
			avgLoss += loss
			if i == window {
				avgGain /= float64(window)
				avgLoss /= float64(window)
			} else {
				continue
			}
		} else {
			avgGain = alpha*gain + (1-alpha)*avgGain
			avgLoss = alpha*loss + (1-alpha)*avgLoss
		}

		const eps = 1e-12
		switch {
		case avgLoss <= eps && avgGain <= eps:
			out[i] = 50
		case avgLoss <= eps:
			out[i] = 100
		case avgGain <= eps:
			out[i] = 0
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the moving average convergence divergence indicator.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	n := len(values)
	res := MACDResult{
		MACD:      nanSlice(n),
		Signal:    nanSlice(n),
		Histogram: nanSlice(n),
	}
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow || n == 0 {
		return res
	}

	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	for i := 0; i < n; i++ {
		res.MACD[i] = emaFast[i] - emaSlow[i]
	}
	res.Signal = EMA(res.MACD, signal)
	for i := 0; i < n; i++ {
		res.Histogram[i] = res.MACD[i] - res.Signal[i]
	}
	return res
}

// ATR returns the Wilder-smoothed average true range.
func ATR(highs, lows, closes []float64, window int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if window <= 0 || n < window+1 || len(highs) != n || len(lows) != n {
		return out
	}

	alpha := 1.0 / float64(window)
	var atr float64
	for i := 1; i < n; i++ {
		tr := math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))

		if i <= window {
			atr += tr
			if i == window {
				atr /= float64(window)
				out[i] = atr
			}
			continue
		}
		atr = alpha*tr + (1-alpha)*atr
		out[i] = atr
	}
	return out
}

// Bands holds a channel indicator's midline and outer bands.
type Bands struct {
	Mid   []float64
	Upper []float64
	Lower []float64
	Width []float64
}

// Bollinger returns Bollinger bands with the given window and width in
// population standard deviations.
func Bollinger(values []float64, window int, numStd float64) Bands {
	n := len(values)
	b := Bands{Mid: SMA(values, window), Upper: nanSlice(n), Lower: nanSlice(n), Width: nanSlice(n)}
	if window <= 0 || numStd <= 0 || n < window {
		return b
	}

	for i := window - 1; i < n; i++ {
		mean := b.Mid[i]
		var ss float64
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			ss += d * d
		}
		std := math.Sqrt(ss / float64(window))
		b.Upper[i] = mean + numStd*std
		b.Lower[i] = mean - numStd*std
		b.Width[i] = b.Upper[i] - b.Lower[i]
	}
	return b
}

// Keltner returns Keltner channels with an EMA midline and ATR bands.
func Keltner(highs, lows, closes []float64, window, atrWindow int, multiplier float64) Bands {
	n := len(closes)
	b := Bands{Mid: EMA(closes, window), Upper: nanSlice(n), Lower: nanSlice(n)}
	if window <= 0 || atrWindow <= 0 || multiplier <= 0 {
		return b
	}

	atr := ATR(highs, lows, closes, atrWindow)
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) || math.IsNaN(b.Mid[i]) {
			continue
		}
		b.Upper[i] = b.Mid[i] + multiplier*atr[i]
		b.Lower[i] = b.Mid[i] - multiplier*atr[i]
	}
	return b
}

// StochResult holds the smoothed %K line and its %D signal.
type StochResult struct {
	K []float64
	D []float64
}

// Stoch returns the stochastic oscillator: raw %K over the kWindow high-low
// range, smoothed over smoothK bars, with %D averaging %K over dWindow bars.
// Positions without a full window read 0.
func Stoch(highs, lows, closes []float64, kWindow, smoothK, dWindow int) StochResult {
	n := len(closes)
	res := StochResult{K: make([]float64, n), D: make([]float64, n)}
	if kWindow <= 0 || smoothK <= 0 || dWindow <= 0 || len(highs) != n || len(lows) != n {
		return res
	}

	raw := nanSlice(n)
	for i := kWindow - 1; i < n; i++ {
		hh, ll := math.Inf(-1), math.Inf(1)
		for j := i - kWindow + 1; j <= i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		if denom := hh - ll; denom > 0 {
			raw[i] = (closes[i] - ll) / denom * 100
		}
	}

	k := rollingMean(raw, smoothK)
	d := rollingMean(k, dWindow)
	for i := 0; i < n; i++ {
		res.K[i] = zeroIfNaN(k[i])
		res.D[i] = zeroIfNaN(d[i])
	}
	return res
}

// VolMA returns the moving average of traded volume.
func VolMA(volumes []float64, window int) []float64 {
	return SMA(volumes, window)
}

// rollingMean averages over a sliding window, yielding NaN until the window
// has filled or while it contains a NaN. Unlike SMA it tolerates NaN inputs.
func rollingMean(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	for i := window - 1; i < len(values); i++ {
		var sum float64
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

func prevLast(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return values[len(values)-2]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
