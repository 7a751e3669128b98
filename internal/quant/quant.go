// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package quant implements the small set of technical indicators used in
// drop commentary: RSI, simple moving averages and volume ratios.
package quant

import "math"

// RSIPeriod is the standard relative strength index look-back window.
const RSIPeriod = 14

// RSI computes the relative strength index over closes using Wilder's
// smoothing. The returned slice has the same length as closes; the first
// period values carry the seed RSI. If there are fewer than period+1 closes,
// a zero-filled slice is returned.
func RSI(closes []float64, period int) []float64 {
	rsi := make([]float64, len(closes))
	if len(closes) < period+1 {
		return rsi
	}

	var up, down float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta >= 0 {
			up += delta
		} else {
			down -= delta
		}
	}
	up /= float64(period)
	down /= float64(period)

	seed := rsiValue(up, down)
	for i := range period {
		rsi[i] = seed
	}

	for i := period; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		var upval, downval float64
		if delta > 0 {
			upval = delta
		} else {
			downval = -delta
		}
		up = (up*float64(period-1) + upval) / float64(period)
		down = (down*float64(period-1) + downval) / float64(period)
		rsi[i] = rsiValue(up, down)
	}

	return rsi
}

func rsiValue(up, down float64) float64 {
	if down == 0 {
		return 100
	}
	rs := up / down
	return 100 - 100/(1+rs)
}

// SMA computes a simple moving average of v with the given window. The
// returned slice has len(v)-window+1 values, aligned to the end of v; it's
// nil if v is shorter than the window.
func SMA(v []float64, window int) []float64 {
	if window <= 0 || len(v) < window {
		return nil
	}

	out := make([]float64, len(v)-window+1)
	var sum float64
	for i, x := range v {
		sum += x
		if i >= window {
			sum -= v[i-window]
		}
		if i >= window-1 {
			out[i-window+1] = sum / float64(window)
		}
	}
	return out
}

// LastSMA returns the most recent simple moving average of v with the given
// window, reporting whether there was enough data to compute it.
func LastSMA(v []float64, window int) (float64, bool) {
	sma := SMA(v, window)
	if sma == nil {
		return 0, false
	}
	return sma[len(sma)-1], true
}

// VolumeRatio returns the ratio of the latest volume to the average volume
// over the last window bars, or zero if there is not enough data.
func VolumeRatio(volumes []float64, window int) float64 {
	if len(volumes) == 0 {
		return 0
	}
	if len(volumes) < window {
		window = len(volumes)
	}
	var sum float64
	for _, v := range volumes[len(volumes)-window:] {
		sum += v
	}
	avg := sum / float64(window)
	if avg == 0 {
		return 0
	}
	return volumes[len(volumes)-1] / avg
}

// Summary bundles the indicator values mentioned in drop commentary.
type Summary struct {
	Price       float64
	RSI         float64
	MA20        float64
	HasMA20     bool
	MA50        float64
	HasMA50     bool
	PriceVsMA20 float64 // percent
	PriceVsMA50 float64 // percent
	VolumeRatio float64
}

// Summarize computes a Summary from a close and volume series, oldest bar
// first. Indicators that need more data than the series has are left unset.
func Summarize(closes, volumes []float64) Summary {
	var s Summary
	if len(closes) == 0 {
		return s
	}

	s.Price = closes[len(closes)-1]

	rsi := RSI(closes, RSIPeriod)
	s.RSI = rsi[len(rsi)-1]

	if ma20, ok := LastSMA(closes, 20); ok {
		s.MA20, s.HasMA20 = ma20, true
		if ma20 != 0 {
			s.PriceVsMA20 = (s.Price/ma20 - 1) * 100
		}
	}
	if ma50, ok := LastSMA(closes, 50); ok {
		s.MA50, s.HasMA50 = ma50, true
		if ma50 != 0 {
			s.PriceVsMA50 = (s.Price/ma50 - 1) * 100
		}
	}

	s.VolumeRatio = VolumeRatio(volumes, 20)

	return s
}

// Oversold reports whether an RSI value is in the conventional oversold
// zone.
func Oversold(rsi float64) bool { return rsi <= 30 }

// Overbought reports whether an RSI value is in the conventional overbought
// zone.
func Overbought(rsi float64) bool { return rsi >= 70 }

// Round2 rounds v to two decimal places. Used when formatting indicator
// values for prompts and captions.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
