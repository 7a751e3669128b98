// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package quant

import (
	"testing"

	"go.astrophena.name/novadrop/internal/testutil"
)

func rising(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = float64(i + 1)
	}
	return v
}

func falling(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = float64(n - i)
	}
	return v
}

func TestRSI(t *testing.T) {
	t.Parallel()

	t.Run("all gains", func(t *testing.T) {
		rsi := RSI(rising(20), RSIPeriod)
		testutil.AssertEqual(t, len(rsi), 20)
		testutil.AssertEqual(t, rsi[len(rsi)-1], float64(100))
	})

	t.Run("all losses", func(t *testing.T) {
		rsi := RSI(falling(20), RSIPeriod)
		testutil.AssertEqual(t, rsi[len(rsi)-1], float64(0))
	})

	t.Run("not enough data", func(t *testing.T) {
		rsi := RSI(rising(10), RSIPeriod)
		testutil.AssertEqual(t, rsi, make([]float64, 10))
	})
}

func TestSMA(t *testing.T) {
	t.Parallel()

	testutil.AssertEqual(t, SMA([]float64{1, 2, 3, 4}, 2), []float64{1.5, 2.5, 3.5})
	testutil.AssertEqual(t, SMA([]float64{1, 2}, 3), []float64(nil))

	last, ok := LastSMA([]float64{2, 4, 6}, 3)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, last, float64(4))

	_, ok = LastSMA([]float64{1}, 2)
	testutil.AssertEqual(t, ok, false)
}

func TestVolumeRatio(t *testing.T) {
	t.Parallel()

	// Average of the last 3 bars is 100, latest is 200.
	testutil.AssertEqual(t, VolumeRatio([]float64{50, 50, 200}, 3), float64(2))
	testutil.AssertEqual(t, VolumeRatio(nil, 20), float64(0))
	testutil.AssertEqual(t, VolumeRatio([]float64{0, 0}, 20), float64(0))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	closes := rising(30)
	volumes := make([]float64, 30)
	for i := range volumes {
		volumes[i] = 1000
	}

	s := Summarize(closes, volumes)

	testutil.AssertEqual(t, s.Price, float64(30))
	testutil.AssertEqual(t, s.RSI, float64(100))
	testutil.AssertEqual(t, s.HasMA20, true)
	testutil.AssertEqual(t, s.MA20, 20.5) // mean of 11..30
	testutil.AssertEqual(t, s.HasMA50, false)
	testutil.AssertEqual(t, s.VolumeRatio, float64(1))
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	testutil.AssertEqual(t, Summarize(nil, nil), Summary{})
}
