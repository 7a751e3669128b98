// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package chart renders price charts posted alongside drop commentary.
package chart

import (
	"errors"
	"fmt"
	"os"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// FilePrefix prefixes every chart file name, so stale artifacts can be
// recognized and swept later.
const FilePrefix = "novadrop-"

// Input is a daily bar series with precomputed indicators, oldest bar first.
// MA20 and MA50 are aligned to the end of Closes and may be nil when the
// series is too short. RSI, when present, has the same length as Closes.
type Input struct {
	Symbol string
	Times  []time.Time
	Closes []float64
	MA20   []float64
	MA50   []float64
	RSI    []float64
}

// Render draws in as a PNG chart in dir and returns the file path. The
// caller owns the file and should remove it when done.
func Render(dir string, in Input) (path string, err error) {
	if len(in.Times) != len(in.Closes) {
		return "", fmt.Errorf("chart: got %d times for %d closes", len(in.Times), len(in.Closes))
	}
	if len(in.Closes) < 2 {
		return "", errors.New("chart: need at least two bars")
	}

	series := []gochart.Series{
		gochart.TimeSeries{
			Name:    in.Symbol,
			XValues: in.Times,
			YValues: in.Closes,
			Style: gochart.Style{
				StrokeColor: gochart.ColorBlue,
				StrokeWidth: 2,
			},
		},
	}

	if n := len(in.MA20); n >= 2 {
		series = append(series, gochart.TimeSeries{
			Name:    "MA20",
			XValues: in.Times[len(in.Times)-n:],
			YValues: in.MA20,
			Style: gochart.Style{
				StrokeColor:     gochart.ColorOrange,
				StrokeDashArray: []float64{5, 5},
			},
		})
	}
	if n := len(in.MA50); n >= 2 {
		series = append(series, gochart.TimeSeries{
			Name:    "MA50",
			XValues: in.Times[len(in.Times)-n:],
			YValues: in.MA50,
			Style: gochart.Style{
				StrokeColor:     drawing.Color{R: 128, G: 0, B: 128, A: 255},
				StrokeDashArray: []float64{5, 5},
			},
		})
	}
	if len(in.RSI) == len(in.Closes) {
		series = append(series, gochart.TimeSeries{
			Name:    "RSI",
			YAxis:   gochart.YAxisSecondary,
			XValues: in.Times,
			YValues: in.RSI,
			Style: gochart.Style{
				StrokeColor: gochart.ColorAlternateGray,
			},
		})
	}

	graph := gochart.Chart{
		Title:  in.Symbol + " daily",
		Width:  1280,
		Height: 720,
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeDateValueFormatter,
		},
		YAxis: gochart.YAxis{
			Name: "Price",
		},
		YAxisSecondary: gochart.YAxis{
			Name:  "RSI",
			Range: &gochart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	f, err := os.CreateTemp(dir, FilePrefix+in.Symbol+"-*.png")
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(f.Name())
		}
	}()

	if err := graph.Render(gochart.PNG, f); err != nil {
		return "", fmt.Errorf("chart: rendering %s: %w", in.Symbol, err)
	}
	return f.Name(), nil
}
