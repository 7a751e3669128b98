// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.astrophena.name/novadrop/internal/api/polygon"
	"go.astrophena.name/novadrop/internal/chart"
	"go.astrophena.name/novadrop/internal/quant"
)

const (
	// minQuoteWindow is the minimum number of daily bars a drop needs.
	minQuoteWindow = 15
	// seriesDays is how far back the quote fetch reaches.
	seriesDays = 120
	// maxCaptionLen is the Telegram photo caption limit.
	maxCaptionLen = 1024
	// artifactTTL is how long a stale chart file may linger before the
	// sweep removes it.
	artifactTTL = time.Hour
)

var (
	errNoData = errors.New("not enough quote data")
	errRender = errors.New("chart render failed")
	errPost   = errors.New("posting to chat failed")
)

// runDrop runs the full drop pipeline for symbol and posts the result to
// chatID. It is shared between the /drop command and the scheduler, and is
// safe to run concurrently with itself: every run owns its own chart file.
func (e *engine) runDrop(ctx context.Context, chatID any, symbol string) error {
	series, err := e.quotes.DailySeries(ctx, symbol, seriesDays)
	if err != nil {
		return fmt.Errorf("%w: %v", errNoData, err)
	}
	if series.Len() < minQuoteWindow {
		return fmt.Errorf("%w: got %d daily bars for %s, want at least %d", errNoData, series.Len(), symbol, minQuoteWindow)
	}

	sum := quant.Summarize(series.Closes, series.Volumes)

	path, err := e.renderChart(series)
	if err != nil {
		return fmt.Errorf("%w: %v", errRender, err)
	}
	defer os.Remove(path)
	if err := verifyArtifact(path); err != nil {
		return fmt.Errorf("%w: %v", errRender, err)
	}

	caption := e.generate(ctx, personaPrompt, dropPrompt(symbol, sum), dropFallback(symbol, sum))
	if r := []rune(caption); len(r) > maxCaptionLen {
		caption = string(r[:maxCaptionLen-1]) + "…"
	}

	if err := e.sendPhoto(ctx, chatID, path, caption); err != nil {
		return fmt.Errorf("%w: %v", errPost, err)
	}

	e.sweepArtifacts()
	return nil
}

func (e *engine) renderChart(s polygon.Series) (string, error) {
	times := make([]time.Time, len(s.Timestamps))
	for i, ts := range s.Timestamps {
		times[i] = time.UnixMilli(ts).UTC()
	}
	return chart.Render(e.artifactDir, chart.Input{
		Symbol: s.Symbol,
		Times:  times,
		Closes: s.Closes,
		MA20:   quant.SMA(s.Closes, 20),
		MA50:   quant.SMA(s.Closes, 50),
		RSI:    quant.RSI(s.Closes, quant.RSIPeriod),
	})
}

// verifyArtifact checks that a rendered chart actually landed on disk as a
// non-empty readable file before it is handed to the uploader.
func verifyArtifact(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

func dropPrompt(symbol string, s quant.Summary) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a short market commentary for $%s based on these daily numbers:\n", symbol)
	fmt.Fprintf(&sb, "Close: %.2f\n", s.Price)
	fmt.Fprintf(&sb, "RSI(14): %.1f%s\n", s.RSI, rsiZone(s.RSI))
	if s.HasMA20 {
		fmt.Fprintf(&sb, "MA20: %.2f (price %+.1f%% vs MA20)\n", s.MA20, s.PriceVsMA20)
	}
	if s.HasMA50 {
		fmt.Fprintf(&sb, "MA50: %.2f (price %+.1f%% vs MA50)\n", s.MA50, s.PriceVsMA50)
	}
	if s.VolumeRatio > 0 {
		fmt.Fprintf(&sb, "Volume: %.1fx the 20-day average\n", s.VolumeRatio)
	}
	sb.WriteString("Keep it under 600 characters. Mention the numbers. End with a one-line disclaimer.")
	return sb.String()
}

func rsiZone(rsi float64) string {
	switch {
	case quant.Oversold(rsi):
		return " (oversold)"
	case quant.Overbought(rsi):
		return " (overbought)"
	}
	return ""
}

// dropFallback is the caption used when generation is unavailable. The drop
// still posts.
func dropFallback(symbol string, s quant.Summary) string {
	return fmt.Sprintf("$%s daily: close %.2f, RSI(14) %.1f, volume %.1fx the 20-day average. Chart attached. Not financial advice.",
		symbol, quant.Round2(s.Price), s.RSI, s.VolumeRatio)
}

// sweepArtifacts removes chart files older than artifactTTL from the
// artifact directory. Fresh files may belong to a concurrent run and are
// left alone.
func (e *engine) sweepArtifacts() {
	matches, err := filepath.Glob(filepath.Join(e.artifactDir, chart.FilePrefix+"*.png"))
	if err != nil {
		return
	}
	cutoff := e.now().Add(-artifactTTL)
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil {
			continue
		}
		if fi.ModTime().Before(cutoff) {
			if err := os.Remove(m); err == nil {
				e.logf("Swept stale chart %s.", filepath.Base(m))
			}
		}
	}
}

func (e *engine) cmdDrop(ctx context.Context, chatID int64, args string) string {
	symbol := e.symbol
	if args != "" {
		symbol = strings.ToUpper(strings.Fields(args)[0])
	}

	if err := e.runDrop(ctx, chatID, symbol); err != nil {
		dropsTotal.WithLabelValues("command", "error").Inc()
		e.logf("Drop for %s failed: %v", symbol, err)
		if errors.Is(err, errNoData) {
			return fmt.Sprintf("Not enough market data for %s right now.", symbol)
		}
		return "Drop failed. The tape will be back."
	}
	dropsTotal.WithLabelValues("command", "ok").Inc()
	return ""
}

// dropLoop posts a drop to the configured chat immediately and then on
// every tick until ctx is canceled.
func (e *engine) dropLoop(ctx context.Context) {
	run := func() {
		if err := e.runDrop(ctx, e.chatID, e.symbol); err != nil {
			dropsTotal.WithLabelValues("schedule", "error").Inc()
			e.logf("Scheduled drop failed: %v", err)
			return
		}
		dropsTotal.WithLabelValues("schedule", "ok").Inc()
	}

	run()

	t := time.NewTicker(e.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
