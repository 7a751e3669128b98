// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"go.astrophena.name/novadrop/internal/api/coingecko"
)

// memeCoins is the fixed scan list, in scan order.
var memeCoins = []string{"dogecoin", "shiba-inu", "pepe", "dogwifcoin", "bonk", "floki"}

const (
	// A coin breaks out on a big 24h move or outsized volume.
	breakoutChange    = 10  // percent, absolute
	breakoutVolumeMul = 1.5 // vs average scanned volume

	memeUnavailableReply = "Meme radar is down. Probably for the best."
	noBreakoutsReply     = "No meme breakouts right now. The casino sleeps."
)

type breakout struct {
	id    string
	price coingecko.Price
	score float64
}

func (e *engine) cmdMemesnipe(ctx context.Context, chatID int64, args string) string {
	prices, err := e.coins.SimplePrices(ctx, memeCoins, "usd")
	if err != nil {
		e.logf("Meme scan failed: %v", err)
		return memeUnavailableReply
	}

	var (
		totalVol float64
		scanned  int
	)
	for _, p := range prices {
		totalVol += p.Volume24h
		scanned++
	}
	if scanned == 0 {
		return memeUnavailableReply
	}
	avgVol := totalVol / float64(scanned)

	var breakouts []breakout
	for _, id := range memeCoins {
		p, ok := prices[id]
		if !ok {
			continue
		}
		volRatio := 1.0
		if avgVol > 0 {
			volRatio = p.Volume24h / avgVol
		}
		if math.Abs(p.Change24h) >= breakoutChange || volRatio > breakoutVolumeMul {
			breakouts = append(breakouts, breakout{
				id:    id,
				price: p,
				score: math.Abs(p.Change24h) * volRatio,
			})
		}
	}
	sort.SliceStable(breakouts, func(i, j int) bool { return breakouts[i].score > breakouts[j].score })

	if len(breakouts) == 0 {
		return noBreakoutsReply
	}

	// A trending fetch failure degrades the readout, it doesn't kill it.
	trending, err := e.coins.Trending(ctx)
	if err != nil {
		e.logf("Trending fetch failed: %v", err)
	}

	summary := memeSummary(breakouts, trending)
	prompt := "Write a quick meme coin market readout based on this scan. Keep it under 500 characters.\n\n" + summary
	return e.generate(ctx, personaPrompt, prompt, summary)
}

// memeSummary is a deterministic plain text readout, used both as prompt
// data and as the degraded reply when generation is unavailable.
func memeSummary(breakouts []breakout, trending []coingecko.TrendingCoin) string {
	var sb strings.Builder
	sb.WriteString("Meme coin breakouts:\n")
	for _, b := range breakouts {
		fmt.Fprintf(&sb, "%s: $%.6g (%+.1f%% 24h)\n", b.id, b.price.Price, b.price.Change24h)
	}
	if len(trending) > 0 {
		sb.WriteString("Trending on CoinGecko:")
		for i, c := range trending {
			if i == 5 {
				break
			}
			fmt.Fprintf(&sb, " %s", strings.ToUpper(c.Symbol))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
