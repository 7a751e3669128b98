// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/novadrop/internal/api/coingecko"
	"go.astrophena.name/novadrop/internal/api/paypal"
	"go.astrophena.name/novadrop/internal/api/polygon"
	"go.astrophena.name/novadrop/internal/cli"
	"go.astrophena.name/novadrop/internal/logger"
	"go.astrophena.name/novadrop/internal/request"
	"go.astrophena.name/novadrop/internal/web"

	"github.com/joho/godotenv"
	"github.com/mmcdole/gofeed"
	"github.com/sashabaranov/go-openai"
)

func main() { cli.Main(new(engine)) }

const (
	defaultSymbol   = "XFOR"
	defaultInterval = 4 * time.Hour
	defaultPrice    = 97.00
	defaultCurrency = "USD"
)

type engine struct {
	// Configuration.
	tgToken    string
	tgSecret   string
	chatID     string
	openaiKey  string
	polygonKey string
	host       string
	addr       string
	prod       bool
	symbol     string
	interval   time.Duration
	price      float64
	currency   string
	newsFeed   string

	// artifactDir is where rendered charts live until posted and swept.
	// Defaults to os.TempDir.
	artifactDir string

	init    sync.Once
	initErr error

	httpc     *http.Client
	stderr    io.Writer
	logf      logger.Logf
	logStream logger.Streamer
	scrubber  *strings.Replacer
	mux       *http.ServeMux

	quotes   *polygon.Client
	coins    *coingecko.Client
	verifier *paypal.Verifier
	ai       *openai.Client
	feeds    *gofeed.Parser

	seen *seenPayments

	// Test hooks.
	noServerStart bool
	sleep         func(ctx context.Context, d time.Duration) error
	now           func() time.Time
}

func (e *engine) Flags(fs *flag.FlagSet) {
	fs.StringVar(&e.addr, "addr", "", "Listen on `host:port` (overrides ADDR).")
	fs.BoolVar(&e.prod, "prod", false, "Run in production mode: register the Telegram webhook on start.")
	fs.StringVar(&e.symbol, "symbol", "", "Ticker `symbol` of scheduled drops (overrides DROP_SYMBOL).")
	fs.DurationVar(&e.interval, "interval", 0, "Interval between scheduled drops (overrides DROP_INTERVAL).")
}

func (e *engine) Run(ctx context.Context, env *cli.Env) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	e.tgToken = env.Getenv("TELEGRAM_TOKEN")
	if e.tgToken == "" {
		return errors.New("TELEGRAM_TOKEN environment variable is not set")
	}
	e.chatID = env.Getenv("CHAT_ID")
	if e.chatID == "" {
		return errors.New("CHAT_ID environment variable is not set")
	}
	e.tgSecret = env.Getenv("TELEGRAM_SECRET")
	e.openaiKey = env.Getenv("OPENAI_KEY")
	e.polygonKey = env.Getenv("POLYGON_KEY")
	e.host = env.Getenv("HOST")

	e.addr = cmp.Or(e.addr, env.Getenv("ADDR"), "localhost:3000")
	e.symbol = cmp.Or(e.symbol, env.Getenv("DROP_SYMBOL"))
	if e.interval == 0 {
		if v := env.Getenv("DROP_INTERVAL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid DROP_INTERVAL: %w", err)
			}
			e.interval = d
		}
	}
	if v := env.Getenv("PAYPAL_PRICE"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PAYPAL_PRICE: %w", err)
		}
		e.price = p
	}
	e.currency = env.Getenv("PAYPAL_CURRENCY")

	if e.prod && e.host == "" {
		return errors.New("HOST environment variable is not set, but required in production mode")
	}

	e.init.Do(func() { e.doInit(ctx) })
	if e.initErr != nil {
		return e.initErr
	}

	if e.prod {
		if err := e.setWebhook(ctx); err != nil {
			return err
		}
	}

	if e.noServerStart {
		return nil
	}

	go e.dropLoop(ctx)

	return web.ListenAndServe(ctx, &web.ListenAndServeConfig{
		Addr: e.addr,
		Mux:  e.mux,
		Logf: e.logf,
	})
}

func (e *engine) doInit(ctx context.Context) {
	if e.httpc == nil {
		e.httpc = request.DefaultClient
	}
	if e.stderr == nil {
		e.stderr = os.Stderr
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.sleep == nil {
		e.sleep = func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-t.C:
				return nil
			}
		}
	}

	e.symbol = cmp.Or(e.symbol, defaultSymbol)
	if e.interval == 0 {
		e.interval = defaultInterval
	}
	if e.price == 0 {
		e.price = defaultPrice
	}
	e.currency = cmp.Or(e.currency, defaultCurrency)
	e.newsFeed = cmp.Or(e.newsFeed, defaultNewsFeed)
	e.artifactDir = cmp.Or(e.artifactDir, os.TempDir())

	if e.logStream == nil {
		e.logStream = logger.NewStreamer(300)
	}
	if e.logf == nil {
		e.logf = log.New(io.MultiWriter(e.stderr, e.logStream), "", log.LstdFlags).Printf
	}

	var scrub []string
	for _, secret := range []string{e.tgToken, e.tgSecret, e.openaiKey, e.polygonKey} {
		if secret != "" {
			scrub = append(scrub, secret, "[EXPUNGED]")
		}
	}
	e.scrubber = strings.NewReplacer(scrub...)

	if e.quotes == nil {
		e.quotes = &polygon.Client{
			APIKey:     e.polygonKey,
			HTTPClient: e.httpc,
			Scrubber:   e.scrubber,
		}
	}
	if e.coins == nil {
		e.coins = &coingecko.Client{HTTPClient: e.httpc}
	}
	if e.verifier == nil {
		e.verifier = &paypal.Verifier{HTTPClient: e.httpc}
	}
	if e.ai == nil {
		cfg := openai.DefaultConfig(e.openaiKey)
		cfg.HTTPClient = e.httpc
		e.ai = openai.NewClientWithConfig(cfg)
	}
	if e.feeds == nil {
		e.feeds = gofeed.NewParser()
		e.feeds.Client = e.httpc
	}

	e.seen = newSeenPayments(maxSeenPayments)

	e.initRoutes()
}
