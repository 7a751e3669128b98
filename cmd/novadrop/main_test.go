// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"go.astrophena.name/novadrop/internal/cli"
	"go.astrophena.name/novadrop/internal/logger"
)

func testCLIEnv(env map[string]string) *cli.Env {
	return &cli.Env{
		Getenv: func(k string) string { return env[k] },
		Stdin:  strings.NewReader(""),
		Stdout: io.Discard,
		Stderr: io.Discard,
	}
}

const (
	tgToken  = "123456:ABC-DEF1234ghIkl-zyx57W2v1u123ew11"
	tgSecret = "opensesame"
	chatID   = "-1001234567890"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// testMux fakes every external service the engine talks to. Telegram
// endpoints are registered by default; everything else is registered
// per-test with handle.
type testMux struct {
	mux *http.ServeMux

	mu       sync.Mutex
	messages []map[string]any // sendMessage bodies
	photos   []sentPhoto
	webhooks []map[string]any // setWebhook bodies

	failSendMessage bool
	failSendPhoto   bool
}

type sentPhoto struct {
	chatID  string
	caption string
	size    int
}

func newTestMux(t *testing.T) *testMux {
	t.Helper()
	tm := &testMux{mux: http.NewServeMux()}

	tm.mux.HandleFunc("POST api.telegram.org/bot"+tgToken+"/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		if tm.failSendMessage {
			http.Error(w, `{"ok":false}`, http.StatusBadGateway)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("sendMessage: %v", err)
		}
		tm.mu.Lock()
		tm.messages = append(tm.messages, body)
		tm.mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	})

	tm.mux.HandleFunc("POST api.telegram.org/bot"+tgToken+"/sendPhoto", func(w http.ResponseWriter, r *http.Request) {
		if tm.failSendPhoto {
			http.Error(w, `{"ok":false}`, http.StatusBadGateway)
			return
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("sendPhoto: %v", err)
			return
		}
		f, _, err := r.FormFile("photo")
		if err != nil {
			t.Errorf("sendPhoto: %v", err)
			return
		}
		defer f.Close()
		b, err := io.ReadAll(f)
		if err != nil {
			t.Errorf("sendPhoto: %v", err)
			return
		}
		tm.mu.Lock()
		tm.photos = append(tm.photos, sentPhoto{
			chatID:  r.FormValue("chat_id"),
			caption: r.FormValue("caption"),
			size:    len(b),
		})
		tm.mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	})

	tm.mux.HandleFunc("POST api.telegram.org/bot"+tgToken+"/setWebhook", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("setWebhook: %v", err)
		}
		tm.mu.Lock()
		tm.webhooks = append(tm.webhooks, body)
		tm.mu.Unlock()
		fmt.Fprint(w, `{"ok":true}`)
	})

	return tm
}

func (tm *testMux) handle(pattern string, h http.HandlerFunc) { tm.mux.HandleFunc(pattern, h) }

func (tm *testMux) client() *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			w := httptest.NewRecorder()
			tm.mux.ServeHTTP(w, r)
			return w.Result(), nil
		}),
	}
}

func (tm *testMux) sentMessages() []map[string]any {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return append([]map[string]any(nil), tm.messages...)
}

func (tm *testMux) sentPhotos() []sentPhoto {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return append([]sentPhoto(nil), tm.photos...)
}

// testEngine returns an initialized engine wired to tm with test-friendly
// defaults. Adjust fields before calling doInit yourself by constructing an
// engine directly instead.
func testEngine(t *testing.T, tm *testMux) *engine {
	t.Helper()
	e := &engine{
		tgToken:     tgToken,
		tgSecret:    tgSecret,
		chatID:      chatID,
		openaiKey:   "sk-test",
		polygonKey:  "test-polygon-key",
		httpc:       tm.client(),
		stderr:      logger.Logf(t.Logf),
		artifactDir: t.TempDir(),
		sleep: func(ctx context.Context, d time.Duration) error {
			return ctx.Err()
		},
		noServerStart: true,
	}
	e.doInit(context.Background())
	return e
}

// openaiReply registers a chat completion endpoint that always answers with
// content.
func (tm *testMux) openaiReply(content string) {
	tm.handle("POST api.openai.com/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	})
}

// openaiDown registers a chat completion endpoint that always fails.
func (tm *testMux) openaiDown() {
	tm.handle("POST api.openai.com/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})
}

// polygonSeries registers a Polygon aggregates endpoint serving n daily
// bars for any symbol.
func (tm *testMux) polygonSeries(n int) {
	tm.handle("GET api.polygon.io/v2/aggs/ticker/{symbol}/range/1/day/{from}/{to}", func(w http.ResponseWriter, r *http.Request) {
		type bar struct {
			C float64 `json:"c"`
			V float64 `json:"v"`
			T int64   `json:"t"`
		}
		day := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		var bars []bar
		for i := range n {
			bars = append(bars, bar{
				C: 4 + 0.05*float64(i),
				V: 100000,
				T: day.AddDate(0, 0, i).UnixMilli(),
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": bars})
	})
}

// paypalVerdict registers an IPN verification endpoint answering with
// verdict and counts the calls via the returned function.
func (tm *testMux) paypalVerdict(t *testing.T, verdict string) (calls func() int) {
	var (
		mu sync.Mutex
		n  int
	)
	tm.handle("POST ipnpb.paypal.com/cgi-bin/webscr", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n++
		mu.Unlock()
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("verify: %v", err)
		}
		form, err := url.ParseQuery(string(b))
		if err != nil {
			t.Errorf("verify: %v", err)
		}
		if form.Get("cmd") != "_notify-validate" {
			t.Errorf("verify: cmd = %q, want _notify-validate", form.Get("cmd"))
		}
		fmt.Fprint(w, verdict)
	})
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

// paypalDown registers an IPN verification endpoint that fails every call.
func (tm *testMux) paypalDown() (calls func() int) {
	var (
		mu sync.Mutex
		n  int
	)
	tm.handle("POST ipnpb.paypal.com/cgi-bin/webscr", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		n++
		mu.Unlock()
		http.Error(w, "tea", http.StatusServiceUnavailable)
	})
	return func() int {
		mu.Lock()
		defer mu.Unlock()
		return n
	}
}

func TestRunRequiresConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		env     map[string]string
		wantErr string
	}{
		"no token": {
			env:     map[string]string{},
			wantErr: "TELEGRAM_TOKEN",
		},
		"no chat": {
			env:     map[string]string{"TELEGRAM_TOKEN": tgToken},
			wantErr: "CHAT_ID",
		},
		"bad interval": {
			env: map[string]string{
				"TELEGRAM_TOKEN": tgToken,
				"CHAT_ID":        chatID,
				"DROP_INTERVAL":  "four hours",
			},
			wantErr: "DROP_INTERVAL",
		},
		"bad price": {
			env: map[string]string{
				"TELEGRAM_TOKEN": tgToken,
				"CHAT_ID":        chatID,
				"PAYPAL_PRICE":   "a lot",
			},
			wantErr: "PAYPAL_PRICE",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := &engine{noServerStart: true}
			err := e.Run(context.Background(), testCLIEnv(tc.env))
			if err == nil {
				t.Fatal("want error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q doesn't mention %s", err, tc.wantErr)
			}
		})
	}
}

func TestRunProdRegistersWebhook(t *testing.T) {
	t.Parallel()

	tm := newTestMux(t)
	e := &engine{
		httpc:         tm.client(),
		stderr:        logger.Logf(t.Logf),
		artifactDir:   t.TempDir(),
		prod:          true,
		noServerStart: true,
	}
	err := e.Run(context.Background(), testCLIEnv(map[string]string{
		"TELEGRAM_TOKEN":  tgToken,
		"TELEGRAM_SECRET": tgSecret,
		"CHAT_ID":         chatID,
		"HOST":            "nova.example.com",
	}))
	if err != nil {
		t.Fatal(err)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if len(tm.webhooks) != 1 {
		t.Fatalf("got %d setWebhook calls, want 1", len(tm.webhooks))
	}
	if got, want := tm.webhooks[0]["url"], "https://nova.example.com/telegram"; got != want {
		t.Fatalf("webhook url = %v, want %v", got, want)
	}
	if got, want := tm.webhooks[0]["secret_token"], tgSecret; got != want {
		t.Fatalf("webhook secret_token = %v, want %v", got, want)
	}
}
