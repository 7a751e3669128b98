// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package logger defines a type for writing to logs and a thread-safe
// io.Writer that keeps the last logged lines in a ring buffer and serves
// them over HTTP.
package logger

import (
	"container/ring"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Logf is the basic logger type: a printf-like func. Like [log.Printf], the
// format need not end in a newline. Logf functions must be safe for
// concurrent use.
type Logf func(format string, args ...any)

// Write implements the [io.Writer] interface.
func (f Logf) Write(p []byte) (n int, err error) {
	f("%s", p)
	return len(p), nil
}

// Streamer is an io.Writer that remembers logged lines and can serve them.
type Streamer interface {
	http.Handler

	Write(p []byte) (n int, err error)

	// Lines returns all remembered lines, oldest first.
	Lines() []string
}

// NewStreamer returns a new Streamer backed by a ring buffer of the given
// size.
func NewStreamer(size int) Streamer {
	return &lineRingBuffer{r: ring.New(size)}
}

type lineRingBuffer struct {
	mu        sync.RWMutex
	remainder string
	r         *ring.Ring
}

func (lrb *lineRingBuffer) Write(b []byte) (int, error) {
	lrb.mu.Lock()
	defer lrb.mu.Unlock()

	text := lrb.remainder + string(b)
	for {
		idx := strings.Index(text, "\n")
		if idx == -1 {
			break
		}
		lrb.r.Value = text[:idx]
		lrb.r = lrb.r.Next()
		text = text[idx+1:]
	}
	lrb.remainder = text

	return len(b), nil
}

func (lrb *lineRingBuffer) Lines() []string {
	lrb.mu.RLock()
	defer lrb.mu.RUnlock()

	lines := make([]string, 0, lrb.r.Len())
	lrb.r.Do(func(x any) {
		if x != nil {
			lines = append(lines, x.(string))
		}
	})
	return lines
}

func (lrb *lineRingBuffer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	for _, line := range lrb.Lines() {
		fmt.Fprintln(w, line)
	}
}
