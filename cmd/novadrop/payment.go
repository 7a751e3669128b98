// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.astrophena.name/novadrop/internal/web"
)

const (
	maxSeenPayments = 1000
	verifyAttempts  = 3
	verifyBackoff   = 2 * time.Second

	welcomeText = "Welcome aboard! Your payment went through and Nova Stratos drops are now yours. Stay sharp."
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// ipnFields must all be present in an IPN form for it to be processable.
var ipnFields = []string{"payment_status", "mc_gross", "mc_currency", "custom", "txn_id"}

func (e *engine) handlePayPalIPN(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		paymentsTotal.WithLabelValues("malformed").Inc()
		web.RespondJSONError(e.logf, w, fmt.Errorf("%w: invalid form", web.ErrBadRequest))
		return
	}
	form := r.PostForm
	for _, k := range ipnFields {
		if form.Get(k) == "" {
			paymentsTotal.WithLabelValues("malformed").Inc()
			web.RespondJSONError(e.logf, w, fmt.Errorf("%w: missing %s", web.ErrBadRequest, k))
			return
		}
	}

	// Fail closed: a payment that can't be verified is never accepted.
	verified, err := e.verifyIPN(r.Context(), form)
	if err != nil {
		paymentsTotal.WithLabelValues("verify_error").Inc()
		e.logf("IPN verification failed: %v", err)
		web.RespondJSONError(e.logf, w, fmt.Errorf("%w: verification failed", web.ErrBadRequest))
		return
	}
	if !verified {
		paymentsTotal.WithLabelValues("invalid").Inc()
		web.RespondJSONError(e.logf, w, fmt.Errorf("%w: IPN not verified", web.ErrBadRequest))
		return
	}

	var (
		status   = form.Get("payment_status")
		gross    = form.Get("mc_gross")
		currency = form.Get("mc_currency")
		username = form.Get("custom")
		txnID    = form.Get("txn_id")
	)

	respondOK := func(outcome string) {
		paymentsTotal.WithLabelValues(outcome).Inc()
		web.RespondJSON(w, map[string]string{"status": "ok"})
	}

	// Verified messages that don't match the expected sale are
	// acknowledged and dropped, so PayPal stops resending them.
	if status != "Completed" {
		e.logf("Ignoring IPN %s with status %q.", txnID, status)
		respondOK("ignored")
		return
	}
	amount, err := strconv.ParseFloat(gross, 64)
	if err != nil || math.Abs(amount-e.price) > 0.005 {
		e.logf("Ignoring IPN %s with amount %q, want %.2f.", txnID, gross, e.price)
		respondOK("ignored")
		return
	}
	if !strings.EqualFold(currency, e.currency) {
		e.logf("Ignoring IPN %s in currency %q, want %s.", txnID, currency, e.currency)
		respondOK("ignored")
		return
	}
	if !usernameRe.MatchString(username) {
		e.logf("Ignoring IPN %s with unusable custom field.", txnID)
		respondOK("ignored")
		return
	}

	if e.seen.seen(paymentHash(txnID, gross, status)) {
		e.logf("Duplicate IPN %s, welcome already handled.", txnID)
		respondOK("duplicate")
		return
	}

	if err := e.sendMessage(r.Context(), "@"+username, welcomeText); err != nil {
		// The hash stays recorded, so a payment welcomes at most once
		// even when the send fails.
		e.logf("Welcoming %s failed: %v", username, err)
		respondOK("welcome_failed")
		return
	}
	e.logf("Welcomed %s after payment %s.", username, txnID)
	respondOK("ok")
}

// verifyIPN verifies form against PayPal, retrying transport failures with
// linear backoff. An INVALID verdict is returned immediately and is not
// retried.
func (e *engine) verifyIPN(ctx context.Context, form url.Values) (bool, error) {
	var lastErr error
	for attempt := 1; attempt <= verifyAttempts; attempt++ {
		ok, err := e.verifier.Verify(ctx, form)
		if err == nil {
			return ok, nil
		}
		lastErr = err
		if attempt < verifyAttempts {
			e.logf("IPN verify attempt %d failed: %v", attempt, err)
			if err := e.sleep(ctx, time.Duration(attempt)*verifyBackoff); err != nil {
				return false, err
			}
		}
	}
	return false, lastErr
}

func paymentHash(txnID, amount, status string) string {
	sum := sha256.Sum256([]byte(txnID + "|" + amount + "|" + status))
	return hex.EncodeToString(sum[:])
}

// seenPayments is a bounded set of payment hashes. When full, recording a
// new hash evicts the oldest one.
type seenPayments struct {
	mu    sync.Mutex
	limit int
	order []string
	set   map[string]struct{}
}

func newSeenPayments(limit int) *seenPayments {
	return &seenPayments{limit: limit, set: make(map[string]struct{})}
}

// seen records h and reports whether it was already present. Check and
// insert happen under one lock, so concurrent duplicates can't both pass.
func (s *seenPayments) seen(h string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.set[h]; ok {
		return true
	}
	s.set[h] = struct{}{}
	s.order = append(s.order, h)
	if len(s.order) > s.limit {
		delete(s.set, s.order[0])
		s.order = s.order[1:]
	}
	return false
}

func (s *seenPayments) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.set)
}
