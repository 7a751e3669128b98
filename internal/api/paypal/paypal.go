// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package paypal implements PayPal IPN message verification.
//
// An IPN (instant payment notification) is verified by echoing the received
// form back to PayPal with cmd=_notify-validate prepended; PayPal responds
// with a literal VERIFIED or INVALID. See
// https://developer.paypal.com/api/nvp-soap/ipn/.
package paypal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.astrophena.name/novadrop/internal/request"
	"go.astrophena.name/novadrop/internal/version"
)

// VerifyEndpoint is the production IPN verification endpoint.
const VerifyEndpoint = "https://ipnpb.paypal.com/cgi-bin/webscr"

// Verifier verifies IPN messages against PayPal.
type Verifier struct {
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
}

// Verify echoes the received IPN form back to PayPal and reports whether
// PayPal acknowledged it as VERIFIED.
//
// A false return with a nil error means PayPal answered INVALID; an error
// means the verification round trip itself failed and the caller may retry.
func (v *Verifier) Verify(ctx context.Context, form url.Values) (bool, error) {
	echo := url.Values{"cmd": {"_notify-validate"}}
	for k, vals := range form {
		echo[k] = vals
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, VerifyEndpoint, strings.NewReader(echo.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", version.UserAgent())

	httpc := request.DefaultClient
	if v.HTTPClient != nil {
		httpc = v.HTTPClient
	}

	res, err := httpc.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	b, err := io.ReadAll(io.LimitReader(res.Body, 1024))
	if err != nil {
		return false, err
	}
	if res.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify: want 200, got %d: %s", res.StatusCode, b)
	}

	return string(b) == "VERIFIED", nil
}
