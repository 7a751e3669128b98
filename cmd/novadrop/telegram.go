// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"go.astrophena.name/novadrop/internal/request"
	"go.astrophena.name/novadrop/internal/version"
)

const tgAPI = "https://api.telegram.org"

func (e *engine) makeTelegramRequest(ctx context.Context, method string, args any) error {
	if _, err := request.MakeJSON[request.IgnoreResponse](ctx, request.Params{
		Method:     http.MethodPost,
		URL:        tgAPI + "/bot" + e.tgToken + "/" + method,
		Body:       args,
		HTTPClient: e.httpc,
		Scrubber:   e.scrubber,
	}); err != nil {
		return fmt.Errorf("calling %q: %w", method, err)
	}
	return nil
}

// sendMessage sends a plain text message to a chat. chatID is either an
// int64 chat ID or a "@username" string.
func (e *engine) sendMessage(ctx context.Context, chatID any, text string) error {
	return e.makeTelegramRequest(ctx, "sendMessage", map[string]any{
		"chat_id": chatID,
		"text":    text,
	})
}

func (e *engine) setWebhook(ctx context.Context) error {
	args := map[string]any{
		"url":             "https://" + e.host + "/telegram",
		"allowed_updates": []string{"message", "channel_post"},
	}
	if e.tgSecret != "" {
		args["secret_token"] = e.tgSecret
	}
	return e.makeTelegramRequest(ctx, "setWebhook", args)
}

// sendPhoto uploads the image at path to a chat with an optional caption.
func (e *engine) sendPhoto(ctx context.Context, chatID any, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", fmt.Sprint(chatID)); err != nil {
		return err
	}
	if caption != "" {
		if err := mw.WriteField("caption", caption); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tgAPI+"/bot"+e.tgToken+"/sendPhoto", &buf)
	if err != nil {
		return e.scrubbed(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("User-Agent", version.UserAgent())

	res, err := e.httpc.Do(req)
	if err != nil {
		return e.scrubbed(err)
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return e.scrubbed(err)
	}
	if res.StatusCode != http.StatusOK {
		return e.scrubbed(&request.StatusError{StatusCode: res.StatusCode, Body: b})
	}
	return nil
}

func (e *engine) scrubbed(err error) error {
	if e.scrubber == nil {
		return err
	}
	return fmt.Errorf("%s", e.scrubber.Replace(err.Error()))
}
