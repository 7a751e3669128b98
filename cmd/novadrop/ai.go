// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const personaPrompt = `You are Nova Stratos, a sharp market commentator with a dry sense of
humor. You write short, punchy takes on charts and market action. You never
give financial advice and you never promise returns. Plain text only, no
markdown.`

const generateTimeout = 20 * time.Second

// generate produces text with the model, returning fallback verbatim if the
// request fails or comes back empty. It never returns an error: a drop or a
// command reply must not die because generation is down.
func (e *engine) generate(ctx context.Context, system, prompt, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	resp, err := e.ai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   400,
		Temperature: 0.9,
	})
	if err != nil {
		e.logf("Generation failed: %v", e.scrubbed(err))
		return fallback
	}
	if len(resp.Choices) == 0 {
		return fallback
	}
	if out := strings.TrimSpace(resp.Choices[0].Message.Content); out != "" {
		return out
	}
	return fallback
}

const jokeFallback = "My jokes are down, just like your entry. Try again later."

func (e *engine) cmdJoke(ctx context.Context, chatID int64, args string) string {
	return e.generate(ctx, personaPrompt, "Tell one short, original joke about trading or crypto.", jokeFallback)
}
