// Package textgen exposes a plain "system prompt + user prompt in, text out"
// capability on top of any ADK model.LLM.
package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// ErrEmptyOutput is returned when the model answered without any text.
var ErrEmptyOutput = errors.New("textgen: model returned no text")

// Options tune a single completion.
type Options struct {
	Temperature     float64
	MaxOutputTokens int
}

// Generator runs single-turn completions against an LLM.
type Generator struct {
	llm model.LLM
}

// New wraps an ADK model.
func New(llm model.LLM) *Generator {
	return &Generator{llm: llm}
}

// Generate sends one system/user prompt pair and concatenates the text parts
// of every response the model yields.
func (g *Generator) Generate(ctx context.Context, systemPrompt, userPrompt string, opts Options) (string, error) {
	if g == nil || g.llm == nil {
		return "", fmt.Errorf("textgen: no model configured")
	}

	cfg := &genai.GenerateContentConfig{}
	if strings.TrimSpace(systemPrompt) != "" {
		cfg.SystemInstruction = &genai.Content{
			Role:  "user",
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	temperature := float32(opts.Temperature)
	cfg.Temperature = &temperature
	if opts.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}

	req := &model.LLMRequest{
		Model: g.llm.Name(),
		Contents: []*genai.Content{{
			Role:  "user",
			Parts: []*genai.Part{{Text: userPrompt}},
		}},
		Config: cfg,
	}

	var output strings.Builder
	for resp, err := range g.llm.GenerateContent(ctx, req, false) {
		if err != nil {
			return "", fmt.Errorf("textgen: %s: %w", g.llm.Name(), err)
		}
		if resp == nil || resp.Content == nil {
			continue
		}
		for _, part := range resp.Content.Parts {
			if part != nil {
				output.WriteString(part.Text)
			}
		}
	}

	text := strings.TrimSpace(output.String())
	if text == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}
