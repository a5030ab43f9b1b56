package adapters

import (
	"context"

	"deal_insights_backend/internal/deals/ports"
	"deal_insights_backend/platform/ai/textgen"
)

// TextGeneratorAdapter exposes the platform text generator through the deals
// text-generation port.
type TextGeneratorAdapter struct {
	generator *textgen.Generator
}

func NewTextGeneratorAdapter(generator *textgen.Generator) *TextGeneratorAdapter {
	return &TextGeneratorAdapter{generator: generator}
}

func (a *TextGeneratorAdapter) GenerateText(ctx context.Context, req ports.TextGenerationRequest) (string, error) {
	return a.generator.Generate(ctx, req.SystemPrompt, req.UserPrompt, textgen.Options{
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
	})
}

// Compile-time check.
var _ ports.TextGenerator = (*TextGeneratorAdapter)(nil)
