package ports

import "context"

// TextGenerationRequest is a single-turn completion request.
type TextGenerationRequest struct {
	SystemPrompt    string
	UserPrompt      string
	Temperature     float64
	MaxOutputTokens int
}

// TextGenerator returns free-form text. There is no guarantee about the shape
// of the output; callers must parse and validate it themselves.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextGenerationRequest) (string, error)
}
