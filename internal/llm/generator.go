package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/zyfalo/sereno/internal/config"
)

// stopMarkers terminate generation. Output is truncated at the first
// occurrence even when the backend echoes them instead of stopping.
var stopMarkers = []string{"<|im_end|>", "<|endoftext|>"}

// Generator turns a formatted chat-markup prompt into a reply. The
// completion call is synchronous and may run for tens of seconds; callers
// impose timeouts through ctx.
type Generator struct {
	client Client
	cfg    config.ModelConfig
}

// NewGenerator wraps a completion client with the model settings.
func NewGenerator(client Client, cfg config.ModelConfig) *Generator {
	return &Generator{client: client, cfg: cfg}
}

// Generate submits the prompt and returns the cleaned continuation. An
// echoed prompt prefix is stripped and output is cut at the first stop
// marker. An empty prompt is rejected before any network call.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("empty prompt")
	}

	resp, err := g.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       g.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
		Stop:        stopMarkers,
	})
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generation failed: no choices returned")
	}

	return clean(resp.Choices[0].Text, prompt), nil
}

// clean strips an echoed prompt prefix and truncates at the first stop
// marker.
func clean(output, prompt string) string {
	output = strings.TrimPrefix(output, prompt)
	for _, marker := range stopMarkers {
		if i := strings.Index(output, marker); i >= 0 {
			output = output[:i]
		}
	}
	return strings.TrimSpace(output)
}
