// Package llm wraps the OpenAI-compatible completion API exposed by local
// inference servers (llama.cpp, ollama) behind a small text-generation port.
package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/zyfalo/sereno/internal/config"
)

// NewClient creates an OpenAI-compatible client pointed at the configured
// local inference server.
func NewClient(cfg config.ModelConfig) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return openai.NewClientWithConfig(clientCfg)
}
