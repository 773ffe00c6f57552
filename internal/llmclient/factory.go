// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/SriHarishb/Agentic-Web-Scraper-With-Automation/internal/config"
)

// Client is the inference surface consumed by the agent: prompt in, text out.
// The returned text may be non-JSON or empty; callers must tolerate both.
type Client interface {
	Infer(ctx context.Context, prompt string) (string, error)
}

var _ Client = (*GeminiClient)(nil)

// NewClient is a factory function that creates a Client based on the
// configured provider.
func NewClient(cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s]", cfg.Provider, config.ProviderGemini)
	}
}
