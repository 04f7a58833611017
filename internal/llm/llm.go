// Package llm adapts configuration-selected text-generation backends
// behind a single blocking Generate call. Retry policy, if any, belongs
// to the caller.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/kamalkrbh/doc-finder/internal/config"
	"github.com/kamalkrbh/doc-finder/internal/domain"
)

// CompletionService produces natural-language text from a prompt.
type CompletionService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// New selects a backend by its configured name. An unrecognized name or
// a missing credential is a construction-time failure.
func New(cfg config.LLMConfig) (CompletionService, error) {
	switch cfg.Provider {
	case "groq":
		key := os.Getenv(cfg.GroqAPIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: %s environment variable is not set", domain.ErrConfig, cfg.GroqAPIKeyEnv)
		}
		return newGroqClient(key, cfg.GroqBaseURL, cfg.GroqModel), nil
	case "ollama":
		return newOllamaClient(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfig, cfg.Provider)
	}
}
