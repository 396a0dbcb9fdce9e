// Package generation turns a prompt into raw model text.
package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/fedask/fedask/internal/config"
)

const (
	BackendProcess = "process"
	BackendOpenAI  = "openai"
)

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Error reports that the generation capability could not produce output.
// Empty output is not an error.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("generation failed (%s)", e.Backend)
	}
	return fmt.Sprintf("generation failed (%s): %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func New(cfg config.GeneratorConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendProcess:
		return NewProcessGenerator(ProcessConfig{
			Command: cfg.Command,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
	case BackendOpenAI:
		return NewOpenAIGenerator(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported generator backend %q", cfg.Backend)
	}
}
