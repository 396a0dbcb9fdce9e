package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fedask/fedask/internal/config"
)

const (
	SourceFederalRegister = "federalregister"
	SourceSynthetic       = "synthetic"
)

type Source interface {
	Name() string
	Fetch(ctx context.Context, day time.Time) ([]RawDocument, error)
}

func NewSource(cfg config.PipelineConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Source {
	case "", SourceFederalRegister:
		return NewFederalRegisterSource(cfg.BaseURL, cfg.PerPage, &http.Client{Timeout: cfg.HTTPTimeout}, logger)
	case SourceSynthetic:
		return NewSyntheticSource(cfg.Seed, cfg.PerPage), nil
	default:
		return nil, fmt.Errorf("unsupported pipeline source %q", cfg.Source)
	}
}
