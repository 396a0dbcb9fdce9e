package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/fedask/fedask/internal/observability"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type ServiceConfig struct {
	LookbackDays int
	// Schedule is a five-field cron spec evaluated in UTC. Empty falls back
	// to Interval.
	Schedule     string
	Interval     time.Duration
}

// RunSummary describes one completed or failed pipeline run.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Source     string         `json:"source"`
	Days       []string       `json:"days"`
	Fetched    int            `json:"fetched"`
	Cleaned    int            `json:"cleaned"`
	Written    map[string]int `json:"written"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Loaded is the number of rows the store sink inserted, or the cleaned
// count when no store sink is configured.
func (s RunSummary) Loaded() int {
	if n, ok := s.Written["store"]; ok {
		return n
	}
	return s.Cleaned
}

// Service runs fetch, clean and load. Runs never overlap.
type Service struct {
	cfg      ServiceConfig
	schedule cron.Schedule
	source   Source
	sinks    []Sink
	log      *slog.Logger
	clock    Clock
	runID    func() string

	mu sync.Mutex
}

func NewService(cfg ServiceConfig, source Source, sinks []Sink, logger *slog.Logger) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 2
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 12 * time.Hour
	}
	var schedule cron.Schedule
	if cfg.Schedule != "" {
		parsed, err := cron.ParseStandard(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
		}
		schedule = parsed
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		cfg:      cfg,
		schedule: schedule,
		source:   source,
		sinks:    sinks,
		log:      logger,
		clock:    systemClock{},
		runID:    uuid.NewString,
	}, nil
}

// Run executes one pass immediately and then one at every scheduled time
// until ctx is cancelled. Failed passes are logged and do not stop the loop.
func (s *Service) Run(ctx context.Context) error {
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Error("pipeline run failed", slog.Any("error", err))
		}

		now := s.clock.Now().UTC()
		next := s.NextRun(now)
		s.log.Info("next pipeline run scheduled", slog.Time("at", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// NextRun reports when the pass following now is due.
func (s *Service) NextRun(now time.Time) time.Time {
	now = now.UTC()
	if s.schedule != nil {
		return s.schedule.Next(now)
	}
	return now.Add(s.cfg.Interval)
}

func (s *Service) RunOnce(ctx context.Context) (RunSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.clock.Now().UTC()
	summary := RunSummary{
		RunID:     s.runID(),
		Source:    s.source.Name(),
		Written:   map[string]int{},
		StartedAt: started,
	}
	logger := s.log.With(slog.String("run_id", summary.RunID))

	today := time.Date(started.Year(), started.Month(), started.Day(), 0, 0, 0, 0, time.UTC)
	var raw []RawDocument
	for delta := 0; delta < s.cfg.LookbackDays; delta++ {
		day := today.AddDate(0, 0, -delta)
		summary.Days = append(summary.Days, day.Format(time.DateOnly))
		docs, err := s.source.Fetch(ctx, day)
		if err != nil {
			return s.finish(logger, summary, fmt.Errorf("fetch %s: %w", day.Format(time.DateOnly), err))
		}
		logger.Info("fetched documents", slog.String("date", day.Format(time.DateOnly)), slog.Int("count", len(docs)))
		raw = append(raw, docs...)
	}
	summary.Fetched = len(raw)

	batch := Batch{RunID: summary.RunID, Day: today, Raw: raw, Documents: Clean(raw)}
	summary.Cleaned = len(batch.Documents)

	for _, sink := range s.sinks {
		written, err := sink.Write(ctx, batch)
		if err != nil {
			return s.finish(logger, summary, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
		summary.Written[sink.Name()] = written
		logger.Info("sink written", slog.String("sink", sink.Name()), slog.Int("count", written))
	}
	return s.finish(logger, summary, nil)
}

func (s *Service) finish(logger *slog.Logger, summary RunSummary, err error) (RunSummary, error) {
	summary.FinishedAt = s.clock.Now().UTC()
	observability.ObservePipelineRun(summary.Fetched, summary.Loaded(), err, summary.FinishedAt)
	if err != nil {
		return summary, err
	}
	logger.Info("pipeline run completed",
		slog.String("source", summary.Source),
		slog.Int("fetched", summary.Fetched),
		slog.Int("loaded", summary.Loaded()),
		slog.String("duration", summary.FinishedAt.Sub(summary.StartedAt).String()),
	)
	return summary, nil
}
