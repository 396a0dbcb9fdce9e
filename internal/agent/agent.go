// Package agent answers free-text questions by generating, extracting,
// executing and formatting a single SQL query.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fedask/fedask/internal/generation"
	"github.com/fedask/fedask/internal/observability"
	"github.com/fedask/fedask/internal/query"
)

const (
	GenerationUnavailableMessage = "Sorry, the language model is unavailable right now."
	NoQueryFoundMessage          = "Sorry, I couldn't understand the request."
	executionErrorPrefix         = "Error executing SQL: "
)

type Stage string

const (
	StageBuild    Stage = "build"
	StageGenerate Stage = "generate"
	StageExtract  Stage = "extract"
	StageExecute  Stage = "execute"
	StageFormat   Stage = "format"
	StageDone     Stage = "done"
)

const StatusOK = "ok"

// Agent is safe for concurrent use as long as its collaborators are; it
// holds no per-call state.
type Agent struct {
	Schema          string
	Generator       generation.Generator
	Executor        query.Executor
	Logger          *slog.Logger
	GenerateTimeout time.Duration
	ExecuteTimeout  time.Duration
	// Guard, when set, vets the candidate query before it is executed.
	Guard func(sqlText string) error
}

// Outcome is the result of one Run. Stage is StageDone on success, otherwise
// the stage that failed.
type Outcome struct {
	Answer  string
	Stage   Stage
	SQL     string
	Rows    int
	Failure *Failure
}

func (o Outcome) Status() string {
	if o.Failure == nil {
		return StatusOK
	}
	return string(o.Failure.Kind)
}

// Answer never fails; failures are rendered as text.
func (a *Agent) Answer(ctx context.Context, question string) string {
	return a.Run(ctx, question).Answer
}

func (a *Agent) Run(ctx context.Context, question string) Outcome {
	start := time.Now()
	outcome := a.run(ctx, question)
	if outcome.Failure != nil {
		outcome.Answer = failureText(outcome.Failure)
	}
	observability.ObserveAnswer(outcome.Status())

	logger := observability.LoggerFromContext(ctx, a.logger())
	attrs := []any{
		slog.String("status", outcome.Status()),
		slog.String("stage", string(outcome.Stage)),
		slog.String("duration", time.Since(start).String()),
	}
	if outcome.Failure != nil {
		attrs = append(attrs, slog.String("error", outcome.Failure.Error()))
		if outcome.SQL != "" {
			attrs = append(attrs, slog.String("sql", outcome.SQL))
		}
		logger.Warn("question not answered", attrs...)
	} else {
		attrs = append(attrs, slog.Int("rows", outcome.Rows))
		logger.Info("question answered", attrs...)
	}
	return outcome
}

func (a *Agent) run(ctx context.Context, question string) Outcome {
	schema := a.Schema
	if schema == "" {
		schema = DocumentsSchema
	}
	prompt := BuildPrompt(schema, question)

	generateStart := time.Now()
	raw, err := a.generate(ctx, prompt)
	observability.ObserveGenerateLatency(time.Since(generateStart))
	if err != nil {
		return Outcome{Stage: StageGenerate, Failure: &Failure{Kind: FailureGeneration, Err: err}}
	}

	sqlText, err := ExtractQuery(raw)
	if err != nil {
		return Outcome{Stage: StageExtract, Failure: &Failure{Kind: FailureNoQuery, Err: err}}
	}

	executeStart := time.Now()
	result, err := a.execute(ctx, sqlText)
	if err != nil {
		observability.ObserveExecute(time.Since(executeStart), -1)
		return Outcome{Stage: StageExecute, SQL: sqlText, Failure: &Failure{Kind: FailureExecution, Err: err}}
	}
	observability.ObserveExecute(time.Since(executeStart), len(result.Rows))

	return Outcome{
		Answer: Format(result),
		Stage:  StageDone,
		SQL:    sqlText,
		Rows:   len(result.Rows),
	}
}

func (a *Agent) generate(ctx context.Context, prompt string) (raw string, err error) {
	defer recoverStage(StageGenerate, &err)
	if a.Generator == nil {
		return "", errors.New("generator is not configured")
	}
	ctx, cancel := withOptionalTimeout(ctx, a.GenerateTimeout)
	defer cancel()
	return a.Generator.Generate(ctx, prompt)
}

func (a *Agent) execute(ctx context.Context, sqlText string) (result query.ResultSet, err error) {
	defer recoverStage(StageExecute, &err)
	if a.Guard != nil {
		if err := a.Guard(sqlText); err != nil {
			return query.ResultSet{}, err
		}
	}
	if a.Executor == nil {
		return query.ResultSet{}, errors.New("executor is not configured")
	}
	ctx, cancel := withOptionalTimeout(ctx, a.ExecuteTimeout)
	defer cancel()
	return a.Executor.Execute(ctx, sqlText)
}

func (a *Agent) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failureText is the only place a Failure becomes user-facing text.
func failureText(f *Failure) string {
	switch f.Kind {
	case FailureGeneration:
		return GenerationUnavailableMessage
	case FailureNoQuery:
		return NoQueryFoundMessage
	default:
		return executionErrorPrefix + executionMessage(f.Err)
	}
}

func executionMessage(err error) string {
	var execErr *query.ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Message
	}
	if err == nil {
		return "unknown error"
	}
	return err.Error()
}

func recoverStage(stage Stage, err *error) {
	if recovered := recover(); recovered != nil {
		*err = fmt.Errorf("%s panicked: %v", stage, recovered)
	}
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
