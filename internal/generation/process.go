package generation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

type ProcessConfig struct {
	Command string
	Model   string
	Timeout time.Duration
}

type runFunc func(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)

// ProcessGenerator runs a local model runner as `<command> run <model> <prompt>`
// and returns its standard output.
type ProcessGenerator struct {
	command string
	model   string
	timeout time.Duration
	run     runFunc
}

func NewProcessGenerator(cfg ProcessConfig) (*ProcessGenerator, error) {
	command := strings.TrimSpace(cfg.Command)
	if command == "" {
		command = "ollama"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	return &ProcessGenerator{
		command: command,
		model:   model,
		timeout: cfg.Timeout,
		run:     runCommand,
	}, nil
}

func (g *ProcessGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	stdout, stderr, err := g.run(ctx, g.command, []string{"run", g.model, prompt})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &Error{Backend: BackendProcess, Err: fmt.Errorf("%s run %s: %w", g.command, g.model, ctxErr)}
		}
		detail := strings.TrimSpace(string(stderr))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return "", &Error{Backend: BackendProcess, Err: fmt.Errorf("%s run %s: %w", g.command, g.model, err)}
	}
	return string(stdout), nil
}

func runCommand(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		err = fmt.Errorf("exit status %d", exitErr.ExitCode())
	}
	return stdout.Bytes(), stderr.Bytes(), err
}
