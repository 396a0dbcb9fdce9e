package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fedask/fedask/internal/generation"
	"github.com/fedask/fedask/internal/query"
)

type fakeGenerator struct {
	output string
	err    error
	panic  any
	prompt string
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.panic != nil {
		panic(f.panic)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

type fakeExecutor struct {
	result query.ResultSet
	err    error
	panic  any
	wait   bool
	sql    []string
}

func (f *fakeExecutor) Execute(ctx context.Context, sqlText string) (query.ResultSet, error) {
	f.sql = append(f.sql, sqlText)
	if f.panic != nil {
		panic(f.panic)
	}
	if f.wait {
		<-ctx.Done()
		return query.ResultSet{}, query.NewExecutionError(ctx.Err())
	}
	if f.err != nil {
		return query.ResultSet{}, f.err
	}
	return f.result, nil
}

func TestAnswerHappyPath(t *testing.T) {
	gen := &fakeGenerator{output: "```sql\nSELECT title FROM documents LIMIT 1\n```"}
	exec := &fakeExecutor{result: query.ResultSet{Columns: []string{"title"}, Rows: [][]any{{"Executive Order 14110"}}}}
	a := &Agent{Generator: gen, Executor: exec}

	got := a.Answer(context.Background(), "What is the newest document?")
	if got != "Executive Order 14110" {
		t.Fatalf("Answer() = %q", got)
	}
	if len(exec.sql) != 1 || exec.sql[0] != "SELECT title FROM documents LIMIT 1" {
		t.Fatalf("executed sql = %#v", exec.sql)
	}
	if !strings.HasPrefix(gen.prompt, DocumentsSchema) {
		t.Fatal("expected default schema in prompt")
	}
	if !strings.Contains(gen.prompt, "What is the newest document?") {
		t.Fatalf("prompt missing question: %q", gen.prompt)
	}
}

func TestRunReportsOutcome(t *testing.T) {
	a := &Agent{
		Schema:    "custom schema",
		Generator: &fakeGenerator{output: "```\nSELECT id, title FROM documents\n```"},
		Executor: &fakeExecutor{result: query.ResultSet{
			Columns: []string{"id", "title"},
			Rows:    [][]any{{int64(1), "X"}, {int64(2), "Y"}},
		}},
	}

	outcome := a.Run(context.Background(), "list")
	if outcome.Answer != "1, X\n2, Y" {
		t.Fatalf("Answer = %q", outcome.Answer)
	}
	if outcome.Stage != StageDone || outcome.Status() != StatusOK {
		t.Fatalf("Stage/Status = %s/%s", outcome.Stage, outcome.Status())
	}
	if outcome.SQL != "SELECT id, title FROM documents" || outcome.Rows != 2 {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestAnswerIsIdempotent(t *testing.T) {
	a := &Agent{
		Generator: &fakeGenerator{output: "```sql\nSELECT title FROM documents\n```"},
		Executor:  &fakeExecutor{result: query.ResultSet{Columns: []string{"title"}, Rows: [][]any{{"A"}, {"B"}}}},
	}
	first := a.Answer(context.Background(), "q")
	second := a.Answer(context.Background(), "q")
	if first != second || first != "A, B" {
		t.Fatalf("answers = %q / %q", first, second)
	}
}

func TestAnswerGenerationFailure(t *testing.T) {
	exec := &fakeExecutor{}
	a := &Agent{
		Generator: &fakeGenerator{err: &generation.Error{Backend: "process", Err: errors.New("connection refused")}},
		Executor:  exec,
	}

	outcome := a.Run(context.Background(), "q")
	if outcome.Answer != GenerationUnavailableMessage {
		t.Fatalf("Answer = %q", outcome.Answer)
	}
	if outcome.Stage != StageGenerate || outcome.Status() != string(FailureGeneration) {
		t.Fatalf("Stage/Status = %s/%s", outcome.Stage, outcome.Status())
	}
	var genErr *generation.Error
	if !errors.As(outcome.Failure, &genErr) {
		t.Fatalf("Failure = %v, want wrapped *generation.Error", outcome.Failure)
	}
	if len(exec.sql) != 0 {
		t.Fatal("executor should not run after generation failure")
	}
}

func TestAnswerNoQueryFound(t *testing.T) {
	exec := &fakeExecutor{}
	a := &Agent{Generator: &fakeGenerator{output: "I am not sure what you mean."}, Executor: exec}

	outcome := a.Run(context.Background(), "q")
	if outcome.Answer != NoQueryFoundMessage {
		t.Fatalf("Answer = %q", outcome.Answer)
	}
	if outcome.Failure == nil || outcome.Failure.Kind != FailureNoQuery {
		t.Fatalf("Failure = %v", outcome.Failure)
	}
	if !errors.Is(outcome.Failure, ErrNoQueryFound) {
		t.Fatalf("Failure = %v, want ErrNoQueryFound", outcome.Failure)
	}
	if len(exec.sql) != 0 {
		t.Fatal("executor should not run without a query")
	}
}

func TestAnswerEmptyGenerationIsNoQuery(t *testing.T) {
	a := &Agent{Generator: &fakeGenerator{output: ""}, Executor: &fakeExecutor{}}
	if got := a.Answer(context.Background(), "q"); got != NoQueryFoundMessage {
		t.Fatalf("Answer() = %q", got)
	}
}

func TestAnswerExecutionFailure(t *testing.T) {
	a := &Agent{
		Generator: &fakeGenerator{output: "```sql\nSELEC title FROM documents\n```"},
		Executor:  &fakeExecutor{err: &query.ExecutionError{Message: "You have an error in your SQL syntax"}},
	}

	outcome := a.Run(context.Background(), "q")
	if outcome.Answer != "Error executing SQL: You have an error in your SQL syntax" {
		t.Fatalf("Answer = %q", outcome.Answer)
	}
	if outcome.Stage != StageExecute || outcome.SQL != "SELEC title FROM documents" {
		t.Fatalf("outcome = %+v", outcome)
	}
}

func TestAnswerNoResults(t *testing.T) {
	a := &Agent{
		Generator: &fakeGenerator{output: "```sql\nSELECT title FROM documents WHERE 1 = 0\n```"},
		Executor:  &fakeExecutor{result: query.ResultSet{Columns: []string{"title"}}},
	}
	if got := a.Answer(context.Background(), "q"); got != NoResultsMessage {
		t.Fatalf("Answer() = %q", got)
	}
}

func TestAnswerRecoversCollaboratorPanics(t *testing.T) {
	a := &Agent{Generator: &fakeGenerator{panic: "boom"}, Executor: &fakeExecutor{}}
	if got := a.Answer(context.Background(), "q"); got != GenerationUnavailableMessage {
		t.Fatalf("Answer() after generator panic = %q", got)
	}

	a = &Agent{
		Generator: &fakeGenerator{output: "```sql\nSELECT 1\n```"},
		Executor:  &fakeExecutor{panic: errors.New("driver exploded")},
	}
	got := a.Answer(context.Background(), "q")
	if !strings.HasPrefix(got, "Error executing SQL: ") || !strings.Contains(got, "driver exploded") {
		t.Fatalf("Answer() after executor panic = %q", got)
	}
}

func TestAnswerExecuteTimeout(t *testing.T) {
	a := &Agent{
		Generator:      &fakeGenerator{output: "```sql\nSELECT SLEEP(10)\n```"},
		Executor:       &fakeExecutor{wait: true},
		ExecuteTimeout: 10 * time.Millisecond,
	}
	outcome := a.Run(context.Background(), "q")
	if outcome.Stage != StageExecute {
		t.Fatalf("Stage = %s", outcome.Stage)
	}
	if outcome.Answer != "Error executing SQL: context deadline exceeded" {
		t.Fatalf("Answer = %q", outcome.Answer)
	}
}

func TestAnswerGuardRejectsBeforeExecution(t *testing.T) {
	exec := &fakeExecutor{}
	a := &Agent{
		Generator: &fakeGenerator{output: "```sql\nDROP TABLE documents\n```"},
		Executor:  exec,
		Guard:     ReadOnlyGuard,
	}
	got := a.Answer(context.Background(), "delete everything")
	if got != "Error executing SQL: "+ErrStatementNotAllowed.Error() {
		t.Fatalf("Answer() = %q", got)
	}
	if len(exec.sql) != 0 {
		t.Fatal("guarded statement should not reach the executor")
	}
}

func TestAnswerWithoutCollaborators(t *testing.T) {
	if got := (&Agent{}).Answer(context.Background(), "q"); got != GenerationUnavailableMessage {
		t.Fatalf("Answer() = %q", got)
	}
	a := &Agent{Generator: &fakeGenerator{output: "```SELECT 1```"}}
	if got := a.Answer(context.Background(), "q"); got != "Error executing SQL: executor is not configured" {
		t.Fatalf("Answer() = %q", got)
	}
}
