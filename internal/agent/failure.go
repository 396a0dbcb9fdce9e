package agent

import "fmt"

type FailureKind string

const (
	FailureGeneration FailureKind = "generation_failed"
	FailureNoQuery    FailureKind = "no_query_found"
	FailureExecution  FailureKind = "execution_failed"
)

// Failure is the tagged reason an answer could not be produced.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	if f == nil {
		return ""
	}
	if f.Err == nil {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}
