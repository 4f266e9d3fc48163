package agentloop

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Each typed error below matches its sentinel.
var (
	ErrToolNotFound          = errors.New("tool not found")
	ErrToolExecution         = errors.New("tool execution failed")
	ErrParamsNotMatched      = errors.New("tool parameters do not match")
	ErrLLMExecution          = errors.New("llm execution failed")
	ErrMaxIterationsExceeded = errors.New("maximum iterations exceeded")
)

// ToolNotFoundError reports a tool call naming no registered tool.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

func (e *ToolNotFoundError) Is(target error) bool { return target == ErrToolNotFound }

// ParamsNotMatchedError reports arguments that could not be decoded into
// what the tool expects. It reaches callers wrapped in a ToolExecutionError.
type ParamsNotMatchedError struct {
	Tool  string
	Cause error
}

func (e *ParamsNotMatchedError) Error() string {
	return fmt.Sprintf("tool parameters do not match for %s: %v", e.Tool, e.Cause)
}

func (e *ParamsNotMatchedError) Unwrap() error { return e.Cause }

func (e *ParamsNotMatchedError) Is(target error) bool { return target == ErrParamsNotMatched }

// ToolExecutionError reports a tool that ran and failed.
type ToolExecutionError struct {
	Name   string
	Reason string
	Cause  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool execution error in '%s': %s", e.Name, e.Reason)
}

func (e *ToolExecutionError) Unwrap() error { return e.Cause }

func (e *ToolExecutionError) Is(target error) bool { return target == ErrToolExecution }

func newToolExecutionError(name string, err error) *ToolExecutionError {
	return &ToolExecutionError{Name: name, Reason: err.Error(), Cause: err}
}

// LLMExecutionError reports a failed generation call. The backend error is
// kept as the cause.
type LLMExecutionError struct {
	Cause error
}

func (e *LLMExecutionError) Error() string {
	return fmt.Sprintf("llm error: %v", e.Cause)
}

func (e *LLMExecutionError) Unwrap() error { return e.Cause }

func (e *LLMExecutionError) Is(target error) bool { return target == ErrLLMExecution }

// MaxIterationsExceededError reports a run that used its whole loop bound
// without a final answer.
type MaxIterationsExceededError struct {
	Max int
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("maximum iterations exceeded: %d", e.Max)
}

func (e *MaxIterationsExceededError) Is(target error) bool {
	return target == ErrMaxIterationsExceeded
}
