package agentloop

import "fmt"

// ToolNotFoundError is returned when a call names a tool that is not
// registered.
type ToolNotFoundError struct {
	Name       string
	Suggestion string // closest registered name, if any
}

func (e *ToolNotFoundError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("ToolNotFound: no tool named %q is registered (did you mean %q?)", e.Name, e.Suggestion)
	}
	return fmt.Sprintf("ToolNotFound: no tool named %q is registered", e.Name)
}

// ToolExecutionError wraps any failure raised while invoking a tool,
// including argument validation failures.
type ToolExecutionError struct {
	Tool string
	Err  error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("ToolExecutionError: %s: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// MalformedModelOutputError records model output that looked like a tool
// call but could not be decoded. The interpreter absorbs it; it is only
// surfaced for logging.
type MalformedModelOutputError struct {
	Raw string
	Err error
}

func (e *MalformedModelOutputError) Error() string {
	return fmt.Sprintf("MalformedModelOutput: %v", e.Err)
}

func (e *MalformedModelOutputError) Unwrap() error {
	return e.Err
}
