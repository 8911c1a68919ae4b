package agentloop

import "github.com/martinemde/astra/llm"

// ToolCallRequest is one tool invocation requested by the model.
type ToolCallRequest struct {
	ID       string         `json:"id,omitempty"`
	ToolName string         `json:"tool"`
	Args     map[string]any `json:"args"`
}

// OutcomeTag discriminates a ToolOutcome.
type OutcomeTag string

const (
	OutcomeOk    OutcomeTag = "ok"
	OutcomeError OutcomeTag = "error"
)

// ToolOutcome is the tagged result of dispatching one call. Tool failures are
// carried here as data and never escape the loop as Go errors.
type ToolOutcome struct {
	Tag     OutcomeTag `json:"tag"`
	Result  string     `json:"result,omitempty"`
	Message string     `json:"message,omitempty"`
}

// OkOutcome creates a successful outcome.
func OkOutcome(result string) ToolOutcome {
	return ToolOutcome{Tag: OutcomeOk, Result: result}
}

// ErrorOutcome creates a failed outcome.
func ErrorOutcome(message string) ToolOutcome {
	return ToolOutcome{Tag: OutcomeError, Message: message}
}

// IsError reports whether the outcome is a failure.
func (o ToolOutcome) IsError() bool { return o.Tag == OutcomeError }

// Text returns the result for Ok outcomes and the message for Error outcomes.
func (o ToolOutcome) Text() string {
	if o.IsError() {
		return o.Message
	}
	return o.Result
}

// RunStatus is the terminal state of a run.
type RunStatus string

const (
	StatusFinal     RunStatus = "final"
	StatusExhausted RunStatus = "exhausted"
	StatusCancelled RunStatus = "cancelled"
)

const (
	// ExhaustedText is the Text of a run that hit its iteration bound.
	ExhaustedText = "Reached max iterations without final answer."
	// CancelledText is the Text of a run stopped by its context.
	CancelledText = "Run cancelled before a final answer."
)

// RunResult is the terminal value of RunTask. Exhausted and cancelled runs
// are normal results, not errors.
type RunResult struct {
	RunID      string    `json:"run_id"`
	Status     RunStatus `json:"status"`
	Text       string    `json:"text"`
	Narration  []string  `json:"narration,omitempty"`
	Iterations int       `json:"iterations"`
	Usage      llm.Usage `json:"usage"`
}

// IsFinal reports whether the model produced a final answer.
func (r RunResult) IsFinal() bool { return r.Status == StatusFinal }
