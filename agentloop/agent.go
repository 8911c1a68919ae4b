package agentloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/martinemde/astra/llm"
)

// DefaultMaxIterations bounds THINKING/ACTING round trips per run.
const DefaultMaxIterations = 6

// ToolMode selects how tools are offered to the model.
type ToolMode string

const (
	// ToolModeNative advertises tools as function declarations.
	ToolModeNative ToolMode = "native"
	// ToolModeConvention describes tools in the system prompt and expects
	// {"tool": ..., "args": ...} replies.
	ToolModeConvention ToolMode = "convention"
)

// Config holds configuration for an Agent.
type Config struct {
	MaxIterations       int           `json:"max_iterations"`
	ObservationLimit    int           `json:"observation_limit"` // runes per tool result
	Temperature         float64       `json:"temperature"`
	Model               string        `json:"model,omitempty"`
	SystemPrompt        string        `json:"system_prompt,omitempty"`
	ToolMode            ToolMode      `json:"tool_mode"`
	RunTimeout          time.Duration `json:"run_timeout"` // 0 = none
	EnableLoopDetection bool          `json:"enable_loop_detection"`
	LoopDetectionWindow int           `json:"loop_detection_window"`
	WorkingDirectory    string        `json:"working_directory,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:       DefaultMaxIterations,
		ObservationLimit:    DefaultObservationLimit,
		Temperature:         0.2,
		ToolMode:            ToolModeNative,
		LoopDetectionWindow: DefaultLoopDetectionWindow,
	}
}

// Agent runs the bounded think/act loop against a Gateway and a
// ToolRegistry. An Agent may run several tasks; each run owns its own
// Conversation.
type Agent struct {
	gateway  llm.Gateway
	registry *ToolRegistry
	config   Config
	logger   zerolog.Logger
	emitter  *EventEmitter
}

// Option configures an Agent.
type Option func(*agentOptions)

type agentOptions struct {
	config     Config
	logger     zerolog.Logger
	bufferSize int
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *agentOptions) { o.config = cfg }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *agentOptions) { o.logger = logger }
}

// WithEventBufferSize sets the capacity of the event channel.
func WithEventBufferSize(n int) Option {
	return func(o *agentOptions) { o.bufferSize = n }
}

// NewAgent creates an Agent. A nil registry is replaced by an empty one.
func NewAgent(gateway llm.Gateway, registry *ToolRegistry, opts ...Option) *Agent {
	o := agentOptions{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if registry == nil {
		registry = NewToolRegistry()
	}
	if o.config.MaxIterations <= 0 {
		o.config.MaxIterations = DefaultMaxIterations
	}
	if o.config.ToolMode == "" {
		o.config.ToolMode = ToolModeNative
	}
	if o.config.LoopDetectionWindow <= 0 {
		o.config.LoopDetectionWindow = DefaultLoopDetectionWindow
	}

	return &Agent{
		gateway:  gateway,
		registry: registry,
		config:   o.config,
		logger:   o.logger.With().Str("component", "agentloop").Logger(),
		emitter:  NewEventEmitter(o.bufferSize),
	}
}

// Events returns the event channel for the host application.
func (a *Agent) Events() <-chan Event { return a.emitter.Events() }

// Close closes the event channel.
func (a *Agent) Close() {
	if n := a.emitter.Dropped(); n > 0 {
		a.logger.Debug().Int64("dropped", n).Msg("events dropped on a full buffer")
	}
	a.emitter.Close()
}

// ListTools returns the registered tools in registration order.
func (a *Agent) ListTools() []ToolInfo { return a.registry.ListTools() }

// RunOption adjusts a single RunTask call.
type RunOption func(*runOptions)

type runOptions struct {
	maxIterations int
	onNarration   func(string)
}

// WithMaxIterations overrides the iteration bound for one run.
func WithMaxIterations(n int) RunOption {
	return func(o *runOptions) { o.maxIterations = n }
}

// OnNarration registers a callback receiving each narration fragment as soon
// as the model produces it.
func OnNarration(fn func(string)) RunOption {
	return func(o *runOptions) { o.onNarration = fn }
}

// run carries the state of one RunTask call.
type run struct {
	id         string
	opts       runOptions
	conv       *Conversation
	result     RunResult
	signatures []string
	logger     zerolog.Logger
}

// RunTask drives goal through THINKING and ACTING until the model answers
// without tool calls, the iteration bound is reached, or ctx is done.
//
// Exhausted and cancelled runs return a nil error. Gateway failures end the
// run and are returned unmodified with an empty result.
func (a *Agent) RunTask(ctx context.Context, goal string, opts ...RunOption) (RunResult, error) {
	ro := runOptions{maxIterations: a.config.MaxIterations}
	for _, opt := range opts {
		opt(&ro)
	}
	if ro.maxIterations <= 0 {
		ro.maxIterations = DefaultMaxIterations
	}
	if a.config.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.RunTimeout)
		defer cancel()
	}

	runID := uuid.New().String()
	r := &run{
		id:     runID,
		opts:   ro,
		conv:   NewConversation(),
		result: RunResult{RunID: runID},
		logger: a.logger.With().Str("run_id", runID).Logger(),
	}
	r.conv.AppendUser(TaskMessage(goal, ThinkPrompt))

	req := llm.Request{
		Model:       a.config.Model,
		System:      buildSystemPrompt(a.config, a.registry.List()),
		Temperature: llm.Float64(a.config.Temperature),
	}
	if a.config.ToolMode == ToolModeNative {
		req.Tools = a.registry.SchemaForModel()
	}

	a.emitter.Emit(r.id, EventRunStart, map[string]any{
		"goal":           goal,
		"max_iterations": ro.maxIterations,
		"tool_mode":      string(a.config.ToolMode),
	})
	r.logger.Info().
		Int("max_iterations", ro.maxIterations).
		Int("tools", a.registry.Count()).
		Msg("run started")

	for iteration := 1; iteration <= ro.maxIterations; iteration++ {
		// THINKING
		if ctx.Err() != nil {
			return a.cancelled(r), nil
		}
		r.result.Iterations = iteration
		req.Messages = r.conv.ToLLM()

		resp, err := a.gateway.Generate(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return a.cancelled(r), nil
			}
			a.emitter.Emit(r.id, EventError, map[string]any{
				"error":     err.Error(),
				"iteration": iteration,
			})
			r.logger.Error().Err(err).Int("iteration", iteration).Msg("model gateway failed")
			return RunResult{}, err
		}
		r.result.Usage = r.result.Usage.Add(resp.Usage)

		parsed := Interpret(resp)
		if parsed.Malformed != nil {
			a.emitter.Emit(r.id, EventParseFallback, map[string]any{
				"error":  parsed.Malformed.Error(),
				"source": string(parsed.Source),
			})
			r.logger.Debug().Err(parsed.Malformed).Msg("model output partly undecodable")
		}
		if parsed.Narration != "" {
			a.narrate(r, parsed.Narration)
		}

		if !parsed.HasToolCalls() {
			r.result.Status = StatusFinal
			r.result.Text = parsed.Narration
			a.finish(r)
			return r.result, nil
		}
		if parsed.Narration != "" {
			r.conv.AppendModel(parsed.Narration)
		}

		// ACTING
		if ctx.Err() != nil {
			return a.cancelled(r), nil
		}
		r.conv.AppendUser(a.act(ctx, r, parsed.ToolCalls))

		if a.config.EnableLoopDetection && DetectLoop(r.signatures, a.config.LoopDetectionWindow) {
			warning := loopWarning(a.config.LoopDetectionWindow)
			r.conv.AppendUser(warning)
			a.emitter.Emit(r.id, EventLoopDetection, map[string]any{"message": warning})
			r.logger.Warn().Int("window", a.config.LoopDetectionWindow).Msg("tool call loop detected")
		}
	}

	if ctx.Err() != nil {
		return a.cancelled(r), nil
	}
	a.emitter.Emit(r.id, EventIterationLimit, map[string]any{"iterations": r.result.Iterations})
	r.logger.Warn().Int("iterations", r.result.Iterations).Msg("iteration limit reached")
	r.result.Status = StatusExhausted
	r.result.Text = ExhaustedText
	a.finish(r)
	return r.result, nil
}

// act dispatches calls sequentially in request order and returns the
// combined observation message. Tools run on a context detached from run
// cancellation so a cancel never interrupts a tool mid-execution.
func (a *Agent) act(ctx context.Context, r *run, calls []ToolCallRequest) string {
	toolCtx := context.WithoutCancel(ctx)
	lines := make([]string, 0, len(calls))
	for _, call := range calls {
		a.emitter.Emit(r.id, EventToolCallStart, map[string]any{
			"tool_name": call.ToolName,
			"call_id":   call.ID,
			"args":      call.Args,
		})

		start := time.Now()
		outcome := a.registry.Dispatch(toolCtx, call)
		elapsed := time.Since(start)

		end := map[string]any{
			"tool_name": call.ToolName,
			"call_id":   call.ID,
			"duration":  elapsed.String(),
		}
		if outcome.IsError() {
			end["error"] = outcome.Message
			r.logger.Warn().Str("tool", call.ToolName).Str("error", outcome.Message).Dur("duration", elapsed).Msg("tool call failed")
		} else {
			end["output"] = outcome.Result
			r.logger.Debug().Str("tool", call.ToolName).Int("bytes", len(outcome.Result)).Dur("duration", elapsed).Msg("tool call finished")
		}
		a.emitter.Emit(r.id, EventToolCallEnd, end)

		r.signatures = append(r.signatures, toolCallSignature(call))
		lines = append(lines, FormatObservation(call.ToolName, TruncateObservation(outcome.Text(), a.config.ObservationLimit)))
	}
	return strings.Join(lines, "\n")
}

func (a *Agent) narrate(r *run, text string) {
	r.result.Narration = append(r.result.Narration, text)
	a.emitter.Emit(r.id, EventNarration, map[string]any{"text": text})
	if r.opts.onNarration != nil {
		r.opts.onNarration(text)
	}
}

func (a *Agent) cancelled(r *run) RunResult {
	r.result.Status = StatusCancelled
	r.result.Text = CancelledText
	a.emitter.Emit(r.id, EventCancelled, map[string]any{"iterations": r.result.Iterations})
	r.logger.Info().Int("iterations", r.result.Iterations).Msg("run cancelled")
	a.finish(r)
	return r.result
}

func (a *Agent) finish(r *run) {
	a.emitter.Emit(r.id, EventRunEnd, map[string]any{
		"status":     string(r.result.Status),
		"iterations": r.result.Iterations,
	})
	r.logger.Info().
		Str("status", string(r.result.Status)).
		Int("iterations", r.result.Iterations).
		Int("total_tokens", r.result.Usage.TotalTokens).
		Int("messages", r.conv.Len()).
		Msg("run finished")
}

// PlanOnly asks the model for a planning document in a single call. No tool
// schema is sent and no tool is ever executed.
func (a *Agent) PlanOnly(ctx context.Context, goal string) (string, error) {
	req := llm.Request{
		Model:       a.config.Model,
		System:      buildSystemPrompt(Config{SystemPrompt: a.config.SystemPrompt, WorkingDirectory: a.config.WorkingDirectory, Model: a.config.Model}, nil),
		Messages:    []llm.Message{llm.UserMessage(TaskMessage(goal, PlanPrompt))},
		Temperature: llm.Float64(a.config.Temperature),
	}
	resp, err := a.gateway.Generate(ctx, req)
	if err != nil {
		a.logger.Error().Err(err).Msg("plan request failed")
		return "", err
	}
	return strings.TrimSpace(resp.Text()), nil
}

// String describes the agent for logs.
func (a *Agent) String() string {
	return fmt.Sprintf("Agent(mode=%s, max_iterations=%d, tools=[%s])",
		a.config.ToolMode, a.config.MaxIterations, strings.Join(a.registry.Names(), " "))
}
