package llm

import (
	"cmp"
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/teilomillet/gollm"
)

// providerDefaultModels fills in the model when a provider is configured
// without one.
var providerDefaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-sonnet-4-5-20250514",
	"groq":      "llama-3.3-70b-versatile",
	"ollama":    "llama3.1",
}

const defaultGollmMaxTokens = 2048

// GollmConfig describes one gollm-backed provider.
type GollmConfig struct {
	Provider    string
	APIKey      string // empty: gollm reads the provider's own variable
	Model       string // empty: the provider's default model
	MaxTokens   int
	Temperature float64
	Extra       []gollm.ConfigOption
}

// GollmAdapter serves requests through github.com/teilomillet/gollm.
//
// gollm keeps model, temperature and token limits on the LLM instance, so
// per-request overrides are applied under a lock for the duration of the
// call.
type GollmAdapter struct {
	provider string
	model    string

	mu  sync.Mutex
	llm gollm.LLM
}

var _ ProviderAdapter = (*GollmAdapter)(nil)

// NewGollmAdapter builds an adapter for cfg.Provider. A provider without a
// configured or default model is a configuration error.
func NewGollmAdapter(cfg GollmConfig) (*GollmAdapter, error) {
	model := cmp.Or(cfg.Model, providerDefaultModels[cfg.Provider])
	if model == "" {
		return nil, newGatewayError(CategoryConfiguration, cfg.Provider, 0,
			"no model configured and the provider has no default", nil)
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(model),
		gollm.SetMaxTokens(cmp.Or(cfg.MaxTokens, defaultGollmMaxTokens)),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0), // RetryMiddleware owns retries
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}
	opts = append(opts, cfg.Extra...)

	inst, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, newGatewayError(CategoryConfiguration, cfg.Provider, 0, "create gollm client: "+err.Error(), err)
	}
	return NewGollmAdapterFromLLM(cfg.Provider, model, inst), nil
}

// NewGollmAdapterFromLLM wraps an already configured gollm.LLM.
func NewGollmAdapterFromLLM(provider, model string, inst gollm.LLM) *GollmAdapter {
	return &GollmAdapter{provider: provider, model: model, llm: inst}
}

func (a *GollmAdapter) Name() string { return a.provider }

func (a *GollmAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	prompt := buildGollmPrompt(req)

	a.mu.Lock()
	if req.Model != "" {
		a.llm.SetOption("model", req.Model)
	}
	if req.Temperature != nil {
		a.llm.SetOption("temperature", *req.Temperature)
	}
	if req.MaxTokens != nil {
		a.llm.SetOption("max_tokens", *req.MaxTokens)
	}
	text, err := a.llm.Generate(ctx, prompt)
	a.mu.Unlock()

	if err != nil {
		return nil, ClassifyError(a.provider, err)
	}
	return a.toResponse(req, text), nil
}

// buildGollmPrompt flattens a request into one gollm prompt. gollm takes a
// single input string, so model turns stay inline behind a role label and
// system messages join the system prompt.
func buildGollmPrompt(req Request) *gollm.Prompt {
	var system []string
	if req.System != "" {
		system = append(system, req.System)
	}

	var input strings.Builder
	for _, m := range req.Messages {
		text := m.TextContent()
		if text == "" {
			continue
		}
		switch m.Role {
		case RoleSystem:
			system = append(system, text)
			continue
		case RoleModel:
			text = "[Assistant]: " + text
		}
		if input.Len() > 0 {
			input.WriteString("\n\n")
		}
		input.WriteString(text)
	}
	if input.Len() == 0 {
		input.WriteString("Continue.")
	}

	var opts []gollm.PromptOption
	if len(system) > 0 {
		opts = append(opts, gollm.WithSystemPrompt(strings.Join(system, "\n\n"), gollm.CacheTypeEphemeral))
	}
	if req.MaxTokens != nil {
		opts = append(opts, gollm.WithMaxLength(*req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		opts = append(opts, gollm.WithTools(gollmTools(req.Tools)), gollm.WithToolChoice("auto"))
	}
	return gollm.NewPrompt(input.String(), opts...)
}

func gollmTools(decls []ToolDeclaration) []gollm.Tool {
	out := make([]gollm.Tool, len(decls))
	for i, d := range decls {
		out[i] = gollm.Tool{
			Type: "function",
			Function: gollm.Function{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		}
	}
	return out
}

// toResponse converts gollm's text reply. Native function calls that gollm
// serialises into the text become tool_call parts.
func (a *GollmAdapter) toResponse(req Request, text string) *Response {
	calls, narration := extractNativeCalls(text)

	msg := Message{Role: RoleModel}
	if narration != "" || len(calls) == 0 {
		msg.Content = append(msg.Content, TextPart(narration))
	}
	for i := range calls {
		msg.Content = append(msg.Content, ContentPart{Kind: ContentToolCall, ToolCall: &calls[i]})
	}

	finish := "stop"
	if len(calls) > 0 {
		finish = "tool_calls"
	}

	// gollm reports no usage; approximate four characters per token.
	in, out := estimateTokens(req), len(text)/4
	return &Response{
		ID:           "resp_" + uuid.NewString()[:8],
		Model:        cmp.Or(req.Model, a.model),
		Provider:     a.provider,
		Message:      msg,
		FinishReason: FinishReason{Reason: finish, Raw: finish},
		Usage:        Usage{InputTokens: in, OutputTokens: out, TotalTokens: in + out},
	}
}

// wireCall accepts both {"name", "arguments"} and the OpenAI
// {"function": {"name", "arguments"}} shapes.
type wireCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Function  *wireCall       `json:"function,omitempty"`
}

// extractNativeCalls finds a {"tool_calls": [...]} envelope or a bare
// [{"name": ...}] array in text. It returns the calls and the text before the
// JSON as narration; text without a decodable block is returned unchanged.
func extractNativeCalls(text string) ([]ToolCallData, string) {
	var (
		raw []wireCall
		at  int
	)
	if at = strings.Index(text, `{"tool_calls"`); at >= 0 {
		var envelope struct {
			ToolCalls []wireCall `json:"tool_calls"`
		}
		if json.NewDecoder(strings.NewReader(text[at:])).Decode(&envelope) != nil {
			return nil, text
		}
		raw = envelope.ToolCalls
	} else if at = strings.Index(text, `[{"name"`); at >= 0 {
		if json.NewDecoder(strings.NewReader(text[at:])).Decode(&raw) != nil {
			return nil, text
		}
	} else {
		return nil, text
	}

	calls := make([]ToolCallData, 0, len(raw))
	for _, c := range raw {
		if c.Function != nil {
			c = *c.Function
		}
		args := c.Arguments
		// OpenAI sends arguments as a JSON string holding the object.
		var encoded string
		if json.Unmarshal(args, &encoded) == nil {
			args = json.RawMessage(encoded)
		}
		calls = append(calls, ToolCallData{
			ID:        "call_" + uuid.NewString()[:8],
			Name:      c.Name,
			Arguments: args,
		})
	}
	return calls, strings.TrimSpace(text[:at])
}

// estimateTokens approximates the prompt size at four characters per token,
// with a floor of 10.
func estimateTokens(req Request) int {
	chars := len(req.System)
	for _, m := range req.Messages {
		chars += len(m.TextContent())
	}
	return max(chars/4, 10)
}
