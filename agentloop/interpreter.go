package agentloop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/martinemde/astra/llm"
)

// ReplySource records which rule produced a ParsedReply.
type ReplySource string

const (
	SourceStructured ReplySource = "structured"
	SourceConvention ReplySource = "convention"
	SourceNarration  ReplySource = "narration"
)

// ParsedReply is a model reply split into narration and tool calls.
type ParsedReply struct {
	Narration string
	ToolCalls []ToolCallRequest
	Source    ReplySource

	// Malformed holds an absorbed decoding problem, for logging only.
	Malformed error
}

// HasToolCalls reports whether the reply requests any tool invocation.
func (p ParsedReply) HasToolCalls() bool { return len(p.ToolCalls) > 0 }

// Interpret parses a gateway reply. Structured tool_call parts take
// precedence; a reply without them is parsed with InterpretText. It never
// panics and never fails.
func Interpret(resp *llm.Response) ParsedReply {
	if resp == nil {
		return ParsedReply{Source: SourceNarration}
	}
	calls := resp.ToolCalls()
	if len(calls) == 0 {
		return InterpretText(resp.Text())
	}

	parsed := ParsedReply{
		Narration: strings.TrimSpace(resp.Text()),
		ToolCalls: make([]ToolCallRequest, 0, len(calls)),
		Source:    SourceStructured,
	}
	var problems []error
	for _, tc := range calls {
		args, err := decodeArgs(tc.Arguments)
		if err != nil {
			problems = append(problems, &MalformedModelOutputError{
				Raw: string(tc.Arguments),
				Err: fmt.Errorf("arguments for %s: %w", tc.Name, err),
			})
		}
		parsed.ToolCalls = append(parsed.ToolCalls, ToolCallRequest{
			ID:       tc.ID,
			ToolName: tc.Name,
			Args:     args,
		})
	}
	parsed.Malformed = errors.Join(problems...)
	return parsed
}

// InterpretText parses a plain-text reply. Text that, once trimmed, is a JSON
// object with a "tool" key becomes exactly one call; anything else is
// narration. A non-string tool value is kept in its printed form so the call
// fails as an unknown tool and the model sees why.
func InterpretText(text string) ParsedReply {
	trimmed := strings.TrimSpace(text)
	narration := ParsedReply{Narration: trimmed, Source: SourceNarration}
	if !strings.HasPrefix(trimmed, "{") {
		return narration
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
		narration.Malformed = &MalformedModelOutputError{Raw: trimmed, Err: err}
		return narration
	}
	tool, ok := obj["tool"]
	if !ok {
		return narration
	}
	name, isString := tool.(string)
	if !isString {
		name = fmt.Sprint(tool)
	}

	args := map[string]any{}
	var malformed error
	switch raw := obj["args"].(type) {
	case nil:
	case map[string]any:
		args = raw
	default:
		malformed = &MalformedModelOutputError{
			Raw: trimmed,
			Err: fmt.Errorf("args for %s is %T, not an object", name, raw),
		}
	}

	return ParsedReply{
		ToolCalls: []ToolCallRequest{{ToolName: name, Args: args}},
		Source:    SourceConvention,
		Malformed: malformed,
	}
}

func decodeArgs(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{}, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
