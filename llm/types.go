package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
)

// ContentKind is the discriminator tag for ContentPart.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentToolCall ContentKind = "tool_call"
)

// ToolCallData is a model-initiated function call.
type ToolCallData struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ContentPart is a tagged union representing one part of a message.
type ContentPart struct {
	Kind     ContentKind   `json:"kind"`
	Text     string        `json:"text,omitempty"`
	ToolCall *ToolCallData `json:"tool_call,omitempty"`
}

// TextPart creates a text ContentPart.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ToolCallPart creates a tool call ContentPart.
func ToolCallPart(id, name string, args json.RawMessage) ContentPart {
	return ContentPart{
		Kind:     ContentToolCall,
		ToolCall: &ToolCallData{ID: id, Name: name, Arguments: args},
	}
}

// Message is the canonical role+parts unit exchanged with a provider.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentPart `json:"content"`
}

// TextContent returns the concatenation of all text content parts.
func (m Message) TextContent() string {
	var sb strings.Builder
	for _, part := range m.Content {
		if part.Kind == ContentText {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// ToolCalls extracts all tool call data from the message content, in order.
func (m Message) ToolCalls() []ToolCallData {
	var calls []ToolCallData
	for _, part := range m.Content {
		if part.Kind == ContentToolCall && part.ToolCall != nil {
			calls = append(calls, *part.ToolCall)
		}
	}
	return calls
}

// SystemMessage creates a system Message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextPart(text)}}
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextPart(text)}}
}

// ModelMessage creates a model Message with text content.
func ModelMessage(text string) Message {
	return Message{Role: RoleModel, Content: []ContentPart{TextPart(text)}}
}

// ToolDeclaration advertises one callable tool to the model. Parameters is a
// JSON Schema object.
type ToolDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the input to Gateway.Generate.
type Request struct {
	Model       string            `json:"model,omitempty"`
	Provider    string            `json:"provider,omitempty"`
	System      string            `json:"system,omitempty"`
	Messages    []Message         `json:"messages"`
	Tools       []ToolDeclaration `json:"tools,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	MaxTokens   *int              `json:"max_tokens,omitempty"`
}

// FinishReason describes why generation stopped.
type FinishReason struct {
	Reason string `json:"reason"` // "stop", "length", "tool_calls", "error", "other"
	Raw    string `json:"raw,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}

// Response is the output of Generate.
type Response struct {
	ID           string       `json:"id"`
	Model        string       `json:"model"`
	Provider     string       `json:"provider"`
	Message      Message      `json:"message"`
	FinishReason FinishReason `json:"finish_reason"`
	Usage        Usage        `json:"usage"`
}

// Text returns the concatenated text from all text parts in the reply.
func (r Response) Text() string {
	return r.Message.TextContent()
}

// ToolCalls returns the structured tool calls carried by the reply.
func (r Response) ToolCalls() []ToolCallData {
	return r.Message.ToolCalls()
}

// TextResponse builds a reply consisting of a single text part.
func TextResponse(text string) *Response {
	return &Response{
		Message:      Message{Role: RoleModel, Content: []ContentPart{TextPart(text)}},
		FinishReason: FinishReason{Reason: "stop"},
	}
}

// Float64 returns a pointer to v, for optional request fields.
func Float64(v float64) *float64 { return &v }

// Int returns a pointer to v, for optional request fields.
func Int(v int) *int { return &v }
