package llm

import (
	"encoding/json"
	"testing"
)

func TestGollmAdapterName(t *testing.T) {
	// Construction may fail without network-reachable providers; only the
	// name is checked when it succeeds.
	for _, provider := range []string{"openai", "anthropic"} {
		adapter, err := NewGollmAdapter(GollmConfig{Provider: provider, APIKey: "test-key-not-real"})
		if err != nil {
			t.Logf("skipping %s adapter creation: %v", provider, err)
			continue
		}
		if adapter.Name() != provider {
			t.Errorf("expected name %q, got %q", provider, adapter.Name())
		}
	}
}

func TestGollmAdapterUnknownProviderNeedsModel(t *testing.T) {
	_, err := NewGollmAdapter(GollmConfig{Provider: "nonexistent"})
	if CategoryOf(err) != CategoryConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestExtractNativeCallsEnvelope(t *testing.T) {
	text := `Let me check. {"tool_calls":[{"function":{"name":"add","arguments":"{\"a\":2,\"b\":3}"}}]}`
	calls, narration := extractNativeCalls(text)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "add" {
		t.Errorf("expected name add, got %q", calls[0].Name)
	}
	var args map[string]int
	if err := json.Unmarshal(calls[0].Arguments, &args); err != nil {
		t.Fatalf("arguments not decodable: %v", err)
	}
	if args["a"] != 2 || args["b"] != 3 {
		t.Errorf("unexpected arguments %v", args)
	}
	if narration != "Let me check." {
		t.Errorf("expected narration %q, got %q", "Let me check.", narration)
	}
	if calls[0].ID == "" {
		t.Error("expected generated call ID")
	}
}

func TestExtractNativeCallsBareArray(t *testing.T) {
	text := `[{"name":"echo","arguments":{"text":"hi"}},{"name":"noop","arguments":{}}]`
	calls, narration := extractNativeCalls(text)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].Name != "echo" || calls[1].Name != "noop" {
		t.Errorf("calls out of order: %+v", calls)
	}
	if string(calls[0].Arguments) != `{"text":"hi"}` {
		t.Errorf("unexpected arguments %s", calls[0].Arguments)
	}
	if narration != "" {
		t.Errorf("expected empty narration, got %q", narration)
	}
}

func TestExtractNativeCallsPlainText(t *testing.T) {
	tests := []string{
		"The answer is 5.",
		`{"tool": "add", "args": {}}`,
		`{"tool_calls": [broken`,
	}
	for _, text := range tests {
		calls, narration := extractNativeCalls(text)
		if len(calls) != 0 {
			t.Errorf("%q: expected no calls, got %d", text, len(calls))
		}
		if narration != text {
			t.Errorf("%q: expected text preserved, got %q", text, narration)
		}
	}
}

func TestToResponseWithToolCalls(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai", model: "gpt-4o-mini"}
	resp := adapter.toResponse(Request{Messages: []Message{UserMessage("add 2 and 3")}},
		`{"tool_calls":[{"name":"add","arguments":{"a":2,"b":3}}]}`)

	if resp.FinishReason.Reason != "tool_calls" {
		t.Errorf("expected tool_calls finish, got %q", resp.FinishReason.Reason)
	}
	if len(resp.ToolCalls()) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls()))
	}
	if resp.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %q", resp.Model)
	}
	if resp.Message.Role != RoleModel {
		t.Errorf("expected model role, got %q", resp.Message.Role)
	}
}

func TestToResponseText(t *testing.T) {
	adapter := &GollmAdapter{provider: "openai", model: "gpt-4o-mini"}
	resp := adapter.toResponse(Request{Model: "gpt-4o"}, "hello there")
	if resp.Text() != "hello there" {
		t.Errorf("expected text preserved, got %q", resp.Text())
	}
	if resp.Model != "gpt-4o" {
		t.Errorf("expected request model to win, got %q", resp.Model)
	}
	if resp.Usage.TotalTokens != resp.Usage.InputTokens+resp.Usage.OutputTokens {
		t.Errorf("usage does not add up: %+v", resp.Usage)
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := estimateTokens(Request{}); got != 10 {
		t.Errorf("expected floor of 10 for empty request, got %d", got)
	}
	req := Request{
		System:   "0123456789012345", // 16 chars
		Messages: []Message{UserMessage("0123456789012345678901234567890123456789")},
	}
	if got := estimateTokens(req); got != 14 {
		t.Errorf("expected 14, got %d", got)
	}
}

func TestExtractNativeCallsIgnoresTrailingText(t *testing.T) {
	text := `Checking. [{"name":"echo","arguments":{"text":"a"}}] Done.`
	calls, narration := extractNativeCalls(text)
	if len(calls) != 1 || calls[0].Name != "echo" {
		t.Fatalf("expected one echo call, got %+v", calls)
	}
	if narration != "Checking." {
		t.Errorf("expected narration before the JSON, got %q", narration)
	}
}
