package llm

import (
	"context"
	"testing"
)

func TestMockAdapterEcho(t *testing.T) {
	client := NewClient(WithProvider("mock", NewMockAdapter()))
	resp, err := client.Generate(context.Background(), Request{
		Messages: []Message{UserMessage("first"), ModelMessage("ignored"), UserMessage("  second  ")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Echo: second" {
		t.Errorf("expected %q, got %q", "Echo: second", resp.Text())
	}
	if resp.Provider != "mock" {
		t.Errorf("expected provider mock, got %q", resp.Provider)
	}
}

func TestMockAdapterScript(t *testing.T) {
	mock := NewMockAdapter(TextResponse("one"), TextResponse("two"))
	ctx := context.Background()

	want := []string{"one", "two", "two"}
	for i, w := range want {
		resp, err := mock.Generate(ctx, Request{})
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if resp.Text() != w {
			t.Errorf("call %d: expected %q, got %q", i, w, resp.Text())
		}
	}
	if n := len(mock.Requests()); n != 3 {
		t.Errorf("expected 3 recorded requests, got %d", n)
	}
}

func TestMockAdapterCancelled(t *testing.T) {
	mock := NewMockAdapter()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Generate(ctx, Request{})
	if CategoryOf(err) != CategoryAborted {
		t.Fatalf("expected aborted error, got %v", err)
	}
	if len(mock.Requests()) != 0 {
		t.Error("cancelled requests must not be recorded")
	}
}
