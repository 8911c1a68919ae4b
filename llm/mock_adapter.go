package llm

import (
	"context"
	"strings"
	"sync"
)

// MockAdapter is an offline provider. With no script it answers every request
// with "Echo: " followed by the last user message; with a script it replays
// the scripted replies in order and repeats the last one once exhausted.
type MockAdapter struct {
	script   []*Response
	next     int
	requests []Request
	mu       sync.Mutex
}

var _ ProviderAdapter = (*MockAdapter)(nil)

// NewMockAdapter creates a MockAdapter that replays script.
func NewMockAdapter(script ...*Response) *MockAdapter {
	return &MockAdapter{script: script}
}

// Name returns "mock".
func (m *MockAdapter) Name() string { return "mock" }

// Generate records the request and returns the next scripted reply.
func (m *MockAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, ClassifyError(m.Name(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)

	if len(m.script) == 0 {
		resp := TextResponse("Echo: " + lastUserText(req.Messages))
		resp.Provider = m.Name()
		return resp, nil
	}
	idx := m.next
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	} else {
		m.next++
	}
	resp := *m.script[idx]
	resp.Provider = m.Name()
	return &resp, nil
}

// Requests returns a copy of every request seen so far.
func (m *MockAdapter) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func lastUserText(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return strings.TrimSpace(messages[i].TextContent())
		}
	}
	return ""
}
