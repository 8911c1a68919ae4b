package llm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// funcAdapter is a test double for ProviderAdapter.
type funcAdapter struct {
	name string
	fn   func(ctx context.Context, req Request) (*Response, error)
}

func (f *funcAdapter) Name() string { return f.name }

func (f *funcAdapter) Generate(ctx context.Context, req Request) (*Response, error) {
	return f.fn(ctx, req)
}

func textAdapter(name, text string) *funcAdapter {
	return &funcAdapter{name: name, fn: func(ctx context.Context, req Request) (*Response, error) {
		resp := TextResponse(text)
		resp.Provider = name
		return resp, nil
	}}
}

func TestClientGenerate(t *testing.T) {
	client := NewClient(WithProvider("test-provider", textAdapter("test-provider", "Hello!")))

	resp, err := client.Generate(context.Background(), Request{
		Messages: []Message{UserMessage("Hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Hello!" {
		t.Errorf("expected text %q, got %q", "Hello!", resp.Text())
	}
	if resp.Provider != "test-provider" {
		t.Errorf("expected provider %q, got %q", "test-provider", resp.Provider)
	}
}

func TestClientProviderRouting(t *testing.T) {
	client := NewClient(
		WithProvider("openai", textAdapter("openai", "OpenAI response")),
		WithProvider("anthropic", textAdapter("anthropic", "Anthropic response")),
		WithDefaultProvider("openai"),
	)

	resp, err := client.Generate(context.Background(), Request{
		Messages: []Message{UserMessage("Hi")},
		Provider: "anthropic",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Anthropic response" {
		t.Errorf("expected Anthropic response, got %q", resp.Text())
	}

	resp, err = client.Generate(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "OpenAI response" {
		t.Errorf("expected OpenAI response, got %q", resp.Text())
	}
}

func TestClientNoProvider(t *testing.T) {
	client := NewClient()
	_, err := client.Generate(context.Background(), Request{Messages: []Message{UserMessage("Hi")}})
	if err == nil {
		t.Fatal("expected error for no provider")
	}
	if CategoryOf(err) != CategoryConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestClientUnknownProvider(t *testing.T) {
	client := NewClient(WithProvider("openai", textAdapter("openai", "x")))
	_, err := client.Generate(context.Background(), Request{Provider: "nope"})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GatewayError, got %T", err)
	}
	if ge.Retryable {
		t.Error("configuration errors must not be retryable")
	}
}

func TestClientMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(ctx context.Context, req Request, next GenerateFunc) (*Response, error) {
			order = append(order, name+":before")
			resp, err := next(ctx, req)
			order = append(order, name+":after")
			return resp, err
		}
	}

	client := NewClient(
		WithProvider("p", textAdapter("p", "ok")),
		WithMiddleware(mw("first"), mw("second")),
	)
	if _, err := client.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"first:before", "second:before", "second:after", "first:after"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestClientSetsProviderOnRequest(t *testing.T) {
	var seen string
	adapter := &funcAdapter{name: "p", fn: func(ctx context.Context, req Request) (*Response, error) {
		seen = req.Provider
		return TextResponse("ok"), nil
	}}
	client := NewClient(WithProvider("p", adapter))
	if _, err := client.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "p" {
		t.Errorf("expected provider %q on request, got %q", "p", seen)
	}
}

func TestRateLimitMiddlewareCancelled(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	client := NewClient(
		WithProvider("p", textAdapter("p", "ok")),
		WithMiddleware(RateLimitMiddleware(limiter)),
	)

	if _, err := client.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Generate(ctx, Request{})
	if CategoryOf(err) != CategoryAborted {
		t.Fatalf("expected aborted error while waiting for limiter, got %v", err)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	failing := &funcAdapter{name: "p", fn: func(ctx context.Context, req Request) (*Response, error) {
		return nil, ErrorFromStatusCode(429, "slow down", "p", nil)
	}}
	client := NewClient(WithProvider("p", failing), WithMiddleware(LoggingMiddleware(logger)))

	if _, err := client.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	out := buf.String()
	if !strings.Contains(out, `"category":"rate_limit"`) {
		t.Errorf("expected category in log output, got %s", out)
	}
	if !strings.Contains(out, `"message":"model generate"`) {
		t.Errorf("expected log message, got %s", out)
	}
}

type closingAdapter struct {
	*funcAdapter
	err    error
	closed bool
}

func (c *closingAdapter) Close() error {
	c.closed = true
	return c.err
}

func TestClientCloseJoinsErrors(t *testing.T) {
	ok := &closingAdapter{funcAdapter: textAdapter("a", "x")}
	bad := &closingAdapter{funcAdapter: textAdapter("b", "y"), err: errors.New("socket busy")}
	client := NewClient(
		WithProvider("a", ok),
		WithProvider("b", bad),
		WithProvider("plain", textAdapter("plain", "z")),
	)

	err := client.Close()
	if !ok.closed || !bad.closed {
		t.Fatal("every closer must be closed")
	}
	if err == nil || !strings.Contains(err.Error(), "close provider b: socket busy") {
		t.Errorf("expected joined close error, got %v", err)
	}
}
