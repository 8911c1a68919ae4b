package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Gateway turns a conversation into a model reply. The call blocks until the
// provider answers or ctx is done.
type Gateway interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ProviderAdapter is the interface every provider backend implements.
type ProviderAdapter interface {
	// Name returns the provider identifier (e.g. "openai", "anthropic", "mock").
	Name() string

	Generate(ctx context.Context, req Request) (*Response, error)
}

// Closer is implemented by adapters that hold resources.
type Closer interface {
	Close() error
}

// GenerateFunc is the downstream handler a Middleware wraps.
type GenerateFunc func(ctx context.Context, req Request) (*Response, error)

// Middleware wraps a provider call.
type Middleware func(ctx context.Context, req Request, next GenerateFunc) (*Response, error)

// Client routes requests to registered provider adapters and applies
// middleware. It implements Gateway.
type Client struct {
	providers       map[string]ProviderAdapter
	defaultProvider string
	middleware      []Middleware
}

var _ Gateway = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithProvider registers a provider adapter.
func WithProvider(name string, adapter ProviderAdapter) ClientOption {
	return func(c *Client) {
		c.providers[name] = adapter
	}
}

// WithDefaultProvider sets the default provider name.
func WithDefaultProvider(name string) ClientOption {
	return func(c *Client) {
		c.defaultProvider = name
	}
}

// WithMiddleware adds middleware to the client. The first registered
// middleware runs outermost.
func WithMiddleware(mw ...Middleware) ClientOption {
	return func(c *Client) {
		c.middleware = append(c.middleware, mw...)
	}
}

// NewClient creates a Client. With exactly one provider and no explicit
// default, that provider becomes the default.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{providers: make(map[string]ProviderAdapter)}
	for _, opt := range opts {
		opt(c)
	}
	if c.defaultProvider == "" && len(c.providers) == 1 {
		for name := range c.providers {
			c.defaultProvider = name
		}
	}
	return c
}

// route picks the adapter for req along with the middleware stack.
func (c *Client) route(req Request) (ProviderAdapter, []Middleware, error) {
	name := req.Provider
	if name == "" {
		name = c.defaultProvider
	}
	if name == "" {
		return nil, nil, newGatewayError(CategoryConfiguration, "", 0, "no provider requested and no default set", nil)
	}
	adapter, ok := c.providers[name]
	if !ok {
		return nil, nil, newGatewayError(CategoryConfiguration, name, 0, fmt.Sprintf("provider %q is not registered", name), nil)
	}
	return adapter, c.middleware, nil
}

// chain wraps final so that mw[0] is the outermost layer.
func chain(mw []Middleware, final GenerateFunc) GenerateFunc {
	h := final
	for i := len(mw) - 1; i >= 0; i-- {
		layer, next := mw[i], h
		h = func(ctx context.Context, req Request) (*Response, error) {
			return layer(ctx, req, next)
		}
	}
	return h
}

// Generate routes req to its provider through the middleware stack. The
// request's Provider is filled in before middleware sees it.
func (c *Client) Generate(ctx context.Context, req Request) (*Response, error) {
	adapter, mw, err := c.route(req)
	if err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = adapter.Name()
	}
	return chain(mw, adapter.Generate)(ctx, req)
}

// Close closes every adapter that implements Closer and joins their errors.
func (c *Client) Close() error {
	var errs []error
	for name, adapter := range c.providers {
		closer, ok := adapter.(Closer)
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close provider %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// RateLimitMiddleware blocks each request until limiter grants a token.
func RateLimitMiddleware(limiter *rate.Limiter) Middleware {
	return func(ctx context.Context, req Request, next GenerateFunc) (*Response, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, newGatewayError(CategoryAborted, req.Provider, 0, "rate limiter wait", err)
		}
		return next(ctx, req)
	}
}

// LoggingMiddleware logs every provider call with its latency and outcome.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(ctx context.Context, req Request, next GenerateFunc) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		ev := logger.Debug()
		if err != nil {
			ev = logger.Warn().Err(err).Str("category", string(CategoryOf(err)))
		}
		ev = ev.Str("provider", req.Provider).
			Str("model", req.Model).
			Int("messages", len(req.Messages)).
			Int("tools", len(req.Tools)).
			Dur("latency", time.Since(start))
		if resp != nil {
			ev = ev.Str("finish_reason", resp.FinishReason.Reason).
				Int("tool_calls", len(resp.ToolCalls())).
				Int("total_tokens", resp.Usage.TotalTokens)
		}
		ev.Msg("model generate")
		return resp, err
	}
}
