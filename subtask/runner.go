// Package subtask runs batches of independent work items on a bounded worker
// pool and gathers every outcome, successful or not, before returning.
package subtask

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the pool size used when none is given.
const DefaultConcurrency = 4

// Item is one self-contained unit of work.
type Item struct {
	ID          string
	Description string
	Fn          func(ctx context.Context) (any, error)
}

// Outcome is the result of one Item. Exactly one of Value and Err is
// meaningful.
type Outcome struct {
	ID          string        `json:"id"`
	Description string        `json:"description,omitempty"`
	Value       any           `json:"value,omitempty"`
	Err         error         `json:"-"`
	Duration    time.Duration `json:"duration"`
}

// OK reports whether the item succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Runner executes batches of items with at most Concurrency running at once.
type Runner struct {
	concurrency int
	logger      zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets the pool size. Values of zero or less use
// DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(r *Runner) { r.concurrency = n }
}

// WithLogger sets the logger used for per-item diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		concurrency: DefaultConcurrency,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.concurrency <= 0 {
		r.concurrency = DefaultConcurrency
	}
	return r
}

// Concurrency returns the pool size.
func (r *Runner) Concurrency() int { return r.concurrency }

// RunAll executes items and returns one Outcome per item, in completion
// order. A failing or panicking item never stops the others. All workers
// have finished when RunAll returns. Items not yet started when ctx is done
// are reported with ctx's error instead of being run.
func (r *Runner) RunAll(ctx context.Context, items []Item) []Outcome {
	if len(items) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(items))
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, item := range items {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		g.Go(func() error {
			outcome := r.runOne(ctx, item)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	r.logger.Debug().
		Int("items", len(items)).
		Int("failed", failed).
		Int("concurrency", r.concurrency).
		Msg("subtask batch finished")
	return outcomes
}

func (r *Runner) runOne(ctx context.Context, item Item) (outcome Outcome) {
	outcome = Outcome{ID: item.ID, Description: item.Description}
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			outcome.Value = nil
			outcome.Err = fmt.Errorf("subtask %s panicked: %v", item.ID, p)
		}
		outcome.Duration = time.Since(start)
		if outcome.Err != nil {
			r.logger.Warn().Str("subtask", item.ID).Err(outcome.Err).Msg("subtask failed")
		}
	}()

	if err := ctx.Err(); err != nil {
		outcome.Err = fmt.Errorf("subtask %s not started: %w", item.ID, err)
		return outcome
	}
	if item.Fn == nil {
		outcome.Err = fmt.Errorf("subtask %s has no work function", item.ID)
		return outcome
	}

	value, err := item.Fn(ctx)
	if err != nil {
		outcome.Err = fmt.Errorf("subtask %s: %w", item.ID, err)
		return outcome
	}
	outcome.Value = value
	return outcome
}

// RunAll executes items on a pool of the given size with a default Runner.
func RunAll(ctx context.Context, items []Item, concurrency int) []Outcome {
	return New(WithConcurrency(concurrency)).RunAll(ctx, items)
}

// Errors joins the errors of every failed outcome, or returns nil when all
// succeeded.
func Errors(outcomes []Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
		}
	}
	return errors.Join(errs...)
}
