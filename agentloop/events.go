package agentloop

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventKind identifies the type of run event.
type EventKind string

const (
	EventRunStart       EventKind = "run_start"
	EventNarration      EventKind = "narration"
	EventToolCallStart  EventKind = "tool_call_start"
	EventToolCallEnd    EventKind = "tool_call_end"
	EventParseFallback  EventKind = "parse_fallback"
	EventLoopDetection  EventKind = "loop_detection"
	EventIterationLimit EventKind = "iteration_limit"
	EventCancelled      EventKind = "cancelled"
	EventRunEnd         EventKind = "run_end"
	EventError          EventKind = "error"
)

// Event is one observation of a run, tagged with the run it belongs to.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id"`
	Data      map[string]any `json:"data,omitempty"`
}

const defaultEventBuffer = 256

// EventEmitter fans run events out to the host over a buffered channel.
// Emit never blocks: events that do not fit are counted and discarded.
type EventEmitter struct {
	mu      sync.Mutex
	ch      chan Event
	done    bool
	dropped atomic.Int64
}

// NewEventEmitter returns an emitter whose channel holds bufferSize events
// (256 when bufferSize is not positive).
func NewEventEmitter(bufferSize int) *EventEmitter {
	if bufferSize <= 0 {
		bufferSize = defaultEventBuffer
	}
	return &EventEmitter{ch: make(chan Event, bufferSize)}
}

// Emit publishes an event for runID. It is a no-op after Close.
func (e *EventEmitter) Emit(runID string, kind EventKind, data map[string]any) {
	ev := Event{Kind: kind, Timestamp: time.Now(), RunID: runID, Data: data}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Events returns the receive side of the event channel.
func (e *EventEmitter) Events() <-chan Event { return e.ch }

// Dropped reports how many events were discarded because the buffer was full.
func (e *EventEmitter) Dropped() int64 { return e.dropped.Load() }

// Close ends the stream. Later calls do nothing.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}
	e.done = true
	close(e.ch)
}
