package executor

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"ash-assistant-be/pkg/llm"
)

// EventType tags the three outcomes a streaming run can deliver.
type EventType string

const (
	EventPartial  EventType = "partial"
	EventComplete EventType = "complete"
	EventFailed   EventType = "failed"
)

// Event is one notification from the background worker. A run emits zero or
// more partial events followed by exactly one terminal event (complete or
// failed). The complete event carries the full concatenated text.
type Event struct {
	Type  EventType `json:"type"`
	Chunk string    `json:"chunk,omitempty"`
	Full  string    `json:"full,omitempty"`
	Error string    `json:"error,omitempty"`
}

// StreamExecutor runs the chat transport on a background goroutine and
// relays its output through an event channel. At most one run may be active
// per executor; callers own one executor per conversation.
type StreamExecutor struct {
	provider llm.LLMProvider
	busy     atomic.Bool
}

func NewStreamExecutor(provider llm.LLMProvider) *StreamExecutor {
	return &StreamExecutor{provider: provider}
}

// Busy reports whether a run is currently streaming.
func (e *StreamExecutor) Busy() bool {
	return e.busy.Load()
}

// Run starts a streaming exchange. The returned channel delivers events in
// transport order and is closed after the terminal event. A second Run while
// one is streaming is rejected.
func (e *StreamExecutor) Run(ctx context.Context, history []llm.Message, opts ...llm.Option) (<-chan Event, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("a streaming run is already active")
	}

	events := make(chan Event, 16)

	go func() {
		defer e.busy.Store(false)
		defer close(events)

		var full strings.Builder
		err := e.provider.Stream(ctx, history, func(chunk string) {
			full.WriteString(chunk)
			select {
			case events <- Event{Type: EventPartial, Chunk: chunk}:
			case <-ctx.Done():
			}
		}, opts...)

		switch {
		case ctx.Err() != nil:
			events <- Event{Type: EventFailed, Error: ctx.Err().Error()}
		case err != nil:
			events <- Event{Type: EventFailed, Error: err.Error()}
		default:
			events <- Event{Type: EventComplete, Full: full.String()}
		}
	}()

	return events, nil
}
