package executor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ash-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedProvider plays back a fixed chunk sequence, optionally waiting on
// release before producing anything.
type scriptedProvider struct {
	chunks  []string
	err     error
	release chan struct{}
}

func (p *scriptedProvider) Stream(ctx context.Context, history []llm.Message, onChunk func(string), opts ...llm.Option) error {
	if p.release != nil {
		select {
		case <-p.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	for _, chunk := range p.chunks {
		onChunk(chunk)
	}
	return p.err
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	var sb strings.Builder
	err := p.Stream(ctx, history, func(c string) { sb.WriteString(c) }, opts...)
	return sb.String(), err
}

func (p *scriptedProvider) ListModels(ctx context.Context) ([]string, error) {
	return nil, nil
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("timed out draining event channel")
		}
	}
}

func TestRunEmitsPartialsThenComplete(t *testing.T) {
	exec := NewStreamExecutor(&scriptedProvider{chunks: []string{"Hel", "lo"}})

	events, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, Event{Type: EventPartial, Chunk: "Hel"}, got[0])
	assert.Equal(t, Event{Type: EventPartial, Chunk: "lo"}, got[1])
	assert.Equal(t, Event{Type: EventComplete, Full: "Hello"}, got[2])

	assert.False(t, exec.Busy())
}

func TestRunEmitsFailedOnError(t *testing.T) {
	exec := NewStreamExecutor(&scriptedProvider{
		chunks: []string{"partial"},
		err:    errors.New("connection reset"),
	})

	events, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventPartial, got[0].Type)
	assert.Equal(t, EventFailed, got[1].Type)
	assert.Contains(t, got[1].Error, "connection reset")
	assert.Empty(t, got[1].Full)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	release := make(chan struct{})
	exec := NewStreamExecutor(&scriptedProvider{chunks: []string{"x"}, release: release})

	events, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, exec.Busy())

	_, err = exec.Run(context.Background(), nil)
	require.Error(t, err)

	close(release)
	collect(t, events)

	// The slot frees up once the first run finishes
	events2, err := exec.Run(context.Background(), nil)
	require.NoError(t, err)
	collect(t, events2)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	release := make(chan struct{})
	defer close(release)
	exec := NewStreamExecutor(&scriptedProvider{chunks: []string{"never"}, release: release})

	events, err := exec.Run(ctx, nil)
	require.NoError(t, err)

	got := collect(t, events)
	require.Len(t, got, 1)
	assert.Equal(t, EventFailed, got[0].Type)
	assert.Contains(t, got[0].Error, "context canceled")
}
