package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"ash-assistant-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ndjson(w http.ResponseWriter, lines ...string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func newTestProvider(t *testing.T, chat, generate http.HandlerFunc) (*OllamaProvider, *int32, *int32) {
	t.Helper()
	var chatCalls, generateCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&chatCalls, 1)
		chat(w, r)
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&generateCalls, 1)
		generate(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewOllamaProvider(server.URL, "test-model"), &chatCalls, &generateCalls
}

func TestStreamChatEndpoint(t *testing.T) {
	chat := func(w http.ResponseWriter, r *http.Request) {
		ndjson(w,
			`{"message": {"role": "assistant", "content": "Hel"}}`,
			`{"message": {"role": "assistant", "content": "lo"}}`,
			`{"done": true}`,
		)
	}
	generate := func(w http.ResponseWriter, r *http.Request) {
		t.Error("generate endpoint should not be called on a healthy chat stream")
	}

	provider, chatCalls, generateCalls := newTestProvider(t, chat, generate)

	var chunks []string
	err := provider.Stream(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
	}, func(chunk string) {
		chunks = append(chunks, chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
	assert.EqualValues(t, 1, atomic.LoadInt32(chatCalls))
	assert.EqualValues(t, 0, atomic.LoadInt32(generateCalls))
}

func TestStreamFallsBackWhenChatFails(t *testing.T) {
	chat := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}
	generate := func(w http.ResponseWriter, r *http.Request) {
		ndjson(w,
			`{"response": "fallback "}`,
			`{"response": "answer"}`,
			`{"done": true}`,
		)
	}

	provider, _, generateCalls := newTestProvider(t, chat, generate)

	var sb strings.Builder
	err := provider.Stream(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
	}, func(chunk string) {
		sb.WriteString(chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, "fallback answer", sb.String())
	assert.EqualValues(t, 1, atomic.LoadInt32(generateCalls))
}

func TestStreamFallsBackOnEmptyChatStream(t *testing.T) {
	// The chat endpoint answers politely but produces zero content
	chat := func(w http.ResponseWriter, r *http.Request) {
		ndjson(w, `{"done": true}`)
	}
	generate := func(w http.ResponseWriter, r *http.Request) {
		ndjson(w, `{"response": "from generate"}`, `{"done": true}`)
	}

	provider, _, generateCalls := newTestProvider(t, chat, generate)

	var sb strings.Builder
	err := provider.Stream(context.Background(), nil, func(chunk string) {
		sb.WriteString(chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, "from generate", sb.String())
	assert.EqualValues(t, 1, atomic.LoadInt32(generateCalls))
}

func TestStreamFallbackFailureIsReported(t *testing.T) {
	fail := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	provider, _, _ := newTestProvider(t, fail, fail)

	err := provider.Stream(context.Background(), nil, func(string) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama fallback failed")
}

func TestStreamNoRetryAfterChunksEmitted(t *testing.T) {
	chat := func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message": {"content": "partial"}}`)
		w.(http.Flusher).Flush()
		// Abort mid-stream: the sequence just ends for the caller
		panic(http.ErrAbortHandler)
	}
	generate := func(w http.ResponseWriter, r *http.Request) {
		t.Error("generate must not run once chunks reached the caller")
	}

	provider, _, generateCalls := newTestProvider(t, chat, generate)

	var sb strings.Builder
	err := provider.Stream(context.Background(), nil, func(chunk string) {
		sb.WriteString(chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, "partial", sb.String())
	assert.EqualValues(t, 0, atomic.LoadInt32(generateCalls))
}

func TestStreamSkipsMalformedLines(t *testing.T) {
	chat := func(w http.ResponseWriter, r *http.Request) {
		ndjson(w,
			`{"message": {"content": "ok"}}`,
			`garbage line`,
			`{"message": {"content": " still ok"}}`,
			`{"done": true}`,
		)
	}
	generate := func(w http.ResponseWriter, r *http.Request) {}

	provider, _, _ := newTestProvider(t, chat, generate)

	var sb strings.Builder
	err := provider.Stream(context.Background(), nil, func(chunk string) {
		sb.WriteString(chunk)
	})

	require.NoError(t, err)
	assert.Equal(t, "ok still ok", sb.String())
}

func TestChatAggregates(t *testing.T) {
	chat := func(w http.ResponseWriter, r *http.Request) {
		ndjson(w,
			`{"message": {"content": "one "}}`,
			`{"message": {"content": "two"}}`,
			`{"done": true}`,
		)
	}

	provider, _, _ := newTestProvider(t, chat, func(http.ResponseWriter, *http.Request) {})

	got, err := provider.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "count"},
	})
	require.NoError(t, err)
	assert.Equal(t, "one two", got)
}

func TestListModels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"models": [{"name": "llama3"}, {"name": "qwen2.5"}]}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	provider := NewOllamaProvider(server.URL, "test-model")

	models, err := provider.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3", "qwen2.5"}, models)
}

func TestFlattenPrompt(t *testing.T) {
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: "Be brief."},
		{Role: llm.RoleUser, Content: "Where is the gallery?"},
		{Role: llm.RoleAssistant, Content: "Under Tools."},
	}

	got := FlattenPrompt(history)

	want := "[System]\nBe brief.\n\n[User]\nWhere is the gallery?\n\n[Assistant]\nUnder Tools.\n\n[Assistant]\n"
	assert.Equal(t, want, got)
}
