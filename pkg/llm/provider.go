package llm

import (
	"context"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Role constants shared by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Option allows for optional sampling parameters like Temperature, TopP, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
	Seed        *int
	Stop        []string
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithTopP(topP float64) Option {
	return func(o *Options) {
		o.TopP = topP
	}
}

func WithTopK(topK int) Option {
	return func(o *Options) {
		o.TopK = topK
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

func WithSeed(seed int) Option {
	return func(o *Options) {
		o.Seed = &seed
	}
}

func WithStop(stop []string) Option {
	return func(o *Options) {
		o.Stop = stop
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the full response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Stream sends a chat history and delivers the response incrementally.
	// onChunk is invoked once per non-empty content fragment, in arrival
	// order. The call returns after the final chunk or on a fatal error.
	Stream(ctx context.Context, history []Message, onChunk func(string), options ...Option) error

	// ListModels returns the model names the backend currently serves.
	ListModels(ctx context.Context) ([]string, error)
}
