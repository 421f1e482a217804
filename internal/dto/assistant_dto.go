package dto

import (
	"ash-assistant-be/pkg/kb"
	"ash-assistant-be/pkg/llm"
	"ash-assistant-be/pkg/rag/action"
)

type CreateSessionResponse struct {
	SessionId string `json:"session_id"`
	Model     string `json:"model"`
}

type SessionSummary struct {
	SessionId string `json:"session_id"`
	Path      string `json:"path"`
}

type GetSessionResponse struct {
	SessionId string        `json:"session_id"`
	Messages  []llm.Message `json:"messages"`
}

type AskRequest struct {
	SessionId  string   `json:"session_id" validate:"required"`
	Query      string   `json:"query" validate:"required"`
	Model      string   `json:"model,omitempty"`
	Namespaces []string `json:"namespaces,omitempty"`
	TopK       int      `json:"top_k,omitempty" validate:"omitempty,min=0,max=50"`
}

type AskResponse struct {
	SessionId string                `json:"session_id"`
	Mode      string                `json:"mode"`
	Answer    string                `json:"answer"`
	Action    *action.Action        `json:"action,omitempty"`
	Snippets  []kb.RetrievedSnippet `json:"snippets,omitempty"`
}

type StreamStartRequest struct {
	Query      string   `json:"query" validate:"required"`
	Model      string   `json:"model,omitempty"`
	Namespaces []string `json:"namespaces,omitempty"`
	TopK       int      `json:"top_k,omitempty" validate:"omitempty,min=0,max=50"`
}

type StreamStartResponse struct {
	SessionId string `json:"session_id"`
	Mode      string `json:"mode"`
	Streaming bool   `json:"streaming"`
}

type ModelsResponse struct {
	Models   []string `json:"models"`
	Fallback bool     `json:"fallback"` // true when the discovery call timed out
}

type SearchResult struct {
	Query   string                `json:"query"`
	Results []kb.RetrievedSnippet `json:"results"`
}
