package ollama

import (
	"ash-assistant-be/pkg/llm"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout is deliberately generous: a cold local server may spend most
// of a minute paging a model into memory before the first token arrives.
const DefaultTimeout = 180 * time.Second

type OllamaProvider struct {
	ChatURL     string // full URL of the streaming chat endpoint
	GenerateURL string // full URL of the streaming generate endpoint
	TagsURL     string // full URL of the model listing endpoint
	ModelName   string
	Client      *http.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		ChatURL:     baseURL + "/api/chat",
		GenerateURL: baseURL + "/api/generate",
		TagsURL:     baseURL + "/api/tags",
		ModelName:   modelName,
		Client: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options *ollamaOptions `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature,omitempty"`
	TopP        float64  `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

// ollamaStreamLine covers both endpoint shapes: the chat endpoint nests the
// fragment under message.content, the generate endpoint (and older servers)
// use a flat response field.
type ollamaStreamLine struct {
	Message  *ollamaMessage `json:"message,omitempty"`
	Response string         `json:"response,omitempty"`
	Done     bool           `json:"done,omitempty"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// --- Interface Implementation ---

// Chat aggregates the streamed response into a single string.
func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	var sb strings.Builder
	err := o.Stream(ctx, history, func(chunk string) {
		sb.WriteString(chunk)
	}, opts...)
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Stream posts the chat request to the streaming chat endpoint and relays each
// content fragment to onChunk. If the primary endpoint produces zero chunks
// (connection failure, non-2xx status, or a legitimately empty response), it
// silently retries once through the generate endpoint with a flattened prompt.
// Only a failure of that fallback is reported to the caller.
func (o *OllamaProvider) Stream(ctx context.Context, history []llm.Message, onChunk func(string), opts ...llm.Option) error {
	options := &llm.Options{
		Temperature: 0.7, // Default
	}
	for _, opt := range opts {
		opt(options)
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	emitted, err := o.streamChat(ctx, model, history, options, onChunk)
	if emitted > 0 {
		// Chunks already reached the caller. A mid-stream error just ends
		// the sequence; retrying would duplicate output.
		return nil
	}
	_ = err // primary failure is treated the same as an empty response

	return o.streamGenerate(ctx, model, history, options, onChunk)
}

func (o *OllamaProvider) streamChat(ctx context.Context, model string, history []llm.Message, options *llm.Options, onChunk func(string)) (int, error) {
	ollamaMessages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		// Some clients still send the legacy "model" role
		if role == "model" {
			role = llm.RoleAssistant
		}
		ollamaMessages[i] = ollamaMessage{
			Role:    role,
			Content: msg.Content,
		}
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: ollamaMessages,
		Stream:   true,
		Options:  buildOptions(options),
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	return o.streamLines(ctx, o.ChatURL, payloadBytes, onChunk)
}

func (o *OllamaProvider) streamGenerate(ctx context.Context, model string, history []llm.Message, options *llm.Options, onChunk func(string)) error {
	reqPayload := ollamaGenerateRequest{
		Model:   model,
		Prompt:  FlattenPrompt(history),
		Stream:  true,
		Options: buildOptions(options),
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	if _, err := o.streamLines(ctx, o.GenerateURL, payloadBytes, onChunk); err != nil {
		return fmt.Errorf("ollama fallback failed: %w", err)
	}
	return nil
}

// streamLines POSTs the payload and scans the newline-delimited JSON reply,
// emitting every non-empty content fragment. Returns how many were emitted.
func (o *OllamaProvider) streamLines(ctx context.Context, url string, payload []byte, onChunk func(string)) (int, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := o.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ollama request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return 0, fmt.Errorf("ollama error: status %d", res.StatusCode)
	}

	emitted := 0
	scanner := bufio.NewScanner(res.Body)
	// Fragments are small, but allow for servers that batch lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var parsed ollamaStreamLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			continue // skip malformed lines, keep streaming
		}

		content := parsed.Response
		if parsed.Message != nil && parsed.Message.Content != "" {
			content = parsed.Message.Content
		}
		if content != "" {
			onChunk(content)
			emitted++
		}
	}

	if err := scanner.Err(); err != nil {
		return emitted, fmt.Errorf("read stream: %w", err)
	}
	return emitted, nil
}

// ListModels queries the tags endpoint for the installed model names.
func (o *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", o.TagsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	res, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama error: status %d", res.StatusCode)
	}

	var tags ollamaTagsResponse
	if err := json.NewDecoder(res.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// FlattenPrompt renders a message list as labeled sections for the generate
// endpoint, ending with an assistant cue so the model continues the dialogue.
func FlattenPrompt(history []llm.Message) string {
	var sb strings.Builder
	for _, msg := range history {
		switch msg.Role {
		case llm.RoleSystem:
			sb.WriteString("[System]\n")
		case llm.RoleAssistant, "model":
			sb.WriteString("[Assistant]\n")
		default:
			sb.WriteString("[User]\n")
		}
		sb.WriteString(msg.Content)
		sb.WriteString("\n\n")
	}
	sb.WriteString("[Assistant]\n")
	return sb.String()
}

func buildOptions(options *llm.Options) *ollamaOptions {
	out := &ollamaOptions{
		Temperature: options.Temperature,
		TopP:        options.TopP,
		TopK:        options.TopK,
		Seed:        options.Seed,
		Stop:        options.Stop,
	}
	if options.MaxTokens > 0 {
		out.NumPredict = options.MaxTokens
	}
	return out
}
