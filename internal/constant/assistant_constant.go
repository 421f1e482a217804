package constant

import "time"

const (
	// Well-known local inference server
	OllamaDefaultBaseURL = "http://localhost:11434"

	// Bounded wait for model discovery before falling back to the
	// hardcoded default list.
	ModelDiscoveryTimeout = 3 * time.Second

	// In-process bus topic carrying assistant events to the log sink
	AssistantEventsTopic = "assistant_events"

	// Event types published on the assistant event bus
	EventSessionStarted = "SESSION_STARTED"
	EventUserTurn       = "USER_TURN"
	EventChunk          = "CHUNK"
	EventTurnCommitted  = "TURN_COMMITTED"
	EventStreamFailed   = "STREAM_FAILED"
)

// DefaultModels is offered when the inference server does not answer the
// discovery call in time.
var DefaultModels = []string{
	"llama3",
	"llama3.2",
	"qwen2.5",
	"gemma2",
}
