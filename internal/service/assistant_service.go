package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"ash-assistant-be/internal/config"
	"ash-assistant-be/internal/constant"
	"ash-assistant-be/internal/dto"
	"ash-assistant-be/internal/pkg/logger"
	"ash-assistant-be/internal/repository/memory"
	"ash-assistant-be/internal/websocket"
	"ash-assistant-be/pkg/events"
	"ash-assistant-be/pkg/kb"
	"ash-assistant-be/pkg/llm"
	"ash-assistant-be/pkg/rag/action"
	"ash-assistant-be/pkg/rag/executor"
	"ash-assistant-be/pkg/rag/prompt"
	"ash-assistant-be/pkg/store"
	"ash-assistant-be/pkg/transcript"

	"github.com/gofiber/fiber/v2"
)

type IAssistantService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	ListSessions(limit int) []dto.SessionSummary
	GetSession(sessionID string) (*dto.GetSessionResponse, error)
	Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error)
	StartStream(sessionID string, req *dto.StreamStartRequest) (*dto.StreamStartResponse, error)
	Models(ctx context.Context) *dto.ModelsResponse
	Search(query string, k int, namespaces []string) *dto.SearchResult
}

type assistantService struct {
	cfg         *config.Config
	retriever   *kb.Retriever
	provider    llm.LLMProvider
	sessionRepo *memory.SessionRepository
	transcripts *transcript.Store
	hub         *websocket.Hub
	publisher   IPublisherService
	logger      logger.ILogger

	// One run slot per conversation enforces the single-run rule. The slot
	// stays held until the turn is committed, not just until the stream
	// ends, so successive commits never overlap.
	runs sync.Map // sessionID -> *sessionRun
}

type sessionRun struct {
	exec *executor.StreamExecutor
	mu   sync.Mutex
}

func NewAssistantService(
	cfg *config.Config,
	retriever *kb.Retriever,
	provider llm.LLMProvider,
	sessionRepo *memory.SessionRepository,
	transcripts *transcript.Store,
	hub *websocket.Hub,
	publisher IPublisherService,
	sysLogger logger.ILogger,
) IAssistantService {
	return &assistantService{
		cfg:         cfg,
		retriever:   retriever,
		provider:    provider,
		sessionRepo: sessionRepo,
		transcripts: transcripts,
		hub:         hub,
		publisher:   publisher,
		logger:      sysLogger,
	}
}

func (s *assistantService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	sessionID := transcript.NewSessionID()
	if err := s.transcripts.Start(sessionID); err != nil {
		return nil, fmt.Errorf("start transcript: %w", err)
	}

	session := store.NewSession(sessionID, s.cfg.Ai.LLMModel, nil)
	s.sessionRepo.Save(session)

	s.publishEvent(ctx, constant.EventSessionStarted, map[string]interface{}{
		"session_id": sessionID,
		"model":      session.Model,
	})

	return &dto.CreateSessionResponse{
		SessionId: sessionID,
		Model:     session.Model,
	}, nil
}

func (s *assistantService) ListSessions(limit int) []dto.SessionSummary {
	paths := s.transcripts.ListRecent(limit)
	out := make([]dto.SessionSummary, 0, len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		out = append(out, dto.SessionSummary{
			SessionId: strings.TrimSuffix(name, filepath.Ext(name)),
			Path:      path,
		})
	}
	return out
}

func (s *assistantService) GetSession(sessionID string) (*dto.GetSessionResponse, error) {
	session, err := s.resumeSession(sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.GetSessionResponse{
		SessionId: session.ID,
		Messages:  session.Messages(),
	}, nil
}

// Ask runs one full exchange and blocks until the terminal event. Chunks are
// still relayed to any websocket watchers while the response accumulates.
func (s *assistantService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	session, err := s.resumeSession(req.SessionId)
	if err != nil {
		return nil, err
	}

	mode, messages, snippets := s.prepare(session, req.Query, req.Namespaces, req.TopK)

	evts, release, err := s.startRun(ctx, session, req.Query, string(mode), messages, req.Model)
	if err != nil {
		return nil, err
	}
	defer release()

	var final executor.Event
	for ev := range evts {
		s.relay(ctx, session.ID, ev)
		if ev.Type != executor.EventPartial {
			final = ev
		}
	}

	if final.Type == executor.EventFailed {
		return nil, fmt.Errorf("streaming request failed: %s", final.Error)
	}

	display, act := s.commitTurn(ctx, session, string(mode), req.Query, final.Full)

	return &dto.AskResponse{
		SessionId: session.ID,
		Mode:      string(mode),
		Answer:    display,
		Action:    act,
		Snippets:  snippets,
	}, nil
}

// StartStream begins a background exchange; progress is delivered through
// the websocket hub. The commit happens in the consuming goroutine, which is
// the only writer of the session and its transcript.
func (s *assistantService) StartStream(sessionID string, req *dto.StreamStartRequest) (*dto.StreamStartResponse, error) {
	session, err := s.resumeSession(sessionID)
	if err != nil {
		return nil, err
	}

	mode, messages, _ := s.prepare(session, req.Query, req.Namespaces, req.TopK)

	// The run outlives the HTTP request that started it
	ctx := context.Background()
	evts, release, err := s.startRun(ctx, session, req.Query, string(mode), messages, req.Model)
	if err != nil {
		return nil, err
	}

	go func() {
		defer release()
		for ev := range evts {
			s.relay(ctx, session.ID, ev)
			switch ev.Type {
			case executor.EventComplete:
				s.commitTurn(ctx, session, string(mode), req.Query, ev.Full)
			case executor.EventFailed:
				s.logger.Error("Assistant", "Streaming run failed", map[string]interface{}{
					"session_id": session.ID,
					"error":      ev.Error,
				})
			}
		}
	}()

	return &dto.StreamStartResponse{
		SessionId: session.ID,
		Mode:      string(mode),
		Streaming: true,
	}, nil
}

func (s *assistantService) Models(ctx context.Context) *dto.ModelsResponse {
	discoveryCtx, cancel := context.WithTimeout(ctx, constant.ModelDiscoveryTimeout)
	defer cancel()

	models, err := s.provider.ListModels(discoveryCtx)
	if err != nil || len(models) == 0 {
		return &dto.ModelsResponse{
			Models:   constant.DefaultModels,
			Fallback: true,
		}
	}
	return &dto.ModelsResponse{Models: models}
}

func (s *assistantService) Search(query string, k int, namespaces []string) *dto.SearchResult {
	if k <= 0 {
		k = s.cfg.Ai.RetrieveTopK
	}
	return &dto.SearchResult{
		Query:   query,
		Results: s.retriever.Retrieve(query, k, namespaceSet(namespaces)),
	}
}

// --- internals ---

// resumeSession returns the live session, rebuilding it from the on-disk
// transcript when the in-memory copy has been evicted.
func (s *assistantService) resumeSession(sessionID string) (*store.Session, error) {
	if session, found := s.sessionRepo.Get(sessionID); found {
		return session, nil
	}

	id, messages := s.transcripts.LoadSession(sessionID)
	if len(messages) == 0 {
		return nil, fiber.NewError(fiber.StatusNotFound, "unknown session: "+sessionID)
	}

	session := store.NewSession(id, s.cfg.Ai.LLMModel, messages)
	s.sessionRepo.Save(session)
	return session, nil
}

func (s *assistantService) prepare(session *store.Session, query string, namespaces []string, topK int) (prompt.Mode, []llm.Message, []kb.RetrievedSnippet) {
	if topK <= 0 {
		topK = s.cfg.Ai.RetrieveTopK
	}

	mode := prompt.ClassifyMode(query)
	snippets := s.retriever.Retrieve(query, topK, namespaceSet(namespaces))
	messages := prompt.NewBuilder(query, mode, snippets).Build()

	session.SetLastPrompt(query, string(mode))

	return mode, messages, snippets
}

// startRun claims the session's run slot and starts streaming. The returned
// release func must be called after the terminal event is handled (commit
// included); until then further runs on the session are rejected.
func (s *assistantService) startRun(ctx context.Context, session *store.Session, query, mode string, messages []llm.Message, modelOverride string) (<-chan executor.Event, func(), error) {
	run := s.runFor(session.ID)
	if !run.mu.TryLock() {
		return nil, nil, fiber.NewError(fiber.StatusConflict, "a response is already streaming for this session")
	}

	opts := []llm.Option{llm.WithTemperature(s.cfg.Ai.Temperature)}
	if modelOverride != "" {
		opts = append(opts, llm.WithModel(modelOverride))
	}

	s.publishEvent(ctx, constant.EventUserTurn, map[string]interface{}{
		"session_id": session.ID,
		"query":      query,
		"mode":       mode,
	})

	evts, err := run.exec.Run(ctx, messages, opts...)
	if err != nil {
		run.mu.Unlock()
		return nil, nil, fiber.NewError(fiber.StatusConflict, "a response is already streaming for this session")
	}
	return evts, run.mu.Unlock, nil
}

func (s *assistantService) relay(ctx context.Context, sessionID string, ev executor.Event) {
	s.hub.RelayEvent(sessionID, ev)

	switch ev.Type {
	case executor.EventPartial:
		s.publishEvent(ctx, constant.EventChunk, map[string]interface{}{
			"session_id": sessionID,
			"size":       len(ev.Chunk),
		})
	case executor.EventFailed:
		s.publishEvent(ctx, constant.EventStreamFailed, map[string]interface{}{
			"session_id": sessionID,
			"error":      ev.Error,
		})
	}
}

// commitTurn appends the completed user/assistant pair to the session and
// the transcript, then splits the assistant text into display text and an
// optional action. Nothing is committed for failed runs.
func (s *assistantService) commitTurn(ctx context.Context, session *store.Session, mode, query, full string) (string, *action.Action) {
	session.CommitTurn(query, full)
	s.sessionRepo.Save(session)

	if err := s.transcripts.AppendTurn(session.ID, llm.RoleUser, query); err != nil {
		s.logger.Error("Assistant", "Failed to persist user turn", map[string]interface{}{
			"session_id": session.ID, "error": err.Error(),
		})
	}
	if err := s.transcripts.AppendTurn(session.ID, llm.RoleAssistant, full); err != nil {
		s.logger.Error("Assistant", "Failed to persist assistant turn", map[string]interface{}{
			"session_id": session.ID, "error": err.Error(),
		})
	}

	display, act := action.Extract(full)

	s.publishEvent(ctx, constant.EventTurnCommitted, map[string]interface{}{
		"session_id": session.ID,
		"mode":       mode,
		"turns":      session.MessageCount(),
		"has_action": act != nil,
	})

	return display, act
}

func (s *assistantService) runFor(sessionID string) *sessionRun {
	if run, ok := s.runs.Load(sessionID); ok {
		return run.(*sessionRun)
	}
	run, _ := s.runs.LoadOrStore(sessionID, &sessionRun{exec: executor.NewStreamExecutor(s.provider)})
	return run.(*sessionRun)
}

func (s *assistantService) publishEvent(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn("Assistant", "Failed to publish event", map[string]interface{}{
			"type": eventType, "error": err.Error(),
		})
	}
}

func namespaceSet(namespaces []string) map[string]bool {
	if len(namespaces) == 0 {
		return nil
	}
	set := make(map[string]bool, len(namespaces))
	for _, ns := range namespaces {
		set[ns] = true
	}
	return set
}
