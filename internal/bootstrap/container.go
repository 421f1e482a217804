package bootstrap

import (
	"context"
	"log"

	"ash-assistant-be/internal/config"
	"ash-assistant-be/internal/constant"
	"ash-assistant-be/internal/controller"
	"ash-assistant-be/internal/pkg/logger"
	"ash-assistant-be/internal/repository/memory"
	"ash-assistant-be/internal/service"
	"ash-assistant-be/internal/websocket"
	"ash-assistant-be/pkg/kb"
	"ash-assistant-be/pkg/llm/factory"
	"ash-assistant-be/pkg/llm/ollama"
	"ash-assistant-be/pkg/transcript"

	pktNats "ash-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	AssistantController controller.IAssistantController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets
	WebSocketHub *websocket.Hub

	// Exposed for graceful shutdown
	SysLogger logger.ILogger
	NatsPub   *pktNats.Publisher
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	eventLog := logger.NewEventLogger(cfg.App.EventLogPath, cfg.App.EventLogMaxSizeMB)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS is optional: without a URL events stay local
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
		}
	}

	// Redis is optional: without it the hub delivers locally only
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, sysLogger)
	go wsHub.Run()

	// 3. Knowledge Base
	docStore := kb.NewStore(cfg.Knowledge.DocsDir)
	_, report := docStore.LoadWithReport()
	if report.RootMissing {
		log.Printf("[WARN] Knowledge directory %q not found, assistant starts with an empty corpus", cfg.Knowledge.DocsDir)
	}
	log.Printf("[INFO] Knowledge base: %d documents from %d files (%d skipped)",
		report.Documents, report.Files, len(report.Skipped))
	retriever := kb.NewRetriever(docStore)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	if op, ok := llmProvider.(*ollama.OllamaProvider); ok {
		if cfg.Ai.ChatURL != "" {
			op.ChatURL = cfg.Ai.ChatURL
		}
		if cfg.Ai.GenerateURL != "" {
			op.GenerateURL = cfg.Ai.GenerateURL
		}
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Initialize In-Memory Session Storage
	sessionRepo := memory.NewSessionRepository()
	transcripts := transcript.NewStore(cfg.Knowledge.TranscriptDir)

	// 4. Services
	publisherService := service.NewPublisherService(constant.AssistantEventsTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.AssistantEventsTopic,
		eventLog,
		natsPub,
	)

	assistantService := service.NewAssistantService(
		cfg,
		retriever,
		llmProvider,
		sessionRepo,
		transcripts,
		wsHub,
		publisherService,
		sysLogger,
	)

	// 5. Controllers
	return &Container{
		AssistantController: controller.NewAssistantController(assistantService, eventLog),
		ConsumerService:     consumerService,
		WebSocketHub:        wsHub,
		SysLogger:           sysLogger,
		NatsPub:             natsPub,
	}
}
