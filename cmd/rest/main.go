package main

import (
	"context"
	"log"

	"ash-assistant-be/internal/bootstrap"
	"ash-assistant-be/internal/config"
	"ash-assistant-be/internal/server"
	"ash-assistant-be/internal/tracer"

	"github.com/fatih/color"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer func() {
		if container.NatsPub != nil {
			container.NatsPub.Close()
		}
		_ = container.SysLogger.Sync()
	}()

	// 3. Start Background Services
	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	color.Cyan("ASH Assistant backend")
	color.Green("Provider: %s | Model: %s", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server
	log.Fatal(srv.Run())
}
