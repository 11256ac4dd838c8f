package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"course-planner/internal/composio"
	"course-planner/internal/config"
	"course-planner/internal/connections"
	"course-planner/internal/linker"
	"course-planner/internal/planner"
	"course-planner/internal/scheduler"
	"course-planner/internal/syllabus"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	// Configuration errors are fatal before any remote call is made.
	if cfg.Transport == config.TransportHTTP && cfg.ComposioAPIKey == "" {
		log.Fatalf("❌ COMPOSIO_API_KEY missing in environment (.env)")
	}
	if cfg.MaxLessons <= 0 {
		log.Fatalf("❌ MAX_LESSONS must be positive, got %d", cfg.MaxLessons)
	}

	store, err := connections.NewFileStore(cfg.ConnectionsFilePath)
	if err != nil {
		log.Fatalf("failed to init connections store: %v", err)
	}

	ctx := context.Background()

	var transport composio.Transport
	switch cfg.Transport {
	case config.TransportMCP:
		mcpTransport := composio.NewMCPTransport(cfg.MCPServerPath)
		if err := mcpTransport.Connect(ctx); err != nil {
			log.Fatalf("failed to connect tool MCP server: %v", err)
		}
		defer func() {
			_ = mcpTransport.Close()
		}()
		transport = mcpTransport
	case config.TransportHTTP:
		transport = composio.NewHTTPTransport(cfg.ComposioBaseURL, cfg.ComposioAPIKey)
	default:
		log.Fatalf("unknown tool transport: %s", cfg.Transport)
	}

	invoker := composio.NewInvoker(transport, cfg.ComposioUserID)
	lk := linker.NewHTTPLinker(cfg.ComposioBaseURL, cfg.ComposioAPIKey, cfg.LinkTimeout)

	p := planner.New(cfg, invoker, lk, store, syllabus.PDFExtractor{})

	if cfg.CronSchedule == "" {
		if err := p.Run(ctx); err != nil {
			log.Fatalf("❌ %v", err)
		}
		return
	}

	// Periodic mode: run once now, then on the cron schedule until
	// interrupted.
	if err := p.Run(ctx); err != nil {
		log.Printf("❌ Initial run failed: %v", err)
	}
	sched := scheduler.New()
	sched.SetRunFunction(p.Run)
	if err := sched.Start(cfg.CronSchedule); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	sched.Stop()
}
