package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"smartshop-be/internal/bootstrap"
	"smartshop-be/internal/config"
	"smartshop-be/internal/server"
	"smartshop-be/internal/tracer"
	"smartshop-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Tracer
	shutdownTracer := tracer.InitTracer(cfg.Telemetry)
	defer shutdownTracer(context.Background())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database (optional)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection, !cfg.IsProduction())
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 4. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(ctx, gormDB, cfg)
	if err != nil {
		log.Fatalf("Bootstrap failed: %v", err)
	}
	defer container.Close()

	// 5. Start Background Services
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Fatalf("Consumer Service failed to start: %v", err)
	}
	if err := container.UsageService.Start(); err != nil {
		log.Printf("Usage aggregator disabled: %v", err)
	}
	if cfg.Retrieval.VectorStore == "memory" || cfg.Retrieval.IndexOnStart {
		if _, err := container.AdminService.ReindexCatalog(ctx); err != nil {
			log.Printf("Initial catalog indexing was not queued: %v", err)
		}
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)

	go func() {
		<-ctx.Done()
		log.Println("Shutting down...")
		if err := srv.Shutdown(); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
