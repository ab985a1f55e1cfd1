package main

import (
	"context"
	"log"

	"doc-rag-be/internal/bootstrap"
	"doc-rag-be/internal/config"
	"doc-rag-be/internal/server"
	"doc-rag-be/internal/tracer"
	"doc-rag-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer (no-op unless OTEL_ENABLED=true)
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	ctx := context.Background()
	if err := container.WorkerPool.Start(ctx); err != nil {
		log.Panicf("Unable to start worker pool: %v", err)
	}
	if _, err := container.JobQueue.Recover(ctx); err != nil {
		log.Printf("Unable to recover stranded jobs: %v", err)
	}
	go container.Janitor.Run(ctx)

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
