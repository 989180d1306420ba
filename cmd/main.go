package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"sitemirror/internal/config"
	"sitemirror/internal/core/archive"
	"sitemirror/internal/core/job"
	"sitemirror/internal/core/mirror"
	"sitemirror/internal/logger"
	rds "sitemirror/internal/platform/redis"
	"sitemirror/internal/platform/sandbox"
	tasks "sitemirror/internal/platform/tasks"
	"sitemirror/internal/server"
	"sitemirror/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log.Printf("[sitemirror] starting at %s (env=%s)\n", cfg.HTTPAddr, cfg.AppEnv)

	logr := logger.New("main")

	// Storage sandbox: create the tree, then sweep stale archives once at
	// startup and on a retention ticker afterwards.
	sb := sandbox.New(cfg.StorageDir)
	if err := sb.Initialize(); err != nil {
		logr.LogFatalf("storage init failed: %v", err)
	}
	sb.SweepExpired(cfg.Retention())
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval())
		defer ticker.Stop()
		for range ticker.C {
			sb.SweepExpired(cfg.Retention())
		}
	}()

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer redisSvc.Close()

	// Asynq client and server
	taskClient := tasks.New(redisSvc)
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{"default": 1},
	})

	// Core services
	jobSvc := job.NewService(redisSvc)
	zipper := archive.NewZipper(sb)
	mirrorSvc := mirror.NewService(jobSvc, taskClient, sb, zipper, cfg)

	// Worker mux
	mux := worker.NewMux()
	mux.HandleFunc(mirror.TaskTypeMirror, mirrorSvc.HandleMirrorTask)

	_, workerCancel := context.WithCancel(context.Background())
	go func() {
		if err := asynqServer.Start(mux.Mux()); err != nil {
			log.Printf("[worker] stopped: %v\n", err)
		}
	}()

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "Sitemirror Engine",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})
	// Finished archives are served straight from the output directory.
	app.Static("/files", sb.OutputDir())

	deps := server.Dependencies{
		Job:    jobSvc,
		Mirror: mirrorSvc,
		Redis:  redisSvc,
	}
	healthHandler := server.RegisterRoutes(app, deps)
	healthHandler.SetReady()

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		logr.LogInfo("Shutting down...")
		workerCancel()
		asynqServer.Shutdown()
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server listen: %v", err)
	}
}
