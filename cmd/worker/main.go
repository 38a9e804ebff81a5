package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"voicecommerce_backend/internal/ai"
	"voicecommerce_backend/internal/calls"
	"voicecommerce_backend/internal/events"
	"voicecommerce_backend/internal/scheduler"
	ticketsrepo "voicecommerce_backend/internal/tickets/repository"
	"voicecommerce_backend/internal/wakeup"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/db"
	"voicecommerce_backend/platform/logger"
)

// The worker drains the asynq queue: delayed vendor-call retries and due
// wake-up calls. The API process owns migrations; this one only connects.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	schedClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() {
		_ = schedClient.Close()
	}()

	aiService, err := ai.NewService(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize model collaborators", "error", err)
		panic("failed to initialize model collaborators: " + err.Error())
	}
	voiceClient := calls.NewVoiceClient(cfg, log)

	ticketRepo := ticketsrepo.New(pool)
	callRepo := calls.NewRepository(pool)
	wakeupRepo := wakeup.NewRepository(pool)

	dispatcher := calls.NewDispatcher(callRepo, ticketRepo, voiceClient, aiService, schedClient, events.NewInMemoryBus(), cfg, log)
	wakeupService := wakeup.NewService(wakeupRepo, voiceClient, schedClient, log)

	worker, err := scheduler.NewWorker(cfg, dispatcher, wakeupService, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	log.Info("worker listening", "concurrency", cfg.AsynqConcurrency)
	worker.Run(ctx)
	log.Info("worker stopped")
}
