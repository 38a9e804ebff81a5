package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicecommerce_backend/internal/ai"
	"voicecommerce_backend/internal/calls"
	"voicecommerce_backend/internal/delivery"
	"voicecommerce_backend/internal/events"
	apphttp "voicecommerce_backend/internal/http"
	"voicecommerce_backend/internal/http/router"
	"voicecommerce_backend/internal/maps"
	"voicecommerce_backend/internal/scheduler"
	"voicecommerce_backend/internal/tickets"
	"voicecommerce_backend/internal/tickets/handler"
	ticketsrepo "voicecommerce_backend/internal/tickets/repository"
	"voicecommerce_backend/internal/tickets/service"
	"voicecommerce_backend/internal/vendors"
	"voicecommerce_backend/internal/wakeup"
	"voicecommerce_backend/migrations"
	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/db"
	"voicecommerce_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus()

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
	mapsService := maps.NewService(cfg, log)
	voiceClient := calls.NewVoiceClient(cfg, log)
	logisticsClient := delivery.NewLogisticsClient(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	ticketRepo := ticketsrepo.New(pool)
	vendorRepo := vendors.NewRepository(pool)
	callRepo := calls.NewRepository(pool)
	deliveryRepo := delivery.NewRepository(pool)
	wakeupRepo := wakeup.NewRepository(pool)

	dispatcher := calls.NewDispatcher(callRepo, ticketRepo, voiceClient, aiService, schedClient, eventBus, cfg, log)
	discovery := vendors.NewDiscovery(mapsService, log)
	wakeupService := wakeup.NewService(wakeupRepo, voiceClient, schedClient, log)
	orchestrator := delivery.NewOrchestrator(deliveryRepo, ticketRepo, callRepo, vendorRepo, mapsService, logisticsClient, eventBus, cfg, log)

	ticketService := service.New(ticketRepo, aiService, mapsService, discovery, vendorRepo,
		dispatcher, wakeupService, eventBus, cfg, log)
	ticketHandler := handler.New(ticketService, orchestrator, deliveryRepo, log)

	registerEventLogging(eventBus, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			tickets.NewModule(ticketHandler),
			calls.NewModule(dispatcher, cfg, log),
			delivery.NewModule(orchestrator, cfg, log),
		},
	}

	engine := router.New(app)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: engine}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// registerEventLogging keeps an audit trail of lifecycle events in the logs.
func registerEventLogging(bus events.Bus, log *logger.Logger) {
	bus.Subscribe(events.EventTicketReceived, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.TicketReceived); ok {
			log.Info("ticket received", "ticket_id", evt.TicketID)
		}
		return nil
	}))
	bus.Subscribe(events.EventTicketFailed, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.TicketFailed); ok {
			log.Warn("ticket ended in failure", "ticket_id", evt.TicketID, "status", evt.Status, "reason", evt.Reason)
		}
		return nil
	}))
	bus.Subscribe(events.EventTicketCompleted, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.TicketCompleted); ok {
			log.Info("ticket completed", "ticket_id", evt.TicketID, "options", evt.OptionsCount)
		}
		return nil
	}))
	bus.Subscribe(events.EventOrderPlaced, events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		if evt, ok := e.(events.OrderPlaced); ok {
			log.Info("delivery order placed", "ticket_id", evt.TicketID, "carrier", evt.CarrierName)
		}
		return nil
	}))
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
