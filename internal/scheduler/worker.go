package scheduler

import (
	"context"
	"fmt"

	"voicecommerce_backend/platform/config"
	"voicecommerce_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// CallRetrier re-dials a vendor call whose retry delay has elapsed.
type CallRetrier interface {
	RetryCall(ctx context.Context, vendorCallID uuid.UUID) error
}

// WakeupCaller places a due reminder call.
type WakeupCaller interface {
	PlaceWakeupCall(ctx context.Context, scheduleID uuid.UUID) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	retrier CallRetrier
	wakeup  WakeupCaller
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, retrier CallRetrier, wakeup WakeupCaller, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		retrier: retrier,
		wakeup:  wakeup,
		log:     log,
	}

	mux.HandleFunc(TaskCallRetry, w.handleCallRetry)
	mux.HandleFunc(TaskWakeupCall, w.handleWakeupCall)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleCallRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallRetryPayload(task)
	if err != nil {
		return err
	}

	vendorCallID, err := uuid.Parse(payload.VendorCallID)
	if err != nil {
		return err
	}

	return w.retrier.RetryCall(ctx, vendorCallID)
}

func (w *Worker) handleWakeupCall(ctx context.Context, task *asynq.Task) error {
	if w.wakeup == nil {
		return nil
	}

	payload, err := ParseWakeupCallPayload(task)
	if err != nil {
		return err
	}

	scheduleID, err := uuid.Parse(payload.ScheduleID)
	if err != nil {
		return err
	}

	return w.wakeup.PlaceWakeupCall(ctx, scheduleID)
}
