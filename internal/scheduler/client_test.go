package scheduler

import (
	"context"
	"testing"
	"time"

	"voicecommerce_backend/platform/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	mr := miniredis.RunT(t)
	return &config.Config{
		RedisURL:       "redis://" + mr.Addr(),
		AsynqQueueName: "test",
	}
}

func TestScheduleCallRetry(t *testing.T) {
	cfg := testConfig(t)
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	vendorCallID := uuid.New()
	if err := client.ScheduleCallRetry(context.Background(), vendorCallID, 2*time.Minute); err != nil {
		t.Fatalf("ScheduleCallRetry: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisURL[len("redis://"):]})
	defer inspector.Close()

	scheduled, err := inspector.ListScheduledTasks("test")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(scheduled))
	}
	if scheduled[0].Type != TaskCallRetry {
		t.Errorf("task type = %s, want %s", scheduled[0].Type, TaskCallRetry)
	}

	payload, err := ParseCallRetryPayload(asynq.NewTask(scheduled[0].Type, scheduled[0].Payload))
	if err != nil {
		t.Fatalf("ParseCallRetryPayload: %v", err)
	}
	if payload.VendorCallID != vendorCallID.String() {
		t.Errorf("vendor call id = %s, want %s", payload.VendorCallID, vendorCallID)
	}
}

func TestScheduleWakeupCall(t *testing.T) {
	cfg := testConfig(t)
	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	scheduleID := uuid.New()
	runAt := time.Now().Add(8 * time.Hour)
	if err := client.ScheduleWakeupCall(context.Background(), scheduleID, runAt); err != nil {
		t.Fatalf("ScheduleWakeupCall: %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisURL[len("redis://"):]})
	defer inspector.Close()

	scheduled, err := inspector.ListScheduledTasks("test")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(scheduled))
	}
	if scheduled[0].Type != TaskWakeupCall {
		t.Errorf("task type = %s, want %s", scheduled[0].Type, TaskWakeupCall)
	}
}

func TestCallRetryPayloadRoundTrip(t *testing.T) {
	task, err := NewCallRetryTask(CallRetryPayload{VendorCallID: "abc"})
	if err != nil {
		t.Fatalf("NewCallRetryTask: %v", err)
	}
	payload, err := ParseCallRetryPayload(task)
	if err != nil {
		t.Fatalf("ParseCallRetryPayload: %v", err)
	}
	if payload.VendorCallID != "abc" {
		t.Errorf("vendor call id = %s, want abc", payload.VendorCallID)
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(&config.Config{}); err == nil {
		t.Error("expected error when redis url is missing")
	}
}
