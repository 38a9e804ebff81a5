// Package scheduler schedules and runs delayed work through asynq: vendor
// call retries and wake-up reminder calls.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCallRetry = "calls.retry"

const TaskWakeupCall = "wakeup.call"

type CallRetryPayload struct {
	VendorCallID string `json:"vendorCallId"`
}

type WakeupCallPayload struct {
	ScheduleID string `json:"scheduleId"`
}

func NewCallRetryTask(payload CallRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallRetry, data), nil
}

func ParseCallRetryPayload(task *asynq.Task) (CallRetryPayload, error) {
	var payload CallRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallRetryPayload{}, err
	}
	return payload, nil
}

func NewWakeupCallTask(payload WakeupCallPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWakeupCall, data), nil
}

func ParseWakeupCallPayload(task *asynq.Task) (WakeupCallPayload, error) {
	var payload WakeupCallPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return WakeupCallPayload{}, err
	}
	return payload, nil
}
