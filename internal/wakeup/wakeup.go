// Package wakeup handles reminder tickets: a wake-up call scheduled for a
// requested time instead of the vendor-calling pipeline.
package wakeup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voicecommerce_backend/platform/apperr"
	"voicecommerce_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schedule is one pending or completed reminder call.
type Schedule struct {
	ID        uuid.UUID
	TicketID  string
	Phone     string
	Name      string
	Message   string
	RemindAt  time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	StatusScheduled = "scheduled"
	StatusCalled    = "called"
	StatusFailed    = "failed"
)

// Repository provides database operations for reminder schedules.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a reminder-schedule repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a scheduled reminder.
func (r *Repository) Create(ctx context.Context, s *Schedule) error {
	query := `
		INSERT INTO scheduled_calls (id, ticket_id, phone, name, message, remind_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.pool.Exec(ctx, query,
		s.ID, s.TicketID, s.Phone, s.Name, s.Message, s.RemindAt, s.Status); err != nil {
		return fmt.Errorf("failed to insert scheduled call: %w", err)
	}
	return nil
}

// GetByID loads a reminder schedule.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	var s Schedule
	err := r.pool.QueryRow(ctx, `
		SELECT id, ticket_id, phone, name, message, remind_at, status, created_at, updated_at
		FROM scheduled_calls WHERE id = $1`, id).Scan(
		&s.ID, &s.TicketID, &s.Phone, &s.Name, &s.Message, &s.RemindAt, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("scheduled call not found")
		}
		return nil, fmt.Errorf("failed to get scheduled call: %w", err)
	}
	return &s, nil
}

// SetStatus updates a schedule's status.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if _, err := r.pool.Exec(ctx,
		`UPDATE scheduled_calls SET status = $2, updated_at = now() WHERE id = $1`, id, status); err != nil {
		return fmt.Errorf("failed to update scheduled call status: %w", err)
	}
	return nil
}

// ReminderCaller places the actual wake-up call.
type ReminderCaller interface {
	PlaceReminderCall(ctx context.Context, toPhone, name, message string) (string, error)
}

// CallScheduler enqueues the reminder at its due time.
type CallScheduler interface {
	ScheduleWakeupCall(ctx context.Context, scheduleID uuid.UUID, runAt time.Time) error
}

// Service books and later places reminder calls.
type Service struct {
	repo      *Repository
	caller    ReminderCaller
	scheduler CallScheduler
	log       *logger.Logger
}

// NewService wires the wakeup service.
func NewService(repo *Repository, caller ReminderCaller, scheduler CallScheduler, log *logger.Logger) *Service {
	return &Service{repo: repo, caller: caller, scheduler: scheduler, log: log}
}

// Schedule stores the reminder and enqueues it. Past or unparseable times get
// a call right away rather than silently never firing.
func (s *Service) Schedule(ctx context.Context, ticketID, phone, name, message string, remindAt time.Time) (*Schedule, error) {
	if remindAt.Before(time.Now()) {
		remindAt = time.Now().Add(time.Minute)
	}

	schedule := &Schedule{
		ID:       uuid.New(),
		TicketID: ticketID,
		Phone:    phone,
		Name:     name,
		Message:  message,
		RemindAt: remindAt,
		Status:   StatusScheduled,
	}
	if err := s.repo.Create(ctx, schedule); err != nil {
		return nil, err
	}
	if err := s.scheduler.ScheduleWakeupCall(ctx, schedule.ID, remindAt); err != nil {
		return nil, fmt.Errorf("failed to enqueue wake-up call: %w", err)
	}

	s.log.WithTicketID(ticketID).Info("reminder call scheduled", "remind_at", remindAt)
	return schedule, nil
}

// PlaceWakeupCall runs when the schedule comes due. Already-handled schedules
// are skipped so task redelivery stays harmless.
func (s *Service) PlaceWakeupCall(ctx context.Context, scheduleID uuid.UUID) error {
	schedule, err := s.repo.GetByID(ctx, scheduleID)
	if err != nil {
		return err
	}
	if schedule.Status != StatusScheduled {
		return nil
	}

	if _, err := s.caller.PlaceReminderCall(ctx, schedule.Phone, schedule.Name, schedule.Message); err != nil {
		if statusErr := s.repo.SetStatus(ctx, scheduleID, StatusFailed); statusErr != nil {
			s.log.Error("failed to mark scheduled call failed", "error", statusErr)
		}
		return err
	}
	return s.repo.SetStatus(ctx, scheduleID, StatusCalled)
}
