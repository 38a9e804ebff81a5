// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// TicketIDKey is the context key for the ticket being processed
	TicketIDKey contextKey = "ticket_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id and ticket_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if ticketID, ok := ctx.Value(TicketIDKey).(string); ok && ticketID != "" {
		newLogger = newLogger.WithTicketID(ticketID)
	}

	return newLogger
}

// WithTicketID returns a logger scoped to one ticket's pipeline.
func (l *Logger) WithTicketID(ticketID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("ticket_id", ticketID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// ExternalCall logs an outbound call to a provider (maps, voice, logistics, model).
func (l *Logger) ExternalCall(provider, operation string, latencyMs int64, err error) {
	if err != nil {
		l.Warn("external_call",
			slog.String("provider", provider),
			slog.String("operation", operation),
			slog.Int64("latency_ms", latencyMs),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Info("external_call",
		slog.String("provider", provider),
		slog.String("operation", operation),
		slog.Int64("latency_ms", latencyMs),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
