package service

import (
	"context"
	"log/slog"
	"time"
)

// UseCaseEvent describes one completed service call.
type UseCaseEvent struct {
	Name      string
	UserID    string
	SessionID string
	Duration  time.Duration
	Status    string
	Err       error
}

// UseCaseObserver receives use-case execution events.
type UseCaseObserver interface {
	ObserveUseCase(ctx context.Context, event UseCaseEvent)
}

// NoopUseCaseObserver ignores all events.
type NoopUseCaseObserver struct{}

func (NoopUseCaseObserver) ObserveUseCase(context.Context, UseCaseEvent) {}

type logUseCaseObserver struct {
	logger *slog.Logger
}

// NewLogUseCaseObserver reports events through logger.
func NewLogUseCaseObserver(logger *slog.Logger) UseCaseObserver {
	if logger == nil {
		return NoopUseCaseObserver{}
	}
	return &logUseCaseObserver{logger: logger}
}

func (o *logUseCaseObserver) ObserveUseCase(ctx context.Context, event UseCaseEvent) {
	attrs := []any{
		"use_case", event.Name,
		"user_id", event.UserID,
		"session_id", event.SessionID,
		"duration_ms", event.Duration.Milliseconds(),
	}
	if event.Status != "" {
		attrs = append(attrs, "status", event.Status)
	}
	if event.Err != nil {
		attrs = append(attrs, "error", event.Err.Error())
		o.logger.WarnContext(ctx, "sync_use_case", attrs...)
		return
	}
	o.logger.InfoContext(ctx, "sync_use_case", attrs...)
}

func useCaseObserverOrNoop(observers []UseCaseObserver) UseCaseObserver {
	for _, obs := range observers {
		if obs != nil {
			return obs
		}
	}
	return NoopUseCaseObserver{}
}
