package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sadopc/sheetclock/internal/store"
)

const (
	DefaultRetryInterval = time.Minute
	DefaultMaxRetries    = 5
	DefaultRetryBatch    = 20
)

// RetryScheduler periodically retries failed completion syncs.
type RetryScheduler struct {
	svc        *SyncService
	logger     *slog.Logger
	interval   time.Duration
	maxRetries int
	batchSize  int
}

func NewRetryScheduler(svc *SyncService, logger *slog.Logger, interval time.Duration, maxRetries int) *RetryScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultRetryInterval
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &RetryScheduler{
		svc:        svc,
		logger:     logger,
		interval:   interval,
		maxRetries: maxRetries,
		batchSize:  DefaultRetryBatch,
	}
}

// Start runs until ctx is canceled.
func (rs *RetryScheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	rs.logger.Info("retry scheduler started",
		"interval", rs.interval,
		"max_retries", rs.maxRetries,
	)

	for {
		select {
		case <-ticker.C:
			if _, err := rs.ProcessRetries(ctx); err != nil {
				rs.logger.Error("failed to process retries", "error", err)
			}
		case <-ctx.Done():
			rs.logger.Info("retry scheduler stopped")
			return
		}
	}
}

// ProcessRetries retries one batch of failed logs and returns how many
// succeeded.
func (rs *RetryScheduler) ProcessRetries(ctx context.Context) (int, error) {
	logs, err := rs.svc.repo.ListRetryableSyncLogs(ctx, rs.maxRetries, rs.batchSize)
	if err != nil {
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}

	rs.logger.Debug("processing sync retries", "count", len(logs))

	ok := 0
	for _, l := range logs {
		if ctx.Err() != nil {
			return ok, ctx.Err()
		}
		updated, err := rs.svc.Retry(ctx, l.ID)
		if err != nil {
			rs.logger.Error("failed to retry sync", "log_id", l.ID, "error", err)
			continue
		}
		if updated.Status == store.SyncSuccess {
			ok++
			continue
		}
		rs.logger.Warn("sync retry failed",
			"log_id", l.ID,
			"session_id", l.SessionID,
			"retry_count", updated.RetryCount,
			"reason", updated.Reason,
		)
	}
	return ok, nil
}
