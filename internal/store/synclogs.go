package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const syncLogColumns = `id, user_id, session_id, operation, status, reason, retry_count, created_at, updated_at`

// CreateSyncLog inserts l, assigning an id and timestamps when missing.
func (s *Store) CreateSyncLog(ctx context.Context, l *SyncLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now
	if l.Status == "" {
		l.Status = SyncPending
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_logs (`+syncLogColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserID, l.SessionID, l.Operation, string(l.Status), l.Reason, l.RetryCount,
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create sync log: %w", err)
	}
	return nil
}

// UpdateSyncLog persists the status, reason and retry count of l.
func (s *Store) UpdateSyncLog(ctx context.Context, l *SyncLog) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE sync_logs SET status = ?, reason = ?, retry_count = ?, updated_at = ?
		WHERE id = ?`,
		string(l.Status), l.Reason, l.RetryCount, formatTime(l.UpdatedAt), l.ID,
	)
	if err != nil {
		return fmt.Errorf("update sync log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update sync log %s: %w", l.ID, ErrNotFound)
	}
	return nil
}

func (s *Store) GetSyncLog(ctx context.Context, id string) (*SyncLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+syncLogColumns+` FROM sync_logs WHERE id = ?`, id)
	l, err := scanSyncLog(row)
	if err != nil {
		return nil, fmt.Errorf("get sync log %s: %w", id, notFound(err))
	}
	return l, nil
}

func (s *Store) ListSyncLogs(ctx context.Context, f SyncLogFilter) ([]SyncLog, error) {
	query := `SELECT ` + syncLogColumns + ` FROM sync_logs WHERE 1=1`
	var args []any
	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}
	return s.querySyncLogs(ctx, query, args...)
}

// ListRetryableSyncLogs returns failed logs with fewer than maxRetries
// attempts, oldest first. Not-configured logs are never returned.
func (s *Store) ListRetryableSyncLogs(ctx context.Context, maxRetries, limit int) ([]SyncLog, error) {
	return s.querySyncLogs(ctx, `
		SELECT `+syncLogColumns+` FROM sync_logs
		WHERE status = ? AND retry_count < ?
		ORDER BY updated_at ASC
		LIMIT ?`,
		string(SyncFailed), maxRetries, limit,
	)
}

func (s *Store) querySyncLogs(ctx context.Context, query string, args ...any) ([]SyncLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var logs []SyncLog
	for rows.Next() {
		l, err := scanSyncLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func scanSyncLog(row rowScanner) (*SyncLog, error) {
	var (
		l                    SyncLog
		status               string
		createdAt, updatedAt string
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.SessionID, &l.Operation, &status, &l.Reason,
		&l.RetryCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	l.Status = SyncStatus(status)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}
