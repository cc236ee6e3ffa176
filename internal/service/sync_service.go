// Package service exposes the spreadsheet sync operations per user: the
// running-row lifecycle, completion with a durable sync log, and deletion.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/store"
)

// ErrNotConfigured is returned when the user has no usable spreadsheet
// connection. It is the same sentinel every *sheets.ConfigError matches.
var ErrNotConfigured = sheets.ErrNotConfigured

// ErrNotFound is returned for sessions or logs the caller does not own.
var ErrNotFound = store.ErrNotFound

const opComplete = "complete"

// Repository is the slice of the store the service needs.
type Repository interface {
	GetConnection(ctx context.Context, userID string) (*store.Connection, error)
	SaveSession(ctx context.Context, userID string, s session.Session) error
	GetSession(ctx context.Context, id string) (*session.Session, error)
	SessionOwner(ctx context.Context, id string) (string, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context, f store.SessionFilter) ([]session.Session, error)
	GetDailySummary(userID string, from, to time.Time) ([]store.DailySummary, error)
	CreateSyncLog(ctx context.Context, l *store.SyncLog) error
	UpdateSyncLog(ctx context.Context, l *store.SyncLog) error
	GetSyncLog(ctx context.Context, id string) (*store.SyncLog, error)
	ListRetryableSyncLogs(ctx context.Context, maxRetries, limit int) ([]store.SyncLog, error)
}

type SyncService struct {
	repo     Repository
	client   sheets.Client
	logger   *slog.Logger
	observer UseCaseObserver
}

// NewSyncService wires the service. A nil client leaves every spreadsheet call
// failing with ErrNotConfigured while completions are still stored locally.
func NewSyncService(repo Repository, client sheets.Client, logger *slog.Logger, observers ...UseCaseObserver) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		repo:     repo,
		client:   client,
		logger:   logger,
		observer: useCaseObserverOrNoop(observers),
	}
}

// Start appends the Running row for a new draft.
func (s *SyncService) Start(ctx context.Context, userID string, d session.Draft) (res sheets.Result, err error) {
	defer s.observe(ctx, "start", userID, d.ID, time.Now(), &res, &err)
	u, err := s.upserter(ctx, userID)
	if err != nil {
		return sheets.Result{}, err
	}
	return u.Start(ctx, d)
}

// Update rewrites the Running row of an edited draft.
func (s *SyncService) Update(ctx context.Context, userID string, d session.Draft, elapsed int64) (res sheets.Result, err error) {
	defer s.observe(ctx, "update", userID, d.ID, time.Now(), &res, &err)
	u, err := s.upserter(ctx, userID)
	if err != nil {
		return sheets.Result{}, err
	}
	return u.Update(ctx, d, elapsed)
}

// Cancel removes the Running row of a discarded draft.
func (s *SyncService) Cancel(ctx context.Context, userID, id string) (res sheets.Result, err error) {
	defer s.observe(ctx, "cancel", userID, id, time.Now(), &res, &err)
	u, err := s.upserter(ctx, userID)
	if err != nil {
		return sheets.Result{}, err
	}
	return u.Cancel(ctx, id)
}

// Complete stores the finished session and pushes it to the spreadsheet. The
// returned log records the attempt; a spreadsheet failure is not an error here
// because the session itself is safe and the retry scheduler picks it up.
func (s *SyncService) Complete(ctx context.Context, userID string, done session.Session) (*store.SyncLog, error) {
	started := time.Now()
	if err := s.repo.SaveSession(ctx, userID, done); err != nil {
		s.observer.ObserveUseCase(ctx, UseCaseEvent{Name: opComplete, UserID: userID, SessionID: done.ID, Duration: time.Since(started), Err: err})
		return nil, fmt.Errorf("complete session: %w", err)
	}
	log := &store.SyncLog{
		UserID:    userID,
		SessionID: done.ID,
		Operation: opComplete,
		Status:    store.SyncPending,
	}
	if err := s.repo.CreateSyncLog(ctx, log); err != nil {
		return nil, fmt.Errorf("complete session: %w", err)
	}
	s.attempt(ctx, log, done)
	if err := s.repo.UpdateSyncLog(ctx, log); err != nil {
		return log, fmt.Errorf("record sync result: %w", err)
	}
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      opComplete,
		UserID:    userID,
		SessionID: done.ID,
		Duration:  time.Since(started),
		Status:    string(log.Status),
	})
	return log, nil
}

// Retry repeats a failed or not-configured completion. Succeeded logs are
// returned unchanged.
func (s *SyncService) Retry(ctx context.Context, logID string) (*store.SyncLog, error) {
	log, err := s.repo.GetSyncLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if log.Status == store.SyncSuccess {
		return log, nil
	}
	done, err := s.repo.GetSession(ctx, log.SessionID)
	if err != nil {
		return nil, err
	}
	log.RetryCount++
	s.attempt(ctx, log, *done)
	if err := s.repo.UpdateSyncLog(ctx, log); err != nil {
		return log, fmt.Errorf("record sync result: %w", err)
	}
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      "retry",
		UserID:    log.UserID,
		SessionID: log.SessionID,
		Status:    string(log.Status),
	})
	return log, nil
}

// Delete removes a completed session from the spreadsheet and then locally.
// Without a spreadsheet connection only the local copy is removed. A remote
// failure keeps the local copy so the delete can be repeated.
func (s *SyncService) Delete(ctx context.Context, userID, id string) (res sheets.Result, err error) {
	defer s.observe(ctx, "delete", userID, id, time.Now(), &res, &err)
	owner, err := s.repo.SessionOwner(ctx, id)
	if err != nil {
		return sheets.Result{}, err
	}
	if owner != userID {
		return sheets.Result{}, fmt.Errorf("delete session %s: %w", id, ErrNotFound)
	}

	res = sheets.Result{Status: sheets.StatusSkipped}
	u, err := s.upserter(ctx, userID)
	switch {
	case errors.Is(err, ErrNotConfigured):
		s.logger.Info("spreadsheet not configured, deleting local copy only", "session_id", id)
	case err != nil:
		return sheets.Result{}, err
	default:
		if res, err = u.Delete(ctx, id); err != nil {
			return sheets.Result{}, err
		}
	}
	if err := s.repo.DeleteSession(ctx, id); err != nil {
		return sheets.Result{}, err
	}
	return res, nil
}

// ForUser binds the service to one user.
func (s *SyncService) ForUser(userID string) *UserSync {
	return &UserSync{svc: s, userID: userID}
}

func (s *SyncService) attempt(ctx context.Context, log *store.SyncLog, done session.Session) {
	u, err := s.upserter(ctx, log.UserID)
	if err == nil {
		_, err = u.Complete(ctx, done)
	}
	switch {
	case errors.Is(err, ErrNotConfigured):
		log.Status = store.SyncNotConfigured
		log.Reason = err.Error()
	case err != nil:
		log.Status = store.SyncFailed
		log.Reason = err.Error()
	default:
		log.Status = store.SyncSuccess
		log.Reason = ""
	}
}

func (s *SyncService) upserter(ctx context.Context, userID string) (*sheets.Upserter, error) {
	conn, err := s.repo.GetConnection(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &sheets.ConfigError{Reason: "no spreadsheet connection"}
	}
	if err != nil {
		return nil, fmt.Errorf("load connection: %w", err)
	}
	cfg, err := conn.SheetConfig()
	if err != nil {
		return nil, err
	}
	if s.client == nil {
		return nil, &sheets.ConfigError{Reason: "no spreadsheet credentials"}
	}
	return sheets.NewUpserter(s.client, cfg, s.logger), nil
}

func (s *SyncService) observe(ctx context.Context, name, userID, sessionID string, started time.Time, res *sheets.Result, err *error) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		UserID:    userID,
		SessionID: sessionID,
		Duration:  time.Since(started),
		Status:    string(res.Status),
		Err:       *err,
	})
}

// UserSync is a SyncService bound to one user. It satisfies the sheet port of
// the reconcile package.
type UserSync struct {
	svc    *SyncService
	userID string
}

func (u *UserSync) Start(ctx context.Context, d session.Draft) (sheets.Result, error) {
	return u.svc.Start(ctx, u.userID, d)
}

func (u *UserSync) Update(ctx context.Context, d session.Draft, elapsed int64) (sheets.Result, error) {
	return u.svc.Update(ctx, u.userID, d, elapsed)
}

func (u *UserSync) Cancel(ctx context.Context, id string) (sheets.Result, error) {
	return u.svc.Cancel(ctx, u.userID, id)
}

// Complete stores the session and reports a failed spreadsheet write as an
// error. The session stays stored either way.
func (u *UserSync) Complete(ctx context.Context, done session.Session) (sheets.Result, error) {
	log, err := u.svc.Complete(ctx, u.userID, done)
	if err != nil {
		return sheets.Result{}, err
	}
	return CompletionResult(log)
}

// CompletionResult turns a completion's sync log into the result the sheet
// port reports.
func CompletionResult(log *store.SyncLog) (sheets.Result, error) {
	switch log.Status {
	case store.SyncNotConfigured:
		return sheets.Result{}, &sheets.ConfigError{Reason: log.Reason}
	case store.SyncFailed:
		return sheets.Result{}, fmt.Errorf("sheet sync failed: %s", log.Reason)
	}
	return sheets.Result{Status: sheets.StatusOK}, nil
}

func (u *UserSync) Delete(ctx context.Context, id string) (sheets.Result, error) {
	return u.svc.Delete(ctx, u.userID, id)
}

// ListSessions returns the user's most recent completed sessions.
func (u *UserSync) ListSessions(ctx context.Context, limit int) ([]session.Session, error) {
	return u.svc.repo.ListSessions(ctx, store.SessionFilter{UserID: u.userID, Limit: limit})
}

func (u *UserSync) DailySummary(_ context.Context, from, to time.Time) ([]store.DailySummary, error) {
	return u.svc.repo.GetDailySummary(u.userID, from, to)
}
