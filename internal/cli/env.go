package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/sheetclock/internal/api"
	"github.com/sadopc/sheetclock/internal/config"
	"github.com/sadopc/sheetclock/internal/identity"
	"github.com/sadopc/sheetclock/internal/reconcile"
	"github.com/sadopc/sheetclock/internal/service"
	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/store"
	"github.com/sadopc/sheetclock/internal/tui"
)

// env is everything one command invocation works against. In local mode the
// sync service drives the spreadsheet directly; with remote.url set the API
// client stands in for the mirror, the sheet and the history.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	svc    *service.SyncService
	remote *api.Client

	userID  string
	authErr error

	closers []io.Closer
}

func (a *App) openEnv(cmd *cobra.Command, interactive bool) (*env, error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg}

	logOut := a.LogOutput
	if logOut == nil {
		logOut = cmd.ErrOrStderr()
	}
	if interactive {
		f, err := openLogFile(cfg.Log.Path)
		if err != nil {
			return nil, err
		}
		e.closers = append(e.closers, f)
		logOut = f
	}
	e.logger = slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	e.store, err = store.New(cfg.Database.Path)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.closers = append(e.closers, e.store)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Sync.TimeoutDuration())
	defer cancel()

	if cfg.Remote.URL != "" {
		e.remote = api.NewClient(cfg.Remote.URL, cfg.User.Token, nil)
		e.userID, e.authErr = e.remote.Verify(ctx, cfg.User.Token)
		return e, nil
	}

	client, err := newSheetsClient(ctx, cfg.Google)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.svc = service.NewSyncService(e.store, client, e.logger, service.NewLogUseCaseObserver(e.logger))

	verifier := identity.NewStaticVerifier(cfg.Auth.Grants())
	e.userID, e.authErr = verifier.Verify(ctx, cfg.User.Token)
	if e.signedIn() {
		if err := seedConnection(ctx, e.store, e.userID, cfg.Sheet); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}

func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i].Close()
	}
	e.closers = nil
}

func (e *env) signedIn() bool {
	return e.userID != ""
}

// requireUser fails commands that act on a user's data while signed out.
func (e *env) requireUser() error {
	if e.signedIn() {
		return nil
	}
	return fmt.Errorf("not signed in (check user.token): %w", e.authErr)
}

func (e *env) mirror() reconcile.Mirror {
	if e.remote != nil {
		return e.remote
	}
	return e.store.Mirror(e.userID)
}

func (e *env) sheet() reconcile.SheetSync {
	if e.remote != nil {
		return e.remote
	}
	return e.svc.ForUser(e.userID)
}

func (e *env) records() tui.Records {
	if e.remote != nil {
		return e.remote
	}
	return e.svc.ForUser(e.userID)
}

// syncLogs is the sync-log surface shared by the local store and the API.
type syncLogs interface {
	ListSyncLogs(ctx context.Context, status store.SyncStatus, limit int) ([]store.SyncLog, error)
	Retry(ctx context.Context, logID string) (*store.SyncLog, error)
}

func (e *env) syncLogs() syncLogs {
	if e.remote != nil {
		return e.remote
	}
	return localSyncLogs{store: e.store, svc: e.svc, userID: e.userID}
}

// todayTotal is the completed time since midnight UTC.
func (e *env) todayTotal(ctx context.Context) (int64, error) {
	if e.remote == nil {
		return e.store.GetTodayTotal(e.userID)
	}
	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := e.remote.DailySummary(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range rows {
		total += r.TotalSeconds
	}
	return total, nil
}

type localSyncLogs struct {
	store  *store.Store
	svc    *service.SyncService
	userID string
}

func (l localSyncLogs) ListSyncLogs(ctx context.Context, status store.SyncStatus, limit int) ([]store.SyncLog, error) {
	return l.store.ListSyncLogs(ctx, store.SyncLogFilter{UserID: l.userID, Status: status, Limit: limit})
}

func (l localSyncLogs) Retry(ctx context.Context, logID string) (*store.SyncLog, error) {
	log, err := l.store.GetSyncLog(ctx, logID)
	if err != nil {
		return nil, err
	}
	if log.UserID != l.userID {
		return nil, fmt.Errorf("sync log %s: %w", logID, store.ErrNotFound)
	}
	return l.svc.Retry(ctx, logID)
}

// newSheetsClient returns nil when no Google credential is configured; the
// service then reports every spreadsheet call as not configured.
func newSheetsClient(ctx context.Context, g config.GoogleConfig) (sheets.Client, error) {
	if !g.Enabled() {
		return nil, nil
	}
	c, err := sheets.NewGoogleClient(ctx, sheets.GoogleOptions{
		AccessToken:     g.AccessToken,
		CredentialsFile: g.CredentialsFile,
		Endpoint:        g.Endpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("google sheets: %w", err)
	}
	return c, nil
}

// seedConnection stores the configured sheet for userID unless the user
// already has one, so edits made in the UI survive restarts.
func seedConnection(ctx context.Context, st *store.Store, userID string, sc config.SheetConfig) error {
	if sc.SpreadsheetID == "" {
		return nil
	}
	_, err := st.GetConnection(ctx, userID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return st.SaveConnection(ctx, &store.Connection{
		UserID:         userID,
		SpreadsheetID:  sc.SpreadsheetID,
		SheetName:      sc.Name,
		Columns:        sc.Columns,
		Required:       sc.Required,
		TimeFormat:     sc.TimeFormat,
		Timezone:       sc.Timezone,
		ValueInput:     sc.ValueInput,
		DurationFormat: sc.DurationFormat,
	})
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// retryScheduler retries failed completions of the local sync service.
func (e *env) retryScheduler() *service.RetryScheduler {
	return service.NewRetryScheduler(e.svc, e.logger, e.cfg.Sync.RetryIntervalDuration(), e.cfg.Sync.MaxRetries)
}

// withRetries runs fn while rs works in the background. The scheduler is
// stopped and waited for before withRetries returns, so callers may close the
// store afterwards.
func withRetries(ctx context.Context, rs *service.RetryScheduler, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rs.Start(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()
	return fn(ctx)
}
