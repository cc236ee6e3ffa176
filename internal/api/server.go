// Package api serves the running-session mirror and the sync operations over
// HTTP, and provides the matching client.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sadopc/sheetclock/internal/identity"
	"github.com/sadopc/sheetclock/internal/service"
	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/store"
)

const userKey = "user_id"

// Store is the part of the database the handlers read directly.
type Store interface {
	LoadRunning(ctx context.Context, userID string) (session.State, error)
	SaveRunning(ctx context.Context, userID string, st session.State) error
	ListSessions(ctx context.Context, f store.SessionFilter) ([]session.Session, error)
	GetDailySummary(userID string, from, to time.Time) ([]store.DailySummary, error)
	ListSyncLogs(ctx context.Context, f store.SyncLogFilter) ([]store.SyncLog, error)
	GetSyncLog(ctx context.Context, id string) (*store.SyncLog, error)
}

type Server struct {
	store    Store
	svc      *service.SyncService
	verifier identity.Verifier
	logger   *slog.Logger
	router   *gin.Engine
}

func NewServer(st Store, svc *service.SyncService, verifier identity.Verifier, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		store:    st,
		svc:      svc,
		verifier: verifier,
		logger:   logger,
		router:   router,
	}
	router.Use(s.requestLog)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api", s.authenticate)
	{
		api.GET("/me", s.handleMe)
		api.GET("/running", s.handleGetRunning)
		api.PUT("/running", s.handlePutRunning)
		api.POST("/running/start", s.handleStart)
		api.POST("/running/update", s.handleUpdate)
		api.POST("/running/cancel", s.handleCancel)
		api.GET("/sessions", s.handleListSessions)
		api.POST("/sessions/complete", s.handleComplete)
		api.DELETE("/sessions/:id", s.handleDeleteSession)
		api.GET("/summary", s.handleSummary)
		api.GET("/sync-logs", s.handleListSyncLogs)
		api.POST("/sync-logs/:id/retry", s.handleRetry)
	}

	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) authenticate(c *gin.Context) {
	token := identity.BearerToken(c.GetHeader("Authorization"))
	userID, err := s.verifier.Verify(c.Request.Context(), token)
	if err != nil {
		abortError(c, err)
		return
	}
	c.Set(userKey, userID)
	c.Next()
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("api request",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"status", c.Writer.Status(),
		"duration_ms", time.Since(start).Milliseconds(),
		"user_id", c.GetString(userKey),
	)
}
