package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sadopc/sheetclock/internal/store"
)

const (
	maxListLimit = 500
	dayLayout    = "2006-01-02"
)

func (s *Server) handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, MeJSON{UserID: c.GetString(userKey)})
}

func (s *Server) handleGetRunning(c *gin.Context) {
	st, err := s.store.LoadRunning(c.Request.Context(), c.GetString(userKey))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, stateToJSON(st))
}

func (s *Server) handlePutRunning(c *gin.Context) {
	var body RunningJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if body.Running && (body.Draft == nil || !body.Draft.valid()) {
		badRequest(c, "running state needs a draft with id, title and startedAt")
		return
	}
	if err := s.store.SaveRunning(c.Request.Context(), c.GetString(userKey), body.state()); err != nil {
		abortError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStart(c *gin.Context) {
	var body DraftJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !body.valid() {
		badRequest(c, "draft needs id, title and startedAt")
		return
	}
	res, err := s.svc.Start(c.Request.Context(), c.GetString(userKey), body.draft())
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultToJSON(res))
}

func (s *Server) handleUpdate(c *gin.Context) {
	var body UpdateRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !body.Draft.valid() {
		badRequest(c, "draft needs id, title and startedAt")
		return
	}
	res, err := s.svc.Update(c.Request.Context(), c.GetString(userKey), body.Draft.draft(), max(body.ElapsedSeconds, 0))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultToJSON(res))
}

func (s *Server) handleCancel(c *gin.Context) {
	var body CancelRequest
	if err := c.ShouldBindJSON(&body); err != nil || body.ID == "" {
		badRequest(c, "id is required")
		return
	}
	res, err := s.svc.Cancel(c.Request.Context(), c.GetString(userKey), body.ID)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultToJSON(res))
}

func (s *Server) handleListSessions(c *gin.Context) {
	limit := queryLimit(c, 50)
	list, err := s.store.ListSessions(c.Request.Context(), store.SessionFilter{
		UserID:  c.GetString(userKey),
		Project: c.Query("project"),
		Limit:   limit,
	})
	if err != nil {
		abortError(c, err)
		return
	}
	out := make([]SessionJSON, len(list))
	for i, ss := range list {
		out[i] = sessionToJSON(ss)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleComplete(c *gin.Context) {
	var body SessionJSON
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err.Error())
		return
	}
	if body.ID == "" || body.Title == "" || body.StartedAt.IsZero() || body.EndedAt.IsZero() {
		badRequest(c, "session needs id, title, startedAt and endedAt")
		return
	}
	log, err := s.svc.Complete(c.Request.Context(), c.GetString(userKey), body.session())
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, syncLogToJSON(*log))
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	res, err := s.svc.Delete(c.Request.Context(), c.GetString(userKey), c.Param("id"))
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, resultToJSON(res))
}

// handleSummary reports daily totals for the UTC days in [from, to).
func (s *Server) handleSummary(c *gin.Context) {
	from, err := time.Parse(dayLayout, c.Query("from"))
	if err != nil {
		badRequest(c, "from must be a date like 2006-01-02")
		return
	}
	to, err := time.Parse(dayLayout, c.Query("to"))
	if err != nil || !to.After(from) {
		badRequest(c, "to must be a date after from")
		return
	}
	rows, err := s.store.GetDailySummary(c.GetString(userKey), from, to)
	if err != nil {
		abortError(c, err)
		return
	}
	out := make([]SummaryJSON, len(rows))
	for i, r := range rows {
		out[i] = SummaryJSON(r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleListSyncLogs(c *gin.Context) {
	logs, err := s.store.ListSyncLogs(c.Request.Context(), store.SyncLogFilter{
		UserID: c.GetString(userKey),
		Status: store.SyncStatus(c.Query("status")),
		Limit:  queryLimit(c, 50),
	})
	if err != nil {
		abortError(c, err)
		return
	}
	out := make([]SyncLogJSON, len(logs))
	for i, l := range logs {
		out[i] = syncLogToJSON(l)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRetry(c *gin.Context) {
	ctx := c.Request.Context()
	l, err := s.store.GetSyncLog(ctx, c.Param("id"))
	if err == nil && l.UserID != c.GetString(userKey) {
		err = store.ErrNotFound
	}
	if err != nil {
		abortError(c, err)
		return
	}
	l, err = s.svc.Retry(ctx, l.ID)
	if err != nil {
		abortError(c, err)
		return
	}
	c.JSON(http.StatusOK, syncLogToJSON(*l))
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, maxListLimit)
}
