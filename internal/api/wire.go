package api

import (
	"time"

	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/store"
)

// DraftJSON is the wire form of session.Draft.
type DraftJSON struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartedAt time.Time `json:"startedAt"`
	Project   string    `json:"project,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Skill     string    `json:"skill,omitempty"`
	Intensity string    `json:"intensity,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

// RunningJSON is the wire form of session.State. Idle is {"running":false}.
type RunningJSON struct {
	Running        bool       `json:"running"`
	Draft          *DraftJSON `json:"draft,omitempty"`
	ElapsedSeconds int64      `json:"elapsedSeconds,omitempty"`
}

type SessionJSON struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	StartedAt       time.Time `json:"startedAt"`
	EndedAt         time.Time `json:"endedAt"`
	DurationSeconds int64     `json:"durationSeconds"`
	Project         string    `json:"project,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Skill           string    `json:"skill,omitempty"`
	Intensity       string    `json:"intensity,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

type UpdateRequest struct {
	Draft          DraftJSON `json:"draft"`
	ElapsedSeconds int64     `json:"elapsedSeconds"`
}

type CancelRequest struct {
	ID string `json:"id"`
}

type ResultJSON struct {
	Status       string `json:"status"`
	Row          int    `json:"row,omitempty"`
	UpdatedRange string `json:"updatedRange,omitempty"`
	UpdatedCells int    `json:"updatedCells,omitempty"`
	Appended     bool   `json:"appended,omitempty"`
}

type SyncLogJSON struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	Operation  string    `json:"operation"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	RetryCount int       `json:"retryCount"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// SummaryJSON is one day's total for one project.
type SummaryJSON struct {
	Date         string `json:"date"`
	Project      string `json:"project"`
	TotalSeconds int64  `json:"totalSeconds"`
	SessionCount int    `json:"sessionCount"`
}

type MeJSON struct {
	UserID string `json:"userId"`
}

// ErrorJSON carries a machine-readable code next to the message.
type ErrorJSON struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func draftToJSON(d session.Draft) DraftJSON {
	return DraftJSON{
		ID:        d.ID,
		Title:     d.Title,
		StartedAt: d.StartedAt,
		Project:   d.Project,
		Tags:      d.Tags,
		Skill:     d.Skill,
		Intensity: string(d.Intensity),
		Notes:     d.Notes,
	}
}

func (d DraftJSON) draft() session.Draft {
	return session.Draft{
		ID:        d.ID,
		Title:     d.Title,
		StartedAt: d.StartedAt.UTC(),
		Project:   d.Project,
		Tags:      session.NormalizeTags(d.Tags),
		Skill:     d.Skill,
		Intensity: session.ParseIntensity(d.Intensity),
		Notes:     d.Notes,
	}
}

func (d DraftJSON) valid() bool {
	return d.ID != "" && d.Title != "" && !d.StartedAt.IsZero()
}

func stateToJSON(st session.State) RunningJSON {
	r := session.AsRunning(st)
	if r == nil {
		return RunningJSON{}
	}
	d := draftToJSON(r.Draft)
	return RunningJSON{Running: true, Draft: &d, ElapsedSeconds: r.ElapsedSeconds}
}

func (r RunningJSON) state() session.State {
	if !r.Running || r.Draft == nil {
		return session.Idle{}
	}
	return &session.Running{Draft: r.Draft.draft(), ElapsedSeconds: max(r.ElapsedSeconds, 0)}
}

func sessionToJSON(s session.Session) SessionJSON {
	return SessionJSON{
		ID:              s.ID,
		Title:           s.Title,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		DurationSeconds: s.DurationSeconds,
		Project:         s.Project,
		Tags:            s.Tags,
		Skill:           s.Skill,
		Intensity:       string(s.Intensity),
		Notes:           s.Notes,
	}
}

func (s SessionJSON) session() session.Session {
	return session.Session{
		ID:              s.ID,
		Title:           s.Title,
		StartedAt:       s.StartedAt.UTC(),
		EndedAt:         s.EndedAt.UTC(),
		DurationSeconds: max(s.DurationSeconds, 1),
		Project:         s.Project,
		Tags:            session.NormalizeTags(s.Tags),
		Skill:           s.Skill,
		Intensity:       session.ParseIntensity(s.Intensity),
		Notes:           s.Notes,
	}
}

func resultToJSON(r sheets.Result) ResultJSON {
	return ResultJSON{
		Status:       string(r.Status),
		Row:          r.Row,
		UpdatedRange: r.UpdatedRange,
		UpdatedCells: r.UpdatedCells,
		Appended:     r.Appended,
	}
}

func (r ResultJSON) result() sheets.Result {
	return sheets.Result{
		Status:       sheets.ResultStatus(r.Status),
		Row:          r.Row,
		UpdatedRange: r.UpdatedRange,
		UpdatedCells: r.UpdatedCells,
		Appended:     r.Appended,
	}
}

func syncLogToJSON(l store.SyncLog) SyncLogJSON {
	return SyncLogJSON{
		ID:         l.ID,
		SessionID:  l.SessionID,
		Operation:  l.Operation,
		Status:     string(l.Status),
		Reason:     l.Reason,
		RetryCount: l.RetryCount,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}

func (l SyncLogJSON) syncLog(userID string) store.SyncLog {
	return store.SyncLog{
		ID:         l.ID,
		UserID:     userID,
		SessionID:  l.SessionID,
		Operation:  l.Operation,
		Status:     store.SyncStatus(l.Status),
		Reason:     l.Reason,
		RetryCount: l.RetryCount,
		CreatedAt:  l.CreatedAt,
		UpdatedAt:  l.UpdatedAt,
	}
}
