package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/sheetclock/internal/reconcile"
	"github.com/sadopc/sheetclock/internal/sheets"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDashboard viewState = iota
	viewHistory
	viewReports
	viewSettings
)

var viewNames = []string{"Dashboard", "History", "Reports", "Settings"}

// --- Messages ---

// tickMsg is one timer tick, tagged with the generation that scheduled it.
type tickMsg struct {
	gen int
	at  time.Time
}

type fetchedMsg struct {
	res reconcile.FetchResult
}

type syncEventMsg struct {
	ev reconcile.Event
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

type sessionDeletedMsg struct {
	id  string
	res sheets.Result
	err error
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
