package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/store"
)

type dashboardModel struct {
	records Records
	now     func() time.Time
	width   int
	height  int

	todayTotal   int64
	todaySummary []store.DailySummary
	recent       []session.Session
	dailyGoal    int64
	loadErr      error
}

func newDashboardModel(r Records, now func() time.Time) dashboardModel {
	return dashboardModel{records: r, now: now}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

type dashboardDataMsg struct {
	todaySummary []store.DailySummary
	recent       []session.Session
	err          error
}

func (d dashboardModel) refresh() tea.Cmd {
	if d.records == nil {
		return nil
	}
	records, now := d.records, d.now
	return func() tea.Msg {
		ctx := context.Background()
		day := startOfDay(now())
		summary, err := records.DailySummary(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return dashboardDataMsg{err: err}
		}
		recent, err := records.ListSessions(ctx, 5)
		return dashboardDataMsg{todaySummary: summary, recent: recent, err: err}
	}
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(dashboardDataMsg); ok {
		d.loadErr = msg.err
		if msg.err != nil {
			return d, nil
		}
		d.todaySummary = msg.todaySummary
		d.recent = msg.recent
		d.todayTotal = 0
		for _, s := range msg.todaySummary {
			d.todayTotal += s.TotalSeconds
		}
	}
	return d, nil
}

func (d dashboardModel) view(st session.State, enabled bool) string {
	if d.width < 20 {
		return "Terminal too small"
	}

	contentWidth := d.width - 4

	return lipgloss.JoinVertical(lipgloss.Left,
		d.renderTimerPanel(contentWidth, st, enabled),
		d.renderSummaryPanel(contentWidth, st),
		d.renderRecentPanel(contentWidth),
	)
}

func (d dashboardModel) renderTimerPanel(w int, st session.State, enabled bool) string {
	r := session.AsRunning(st)
	if r == nil {
		indicator := mutedStyle.Render("■  STOPPED")
		hint := mutedStyle.Render("Press s to start tracking")
		if !enabled {
			indicator = warningStyle.Render("■  SIGNED OUT")
			hint = mutedStyle.Render("Set user.token in the config to track time")
		}
		content := lipgloss.JoinVertical(lipgloss.Center,
			timerStyle.Width(w-6).Render("00:00:00"),
			indicator,
			hint,
		)
		return panelStyle.Width(w).Render(content)
	}

	draft := r.Draft
	titleLine := highlightStyle.Render(draft.Title)
	if draft.Project != "" {
		titleLine += mutedStyle.Render(" / " + draft.Project)
	}

	var meta []string
	meta = append(meta, "since "+draft.StartedAt.Local().Format("15:04"))
	if len(draft.Tags) > 0 {
		meta = append(meta, "#"+strings.Join(draft.Tags, " #"))
	}
	if draft.Intensity != "" {
		meta = append(meta, string(draft.Intensity))
	}

	content := lipgloss.JoinVertical(lipgloss.Center,
		timerRunningStyle.Width(w-6).Render(formatSeconds(r.ElapsedSeconds)),
		successStyle.Render("●  RUNNING"),
		titleLine,
		mutedStyle.Render(strings.Join(meta, "  ")),
	)
	return activePanelStyle.Width(w).Render(content)
}

func (d dashboardModel) renderSummaryPanel(w int, st session.State) string {
	total := d.todayTotal
	if r := session.AsRunning(st); r != nil {
		total += r.ElapsedSeconds
	}

	header := fmt.Sprintf("%s  %s", titleStyle.Render("Today"), highlightStyle.Render(formatSeconds(total)))
	if d.dailyGoal > 0 {
		pct := total * 100 / d.dailyGoal
		header += mutedStyle.Render(fmt.Sprintf("  %d%% of %s goal", pct, formatHours(d.dailyGoal)))
	}

	if d.loadErr != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			header,
			errorStyle.Render("Could not load history: "+d.loadErr.Error()),
		))
	}

	if len(d.todaySummary) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			header,
			mutedStyle.Render("No completed sessions today"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{header}
	for _, s := range d.todaySummary {
		rows = append(rows, fmt.Sprintf("  %s %-20s %s  (%d sessions)",
			projectDot(s.Project),
			projectLabel(s.Project),
			formatSeconds(s.TotalSeconds),
			s.SessionCount,
		))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (d dashboardModel) renderRecentPanel(w int) string {
	title := titleStyle.Render("Recent Sessions")
	if len(d.recent) == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No sessions yet"),
		)
		return panelStyle.Width(w).Render(content)
	}

	rows := []string{title}
	for _, s := range d.recent {
		rows = append(rows, fmt.Sprintf("  ✓ %s  %-24s %s",
			s.StartedAt.Local().Format("Jan 02 15:04"),
			truncate(s.Title, 24),
			formatSeconds(s.DurationSeconds),
		))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
