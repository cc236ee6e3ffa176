package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sheetclock/internal/session"
)

const historyLimit = 100

// historyModel lists completed sessions and deletes them locally and from
// the sheet.
type historyModel struct {
	records Records
	width   int
	height  int

	sessions   []session.Session
	cursor     int
	confirming bool
	deleting   bool
	loadErr    error
}

func newHistoryModel(r Records) historyModel {
	return historyModel{records: r}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

type historyDataMsg struct {
	sessions []session.Session
	err      error
}

func (h historyModel) refresh() tea.Cmd {
	if h.records == nil {
		return nil
	}
	records := h.records
	return func() tea.Msg {
		list, err := records.ListSessions(context.Background(), historyLimit)
		return historyDataMsg{sessions: list, err: err}
	}
}

func (h historyModel) selected() (session.Session, bool) {
	if h.cursor < 0 || h.cursor >= len(h.sessions) {
		return session.Session{}, false
	}
	return h.sessions[h.cursor], true
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		h.loadErr = msg.err
		if msg.err == nil {
			h.sessions = msg.sessions
		}
		if h.cursor >= len(h.sessions) {
			h.cursor = max(0, len(h.sessions)-1)
		}
		return h, nil

	case sessionDeletedMsg:
		h.deleting = false
		return h, h.refresh()

	case tea.KeyMsg:
		if h.confirming {
			h.confirming = false
			if key.Matches(msg, keys.Confirm) {
				return h.deleteSelected()
			}
			return h, nil
		}
		switch {
		case key.Matches(msg, keys.Up):
			if h.cursor > 0 {
				h.cursor--
			}
		case key.Matches(msg, keys.Down):
			if h.cursor < len(h.sessions)-1 {
				h.cursor++
			}
		case key.Matches(msg, keys.Delete):
			if _, ok := h.selected(); ok && !h.deleting {
				h.confirming = true
			}
		}
	}
	return h, nil
}

func (h historyModel) deleteSelected() (historyModel, tea.Cmd) {
	s, ok := h.selected()
	if !ok || h.records == nil {
		return h, nil
	}
	h.deleting = true
	records, id := h.records, s.ID
	return h, func() tea.Msg {
		res, err := records.Delete(context.Background(), id)
		return sessionDeletedMsg{id: id, res: res, err: err}
	}
}

func (h historyModel) view() string {
	w := h.width - 4
	title := titleStyle.Render("History")

	if h.loadErr != nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", errorStyle.Render("Could not load sessions: "+h.loadErr.Error()),
		))
	}
	if len(h.sessions) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No completed sessions yet"),
		))
	}

	rows := []string{title, ""}
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-13s %-28s %-14s %9s", "Started", "Title", "Project", "Duration")))

	// Keep the cursor on screen.
	visible := max(h.height-12, 5)
	first := 0
	if h.cursor >= visible {
		first = h.cursor - visible + 1
	}
	last := min(first+visible, len(h.sessions))

	for i := first; i < last; i++ {
		s := h.sessions[i]
		line := fmt.Sprintf("%-13s %-28s %-14s %9s",
			s.StartedAt.Local().Format("Jan 02 15:04"),
			truncate(s.Title, 28),
			truncate(projectLabel(s.Project), 14),
			formatSeconds(s.DurationSeconds),
		)
		if i == h.cursor {
			rows = append(rows, selectedItemStyle.Render("> "+line))
		} else {
			rows = append(rows, normalItemStyle.Render("  "+line))
		}
	}

	if s, ok := h.selected(); ok {
		rows = append(rows, "", h.renderDetail(s))
	}

	rows = append(rows, "")
	switch {
	case h.confirming:
		rows = append(rows, warningStyle.Render("  Delete this session here and in the sheet? y: yes  any key: no"))
	case h.deleting:
		rows = append(rows, mutedStyle.Render("  Deleting…"))
	default:
		rows = append(rows, mutedStyle.Render("  ↑/↓: select  d: delete"))
	}

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (h historyModel) renderDetail(s session.Session) string {
	var parts []string
	if len(s.Tags) > 0 {
		parts = append(parts, "tags: "+strings.Join(s.Tags, ", "))
	}
	if s.Skill != "" {
		parts = append(parts, "skill: "+s.Skill)
	}
	if s.Intensity != "" {
		parts = append(parts, "intensity: "+string(s.Intensity))
	}
	detail := mutedStyle.Render("  ended " + s.EndedAt.Local().Format("Jan 02 15:04"))
	if len(parts) > 0 {
		detail += mutedStyle.Render("  " + strings.Join(parts, "  "))
	}
	if s.Notes != "" {
		detail += "\n" + subtitleStyle.Render("  "+truncate(s.Notes, 80))
	}
	return detail
}
