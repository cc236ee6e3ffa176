package tui

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sheetclock/internal/store"
)

type reportMode int

const (
	reportDaily reportMode = iota
	reportWeekly
)

// dayFormat matches store.DailySummary.Date.
const dayFormat = "2006-01-02"

type reportsModel struct {
	records Records
	now     func() time.Time
	width   int
	height  int

	mode      reportMode
	weekStart time.Weekday
	summaries []store.DailySummary
	offset    int // weeks or 7-day blocks back from today (0 = current)
	loadErr   error

	chart barchart.Model
}

func newReportsModel(r Records, now func() time.Time) reportsModel {
	return reportsModel{
		records:   r,
		now:       now,
		weekStart: time.Monday,
		chart:     barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	summaries []store.DailySummary
	err       error
}

func (r reportsModel) refresh() tea.Cmd {
	if r.records == nil {
		return nil
	}
	records := r.records
	from, to := r.dateRange()
	return func() tea.Msg {
		summaries, err := records.DailySummary(context.Background(), from, to)
		return reportsDataMsg{summaries: summaries, err: err}
	}
}

func (r reportsModel) dateRange() (time.Time, time.Time) {
	today := startOfDay(r.now())

	switch r.mode {
	case reportWeekly:
		back := (int(today.Weekday()) - int(r.weekStart) + 7) % 7
		start := today.AddDate(0, 0, -back-7*r.offset)
		return start, start.AddDate(0, 0, 7)
	default:
		// Daily: last 7 days
		end := today.AddDate(0, 0, 1-7*r.offset)
		return end.AddDate(0, 0, -7), end
	}
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.loadErr = msg.err
		r.summaries = msg.summaries
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		case key.Matches(msg, keys.Enter):
			if r.mode == reportDaily {
				r.mode = reportWeekly
			} else {
				r.mode = reportDaily
			}
			r.offset = 0
			return r, r.refresh()
		}
	}
	return r, nil
}

// projectTotal is one row of the per-project breakdown.
type projectTotal struct {
	project  string
	seconds  int64
	sessions int
}

// byProject folds the daily summaries into per-project totals, largest first.
func (r reportsModel) byProject() []projectTotal {
	idx := make(map[string]int)
	var out []projectTotal
	for _, s := range r.summaries {
		i, ok := idx[s.Project]
		if !ok {
			i = len(out)
			idx[s.Project] = i
			out = append(out, projectTotal{project: s.Project})
		}
		out[i].seconds += s.TotalSeconds
		out[i].sessions += s.SessionCount
	}
	slices.SortStableFunc(out, func(a, b projectTotal) int {
		return cmp.Compare(b.seconds, a.seconds)
	})
	return out
}

func (r reportsModel) total() int64 {
	var total int64
	for _, s := range r.summaries {
		total += s.TotalSeconds
	}
	return total
}

func (r *reportsModel) buildChart() {
	height := 12
	if r.height > 30 {
		height = 16
	}
	r.chart = barchart.New(max(r.width-8, 20), height)

	perDay := make(map[string][]barchart.BarValue)
	for _, s := range r.summaries {
		perDay[s.Date] = append(perDay[s.Date], barchart.BarValue{
			Name:  projectLabel(s.Project),
			Value: float64(s.TotalSeconds) / 3600,
			Style: lipgloss.NewStyle().Foreground(projectColor(s.Project)),
		})
	}

	from, to := r.dateRange()
	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		values := perDay[d.Format(dayFormat)]
		if len(values) == 0 {
			values = []barchart.BarValue{{Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}
		bars = append(bars, barchart.BarData{Label: d.Format("Mon 02"), Values: values})
	}
	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4
	from, to := r.dateRange()

	tabs := make([]string, 0, 2)
	for mode, name := range []string{"Daily", "Weekly"} {
		style := inactiveTabStyle
		if reportMode(mode) == r.mode {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(name))
	}
	period := fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006"))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Reports"), "  ", lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...), "  ", mutedStyle.Render(period),
	)
	nav := mutedStyle.Render("  ←/→: earlier/later  enter: daily/weekly")

	body := []string{header, ""}
	if r.loadErr != nil {
		body = append(body, errorStyle.Render("Could not load report: "+r.loadErr.Error()))
	} else {
		body = append(body, r.chart.View(), "", r.renderBreakdown(w))
	}
	body = append(body, "", nav)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, body...))
}

// renderBreakdown lists each project's share of the period.
func (r reportsModel) renderBreakdown(w int) string {
	projects := r.byProject()
	if len(projects) == 0 {
		return mutedStyle.Render("  Nothing tracked in this period")
	}
	total := r.total()
	barWidth := max(min(w-56, 24), 4)

	lines := []string{mutedStyle.Render(fmt.Sprintf("  %-22s %10s %6s %5s", "Project", "Time", "Share", "Runs"))}
	for _, p := range projects {
		share := 0.0
		if total > 0 {
			share = float64(p.seconds) / float64(total)
		}
		bar := lipgloss.NewStyle().Foreground(projectColor(p.project)).
			Render(strings.Repeat("█", max(int(share*float64(barWidth)), 1)))
		lines = append(lines, fmt.Sprintf("  %s %-20s %10s %5.0f%% %5d %s",
			projectDot(p.project), truncate(projectLabel(p.project), 20),
			formatSeconds(p.seconds), share*100, p.sessions, bar,
		))
	}
	lines = append(lines, fmt.Sprintf("  %-22s %10s", "Total", highlightStyle.Render(formatSeconds(total))))
	return strings.Join(lines, "\n")
}
