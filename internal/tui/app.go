// Package tui is the terminal front end. The App model is the single place
// where the running session changes: every reducer action is dispatched from
// its Update, and all remote work it implies runs as commands.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/sheetclock/internal/export"
	"github.com/sadopc/sheetclock/internal/reconcile"
	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/store"
)

const exportLimit = 10000

// Records is where completed sessions are read from and deleted.
type Records interface {
	ListSessions(ctx context.Context, limit int) ([]session.Session, error)
	DailySummary(ctx context.Context, from, to time.Time) ([]store.DailySummary, error)
	Delete(ctx context.Context, id string) (sheets.Result, error)
}

type Options struct {
	// Store holds device settings and, when EditConnection is set, the
	// user's spreadsheet connection.
	Store          *store.Store
	UserID         string
	Syncer         *reconcile.Syncer
	Records        Records
	EditConnection bool
	ExportDir      string
	Logger         *slog.Logger
	Now            func() time.Time
}

// App is the root Bubble Tea model.
type App struct {
	syncer    *reconcile.Syncer
	records   Records
	logger    *slog.Logger
	now       func() time.Time
	exportDir string
	width     int
	height    int

	state      session.State
	timer      tickDriver
	adjustStep time.Duration

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	draftForm *huh.Form
	draftVals *draftValues

	dashboard dashboardModel
	history   historyModel
	reports   reportsModel
	settings  settingsModel

	help   help.Model
	status statusMsg
}

func NewApp(opts Options) App {
	h := help.New()
	h.ShowAll = false

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	syncer := opts.Syncer
	if syncer == nil {
		syncer = reconcile.New(reconcile.Options{Logger: logger})
	}

	a := App{
		syncer:     syncer,
		records:    opts.Records,
		logger:     logger,
		now:        now,
		exportDir:  opts.ExportDir,
		state:      session.Idle{},
		timer:      newTickDriver(),
		adjustStep: defaultAdjustStep * time.Second,
		activeView: viewDashboard,
		dashboard:  newDashboardModel(opts.Records, now),
		history:    newHistoryModel(opts.Records),
		reports:    newReportsModel(opts.Records, now),
		settings:   newSettingsModel(opts.Store, opts.UserID, opts.EditConnection),
		help:       h,
	}
	if opts.Store != nil {
		a.adjustStep = time.Duration(opts.Store.GetIntSetting(settingAdjustStep, defaultAdjustStep)) * time.Second
		a.dashboard.dailyGoal = opts.Store.GetIntSetting(settingDailyGoal, defaultDailyGoal)
	}
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.dashboard.refresh(), a.settings.refresh()}
	if fetch := a.syncer.Fetch(a.state); fetch != nil {
		cmds = append(cmds, func() tea.Msg {
			return fetchedMsg{res: fetch(context.Background())}
		})
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.dashboard.setSize(a.width, contentHeight)
		a.history.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tickMsg:
		if !a.timer.accept(msg) {
			return a, nil
		}
		cmd := a.dispatch(session.Tick{Now: msg.at})
		return a, tea.Batch(cmd, a.timer.schedule())

	case fetchedMsg:
		return a, a.reconcile(msg.res)

	case syncEventMsg:
		return a, a.handleSyncEvent(msg.ev)

	case statusMsg:
		a.status = msg
		return a, nil

	case exportDoneMsg:
		a.status = statusMsg{text: "Exported to " + msg.path}
		return a, nil

	case dashboardDataMsg:
		a.dashboard, _ = a.dashboard.update(msg)
		return a, nil

	case historyDataMsg:
		a.history, _ = a.history.update(msg)
		return a, nil

	case reportsDataMsg:
		a.reports, _ = a.reports.update(msg)
		return a, nil

	case settingsDataMsg:
		a.applySettings(msg.settings)
		a.settings, _ = a.settings.update(msg)
		return a, nil

	case sessionDeletedMsg:
		a.status = deleteStatus(msg)
		var cmd tea.Cmd
		a.history, cmd = a.history.update(msg)
		return a, tea.Batch(cmd, a.dashboard.refresh(), a.reports.refresh())
	}

	if a.draftForm != nil {
		return a.updateDraftForm(msg)
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		return a.handleKey(msg)
	}
	return a.updateActiveView(msg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.exportPicking {
		return a.updateExportPicker(msg)
	}

	// A child view capturing input (e.g. form) gets every key.
	if a.isFormActive() {
		return a.updateActiveView(msg)
	}

	switch {
	case key.Matches(msg, keys.Quit):
		a.timer.stop()
		return a, tea.Quit
	case key.Matches(msg, keys.Help):
		a.showHelp = !a.showHelp
		a.help.ShowAll = a.showHelp
		return a, nil
	case key.Matches(msg, keys.Export):
		a.exportPicking = true
		a.exportCursor = 0
		return a, nil
	case key.Matches(msg, keys.Tab1):
		a.activeView = viewDashboard
		return a, a.refreshCurrentView()
	case key.Matches(msg, keys.Tab2):
		a.activeView = viewHistory
		return a, a.refreshCurrentView()
	case key.Matches(msg, keys.Tab3):
		a.activeView = viewReports
		return a, a.refreshCurrentView()
	case key.Matches(msg, keys.Tab4):
		a.activeView = viewSettings
		return a, a.refreshCurrentView()
	case key.Matches(msg, keys.Tab):
		a.activeView = (a.activeView + 1) % viewState(len(viewNames))
		return a, a.refreshCurrentView()
	}

	if a.activeView == viewDashboard {
		return a.updateDashboardKey(msg)
	}
	return a.updateActiveView(msg)
}

func (a App) updateDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Start):
		return a.beginDraftForm(false)
	case key.Matches(msg, keys.Edit):
		return a.beginDraftForm(true)
	case key.Matches(msg, keys.Plus):
		return a, a.dispatch(session.AdjustDuration{Delta: a.adjustStep, Now: a.now()})
	case key.Matches(msg, keys.Minus):
		return a, a.dispatch(session.AdjustDuration{Delta: -a.adjustStep, Now: a.now()})
	case key.Matches(msg, keys.Stop):
		return a, a.stop()
	case key.Matches(msg, keys.Cancel):
		return a, a.discard()
	}
	return a, nil
}

// dispatch runs one reducer action and commits the result.
func (a *App) dispatch(action session.Action) tea.Cmd {
	return a.commit(session.Reduce(a.state, action))
}

// commit installs next and returns the tick and sync work it implies. Without
// an identity the state is pinned to Idle.
func (a *App) commit(next session.State) tea.Cmd {
	if !a.syncer.Enabled() {
		next = session.Idle{}
	}
	if next == a.state {
		return nil
	}
	a.state = next
	cmds := []tea.Cmd{a.timer.follow(next)}
	cmds = append(cmds, a.runEffects(a.syncer.Observe(next))...)
	return tea.Batch(cmds...)
}

func (a *App) runEffects(effects []reconcile.Effect) []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(effects))
	for _, eff := range effects {
		cmds = append(cmds, func() tea.Msg {
			return syncEventMsg{ev: eff(context.Background())}
		})
	}
	return cmds
}

func (a *App) reconcile(res reconcile.FetchResult) tea.Cmd {
	next, adopted, effects := a.syncer.Reconcile(a.state, res)
	cmds := a.runEffects(effects)

	switch {
	case res.Err != nil:
		a.status = statusMsg{text: fmt.Sprintf("Could not load running session: %v", res.Err), isError: true}
	case adopted:
		a.logger.Info("adopted remote running session", "signature", session.Signature(next))
		a.state = next
		cmds = append(cmds, a.timer.follow(next))
		if r := session.AsRunning(next); r != nil {
			cmds = append(cmds, a.dispatch(session.Tick{Now: a.now()}))
			a.status = statusMsg{text: fmt.Sprintf("Resumed %q", r.Draft.Title)}
		} else {
			a.status = statusMsg{text: "Session was finished on another device"}
		}
	}
	return tea.Batch(cmds...)
}

func (a *App) stop() tea.Cmd {
	r := session.AsRunning(a.state)
	if r == nil {
		return nil
	}
	done := session.FromDraft(r.Draft, a.now())
	cmds := a.runEffects(a.syncer.Complete(done))
	cmds = append(cmds, a.dispatch(session.Reset{}))
	a.status = statusMsg{text: fmt.Sprintf("Stopped %q after %s", done.Title, formatSeconds(done.DurationSeconds))}
	return tea.Batch(cmds...)
}

func (a *App) discard() tea.Cmd {
	r := session.AsRunning(a.state)
	if r == nil {
		return nil
	}
	cmds := a.runEffects(a.syncer.Cancel(r.Draft.ID))
	cmds = append(cmds, a.dispatch(session.Reset{}))
	a.status = statusMsg{text: fmt.Sprintf("Discarded %q", r.Draft.Title)}
	return tea.Batch(cmds...)
}

func (a *App) handleSyncEvent(ev reconcile.Event) tea.Cmd {
	switch {
	case ev.Err == nil:
		if ev.Op == reconcile.OpComplete {
			a.status = statusMsg{text: "Session saved to the sheet"}
		}
	case errors.Is(ev.Err, sheets.ErrNotConfigured):
		switch ev.Op {
		case reconcile.OpStart:
			a.status = statusMsg{text: "Spreadsheet not configured; tracking locally"}
		case reconcile.OpComplete:
			a.status = statusMsg{text: "Saved locally; spreadsheet not configured"}
		}
	case errors.Is(ev.Err, sheets.ErrRowNotFound):
		a.status = statusMsg{text: "Sheet row for this session is missing", isError: true}
	default:
		a.status = statusMsg{text: fmt.Sprintf("Sync %s failed: %v", ev.Op, ev.Err), isError: true}
	}

	if ev.Op == reconcile.OpComplete {
		return tea.Batch(a.dashboard.refresh(), a.history.refresh(), a.reports.refresh())
	}
	return nil
}

func (a App) beginDraftForm(editing bool) (tea.Model, tea.Cmd) {
	if !a.syncer.Enabled() {
		a.status = statusMsg{text: "Not signed in: set user.token in the config to track time", isError: true}
		return a, nil
	}
	r := session.AsRunning(a.state)
	switch {
	case editing && r == nil:
		a.status = statusMsg{text: "No session is running"}
		return a, nil
	case !editing && r != nil:
		a.status = statusMsg{text: "A session is already running"}
		return a, nil
	}

	if editing {
		a.draftVals = valuesFromDraft(r.Draft)
	} else {
		a.draftVals = &draftValues{}
	}
	a.draftForm = newDraftForm(a.draftVals)
	return a, a.draftForm.Init()
}

func (a App) updateDraftForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.String() == "esc" {
		a.draftForm, a.draftVals = nil, nil
		return a, nil
	}

	form, cmd := a.draftForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.draftForm = f
	}

	switch a.draftForm.State {
	case huh.StateCompleted:
		v := a.draftVals
		a.draftForm, a.draftVals = nil, nil
		if v.editing {
			return a, a.dispatch(session.UpdateDraft{Patch: v.patch()})
		}
		return a, a.dispatch(session.Start{Title: v.Title, StartedAt: a.now(), Fields: v.fields()})
	case huh.StateAborted:
		a.draftForm, a.draftVals = nil, nil
		return a, nil
	}
	return a, cmd
}

func (a *App) applySettings(settings []store.Setting) {
	for _, s := range settings {
		switch s.Key {
		case settingAdjustStep:
			if n, err := strconv.ParseInt(s.Value, 10, 64); err == nil && n > 0 {
				a.adjustStep = time.Duration(n) * time.Second
			}
		case settingDailyGoal:
			if n, err := strconv.ParseInt(s.Value, 10, 64); err == nil {
				a.dashboard.dailyGoal = n
			}
		case settingWeekStart:
			a.reports.weekStart = time.Monday
			if s.Value == "sunday" {
				a.reports.weekStart = time.Sunday
			}
		}
	}
}

func deleteStatus(msg sessionDeletedMsg) statusMsg {
	switch {
	case msg.err != nil:
		return statusMsg{text: fmt.Sprintf("Delete failed: %v", msg.err), isError: true}
	case msg.res.Status == sheets.StatusSkipped:
		return statusMsg{text: "Deleted locally; no sheet row to remove"}
	default:
		return statusMsg{text: "Deleted from history and sheet"}
	}
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewHistory:
		a.history, cmd = a.history.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	if a.draftForm != nil {
		return true
	}
	return a.activeView == viewSettings && a.settings.formActive
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewDashboard:
		return a.dashboard.refresh()
	case viewHistory:
		return a.history.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewSettings:
		return a.settings.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewDashboard:
		content = a.dashboard.view(a.state, a.syncer.Enabled())
	case viewHistory:
		content = a.history.view()
	case viewReports:
		content = a.reports.view()
	case viewSettings:
		content = a.settings.view()
	}

	contentHeight := max(a.height-lipgloss.Height(header)-lipgloss.Height(footer), 1)

	switch {
	case a.draftForm != nil:
		content = activePanelStyle.Width(a.width - 4).Render(a.draftForm.View())
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("sheetclock")
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status.text != "" {
		status = statusStyle(a.status.isError).Render(" " + a.status.text)
	}

	timerInfo := ""
	if r := session.AsRunning(a.state); r != nil {
		timerInfo = successStyle.Render(" ● " + formatSeconds(r.ElapsedSeconds))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"CSV", "JSON"}
	rows := []string{title, ""}
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	records, dir, now := a.records, a.exportDir, a.now
	return func() tea.Msg {
		if records == nil {
			return statusMsg{text: "Nothing to export", isError: true}
		}
		sessions, err := records.ListSessions(context.Background(), exportLimit)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}

		if dir == "" {
			dir, _ = os.UserHomeDir()
		}
		dateStr := now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(dir, fmt.Sprintf("sheetclock-export-%s.csv", dateStr))
			err = export.ToCSV(sessions, path)
		} else {
			path = filepath.Join(dir, fmt.Sprintf("sheetclock-export-%s.json", dateStr))
			err = export.ToJSON(sessions, path)
		}
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
