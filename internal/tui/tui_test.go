package tui

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/sheetclock/internal/reconcile"
	"github.com/sadopc/sheetclock/internal/service"
	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/sheets/sheetstest"
	"github.com/sadopc/sheetclock/internal/store"
)

// Monday.
var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type testEnv struct {
	store *store.Store
	sheet *sheetstest.Memory
	clock time.Time
	app   App
}

// newTestEnv wires the App the way the CLI does in local mode, on an
// in-memory database and spreadsheet.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := newTestStore(t)
	err := st.SaveConnection(context.Background(), &store.Connection{
		UserID:        "u1",
		SpreadsheetID: "sheet-1",
		Columns: map[string]string{
			"id": "A", "status": "B", "title": "C", "startedAt": "D", "endedAt": "E", "durationSeconds": "F",
		},
	})
	if err != nil {
		t.Fatalf("save connection: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := sheetstest.NewMemory("ID", "Status", "Title", "Start", "End", "Duration")
	user := service.NewSyncService(st, mem, logger).ForUser("u1")

	e := &testEnv{store: st, sheet: mem, clock: t0}
	e.app = NewApp(Options{
		Store:          st,
		UserID:         "u1",
		Syncer:         reconcile.New(reconcile.Options{Mirror: st.Mirror("u1"), Sheet: user, Logger: logger}),
		Records:        user,
		EditConnection: true,
		ExportDir:      t.TempDir(),
		Logger:         logger,
		Now:            func() time.Time { return e.clock },
	})
	e.app.timer.interval = time.Millisecond
	return e
}

// run feeds msg to the app and drains every command it produces.
func (e *testEnv) run(t *testing.T, msg tea.Msg) {
	t.Helper()
	m, cmd := e.app.Update(msg)
	e.app = m.(App)
	e.drain(t, cmd)
}

// drain executes commands until none are left, feeding their messages back
// into the app. Ticks are dropped so the queue settles.
func (e *testEnv) drain(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for i := 0; len(queue) > 0; i++ {
		if i > 500 {
			t.Fatal("command queue did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, tickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			m, next := e.app.Update(msg)
			e.app = m.(App)
			queue = append(queue, next)
		}
	}
}

func (e *testEnv) start(t *testing.T, title string) session.Draft {
	t.Helper()
	e.drain(t, e.app.dispatch(session.Start{Title: title, StartedAt: e.clock}))
	r := session.AsRunning(e.app.state)
	if r == nil {
		t.Fatal("expected a running session")
	}
	return r.Draft
}

func keyPress(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// ============================================================
// Tick driver
// ============================================================

func TestTickDriverFollowsRunningState(t *testing.T) {
	td := newTickDriver()
	running := &session.Running{Draft: session.Draft{ID: "a", Title: "x", StartedAt: t0}}

	if cmd := td.follow(session.Idle{}); cmd != nil {
		t.Fatal("idle should not schedule a tick")
	}
	if cmd := td.follow(running); cmd == nil {
		t.Fatal("running should schedule the first tick")
	}
	if cmd := td.follow(running); cmd != nil {
		t.Fatal("staying in running should not schedule a second chain")
	}
	if !td.accept(tickMsg{gen: 0}) {
		t.Fatal("current generation should be accepted")
	}
}

func TestTickDriverDropsStaleGenerations(t *testing.T) {
	td := newTickDriver()
	running := &session.Running{Draft: session.Draft{ID: "a", Title: "x", StartedAt: t0}}

	td.follow(running)
	td.follow(session.Idle{})
	if td.accept(tickMsg{gen: 0}) {
		t.Fatal("tick from before the stop should be dropped")
	}

	td.follow(running)
	if td.gen != 1 {
		t.Fatalf("gen = %d, want 1", td.gen)
	}
	if td.accept(tickMsg{gen: 0}) {
		t.Fatal("old generation should stay dropped after restart")
	}
	if !td.accept(tickMsg{gen: 1}) {
		t.Fatal("new generation should be accepted")
	}

	td.stop()
	if td.accept(tickMsg{gen: 1}) {
		t.Fatal("stop should drop in-flight ticks")
	}
}

// ============================================================
// App dispatch
// ============================================================

func TestAppSignedOutStaysIdle(t *testing.T) {
	app := NewApp(Options{})

	m, _ := app.Update(keyPress("s"))
	app = m.(App)
	if app.draftForm != nil {
		t.Fatal("start form should not open without an identity")
	}
	if !app.status.isError {
		t.Fatal("expected an error status")
	}

	if cmd := app.dispatch(session.Start{Title: "x", StartedAt: t0}); cmd != nil {
		t.Fatal("no work expected while signed out")
	}
	if session.IsRunning(app.state) {
		t.Fatal("state should be pinned to idle")
	}
	app.dashboard.setSize(100, 40)
	if !strings.Contains(app.dashboard.view(app.state, false), "SIGNED OUT") {
		t.Fatal("dashboard should show signed out")
	}
}

func TestAppStartKeyOpensForm(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())

	m, _ := e.app.Update(keyPress("s"))
	e.app = m.(App)
	if e.app.draftForm == nil || e.app.draftVals == nil {
		t.Fatal("start form should be open")
	}
	if !e.app.isFormActive() {
		t.Fatal("form should capture input")
	}

	m, _ = e.app.Update(keyPress("esc"))
	e.app = m.(App)
	if e.app.draftForm != nil {
		t.Fatal("esc should close the form")
	}
	if session.IsRunning(e.app.state) {
		t.Fatal("closing the form should not start a session")
	}
}

func TestAppStartPersistsAndAppendsRow(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	if !e.app.syncer.Ready() {
		t.Fatal("syncer should be ready after the startup fetch")
	}

	d := e.start(t, "Write report")

	st, err := e.store.LoadRunning(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	r := session.AsRunning(st)
	if r == nil || r.Draft.ID != d.ID || r.Draft.Title != "Write report" {
		t.Fatalf("mirror = %#v", st)
	}
	if got := e.sheet.Cell(2, "B"); got != "Running" {
		t.Fatalf("status cell = %q, want Running", got)
	}
	if got := e.sheet.Cell(2, "A"); got != d.ID {
		t.Fatalf("id cell = %q, want %q", got, d.ID)
	}
}

func TestAppTickAdvancesElapsed(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	e.start(t, "Focus")

	m, cmd := e.app.Update(tickMsg{gen: e.app.timer.gen, at: t0.Add(42 * time.Second)})
	e.app = m.(App)
	if cmd == nil {
		t.Fatal("an accepted tick should schedule the next one")
	}
	r := session.AsRunning(e.app.state)
	if r.ElapsedSeconds != 42 {
		t.Fatalf("elapsed = %d, want 42", r.ElapsedSeconds)
	}
	if e.sheet.Count("batch") != 0 {
		t.Fatal("ticks should not touch the sheet")
	}
}

func TestAppStaleTickIgnored(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	e.start(t, "Focus")
	gen := e.app.timer.gen

	e.run(t, keyPress("x"))
	if session.IsRunning(e.app.state) {
		t.Fatal("stop should leave running")
	}

	m, cmd := e.app.Update(tickMsg{gen: gen, at: t0.Add(time.Minute)})
	e.app = m.(App)
	if cmd != nil {
		t.Fatal("stale tick should not reschedule")
	}
	if session.IsRunning(e.app.state) {
		t.Fatal("stale tick should not revive the session")
	}
}

func TestAppStopCompletesSession(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	d := e.start(t, "Write report")

	e.clock = t0.Add(25 * time.Minute)
	e.run(t, keyPress("x"))

	if session.IsRunning(e.app.state) {
		t.Fatal("state should be idle after stop")
	}
	list, err := e.store.ListSessions(context.Background(), store.SessionFilter{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ID != d.ID || list[0].DurationSeconds != 1500 {
		t.Fatalf("sessions = %#v", list)
	}
	if got := e.sheet.Cell(2, "B"); got != "Completed" {
		t.Fatalf("status cell = %q, want Completed", got)
	}
	if got := e.sheet.Cell(2, "F"); got != "1500" {
		t.Fatalf("duration cell = %q, want 1500", got)
	}
	st, _ := e.store.LoadRunning(context.Background(), "u1")
	if session.IsRunning(st) {
		t.Fatal("mirror should be cleared")
	}
	if !strings.Contains(e.app.status.text, "saved") {
		t.Fatalf("status = %q", e.app.status.text)
	}
	if e.app.dashboard.todayTotal != 1500 {
		t.Fatalf("today total = %d, want 1500", e.app.dashboard.todayTotal)
	}
}

func TestAppDiscardRemovesRow(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	e.start(t, "Oops")

	e.run(t, keyPress("c"))

	if session.IsRunning(e.app.state) {
		t.Fatal("state should be idle after discard")
	}
	if rows := e.sheet.Rows(); len(rows) != 1 {
		t.Fatalf("expected only the header row, got %d rows", len(rows))
	}
	list, _ := e.store.ListSessions(context.Background(), store.SessionFilter{UserID: "u1"})
	if len(list) != 0 {
		t.Fatal("discarded session should not be stored")
	}
}

func TestAppAdjustDuration(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	e.start(t, "Focus")

	e.run(t, keyPress("+"))
	if r := session.AsRunning(e.app.state); r.ElapsedSeconds != 300 {
		t.Fatalf("elapsed = %d, want 300", r.ElapsedSeconds)
	}
	if got := e.sheet.Cell(2, "D"); got != "2026-05-04 09:55:00" {
		t.Fatalf("start cell = %q, want the moved start", got)
	}

	e.run(t, keyPress("-"))
	e.run(t, keyPress("-"))
	if r := session.AsRunning(e.app.state); r.ElapsedSeconds != 0 {
		t.Fatalf("elapsed = %d, want 0", r.ElapsedSeconds)
	}
}

func TestAppAdoptsRemoteSession(t *testing.T) {
	e := newTestEnv(t)
	remote := session.Draft{ID: "remote-1", Title: "From laptop", StartedAt: t0.Add(-10 * time.Minute)}
	if err := e.store.SaveRunning(context.Background(), "u1", &session.Running{Draft: remote, ElapsedSeconds: 60}); err != nil {
		t.Fatal(err)
	}

	e.drain(t, e.app.Init())

	r := session.AsRunning(e.app.state)
	if r == nil || r.Draft.ID != "remote-1" {
		t.Fatalf("state = %#v, want the remote session", e.app.state)
	}
	if r.ElapsedSeconds != 600 {
		t.Fatalf("elapsed = %d, want 600", r.ElapsedSeconds)
	}
	if e.sheet.Count("append") != 0 {
		t.Fatal("an adopted session already has its row")
	}
	if !e.app.timer.running {
		t.Fatal("timer should run for the adopted session")
	}
	if !strings.Contains(e.app.status.text, "From laptop") {
		t.Fatalf("status = %q", e.app.status.text)
	}
}

func TestAppLocalEditDuringFetchWins(t *testing.T) {
	e := newTestEnv(t)
	remote := session.Draft{ID: "remote-1", Title: "From laptop", StartedAt: t0}
	if err := e.store.SaveRunning(context.Background(), "u1", &session.Running{Draft: remote}); err != nil {
		t.Fatal(err)
	}

	initCmd := e.app.Init()
	startCmd := e.app.dispatch(session.Start{Title: "Local", StartedAt: t0})
	e.drain(t, tea.Batch(initCmd, startCmd))

	r := session.AsRunning(e.app.state)
	if r == nil || r.Draft.Title != "Local" {
		t.Fatalf("state = %#v, want the local session", e.app.state)
	}
	st, _ := e.store.LoadRunning(context.Background(), "u1")
	if got := session.AsRunning(st); got == nil || got.Draft.Title != "Local" {
		t.Fatalf("mirror = %#v, want the local session", st)
	}
}

func TestAppEditKeyNeedsRunningSession(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())

	m, _ := e.app.Update(keyPress("e"))
	e.app = m.(App)
	if e.app.draftForm != nil {
		t.Fatal("edit form should not open while idle")
	}

	e.start(t, "Focus")
	m, _ = e.app.Update(keyPress("e"))
	e.app = m.(App)
	if e.app.draftVals == nil || !e.app.draftVals.editing || e.app.draftVals.Title != "Focus" {
		t.Fatalf("edit values = %#v", e.app.draftVals)
	}
}

func TestAppUpdateDraftUpdatesRow(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	e.start(t, "Focus")

	v := valuesFromDraft(session.AsRunning(e.app.state).Draft)
	v.Title = "Deep focus"
	v.Project = "ops"
	e.drain(t, e.app.dispatch(session.UpdateDraft{Patch: v.patch()}))

	if got := e.sheet.Cell(2, "C"); got != "Deep focus" {
		t.Fatalf("title cell = %q", got)
	}
	st, _ := e.store.LoadRunning(context.Background(), "u1")
	if r := session.AsRunning(st); r == nil || r.Draft.Project != "ops" {
		t.Fatalf("mirror = %#v", st)
	}
}

// ============================================================
// History, export, settings through the App
// ============================================================

func TestHistoryDeleteFlow(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	e.start(t, "Write report")
	e.clock = t0.Add(time.Hour)
	e.run(t, keyPress("x"))

	e.run(t, keyPress("2"))
	if e.app.activeView != viewHistory || len(e.app.history.sessions) != 1 {
		t.Fatalf("history = %#v", e.app.history.sessions)
	}

	e.run(t, keyPress("d"))
	if !e.app.history.confirming {
		t.Fatal("delete should ask for confirmation")
	}
	e.run(t, keyPress("n"))
	if e.app.history.confirming || len(e.app.history.sessions) != 1 {
		t.Fatal("any other key should cancel the delete")
	}

	e.run(t, keyPress("d"))
	e.run(t, keyPress("y"))

	if len(e.app.history.sessions) != 0 {
		t.Fatalf("history should be empty, got %d", len(e.app.history.sessions))
	}
	if rows := e.sheet.Rows(); len(rows) != 1 {
		t.Fatalf("sheet row should be deleted, got %d rows", len(rows))
	}
	if e.app.status.text != "Deleted from history and sheet" {
		t.Fatalf("status = %q", e.app.status.text)
	}
}

func TestExportWritesFile(t *testing.T) {
	e := newTestEnv(t)
	e.drain(t, e.app.Init())
	e.start(t, "Write report")
	e.clock = t0.Add(time.Hour)
	e.run(t, keyPress("x"))

	e.run(t, keyPress("E"))
	if !e.app.exportPicking {
		t.Fatal("export picker should be open")
	}
	e.run(t, keyPress("enter"))

	path := strings.TrimPrefix(e.app.status.text, "Exported to ")
	if !strings.HasSuffix(path, "sheetclock-export-2026-05-04.csv") {
		t.Fatalf("status = %q", e.app.status.text)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Write report") {
		t.Fatalf("export missing session: %s", data)
	}
}

func TestApplySettings(t *testing.T) {
	app := NewApp(Options{})
	app.applySettings([]store.Setting{
		{Key: settingAdjustStep, Value: "60"},
		{Key: settingDailyGoal, Value: "3600"},
		{Key: settingWeekStart, Value: "sunday"},
	})
	if app.adjustStep != time.Minute {
		t.Fatalf("adjustStep = %v, want 1m", app.adjustStep)
	}
	if app.dashboard.dailyGoal != 3600 {
		t.Fatalf("dailyGoal = %d", app.dashboard.dailyGoal)
	}
	if app.reports.weekStart != time.Sunday {
		t.Fatalf("weekStart = %v", app.reports.weekStart)
	}

	app.applySettings([]store.Setting{{Key: settingAdjustStep, Value: "0"}})
	if app.adjustStep != time.Minute {
		t.Fatal("non-positive step should be ignored")
	}
}

func TestNewAppReadsStoredSettings(t *testing.T) {
	st := newTestStore(t)
	if err := st.SetSetting(settingAdjustStep, "120"); err != nil {
		t.Fatal(err)
	}
	app := NewApp(Options{Store: st})
	if app.adjustStep != 2*time.Minute {
		t.Fatalf("adjustStep = %v, want 2m", app.adjustStep)
	}
	if app.dashboard.dailyGoal != defaultDailyGoal {
		t.Fatalf("dailyGoal = %d, want default", app.dashboard.dailyGoal)
	}
}

// ============================================================
// Draft form values
// ============================================================

func TestDraftValuesFields(t *testing.T) {
	v := &draftValues{
		Title:     "Plan",
		Project:   " ops ",
		Tags:      "a, b, a, ",
		Intensity: "HIGH",
		Notes:     "n",
	}
	f := v.fields()
	if len(f.Tags) != 2 || f.Tags[0] != "a" || f.Tags[1] != "b" {
		t.Fatalf("tags = %v", f.Tags)
	}
	if f.Intensity != session.IntensityHigh {
		t.Fatalf("intensity = %q", f.Intensity)
	}

	st := session.Reduce(session.Idle{}, session.Start{Title: v.Title, StartedAt: t0, Fields: f})
	r := session.AsRunning(st)
	if r == nil || r.Draft.Project != "ops" {
		t.Fatalf("state = %#v", st)
	}
}

func TestDraftValuesRoundTrip(t *testing.T) {
	d := session.Draft{
		ID: "a", Title: "Plan", StartedAt: t0, Project: "ops",
		Tags: []string{"x", "y"}, Skill: "go", Intensity: session.IntensityLow, Notes: "n",
	}
	v := valuesFromDraft(d)
	if !v.editing || v.Tags != "x, y" {
		t.Fatalf("values = %#v", v)
	}
	next := session.Reduce(&session.Running{Draft: d}, session.UpdateDraft{Patch: v.patch()})
	if session.Signature(next) != session.Signature(&session.Running{Draft: d}) {
		t.Fatal("unchanged form should not change the draft")
	}
}

func TestRequireTitle(t *testing.T) {
	if requireTitle("  ") == nil {
		t.Fatal("blank title should be rejected")
	}
	if requireTitle("x") != nil {
		t.Fatal("title should be accepted")
	}
}

// ============================================================
// Views
// ============================================================

type fakeRecords struct {
	sessions []session.Session
	deleted  []string
}

func (f *fakeRecords) ListSessions(context.Context, int) ([]session.Session, error) {
	return f.sessions, nil
}

func (f *fakeRecords) DailySummary(context.Context, time.Time, time.Time) ([]store.DailySummary, error) {
	return []store.DailySummary{
		{Date: "2026-05-04", Project: "ops", TotalSeconds: 1800, SessionCount: 1},
		{Date: "2026-05-04", Project: "", TotalSeconds: 600, SessionCount: 2},
	}, nil
}

func (f *fakeRecords) Delete(_ context.Context, id string) (sheets.Result, error) {
	f.deleted = append(f.deleted, id)
	return sheets.Result{Status: sheets.StatusSkipped}, nil
}

func TestDashboardTotals(t *testing.T) {
	d := newDashboardModel(&fakeRecords{}, func() time.Time { return t0 })
	d.setSize(100, 40)

	msg := d.refresh()()
	d, _ = d.update(msg)
	if d.todayTotal != 2400 {
		t.Fatalf("todayTotal = %d, want 2400", d.todayTotal)
	}

	running := &session.Running{Draft: session.Draft{ID: "a", Title: "Focus", StartedAt: t0}, ElapsedSeconds: 60}
	view := d.view(running, true)
	if !strings.Contains(view, "00:41:00") {
		t.Fatal("today total should include the running session")
	}
	if !strings.Contains(view, "RUNNING") || !strings.Contains(view, "Focus") {
		t.Fatal("timer panel should show the running session")
	}
}

func TestHistoryModelDelete(t *testing.T) {
	rec := &fakeRecords{sessions: []session.Session{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}}}
	h := newHistoryModel(rec)
	h.setSize(100, 40)
	h, _ = h.update(h.refresh()())

	h, _ = h.update(keyPress("j"))
	if h.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", h.cursor)
	}
	h, _ = h.update(keyPress("d"))
	h, cmd := h.update(keyPress("y"))
	if cmd == nil || !h.deleting {
		t.Fatal("confirming should start the delete")
	}
	msg := cmd().(sessionDeletedMsg)
	if msg.id != "b" || len(rec.deleted) != 1 {
		t.Fatalf("deleted = %v", rec.deleted)
	}
	if deleteStatus(msg).text != "Deleted locally; no sheet row to remove" {
		t.Fatalf("status = %q", deleteStatus(msg).text)
	}
}

func TestReportsDateRange(t *testing.T) {
	wed := time.Date(2026, 5, 6, 15, 0, 0, 0, time.UTC)
	r := newReportsModel(&fakeRecords{}, func() time.Time { return wed })

	from, to := r.dateRange()
	if !from.Equal(time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2026, 5, 7, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("daily range = %v..%v", from, to)
	}

	r.mode = reportWeekly
	from, to = r.dateRange()
	if !from.Equal(time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)) || !to.Equal(time.Date(2026, 5, 11, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("weekly range = %v..%v", from, to)
	}

	r.weekStart = time.Sunday
	from, _ = r.dateRange()
	if !from.Equal(time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("sunday week starts %v", from)
	}

	r.offset = 1
	from, _ = r.dateRange()
	if !from.Equal(time.Date(2026, 4, 26, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("previous week starts %v", from)
	}
}

func TestReportsViewRendersData(t *testing.T) {
	r := newReportsModel(&fakeRecords{}, func() time.Time { return t0 })
	r.setSize(100, 40)
	r, _ = r.update(r.refresh()())

	if r.total() != 2400 {
		t.Fatalf("total = %d, want 2400", r.total())
	}
	view := r.view()
	if !strings.Contains(view, "ops") || !strings.Contains(view, "(no project)") {
		t.Fatal("report should list both projects")
	}
}

// ============================================================
// Helpers
// ============================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{time.Second, "00:00:01"},
		{time.Minute, "00:01:00"},
		{time.Hour, "01:00:00"},
		{time.Hour + time.Minute + time.Second, "01:01:01"},
		{25 * time.Hour, "25:00:00"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatSeconds(t *testing.T) {
	if got := formatSeconds(3661); got != "01:01:01" {
		t.Fatalf("formatSeconds(3661) = %q", got)
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "0.0h"},
		{3600, "1.0h"},
		{5400, "1.5h"},
	}
	for _, tt := range tests {
		got := formatHours(tt.secs)
		if got != tt.want {
			t.Errorf("formatHours(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if truncate("short", 10) != "short" {
		t.Fatal("short strings stay intact")
	}
	if got := truncate("abcdefgh", 5); got != "abcd…" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("héllo wörld", 6); got != "héllo…" {
		t.Fatalf("truncate should count runes, got %q", got)
	}
}

func TestProjectColorStable(t *testing.T) {
	if projectColor("ops") != projectColor("ops") {
		t.Fatal("colors should be stable")
	}
	if projectColor("") != colorMuted {
		t.Fatal("no project should be muted")
	}
}

func TestSecsToMin(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"300", "5"},
		{"60", "1"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := secsToMin(tt.in); got != tt.want {
			t.Errorf("secsToMin(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinToSecs(t *testing.T) {
	if got := minToSecs(" 5 "); got != "300" {
		t.Fatalf("minToSecs = %q", got)
	}
	if got := minToSecs("x"); got != "x" {
		t.Fatalf("minToSecs = %q", got)
	}
}

func TestHoursRoundTrip(t *testing.T) {
	if got := secsToHours("28800"); got != "8.0" {
		t.Fatalf("secsToHours = %q", got)
	}
	if got := hoursToSecs("1.5"); got != "5400" {
		t.Fatalf("hoursToSecs = %q", got)
	}
}

func TestFormatSettingValue(t *testing.T) {
	if got := formatSettingValue(settingAdjustStep, "300"); got != "5 min" {
		t.Fatalf("adjust step = %q", got)
	}
	if got := formatSettingValue(settingDailyGoal, "28800"); got != "8.0 hours" {
		t.Fatalf("daily goal = %q", got)
	}
	if got := formatSettingValue(settingWeekStart, "monday"); got != "monday" {
		t.Fatalf("week start = %q", got)
	}
}

func TestColumnsText(t *testing.T) {
	cols := parseColumns("id = A\nstatus=B\n\ntitle = Session title\nbroken line\n")
	if len(cols) != 3 || cols["title"] != "Session title" {
		t.Fatalf("columns = %v", cols)
	}
	if got := formatColumns(map[string]string{"status": "B", "id": "A"}); got != "id = A\nstatus = B\n" {
		t.Fatalf("formatColumns = %q", got)
	}
	if validColumns("id = A\nbroken") == nil {
		t.Fatal("line without = should be rejected")
	}
	if validColumns("id = A\n\n") != nil {
		t.Fatal("blank lines are fine")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" id, status ,, title ")
	if len(got) != 3 || got[1] != "status" {
		t.Fatalf("splitList = %v", got)
	}
}

// ============================================================
// View state and chrome
// ============================================================

func TestViewNames(t *testing.T) {
	expected := []string{"Dashboard", "History", "Reports", "Settings"}
	if len(viewNames) != len(expected) {
		t.Fatalf("expected %d view names, got %d", len(expected), len(viewNames))
	}
	for i, name := range expected {
		if viewNames[i] != name {
			t.Fatalf("viewNames[%d] = %q, want %q", i, viewNames[i], name)
		}
	}
}

func TestAppTabCycles(t *testing.T) {
	app := NewApp(Options{})
	for i := 0; i < len(viewNames); i++ {
		m, _ := app.Update(tea.KeyMsg{Type: tea.KeyTab})
		app = m.(App)
	}
	if app.activeView != viewDashboard {
		t.Fatalf("activeView = %d, want dashboard after a full cycle", app.activeView)
	}
}

func TestAppLoadingState(t *testing.T) {
	app := NewApp(Options{})
	if app.View() != "Loading..." {
		t.Fatal("view before the first resize should be Loading...")
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app := NewApp(Options{})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app = m.(App)

	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
	if !strings.Contains(header, "sheetclock") {
		t.Fatal("header missing title")
	}
}

func TestAppStatusMessage(t *testing.T) {
	app := NewApp(Options{})
	m, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	app = m.(App)
	m, _ = app.Update(statusMsg{text: "hello there"})
	app = m.(App)

	if !strings.Contains(app.renderFooter(), "hello there") {
		t.Fatal("footer should show the status")
	}
}

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should not be empty")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"timer", func() string { return timerStyle.Render("test") }},
		{"timerRunning", func() string { return timerRunningStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"subtitle", func() string { return subtitleStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}
