package store

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/sheets"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertSession is a test helper that stores a completed session starting
// startOffset seconds ago.
func insertSession(t *testing.T, s *Store, userID, project string, startOffset, durationSecs int) session.Session {
	t.Helper()
	start := time.Now().UTC().Add(time.Duration(-startOffset) * time.Second)
	d := session.Draft{ID: session.NewID(), Title: "work", StartedAt: start, Project: project}
	ss := session.FromDraft(d, start.Add(time.Duration(durationSecs)*time.Second))
	if err := s.SaveSession(context.Background(), userID, ss); err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return ss
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/sheetclock.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveRunning(context.Background(), "u1", running("a")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: the mirror survives and migrations do not run again.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	st, err := s2.LoadRunning(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !session.IsRunning(st) {
		t.Fatal("running session should survive a reopen")
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Running mirror
// ============================================================

func running(id string) *session.Running {
	return &session.Running{
		Draft: session.Draft{
			ID:        id,
			Title:     "Deep work",
			StartedAt: time.Date(2026, 3, 2, 9, 0, 0, 123e6, time.UTC),
			Project:   "core",
			Tags:      []string{"focus", "am"},
			Skill:     "go",
			Intensity: session.IntensityHigh,
			Notes:     "n",
		},
		ElapsedSeconds: 42,
	}
}

func TestLoadRunningEmptyIsIdle(t *testing.T) {
	s := newTestStore(t)
	st, err := s.LoadRunning(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(session.Idle); !ok {
		t.Fatalf("expected Idle, got %T", st)
	}
}

func TestSaveAndLoadRunning(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	want := running("s-1")

	if err := s.SaveRunning(ctx, "u1", want); err != nil {
		t.Fatal(err)
	}
	st, err := s.LoadRunning(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	got := session.AsRunning(st)
	if got == nil {
		t.Fatal("expected a running session")
	}
	if session.Signature(got) != session.Signature(want) {
		t.Fatalf("round trip changed the draft:\n got  %s\n want %s", session.Signature(got), session.Signature(want))
	}
	if !got.Draft.StartedAt.Equal(want.Draft.StartedAt) {
		t.Fatalf("startedAt lost precision: %v", got.Draft.StartedAt)
	}
	if got.ElapsedSeconds != 42 {
		t.Fatalf("expected elapsed 42, got %d", got.ElapsedSeconds)
	}
}

func TestSaveRunningOverwritesAndIdleClears(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := s.Mirror("u1")

	m.Save(ctx, running("a"))
	m.Save(ctx, running("b"))
	st, _ := m.Load(ctx)
	if r := session.AsRunning(st); r == nil || r.Draft.ID != "b" {
		t.Fatalf("expected latest draft b, got %+v", st)
	}

	if err := m.Save(ctx, session.Idle{}); err != nil {
		t.Fatal(err)
	}
	st, _ = m.Load(ctx)
	if session.IsRunning(st) {
		t.Fatal("saving Idle should clear the mirror")
	}
}

func TestRunningIsolatedPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.SaveRunning(ctx, "u1", running("a"))

	st, _ := s.LoadRunning(ctx, "u2")
	if session.IsRunning(st) {
		t.Fatal("u2 should not see u1's session")
	}
}

// ============================================================
// Completed sessions
// ============================================================

func TestSaveAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ss := session.FromDraft(running("s-1").Draft, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	if err := s.SaveSession(ctx, "u1", ss); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSession(ctx, "s-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "Deep work" || got.DurationSeconds != ss.DurationSeconds {
		t.Fatalf("unexpected session: %+v", got)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "focus" {
		t.Fatalf("tags not preserved: %v", got.Tags)
	}
	owner, err := s.SessionOwner(ctx, "s-1")
	if err != nil || owner != "u1" {
		t.Fatalf("expected owner u1, got %q (%v)", owner, err)
	}
}

func TestSaveSessionTwiceKeepsOneRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ss := insertSession(t, s, "u1", "p", 600, 60)
	ss.Notes = "edited"
	if err := s.SaveSession(ctx, "u1", ss); err != nil {
		t.Fatal(err)
	}
	list, _ := s.ListSessions(ctx, SessionFilter{UserID: "u1"})
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
	if list[0].Notes != "edited" {
		t.Fatal("second save should overwrite")
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSession(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ss := insertSession(t, s, "u1", "p", 600, 60)

	if err := s.DeleteSession(ctx, ss.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteSession(ctx, ss.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should report ErrNotFound, got %v", err)
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	older := insertSession(t, s, "u1", "a", 7200, 60)
	newer := insertSession(t, s, "u1", "b", 600, 60)
	insertSession(t, s, "u2", "a", 300, 60)

	list, err := s.ListSessions(ctx, SessionFilter{UserID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(list))
	}
	// Newest first
	if list[0].ID != newer.ID || list[1].ID != older.ID {
		t.Fatal("sessions should be ordered by start time descending")
	}
}

func TestListSessionsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	insertSession(t, s, "u1", "a", 7200, 60)
	insertSession(t, s, "u1", "b", 600, 60)
	insertSession(t, s, "u1", "b", 300, 60)

	list, _ := s.ListSessions(ctx, SessionFilter{UserID: "u1", Project: "b"})
	if len(list) != 2 {
		t.Fatalf("project filter: expected 2, got %d", len(list))
	}

	from := time.Now().UTC().Add(-time.Hour)
	list, _ = s.ListSessions(ctx, SessionFilter{UserID: "u1", From: &from})
	if len(list) != 2 {
		t.Fatalf("date filter: expected 2, got %d", len(list))
	}

	list, _ = s.ListSessions(ctx, SessionFilter{UserID: "u1", Limit: 1})
	if len(list) != 1 {
		t.Fatalf("limit: expected 1, got %d", len(list))
	}
}

func TestListSessionsEmpty(t *testing.T) {
	s := newTestStore(t)
	list, err := s.ListSessions(context.Background(), SessionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if list != nil {
		t.Fatalf("expected nil slice, got %d items", len(list))
	}
}

func TestGetDailySummary(t *testing.T) {
	s := newTestStore(t)
	insertSession(t, s, "u1", "a", 60, 3600)
	insertSession(t, s, "u1", "a", 30, 600)
	insertSession(t, s, "u1", "b", 30, 1800)
	insertSession(t, s, "u2", "a", 30, 999)

	now := time.Now().UTC()
	summaries, err := s.GetDailySummary("u1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	total := map[string]int64{}
	count := map[string]int{}
	for _, ds := range summaries {
		total[ds.Project] += ds.TotalSeconds
		count[ds.Project] += ds.SessionCount
	}
	if total["a"] != 4200 || count["a"] != 2 {
		t.Fatalf("project a: got %ds over %d sessions", total["a"], count["a"])
	}
	if total["b"] != 1800 {
		t.Fatalf("project b: expected 1800s, got %d", total["b"])
	}
}

func TestGetDailySummaryEmpty(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	summaries, err := s.GetDailySummary("u1", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if summaries != nil {
		t.Fatal("expected nil for empty summary")
	}
}

func TestGetTodayTotalEmpty(t *testing.T) {
	s := newTestStore(t)
	total, err := s.GetTodayTotal("u1")
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("expected 0 for empty, got %d", total)
	}
}

func TestGetTodayTotalExcludesRunning(t *testing.T) {
	s := newTestStore(t)
	s.SaveRunning(context.Background(), "u1", running("a"))

	total, _ := s.GetTodayTotal("u1")
	if total != 0 {
		t.Fatal("running sessions should be excluded from today total")
	}
}

// ============================================================
// Sync logs
// ============================================================

func TestSyncLogLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ss := insertSession(t, s, "u1", "p", 600, 60)

	l := &SyncLog{UserID: "u1", SessionID: ss.ID, Operation: "complete"}
	if err := s.CreateSyncLog(ctx, l); err != nil {
		t.Fatal(err)
	}
	if l.ID == "" || l.Status != SyncPending {
		t.Fatalf("expected id and pending status, got %+v", l)
	}

	l.Status = SyncFailed
	l.Reason = "503"
	l.RetryCount = 1
	if err := s.UpdateSyncLog(ctx, l); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSyncLog(ctx, l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != SyncFailed || got.Reason != "503" || got.RetryCount != 1 {
		t.Fatalf("update not persisted: %+v", got)
	}
}

func TestSyncLogRequiresSession(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateSyncLog(context.Background(), &SyncLog{UserID: "u1", SessionID: "ghost", Operation: "complete"})
	if err == nil {
		t.Fatal("expected foreign key error")
	}
}

func TestSyncLogsDeletedWithSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ss := insertSession(t, s, "u1", "p", 600, 60)
	s.CreateSyncLog(ctx, &SyncLog{UserID: "u1", SessionID: ss.ID, Operation: "complete"})

	s.DeleteSession(ctx, ss.ID)
	logs, _ := s.ListSyncLogs(ctx, SyncLogFilter{})
	if len(logs) != 0 {
		t.Fatalf("expected logs to cascade, got %d", len(logs))
	}
}

func TestListRetryableSyncLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ss := insertSession(t, s, "u1", "p", 600, 60)

	fresh := &SyncLog{UserID: "u1", SessionID: ss.ID, Operation: "complete", Status: SyncFailed}
	spent := &SyncLog{UserID: "u1", SessionID: ss.ID, Operation: "complete", Status: SyncFailed, RetryCount: 3}
	ok := &SyncLog{UserID: "u1", SessionID: ss.ID, Operation: "complete", Status: SyncSuccess}
	unconfigured := &SyncLog{UserID: "u1", SessionID: ss.ID, Operation: "complete", Status: SyncNotConfigured}
	for _, l := range []*SyncLog{fresh, spent, ok, unconfigured} {
		if err := s.CreateSyncLog(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	logs, err := s.ListRetryableSyncLogs(ctx, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 1 || logs[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh failure, got %+v", logs)
	}

	failed, _ := s.ListSyncLogs(ctx, SyncLogFilter{UserID: "u1", Status: SyncFailed})
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed logs, got %d", len(failed))
	}
}

// ============================================================
// Connections
// ============================================================

func TestConnectionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetConnection(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	c := &Connection{
		UserID:        "u1",
		SpreadsheetID: "sheet-1",
		SheetName:     "Log",
		Columns:       map[string]string{"id": "A", "status": "B", "title": "Title", "startedAt": "D"},
		Required:      []string{"id", "status"},
		Timezone:      "Europe/Berlin",
	}
	if err := s.SaveConnection(ctx, c); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetConnection(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Columns["title"] != "Title" || len(got.Required) != 2 {
		t.Fatalf("unexpected connection: %+v", got)
	}

	cfg, err := got.SheetConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mapping[sheets.FieldStartedAt] != "D" || cfg.Location.String() != "Europe/Berlin" {
		t.Fatalf("unexpected sheet config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config should validate: %v", err)
	}
}

func TestConnectionBadTimezone(t *testing.T) {
	c := &Connection{SpreadsheetID: "x", Timezone: "Mars/Olympus"}
	_, err := c.SheetConfig()
	if !errors.Is(err, sheets.ErrNotConfigured) {
		t.Fatalf("expected config error, got %v", err)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	defaults := map[string]string{
		"adjust_step": "300",
		"daily_goal":  "28800",
		"week_start":  "monday",
	}
	for k, expected := range defaults {
		val, err := s.GetSetting(k)
		if err != nil {
			t.Fatalf("GetSetting(%q): %v", k, err)
		}
		if val != expected {
			t.Fatalf("GetSetting(%q) = %q, want %q", k, val, expected)
		}
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting("key", "v1")
	s.SetSetting("key", "v2")
	val, _ := s.GetSetting("key")
	if val != "v2" {
		t.Fatalf("expected v2, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetIntSetting(t *testing.T) {
	s := newTestStore(t)
	if got := s.GetIntSetting("adjust_step", 1); got != 300 {
		t.Fatalf("expected 300, got %d", got)
	}
	s.SetSetting("adjust_step", "abc")
	if got := s.GetIntSetting("adjust_step", 60); got != 60 {
		t.Fatalf("malformed value should fall back, got %d", got)
	}
	if got := s.GetIntSetting("missing", 7); got != 7 {
		t.Fatalf("missing key should fall back, got %d", got)
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) < 3 {
		t.Fatalf("expected at least 3 default settings, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
}

func TestCloseStore(t *testing.T) {
	s, _ := NewMemory()
	if err := s.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
}
