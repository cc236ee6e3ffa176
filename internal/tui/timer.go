package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/sheetclock/internal/session"
)

// tickDriver schedules one-second ticks while a session is running. Each tick
// carries the generation it was scheduled under and leaving Running bumps the
// generation, so a tick already in flight is dropped on arrival.
type tickDriver struct {
	interval time.Duration
	gen      int
	running  bool
}

func newTickDriver() tickDriver {
	return tickDriver{interval: time.Second}
}

// follow aligns the driver with st and returns the first tick when a session
// has just started running.
func (t *tickDriver) follow(st session.State) tea.Cmd {
	running := session.IsRunning(st)
	switch {
	case running && !t.running:
		t.running = true
		return t.schedule()
	case !running && t.running:
		t.stop()
	}
	return nil
}

func (t *tickDriver) stop() {
	if t.running {
		t.running = false
		t.gen++
	}
}

// accept reports whether msg was scheduled by the current generation.
func (t tickDriver) accept(msg tickMsg) bool {
	return t.running && msg.gen == t.gen
}

func (t tickDriver) schedule() tea.Cmd {
	gen := t.gen
	return tea.Tick(t.interval, func(at time.Time) tea.Msg {
		return tickMsg{gen: gen, at: at}
	})
}
