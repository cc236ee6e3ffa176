package session

import (
	"strings"
	"time"
)

// State is either Idle or *Running.
type State interface {
	isState()
}

// Idle is the state with no session in progress.
type Idle struct{}

// Running holds the in-progress draft. Values are never mutated after
// Reduce returns them, so pointer identity means "nothing changed".
type Running struct {
	Draft          Draft
	ElapsedSeconds int64
}

func (Idle) isState()     {}
func (*Running) isState() {}

// Action is a transition request handed to Reduce.
type Action interface {
	isAction()
}

type Start struct {
	ID        string
	Title     string
	StartedAt time.Time
	Fields    Fields
}

type Tick struct {
	Now time.Time
}

type UpdateDraft struct {
	Patch Patch
}

type AdjustDuration struct {
	Delta time.Duration
	Now   time.Time
}

type Reset struct{}

// Restore replaces the state wholesale. The caller vouches for its validity.
type Restore struct {
	State State
}

func (Start) isAction()          {}
func (Tick) isAction()           {}
func (UpdateDraft) isAction()    {}
func (AdjustDuration) isAction() {}
func (Reset) isAction()          {}
func (Restore) isAction()        {}

// AsRunning returns the running payload, or nil when s is idle.
func AsRunning(s State) *Running {
	r, _ := s.(*Running)
	return r
}

// IsRunning reports whether s holds a draft.
func IsRunning(s State) bool {
	return AsRunning(s) != nil
}

// Reduce applies a to s. Invalid transitions return s unchanged.
func Reduce(s State, a Action) State {
	if s == nil {
		s = Idle{}
	}
	switch a := a.(type) {
	case Start:
		return start(s, a)
	case Tick:
		return tick(s, a)
	case UpdateDraft:
		r := AsRunning(s)
		if r == nil {
			return s
		}
		return &Running{Draft: r.Draft.apply(a.Patch), ElapsedSeconds: r.ElapsedSeconds}
	case AdjustDuration:
		return adjust(s, a)
	case Reset:
		return Idle{}
	case Restore:
		if a.State == nil {
			return Idle{}
		}
		return a.State
	}
	return s
}

func start(s State, a Start) State {
	if IsRunning(s) {
		return s
	}
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return s
	}
	id := a.ID
	if id == "" {
		id = NewID()
	}
	d := Draft{
		ID:        id,
		Title:     title,
		StartedAt: a.StartedAt.Truncate(time.Millisecond),
	}
	d = d.apply(Patch{
		Project:   &a.Fields.Project,
		Tags:      &a.Fields.Tags,
		Skill:     &a.Fields.Skill,
		Intensity: &a.Fields.Intensity,
		Notes:     &a.Fields.Notes,
	})
	return &Running{Draft: d}
}

func tick(s State, a Tick) State {
	r := AsRunning(s)
	if r == nil {
		return s
	}
	elapsed := elapsedAt(r.Draft.StartedAt, a.Now)
	if elapsed == r.ElapsedSeconds {
		return r
	}
	return &Running{Draft: r.Draft, ElapsedSeconds: elapsed}
}

// adjust moves StartedAt so that the elapsed time, measured from Now, changes by
// Delta. Every call re-anchors on Now; there is no separate offset to accumulate.
func adjust(s State, a AdjustDuration) State {
	r := AsRunning(s)
	if r == nil {
		return s
	}
	base := elapsedAt(r.Draft.StartedAt, a.Now)
	adjusted := base + floorSeconds(a.Delta)
	if adjusted < 0 {
		adjusted = 0
	}
	if adjusted == base {
		return r
	}
	d := r.Draft.clone()
	d.StartedAt = a.Now.Add(-time.Duration(adjusted) * time.Second).Truncate(time.Millisecond)
	return &Running{Draft: d, ElapsedSeconds: adjusted}
}

func elapsedAt(startedAt, now time.Time) int64 {
	secs := floorSeconds(now.Sub(startedAt))
	if secs < 0 {
		return 0
	}
	return secs
}
