// Package reconcile keeps the local running session, its durable mirror and
// the spreadsheet in step.
//
// A Syncer is owned by the single dispatch loop and is not safe for concurrent
// use. It never performs I/O itself: every remote call is returned as an
// Effect for the dispatcher to run asynchronously. Effects never touch the
// Syncer; their outcome comes back as an Event, which is informational only.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/sheets"
)

// Mirror is the durable per-user copy of the running state.
type Mirror interface {
	Load(ctx context.Context) (session.State, error)
	Save(ctx context.Context, st session.State) error
}

// SheetSync drives the spreadsheet row of the current session.
type SheetSync interface {
	Start(ctx context.Context, d session.Draft) (sheets.Result, error)
	Update(ctx context.Context, d session.Draft, elapsed int64) (sheets.Result, error)
	Cancel(ctx context.Context, id string) (sheets.Result, error)
	Complete(ctx context.Context, s session.Session) (sheets.Result, error)
}

// Op names the remote operation an Event reports on.
type Op string

const (
	OpPersist  Op = "persist"
	OpStart    Op = "sheet.start"
	OpUpdate   Op = "sheet.update"
	OpCancel   Op = "sheet.cancel"
	OpComplete Op = "sheet.complete"
)

// Event is the outcome of one Effect.
type Event struct {
	Op        Op
	SessionID string
	Result    sheets.Result
	Err       error
}

// Effect is deferred remote work.
type Effect func(ctx context.Context) Event

// FetchResult carries the remote state loaded at startup.
type FetchResult struct {
	State session.State
	Err   error
}

// FetchEffect loads the remote mirror.
type FetchEffect func(ctx context.Context) FetchResult

type Options struct {
	Mirror  Mirror
	Sheet   SheetSync
	Logger  *slog.Logger
	Timeout time.Duration
}

type Syncer struct {
	mirror  Mirror
	sheet   SheetSync
	logger  *slog.Logger
	timeout time.Duration

	ready        bool
	fetchSig     string
	persistedSig string

	sheetID  string
	sheetSig string
}

// New returns a Syncer. Without a mirror sync is disabled.
func New(opts Options) *Syncer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Syncer{
		mirror:  opts.Mirror,
		sheet:   opts.Sheet,
		logger:  logger,
		timeout: timeout,
	}
}

// Enabled reports whether a stable identity backs this Syncer. When false the
// caller must keep the state Idle; no Effect is ever produced.
func (s *Syncer) Enabled() bool {
	return s != nil && s.mirror != nil
}

// Ready reports whether the startup reconciliation has completed.
func (s *Syncer) Ready() bool {
	return s.ready
}

// Fetch starts the startup load. The local signature is captured now so that
// Reconcile can tell whether an edit raced the fetch.
func (s *Syncer) Fetch(local session.State) FetchEffect {
	if !s.Enabled() {
		return nil
	}
	s.fetchSig = session.Signature(local)
	mirror, timeout := s.mirror, s.timeout
	return func(ctx context.Context) FetchResult {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		st, err := mirror.Load(ctx)
		return FetchResult{State: st, Err: err}
	}
}

// Reconcile merges the fetched remote state with the current local state. It
// returns the state to adopt (local unless adopted is true) and any writes the
// merge requires.
func (s *Syncer) Reconcile(local session.State, res FetchResult) (session.State, bool, []Effect) {
	if !s.Enabled() {
		return local, false, nil
	}
	s.ready = true
	localSig := session.Signature(local)

	if res.Err != nil {
		s.logger.Warn("load running session failed", "error", res.Err)
		s.persistedSig = localSig
		return local, false, nil
	}

	remote := res.State
	if remote == nil {
		remote = session.Idle{}
	}
	remoteSig := session.Signature(remote)

	if localSig != s.fetchSig {
		// An edit landed while the fetch was in flight; the snapshot is stale.
		s.logger.Info("local edit raced remote load, keeping local", "local", localSig)
		s.persistedSig = localSig
		return local, false, []Effect{s.persist(local)}
	}

	s.persistedSig = remoteSig
	if remoteSig == localSig {
		return local, false, nil
	}
	if r := session.AsRunning(remote); r != nil {
		// The remote session's row already exists.
		s.sheetID = r.Draft.ID
		s.sheetSig = session.DraftSignature(r.Draft)
	} else {
		s.sheetID, s.sheetSig = "", ""
	}
	return session.Reduce(local, session.Restore{State: remote}), true, nil
}

// Observe is called with every state the dispatcher commits. It returns the
// mirror write, deduplicated by signature, and the spreadsheet call the
// transition implies.
func (s *Syncer) Observe(next session.State) []Effect {
	if !s.Enabled() {
		return nil
	}
	var effects []Effect

	if s.ready {
		if sig := session.Signature(next); sig != s.persistedSig {
			s.persistedSig = sig
			effects = append(effects, s.persist(next))
		}
	}

	r := session.AsRunning(next)
	if r == nil {
		s.sheetID, s.sheetSig = "", ""
		return effects
	}
	sig := session.DraftSignature(r.Draft)
	switch {
	case r.Draft.ID != s.sheetID:
		s.sheetID, s.sheetSig = r.Draft.ID, sig
		effects = appendEffect(effects, s.sheetStart(r.Draft))
	case sig != s.sheetSig:
		s.sheetSig = sig
		effects = appendEffect(effects, s.sheetUpdate(r.Draft, r.ElapsedSeconds))
	}
	return effects
}

// Complete finalizes the session's row.
func (s *Syncer) Complete(done session.Session) []Effect {
	if !s.Enabled() || s.sheet == nil {
		return nil
	}
	sheet := s.sheet
	return []Effect{s.wrap(OpComplete, done.ID, func(ctx context.Context) (sheets.Result, error) {
		return sheet.Complete(ctx, done)
	})}
}

// Cancel discards the row of an abandoned session.
func (s *Syncer) Cancel(id string) []Effect {
	if !s.Enabled() || s.sheet == nil || id == "" {
		return nil
	}
	sheet := s.sheet
	return []Effect{s.wrap(OpCancel, id, func(ctx context.Context) (sheets.Result, error) {
		return sheet.Cancel(ctx, id)
	})}
}

func (s *Syncer) persist(st session.State) Effect {
	mirror := s.mirror
	id := ""
	if r := session.AsRunning(st); r != nil {
		id = r.Draft.ID
	}
	return s.wrap(OpPersist, id, func(ctx context.Context) (sheets.Result, error) {
		if err := mirror.Save(ctx, st); err != nil {
			return sheets.Result{}, err
		}
		return sheets.Result{Status: sheets.StatusOK}, nil
	})
}

func (s *Syncer) sheetStart(d session.Draft) Effect {
	if s.sheet == nil {
		return nil
	}
	sheet := s.sheet
	return s.wrap(OpStart, d.ID, func(ctx context.Context) (sheets.Result, error) {
		return sheet.Start(ctx, d)
	})
}

func (s *Syncer) sheetUpdate(d session.Draft, elapsed int64) Effect {
	if s.sheet == nil {
		return nil
	}
	sheet := s.sheet
	return s.wrap(OpUpdate, d.ID, func(ctx context.Context) (sheets.Result, error) {
		return sheet.Update(ctx, d, elapsed)
	})
}

// wrap applies the timeout and logs failures; the dispatcher only ever sees
// the Event.
func (s *Syncer) wrap(op Op, id string, fn func(context.Context) (sheets.Result, error)) Effect {
	logger, timeout := s.logger, s.timeout
	return func(ctx context.Context) Event {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		res, err := fn(ctx)
		if err != nil {
			logger.Warn("sync effect failed", "op", string(op), "session_id", id, "error", err)
		} else {
			logger.Debug("sync effect done", "op", string(op), "session_id", id, "status", string(res.Status))
		}
		return Event{Op: op, SessionID: id, Result: res, Err: err}
	}
}

func appendEffect(effects []Effect, e Effect) []Effect {
	if e == nil {
		return effects
	}
	return append(effects, e)
}
