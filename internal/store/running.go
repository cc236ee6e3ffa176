package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/sheetclock/internal/session"
)

// LoadRunning returns the persisted running state for a user. No row means Idle.
func (s *Store) LoadRunning(ctx context.Context, userID string) (session.State, error) {
	var (
		d               session.Draft
		startedAt, tags string
		intensity       string
		elapsed         int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, title, started_at, elapsed_seconds, project, tags, skill, intensity, notes
		FROM running_sessions WHERE user_id = ?`, userID,
	).Scan(&d.ID, &d.Title, &startedAt, &elapsed, &d.Project, &tags, &d.Skill, &intensity, &d.Notes)
	if errors.Is(notFound(err), ErrNotFound) {
		return session.Idle{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load running session: %w", err)
	}
	d.StartedAt = parseTime(startedAt)
	d.Tags = decodeTags(tags)
	d.Intensity = session.ParseIntensity(intensity)
	return &session.Running{Draft: d, ElapsedSeconds: elapsed}, nil
}

// SaveRunning replaces the user's mirror. Saving Idle deletes the row.
func (s *Store) SaveRunning(ctx context.Context, userID string, st session.State) error {
	r := session.AsRunning(st)
	if r == nil {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM running_sessions WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("clear running session: %w", err)
		}
		return nil
	}
	d := r.Draft
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO running_sessions
			(user_id, session_id, title, started_at, elapsed_seconds, project, tags, skill, intensity, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			session_id = excluded.session_id,
			title = excluded.title,
			started_at = excluded.started_at,
			elapsed_seconds = excluded.elapsed_seconds,
			project = excluded.project,
			tags = excluded.tags,
			skill = excluded.skill,
			intensity = excluded.intensity,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		userID, d.ID, d.Title, formatTime(d.StartedAt), r.ElapsedSeconds,
		d.Project, encodeTags(d.Tags), d.Skill, string(d.Intensity), d.Notes,
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("save running session: %w", err)
	}
	return nil
}

// Mirror binds the running-session table to one user.
type Mirror struct {
	store  *Store
	userID string
}

func (s *Store) Mirror(userID string) *Mirror {
	return &Mirror{store: s, userID: userID}
}

func (m *Mirror) Load(ctx context.Context) (session.State, error) {
	return m.store.LoadRunning(ctx, m.userID)
}

func (m *Mirror) Save(ctx context.Context, st session.State) error {
	return m.store.SaveRunning(ctx, m.userID, st)
}

func encodeTags(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(s string) []string {
	var tags []string
	_ = json.Unmarshal([]byte(s), &tags)
	if len(tags) == 0 {
		return nil
	}
	return tags
}
