package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/sheetclock/internal/session"
)

const sessionColumns = `id, title, started_at, ended_at, duration, project, tags, skill, intensity, notes`

// SaveSession stores a completed session. Saving the same id twice keeps the
// latest copy.
func (s *Store) SaveSession(ctx context.Context, userID string, ss session.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, title, started_at, ended_at, duration, project, tags, skill, intensity, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			duration = excluded.duration,
			project = excluded.project,
			tags = excluded.tags,
			skill = excluded.skill,
			intensity = excluded.intensity,
			notes = excluded.notes`,
		ss.ID, userID, ss.Title, formatTime(ss.StartedAt), formatTime(ss.EndedAt), ss.DurationSeconds,
		ss.Project, encodeTags(ss.Tags), ss.Skill, string(ss.Intensity), ss.Notes,
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	ss, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, notFound(err))
	}
	return ss, nil
}

// SessionOwner returns the user that recorded a session.
func (s *Store) SessionOwner(ctx context.Context, id string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT user_id FROM sessions WHERE id = ?`, id).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("get session owner %s: %w", id, notFound(err))
	}
	return userID, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, f SessionFilter) ([]session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any

	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.Project != "" {
		query += ` AND project = ?`
		args = append(args, f.Project)
	}
	if f.From != nil {
		query += ` AND started_at >= ?`
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		query += ` AND started_at < ?`
		args = append(args, formatTime(*f.To))
	}
	query += ` ORDER BY started_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Session
	for rows.Next() {
		ss, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ss)
	}
	return out, rows.Err()
}

func (s *Store) GetDailySummary(userID string, from, to time.Time) ([]DailySummary, error) {
	rows, err := s.db.Query(`
		SELECT date(started_at) AS day, project, COALESCE(SUM(duration), 0), COUNT(*)
		FROM sessions
		WHERE user_id = ? AND started_at >= ? AND started_at < ?
		GROUP BY day, project
		ORDER BY day, project`,
		userID, formatTime(from), formatTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("daily summary: %w", err)
	}
	defer rows.Close()

	var summaries []DailySummary
	for rows.Next() {
		var ds DailySummary
		if err := rows.Scan(&ds.Date, &ds.Project, &ds.TotalSeconds, &ds.SessionCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, ds)
	}
	return summaries, rows.Err()
}

func (s *Store) GetTodayTotal(userID string) (int64, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var total sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(duration), 0)
		FROM sessions
		WHERE user_id = ? AND date(started_at) = ?`, userID, today,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var (
		ss                       session.Session
		startedAt, endedAt, tags string
		intensity                string
	)
	if err := row.Scan(&ss.ID, &ss.Title, &startedAt, &endedAt, &ss.DurationSeconds,
		&ss.Project, &tags, &ss.Skill, &intensity, &ss.Notes); err != nil {
		return nil, err
	}
	ss.StartedAt = parseTime(startedAt)
	ss.EndedAt = parseTime(endedAt)
	ss.Tags = decodeTags(tags)
	ss.Intensity = session.ParseIntensity(intensity)
	return &ss, nil
}
