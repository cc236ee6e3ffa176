package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/sheetclock/internal/session"
)

// record holds the cell text for each logical field of one row.
type record map[Field]string

func runningRecord(cfg Config, d session.Draft, elapsed int64) record {
	return record{
		FieldID:        d.ID,
		FieldStatus:    StatusRunning,
		FieldTitle:     d.Title,
		FieldStartedAt: formatTime(cfg, d.StartedAt),
		FieldEndedAt:   "",
		FieldDuration:  formatDuration(cfg, elapsed),
		FieldProject:   d.Project,
		FieldTags:      strings.Join(d.Tags, ", "),
		FieldSkill:     d.Skill,
		FieldIntensity: string(d.Intensity),
		FieldNotes:     d.Notes,
	}
}

func completedRecord(cfg Config, s session.Session) record {
	return record{
		FieldID:        s.ID,
		FieldStatus:    StatusCompleted,
		FieldTitle:     s.Title,
		FieldStartedAt: formatTime(cfg, s.StartedAt),
		FieldEndedAt:   formatTime(cfg, s.EndedAt),
		FieldDuration:  formatDuration(cfg, s.DurationSeconds),
		FieldProject:   s.Project,
		FieldTags:      strings.Join(s.Tags, ", "),
		FieldSkill:     s.Skill,
		FieldIntensity: string(s.Intensity),
		FieldNotes:     s.Notes,
	}
}

// buildRow lays the record out by column index; unmapped positions stay blank.
func buildRow(rec record, cols columns) []string {
	width := 0
	for _, idx := range cols {
		if idx+1 > width {
			width = idx + 1
		}
	}
	row := make([]string, width)
	for f, idx := range cols {
		row[idx] = rec[f]
	}
	return row
}

// cellUpdates addresses every resolved field of rec at the given sheet row.
// The id cell is left alone since it is what located the row.
func cellUpdates(sheet string, row int, rec record, cols columns) []CellUpdate {
	var out []CellUpdate
	for _, f := range Fields {
		idx, ok := cols[f]
		if !ok || f == FieldID {
			continue
		}
		out = append(out, CellUpdate{
			Range: A1(sheet, fmt.Sprintf("%s%d", IndexToColumnKey(idx), row)),
			Value: rec[f],
		})
	}
	return out
}

func formatTime(cfg Config, t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(cfg.location()).Format(cfg.timeFormat())
}

func formatDuration(cfg Config, secs int64) string {
	if cfg.DurationFormat == DurationClock {
		h := secs / 3600
		m := (secs % 3600) / 60
		s := secs % 60
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return strconv.FormatInt(secs, 10)
}

// rowFromRange extracts the first row number of an A1 range such as
// 'Log'!A7:K7. It returns 0 when the range has no row component.
func rowFromRange(rng string) int {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz$")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
