package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/sheetclock/internal/session"
)

var csvHeader = []string{"ID", "Title", "Project", "Tags", "Skill", "Intensity", "Start", "End", "Duration (s)", "Duration", "Notes"}

// ToCSV writes completed sessions to a new file at path.
func ToCSV(sessions []session.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, sessions); err != nil {
		return err
	}
	return f.Close()
}

// WriteCSV writes a header row and one row per session.
func WriteCSV(out io.Writer, sessions []session.Session) error {
	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range sessions {
		row := []string{
			s.ID,
			s.Title,
			s.Project,
			strings.Join(s.Tags, ", "),
			s.Skill,
			string(s.Intensity),
			s.StartedAt.Local().Format(time.RFC3339),
			s.EndedAt.Local().Format(time.RFC3339),
			strconv.FormatInt(s.DurationSeconds, 10),
			formatDuration(s.DurationSeconds),
			s.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
