package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/sheetclock/internal/session"
)

type jsonExport struct {
	ExportedAt string        `json:"exported_at"`
	Count      int           `json:"count"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Project     string   `json:"project,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Skill       string   `json:"skill,omitempty"`
	Intensity   string   `json:"intensity,omitempty"`
	StartTime   string   `json:"start_time"`
	EndTime     string   `json:"end_time"`
	DurationSec int64    `json:"duration_seconds"`
	Duration    string   `json:"duration"`
	Notes       string   `json:"notes,omitempty"`
}

// ToJSON writes completed sessions as an indented document to path.
func ToJSON(sessions []session.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, sessions); err != nil {
		return err
	}
	return f.Close()
}

func WriteJSON(w io.Writer, sessions []session.Session) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, s := range sessions {
		export.Sessions = append(export.Sessions, jsonSession{
			ID:          s.ID,
			Title:       s.Title,
			Project:     s.Project,
			Tags:        s.Tags,
			Skill:       s.Skill,
			Intensity:   string(s.Intensity),
			StartTime:   s.StartedAt.Local().Format(time.RFC3339),
			EndTime:     s.EndedAt.Local().Format(time.RFC3339),
			DurationSec: s.DurationSeconds,
			Duration:    formatDuration(s.DurationSeconds),
			Notes:       s.Notes,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
