package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/sheetclock/internal/sheets"
)

func (s *Store) GetConnection(ctx context.Context, userID string) (*Connection, error) {
	var (
		c                      Connection
		columns, required, upd string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, spreadsheet_id, sheet_name, columns, required, time_format, timezone,
		       value_input, duration_format, updated_at
		FROM connections WHERE user_id = ?`, userID,
	).Scan(&c.UserID, &c.SpreadsheetID, &c.SheetName, &columns, &required, &c.TimeFormat,
		&c.Timezone, &c.ValueInput, &c.DurationFormat, &upd)
	if err != nil {
		return nil, fmt.Errorf("get connection %s: %w", userID, notFound(err))
	}
	_ = json.Unmarshal([]byte(columns), &c.Columns)
	_ = json.Unmarshal([]byte(required), &c.Required)
	c.UpdatedAt = parseTime(upd)
	return &c, nil
}

func (s *Store) SaveConnection(ctx context.Context, c *Connection) error {
	columns, err := json.Marshal(c.Columns)
	if err != nil {
		return fmt.Errorf("encode columns: %w", err)
	}
	if c.Columns == nil {
		columns = []byte("{}")
	}
	required, err := json.Marshal(c.Required)
	if err != nil {
		return fmt.Errorf("encode required fields: %w", err)
	}
	if c.Required == nil {
		required = []byte("[]")
	}
	c.UpdatedAt = time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO connections
			(user_id, spreadsheet_id, sheet_name, columns, required, time_format, timezone,
			 value_input, duration_format, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			spreadsheet_id = excluded.spreadsheet_id,
			sheet_name = excluded.sheet_name,
			columns = excluded.columns,
			required = excluded.required,
			time_format = excluded.time_format,
			timezone = excluded.timezone,
			value_input = excluded.value_input,
			duration_format = excluded.duration_format,
			updated_at = excluded.updated_at`,
		c.UserID, c.SpreadsheetID, c.SheetName, string(columns), string(required), c.TimeFormat,
		c.Timezone, c.ValueInput, c.DurationFormat, formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save connection: %w", err)
	}
	return nil
}

// SheetConfig converts the stored connection into an upsert configuration.
func (c *Connection) SheetConfig() (sheets.Config, error) {
	cfg := sheets.Config{
		SpreadsheetID:  c.SpreadsheetID,
		SheetName:      c.SheetName,
		Mapping:        sheets.ParseMapping(c.Columns),
		Required:       sheets.ParseFields(c.Required),
		TimeFormat:     c.TimeFormat,
		ValueInput:     c.ValueInput,
		DurationFormat: sheets.DurationFormat(c.DurationFormat),
	}
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return sheets.Config{}, &sheets.ConfigError{Reason: fmt.Sprintf("unknown timezone %q", c.Timezone)}
		}
		cfg.Location = loc
	}
	return cfg, nil
}
