package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sadopc/sheetclock/internal/session"
)

// columns maps each resolvable field to its zero-based column index.
type columns map[Field]int

// Upserter keeps at most one row per session id in the configured sheet.
// Duplicate ids are not detected: the first matching row from the top is the
// one every call mutates.
type Upserter struct {
	client Client
	cfg    Config
	logger *slog.Logger
}

func NewUpserter(client Client, cfg Config, logger *slog.Logger) *Upserter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ValueInput == "" {
		cfg.ValueInput = "USER_ENTERED"
	}
	return &Upserter{client: client, cfg: cfg, logger: logger}
}

// Config returns the connection the upserter writes to.
func (u *Upserter) Config() Config {
	return u.cfg
}

// Start appends a Running row for a freshly started draft.
func (u *Upserter) Start(ctx context.Context, d session.Draft) (Result, error) {
	if err := u.precheck(FieldID, FieldStatus); err != nil {
		return Result{}, err
	}
	cols, headerErr := u.resolve(ctx)
	if err := requireResolved(cols, headerErr, FieldID, FieldStatus); err != nil {
		return Result{}, err
	}
	return u.append(ctx, buildRow(runningRecord(u.cfg, d, 0), cols))
}

// Update rewrites every mapped cell of the draft's row. A missing row is
// reported as ErrRowNotFound; the row is never recreated here.
func (u *Upserter) Update(ctx context.Context, d session.Draft, elapsed int64) (Result, error) {
	if err := u.precheck(FieldID); err != nil {
		return Result{}, err
	}
	cols, headerErr := u.resolve(ctx)
	if err := requireResolved(cols, headerErr, FieldID); err != nil {
		return Result{}, err
	}
	row, err := u.findRow(ctx, cols[FieldID], d.ID)
	if err != nil {
		return Result{}, err
	}
	cells := cellUpdates(u.cfg.sheetName(), row, runningRecord(u.cfg, d, elapsed), cols)
	if len(cells) == 0 {
		return Result{Status: StatusSkipped, Row: row}, nil
	}
	n, err := u.client.BatchUpdate(ctx, u.cfg.SpreadsheetID, cells, u.cfg.ValueInput)
	if err != nil {
		return Result{}, fmt.Errorf("update row %d: %w", row, err)
	}
	return Result{Status: StatusOK, Row: row, UpdatedCells: n}, nil
}

// Complete flips the session's row to Completed. When no row exists (the
// Running row was never written) a completed row is appended instead.
func (u *Upserter) Complete(ctx context.Context, s session.Session) (Result, error) {
	if err := u.precheck(FieldID, FieldStatus); err != nil {
		return Result{}, err
	}
	cols, headerErr := u.resolve(ctx)
	if err := requireResolved(cols, headerErr, FieldID, FieldStatus); err != nil {
		return Result{}, err
	}
	rec := completedRecord(u.cfg, s)
	row, err := u.findRow(ctx, cols[FieldID], s.ID)
	if errors.Is(err, ErrRowNotFound) {
		u.logger.InfoContext(ctx, "running row missing, appending completed row", "session_id", s.ID)
		return u.append(ctx, buildRow(rec, cols))
	}
	if err != nil {
		return Result{}, err
	}
	cells := cellUpdates(u.cfg.sheetName(), row, rec, cols)
	n, err := u.client.BatchUpdate(ctx, u.cfg.SpreadsheetID, cells, u.cfg.ValueInput)
	if err != nil {
		return Result{}, fmt.Errorf("complete row %d: %w", row, err)
	}
	return Result{Status: StatusOK, Row: row, UpdatedCells: n}, nil
}

// Cancel removes the row of a discarded draft. No row means nothing to undo.
func (u *Upserter) Cancel(ctx context.Context, id string) (Result, error) {
	return u.remove(ctx, id)
}

// Delete removes the row of a completed session. No row means nothing to undo.
func (u *Upserter) Delete(ctx context.Context, id string) (Result, error) {
	return u.remove(ctx, id)
}

func (u *Upserter) remove(ctx context.Context, id string) (Result, error) {
	if err := u.precheck(FieldID); err != nil {
		return Result{}, err
	}
	cols, headerErr := u.resolve(ctx)
	if err := requireResolved(cols, headerErr, FieldID); err != nil {
		return Result{}, err
	}
	row, err := u.findRow(ctx, cols[FieldID], id)
	if errors.Is(err, ErrRowNotFound) {
		return Result{Status: StatusSkipped}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if err := u.client.DeleteRow(ctx, u.cfg.SpreadsheetID, u.cfg.sheetName(), row); err != nil {
		return Result{}, fmt.Errorf("delete row %d: %w", row, err)
	}
	return Result{Status: StatusOK, Row: row}, nil
}

func (u *Upserter) append(ctx context.Context, row []string) (Result, error) {
	if len(row) == 0 {
		return Result{}, &ConfigError{Reason: "no mapped column could be resolved"}
	}
	rng, err := u.client.AppendRow(ctx, u.cfg.SpreadsheetID, A1(u.cfg.sheetName(), "A1"), row, u.cfg.ValueInput)
	if err != nil {
		return Result{}, fmt.Errorf("append row: %w", err)
	}
	return Result{Status: StatusOK, Row: rowFromRange(rng), UpdatedRange: rng, Appended: true}, nil
}

// precheck runs the checks that need no network: a valid connection and the
// given fields present in the mapping.
func (u *Upserter) precheck(fields ...Field) error {
	if err := u.cfg.Validate(); err != nil {
		return err
	}
	var missing []Field
	for _, f := range fields {
		if strings.TrimSpace(u.cfg.Mapping[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ConfigError{Reason: "required columns not mapped", Fields: missing}
	}
	return nil
}

// resolve places every mapped field. The header row is read only when some
// mapping is header text; if that read fails, only header-named fields drop out
// and the read error is returned alongside.
func (u *Upserter) resolve(ctx context.Context) (columns, error) {
	var (
		header    []string
		headerErr error
	)
	if RequiresHeaderLookup(u.cfg.Mapping) {
		rows, err := u.client.GetValues(ctx, u.cfg.SpreadsheetID, A1(u.cfg.sheetName(), "1:1"))
		if err != nil {
			u.logger.WarnContext(ctx, "header row unavailable, skipping header-named columns", "error", err)
			headerErr = fmt.Errorf("read header row: %w", err)
		} else if len(rows) > 0 {
			header = rows[0]
		} else {
			header = []string{}
		}
	}
	cols := make(columns, len(u.cfg.Mapping))
	for f, ref := range u.cfg.Mapping {
		letters, ok := ResolveColumnLetter(ref, header)
		if !ok {
			u.logger.DebugContext(ctx, "column not resolved", "field", f, "ref", ref)
			continue
		}
		cols[f] = ColumnKeyToIndex(letters)
	}
	return cols, headerErr
}

// requireResolved fails when a field has no column. Columns lost to a failed
// header read are a remote error, not a configuration one.
func requireResolved(cols columns, headerErr error, fields ...Field) error {
	var missing []Field
	for _, f := range fields {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	switch {
	case len(missing) == 0:
		return nil
	case headerErr != nil:
		return headerErr
	default:
		return &ConfigError{Reason: "columns not found in header row", Fields: missing}
	}
}

// findRow scans the id column from row 1 and returns the 1-based sheet row of
// the first cell whose trimmed value equals id.
func (u *Upserter) findRow(ctx context.Context, idCol int, id string) (int, error) {
	letter := IndexToColumnKey(idCol)
	rng := A1(u.cfg.sheetName(), fmt.Sprintf("%s1:%s", letter, letter))
	rows, err := u.client.GetValues(ctx, u.cfg.SpreadsheetID, rng)
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}
	want := strings.TrimSpace(id)
	if want == "" {
		return 0, ErrRowNotFound
	}
	for p, r := range rows {
		if len(r) > 0 && strings.TrimSpace(r[0]) == want {
			return p + 1, nil
		}
	}
	return 0, fmt.Errorf("session %s: %w", want, ErrRowNotFound)
}
