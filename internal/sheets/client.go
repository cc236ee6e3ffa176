package sheets

import "context"

// Client is the slice of the spreadsheet service the upsert protocol needs.
// Ranges use A1 notation including the quoted sheet name.
type Client interface {
	// GetValues reads a range. Trailing empty rows and cells may be omitted.
	GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error)

	// AppendRow appends one row after the last non-empty row of the table at rng
	// and returns the updated range, e.g. 'Log'!A7:K7.
	AppendRow(ctx context.Context, spreadsheetID, rng string, row []string, valueInput string) (string, error)

	// BatchUpdate writes every cell in one request and returns the number of
	// updated cells.
	BatchUpdate(ctx context.Context, spreadsheetID string, cells []CellUpdate, valueInput string) (int, error)

	// DeleteRow removes the 1-based sheet row from the named sheet.
	DeleteRow(ctx context.Context, spreadsheetID, sheet string, row int) error
}

// CellUpdate is a single-cell write.
type CellUpdate struct {
	Range string
	Value string
}

// ResultStatus is the coarse outcome of a protocol call.
type ResultStatus string

const (
	StatusOK      ResultStatus = "ok"
	StatusSkipped ResultStatus = "skipped"
)

// Result describes a successful protocol call.
type Result struct {
	Status       ResultStatus
	Row          int
	UpdatedRange string
	UpdatedCells int
	Appended     bool
}
