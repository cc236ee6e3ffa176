package sheets

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// GoogleOptions configures the Google Sheets adapter. Token acquisition is not
// handled here: callers pass either a ready access token or a credentials file.
type GoogleOptions struct {
	AccessToken     string
	CredentialsFile string
	Endpoint        string
	HTTPClient      *http.Client
}

// GoogleClient implements Client on the Sheets v4 REST API.
type GoogleClient struct {
	svc *gsheets.Service

	mu       sync.Mutex
	sheetIDs map[string]int64 // "spreadsheetID/title" -> numeric sheet id
}

func NewGoogleClient(ctx context.Context, opts GoogleOptions) (*GoogleClient, error) {
	var copts []option.ClientOption
	switch {
	case opts.HTTPClient != nil:
		copts = append(copts, option.WithHTTPClient(opts.HTTPClient))
	case opts.AccessToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken, TokenType: "Bearer"})
		copts = append(copts, option.WithTokenSource(ts))
	case opts.CredentialsFile != "":
		copts = append(copts, option.WithCredentialsFile(opts.CredentialsFile), option.WithScopes(gsheets.SpreadsheetsScope))
	default:
		return nil, &ConfigError{Reason: "no google credentials configured"}
	}
	if opts.Endpoint != "" {
		copts = append(copts, option.WithEndpoint(opts.Endpoint))
	}
	svc, err := gsheets.NewService(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleClient{svc: svc, sheetIDs: make(map[string]int64)}, nil
}

func (c *GoogleClient) GetValues(ctx context.Context, spreadsheetID, rng string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rng).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("get values %s: %w", rng, err)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = fmt.Sprint(v)
		}
		out[i] = cells
	}
	return out, nil
}

func (c *GoogleClient) AppendRow(ctx context.Context, spreadsheetID, rng string, row []string, valueInput string) (string, error) {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	resp, err := c.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheets.ValueRange{
		Values: [][]interface{}{values},
	}).
		ValueInputOption(valueInput).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append values: %w", err)
	}
	if resp.Updates == nil {
		return "", nil
	}
	return resp.Updates.UpdatedRange, nil
}

func (c *GoogleClient) BatchUpdate(ctx context.Context, spreadsheetID string, cells []CellUpdate, valueInput string) (int, error) {
	data := make([]*gsheets.ValueRange, len(cells))
	for i, cell := range cells {
		data[i] = &gsheets.ValueRange{
			Range:  cell.Range,
			Values: [][]interface{}{{cell.Value}},
		}
	}
	resp, err := c.svc.Spreadsheets.Values.BatchUpdate(spreadsheetID, &gsheets.BatchUpdateValuesRequest{
		ValueInputOption: valueInput,
		Data:             data,
	}).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("batch update values: %w", err)
	}
	return int(resp.TotalUpdatedCells), nil
}

func (c *GoogleClient) DeleteRow(ctx context.Context, spreadsheetID, sheet string, row int) error {
	sheetID, err := c.sheetID(ctx, spreadsheetID, sheet)
	if err != nil {
		return err
	}
	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			DeleteDimension: &gsheets.DeleteDimensionRequest{
				Range: &gsheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
					// Sheet id 0 and index 0 are valid and must not be omitted.
					ForceSendFields: []string{"SheetId", "StartIndex", "EndIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

func (c *GoogleClient) sheetID(ctx context.Context, spreadsheetID, title string) (int64, error) {
	key := spreadsheetID + "/" + title
	c.mu.Lock()
	id, ok := c.sheetIDs[key]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			c.mu.Lock()
			c.sheetIDs[key] = sh.Properties.SheetId
			c.mu.Unlock()
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", title)
}
