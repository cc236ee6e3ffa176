package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/sheetclock/internal/service"
	"github.com/sadopc/sheetclock/internal/session"
	"github.com/sadopc/sheetclock/internal/sheets"
	"github.com/sadopc/sheetclock/internal/store"
)

// Client talks to a sheetclock server. It implements identity.Verifier and,
// for its own token, the mirror and sheet ports of the reconcile package.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a client for baseURL that authenticates with token. A nil
// httpClient gets a default with a short dial timeout.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			},
		}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// Verify asks the server who token belongs to.
func (c *Client) Verify(ctx context.Context, token string) (string, error) {
	var me MeJSON
	if err := c.doAs(ctx, token, http.MethodGet, "/api/me", nil, &me); err != nil {
		return "", err
	}
	return me.UserID, nil
}

func (c *Client) Load(ctx context.Context) (session.State, error) {
	var body RunningJSON
	if err := c.do(ctx, http.MethodGet, "/api/running", nil, &body); err != nil {
		return nil, err
	}
	return body.state(), nil
}

func (c *Client) Save(ctx context.Context, st session.State) error {
	return c.do(ctx, http.MethodPut, "/api/running", stateToJSON(st), nil)
}

func (c *Client) Start(ctx context.Context, d session.Draft) (sheets.Result, error) {
	var res ResultJSON
	if err := c.do(ctx, http.MethodPost, "/api/running/start", draftToJSON(d), &res); err != nil {
		return sheets.Result{}, err
	}
	return res.result(), nil
}

func (c *Client) Update(ctx context.Context, d session.Draft, elapsed int64) (sheets.Result, error) {
	var res ResultJSON
	req := UpdateRequest{Draft: draftToJSON(d), ElapsedSeconds: elapsed}
	if err := c.do(ctx, http.MethodPost, "/api/running/update", req, &res); err != nil {
		return sheets.Result{}, err
	}
	return res.result(), nil
}

func (c *Client) Cancel(ctx context.Context, id string) (sheets.Result, error) {
	var res ResultJSON
	if err := c.do(ctx, http.MethodPost, "/api/running/cancel", CancelRequest{ID: id}, &res); err != nil {
		return sheets.Result{}, err
	}
	return res.result(), nil
}

// Complete stores the session on the server. A failed spreadsheet write is
// returned as an error; the server keeps the session and retries it.
func (c *Client) Complete(ctx context.Context, s session.Session) (sheets.Result, error) {
	l, err := c.CompleteSession(ctx, s)
	if err != nil {
		return sheets.Result{}, err
	}
	return service.CompletionResult(l)
}

// CompleteSession returns the server's sync log for the completion.
func (c *Client) CompleteSession(ctx context.Context, s session.Session) (*store.SyncLog, error) {
	var body SyncLogJSON
	if err := c.do(ctx, http.MethodPost, "/api/sessions/complete", sessionToJSON(s), &body); err != nil {
		return nil, err
	}
	l := body.syncLog("")
	return &l, nil
}

func (c *Client) ListSessions(ctx context.Context, limit int) ([]session.Session, error) {
	var body []SessionJSON
	path := "/api/sessions?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &body); err != nil {
		return nil, err
	}
	out := make([]session.Session, len(body))
	for i, s := range body {
		out[i] = s.session()
	}
	return out, nil
}

// DailySummary returns per-day project totals for the UTC days in [from, to).
func (c *Client) DailySummary(ctx context.Context, from, to time.Time) ([]store.DailySummary, error) {
	q := url.Values{}
	q.Set("from", from.UTC().Format(dayLayout))
	q.Set("to", to.UTC().Format(dayLayout))
	var body []SummaryJSON
	if err := c.do(ctx, http.MethodGet, "/api/summary?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	out := make([]store.DailySummary, len(body))
	for i, r := range body {
		out[i] = store.DailySummary(r)
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) (sheets.Result, error) {
	var res ResultJSON
	if err := c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, &res); err != nil {
		return sheets.Result{}, err
	}
	return res.result(), nil
}

func (c *Client) ListSyncLogs(ctx context.Context, status store.SyncStatus, limit int) ([]store.SyncLog, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	q.Set("limit", strconv.Itoa(limit))
	var body []SyncLogJSON
	if err := c.do(ctx, http.MethodGet, "/api/sync-logs?"+q.Encode(), nil, &body); err != nil {
		return nil, err
	}
	out := make([]store.SyncLog, len(body))
	for i, l := range body {
		out[i] = l.syncLog("")
	}
	return out, nil
}

func (c *Client) Retry(ctx context.Context, logID string) (*store.SyncLog, error) {
	var body SyncLogJSON
	if err := c.do(ctx, http.MethodPost, "/api/sync-logs/"+url.PathEscape(logID)+"/retry", nil, &body); err != nil {
		return nil, err
	}
	l := body.syncLog("")
	return &l, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	return c.doAs(ctx, c.token, method, path, in, out)
}

func (c *Client) doAs(ctx context.Context, token, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorJSON
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode)
		}
		return &RemoteError{Status: resp.StatusCode, Code: e.Code, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
