package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/domain/ordering"
	"github.com/pos/backoffice/internal/domain/shared"
)

// maxResponseSize is the maximum allowed response size from the remote
// store (10MB). A full-table fetch of a busy store stays well below this.
const maxResponseSize = 10 * 1024 * 1024

// validTables is the allow-list of tables the client will touch.
var validTables = map[string]bool{
	"company":                true,
	"menu_category":          true,
	"menu_item":              true,
	"menu_item_option_group": true,
	"option_group":           true,
	"option_group_item":      true,
	"option_item":            true,
	"order":                  true,
	"order_item":             true,
	"order_item_option":      true,
}

// ErrInvalidTable indicates a table outside the allow-list
var ErrInvalidTable = errors.New("remote: table not in allow-list")

// Config holds the connection parameters of the remote store
type Config struct {
	BaseURL      string
	APIKey       string
	ReadTimeout  time.Duration
	ProbeTimeout time.Duration
	SyncTimeout  time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("remote: base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("remote: invalid base URL %q", c.BaseURL)
	}
	return nil
}

// Client talks PostgREST to the remote order store: GET by table,
// PATCH/DELETE by primary-key filter. All calls carry the API key header
// pair and a timeout.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a remote store client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 10 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.SyncTimeout == 0 {
		config.SyncTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		// Per-request deadlines are set via context; the client timeout is
		// the outer bound for the largest batch sync.
		httpClient: &http.Client{Timeout: config.SyncTimeout},
		logger:     logger.Named("remote"),
	}, nil
}

func (c *Client) tableURL(table string) string {
	return c.config.BaseURL + "/rest/v1/" + url.PathEscape(table)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body any, timeout time.Duration) ([]byte, error) {
	if !validTables[table] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTable, table)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: marshal %s body: %w", table, err)
		}
		reader = bytes.NewReader(payload)
	}

	u := c.tableURL(table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", shared.ErrConnectivity, method, table, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("remote: read %s response: %w", table, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote: %s %s returned %d: %s", method, table, resp.StatusCode, truncate(string(data), 200))
	}
	return data, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// FetchTable returns the full row set of a table as raw JSON objects
func (c *Client) FetchTable(ctx context.Context, table string) ([]json.RawMessage, error) {
	query := url.Values{"select": {"*"}}
	data, err := c.do(ctx, http.MethodGet, table, query, nil, c.config.SyncTimeout)
	if err != nil {
		return nil, err
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("remote: decode %s rows: %w", table, err)
	}
	return rows, nil
}

// Patch applies a partial update to the rows matching pk=eq.{id}
func (c *Client) Patch(ctx context.Context, table, pk string, id int64, body map[string]any) error {
	query := url.Values{pk: {"eq." + strconv.FormatInt(id, 10)}}
	_, err := c.do(ctx, http.MethodPatch, table, query, body, c.config.ReadTimeout)
	return err
}

// Delete removes the rows matching pk=eq.{id}
func (c *Client) Delete(ctx context.Context, table, pk string, id int64) error {
	query := url.Values{pk: {"eq." + strconv.FormatInt(id, 10)}}
	_, err := c.do(ctx, http.MethodDelete, table, query, nil, c.config.ReadTimeout)
	return err
}

// DeleteIn removes the rows whose pk is in the given id set
func (c *Client) DeleteIn(ctx context.Context, table, pk string, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	query := url.Values{pk: {"in.(" + strings.Join(parts, ",") + ")"}}
	_, err := c.do(ctx, http.MethodDelete, table, query, nil, c.config.ReadTimeout)
	return err
}

// CheckConnectivity performs a lightweight reachability probe against the
// smallest reference table
func (c *Client) CheckConnectivity(ctx context.Context) bool {
	query := url.Values{
		"select": {"company_id"},
		"limit":  {"1"},
	}
	_, err := c.do(ctx, http.MethodGet, "company", query, nil, c.config.ProbeTimeout)
	if err != nil {
		c.logger.Debug("connectivity probe failed", zap.Error(err))
		return false
	}
	return true
}

// LatestOrderID returns the highest order id currently on the remote,
// or 0 when the order table is empty
func (c *Client) LatestOrderID(ctx context.Context) (int64, error) {
	query := url.Values{
		"select": {"order_id"},
		"order":  {"order_id.desc"},
		"limit":  {"1"},
	}
	data, err := c.do(ctx, http.MethodGet, "order", query, nil, c.config.ReadTimeout)
	if err != nil {
		return 0, err
	}
	var rows []struct {
		OrderID int64 `json:"order_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("remote: decode latest order id: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].OrderID, nil
}

// Ensure Client implements the domain contract
var _ ordering.RemoteStore = (*Client)(nil)
