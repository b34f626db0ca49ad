package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zg0ul/portfolio/internal/project"
)

const table = "projects"

// Client talks to a PostgREST endpoint (for example Supabase's /rest/v1)
// that exposes a "projects" table.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

var _ project.Store = (*Client)(nil)

func NewClient(baseURL, apiKey string, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log.With("component", "postgrest"),
	}
}

// do sends one request, retrying transient failures. POST is sent once:
// an insert may have committed before the gateway failed, and a second
// attempt would report a conflict for a row that exists.
func (c *Client) do(ctx context.Context, method, query string, body any, prefer string) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
	}

	attempts := MaxRetries
	if method == http.MethodPost {
		attempts = 1
	}
	var lastErr error
	for attempt := range attempts {
		data, err := c.once(ctx, method, query, payload, prefer)
		if err == nil || !IsRetryable(err) {
			return data, err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		c.log.Warn("retryable backend error", "method", method, "attempt", attempt, "error", err)
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, query string, payload []byte, prefer string) ([]byte, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+table+"?"+query, rdr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(data)}
	case resp.StatusCode == http.StatusConflict:
		return nil, fmt.Errorf("%w: %s", project.ErrConflict, truncate(string(data), 200))
	case resp.StatusCode == http.StatusNotFound:
		return nil, project.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", project.ErrInvalid, truncate(string(data), 200))
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%s %s: status %d: %s", method, table, resp.StatusCode, truncate(string(data), 1024))
	}
	return data, nil
}

func decodeRows[T any](data []byte) ([]T, error) {
	var rows []T
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

func (c *Client) single(ctx context.Context, column, value string) (*project.Project, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set(column, "eq."+value)
	q.Set("limit", "1")
	data, err := c.do(ctx, http.MethodGet, q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[project.Project](data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, project.ErrNotFound
	}
	return &rows[0], nil
}

// FetchBySlug implements project.ContentProvider.
func (c *Client) FetchBySlug(ctx context.Context, slug string) (*project.Project, error) {
	return c.single(ctx, "slug", slug)
}

func (c *Client) Get(ctx context.Context, id string) (*project.Project, error) {
	return c.single(ctx, "id", id)
}

func (c *Client) List(ctx context.Context, opts project.ListOptions) ([]project.Project, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	if opts.FeaturedOnly {
		q.Set("featured", "eq.true")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	data, err := c.do(ctx, http.MethodGet, q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[project.Project](data)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []project.Project{}
	}
	return rows, nil
}

func (c *Client) Create(ctx context.Context, p *project.Project) (*project.Project, error) {
	if err := project.Validate(p); err != nil {
		return nil, err
	}
	// id and timestamps are assigned by the database.
	body := map[string]any{
		"title":             p.Title,
		"slug":              p.Slug,
		"short_description": p.ShortDescription,
		"long_description":  p.LongDescription,
		"featured_image":    p.FeaturedImage,
		"featured":          p.Featured,
		"github_url":        p.GithubURL,
		"live_url":          p.LiveURL,
		"tags":              p.Tags,
	}
	data, err := c.do(ctx, http.MethodPost, "select=*", body, "return=representation")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[project.Project](data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create project: empty representation")
	}
	return &rows[0], nil
}

func (c *Client) Update(ctx context.Context, id string, patch project.Patch) (*project.Project, error) {
	if patch.Empty() {
		return nil, project.ErrNotFound
	}
	if err := patch.Check(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "*")
	data, err := c.do(ctx, http.MethodPatch, q.Encode(), patch, "return=representation")
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[project.Project](data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, project.ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "id")
	data, err := c.do(ctx, http.MethodDelete, q.Encode(), nil, "return=representation")
	if err != nil {
		return err
	}
	rows, err := decodeRows[project.Summary](data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return project.ErrNotFound
	}
	return nil
}

func (c *Client) Related(ctx context.Context, excludeID string, limit int) ([]project.Summary, error) {
	if limit <= 0 {
		limit = 2
	}
	q := url.Values{}
	q.Set("select", "id,title,slug,featured_image")
	q.Set("id", "neq."+excludeID)
	q.Set("featured", "eq.true")
	q.Set("limit", strconv.Itoa(limit))
	data, err := c.do(ctx, http.MethodGet, q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	return decodeRows[project.Summary](data)
}

// IncrementViews reads and rewrites each counter. PostgREST has no atomic
// increment without an RPC, so concurrent writers may lose updates.
func (c *Client) IncrementViews(ctx context.Context, deltas map[string]int64) error {
	for slug, n := range deltas {
		p, err := c.FetchBySlug(ctx, slug)
		if errors.Is(err, project.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load views %s: %w", slug, err)
		}
		q := url.Values{}
		q.Set("slug", "eq."+slug)
		if _, err := c.do(ctx, http.MethodPatch, q.Encode(), map[string]int64{"views": p.Views + n}, ""); err != nil {
			return fmt.Errorf("increment views %s: %w", slug, err)
		}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
