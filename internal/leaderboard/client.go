package leaderboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vovakirdan/tui-2048/internal/t2048"
)

// DefaultTimeout bounds every Client request when none is configured.
const DefaultTimeout = 5 * time.Second

// Client talks to a remote leaderboard Server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL
// (e.g. "http://localhost:3001").
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Submit implements Sink.
func (c *Client) Submit(ctx context.Context, sub Submission) (Entry, error) {
	sub, err := sub.Normalize()
	if err != nil {
		return Entry{}, err
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return Entry{}, fmt.Errorf("leaderboard: cannot encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/score", bytes.NewReader(body))
	if err != nil {
		return Entry{}, fmt.Errorf("leaderboard: cannot build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var entry Entry
	if err := c.do(req, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Top implements Board.
func (c *Client) Top(ctx context.Context, mode t2048.Difficulty, limit int) ([]Entry, error) {
	q := url.Values{}
	if mode != "" {
		q.Set("mode", string(mode))
	}
	q.Set("limit", strconv.Itoa(ClampLimit(limit)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/leaderboard?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: cannot build request: %w", err)
	}

	var entries []Entry
	if err := c.do(req, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("leaderboard: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		if resp.StatusCode == http.StatusBadRequest {
			return fmt.Errorf("%w: %s", ErrInvalidSubmission, apiErr.Error)
		}
		return fmt.Errorf("leaderboard: server returned %s: %s", resp.Status, apiErr.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("leaderboard: cannot decode response: %w", err)
	}
	return nil
}

var (
	_ Sink  = (*Client)(nil)
	_ Board = (*Client)(nil)
)
