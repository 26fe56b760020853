// Package feed fetches the current boss-report list from the remote feed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"boss-spawn-board/internal/models"
)

// NetworkError is a transport failure (Status 0) or a non-2xx response.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("GET %s: status %d", e.URL, e.Status)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError is a body that is not a JSON array of valid reports.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client talks to the report feed.
type Client struct {
	url        string
	httpClient *http.Client
	observe    func([]models.MonsterReport)
	logger     *zap.Logger
}

// NewClient creates a feed client. timeout 0 leaves requests bounded only by ctx.
func NewClient(url string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// OnReports registers fn to run after every successful fetch. The lookup
// source uses it to learn names from report summaries.
func (c *Client) OnReports(fn func([]models.MonsterReport)) {
	c.observe = fn
}

// URL returns the feed endpoint.
func (c *Client) URL() string { return c.url }

// Fetch downloads and normalizes the report list.
func (c *Client) Fetch(ctx context.Context) ([]models.MonsterReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &NetworkError{URL: c.url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: c.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &NetworkError{
			URL:    c.url,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("feed returned %d: %s", resp.StatusCode, string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: c.url, Err: fmt.Errorf("read body: %w", err)}
	}

	reports, err := Decode(body)
	if err != nil {
		return nil, &ParseError{URL: c.url, Err: err}
	}

	c.logger.Debug("feed fetched", zap.String("url", c.url), zap.Int("reports", len(reports)))
	if c.observe != nil {
		c.observe(reports)
	}
	return reports, nil
}

// Decode parses a JSON array of reports. A null body decodes to an empty list.
func Decode(body []byte) ([]models.MonsterReport, error) {
	var reports []models.MonsterReport
	if err := json.Unmarshal(body, &reports); err != nil {
		return nil, err
	}
	if reports == nil {
		reports = []models.MonsterReport{}
	}
	return reports, nil
}
