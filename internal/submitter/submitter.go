// Package submitter posts a selection centroid to the location backend.
package submitter

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
	"strings"
	"time"

	"github.com/mohammed-shakir/farm-selector/internal/core/observability"
)

// LocationInputPath is the backend endpoint receiving centroids.
const LocationInputPath = "/api/location-input/"

// SubmissionError is the single failure class of a submission.
type SubmissionError struct {
	Message string
	Status  int // 0 when no response was received
	Err     error
}

func (e *SubmissionError) Error() string { return e.Message }

func (e *SubmissionError) Unwrap() error { return e.Err }

type Request struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Area      float64 `json:"area"`
}

type Client struct {
	logger   *slog.Logger
	client   *http.Client
	endpoint *url.URL
	timeout  time.Duration
	now      func() time.Time // for tests
}

// New builds a client for backendURL; the endpoint path is appended to it.
func New(logger *slog.Logger, client *http.Client, backendURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(backendURL, "/") + LocationInputPath)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", backendURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		logger:   logger,
		client:   client,
		endpoint: u,
		timeout:  timeout,
		now:      time.Now,
	}, nil
}

// Submit makes exactly one attempt and returns the backend's JSON body verbatim.
func (c *Client) Submit(ctx context.Context, lat, lng, area float64) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := json.Marshal(Request{Latitude: lat, Longitude: lng, Area: area})
	if err != nil {
		return nil, &SubmissionError{Message: "encode request: " + err.Error(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &SubmissionError{Message: "build request: " + err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.client.Do(req)
	observability.ObserveUpstreamLatency("location-backend", c.now().Sub(start).Seconds())
	if err != nil {
		msg := "location backend unreachable: " + err.Error()
		if errors.Is(err, context.Canceled) {
			msg = "submission canceled"
		}
		return nil, &SubmissionError{Message: msg, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		c.logger.DebugContext(ctx, "location backend rejected submission",
			"status", resp.StatusCode, "body", string(b))
		return nil, &SubmissionError{
			Message: fmt.Sprintf("location backend returned status %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &SubmissionError{Message: "read response: " + err.Error(), Status: resp.StatusCode, Err: err}
	}
	if !json.Valid(b) {
		return nil, &SubmissionError{Message: "location backend returned invalid JSON", Status: resp.StatusCode}
	}
	c.logger.DebugContext(ctx, "location submitted",
		"latitude", lat, "longitude", lng, "area", area, "status", resp.StatusCode)
	return json.RawMessage(b), nil
}
