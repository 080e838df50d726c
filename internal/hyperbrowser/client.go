// Package hyperbrowser is a typed client for the Hyperbrowser Claude
// Computer Use task API. The service runs a cloud browser session, lets the
// model navigate and fill forms, and reports a final textual result; this
// client only starts tasks, polls them, and surfaces failures.
package hyperbrowser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.hyperbrowser.ai"

	taskPath = "/api/task/claude-computer-use"
)

// Task statuses reported by the API.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusStopped   = "stopped"
)

// ErrTaskFailed means the automation task reached a terminal failure state.
var ErrTaskFailed = errors.New("hyperbrowser: task failed")

// StartTaskParams configures one computer-use task.
type StartTaskParams struct {
	Task             string `json:"task"`
	MaxSteps         int    `json:"maxSteps,omitempty"`
	SessionID        string `json:"sessionId,omitempty"`
	KeepBrowserOpen  bool   `json:"keepBrowserOpen,omitempty"`
	UseCustomAPIKeys bool   `json:"useCustomApiKeys,omitempty"`
}

// TaskData is the state of a task as reported by the API.
type TaskData struct {
	TaskID       string `json:"jobId"`
	Status       string `json:"status"`
	FinalResult  string `json:"finalResult,omitempty"`
	Error        string `json:"error,omitempty"`
	SessionID    string `json:"sessionId,omitempty"`
	StepsTaken   int    `json:"stepsTaken,omitempty"`
	BrowserURL   string `json:"liveUrl,omitempty"`
	RecordingURL string `json:"recordingUrl,omitempty"`
}

// Terminal reports whether the task reached a final state.
func (d *TaskData) Terminal() bool {
	switch d.Status {
	case StatusCompleted, StatusFailed, StatusStopped:
		return true
	}
	return false
}

// APIError is a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hyperbrowser: API status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying (rate limits,
// upstream 5xx).
func (e *APIError) Retryable() bool { return engine.IsRetryableStatus(e.StatusCode) }

// Client talks to the Hyperbrowser API.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (tests, self-hosted).
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

// WithPollInterval sets the StartAndWait polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// New creates a client. The API key is required.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("hyperbrowser: API key is required")
	}
	c := &Client{
		apiKey:       apiKey,
		baseURL:      DefaultBaseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// StartTask submits a task and returns its initial state (usually pending).
func (c *Client) StartTask(ctx context.Context, params StartTaskParams) (*TaskData, error) {
	if params.Task == "" {
		return nil, errors.New("hyperbrowser: task description is required")
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("hyperbrowser: marshal params: %w", err)
	}
	var data TaskData
	if err := c.do(ctx, http.MethodPost, taskPath, bytes.NewReader(body), &data); err != nil {
		return nil, err
	}
	if data.TaskID == "" {
		return nil, errors.New("hyperbrowser: start response missing task id")
	}
	return &data, nil
}

// GetTask fetches the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*TaskData, error) {
	var data TaskData
	if err := c.do(ctx, http.MethodGet, taskPath+"/"+taskID, nil, &data); err != nil {
		return nil, err
	}
	if data.TaskID == "" {
		data.TaskID = taskID
	}
	return &data, nil
}

// StopTask asks the service to stop a running task.
func (c *Client) StopTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodPut, taskPath+"/"+taskID+"/stop", nil, nil)
}

// StartAndWait starts a task and polls until it reaches a terminal state or
// ctx expires. A failed or stopped task returns ErrTaskFailed along with the
// last reported data, so callers can still log the session.
func (c *Client) StartAndWait(ctx context.Context, params StartTaskParams) (*TaskData, error) {
	started, err := c.StartTask(ctx, params)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	data := started
	for !data.Terminal() {
		select {
		case <-ctx.Done():
			// Best effort: don't leave the paid session running.
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = c.StopTask(stopCtx, started.TaskID)
			cancel()
			return data, ctx.Err()
		case <-ticker.C:
		}

		// Transient poll failures ride the engine retry; a hard failure here
		// means losing track of a running task.
		data, err = engine.RetryDo(ctx, engine.DefaultRetryConfig, func() (*TaskData, error) {
			return c.GetTask(ctx, started.TaskID)
		})
		if err != nil {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = c.StopTask(stopCtx, started.TaskID)
			cancel()
			return nil, fmt.Errorf("hyperbrowser: poll task %s: %w", started.TaskID, err)
		}
	}

	if data.Status != StatusCompleted {
		msg := data.Error
		if msg == "" {
			msg = data.Status
		}
		return data, fmt.Errorf("%w: %s", ErrTaskFailed, msg)
	}
	return data, nil
}

// do executes one API call and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out *TaskData) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("hyperbrowser: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hyperbrowser: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("hyperbrowser: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}

	// Responses come either bare or wrapped in {"data": {...}}.
	var envelope struct {
		Data *TaskData `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		*out = *envelope.Data
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("hyperbrowser: decode response: %w", err)
	}
	return nil
}
