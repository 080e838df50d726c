package hyperbrowser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New("test-key",
		WithBaseURL(srv.URL),
		WithPollInterval(5*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
}

func TestStartTask(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, taskPath, r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))

		var params StartTaskParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "go to example.com", params.Task)
		assert.Equal(t, 10, params.MaxSteps)

		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"jobId":  "task-1",
			"status": StatusPending,
		})
	}))

	data, err := c.StartTask(context.Background(), StartTaskParams{Task: "go to example.com", MaxSteps: 10})
	require.NoError(t, err)
	assert.Equal(t, "task-1", data.TaskID)
	assert.Equal(t, StatusPending, data.Status)
}

func TestStartTask_EmptyTask(t *testing.T) {
	c, err := New("k")
	require.NoError(t, err)
	_, err = c.StartTask(context.Background(), StartTaskParams{})
	require.Error(t, err)
}

func TestStartAndWait_Completes(t *testing.T) {
	var polls atomic.Int64
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"jobId": "task-2", "status": StatusPending}) //nolint:errcheck
			return
		}
		// Wrapped envelope, like the production API.
		n := polls.Add(1)
		data := TaskData{TaskID: "task-2", Status: StatusRunning}
		if n >= 3 {
			data = TaskData{
				TaskID:       "task-2",
				Status:       StatusCompleted,
				FinalResult:  "Found 3 matching jobs",
				SessionID:    "sess-9",
				StepsTaken:   17,
				RecordingURL: "https://app.example/rec/task-2",
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data}) //nolint:errcheck
	}))

	data, err := c.StartAndWait(context.Background(), StartTaskParams{Task: "search jobs"})
	require.NoError(t, err)
	assert.Equal(t, "Found 3 matching jobs", data.FinalResult)
	assert.Equal(t, "sess-9", data.SessionID)
	assert.Equal(t, 17, data.StepsTaken)
	assert.GreaterOrEqual(t, polls.Load(), int64(3))
}

func TestStartAndWait_Failure(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			json.NewEncoder(w).Encode(map[string]any{"jobId": "task-3", "status": StatusPending}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"jobId":  "task-3",
			"status": StatusFailed,
			"error":  "navigation blocked",
		})
	}))

	data, err := c.StartAndWait(context.Background(), StartTaskParams{Task: "apply"})
	require.ErrorIs(t, err, ErrTaskFailed)
	assert.Contains(t, err.Error(), "navigation blocked")
	require.NotNil(t, data)
	assert.Equal(t, StatusFailed, data.Status)
}

func TestStartAndWait_ContextCancel(t *testing.T) {
	var stopped atomic.Bool
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]any{"jobId": "task-4", "status": StatusPending}) //nolint:errcheck
		case r.Method == http.MethodPut:
			stopped.Store(true)
			w.WriteHeader(http.StatusOK)
		default:
			json.NewEncoder(w).Encode(map[string]any{"jobId": "task-4", "status": StatusRunning}) //nolint:errcheck
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.StartAndWait(ctx, StartTaskParams{Task: "never finishes"})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, stopped.Load(), "running task should be stopped on cancel")
}

func TestDo_APIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))

	_, err := c.GetTask(context.Background(), "x")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.False(t, apiErr.Retryable())

	assert.True(t, (&APIError{StatusCode: http.StatusServiceUnavailable}).Retryable())
}
