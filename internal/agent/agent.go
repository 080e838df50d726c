// Package agent shapes computer-use tasks and parses their results. All page
// understanding, navigation, and form filling happen inside the cloud
// automation service; the agent only writes instructions and reads answers.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/hyperbrowser"
)

// TaskRunner abstracts the computer-use backend so tests can fake it.
// *hyperbrowser.Client satisfies it.
type TaskRunner interface {
	StartAndWait(ctx context.Context, params hyperbrowser.StartTaskParams) (*hyperbrowser.TaskData, error)
}

// Result is the outcome of one executed task.
type Result struct {
	Output       string
	SessionID    string
	StepsTaken   int
	BrowserURL   string
	RecordingURL string
}

// ApplicantInfo is the personal data used to fill application forms.
type ApplicantInfo struct {
	Name     string
	Email    string
	Phone    string
	LinkedIn string
	GitHub   string
}

// Agent runs computer-use tasks against a single browser session, reusing
// the session across tasks within one run.
type Agent struct {
	runner        TaskRunner
	useCustomKeys bool

	mu        sync.Mutex
	sessionID string
}

// New creates an agent. useCustomKeys forwards the caller's Anthropic key to
// the service instead of the built-in one.
func New(runner TaskRunner, useCustomKeys bool) *Agent {
	return &Agent{runner: runner, useCustomKeys: useCustomKeys}
}

// SessionID returns the current browser session id, if any.
func (a *Agent) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionID
}

// Execute runs one task, keeping the browser open for session reuse.
func (a *Agent) Execute(ctx context.Context, task string, maxSteps int) (*Result, error) {
	engine.IncrTaskRuns()

	if engine.Cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, engine.Cfg.TaskTimeout)
		defer cancel()
	}

	params := hyperbrowser.StartTaskParams{
		Task:             task,
		MaxSteps:         maxSteps,
		SessionID:        a.SessionID(),
		KeepBrowserOpen:  true,
		UseCustomAPIKeys: a.useCustomKeys,
	}

	data, err := a.runner.StartAndWait(ctx, params)
	if data != nil && data.SessionID != "" {
		a.mu.Lock()
		a.sessionID = data.SessionID
		a.mu.Unlock()
	}
	if err != nil {
		engine.IncrTaskErrors()
		return nil, fmt.Errorf("agent: task failed: %w", err)
	}

	engine.AddTaskSteps(int64(data.StepsTaken))
	slog.Info("agent: task completed",
		slog.Int("steps", data.StepsTaken),
		slog.String("session", data.SessionID))
	if data.BrowserURL != "" {
		slog.Info("agent: live browser view", slog.String("url", data.BrowserURL))
	}
	if data.RecordingURL != "" {
		slog.Info("agent: recording playback", slog.String("url", data.RecordingURL))
	}

	return &Result{
		Output:       data.FinalResult,
		SessionID:    data.SessionID,
		StepsTaken:   data.StepsTaken,
		BrowserURL:   data.BrowserURL,
		RecordingURL: data.RecordingURL,
	}, nil
}

// SearchJobs searches the given boards for query and returns parsed job
// candidates plus the raw result. Identical searches within the cache TTL
// are served from cache instead of burning browser steps.
func (a *Agent) SearchJobs(ctx context.Context, query, aiContext string, boards []string) ([]Candidate, *Result, error) {
	engine.IncrSearchTasks()

	cacheKey := engine.CacheKey("search", query, fmt.Sprint(boards))
	if cached, ok := engine.CacheGet(ctx, cacheKey); ok {
		slog.Debug("agent: search served from cache", slog.String("query", query))
		return ParseCandidates(cached.Result), &Result{Output: cached.Result}, nil
	}

	task := searchTask(query, aiContext, boards)
	res, err := a.Execute(ctx, task, engine.Cfg.SearchMaxSteps)
	if err != nil {
		return nil, nil, err
	}

	engine.CacheSet(ctx, cacheKey, engine.CachedTask{Task: query, Result: res.Output})
	return ParseCandidates(res.Output), res, nil
}

// Apply fills out the application at jobURL with the applicant's data.
func (a *Agent) Apply(ctx context.Context, jobURL string, applicant ApplicantInfo, extraInstructions string) (*Result, error) {
	engine.IncrApplyTasks()
	task := applyTask(jobURL, applicant, extraInstructions)
	return a.Execute(ctx, task, engine.Cfg.ApplyMaxSteps)
}

// AnalyzeJobPage extracts a structured summary of one job posting.
func (a *Agent) AnalyzeJobPage(ctx context.Context, jobURL string) (*Result, error) {
	engine.IncrAnalyzeTasks()
	task := analyzeTask(jobURL)
	return a.Execute(ctx, task, engine.Cfg.AnalyzeMaxSteps)
}

// CheckApplicationStatus logs into a company portal and reports the state of
// submitted applications.
func (a *Agent) CheckApplicationStatus(ctx context.Context, portalURL, email, password string) (*Result, error) {
	task := statusCheckTask(portalURL, email, password)
	return a.Execute(ctx, task, engine.Cfg.AnalyzeMaxSteps)
}
