package bot

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_apply/internal/agent"
	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/hyperbrowser"
	"github.com/anatolykoptev/go_apply/internal/profile"
	"github.com/anatolykoptev/go_apply/internal/tracker"
)

// scriptedRunner answers search tasks with canned candidates and apply
// tasks with success or failure depending on the URL.
type scriptedRunner struct {
	searchResult string
	failApplyURL string
	applyCalls   []string
	searchCalls  []string
}

func (r *scriptedRunner) StartAndWait(_ context.Context, params hyperbrowser.StartTaskParams) (*hyperbrowser.TaskData, error) {
	task := params.Task
	switch {
	case strings.Contains(task, "Apply to the job at this URL:"):
		url := extractLine(task, "Apply to the job at this URL: ")
		r.applyCalls = append(r.applyCalls, url)
		if url == r.failApplyURL {
			return &hyperbrowser.TaskData{Status: "failed", Error: "form rejected"}, hyperbrowser.ErrTaskFailed
		}
		return &hyperbrowser.TaskData{
			Status:      "completed",
			FinalResult: "Application submitted successfully",
			SessionID:   "sess-apply",
			StepsTaken:  20,
		}, nil
	default:
		r.searchCalls = append(r.searchCalls, task)
		return &hyperbrowser.TaskData{
			Status:      "completed",
			FinalResult: r.searchResult,
			SessionID:   "sess-search",
			StepsTaken:  30,
		}, nil
	}
}

func extractLine(task, prefix string) string {
	for _, line := range strings.Split(task, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func testProfile(auto bool, maxApps int) *profile.Profile {
	return &profile.Profile{
		ResumeText: "resume",
		Preferences: profile.Preferences{
			TargetRoles: []string{"Platform Engineer"},
			JobBoards:   []string{"LinkedIn"},
			AutomationSettings: profile.AutomationSettings{
				AutoApplyAfterSearch:  auto,
				MaxApplicationsPerRun: maxApps,
			},
		},
		PersonalInfo: profile.PersonalInfo{
			Name:  "Jordan Smith",
			Email: "jordan@example.com",
		},
	}
}

func testBot(t *testing.T, runner agent.TaskRunner, prof *profile.Profile) (*Bot, *tracker.Store, *bytes.Buffer) {
	t.Helper()
	engine.Init(engine.Config{DataDir: t.TempDir(), MaxContextChars: 100000})
	engine.InitCache("", time.Minute, 100, 0)

	store, err := tracker.Open(filepath.Join(t.TempDir(), "jobs.json"), tracker.StoreOptions{})
	require.NoError(t, err)

	var out bytes.Buffer
	b := New(agent.New(runner, false), store, prof, Options{Output: &out})
	return b, store, &out
}

const twoJobs = `{"jobs": [
	{"title": "Platform Engineer", "company": "Acme", "url": "https://acme.example/jobs/1", "location": "Remote", "match_reason": "infra background"},
	{"title": "SRE", "company": "Globex", "url": "https://linkedin.com/jobs/2"}
]}`

func TestRun_TracksSearchResults(t *testing.T) {
	runner := &scriptedRunner{searchResult: twoJobs}
	b, store, _ := testBot(t, runner, testProfile(false, 0))

	summary, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Searches)
	assert.Equal(t, 2, summary.JobsFound)
	assert.Zero(t, summary.Applications)
	require.Len(t, summary.JobsNew, 2)

	job, err := store.Get(summary.JobsNew[0])
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusFound, job.Status)
	require.NotEmpty(t, job.Notes)
	assert.Contains(t, job.Notes[0].Text, "Platform Engineer")

	// board guessed from the URL host
	other, err := store.Get(summary.JobsNew[1])
	require.NoError(t, err)
	assert.Equal(t, "LinkedIn", other.Source)
}

func TestRun_AutoApply(t *testing.T) {
	runner := &scriptedRunner{searchResult: twoJobs}
	b, store, out := testBot(t, runner, testProfile(true, 5))

	summary, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Applications)
	assert.Len(t, runner.applyCalls, 2)

	job, err := store.Get(summary.JobsNew[0])
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusApplied, job.Status)
	assert.False(t, job.AppliedDate.IsZero())
	assert.Equal(t, "sess-apply", job.Extra["session_id"])

	assert.Contains(t, out.String(), "2 applications")
}

func TestRun_ApplicationCap(t *testing.T) {
	runner := &scriptedRunner{searchResult: twoJobs}
	b, _, _ := testBot(t, runner, testProfile(true, 1))

	summary, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Applications)
	assert.Len(t, runner.applyCalls, 1)
}

func TestRun_FailedApplicationLeavesStatus(t *testing.T) {
	runner := &scriptedRunner{
		searchResult: twoJobs,
		failApplyURL: "https://acme.example/jobs/1",
	}
	b, store, _ := testBot(t, runner, testProfile(true, 5))

	summary, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Applications)
	assert.Equal(t, 1, summary.ApplyErrors)

	failed, err := store.Get(summary.JobsNew[0])
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusFound, failed.Status)

	applied, err := store.Get(summary.JobsNew[1])
	require.NoError(t, err)
	assert.Equal(t, tracker.StatusApplied, applied.Status)
}

func TestRun_RequireApproval(t *testing.T) {
	runner := &scriptedRunner{searchResult: twoJobs}
	prof := testProfile(true, 5)
	prof.Preferences.AutomationSettings.RequireApproval = true

	var asked []string
	b, _, _ := testBot(t, runner, prof)
	b.opts.Approver = func(job tracker.JobRecord) bool {
		asked = append(asked, job.Company)
		return job.Company == "Acme"
	}

	summary, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, asked, 2)
	assert.Equal(t, 1, summary.Applications)
	require.Len(t, runner.applyCalls, 1)
	assert.Equal(t, "https://acme.example/jobs/1", runner.applyCalls[0])
}

func TestRun_ExcludedCompanies(t *testing.T) {
	runner := &scriptedRunner{searchResult: twoJobs}
	prof := testProfile(false, 0)
	prof.Preferences.ExcludedCompanies = []string{"acme"}

	b, _, _ := testBot(t, runner, prof)
	summary, err := b.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, summary.JobsNew, 1)
	job, err := b.store.Get(summary.JobsNew[0])
	require.NoError(t, err)
	assert.Equal(t, "Globex", job.Company)
}

func TestRun_DryRunNeverApplies(t *testing.T) {
	runner := &scriptedRunner{searchResult: twoJobs}
	b, _, _ := testBot(t, runner, testProfile(true, 5))
	b.opts.DryRun = true

	summary, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Applications)
	assert.Empty(t, runner.applyCalls)
}

func TestRun_SearchFailureDoesNotAbort(t *testing.T) {
	runner := &failingSearchRunner{}
	prof := testProfile(false, 0)
	prof.Preferences.TargetRoles = []string{"one", "two"}

	b, _, _ := testBot(t, runner, prof)
	summary, err := b.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Searches)
	assert.Equal(t, 2, summary.SearchErrors)
	assert.Zero(t, summary.JobsFound)
}

type failingSearchRunner struct{}

func (failingSearchRunner) StartAndWait(context.Context, hyperbrowser.StartTaskParams) (*hyperbrowser.TaskData, error) {
	return nil, errors.New("browser unavailable")
}
