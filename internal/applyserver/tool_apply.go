package applyserver

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/agent"
	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/runlog"
	"github.com/anatolykoptev/go_apply/internal/tracker"
)

// JobSearchInput runs one computer-use search.
type JobSearchInput struct {
	Query  string   `json:"query"`
	Boards []string `json:"boards,omitempty"`
	Track  bool     `json:"track,omitempty"` // save results to the tracker
}

// JobSearchOutput is the output of job_search.
type JobSearchOutput struct {
	Jobs       []agent.Candidate `json:"jobs"`
	TrackedIDs []string          `json:"tracked_ids,omitempty"`
	Raw        string            `json:"raw,omitempty"`
}

// JobApplyInput applies to one tracked job, or directly to a URL.
type JobApplyInput struct {
	ID           string `json:"id,omitempty"`
	URL          string `json:"url,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

// JobApplyOutput is the output of job_apply.
type JobApplyOutput struct {
	ID           string `json:"id,omitempty"`
	Result       string `json:"result"`
	RecordingURL string `json:"recording_url,omitempty"`
}

// JobAnalyzeInput analyzes one job posting page.
type JobAnalyzeInput struct {
	URL string `json:"url"`
}

// JobAnalyzeOutput is the output of job_analyze.
type JobAnalyzeOutput struct {
	Analysis string `json:"analysis"`
}

func registerJobSearch(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_search",
		Description: "Search job boards with a cloud browser agent. Returns structured job candidates (title, company, location, url, salary, match reason). Set track=true to also save results to the tracker.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobSearchInput) (*mcp.CallToolResult, *JobSearchOutput, error) {
		if input.Query == "" {
			return nil, nil, errors.New("query is required")
		}

		aiContext := ""
		if deps.Profile != nil {
			aiContext = deps.Profile.BuildContext()
		}

		started := time.Now()
		candidates, res, err := deps.Agent.SearchJobs(ctx, input.Query, aiContext, input.Boards)
		recordRun(ctx, runlog.KindSearch, input.Query, res, started, err)
		if err != nil {
			return nil, nil, err
		}

		out := &JobSearchOutput{Jobs: candidates, Raw: res.Output}
		if out.Jobs == nil {
			out.Jobs = []agent.Candidate{}
		}

		if input.Track {
			for _, c := range candidates {
				id, err := deps.Store.Add(tracker.AddInput{
					Company:     c.Company,
					JobTitle:    c.Title,
					Location:    c.Location,
					JobURL:      c.URL,
					SalaryRange: c.Salary,
					Source:      "mcp_search",
					Note:        "Found via search: " + input.Query,
				})
				if err != nil {
					continue
				}
				engine.IncrJobsTracked()
				out.TrackedIDs = append(out.TrackedIDs, id)
			}
		}
		return nil, out, nil
	})
}

func registerJobApply(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_apply",
		Description: "Fill out and submit a job application with a cloud browser agent, using the configured applicant profile. Pass a tracker id (preferred) or a direct application URL. On success the tracked job moves to status applied.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobApplyInput) (*mcp.CallToolResult, *JobApplyOutput, error) {
		url := input.URL
		var job *tracker.JobRecord
		if input.ID != "" {
			var err error
			job, err = deps.Store.Get(input.ID)
			if err != nil {
				return nil, nil, err
			}
			if job.JobURL == "" {
				return nil, nil, errors.New("tracked job has no application URL")
			}
			url = job.JobURL
		}
		if url == "" {
			return nil, nil, errors.New("either id or url is required")
		}
		if deps.Profile == nil {
			return nil, nil, errors.New("no applicant profile configured")
		}

		applicant := agent.ApplicantInfo{
			Name:     deps.Profile.PersonalInfo.Name,
			Email:    deps.Profile.PersonalInfo.Email,
			Phone:    deps.Profile.PersonalInfo.Phone,
			LinkedIn: deps.Profile.PersonalInfo.LinkedIn,
			GitHub:   deps.Profile.PersonalInfo.GitHub,
		}

		started := time.Now()
		res, err := deps.Agent.Apply(ctx, url, applicant, input.Instructions)
		recordRun(ctx, runlog.KindApply, url, res, started, err)
		if err != nil {
			return nil, nil, err
		}

		out := &JobApplyOutput{Result: res.Output, RecordingURL: res.RecordingURL}
		if job != nil {
			note := "Applied via MCP"
			if res.Output != "" {
				note += ": " + engine.TruncateRunes(res.Output, 500, "...")
			}
			if err := deps.Store.UpdateStatus(job.ID, tracker.StatusApplied, note); err != nil {
				return nil, nil, err
			}
			engine.IncrApplicationsMade()
			out.ID = job.ID
		}
		return nil, out, nil
	})
}

func registerJobAnalyze(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_analyze",
		Description: "Open one job posting with a cloud browser agent and return a structured summary: role, requirements, salary, and how to apply.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobAnalyzeInput) (*mcp.CallToolResult, *JobAnalyzeOutput, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}

		started := time.Now()
		res, err := deps.Agent.AnalyzeJobPage(ctx, input.URL)
		recordRun(ctx, runlog.KindAnalyze, input.URL, res, started, err)
		if err != nil {
			return nil, nil, err
		}
		return nil, &JobAnalyzeOutput{Analysis: res.Output}, nil
	})
}

// StatusCheckInput checks submitted applications on a company portal.
type StatusCheckInput struct {
	PortalURL string `json:"portal_url"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
}

// StatusCheckOutput is the output of job_status_check.
type StatusCheckOutput struct {
	Report string `json:"report"`
}

func registerStatusCheck(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_status_check",
		Description: "Log into a company application portal with a cloud browser agent and report the state of submitted applications.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input StatusCheckInput) (*mcp.CallToolResult, *StatusCheckOutput, error) {
		if input.PortalURL == "" {
			return nil, nil, errors.New("portal_url is required")
		}

		started := time.Now()
		res, err := deps.Agent.CheckApplicationStatus(ctx, input.PortalURL, input.Email, input.Password)
		recordRun(ctx, runlog.KindStatusCheck, input.PortalURL, res, started, err)
		if err != nil {
			return nil, nil, err
		}
		return nil, &StatusCheckOutput{Report: res.Output}, nil
	})
}

// recordRun writes an audit entry, ignoring write failures.
func recordRun(ctx context.Context, kind, target string, res *agent.Result, started time.Time, err error) {
	e := runlog.Entry{
		Kind:      kind,
		Target:    target,
		OK:        err == nil,
		StartedAt: started,
	}
	if res != nil {
		e.SessionID = res.SessionID
		e.StepsTaken = res.StepsTaken
		e.BrowserURL = res.BrowserURL
		e.RecordingURL = res.RecordingURL
	}
	e.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		e.Error = err.Error()
	}
	runlog.Record(ctx, e) //nolint:errcheck
}
