package applyserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/tracker"
)

// TrackerOpResult is the output of add/update operations.
type TrackerOpResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// TrackerUpdateInput updates a tracked job's status and/or notes.
type TrackerUpdateInput struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
	Note   string `json:"note,omitempty"`
}

// TrackerListInput filters the tracked jobs.
type TrackerListInput struct {
	Status  string `json:"status,omitempty"`
	Source  string `json:"source,omitempty"`
	Company string `json:"company,omitempty"`
	Query   string `json:"query,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// TrackerListResult is the output of tracker_list.
type TrackerListResult struct {
	Jobs  []tracker.JobRecord `json:"jobs"`
	Total int                 `json:"total"`
}

func registerTrackerAdd(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_add",
		Description: "Save a job to the local tracker (JSON file). Duplicate company+title or URL merges into the existing record. Returns the record id for future updates.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input tracker.AddInput) (*mcp.CallToolResult, *TrackerOpResult, error) {
		id, err := deps.Store.Add(input)
		if err != nil {
			return nil, nil, err
		}
		return nil, &TrackerOpResult{
			ID:      id,
			Message: fmt.Sprintf("Job '%s' at '%s' tracked (id=%s)", input.JobTitle, input.Company, id),
		}, nil
	})
}

func registerTrackerList(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_list",
		Description: "List tracked jobs, optionally filtered by status (found, reviewed, applied, interview, offer, accepted, rejected, withdrawn, declined), source, company, or free-text query. Sorted by most recently updated.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, input TrackerListInput) (*mcp.CallToolResult, *TrackerListResult, error) {
		var f tracker.Filter
		if input.Status != "" {
			status, err := tracker.ParseStatus(input.Status)
			if err != nil {
				return nil, nil, err
			}
			f.Status = status
		}
		f.Source = input.Source
		f.Company = input.Company
		f.Query = input.Query

		jobs := deps.Store.Find(f)
		total := len(jobs)

		limit := input.Limit
		if limit <= 0 || limit > 100 {
			limit = 50
		}
		if len(jobs) > limit {
			jobs = jobs[:limit]
		}
		if jobs == nil {
			jobs = []tracker.JobRecord{}
		}
		return nil, &TrackerListResult{Jobs: jobs, Total: total}, nil
	})
}

func registerTrackerUpdate(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_update",
		Description: "Update status and/or add a note for a tracked job by id. Get ids from tracker_list.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, input TrackerUpdateInput) (*mcp.CallToolResult, *TrackerOpResult, error) {
		if input.ID == "" {
			return nil, nil, errors.New("id is required")
		}
		if input.Status == "" && input.Note == "" {
			return nil, nil, errors.New("at least one of status or note must be provided")
		}

		if input.Status != "" {
			status, err := tracker.ParseStatus(input.Status)
			if err != nil {
				return nil, nil, err
			}
			if err := deps.Store.UpdateStatus(input.ID, status, input.Note); err != nil {
				return nil, nil, err
			}
		} else if err := deps.Store.AddNote(input.ID, input.Note); err != nil {
			return nil, nil, err
		}

		return nil, &TrackerOpResult{
			ID:      input.ID,
			Message: fmt.Sprintf("Job %s updated", input.ID),
		}, nil
	})
}

func registerTrackerStats(server *mcp.Server, deps Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "tracker_stats",
		Description: "Job search statistics: totals by status, company, and source, plus the apply rate.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, *tracker.Stats, error) {
		stats := deps.Store.Statistics()
		return nil, &stats, nil
	})
}
