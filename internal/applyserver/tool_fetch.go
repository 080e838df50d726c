package applyserver

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/engine"
)

// JobFetchInput fetches one job posting without spending agent steps.
type JobFetchInput struct {
	URL string `json:"url"`
}

// JobFetchOutput is the output of job_fetch.
type JobFetchOutput struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
}

func registerJobFetch(server *mcp.Server, _ Deps) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "job_fetch",
		Description: "Fetch a job posting over plain HTTP and extract the main content as markdown. Much cheaper than job_analyze; use it first, fall back to job_analyze for pages that need a real browser.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input JobFetchInput) (*mcp.CallToolResult, *JobFetchOutput, error) {
		if input.URL == "" {
			return nil, nil, errors.New("url is required")
		}
		title, content, err := engine.FetchJobPage(ctx, input.URL)
		if err != nil {
			return nil, nil, err
		}
		return nil, &JobFetchOutput{Title: title, Content: content}, nil
	})
}
