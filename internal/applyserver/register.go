// Package applyserver exposes the tracker and the computer-use agent as MCP
// tools, so an MCP client can drive searches, applications, and tracker
// bookkeeping over the wire.
package applyserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/agent"
	"github.com/anatolykoptev/go_apply/internal/profile"
	"github.com/anatolykoptev/go_apply/internal/tracker"
)

// Deps is everything the tool handlers need.
type Deps struct {
	Store   *tracker.Store
	Agent   *agent.Agent
	Profile *profile.Profile
}

// RegisterTools registers all tools on the given MCP server:
// tracker_add, tracker_list, tracker_update, tracker_stats,
// job_search, job_apply, job_analyze, job_fetch, job_status_check.
func RegisterTools(server *mcp.Server, deps Deps) {
	registerTrackerAdd(server, deps)
	registerTrackerList(server, deps)
	registerTrackerUpdate(server, deps)
	registerTrackerStats(server, deps)
	registerJobSearch(server, deps)
	registerJobApply(server, deps)
	registerJobAnalyze(server, deps)
	registerJobFetch(server, deps)
	registerStatusCheck(server, deps)
}
