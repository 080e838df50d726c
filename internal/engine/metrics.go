package engine

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	TaskRuns          atomic.Int64
	TaskErrors        atomic.Int64
	TaskStepsTotal    atomic.Int64
	SearchTasks       atomic.Int64
	ApplyTasks        atomic.Int64
	AnalyzeTasks      atomic.Int64
	FetchRequests     atomic.Int64
	FetchErrors       atomic.Int64
	JobsTracked       atomic.Int64
	ApplicationsMade  atomic.Int64
}

// Incrementors for the agent and bot packages.
func IncrTaskRuns()         { metrics.TaskRuns.Add(1) }
func IncrTaskErrors()       { metrics.TaskErrors.Add(1) }
func AddTaskSteps(n int64)  { metrics.TaskStepsTotal.Add(n) }
func IncrSearchTasks()      { metrics.SearchTasks.Add(1) }
func IncrApplyTasks()       { metrics.ApplyTasks.Add(1) }
func IncrAnalyzeTasks()     { metrics.AnalyzeTasks.Add(1) }
func IncrJobsTracked()      { metrics.JobsTracked.Add(1) }
func IncrApplicationsMade() { metrics.ApplicationsMade.Add(1) }

// GetMetrics returns a snapshot of all metrics including cache stats.
func GetMetrics() map[string]int64 {
	hits, misses := CacheStats()
	return map[string]int64{
		"task_runs":         metrics.TaskRuns.Load(),
		"task_errors":       metrics.TaskErrors.Load(),
		"task_steps_total":  metrics.TaskStepsTotal.Load(),
		"search_tasks":      metrics.SearchTasks.Load(),
		"apply_tasks":       metrics.ApplyTasks.Load(),
		"analyze_tasks":     metrics.AnalyzeTasks.Load(),
		"fetch_requests":    metrics.FetchRequests.Load(),
		"fetch_errors":      metrics.FetchErrors.Load(),
		"jobs_tracked":      metrics.JobsTracked.Load(),
		"applications_made": metrics.ApplicationsMade.Load(),
		"cache_hits":        hits,
		"cache_misses":      misses,
	}
}

// FormatMetrics returns metrics as a simple text format for the metrics endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	keys := []string{
		"task_runs", "task_errors", "task_steps_total",
		"search_tasks", "apply_tasks", "analyze_tasks",
		"fetch_requests", "fetch_errors",
		"jobs_tracked", "applications_made",
		"cache_hits", "cache_misses",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
