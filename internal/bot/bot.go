// Package bot orchestrates a full automation run: search the configured
// boards for each target role, fold the results into the tracker, then
// optionally apply to the new finds within the configured limits.
package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_apply/internal/agent"
	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/profile"
	"github.com/anatolykoptev/go_apply/internal/runlog"
	"github.com/anatolykoptev/go_apply/internal/tracker"
)

// Approver decides whether one job gets an application. Used for the
// manual-approval mode; nil approves everything.
type Approver func(job tracker.JobRecord) bool

// Options tune a run beyond what preferences configure.
type Options struct {
	Concurrency int       // parallel search tasks, min 1
	Approver    Approver  // consulted when require_manual_approval is set
	Output      io.Writer // run summary destination, default stdout
	DryRun      bool      // search and track only, never apply
}

// Bot wires the agent, the tracker store, and the user profile together.
type Bot struct {
	agent   *agent.Agent
	store   *tracker.Store
	profile *profile.Profile
	opts    Options
}

// New creates a bot. The store must already be open.
func New(ag *agent.Agent, store *tracker.Store, prof *profile.Profile, opts Options) *Bot {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Bot{agent: ag, store: store, profile: prof, opts: opts}
}

// RunSummary is what one Run produced.
type RunSummary struct {
	Searches     int
	SearchErrors int
	JobsFound    int
	JobsNew      []string // tracker ids added or refreshed this run
	Applications int
	ApplyErrors  int
}

// Run executes one full cycle: search every target query, track the finds,
// auto-apply if preferences allow it, then print a summary.
func (b *Bot) Run(ctx context.Context) (*RunSummary, error) {
	aiContext := b.profile.BuildContext()
	queries := b.profile.Queries()
	boards := b.profile.Preferences.JobBoards

	slog.Info("bot: starting run",
		slog.Int("queries", len(queries)),
		slog.Int("concurrency", b.opts.Concurrency))

	summary := &RunSummary{}

	results := b.searchAll(ctx, queries, aiContext, boards, summary)

	for _, sr := range results {
		ids := b.trackCandidates(sr)
		summary.JobsFound += len(sr.candidates)
		summary.JobsNew = append(summary.JobsNew, ids...)
	}

	if !b.opts.DryRun && b.profile.Preferences.AutomationSettings.AutoApplyAfterSearch {
		b.autoApply(ctx, summary)
	}

	b.printSummary(summary)
	return summary, nil
}

type searchResult struct {
	query      string
	candidates []agent.Candidate
	res        *agent.Result
}

// searchAll runs every query through the agent, bounded by Concurrency.
// The agent serializes on one browser session, so concurrency above 1 only
// pays off once the backend hands out distinct sessions per task.
func (b *Bot) searchAll(ctx context.Context, queries []string, aiContext string, boards []string, summary *RunSummary) []searchResult {
	var (
		mu      sync.Mutex
		results []searchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Concurrency)

	for _, query := range queries {
		g.Go(func() error {
			started := time.Now()
			candidates, res, err := b.agent.SearchJobs(gctx, query, aiContext, boards)

			entry := runlog.Entry{
				Kind:      runlog.KindSearch,
				Target:    query,
				OK:        err == nil,
				StartedAt: started,
			}
			if res != nil {
				entry.SessionID = res.SessionID
				entry.StepsTaken = res.StepsTaken
				entry.BrowserURL = res.BrowserURL
				entry.RecordingURL = res.RecordingURL
			}
			entry.DurationMS = time.Since(started).Milliseconds()
			if err != nil {
				entry.Error = err.Error()
			}
			if _, lerr := runlog.Record(ctx, entry); lerr != nil {
				slog.Warn("bot: run log write failed", slog.Any("error", lerr))
			}

			mu.Lock()
			defer mu.Unlock()
			summary.Searches++
			if err != nil {
				summary.SearchErrors++
				slog.Error("bot: search failed",
					slog.String("query", query),
					slog.Any("error", err))
				return nil // one failed query does not abort the run
			}
			slog.Info("bot: search completed",
				slog.String("query", query),
				slog.Int("candidates", len(candidates)))
			results = append(results, searchResult{query: query, candidates: candidates, res: res})
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors

	return results
}

// trackCandidates folds one search's candidates into the tracker and
// returns the affected record ids.
func (b *Bot) trackCandidates(sr searchResult) []string {
	var ids []string
	for _, c := range sr.candidates {
		if b.excluded(c.Company) {
			slog.Debug("bot: skipping excluded company", slog.String("company", c.Company))
			continue
		}
		note := "Found via search: " + sr.query
		if c.MatchReason != "" {
			note += " | " + c.MatchReason
		}
		id, err := b.store.Add(tracker.AddInput{
			Company:     c.Company,
			JobTitle:    c.Title,
			Location:    c.Location,
			JobURL:      c.URL,
			Source:      sourceFromURL(c.URL),
			SalaryRange: c.Salary,
			Note:        note,
		})
		if err != nil {
			slog.Warn("bot: could not track job",
				slog.String("company", c.Company),
				slog.String("title", c.Title),
				slog.Any("error", err))
			continue
		}
		engine.IncrJobsTracked()
		ids = append(ids, id)
	}
	return ids
}

func (b *Bot) excluded(company string) bool {
	for _, ex := range b.profile.Preferences.ExcludedCompanies {
		if strings.EqualFold(company, ex) {
			return true
		}
	}
	return false
}

// autoApply applies to tracked jobs that have a URL and have not been
// applied to yet, honoring the per-run cap, the delay between applications,
// and the approval hook. A failed application leaves the record unchanged
// so a later run can retry it.
func (b *Bot) autoApply(ctx context.Context, summary *RunSummary) {
	settings := b.profile.Preferences.AutomationSettings

	maxApps := settings.MaxApplicationsPerRun
	if maxApps <= 0 {
		maxApps = 3
	}
	delay := time.Duration(settings.ApplicationDelaySecs) * time.Second

	// Burst 1 with an available token: the first application goes out
	// immediately, later ones wait out the configured delay.
	var limiter *rate.Limiter
	if delay > 0 {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
	}

	applicant := agent.ApplicantInfo{
		Name:     b.profile.PersonalInfo.Name,
		Email:    b.profile.PersonalInfo.Email,
		Phone:    b.profile.PersonalInfo.Phone,
		LinkedIn: b.profile.PersonalInfo.LinkedIn,
		GitHub:   b.profile.PersonalInfo.GitHub,
	}

	for _, id := range summary.JobsNew {
		if summary.Applications >= maxApps {
			slog.Info("bot: application cap reached", slog.Int("max", maxApps))
			break
		}

		job, err := b.store.Get(id)
		if err != nil {
			continue
		}
		if job.JobURL == "" || tracker.AppliedOrLater(job.Status) {
			continue
		}
		if settings.RequireApproval && b.opts.Approver != nil && !b.opts.Approver(*job) {
			slog.Info("bot: application not approved",
				slog.String("company", job.Company),
				slog.String("title", job.JobTitle))
			continue
		}

		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		if err := b.applyOne(ctx, job, applicant); err != nil {
			summary.ApplyErrors++
			slog.Error("bot: application failed",
				slog.String("id", job.ID),
				slog.Any("error", err))
			continue
		}
		summary.Applications++
		engine.IncrApplicationsMade()
	}
}

// applyOne runs the application task for one job and records the outcome.
func (b *Bot) applyOne(ctx context.Context, job *tracker.JobRecord, applicant agent.ApplicantInfo) error {
	slog.Info("bot: applying",
		slog.String("company", job.Company),
		slog.String("title", job.JobTitle),
		slog.String("url", job.JobURL))

	started := time.Now()
	res, err := b.agent.Apply(ctx, job.JobURL, applicant, "")

	entry := runlog.Entry{
		Kind:      runlog.KindApply,
		Target:    job.JobURL,
		OK:        err == nil,
		StartedAt: started,
	}
	if res != nil {
		entry.SessionID = res.SessionID
		entry.StepsTaken = res.StepsTaken
		entry.BrowserURL = res.BrowserURL
		entry.RecordingURL = res.RecordingURL
	}
	entry.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		entry.Error = err.Error()
	}
	if _, lerr := runlog.Record(ctx, entry); lerr != nil {
		slog.Warn("bot: run log write failed", slog.Any("error", lerr))
	}

	if err != nil {
		return err
	}

	note := "Applied automatically"
	if res.Output != "" {
		note += ": " + engine.TruncateRunes(res.Output, 500, "...")
	}
	if err := b.store.UpdateStatus(job.ID, tracker.StatusApplied, note); err != nil {
		return fmt.Errorf("bot: mark applied: %w", err)
	}
	if res.SessionID != "" {
		b.store.SetExtra(job.ID, "session_id", res.SessionID) //nolint:errcheck
	}
	if res.RecordingURL != "" {
		b.store.SetExtra(job.ID, "recording_url", res.RecordingURL) //nolint:errcheck
	}
	return nil
}

func (b *Bot) printSummary(summary *RunSummary) {
	stats := b.store.Statistics()

	fmt.Fprintf(b.opts.Output, "\nRun complete: %d searches (%d failed), %d jobs found, %d applications (%d failed)\n",
		summary.Searches, summary.SearchErrors, summary.JobsFound,
		summary.Applications, summary.ApplyErrors)
	fmt.Fprintf(b.opts.Output, "Tracker: %d jobs total, %d applied or later (%.0f%% apply rate)\n",
		stats.Total, stats.Applied, stats.ApplyRate*100)
	for status, n := range stats.ByStatus {
		fmt.Fprintf(b.opts.Output, "  %-10s %d\n", status, n)
	}
}

// sourceFromURL guesses the job board from a URL host.
func sourceFromURL(jobURL string) string {
	switch {
	case strings.Contains(jobURL, "linkedin.com"):
		return "LinkedIn"
	case strings.Contains(jobURL, "indeed.com"):
		return "Indeed"
	case strings.Contains(jobURL, "wellfound.com"), strings.Contains(jobURL, "angel.co"):
		return "Wellfound"
	case strings.Contains(jobURL, "glassdoor.com"):
		return "Glassdoor"
	case jobURL != "":
		return "Other"
	}
	return "search"
}
