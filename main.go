// go_apply — personal job search automation.
//
// Searches job boards with a cloud computer-use browser agent, tracks every
// find in a local JSON tracker, and optionally applies within configured
// limits. Also runs as an MCP server exposing the tracker and the agent as
// tools.
//
// Subcommands: run (search + auto-apply), status (tracker statistics),
// export (tracker to CSV), log (recent automation runs), serve (MCP server).
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anatolykoptev/go_apply/internal/agent"
	"github.com/anatolykoptev/go_apply/internal/applyserver"
	"github.com/anatolykoptev/go_apply/internal/bot"
	"github.com/anatolykoptev/go_apply/internal/engine"
	"github.com/anatolykoptev/go_apply/internal/hyperbrowser"
	"github.com/anatolykoptev/go_apply/internal/profile"
	"github.com/anatolykoptev/go_apply/internal/runlog"
	"github.com/anatolykoptev/go_apply/internal/tracker"
)

var version = "dev"

const usage = `go_apply — personal job search automation

Usage:
  go_apply run [--dry-run]   search boards, track finds, auto-apply per preferences
  go_apply status            tracker statistics
  go_apply export [path]     export the tracker to CSV (default data/jobs.csv)
  go_apply log [n]           show the last n automation runs (default 20)
  go_apply serve             run as MCP server
`

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", slog.Any("error", err))
	}
	initEngine()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(ctx, os.Args[2:])
	case "status":
		err = cmdStatus()
	case "export":
		err = cmdExport(os.Args[2:])
	case "log":
		err = cmdLog(ctx, os.Args[2:])
	case "serve":
		err = cmdServe()
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		slog.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
		os.Exit(1)
	}
}

func initEngine() {
	c := engine.Config{
		HyperbrowserAPIKey:  env.Str("HYPERBROWSER_API_KEY", ""),
		HyperbrowserBaseURL: env.Str("HYPERBROWSER_BASE_URL", hyperbrowser.DefaultBaseURL),
		AnthropicAPIKey:     env.Str("ANTHROPIC_API_KEY", ""),

		DataDir: env.Str("DATA_DIR", "data"),
		UserDir: env.Str("USER_DIR", "user"),

		SearchMaxSteps:  env.Int("SEARCH_MAX_STEPS", 50),
		ApplyMaxSteps:   env.Int("APPLY_MAX_STEPS", 75),
		AnalyzeMaxSteps: env.Int("ANALYZE_MAX_STEPS", 30),

		TaskPollInterval: env.Duration("TASK_POLL_INTERVAL", 5*time.Second),
		TaskTimeout:      env.Duration("TASK_TIMEOUT", 15*time.Minute),

		FetchTimeout:    env.Duration("FETCH_TIMEOUT", 10*time.Second),
		MaxContentChars: env.Int("MAX_CONTENT_CHARS", 6000),
		MaxContextChars: env.Int("MAX_CONTEXT_CHARS", 20000),

		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),

		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	bc, err := engine.NewBrowserClient()
	if err != nil {
		slog.Warn("browser client init failed, plain fetch only", slog.Any("error", err))
	} else {
		c.BrowserClient = bc
	}

	engine.Init(c)
	engine.InitCache(env.Str("REDIS_URL", ""),
		env.Duration("CACHE_TTL", engine.CacheTTL),
		c.CacheMaxEntries, c.CacheCleanupInterval)
}

func openStore() (*tracker.Store, error) {
	path := filepath.Join(engine.Cfg.DataDir, "jobs.json")
	return tracker.Open(path, tracker.StoreOptions{BackupEnabled: true})
}

func newAgent() (*agent.Agent, error) {
	client, err := hyperbrowser.New(engine.Cfg.HyperbrowserAPIKey,
		hyperbrowser.WithBaseURL(engine.Cfg.HyperbrowserBaseURL),
		hyperbrowser.WithPollInterval(engine.Cfg.TaskPollInterval))
	if err != nil {
		return nil, err
	}
	return agent.New(client, engine.Cfg.AnthropicAPIKey != ""), nil
}

func cmdRun(ctx context.Context, args []string) error {
	dryRun := false
	for _, a := range args {
		if a == "--dry-run" || a == "-n" {
			dryRun = true
		}
	}

	prof, err := profile.Load(engine.Cfg.UserDir)
	if err != nil {
		return err
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	ag, err := newAgent()
	if err != nil {
		return err
	}

	b := bot.New(ag, store, prof, bot.Options{
		Concurrency: env.Int("SEARCH_CONCURRENCY", 1),
		Approver:    promptApproval,
		DryRun:      dryRun,
	})
	_, err = b.Run(ctx)
	return err
}

// promptApproval asks on the terminal before each application.
func promptApproval(job tracker.JobRecord) bool {
	fmt.Printf("Apply to %s at %s (%s)? [y/N] ", job.JobTitle, job.Company, job.JobURL)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func cmdStatus() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	stats := store.Statistics()

	fmt.Printf("Tracked jobs: %d\n", stats.Total)
	for _, s := range []tracker.Status{
		tracker.StatusFound, tracker.StatusReviewed, tracker.StatusApplied,
		tracker.StatusInterview, tracker.StatusOffer, tracker.StatusAccepted,
		tracker.StatusRejected, tracker.StatusWithdrawn, tracker.StatusDeclined,
	} {
		if n := stats.ByStatus[s]; n > 0 {
			fmt.Printf("  %-10s %d\n", s, n)
		}
	}
	fmt.Printf("Applied or later: %d (%.0f%% apply rate)\n", stats.Applied, stats.ApplyRate*100)
	return nil
}

func cmdExport(args []string) error {
	path := filepath.Join(engine.Cfg.DataDir, "jobs.csv")
	if len(args) > 0 {
		path = args[0]
	}
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.ExportCSV(path); err != nil {
		return err
	}
	fmt.Printf("Exported %d jobs to %s\n", store.Len(), path)
	return nil
}

func cmdLog(ctx context.Context, args []string) error {
	limit := 20
	if len(args) > 0 {
		fmt.Sscanf(args[0], "%d", &limit) //nolint:errcheck
	}
	entries, err := runlog.Recent(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		status := "ok"
		if !e.OK {
			status = "FAIL"
		}
		fmt.Printf("%s  %-12s %-4s %4d steps  %s\n",
			e.StartedAt.Local().Format("2006-01-02 15:04"), e.Kind, status, e.StepsTaken, e.Target)
		if e.Error != "" {
			fmt.Printf("    %s\n", e.Error)
		}
	}
	return nil
}

func cmdServe() error {
	store, err := openStore()
	if err != nil {
		return err
	}
	ag, err := newAgent()
	if err != nil {
		return err
	}

	// Profile is optional in server mode; job_apply needs it, the tracker
	// tools do not.
	prof, err := profile.Load(engine.Cfg.UserDir)
	if err != nil {
		slog.Warn("profile not loaded, job_apply disabled", slog.Any("error", err))
		prof = nil
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_apply",
		Version: version,
	}, nil)

	applyserver.RegisterTools(server, applyserver.Deps{
		Store:   store,
		Agent:   ag,
		Profile: prof,
	})
	slog.Info("tools registered", slog.Int("count", 9))

	return mcpserver.Run(server, mcpserver.Config{
		Name:         "go_apply",
		Version:      version,
		Port:         env.Str("MCP_PORT", "8891"),
		WriteTimeout: 600 * time.Second,
		Metrics:      engine.FormatMetrics,
	})
}
