// Package engine holds the shared plumbing for go_apply: injected
// configuration, metrics, retry, the result cache, and job-page fetching.
package engine

import (
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	HyperbrowserAPIKey  string
	HyperbrowserBaseURL string
	AnthropicAPIKey     string // optional; forwarded so tasks run on the caller's key

	DataDir string // jobs.json, runlog.db, exports
	UserDir string // resume + preference files

	SearchMaxSteps  int
	ApplyMaxSteps   int
	AnalyzeMaxSteps int

	TaskPollInterval time.Duration
	TaskTimeout      time.Duration

	FetchTimeout    time.Duration
	MaxContentChars int // per fetched page
	MaxContextChars int // AI context string cap

	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	HTTPClient    *http.Client
	BrowserClient *BrowserClient // nil = fingerprinted fetch disabled
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages.
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
func Init(c Config) {
	cfg = c
	Cfg = &cfg
}
