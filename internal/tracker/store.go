package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound means the referenced job id is not in the store.
	ErrNotFound = errors.New("tracker: job not found")
	// ErrValidation means the input was rejected before mutating state.
	ErrValidation = errors.New("tracker: invalid input")
	// ErrTransition means a status change violated the recommended flow
	// while StrictTransitions is enabled.
	ErrTransition = errors.New("tracker: status transition not allowed")
)

// StorageError wraps a file read/write/parse failure. A corrupt store file is
// reported, never silently replaced by an empty store.
type StorageError struct {
	Op   string // "load", "save", "backup", "export"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("tracker: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StoreOptions configures Open.
type StoreOptions struct {
	// BackupEnabled keeps a .bak copy of the previous version on every save.
	BackupEnabled bool
	// StrictTransitions rejects status changes outside the recommended flow.
	StrictTransitions bool
	// Now overrides the clock, for tests. nil means time.Now.
	Now func() time.Time
}

// Store is a durable, deduplicated record of job-search activity backed by a
// JSON file. One logical writer at a time; the surrounding automation drives
// one job at a time.
type Store struct {
	path string
	opts StoreOptions
	jobs map[string]*JobRecord
	now  func() time.Time
}

// Open loads the store from path, creating an empty one when the file does
// not exist yet. A malformed file is a load error, not an empty store.
func Open(path string, opts StoreOptions) (*Store, error) {
	s := &Store{
		path: path,
		opts: opts,
		jobs: make(map[string]*JobRecord),
		now:  opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		slog.Info("tracker: starting empty store", slog.String("path", path))
		return s, nil
	case err != nil:
		return nil, &StorageError{Op: "load", Path: path, Err: err}
	}

	if err := json.Unmarshal(data, &s.jobs); err != nil {
		return nil, &StorageError{Op: "load", Path: path, Err: err}
	}
	for id, job := range s.jobs {
		if job.ID == "" {
			job.ID = id
		}
	}
	slog.Info("tracker: store loaded", slog.String("path", path), slog.Int("jobs", len(s.jobs)))
	return s, nil
}

// Len returns the number of tracked jobs.
func (s *Store) Len() int { return len(s.jobs) }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Add records a job, deduplicating against existing records: the same
// (company, title) pair or the same non-empty job URL resolves to the
// existing record. Non-blank incoming fields fill blanks on merge; existing
// values are never clobbered by blanks. Returns the record id.
func (s *Store) Add(in AddInput) (string, error) {
	company := strings.TrimSpace(in.Company)
	title := strings.TrimSpace(in.JobTitle)
	if company == "" || title == "" {
		return "", fmt.Errorf("%w: company and job_title are required", ErrValidation)
	}

	if existing := s.findDuplicate(company, title, in.JobURL); existing != nil {
		s.mergeFields(existing, in)
		existing.UpdatedAt = s.now()
		if err := s.Save(); err != nil {
			return "", err
		}
		slog.Debug("tracker: duplicate merged",
			slog.String("id", existing.ID),
			slog.String("company", company),
			slog.String("title", title))
		return existing.ID, nil
	}

	now := s.now()
	id := recordID(company, title, now)
	// Same company+title+day but different URL: suffix a counter.
	for n := 1; ; n++ {
		if _, ok := s.jobs[id]; !ok {
			break
		}
		id = fmt.Sprintf("%s_%d", recordID(company, title, now), n)
	}

	job := &JobRecord{
		ID:          id,
		Company:     company,
		JobTitle:    title,
		Location:    strings.TrimSpace(in.Location),
		JobURL:      strings.TrimSpace(in.JobURL),
		Source:      strings.TrimSpace(in.Source),
		SalaryRange: strings.TrimSpace(in.SalaryRange),
		Status:      StatusFound,
		FoundDate:   now,
		UpdatedAt:   now,
	}
	if in.Note != "" {
		job.Notes = append(job.Notes, Note{Time: now, Text: in.Note})
	}
	s.jobs[id] = job

	if err := s.Save(); err != nil {
		delete(s.jobs, id)
		return "", err
	}
	slog.Info("tracker: job added",
		slog.String("id", id),
		slog.String("company", company),
		slog.String("title", title))
	return id, nil
}

func (s *Store) findDuplicate(company, title, url string) *JobRecord {
	url = strings.TrimSpace(url)
	for _, job := range s.jobs {
		if strings.EqualFold(job.Company, company) && strings.EqualFold(job.JobTitle, title) {
			return job
		}
		if url != "" && job.JobURL == url {
			return job
		}
	}
	return nil
}

func (s *Store) mergeFields(job *JobRecord, in AddInput) {
	if job.Location == "" && strings.TrimSpace(in.Location) != "" {
		job.Location = strings.TrimSpace(in.Location)
	}
	if job.JobURL == "" && strings.TrimSpace(in.JobURL) != "" {
		job.JobURL = strings.TrimSpace(in.JobURL)
	}
	if job.Source == "" && strings.TrimSpace(in.Source) != "" {
		job.Source = strings.TrimSpace(in.Source)
	}
	if job.SalaryRange == "" && strings.TrimSpace(in.SalaryRange) != "" {
		job.SalaryRange = strings.TrimSpace(in.SalaryRange)
	}
	if in.Note != "" {
		job.Notes = append(job.Notes, Note{Time: s.now(), Text: in.Note})
	}
}

// UpdateStatus sets a job's status, stamping the milestone date the first
// time the job reaches it, and appends note when non-empty. The store is left
// unchanged on any error.
func (s *Store) UpdateStatus(id string, status Status, note string) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.opts.StrictTransitions && !AllowedTransition(job.Status, status) {
		return fmt.Errorf("%w: %s → %s", ErrTransition, job.Status, status)
	}

	prev := *job
	now := s.now()

	old := job.Status
	job.Status = status
	job.UpdatedAt = now
	switch status {
	case StatusApplied:
		if job.AppliedDate.IsZero() {
			job.AppliedDate = now
		}
	case StatusInterview:
		if job.InterviewDate.IsZero() {
			job.InterviewDate = now
		}
	case StatusOffer:
		if job.OfferDate.IsZero() {
			job.OfferDate = now
		}
	case StatusAccepted, StatusRejected, StatusWithdrawn, StatusDeclined:
		if job.ClosedDate.IsZero() {
			job.ClosedDate = now
		}
	}
	if note != "" {
		job.Notes = append(job.Notes, Note{Time: now, Text: note})
	}

	if err := s.Save(); err != nil {
		*job = prev
		return err
	}
	slog.Info("tracker: status updated",
		slog.String("id", id),
		slog.String("from", string(old)),
		slog.String("to", string(status)))
	return nil
}

// AddNote appends a timestamped note to a job.
func (s *Store) AddNote(id, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty note", ErrValidation)
	}
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	job.Notes = append(job.Notes, Note{Time: s.now(), Text: text})
	job.UpdatedAt = s.now()
	if err := s.Save(); err != nil {
		job.Notes = job.Notes[:len(job.Notes)-1]
		return err
	}
	return nil
}

// SetExtra attaches an arbitrary descriptive field (search metadata,
// application proof pointers) to a job.
func (s *Store) SetExtra(id, key, value string) error {
	job, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if job.Extra == nil {
		job.Extra = make(map[string]string)
	}
	job.Extra[key] = value
	job.UpdatedAt = s.now()
	return s.Save()
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (*JobRecord, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	cp := *job
	return &cp, nil
}

// Find returns copies of all records matching f, sorted by most recently
// updated.
func (s *Store) Find(f Filter) []JobRecord {
	var out []JobRecord
	for _, job := range s.jobs {
		if f.matches(job) {
			out = append(out, *job)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Statistics aggregates counts per status, company, and source, plus the
// apply rate (applied-or-later over total).
func (s *Store) Statistics() Stats {
	st := Stats{
		Total:     len(s.jobs),
		ByStatus:  make(map[Status]int),
		ByCompany: make(map[string]int),
		BySource:  make(map[string]int),
	}
	for _, job := range s.jobs {
		st.ByStatus[job.Status]++
		st.ByCompany[job.Company]++
		if job.Source != "" {
			st.BySource[job.Source]++
		}
		if AppliedOrLater(job.Status) {
			st.Applied++
		}
	}
	if st.Total > 0 {
		st.ApplyRate = float64(st.Applied) / float64(st.Total)
	}
	return st
}

// Save writes the full mapping to a temp file in the same directory and
// atomically replaces the target, so a crash mid-write never corrupts the
// last known-good state. With BackupEnabled the previous version is kept as
// path.bak first.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}

	if s.opts.BackupEnabled {
		if err := s.backup(); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(s.jobs, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".jobs-*.json")
	if err != nil {
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "save", Path: s.path, Err: err}
	}
	slog.Debug("tracker: store saved", slog.String("path", s.path), slog.Int("jobs", len(s.jobs)))
	return nil
}

func (s *Store) backup() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil // nothing to back up yet
	}
	if err != nil {
		return &StorageError{Op: "backup", Path: s.path, Err: err}
	}
	bak := s.path + ".bak"
	if err := os.WriteFile(bak, data, 0o640); err != nil {
		return &StorageError{Op: "backup", Path: bak, Err: err}
	}
	return nil
}
