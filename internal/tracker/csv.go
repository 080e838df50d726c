package tracker

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// csvHeader is the fixed export column set. Export is one-way; a full
// round trip is not a goal.
var csvHeader = []string{
	"id", "company", "job_title", "location", "job_url",
	"source", "salary_range", "status", "found_date", "applied_date", "notes",
}

// ExportCSV flattens every record to one CSV row at path. Notes are
// summarized to the last few entries so cells stay bounded.
func (s *Store) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return &StorageError{Op: "export", Path: path, Err: err}
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return &StorageError{Op: "export", Path: path, Err: err}
	}

	// Deterministic row order: by id.
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		job := s.jobs[id]
		row := []string{
			job.ID,
			job.Company,
			job.JobTitle,
			job.Location,
			job.JobURL,
			job.Source,
			job.SalaryRange,
			string(job.Status),
			formatDate(job.FoundDate),
			formatDate(job.AppliedDate),
			summarizeNotes(job.Notes, 3),
		}
		if err := w.Write(row); err != nil {
			return &StorageError{Op: "export", Path: path, Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return &StorageError{Op: "export", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &StorageError{Op: "export", Path: path, Err: err}
	}
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// summarizeNotes joins the last max notes as "date: text; ...".
func summarizeNotes(notes []Note, max int) string {
	if len(notes) > max {
		notes = notes[len(notes)-max:]
	}
	parts := make([]string, 0, len(notes))
	for _, n := range notes {
		parts = append(parts, fmt.Sprintf("%s: %s", n.Time.UTC().Format("2006-01-02"), n.Text))
	}
	return strings.Join(parts, "; ")
}
