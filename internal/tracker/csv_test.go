package tracker

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parse export: %v", err)
	}
	return rows
}

func TestExportCSV_Empty(t *testing.T) {
	s := testStore(t, StoreOptions{})
	out := filepath.Join(t.TempDir(), "jobs.csv")

	if err := s.ExportCSV(out); err != nil {
		t.Fatalf("ExportCSV error: %v", err)
	}
	rows := readCSV(t, out)
	if len(rows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}
}

func TestExportCSV_OneRowPerJob(t *testing.T) {
	for _, n := range []int{1, 7} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			s := testStore(t, StoreOptions{})
			for i := 0; i < n; i++ {
				_, err := s.Add(AddInput{
					Company:  fmt.Sprintf("Company %d", i),
					JobTitle: "Engineer",
					JobURL:   fmt.Sprintf("https://example.com/jobs/%d", i),
				})
				if err != nil {
					t.Fatalf("Add error: %v", err)
				}
			}

			out := filepath.Join(t.TempDir(), "jobs.csv")
			if err := s.ExportCSV(out); err != nil {
				t.Fatalf("ExportCSV error: %v", err)
			}
			rows := readCSV(t, out)
			if len(rows) != n+1 {
				t.Fatalf("expected %d data rows, got %d", n, len(rows)-1)
			}
			// No job lost: every stored id appears exactly once.
			seen := make(map[string]int)
			for _, row := range rows[1:] {
				seen[row[0]]++
			}
			for id := range s.jobs {
				if seen[id] != 1 {
					t.Errorf("id %s appears %d times in export", id, seen[id])
				}
			}
		})
	}
}

func TestExportCSV_FieldsAndNotes(t *testing.T) {
	s := testStore(t, StoreOptions{})
	id, _ := s.Add(AddInput{
		Company:     "Acme",
		JobTitle:    "Engineer",
		Location:    "Remote",
		JobURL:      "https://acme.example/jobs/1",
		Source:      "linkedin",
		SalaryRange: "$150k",
	})
	s.UpdateStatus(id, StatusApplied, "submitted") //nolint:errcheck
	for i := 0; i < 5; i++ {
		s.AddNote(id, fmt.Sprintf("note %d", i)) //nolint:errcheck
	}

	out := filepath.Join(t.TempDir(), "jobs.csv")
	if err := s.ExportCSV(out); err != nil {
		t.Fatalf("ExportCSV error: %v", err)
	}
	rows := readCSV(t, out)
	row := rows[1]

	if row[1] != "Acme" || row[2] != "Engineer" || row[4] != "https://acme.example/jobs/1" {
		t.Errorf("row fields wrong: %v", row)
	}
	if row[7] != "applied" {
		t.Errorf("status column = %q", row[7])
	}
	if row[9] == "" {
		t.Error("applied_date column empty")
	}
	notes := row[10]
	// Summarized to the last 3 notes.
	if strings.Contains(notes, "submitted") || !strings.Contains(notes, "note 4") {
		t.Errorf("notes summary wrong: %q", notes)
	}
	if got := strings.Count(notes, "; ") + 1; got != 3 {
		t.Errorf("expected 3 summarized notes, got %d (%q)", got, notes)
	}
}
