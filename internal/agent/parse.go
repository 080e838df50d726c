package agent

import (
	"encoding/json"
	"strings"
)

// Candidate is one job extracted from a search result, ready for the tracker.
type Candidate struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location,omitempty"`
	URL         string `json:"url,omitempty"`
	Salary      string `json:"salary,omitempty"`
	MatchReason string `json:"match_reason,omitempty"`
}

// stripFences removes markdown code fences from model output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseCandidates extracts job candidates from a task result. The model is
// asked for {"jobs": [...]}, but results sometimes come fenced, as a bare
// array, or as free text; free text yields zero candidates rather than an
// error, since a search that found nothing is not a failure.
func ParseCandidates(result string) []Candidate {
	raw := stripFences(result)
	if raw == "" {
		return nil
	}

	// The JSON may be embedded in surrounding prose.
	if i := strings.IndexAny(raw, "{["); i > 0 {
		raw = raw[i:]
	}

	var wrapped struct {
		Jobs []Candidate `json:"jobs"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil {
		return valid(wrapped.Jobs)
	}

	var bare []Candidate
	if err := json.Unmarshal([]byte(raw), &bare); err == nil {
		return valid(bare)
	}

	return nil
}

// valid drops candidates missing the fields the tracker requires.
func valid(in []Candidate) []Candidate {
	out := in[:0]
	for _, c := range in {
		if strings.TrimSpace(c.Company) != "" && strings.TrimSpace(c.Title) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
