package tracker

import (
	"regexp"
	"strings"
	"time"
)

// Note is one timestamped, append-only note on a job record.
type Note struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// JobRecord is one tracked job opportunity.
type JobRecord struct {
	ID            string            `json:"id"`
	Company       string            `json:"company"`
	JobTitle      string            `json:"job_title"`
	Location      string            `json:"location,omitempty"`
	JobURL        string            `json:"job_url,omitempty"`
	Source        string            `json:"source,omitempty"` // job board the listing came from
	SalaryRange   string            `json:"salary_range,omitempty"`
	Status        Status            `json:"status"`
	FoundDate     time.Time         `json:"found_date"`
	AppliedDate   time.Time         `json:"applied_date,omitzero"`
	InterviewDate time.Time         `json:"interview_date,omitzero"`
	OfferDate     time.Time         `json:"offer_date,omitzero"`
	ClosedDate    time.Time         `json:"closed_date,omitzero"`
	UpdatedAt     time.Time         `json:"updated_at"`
	Notes         []Note            `json:"notes,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"` // search metadata, application proof, etc.
}

// AddInput is the input for Store.Add. Company and JobTitle are required.
type AddInput struct {
	Company     string `json:"company"`
	JobTitle    string `json:"job_title"`
	Location    string `json:"location,omitempty"`
	JobURL      string `json:"job_url,omitempty"`
	Source      string `json:"source,omitempty"`
	SalaryRange string `json:"salary_range,omitempty"`
	Note        string `json:"note,omitempty"`
}

// Filter selects records for Store.Find. Zero fields match everything.
type Filter struct {
	Status  Status // exact match
	Source  string // exact match, case-insensitive
	Company string // substring, case-insensitive
	Query   string // substring over company+title+location, case-insensitive
}

// Stats is the aggregate view returned by Store.Statistics.
type Stats struct {
	Total     int            `json:"total"`
	ByStatus  map[Status]int `json:"by_status"`
	ByCompany map[string]int `json:"by_company"`
	BySource  map[string]int `json:"by_source"`
	Applied   int            `json:"applied"` // applied-or-later
	ApplyRate float64        `json:"apply_rate"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases s, collapses runs of non-alphanumerics to underscores,
// and truncates to max bytes.
func slugify(s string, max int) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugStrip.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > max {
		s = strings.Trim(s[:max], "_")
	}
	return s
}

// recordID builds the composite id: company_title_datestamp. Stable for the
// same logical job discovered on the same day, which is what dedup keys on.
func recordID(company, title string, day time.Time) string {
	return slugify(company, 20) + "_" + slugify(title, 30) + "_" + day.Format("20060102")
}

func (f Filter) matches(r *JobRecord) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Source != "" && !strings.EqualFold(f.Source, r.Source) {
		return false
	}
	if f.Company != "" && !strings.Contains(strings.ToLower(r.Company), strings.ToLower(f.Company)) {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		hay := strings.ToLower(r.Company + " " + r.JobTitle + " " + r.Location)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}
