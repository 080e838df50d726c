// Package tracker is the local record of job-search activity: a JSON-file
// store of discovered jobs with a status lifecycle, notes, statistics, and
// CSV export.
//
// Recommended status flow:
//
//	found ──► reviewed ──► applied ──► interview ──► offer ──► accepted
//	              │            │            │           │
//	              └────────────┴────────────┴───────────┴──► rejected / withdrawn / declined
//
// Transitions are advisory by default; StoreOptions.StrictTransitions turns
// them into hard errors.
package tracker

import "fmt"

// Status is the application status of a tracked job.
type Status string

const (
	StatusFound     Status = "found"
	StatusReviewed  Status = "reviewed"
	StatusApplied   Status = "applied"
	StatusInterview Status = "interview"
	StatusOffer     Status = "offer"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
	StatusDeclined  Status = "declined"
)

// allStatuses lists every valid status, in lifecycle order.
var allStatuses = []Status{
	StatusFound, StatusReviewed, StatusApplied, StatusInterview,
	StatusOffer, StatusAccepted, StatusRejected, StatusWithdrawn, StatusDeclined,
}

// recommendedTransitions lists every (from → to) pair of the advisory flow.
// Terminal states have no outgoing transitions.
var recommendedTransitions = map[Status][]Status{
	StatusFound:     {StatusReviewed, StatusApplied, StatusRejected, StatusWithdrawn, StatusDeclined},
	StatusReviewed:  {StatusApplied, StatusRejected, StatusWithdrawn, StatusDeclined},
	StatusApplied:   {StatusInterview, StatusRejected, StatusWithdrawn, StatusDeclined},
	StatusInterview: {StatusOffer, StatusRejected, StatusWithdrawn, StatusDeclined},
	StatusOffer:     {StatusAccepted, StatusRejected, StatusWithdrawn, StatusDeclined},
}

// ParseStatus converts a raw string to a Status, rejecting unknown values.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	for _, v := range allStatuses {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// AllowedTransition reports whether from → to follows the recommended flow.
// Setting the same status again is always allowed.
func AllowedTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range recommendedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status has no outgoing transitions.
func Terminal(s Status) bool {
	return len(recommendedTransitions[s]) == 0
}

// AppliedOrLater reports whether the status means an application went out.
func AppliedOrLater(s Status) bool {
	switch s {
	case StatusApplied, StatusInterview, StatusOffer, StatusAccepted:
		return true
	}
	return false
}
