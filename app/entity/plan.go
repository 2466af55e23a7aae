package entity

import "time"

// RawPlanRow is one row of a plan export before normalization. Email may be
// empty when the source carries no email column (letters-only builds).
type RawPlanRow struct {
	Email string
	Title string
}

// PlanIndexEntry holds one account's known plan set. Plans is sorted and
// deduplicated; entries are immutable once built and replaced wholesale on
// rebuild, never patched.
type PlanIndexEntry struct {
	Email string
	Plans []string
}

// PlanIndex is a read-only snapshot produced by one build: one entry per
// distinct email, the sorted set of distinct valid plan titles, and the
// sorted set of distinct first letters across those titles.
type PlanIndex struct {
	Entries []PlanIndexEntry
	Titles  []string
	Letters []string
	BuiltAt time.Time

	// RejectedTitles and RejectedEmails count rows dropped during the
	// build, for diagnostics only.
	RejectedTitles int
	RejectedEmails int
}

// MatchResult is one row of a plan-matching query response. Computed per
// query, never persisted.
type MatchResult struct {
	Email         string
	MatchingPlans []string
	AllPlans      []string
	MatchingCount int
	Completion    string
	HasExtraPlans bool
}
