package models

import "time"

// Suggestion statuses
const (
	SuggestionPending  = "pending"
	SuggestionApproved = "approved"
	SuggestionRejected = "rejected"
	SuggestionMerged   = "merged"
)

// CategorySuggestion is a human-reviewable proposal for a new category.
// Terminal until a reviewer approves, rejects or merges it.
type CategorySuggestion struct {
	ID                   int64      `db:"id"`
	SuggestedName        string     `db:"suggested_name"`
	Description          string     `db:"description"`
	SampleEmailIDs       string     `db:"sample_email_ids"` // JSON array of email ids
	PatternAnalysis      string     `db:"pattern_analysis"` // JSON SuggestionAnalysis
	SuggestionConfidence float64    `db:"suggestion_confidence"`
	Status               string     `db:"status"`
	CreatedAt            time.Time  `db:"created_at"`
	ReviewedAt           *time.Time `db:"reviewed_at"`
}

// SuggestionAnalysis describes the shared structure a suggestion was built from
type SuggestionAnalysis struct {
	PatternType string  `json:"pattern_type"` // Field the synthesized regex targets
	Fragment    string  `json:"fragment"`     // Shared text fragment
	Regex       string  `json:"regex"`        // Synthesized contains-regex
	MatchRatio  float64 `json:"match_ratio"`  // Fraction of group members matching
	GroupSize   int     `json:"group_size"`
}
