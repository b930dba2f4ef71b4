package models

import "time"

// Pattern types determine which normalized field a pattern matches against
const (
	PatternSender   = "sender"
	PatternSubject  = "subject"
	PatternBody     = "body"
	PatternCombined = "combined"
)

// Assignment methods
const (
	MethodAuto      = "auto"
	MethodManual    = "manual"
	MethodSuggested = "suggested"
)

// Category represents an email category with its assignment policy
type Category struct {
	ID                  int64     `db:"id"`
	Name                string    `db:"name"`
	Description         string    `db:"description"`
	ConfidenceThreshold float64   `db:"confidence_threshold"` // Minimum score for assignment
	AutoAssign          bool      `db:"auto_assign"`          // Assign automatically vs. suggest
	IsActive            bool      `db:"is_active"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

// CategoryPattern is a stored regex rule belonging to a category
type CategoryPattern struct {
	ID           int64     `db:"id"`
	CategoryID   int64     `db:"category_id"`
	PatternType  string    `db:"pattern_type"`  // sender / subject / body / combined
	PatternRegex string    `db:"pattern_regex"` // Contains-style regex
	Weight       float64   `db:"pattern_weight"`
	SuccessRate  float64   `db:"success_rate"` // Feedback from manual review
	UsageCount   int64     `db:"usage_count"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

// CategoryWithPatterns bundles a category with its active patterns
type CategoryWithPatterns struct {
	Category Category
	Patterns []CategoryPattern
}

// CategoryAssignment links an email to a category
type CategoryAssignment struct {
	ID              int64     `db:"id"`
	EmailID         int64     `db:"email_id"`
	CategoryID      int64     `db:"category_id"`
	ConfidenceScore float64   `db:"confidence_score"`
	Method          string    `db:"method"` // auto / manual / suggested
	AssignedAt      time.Time `db:"assigned_at"`
}
