package engine

import (
	"log/slog"

	"github.com/hostwatch/mailsift/pkg/models"
)

// Match is a category that scored at or above its own confidence threshold
type Match struct {
	Category models.Category
	Score    float64
	Matched  []models.CategoryPattern
	Method   string // auto or suggested, per the category's policy
}

// Assigner scores an email against every active category and applies each
// category's decision policy
type Assigner struct {
	scorer *Scorer
	logger *slog.Logger
}

// NewAssigner creates a new category assigner
func NewAssigner(scorer *Scorer, logger *slog.Logger) *Assigner {
	return &Assigner{
		scorer: scorer,
		logger: logger.With("component", "assigner"),
	}
}

// Assign returns every category whose score reaches its threshold. Multiple
// matches are all returned; an empty result marks the email uncategorized.
func (a *Assigner) Assign(norm *models.NormalizedEmail, categories []models.CategoryWithPatterns) []Match {
	var matches []Match
	for _, cwp := range categories {
		// A category with no active patterns can never assign
		if len(cwp.Patterns) == 0 {
			continue
		}

		result := a.scorer.Score(norm, cwp.Patterns)
		if result.Score < cwp.Category.ConfidenceThreshold {
			continue
		}

		method := models.MethodSuggested
		if cwp.Category.AutoAssign {
			method = models.MethodAuto
		}
		matches = append(matches, Match{
			Category: cwp.Category,
			Score:    result.Score,
			Matched:  result.Matched,
			Method:   method,
		})
	}
	return matches
}

// ResolveSingle picks one match for callers that need single-label semantics:
// highest score wins, equal scores break by lowest category id. Deterministic
// for a given category state.
func ResolveSingle(matches []Match) *Match {
	if len(matches) == 0 {
		return nil
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Score > best.Score || (m.Score == best.Score && m.Category.ID < best.Category.ID) {
			best = m
		}
	}
	return &best
}
