package engine

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/hostwatch/mailsift/pkg/models"
)

// ScoreResult is the outcome of scoring one category against one email
type ScoreResult struct {
	Score   float64
	Matched []models.CategoryPattern
}

// Scorer evaluates a category's stored patterns against a normalized email.
// Compiled regexes are cached across emails within a batch.
type Scorer struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[int64]*compiledPattern
}

type compiledPattern struct {
	source string
	regex  *regexp.Regexp // nil when the stored regex failed to compile
}

// NewScorer creates a new pattern scorer
func NewScorer(logger *slog.Logger) *Scorer {
	return &Scorer{
		logger: logger.With("component", "scorer"),
		cache:  make(map[int64]*compiledPattern),
	}
}

// Score tests every active pattern against its field and sums the weights of
// the ones that match, capped at 1.0. A malformed stored regex is skipped and
// contributes nothing; it never aborts the batch.
func (s *Scorer) Score(norm *models.NormalizedEmail, patterns []models.CategoryPattern) ScoreResult {
	var result ScoreResult
	for _, p := range patterns {
		if !p.IsActive || p.Weight <= 0 {
			continue
		}

		re := s.compile(p)
		if re == nil {
			continue
		}

		if re.MatchString(fieldText(norm, p.PatternType)) {
			result.Score += p.Weight
			result.Matched = append(result.Matched, p)
		}
	}
	if result.Score > 1.0 {
		result.Score = 1.0
	}
	return result
}

// compile returns the cached compiled regex for a pattern, recompiling when
// the stored source changed
func (s *Scorer) compile(p models.CategoryPattern) *regexp.Regexp {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[p.ID]; ok && cached.source == p.PatternRegex {
		return cached.regex
	}

	// Contains semantics, case-insensitive, dot matches newline
	re, err := regexp.Compile(`(?is)` + p.PatternRegex)
	if err != nil {
		s.logger.Warn("skipping malformed pattern",
			"pattern_id", p.ID,
			"category_id", p.CategoryID,
			"regex", p.PatternRegex,
			"error", err,
		)
		re = nil
	}
	s.cache[p.ID] = &compiledPattern{source: p.PatternRegex, regex: re}
	return re
}

// fieldText resolves a pattern type to the normalized field it matches
func fieldText(norm *models.NormalizedEmail, patternType string) string {
	switch patternType {
	case models.PatternSender:
		return norm.NormalizedSender
	case models.PatternSubject:
		return norm.NormalizedSubject
	case models.PatternBody:
		return norm.NormalizedBody
	case models.PatternCombined:
		return strings.Join([]string{norm.NormalizedSender, norm.NormalizedSubject, norm.NormalizedBody}, " ")
	default:
		return ""
	}
}
