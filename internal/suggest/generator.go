package suggest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hostwatch/mailsift/internal/normalizer"
	"github.com/hostwatch/mailsift/pkg/models"
)

const (
	// groupKeyWords is how many leading subject words form a cluster key
	groupKeyWords = 3
	// minFragmentWords is the minimum shared prefix length worth proposing
	minFragmentWords = 2
	// maxSampleIDs caps the sample list attached to a suggestion
	maxSampleIDs = 20
	// domainConfidence is the baseline confidence for sender-domain groups,
	// which are structurally weaker evidence than shared subject text
	domainConfidence = 0.70
)

// Words too generic to name a category after
var stopWords = map[string]struct{}{
	"has": {}, "sent": {}, "you": {}, "message": {}, "about": {}, "your": {},
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "this": {},
	"that": {}, "have": {}, "are": {}, "was": {}, "will": {}, "can": {},
	"url": {}, "email": {}, "amount": {}, "date": {}, "time": {}, "phone": {},
}

// Generator clusters uncategorized emails by shared structure and proposes
// new category definitions for human review. It never creates a category.
type Generator struct {
	norm     *normalizer.Normalizer
	minGroup int
	logger   *slog.Logger
}

// New creates a new suggestion generator
func New(minGroup int, logger *slog.Logger) *Generator {
	if minGroup < 2 {
		minGroup = 5
	}
	return &Generator{
		norm:     normalizer.New(),
		minGroup: minGroup,
		logger:   logger.With("component", "suggest"),
	}
}

// Generate proposes category suggestions for a batch of uncategorized
// emails. Groups below the minimum size or without a coherent shared
// fragment are silently dropped; that is insufficient evidence, not an error.
func (g *Generator) Generate(emails []models.InboundEmail) []models.CategorySuggestion {
	if len(emails) == 0 {
		return nil
	}

	normalized := make([]*models.NormalizedEmail, len(emails))
	for i := range emails {
		normalized[i] = g.norm.Normalize(&emails[i])
	}

	var suggestions []models.CategorySuggestion
	grouped := make(map[int64]bool)

	// Pass 1: cluster by leading normalized-subject words
	for _, group := range groupBy(normalized, subjectKey) {
		if len(group) < g.minGroup {
			continue
		}
		if s := g.subjectSuggestion(group); s != nil {
			suggestions = append(suggestions, *s)
			for _, member := range group {
				grouped[member.EmailID] = true
			}
		}
	}

	// Pass 2: cluster the remainder by sender domain
	var rest []*models.NormalizedEmail
	for _, n := range normalized {
		if !grouped[n.EmailID] {
			rest = append(rest, n)
		}
	}
	for _, group := range groupBy(rest, senderDomain) {
		if len(group) < g.minGroup {
			continue
		}
		if s := g.domainSuggestion(group); s != nil {
			suggestions = append(suggestions, *s)
		}
	}

	g.logger.Info("suggestion generation complete",
		"emails", len(emails),
		"suggestions", len(suggestions),
	)
	return suggestions
}

// subjectSuggestion synthesizes a suggestion from a group sharing leading
// subject words. Confidence is the fraction of members the synthesized
// pattern actually matches.
func (g *Generator) subjectSuggestion(group []*models.NormalizedEmail) *models.CategorySuggestion {
	fragment := commonWordPrefix(group)
	if len(strings.Fields(fragment)) < minFragmentWords {
		return nil
	}

	pattern := regexp.QuoteMeta(fragment)
	re, err := regexp.Compile(`(?i)` + pattern)
	if err != nil {
		return nil
	}

	matched := 0
	for _, n := range group {
		if re.MatchString(n.NormalizedSubject) {
			matched++
		}
	}
	ratio := float64(matched) / float64(len(group))

	analysis := models.SuggestionAnalysis{
		PatternType: models.PatternSubject,
		Fragment:    fragment,
		Regex:       pattern,
		MatchRatio:  ratio,
		GroupSize:   len(group),
	}
	return g.build(group, analysis, suggestName(fragment), ratio)
}

// domainSuggestion proposes a sender-domain category for groups with no
// shared subject structure
func (g *Generator) domainSuggestion(group []*models.NormalizedEmail) *models.CategorySuggestion {
	domain := senderDomain(group[0])
	if domain == "" {
		return nil
	}

	analysis := models.SuggestionAnalysis{
		PatternType: models.PatternSender,
		Fragment:    domain,
		Regex:       regexp.QuoteMeta(domain),
		MatchRatio:  1.0,
		GroupSize:   len(group),
	}
	name := strings.SplitN(domain, ".", 2)[0] + "_notifications"
	return g.build(group, analysis, name, domainConfidence)
}

func (g *Generator) build(group []*models.NormalizedEmail, analysis models.SuggestionAnalysis, name string, confidence float64) *models.CategorySuggestion {
	ids := make([]int64, 0, len(group))
	for _, n := range group {
		ids = append(ids, n.EmailID)
		if len(ids) == maxSampleIDs {
			break
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	sampleJSON, err := json.Marshal(ids)
	if err != nil {
		return nil
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return nil
	}

	return &models.CategorySuggestion{
		SuggestedName:        name,
		Description:          fmt.Sprintf("Auto-suggested category based on %d similar emails", len(group)),
		SampleEmailIDs:       string(sampleJSON),
		PatternAnalysis:      string(analysisJSON),
		SuggestionConfidence: confidence,
		Status:               models.SuggestionPending,
	}
}

// groupBy buckets emails by a key function, skipping empty keys
func groupBy(emails []*models.NormalizedEmail, key func(*models.NormalizedEmail) string) map[string][]*models.NormalizedEmail {
	groups := make(map[string][]*models.NormalizedEmail)
	for _, n := range emails {
		k := key(n)
		if k == "" {
			continue
		}
		groups[k] = append(groups[k], n)
	}
	return groups
}

// subjectKey is the volatile-stripped leading words of the subject
func subjectKey(n *models.NormalizedEmail) string {
	subject := n.NormalizedSubject
	words := strings.Fields(subject)
	if len(words) > groupKeyWords {
		words = words[:groupKeyWords]
	}
	return strings.Join(words, " ")
}

func senderDomain(n *models.NormalizedEmail) string {
	at := strings.LastIndex(n.NormalizedSender, "@")
	if at < 0 || at == len(n.NormalizedSender)-1 {
		return ""
	}
	return n.NormalizedSender[at+1:]
}

// commonWordPrefix finds the longest word-level prefix shared by every
// member's normalized subject
func commonWordPrefix(group []*models.NormalizedEmail) string {
	prefix := strings.Fields(group[0].NormalizedSubject)
	for _, n := range group[1:] {
		words := strings.Fields(n.NormalizedSubject)
		if len(words) < len(prefix) {
			prefix = prefix[:len(words)]
		}
		for i := range prefix {
			if prefix[i] != words[i] {
				prefix = prefix[:i]
				break
			}
		}
		if len(prefix) == 0 {
			break
		}
	}
	return strings.Join(prefix, " ")
}

// suggestName derives a category name from the most meaningful fragment
// word, falling back to a timestamped placeholder
func suggestName(fragment string) string {
	for _, word := range strings.Fields(fragment) {
		cleaned := strings.Trim(word, "[].,:;!?")
		if len(cleaned) < 3 {
			continue
		}
		if _, stop := stopWords[cleaned]; stop {
			continue
		}
		return cleaned + "_notification"
	}
	return "unknown_category_" + time.Now().Format("20060102_150405")
}
