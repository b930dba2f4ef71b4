package suggest

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostwatch/mailsift/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func emailBatch(n int, subjectFmt, sender string) []models.InboundEmail {
	emails := make([]models.InboundEmail, 0, n)
	for i := 0; i < n; i++ {
		emails = append(emails, models.InboundEmail{
			ID:         int64(i + 1),
			Sender:     sender,
			Subject:    fmt.Sprintf(subjectFmt, i),
			BodyText:   "some body text",
			ReceivedAt: time.Now(),
		})
	}
	return emails
}

func TestGenerateSubjectCluster(t *testing.T) {
	g := New(5, testLogger())

	emails := emailBatch(6, "Insurance claim update for case %d", "claims@insurco.example.com")
	suggestions := g.Generate(emails)

	require.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, models.SuggestionPending, s.Status)
	assert.Equal(t, "insurance_notification", s.SuggestedName)
	assert.Equal(t, 1.0, s.SuggestionConfidence)

	var analysis models.SuggestionAnalysis
	require.NoError(t, json.Unmarshal([]byte(s.PatternAnalysis), &analysis))
	assert.Equal(t, models.PatternSubject, analysis.PatternType)
	assert.Equal(t, "insurance claim update for case", analysis.Fragment)
	assert.Equal(t, 6, analysis.GroupSize)
	assert.Equal(t, 1.0, analysis.MatchRatio)

	var ids []int64
	require.NoError(t, json.Unmarshal([]byte(s.SampleEmailIDs), &ids))
	assert.Len(t, ids, 6)
}

func TestGenerateSmallGroupIgnored(t *testing.T) {
	g := New(5, testLogger())

	emails := emailBatch(3, "Insurance claim update for case %d", "claims@insurco.example.com")
	assert.Empty(t, g.Generate(emails), "groups below the minimum size are not evidence")
}

func TestGenerateNoSharedStructure(t *testing.T) {
	g := New(5, testLogger())

	subjects := []string{
		"Totally different one",
		"Another unrelated thing",
		"Yet more variety here",
		"Nothing in common",
		"Final random subject",
	}
	emails := make([]models.InboundEmail, 0, len(subjects))
	for i, s := range subjects {
		emails = append(emails, models.InboundEmail{
			ID:       int64(i + 1),
			Sender:   fmt.Sprintf("sender%d@host%d.example.com", i, i),
			Subject:  s,
			BodyText: "body",
		})
	}
	assert.Empty(t, g.Generate(emails))
}

func TestGenerateSenderDomainFallback(t *testing.T) {
	g := New(5, testLogger())

	// Subjects share nothing, but every email comes from the same domain
	subjects := []string{
		"Totally different one",
		"Another unrelated thing",
		"Yet more variety here",
		"Nothing in common",
		"Final random subject",
	}
	emails := make([]models.InboundEmail, 0, len(subjects))
	for i, s := range subjects {
		emails = append(emails, models.InboundEmail{
			ID:       int64(i + 1),
			Sender:   fmt.Sprintf("agent%d@alerts.example.com", i),
			Subject:  s,
			BodyText: "body",
		})
	}

	suggestions := g.Generate(emails)
	require.Len(t, suggestions, 1)
	s := suggestions[0]
	assert.Equal(t, "alerts_notifications", s.SuggestedName)
	assert.Equal(t, 0.70, s.SuggestionConfidence)

	var analysis models.SuggestionAnalysis
	require.NoError(t, json.Unmarshal([]byte(s.PatternAnalysis), &analysis))
	assert.Equal(t, models.PatternSender, analysis.PatternType)
	assert.Equal(t, "alerts.example.com", analysis.Fragment)
}

func TestGenerateSubjectClusterExcludedFromDomainPass(t *testing.T) {
	g := New(5, testLogger())

	emails := emailBatch(6, "Insurance claim update for case %d", "claims@insurco.example.com")
	suggestions := g.Generate(emails)

	require.Len(t, suggestions, 1, "emails claimed by a subject cluster must not re-cluster by domain")
}

func TestGenerateSampleCap(t *testing.T) {
	g := New(5, testLogger())

	emails := emailBatch(40, "Insurance claim update for case %d", "claims@insurco.example.com")
	suggestions := g.Generate(emails)
	require.Len(t, suggestions, 1)

	var ids []int64
	require.NoError(t, json.Unmarshal([]byte(suggestions[0].SampleEmailIDs), &ids))
	assert.Len(t, ids, 20)
}

func TestGenerateEmptyInput(t *testing.T) {
	g := New(5, testLogger())
	assert.Empty(t, g.Generate(nil))
}
