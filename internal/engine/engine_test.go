package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostwatch/mailsift/internal/database"
	"github.com/hostwatch/mailsift/pkg/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTestEngine(t *testing.T, db *database.DB) *Engine {
	t.Helper()
	return New(db, Config{BatchSize: 50}, discardLogger())
}

func addCategory(t *testing.T, db *database.DB, name string, threshold float64, autoAssign bool, patterns ...models.CategoryPattern) *models.Category {
	t.Helper()
	ctx := context.Background()
	c := &models.Category{
		Name:                name,
		ConfidenceThreshold: threshold,
		AutoAssign:          autoAssign,
		IsActive:            true,
	}
	require.NoError(t, db.CreateCategory(ctx, c))
	for i := range patterns {
		patterns[i].CategoryID = c.ID
		patterns[i].IsActive = true
		require.NoError(t, db.CreatePattern(ctx, &patterns[i]))
	}
	return c
}

func addEmail(t *testing.T, db *database.DB, messageID, sender, subject, body string, receivedAt time.Time) *models.InboundEmail {
	t.Helper()
	e := &models.InboundEmail{
		MessageID:  messageID,
		Sender:     sender,
		Subject:    subject,
		BodyText:   body,
		ReceivedAt: receivedAt,
	}
	require.NoError(t, db.CreateEmail(context.Background(), e))
	return e
}

func TestEvaluateAssignsCategory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cat := addCategory(t, db, "guest_messages", 0.90, true,
		models.CategoryPattern{PatternType: models.PatternSubject, PatternRegex: "has sent you a message about your", Weight: 1.0})

	email := addEmail(t, db, "<m1@turo.com>", "noreply@mail.turo.com",
		"Sarah has sent you a message about your Tesla",
		"Sarah has sent you a message about your Tesla Model 3.\n\nIs it available?\nReply to respond.",
		time.Now())

	result, err := newTestEngine(t, db).Evaluate(ctx, email)
	require.NoError(t, err)
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, cat.ID, result.Assignments[0].CategoryID)
	assert.Equal(t, 1.0, result.Assignments[0].ConfidenceScore)
	assert.Equal(t, models.MethodAuto, result.Assignments[0].Method)
	assert.False(t, result.Uncategorized)

	stored, err := db.GetEmailByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, stored.Status)
	assert.NotEmpty(t, stored.ContentHash)
	assert.NotEmpty(t, stored.MessageSignature)
}

func TestEvaluateIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addCategory(t, db, "trip_bookings", 0.85, true,
		models.CategoryPattern{PatternType: models.PatternBody, PatternRegex: "trip is booked", Weight: 0.90})

	email := addEmail(t, db, "<m1@turo.com>", "noreply@mail.turo.com",
		"Booked!", "Your trip is booked for next weekend.", time.Now())

	eng := newTestEngine(t, db)
	_, err := eng.Evaluate(ctx, email)
	require.NoError(t, err)
	_, err = eng.Evaluate(ctx, email)
	require.NoError(t, err)

	assignments, err := db.ListAssignmentsByEmail(ctx, email.ID)
	require.NoError(t, err)
	assert.Len(t, assignments, 1, "re-evaluation must not duplicate assignments")
}

func TestEvaluateUncategorized(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addCategory(t, db, "payments_payouts", 0.80, true,
		models.CategoryPattern{PatternType: models.PatternBody, PatternRegex: "payout", Weight: 0.45})

	email := addEmail(t, db, "<m1@turo.com>", "noreply@mail.turo.com",
		"Newsletter", "Here is what's new on the marketplace this month.", time.Now())

	result, err := newTestEngine(t, db).Evaluate(ctx, email)
	require.NoError(t, err)
	assert.True(t, result.Uncategorized)
	assert.Empty(t, result.Assignments)

	stored, err := db.GetEmailByID(ctx, email.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, stored.Status,
		"uncategorized emails still count as processed")
}

func TestEvaluateDuplicateDifferentSubjects(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	eng := newTestEngine(t, db)

	body := "Sarah has a question about the pickup location for her upcoming trip."
	first := addEmail(t, db, "<m1@turo.com>", "noreply@mail.turo.com",
		"Sarah sent you a message", body, time.Now().Add(-time.Hour))
	second := addEmail(t, db, "<m2@turo.com>", "noreply@mail.turo.com",
		"Re: Your reservation #4521", body, time.Now())

	_, err := eng.Evaluate(ctx, first)
	require.NoError(t, err)

	result, err := eng.Evaluate(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, result.Duplicate)
	assert.Equal(t, first.ID, result.Duplicate.PrimaryEmailID)
	assert.Equal(t, models.DuplicateExact, result.Duplicate.DuplicateType)
	assert.Empty(t, result.Assignments, "duplicates are not categorized")

	stored, err := db.GetEmailByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDuplicate, stored.Status)

	link, err := db.GetDuplicateLink(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, link.PrimaryEmailID)
}

func TestEvaluateSignatureDuplicateAcrossBoilerplate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	eng := newTestEngine(t, db)

	first := addEmail(t, db, "<m1@turo.com>", "noreply@mail.turo.com", "New message",
		"Sarah has sent you a message about your Tesla Model 3.\n\n"+
			"Can I extend the trip by one day?\n"+
			"Reply within 24 hours. Sent to host-11@example.com with footer A and tracking pixel one.",
		time.Now().Add(-time.Hour))
	second := addEmail(t, db, "<m2@turo.com>", "noreply@mail.turo.com", "New message",
		"Sarah has sent you a message about your Tesla Model 3.\n\n"+
			"Can I extend the trip by one day?\n"+
			"Reply soon please. Delivered to host-22@example.org with a completely different footer B.",
		time.Now())

	_, err := eng.Evaluate(ctx, first)
	require.NoError(t, err)

	result, err := eng.Evaluate(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, result.Duplicate)
	assert.Equal(t, models.DetectSignature, result.Duplicate.DetectionMethod)
	assert.Equal(t, models.DuplicateNearExact, result.Duplicate.DuplicateType)
}

func TestProcessBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	addCategory(t, db, "trip_bookings", 0.85, true,
		models.CategoryPattern{PatternType: models.PatternBody, PatternRegex: "trip is booked", Weight: 0.90})

	base := time.Now().Add(-time.Hour)
	addEmail(t, db, "<m1@turo.com>", "noreply@mail.turo.com", "Booked", "Your trip is booked.", base)
	addEmail(t, db, "<m2@turo.com>", "noreply@mail.turo.com", "Booked again", "Your trip is booked.", base.Add(time.Minute))
	addEmail(t, db, "<m3@turo.com>", "noreply@mail.turo.com", "Other", "Something else entirely, no rules match this.", base.Add(2*time.Minute))

	stats, err := newTestEngine(t, db).ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.Categorized)
	assert.Equal(t, 1, stats.Duplicates)
	assert.Equal(t, 1, stats.Uncategorized)
	assert.Zero(t, stats.Errors)

	// Nothing pending left, a second pass is a no-op
	stats, err = newTestEngine(t, db).ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)
}

func TestProcessBatchHonorsCancellation(t *testing.T) {
	db := newTestDB(t)
	addEmail(t, db, "<m1@turo.com>", "noreply@mail.turo.com", "x", "body", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats, err := newTestEngine(t, db).ProcessBatch(ctx)
	require.ErrorIs(t, err, context.Canceled)
	if stats != nil {
		assert.Zero(t, stats.Processed)
	}
}
