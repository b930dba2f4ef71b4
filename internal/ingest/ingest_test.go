package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hostwatch/mailsift/internal/database"
	"github.com/hostwatch/mailsift/pkg/models"
)

const plainMessage = `From: Turo <noreply@mail.turo.com>
To: host@example.com
Subject: Sarah sent you a message
Date: Mon, 17 Mar 2025 10:30:00 -0700
Message-ID: <trip-4521-msg@mail.turo.com>
MIME-Version: 1.0
Content-Type: text/plain; charset=utf-8

Sarah has a question about the pickup location.
`

const htmlMessage = `From: Turo <noreply@mail.turo.com>
To: host@example.com
Subject: Trip booked!
Date: Mon, 17 Mar 2025 11:00:00 -0700
Message-ID: <trip-4522-booked@mail.turo.com>
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="b1"

--b1
Content-Type: text/plain; charset=utf-8

Your trip is booked.

--b1
Content-Type: text/html; charset=utf-8

<html><body><p>Your trip is booked.</p></body></html>

--b1--
`

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParsePlainMessage(t *testing.T) {
	email, err := Parse(strings.NewReader(crlf(plainMessage)))
	require.NoError(t, err)

	assert.Equal(t, "noreply@mail.turo.com", email.Sender)
	assert.Equal(t, "Sarah sent you a message", email.Subject)
	assert.Contains(t, email.BodyText, "Sarah has a question about the pickup location.")
	assert.Empty(t, email.BodyHTML)
	assert.Equal(t, models.StatusPending, email.Status)
	assert.Equal(t, 2025, email.ReceivedAt.Year())
	assert.NotEmpty(t, email.MessageID)
}

func TestParseMultipartMessage(t *testing.T) {
	email, err := Parse(strings.NewReader(crlf(htmlMessage)))
	require.NoError(t, err)

	assert.Contains(t, email.BodyText, "Your trip is booked.")
	assert.Contains(t, email.BodyHTML, "<p>Your trip is booked.</p>")
}

func TestParseNoFromAddress(t *testing.T) {
	msg := crlf("Subject: orphan\nContent-Type: text/plain\n\nbody\n")
	_, err := Parse(strings.NewReader(msg))
	assert.Error(t, err)
}

func TestIngestDir(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.eml"), []byte(crlf(plainMessage)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.eml"), []byte(crlf(htmlMessage)), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an email"), 0644))

	ing := New(db, testLogger())
	stats, err := ing.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Ingested)
	assert.Zero(t, stats.Skipped)
	assert.Zero(t, stats.Errors)

	pending, err := db.ListPendingEmails(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestIngestDirRerunSkipsKnownMessages(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.eml"), []byte(crlf(plainMessage)), 0644))

	ing := New(db, testLogger())
	_, err := ing.IngestDir(context.Background(), dir)
	require.NoError(t, err)

	stats, err := ing.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, stats.Ingested)
	assert.Equal(t, 1, stats.Skipped)
}

func TestIngestDirBadFileDoesNotAbort(t *testing.T) {
	db := newTestDB(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.eml"), []byte("not a message at all"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.eml"), []byte(crlf(plainMessage)), 0644))

	ing := New(db, testLogger())
	stats, err := ing.IngestDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Ingested)
	assert.Equal(t, 1, stats.Errors)
}

func TestIngestDirMissing(t *testing.T) {
	db := newTestDB(t)
	ing := New(db, testLogger())
	_, err := ing.IngestDir(context.Background(), "/nonexistent/path")
	assert.Error(t, err)
}
