package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"github.com/hostwatch/mailsift/internal/database"
	"github.com/hostwatch/mailsift/pkg/models"
)

// Stats summarizes one ingest pass
type Stats struct {
	Ingested int
	Skipped  int
	Errors   int
}

// Ingestor reads raw RFC 5322 messages from a drop directory and stores them
// as pending emails. Files whose Message-ID was seen before are skipped, so
// re-running over the same directory is safe.
type Ingestor struct {
	db     *database.DB
	logger *slog.Logger
}

// New creates a new ingestor
func New(db *database.DB, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		db:     db,
		logger: logger.With("component", "ingest"),
	}
}

// IngestDir parses every .eml file under dir and inserts the result. Parse
// failures are logged and counted, they never abort the pass.
func (ing *Ingestor) IngestDir(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read ingest dir: %w", err)
	}

	stats := &Stats{}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".eml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			ing.logger.Error("failed to open message file", "path", path, "error", err)
			stats.Errors++
			continue
		}

		email, err := Parse(f)
		f.Close()
		if err != nil {
			ing.logger.Warn("failed to parse message file", "path", path, "error", err)
			stats.Errors++
			continue
		}

		err = ing.db.CreateEmail(ctx, email)
		switch {
		case errors.Is(err, database.ErrAlreadyExists):
			stats.Skipped++
		case err != nil:
			ing.logger.Error("failed to store email", "path", path, "error", err)
			stats.Errors++
		default:
			stats.Ingested++
		}
	}

	ing.logger.Info("ingest complete",
		"dir", dir,
		"ingested", stats.Ingested,
		"skipped", stats.Skipped,
		"errors", stats.Errors,
	)
	return stats, nil
}

// Parse reads one RFC 5322 message into a pending InboundEmail
func Parse(r io.Reader) (*models.InboundEmail, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	email := &models.InboundEmail{
		Status:     models.StatusPending,
		ReceivedAt: time.Now(),
	}

	if subject, err := mr.Header.Subject(); err == nil {
		email.Subject = subject
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		email.ReceivedAt = date
	}
	if id, err := mr.Header.MessageID(); err == nil {
		email.MessageID = id
	}
	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		email.Sender = from[0].Address
	}
	if email.Sender == "" {
		return nil, fmt.Errorf("message has no parseable From address")
	}

	// Read parts, keeping the first text/plain and text/html bodies
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken part should not discard what was already read
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}

			if strings.HasPrefix(ct, "text/html") && email.BodyHTML == "" {
				email.BodyHTML = string(body)
			} else if strings.HasPrefix(ct, "text/plain") && email.BodyText == "" {
				email.BodyText = string(body)
			}
		}
	}

	if email.BodyText == "" && email.BodyHTML == "" {
		return nil, fmt.Errorf("message has no text or html body")
	}
	return email, nil
}
