package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hostwatch/mailsift/internal/database"
	"github.com/hostwatch/mailsift/internal/normalizer"
	"github.com/hostwatch/mailsift/pkg/models"
)

// Store is what the engine needs from the storage collaborator. Implemented
// by *database.DB.
type Store interface {
	History

	ListActiveCategories(ctx context.Context) ([]models.CategoryWithPatterns, error)
	ListPendingEmails(ctx context.Context, limit int) ([]models.InboundEmail, error)
	SetEmailFingerprint(ctx context.Context, id int64, contentHash, signature string) error
	UpdateEmailStatus(ctx context.Context, id int64, status string) error
	CreateAssignment(ctx context.Context, a *models.CategoryAssignment) error
	CreateDuplicateLink(ctx context.Context, l *models.DuplicateLink) error
}

// Config tunes the engine
type Config struct {
	Detector  DetectorConfig
	BatchSize int
}

// Result is the outcome of evaluating one email
type Result struct {
	EmailID       int64
	Assignments   []models.CategoryAssignment
	Duplicate     *models.DuplicateLink
	Uncategorized bool // no category reached its threshold
}

// BatchStats summarizes one batch pass
type BatchStats struct {
	Processed     int
	Categorized   int
	Duplicates    int
	Uncategorized int
	Errors        int
}

// Engine evaluates inbound emails for category assignment and duplicate
// detection. Pure computation over materialized data; all I/O goes through
// the Store.
type Engine struct {
	store    Store
	norm     *normalizer.Normalizer
	scorer   *Scorer
	assigner *Assigner
	detector *Detector
	cfg      Config
	logger   *slog.Logger
}

// New creates a new engine
func New(store Store, cfg Config, logger *slog.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	norm := normalizer.New()
	scorer := NewScorer(logger)
	return &Engine{
		store:    store,
		norm:     norm,
		scorer:   scorer,
		assigner: NewAssigner(scorer, logger),
		detector: NewDetector(store, norm, cfg.Detector, logger),
		cfg:      cfg,
		logger:   logger.With("component", "engine"),
	}
}

// Evaluate runs one email through duplicate detection and categorization.
// Idempotent: re-running against an already-evaluated email changes nothing,
// conflicting inserts are treated as already applied.
func (e *Engine) Evaluate(ctx context.Context, email *models.InboundEmail) (*Result, error) {
	norm := e.norm.Normalize(email)

	// Persist the fingerprint first so later passes can match against this
	// email even if this pass is aborted below
	if err := e.store.SetEmailFingerprint(ctx, email.ID, norm.ContentHash, norm.MessageSignature); err != nil {
		return nil, fmt.Errorf("persist fingerprint: %w", err)
	}

	result := &Result{EmailID: email.ID}

	link, err := e.detector.Detect(ctx, norm)
	if err != nil {
		return nil, fmt.Errorf("duplicate detection: %w", err)
	}
	if link != nil {
		err := e.store.CreateDuplicateLink(ctx, link)
		if err != nil && !errors.Is(err, database.ErrAlreadyExists) {
			return nil, fmt.Errorf("record duplicate link: %w", err)
		}
		result.Duplicate = link
		e.logger.Info("duplicate detected",
			"email_id", email.ID,
			"primary_email_id", link.PrimaryEmailID,
			"type", link.DuplicateType,
			"method", link.DetectionMethod,
			"similarity", link.SimilarityScore,
		)
		// Duplicates skip categorization; the primary carries the category
		return result, nil
	}

	categories, err := e.store.ListActiveCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}

	matches := e.assigner.Assign(norm, categories)
	for _, m := range matches {
		assignment := &models.CategoryAssignment{
			EmailID:         email.ID,
			CategoryID:      m.Category.ID,
			ConfidenceScore: m.Score,
			Method:          m.Method,
		}
		err := e.store.CreateAssignment(ctx, assignment)
		if err != nil && !errors.Is(err, database.ErrAlreadyExists) {
			return nil, fmt.Errorf("record assignment: %w", err)
		}
		result.Assignments = append(result.Assignments, *assignment)
		e.logger.Info("category assigned",
			"email_id", email.ID,
			"category", m.Category.Name,
			"score", m.Score,
			"method", m.Method,
		)
	}
	result.Uncategorized = len(matches) == 0

	if err := e.store.UpdateEmailStatus(ctx, email.ID, models.StatusProcessed); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return result, nil
}

// ProcessBatch evaluates pending emails oldest-first. Cancellation is checked
// between emails; an aborted batch leaves no partial state because each
// email's evaluation is independent and idempotent.
func (e *Engine) ProcessBatch(ctx context.Context) (*BatchStats, error) {
	emails, err := e.store.ListPendingEmails(ctx, e.cfg.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending emails: %w", err)
	}

	stats := &BatchStats{}
	started := time.Now()
	for i := range emails {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		result, err := e.Evaluate(ctx, &emails[i])
		if err != nil {
			e.logger.Error("failed to evaluate email", "email_id", emails[i].ID, "error", err)
			stats.Errors++
			continue
		}

		stats.Processed++
		switch {
		case result.Duplicate != nil:
			stats.Duplicates++
		case len(result.Assignments) > 0:
			stats.Categorized++
		default:
			stats.Uncategorized++
		}
	}

	if stats.Processed > 0 {
		e.logger.Info("batch complete",
			"processed", stats.Processed,
			"categorized", stats.Categorized,
			"duplicates", stats.Duplicates,
			"uncategorized", stats.Uncategorized,
			"errors", stats.Errors,
			"elapsed", time.Since(started),
		)
	}
	return stats, nil
}
