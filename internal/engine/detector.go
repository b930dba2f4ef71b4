package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hostwatch/mailsift/internal/normalizer"
	"github.com/hostwatch/mailsift/pkg/models"
)

// History is the bounded view of previously processed emails the detector
// matches against
type History interface {
	FindEmailsByContentHash(ctx context.Context, hash string, excludeID int64) ([]models.InboundEmail, error)
	FindEmailsBySignature(ctx context.Context, signature string, excludeID int64) ([]models.InboundEmail, error)
	RecentEmailsBySender(ctx context.Context, sender string, since time.Time, excludeID int64, limit int) ([]models.InboundEmail, error)
}

// DetectorConfig tunes the similarity tier
type DetectorConfig struct {
	SimilarityThreshold float64       // minimum Jaccard ratio, default 0.90
	Window              time.Duration // receipt-time window for similarity candidates
	CandidateLimit      int           // cap on similarity candidates per email
}

// Detector decides whether an email duplicates a previously processed one.
// Tier order, first match wins: exact content hash, message signature, body
// similarity. The hash and signature tiers use indexed lookups and are not
// windowed; the window only bounds the similarity scan.
type Detector struct {
	history History
	norm    *normalizer.Normalizer
	cfg     DetectorConfig
	logger  *slog.Logger
}

// NewDetector creates a new duplicate detector
func NewDetector(history History, norm *normalizer.Normalizer, cfg DetectorConfig, logger *slog.Logger) *Detector {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.90
	}
	if cfg.Window <= 0 {
		cfg.Window = 7 * 24 * time.Hour
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = 100
	}
	return &Detector{
		history: history,
		norm:    norm,
		cfg:     cfg,
		logger:  logger.With("component", "detector"),
	}
}

// Detect returns at most one link marking the email as a duplicate of the
// earliest-received match, or nil when no tier matches
func (d *Detector) Detect(ctx context.Context, norm *models.NormalizedEmail) (*models.DuplicateLink, error) {
	// Tier 1: exact content hash
	candidates, err := d.history.FindEmailsByContentHash(ctx, norm.ContentHash, norm.EmailID)
	if err != nil {
		return nil, fmt.Errorf("content hash lookup: %w", err)
	}
	if primary := earliest(candidates); primary != nil {
		return &models.DuplicateLink{
			PrimaryEmailID:   primary.ID,
			DuplicateEmailID: norm.EmailID,
			SimilarityScore:  1.0,
			DuplicateType:    models.DuplicateExact,
			DetectionMethod:  models.DetectContentHash,
		}, nil
	}

	// Tier 2: message signature, defeats per-recipient broadcast variants
	if norm.MessageSignature != "" {
		candidates, err = d.history.FindEmailsBySignature(ctx, norm.MessageSignature, norm.EmailID)
		if err != nil {
			return nil, fmt.Errorf("signature lookup: %w", err)
		}
		if primary := earliest(candidates); primary != nil {
			return &models.DuplicateLink{
				PrimaryEmailID:   primary.ID,
				DuplicateEmailID: norm.EmailID,
				SimilarityScore:  1.0,
				DuplicateType:    models.DuplicateNearExact,
				DetectionMethod:  models.DetectSignature,
			}, nil
		}
	}

	// Tier 3: body similarity within the temporal window
	since := norm.ReceivedAt.Add(-d.cfg.Window)
	candidates, err = d.history.RecentEmailsBySender(ctx, norm.Sender, since, norm.EmailID, d.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("similarity candidate lookup: %w", err)
	}

	var best *models.InboundEmail
	var bestScore float64
	for i := range candidates {
		c := &candidates[i]
		candidateNorm := d.norm.Normalize(c)
		score := jaccard(norm.NormalizedBody, candidateNorm.NormalizedBody)
		if score < d.cfg.SimilarityThreshold {
			continue
		}
		if best == nil || score > bestScore ||
			(score == bestScore && c.ReceivedAt.Before(best.ReceivedAt)) {
			best = c
			bestScore = score
		}
	}
	if best != nil {
		return &models.DuplicateLink{
			PrimaryEmailID:   best.ID,
			DuplicateEmailID: norm.EmailID,
			SimilarityScore:  bestScore,
			DuplicateType:    models.DuplicateContentSimilar,
			DetectionMethod:  models.DetectSimilarity,
		}, nil
	}

	return nil, nil
}

// earliest returns the earliest-received candidate, which becomes the primary
func earliest(emails []models.InboundEmail) *models.InboundEmail {
	var primary *models.InboundEmail
	for i := range emails {
		if primary == nil || emails[i].ReceivedAt.Before(primary.ReceivedAt) {
			primary = &emails[i]
		}
	}
	return primary
}

// jaccard computes token-set similarity between two normalized bodies.
// Insensitive to reordering of boilerplate blocks and O(n) per pair.
func jaccard(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if _, ok := setB[token]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, token := range strings.Fields(text) {
		set[token] = struct{}{}
	}
	return set
}
