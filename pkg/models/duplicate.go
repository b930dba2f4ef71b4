package models

import "time"

// Duplicate types, most specific first
const (
	DuplicateExact          = "exact"
	DuplicateNearExact      = "near_exact"
	DuplicateContentSimilar = "content_similar"
)

// Detection methods
const (
	DetectContentHash = "content_hash_no_subject"
	DetectSignature   = "turo_signature"
	DetectSimilarity  = "body_similarity"
)

// DuplicateLink marks an email as a duplicate of an earlier primary email.
// Directed: primary is the earliest-received copy.
type DuplicateLink struct {
	ID               int64     `db:"id"`
	PrimaryEmailID   int64     `db:"primary_email_id"`
	DuplicateEmailID int64     `db:"duplicate_email_id"`
	SimilarityScore  float64   `db:"similarity_score"`
	DuplicateType    string    `db:"duplicate_type"`
	DetectionMethod  string    `db:"detection_method"`
	CreatedAt        time.Time `db:"created_at"`
}
