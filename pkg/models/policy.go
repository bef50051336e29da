package models

import "time"

// ArchivePolicy is one row of the archive policy table, keyed by content
// class. Mutated only through the engine's administrative SetPolicy op.
type ArchivePolicy struct {
	ContentClass string `json:"content_class"`

	// Thresholds a finalized submission must clear.
	MinReputation     int     `json:"min_reputation"`      // Originator reputation floor
	MinValidationScore float64 `json:"min_validation_score"` // Final trust score floor

	// Hints forwarded to the storage collaborator.
	StorageDuration time.Duration `json:"storage_duration"`
	AutoArchive     bool          `json:"auto_archive"`     // Dispatch archival on finalization
	CommunityFunded bool          `json:"community_funded"` // Debit the community pool
}
