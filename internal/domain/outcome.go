package domain

import "time"

// OutcomeStatus tags the terminal state of one unit of work.
type OutcomeStatus string

const (
	// StatusSucceeded: the index was computed and the artifact persisted.
	StatusSucceeded OutcomeStatus = "succeeded"
	// StatusSkipped: a successful no-op, e.g. the field was not yet planted.
	// Deliberately not a failure so retry and alerting leave it alone.
	StatusSkipped OutcomeStatus = "skipped"
	// StatusFailed: an expected business failure (no cloud-free scene,
	// missing band asset) or an infrastructure failure within a step.
	StatusFailed OutcomeStatus = "failed"
)

// Outcome is the single structured result every unit of work terminates
// with. Business failures are values here, never errors escaping the engine
// boundary; only configuration faults are raised.
type Outcome struct {
	Key         PartitionKey  `json:"-"`
	Date        string        `json:"date"`
	FieldID     string        `json:"field_id"`
	Index       IndexKind     `json:"index"`
	Status      OutcomeStatus `json:"status"`
	Success     bool          `json:"success"`
	Computed    bool          `json:"computed"`
	Reason      string        `json:"reason,omitempty"`
	ArtifactKey string        `json:"artifact_key,omitempty"`
	ArtifactURI string        `json:"artifact_uri,omitempty"`
	CatalogKey  string        `json:"catalog_key,omitempty"`

	// PublishError records a best-effort catalog publication failure that
	// did not flip the overall result; the primary artifact is already
	// safely stored and publication can be repaired by re-running it alone.
	PublishError string `json:"publish_error,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// NewSkippedOutcome builds a successful no-op outcome with the given reason.
func NewSkippedOutcome(key PartitionKey, kind IndexKind, reason string) Outcome {
	return Outcome{
		Key:         key,
		Date:        key.Date,
		FieldID:     key.FieldID,
		Index:       kind,
		Status:      StatusSkipped,
		Success:     true,
		Computed:    false,
		Reason:      reason,
		ProcessedAt: Now(),
	}
}

// NewFailedOutcome builds a structured failure outcome with the given reason.
func NewFailedOutcome(key PartitionKey, kind IndexKind, reason string) Outcome {
	return Outcome{
		Key:         key,
		Date:        key.Date,
		FieldID:     key.FieldID,
		Index:       kind,
		Status:      StatusFailed,
		Success:     false,
		Computed:    false,
		Reason:      reason,
		ProcessedAt: Now(),
	}
}

// NewSucceededOutcome builds a success outcome pointing at the persisted
// artifact and, when publication succeeded, the catalog item.
func NewSucceededOutcome(key PartitionKey, kind IndexKind, artifactKey, artifactURI, catalogKey string) Outcome {
	return Outcome{
		Key:         key,
		Date:        key.Date,
		FieldID:     key.FieldID,
		Index:       kind,
		Status:      StatusSucceeded,
		Success:     true,
		Computed:    true,
		ArtifactKey: artifactKey,
		ArtifactURI: artifactURI,
		CatalogKey:  catalogKey,
		ProcessedAt: Now(),
	}
}
