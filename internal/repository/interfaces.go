package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/careops/measuresync/internal/domain"
)

// MeasureRepository is the persistence collaborator of the import pipeline: it
// reads the current patient/measure snapshot and applies a committed changeset.
// Transactional semantics belong to the implementation.
type MeasureRepository interface {
	// Snapshot reads the persisted patients and measure records scoped to one
	// owner, or the whole panel when ownerID is uuid.Nil.
	Snapshot(ctx context.Context, ownerID uuid.UUID) (domain.Snapshot, error)
	// ApplyChangeSet applies every entry in one transaction. Reassignments are
	// applied as patient owner updates.
	ApplyChangeSet(ctx context.Context, changeset domain.ChangeSet, reassignments []domain.PatientReassignment) error
	// ListOwners enumerates the owning physicians.
	ListOwners(ctx context.Context) ([]domain.Owner, error)
}

// ImportAuditRepository records who triggered ingestion and commit actions.
type ImportAuditRepository interface {
	Record(ctx context.Context, entry domain.ImportAuditEntry) error
	List(ctx context.Context, systemID string, fileName string, limit int, offset int) ([]domain.ImportAuditEntry, error)
}
