package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("grant not found")

// Repository persists grants. At most one row exists per (doctor, patient)
// pair; the storage layer's unique constraint is the source of truth and
// InsertIfAbsent treats a constraint hit as "already exists".
type Repository interface {
	// InsertIfAbsent inserts a pending grant unless one already exists for
	// the pair. Returns whether a row was inserted.
	InsertIfAbsent(ctx context.Context, g *Grant) (bool, error)
	// SetStatus updates the grant's status for the pair. Returns whether a
	// row was updated; no row is not an error.
	SetStatus(ctx context.Context, doctorID, patientID uuid.UUID, status string) (bool, error)
	Find(ctx context.Context, doctorID, patientID uuid.UUID) (*Grant, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Grant, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, status string) ([]*Grant, error)
}
