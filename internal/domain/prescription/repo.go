package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("prescription not found")

// Repository persists prescriptions together with their items. Create
// assigns the sequence-derived public ids (PRES-<n> for the prescription,
// med-<n> per item) and fills them into the passed value.
type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	// ListByPatient returns prescriptions newest first, items in position
	// order.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error)
}
