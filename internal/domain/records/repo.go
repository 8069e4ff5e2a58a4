package records

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("record not found")

// MedicalRecordRepository persists medical records. Create assigns the
// sequence-derived REC-<n> public id; fileData may be nil when the record
// has no attachment.
type MedicalRecordRepository interface {
	Create(ctx context.Context, rec *MedicalRecord, fileData []byte) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	// GetFile returns the record and its blob by public id. ErrNotFound when
	// the record does not exist or carries no file.
	GetFile(ctx context.Context, publicID string) (*MedicalRecord, []byte, error)
}

// PrescriptionRecordRepository is the same contract for prescription
// records, with PR-<n> public ids.
type PrescriptionRecordRepository interface {
	Create(ctx context.Context, rec *PrescriptionRecord, fileData []byte) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PrescriptionRecord, error)
	GetFile(ctx context.Context, publicID string) (*PrescriptionRecord, []byte, error)
}
