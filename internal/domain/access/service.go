package access

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/medilog/medilog-api/internal/domain/identity"
)

// Service is the access workflow engine. All operations resolve public ids
// first and fail with NotFound before any mutation when either side is
// unknown.
type Service struct {
	identity *identity.Service
	grants   Repository
}

func NewService(ident *identity.Service, grants Repository) *Service {
	return &Service{identity: ident, grants: grants}
}

// Request inserts a pending grant for the pair unless any grant already
// exists. A repeat request is a successful no-op: in particular, a declined
// grant is NOT reset to pending. That is deliberate — the patient said no,
// and re-requesting does not reopen the question.
func (s *Service) Request(ctx context.Context, doctorPublicID, patientPublicID string) error {
	doctor, err := s.identity.GetDoctorByPublicID(ctx, doctorPublicID)
	if err != nil {
		return err
	}
	patient, err := s.identity.ResolvePatient(ctx, patientPublicID)
	if err != nil {
		return err
	}

	g := &Grant{
		DoctorID:             doctor.ID,
		PatientID:            patient.ID,
		DoctorName:           doctor.Name,
		DoctorSpecialization: doctor.Specialization,
		Status:               StatusPending,
	}
	_, err = s.grants.InsertIfAbsent(ctx, g)
	return err
}

// Approve sets the pair's grant to approved. When no grant exists the call
// succeeds without creating one (blind-update semantics).
func (s *Service) Approve(ctx context.Context, doctorPublicID, patientPublicID string) error {
	return s.setStatus(ctx, doctorPublicID, patientPublicID, StatusApproved)
}

// Decline sets the pair's grant to declined, with the same no-op semantics
// as Approve.
func (s *Service) Decline(ctx context.Context, doctorPublicID, patientPublicID string) error {
	return s.setStatus(ctx, doctorPublicID, patientPublicID, StatusDeclined)
}

func (s *Service) setStatus(ctx context.Context, doctorPublicID, patientPublicID, status string) error {
	doctor, err := s.identity.GetDoctorByPublicID(ctx, doctorPublicID)
	if err != nil {
		return err
	}
	patient, err := s.identity.ResolvePatient(ctx, patientPublicID)
	if err != nil {
		return err
	}
	_, err = s.grants.SetStatus(ctx, doctor.ID, patient.ID, status)
	return err
}

// HasApprovedAccess reports whether the doctor holds an approved grant for
// the patient. Pure read, no side effects.
func (s *Service) HasApprovedAccess(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	g, err := s.grants.Find(ctx, doctorID, patientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return g.Status == StatusApproved, nil
}

// ListForPatient returns all grants on the patient, oldest first.
func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*Grant, error) {
	return s.grants.ListByPatient(ctx, patientID)
}

// ApprovedPatientPublicIDs returns the public ids of every patient the
// doctor currently follows.
func (s *Service) ApprovedPatientPublicIDs(ctx context.Context, doctorID uuid.UUID) ([]string, error) {
	grants, err := s.grants.ListByDoctor(ctx, doctorID, StatusApproved)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(grants))
	for _, g := range grants {
		p, err := s.identity.GetPatientByID(ctx, g.PatientID)
		if err != nil {
			// Pair rows cascade-delete with their patient; a lookup miss
			// here means a concurrent delete, not corruption.
			continue
		}
		ids = append(ids, p.PublicID)
	}
	return ids, nil
}

// GrantDoctorPublicID resolves the doctor public id for a grant, for
// serialization in the patient's request list.
func (s *Service) GrantDoctorPublicID(ctx context.Context, g *Grant) (string, error) {
	d, err := s.identity.GetDoctorByID(ctx, g.DoctorID)
	if err != nil {
		return "", err
	}
	return d.PublicID, nil
}
