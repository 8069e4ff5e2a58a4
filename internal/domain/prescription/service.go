package prescription

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medilog/medilog-api/internal/domain/access"
	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/platform/apperror"
	"github.com/medilog/medilog-api/internal/platform/db"
)

type Service struct {
	identity *identity.Service
	access   *access.Service
	repo     Repository
	tx       db.TxRunner
}

func NewService(ident *identity.Service, acc *access.Service, repo Repository, tx db.TxRunner) *Service {
	return &Service{identity: ident, access: acc, repo: repo, tx: tx}
}

// Create authors a prescription for the patient on behalf of the doctor.
// The doctor must hold an approved access grant; a pending or declined
// grant, or none at all, is rejected the same way.
func (s *Service) Create(ctx context.Context, patientRef, doctorPublicID string, in CreateInput) (*Prescription, error) {
	patient, err := s.identity.ResolvePatient(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	doctor, err := s.identity.GetDoctorByPublicID(ctx, doctorPublicID)
	if err != nil {
		return nil, err
	}

	ok, err := s.access.HasApprovedAccess(ctx, doctor.ID, patient.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Unauthorized("doctor does not have approved access to this patient")
	}

	if len(in.Items) == 0 {
		return nil, apperror.BadRequest("at least one medicine is required")
	}
	items := make([]Item, 0, len(in.Items))
	for _, it := range in.Items {
		if strings.TrimSpace(it.BrandName) == "" || strings.TrimSpace(it.GenericName) == "" {
			return nil, apperror.BadRequest("brand name and generic name are required for every medicine")
		}
		items = append(items, Item{
			BrandName:   it.BrandName,
			GenericName: it.GenericName,
			Strength:    it.Strength,
			Dosage:      it.Dosage,
			Frequency:   it.Frequency,
			Duration:    it.Duration,
			Notes:       it.Notes,
		})
	}

	p := &Prescription{
		PatientID:            patient.ID,
		DoctorID:             doctor.ID,
		DoctorPublicID:       doctor.PublicID,
		DoctorName:           doctor.Name,
		DoctorSpecialization: doctor.Specialization,
		FollowUp:             in.FollowUp,
		Investigations:       in.Investigations,
		Advice:               in.Advice,
		Items:                items,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListByPatient returns the patient's prescriptions, newest first.
func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
