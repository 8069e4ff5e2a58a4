// Package portal is the REST surface of the clinical records API. It
// composes the identity, access, prescription, records and assistant
// services into the views the web and mobile clients consume.
package portal

import (
	"context"

	"github.com/medilog/medilog-api/internal/domain/identity"
	"github.com/medilog/medilog-api/internal/domain/prescription"
	"github.com/medilog/medilog-api/internal/domain/records"
)

// FollowRequestView is a grant as shown in the patient's request list. The
// doctor name and specialization come from the request-time snapshot.
type FollowRequestView struct {
	DoctorID             string  `json:"doctorId"`
	DoctorName           string  `json:"doctorName"`
	DoctorSpecialization *string `json:"doctorSpecialization"`
	Status               string  `json:"status"`
}

// PatientView is the full patient payload: profile plus history, newest
// first in every list.
type PatientView struct {
	*identity.Patient
	Prescriptions       []*prescription.Prescription  `json:"prescriptions"`
	Records             []*records.MedicalRecord      `json:"records"`
	PrescriptionRecords []*records.PrescriptionRecord `json:"prescriptionRecords"`
	FollowRequests      []FollowRequestView           `json:"followRequests"`
}

// DoctorView is the doctor profile plus the public ids of every patient
// with an approved grant.
type DoctorView struct {
	*identity.Doctor
	FollowedPatients []string `json:"followedPatients"`
}

func (h *Handler) buildPatientView(ctx context.Context, p *identity.Patient) (*PatientView, error) {
	prescriptions, err := h.prescriptions.ListByPatient(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	medicalRecords, err := h.records.ListMedicalByPatient(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	prescriptionRecords, err := h.records.ListPrescriptionRecordsByPatient(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	grants, err := h.access.ListForPatient(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	requests := make([]FollowRequestView, 0, len(grants))
	for _, g := range grants {
		doctorID, err := h.access.GrantDoctorPublicID(ctx, g)
		if err != nil {
			// Grant rows cascade-delete with their doctor; skip the stragglers.
			continue
		}
		requests = append(requests, FollowRequestView{
			DoctorID:             doctorID,
			DoctorName:           g.DoctorName,
			DoctorSpecialization: g.DoctorSpecialization,
			Status:               g.Status,
		})
	}

	if prescriptions == nil {
		prescriptions = []*prescription.Prescription{}
	}
	if medicalRecords == nil {
		medicalRecords = []*records.MedicalRecord{}
	}
	if prescriptionRecords == nil {
		prescriptionRecords = []*records.PrescriptionRecord{}
	}
	return &PatientView{
		Patient:             p,
		Prescriptions:       prescriptions,
		Records:             medicalRecords,
		PrescriptionRecords: prescriptionRecords,
		FollowRequests:      requests,
	}, nil
}

func (h *Handler) buildDoctorView(ctx context.Context, d *identity.Doctor) (*DoctorView, error) {
	followed, err := h.access.ApprovedPatientPublicIDs(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if followed == nil {
		followed = []string{}
	}
	return &DoctorView{Doctor: d, FollowedPatients: followed}, nil
}
