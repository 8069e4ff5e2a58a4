package records

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MedicalRecordRepoMem is a mutex-guarded in-memory MedicalRecordRepository.
type MedicalRecordRepoMem struct {
	mu      sync.RWMutex
	records []*MedicalRecord
	files   map[string][]byte
	seq     int64
}

func NewMedicalRecordRepoMem() *MedicalRecordRepoMem {
	return &MedicalRecordRepoMem{files: make(map[string][]byte)}
}

func (r *MedicalRecordRepoMem) Create(_ context.Context, rec *MedicalRecord, fileData []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec.ID = uuid.New()
	rec.PublicID = fmt.Sprintf("REC-%d", r.seq)
	rec.CreatedAt = time.Now()
	cp := *rec
	r.records = append(r.records, &cp)
	if rec.File != nil {
		r.files[rec.PublicID] = append([]byte(nil), fileData...)
	}
	return nil
}

func (r *MedicalRecordRepoMem) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*MedicalRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if rec := r.records[i]; rec.PatientID == patientID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MedicalRecordRepoMem) GetFile(_ context.Context, publicID string) (*MedicalRecord, []byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.PublicID == publicID && rec.File != nil {
			cp := *rec
			return &cp, append([]byte(nil), r.files[publicID]...), nil
		}
	}
	return nil, nil, ErrNotFound
}

// PrescriptionRecordRepoMem mirrors the medical record store for the PR-
// prefixed kind.
type PrescriptionRecordRepoMem struct {
	mu      sync.RWMutex
	records []*PrescriptionRecord
	files   map[string][]byte
	seq     int64
}

func NewPrescriptionRecordRepoMem() *PrescriptionRecordRepoMem {
	return &PrescriptionRecordRepoMem{files: make(map[string][]byte)}
}

func (r *PrescriptionRecordRepoMem) Create(_ context.Context, rec *PrescriptionRecord, fileData []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	rec.ID = uuid.New()
	rec.PublicID = fmt.Sprintf("PR-%d", r.seq)
	rec.CreatedAt = time.Now()
	cp := *rec
	r.records = append(r.records, &cp)
	if rec.File != nil {
		r.files[rec.PublicID] = append([]byte(nil), fileData...)
	}
	return nil
}

func (r *PrescriptionRecordRepoMem) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*PrescriptionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*PrescriptionRecord
	for i := len(r.records) - 1; i >= 0; i-- {
		if rec := r.records[i]; rec.PatientID == patientID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *PrescriptionRecordRepoMem) GetFile(_ context.Context, publicID string) (*PrescriptionRecord, []byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.PublicID == publicID && rec.File != nil {
			cp := *rec
			return &cp, append([]byte(nil), r.files[publicID]...), nil
		}
	}
	return nil, nil, ErrNotFound
}
