package prescription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RepoMem is a mutex-guarded in-memory Repository. Sequence counters stand
// in for the store's bigserial columns, and insertion order in the backing
// slice stands in for seq ordering.
type RepoMem struct {
	mu            sync.RWMutex
	prescriptions []*Prescription
	seq           int64
	itemSeq       int64
}

func NewRepoMem() *RepoMem {
	return &RepoMem{}
}

func (r *RepoMem) Create(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = uuid.New()
	p.PublicID = fmt.Sprintf("PRES-%d", r.seq)
	p.IssuedAt = time.Now()
	p.CreatedAt = p.IssuedAt
	if p.Investigations == nil {
		p.Investigations = []string{}
	}
	if p.Advice == nil {
		p.Advice = []string{}
	}
	for i := range p.Items {
		r.itemSeq++
		it := &p.Items[i]
		it.ID = uuid.New()
		it.PrescriptionID = p.ID
		it.Position = i
		it.PublicID = fmt.Sprintf("med-%d", r.itemSeq)
	}
	r.prescriptions = append(r.prescriptions, clonePrescription(p))
	return nil
}

func (r *RepoMem) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Prescription
	for i := len(r.prescriptions) - 1; i >= 0; i-- {
		if p := r.prescriptions[i]; p.PatientID == patientID {
			out = append(out, clonePrescription(p))
		}
	}
	return out, nil
}

func clonePrescription(p *Prescription) *Prescription {
	cp := *p
	cp.Items = append([]Item(nil), p.Items...)
	cp.Investigations = append([]string(nil), p.Investigations...)
	cp.Advice = append([]string(nil), p.Advice...)
	return &cp
}
