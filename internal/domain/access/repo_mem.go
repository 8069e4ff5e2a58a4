package access

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type pairKey struct {
	doctorID  uuid.UUID
	patientID uuid.UUID
}

// RepoMem is a mutex-guarded in-memory Repository. The pair-keyed map gives
// the same one-row-per-pair guarantee as the SQL unique constraint.
type RepoMem struct {
	mu     sync.RWMutex
	grants map[pairKey]*Grant
}

func NewRepoMem() *RepoMem {
	return &RepoMem{grants: make(map[pairKey]*Grant)}
}

func (r *RepoMem) InsertIfAbsent(_ context.Context, g *Grant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{doctorID: g.DoctorID, patientID: g.PatientID}
	if _, ok := r.grants[key]; ok {
		return false, nil
	}
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	cp := *g
	r.grants[key] = &cp
	return true, nil
}

func (r *RepoMem) SetStatus(_ context.Context, doctorID, patientID uuid.UUID, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.grants[pairKey{doctorID: doctorID, patientID: patientID}]
	if !ok {
		return false, nil
	}
	g.Status = status
	g.UpdatedAt = time.Now()
	return true, nil
}

func (r *RepoMem) Find(_ context.Context, doctorID, patientID uuid.UUID) (*Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grants[pairKey{doctorID: doctorID, patientID: patientID}]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (r *RepoMem) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var grants []*Grant
	for _, g := range r.grants {
		if g.PatientID == patientID {
			cp := *g
			grants = append(grants, &cp)
		}
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].CreatedAt.Before(grants[j].CreatedAt) })
	return grants, nil
}

func (r *RepoMem) ListByDoctor(_ context.Context, doctorID uuid.UUID, status string) ([]*Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var grants []*Grant
	for _, g := range r.grants {
		if g.DoctorID != doctorID {
			continue
		}
		if status != "" && g.Status != status {
			continue
		}
		cp := *g
		grants = append(grants, &cp)
	}
	sort.Slice(grants, func(i, j int) bool { return grants[i].CreatedAt.Before(grants[j].CreatedAt) })
	return grants, nil
}
