package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// In-memory repositories back tests and development runs. They enforce the
// same uniqueness rules as the SQL schema so id-collision retry paths behave
// identically against either store.

type DoctorRepoMem struct {
	mu      sync.RWMutex
	doctors map[uuid.UUID]*Doctor
}

func NewDoctorRepoMem() *DoctorRepoMem {
	return &DoctorRepoMem{doctors: make(map[uuid.UUID]*Doctor)}
}

func (r *DoctorRepoMem) Create(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.doctors {
		if existing.PublicID == d.PublicID {
			return ErrDuplicatePublicID
		}
		if strings.EqualFold(existing.Email, d.Email) || existing.Phone == d.Phone {
			return ErrDuplicateContact
		}
	}
	d.ID = uuid.New()
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

func (r *DoctorRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r *DoctorRepoMem) GetByPublicID(_ context.Context, publicID string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.doctors {
		if d.PublicID == strings.ToUpper(publicID) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *DoctorRepoMem) GetByPhone(_ context.Context, phone string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.doctors {
		if d.Phone == phone {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *DoctorRepoMem) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.doctors {
		if strings.EqualFold(d.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *DoctorRepoMem) Update(_ context.Context, d *Doctor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.doctors[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	r.doctors[d.ID] = &cp
	return nil
}

type PatientRepoMem struct {
	mu       sync.RWMutex
	patients map[uuid.UUID]*Patient
}

func NewPatientRepoMem() *PatientRepoMem {
	return &PatientRepoMem{patients: make(map[uuid.UUID]*Patient)}
}

func (r *PatientRepoMem) Create(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.patients {
		if existing.PublicID == p.PublicID {
			return ErrDuplicatePublicID
		}
		if strings.EqualFold(existing.Username, p.Username) ||
			strings.EqualFold(existing.Email, p.Email) || existing.Phone == p.Phone {
			return ErrDuplicateContact
		}
	}
	p.ID = uuid.New()
	if p.Vitals == nil {
		p.Vitals = []Vital{}
	}
	if p.MajorConditions == nil {
		p.MajorConditions = []string{}
	}
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}

func (r *PatientRepoMem) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *PatientRepoMem) GetByPublicID(_ context.Context, publicID string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.PublicID == strings.ToUpper(publicID) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *PatientRepoMem) GetByUsername(_ context.Context, username string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if strings.EqualFold(p.Username, username) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *PatientRepoMem) GetByPhone(_ context.Context, phone string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *PatientRepoMem) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.patients {
		if strings.EqualFold(p.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *PatientRepoMem) Update(_ context.Context, p *Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.patients[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	r.patients[p.ID] = &cp
	return nil
}
