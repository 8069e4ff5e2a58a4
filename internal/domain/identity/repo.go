package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Sentinel errors returned by repositories. Uniqueness is enforced at the
// storage layer; these let the service tell an id collision (retryable) apart
// from a taken email/phone/username (caller error).
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicatePublicID = errors.New("duplicate public id")
	ErrDuplicateContact  = errors.New("username, email, or phone already registered")
)

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByPublicID(ctx context.Context, publicID string) (*Doctor, error)
	GetByPhone(ctx context.Context, phone string) (*Doctor, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, d *Doctor) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPublicID(ctx context.Context, publicID string) (*Patient, error)
	GetByUsername(ctx context.Context, username string) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, p *Patient) error
}
