package identity

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/medilog/medilog-api/internal/platform/apperror"
	"github.com/medilog/medilog-api/internal/platform/db"
)

// maxIDAttempts bounds public-id generation retries. The patient id space is
// only PAT-001..PAT-999, so collisions are expected as it fills up.
const maxIDAttempts = 10

type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	tx       db.TxRunner
}

func NewService(doctors DoctorRepository, patients PatientRepository, tx db.TxRunner) *Service {
	return &Service{doctors: doctors, patients: patients, tx: tx}
}

// -- Registration --

func (s *Service) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (*Doctor, error) {
	if in.Name == "" {
		return nil, apperror.BadRequest("name is required")
	}
	if in.Email == "" || in.Phone == "" {
		return nil, apperror.BadRequest("email and phone are required")
	}
	if in.Password == "" {
		return nil, apperror.BadRequest("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	d := &Doctor{
		Name:              in.Name,
		Specialization:    in.Specialization,
		NID:               in.NID,
		Email:             in.Email,
		Phone:             in.Phone,
		PasswordHash:      string(hash),
		ProfilePictureURL: in.ProfilePictureURL,
		DateOfBirth:       in.DateOfBirth,
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		d.PublicID = fmt.Sprintf("DOC-%d", time.Now().Unix()+int64(attempt))
		err = s.doctors.Create(ctx, d)
		if err == nil {
			return d, nil
		}
		if errors.Is(err, ErrDuplicatePublicID) {
			continue
		}
		if errors.Is(err, ErrDuplicateContact) {
			return nil, apperror.BadRequest(err.Error())
		}
		return nil, err
	}
	return nil, apperror.CapacityExhausted("could not allocate a doctor id")
}

func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*Patient, error) {
	if in.Username == "" {
		return nil, apperror.BadRequest("username is required")
	}
	if in.Name == "" {
		return nil, apperror.BadRequest("name is required")
	}
	if in.Email == "" || in.Phone == "" {
		return nil, apperror.BadRequest("email and phone are required")
	}
	if in.Password == "" {
		return nil, apperror.BadRequest("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &Patient{
		Username:          in.Username,
		Name:              in.Name,
		Age:               in.Age,
		Gender:            in.Gender,
		DateOfBirth:       in.DateOfBirth,
		NID:               in.NID,
		BloodGroup:        in.BloodGroup,
		Allergies:         in.Allergies,
		Asthma:            in.Asthma,
		Email:             in.Email,
		Phone:             in.Phone,
		PasswordHash:      string(hash),
		ProfilePictureURL: in.ProfilePictureURL,
		Vitals:            []Vital{},
		MajorConditions:   in.MajorConditions,
	}

	// The store's unique constraint is the arbiter; the generator just
	// proposes candidates and retries on collision.
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		p.PublicID = fmt.Sprintf("PAT-%03d", rand.IntN(999)+1)
		err = s.patients.Create(ctx, p)
		if err == nil {
			return p, nil
		}
		if errors.Is(err, ErrDuplicatePublicID) {
			continue
		}
		if errors.Is(err, ErrDuplicateContact) {
			return nil, apperror.BadRequest(err.Error())
		}
		return nil, err
	}
	return nil, apperror.CapacityExhausted("patient id space exhausted")
}

// -- Authentication --

// AuthenticatePatient verifies phone+password. Failures collapse to one
// generic message so callers cannot probe which phone numbers exist.
func (s *Service) AuthenticatePatient(ctx context.Context, phone, password string) (*Patient, error) {
	p, err := s.patients.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	return p, nil
}

func (s *Service) AuthenticateDoctor(ctx context.Context, phone, password string) (*Doctor, error) {
	d, err := s.doctors.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password)) != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	return d, nil
}

// -- Lookup --

func (s *Service) GetPatientByUsername(ctx context.Context, username string) (*Patient, error) {
	p, err := s.patients.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("patient not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) GetDoctorByPublicID(ctx context.Context, publicID string) (*Doctor, error) {
	d, err := s.doctors.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("doctor not found")
		}
		return nil, err
	}
	return d, nil
}

func (s *Service) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("patient not found")
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) GetDoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperror.NotFound("doctor not found")
		}
		return nil, err
	}
	return d, nil
}

// ResolvePatient accepts either a public id (PAT-xxx) or an internal uuid.
func (s *Service) ResolvePatient(ctx context.Context, ref string) (*Patient, error) {
	p, err := s.patients.GetByPublicID(ctx, ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		p, err = s.patients.GetByID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, apperror.NotFound("patient not found")
}

// ResolveDoctor accepts either a public id (DOC-xxx) or an internal uuid.
func (s *Service) ResolveDoctor(ctx context.Context, ref string) (*Doctor, error) {
	d, err := s.doctors.GetByPublicID(ctx, ref)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		d, err = s.doctors.GetByID(ctx, id)
		if err == nil {
			return d, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, apperror.NotFound("doctor not found")
}

// -- Profile updates --

// UpdatePatient applies a merge-patch. The password sub-protocol and the
// profile field writes commit or roll back together: a failed password check
// leaves every field untouched.
func (s *Service) UpdatePatient(ctx context.Context, ref string, upd PatientUpdate) (*Patient, error) {
	var out *Patient
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		p, err := s.ResolvePatient(ctx, ref)
		if err != nil {
			return err
		}

		if upd.NewPassword != nil {
			hash, err := s.checkPasswordChange(p.PasswordHash, upd.CurrentPassword, *upd.NewPassword)
			if err != nil {
				return err
			}
			p.PasswordHash = hash
		}

		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Email != nil {
			p.Email = *upd.Email
		}
		if upd.Phone != nil {
			p.Phone = *upd.Phone
		}
		if upd.ProfilePictureURL != nil {
			p.ProfilePictureURL = upd.ProfilePictureURL
		}
		if upd.BloodGroup != nil {
			p.BloodGroup = upd.BloodGroup
		}
		if upd.Allergies != nil {
			p.Allergies = upd.Allergies
		}
		if upd.Asthma != nil {
			p.Asthma = upd.Asthma
		}
		if upd.MajorConditions != nil {
			p.MajorConditions = *upd.MajorConditions
		}

		if err := s.patients.Update(ctx, p); err != nil {
			if errors.Is(err, ErrDuplicateContact) {
				return apperror.BadRequest(err.Error())
			}
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) UpdateDoctor(ctx context.Context, ref string, upd DoctorUpdate) (*Doctor, error) {
	var out *Doctor
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.ResolveDoctor(ctx, ref)
		if err != nil {
			return err
		}

		if upd.NewPassword != nil {
			hash, err := s.checkPasswordChange(d.PasswordHash, upd.CurrentPassword, *upd.NewPassword)
			if err != nil {
				return err
			}
			d.PasswordHash = hash
		}

		if upd.Name != nil {
			d.Name = *upd.Name
		}
		if upd.Email != nil {
			d.Email = *upd.Email
		}
		if upd.Phone != nil {
			d.Phone = *upd.Phone
		}
		if upd.Specialization != nil {
			d.Specialization = upd.Specialization
		}
		if upd.ProfilePictureURL != nil {
			d.ProfilePictureURL = upd.ProfilePictureURL
		}

		if err := s.doctors.Update(ctx, d); err != nil {
			if errors.Is(err, ErrDuplicateContact) {
				return apperror.BadRequest(err.Error())
			}
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkPasswordChange validates the current password and returns the new hash.
func (s *Service) checkPasswordChange(storedHash string, current *string, newPassword string) (string, error) {
	if current == nil || *current == "" {
		return "", apperror.BadRequest("current password is required to set a new password")
	}
	if bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(*current)) != nil {
		return "", apperror.Unauthorized("incorrect current password")
	}
	if newPassword == "" {
		return "", apperror.BadRequest("new password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// -- Password reset --

// RequestPasswordReset reports whether the email belongs to any account.
// Actual reset delivery is handled out of band.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, apperror.BadRequest("email is required")
	}
	exists, err := s.doctors.EmailExists(ctx, email)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}
	return s.patients.EmailExists(ctx, email)
}
