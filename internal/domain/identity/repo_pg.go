package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medilog/medilog-api/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// translateError maps driver errors onto the repository sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if strings.Contains(pgErr.ConstraintName, "public_id") {
			return ErrDuplicatePublicID
		}
		return ErrDuplicateContact
	}
	return err
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorCols = `id, public_id, name, specialization, nid, email, phone, password_hash,
	profile_picture_url, date_of_birth, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.PublicID, &d.Name, &d.Specialization, &d.NID, &d.Email, &d.Phone,
		&d.PasswordHash, &d.ProfilePictureURL, &d.DateOfBirth, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (id, public_id, name, specialization, nid, email, phone, password_hash,
			profile_picture_url, date_of_birth)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		d.ID, d.PublicID, d.Name, d.Specialization, d.NID, d.Email, d.Phone, d.PasswordHash,
		d.ProfilePictureURL, d.DateOfBirth)
	return translateError(err)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByPublicID(ctx context.Context, publicID string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE public_id = $1`, strings.ToUpper(publicID)))
}

func (r *doctorRepoPG) GetByPhone(ctx context.Context, phone string) (*Doctor, error) {
	return scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctors WHERE phone = $1`, phone))
}

func (r *doctorRepoPG) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM doctors WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET name=$2, specialization=$3, nid=$4, email=$5, phone=$6,
			password_hash=$7, profile_picture_url=$8, date_of_birth=$9, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Specialization, d.NID, d.Email, d.Phone,
		d.PasswordHash, d.ProfilePictureURL, d.DateOfBirth)
	return translateError(err)
}

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, public_id, username, name, age, gender, date_of_birth, nid,
	blood_group, allergies, asthma, email, phone, password_hash, profile_picture_url,
	vitals, major_conditions, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PublicID, &p.Username, &p.Name, &p.Age, &p.Gender, &p.DateOfBirth, &p.NID,
		&p.BloodGroup, &p.Allergies, &p.Asthma, &p.Email, &p.Phone, &p.PasswordHash, &p.ProfilePictureURL,
		&p.Vitals, &p.MajorConditions, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.Vitals == nil {
		p.Vitals = []Vital{}
	}
	if p.MajorConditions == nil {
		p.MajorConditions = []string{}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patients (id, public_id, username, name, age, gender, date_of_birth, nid,
			blood_group, allergies, asthma, email, phone, password_hash, profile_picture_url,
			vitals, major_conditions)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		p.ID, p.PublicID, p.Username, p.Name, p.Age, p.Gender, p.DateOfBirth, p.NID,
		p.BloodGroup, p.Allergies, p.Asthma, p.Email, p.Phone, p.PasswordHash, p.ProfilePictureURL,
		p.Vitals, p.MajorConditions)
	return translateError(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByPublicID(ctx context.Context, publicID string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE public_id = $1`, strings.ToUpper(publicID)))
}

func (r *patientRepoPG) GetByUsername(ctx context.Context, username string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE lower(username) = lower($1)`, username))
}

func (r *patientRepoPG) GetByPhone(ctx context.Context, phone string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patients WHERE phone = $1`, phone))
}

func (r *patientRepoPG) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM patients WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET name=$2, age=$3, gender=$4, date_of_birth=$5, nid=$6,
			blood_group=$7, allergies=$8, asthma=$9, email=$10, phone=$11,
			password_hash=$12, profile_picture_url=$13, vitals=$14, major_conditions=$15,
			updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.Age, p.Gender, p.DateOfBirth, p.NID,
		p.BloodGroup, p.Allergies, p.Asthma, p.Email, p.Phone,
		p.PasswordHash, p.ProfilePictureURL, p.Vitals, p.MajorConditions)
	return translateError(err)
}
