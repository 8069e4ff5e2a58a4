package access

import (
	"context"
	"errors"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const grantCols = `id, doctor_id, patient_id, doctor_name, doctor_specialization, status,
	created_at, updated_at`

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	err := row.Scan(&g.ID, &g.DoctorID, &g.PatientID, &g.DoctorName, &g.DoctorSpecialization,
		&g.Status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// InsertIfAbsent relies on the UNIQUE(doctor_id, patient_id) constraint:
// concurrent requests for the same fresh pair race on the index and exactly
// one insert wins; the rest see zero rows affected.
func (r *repoPG) InsertIfAbsent(ctx context.Context, g *Grant) (bool, error) {
	g.ID = uuid.New()
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO access_grants (id, doctor_id, patient_id, doctor_name, doctor_specialization, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (doctor_id, patient_id) DO NOTHING`,
		g.ID, g.DoctorID, g.PatientID, g.DoctorName, g.DoctorSpecialization, g.Status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) SetStatus(ctx context.Context, doctorID, patientID uuid.UUID, status string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE access_grants SET status = $3, updated_at = NOW()
		WHERE doctor_id = $1 AND patient_id = $2`,
		doctorID, patientID, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *repoPG) Find(ctx context.Context, doctorID, patientID uuid.UUID) (*Grant, error) {
	return scanGrant(r.conn(ctx).QueryRow(ctx,
		`SELECT `+grantCols+` FROM access_grants WHERE doctor_id = $1 AND patient_id = $2`,
		doctorID, patientID))
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Grant, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+grantCols+` FROM access_grants WHERE patient_id = $1 ORDER BY created_at`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []*Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, status string) ([]*Grant, error) {
	query := `SELECT ` + grantCols + ` FROM access_grants WHERE doctor_id = $1`
	args := []interface{}{doctorID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var grants []*Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
