package prescription

import (
	"context"
	"fmt"

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

const prescriptionCols = `id, public_id, patient_id, doctor_id, doctor_public_id, doctor_name,
	doctor_specialization, issued_at, follow_up, investigations, advice, created_at`

const itemCols = `id, public_id, prescription_id, position, brand_name, generic_name,
	strength, dosage, frequency, duration, notes`

// Create inserts the prescription and its items. Public ids derive from the
// bigserial seq columns, so each row is inserted first and its public_id set
// from the returned seq. Callers run this inside a transaction.
func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	q := r.conn(ctx)
	p.ID = uuid.New()
	if p.Investigations == nil {
		p.Investigations = []string{}
	}
	if p.Advice == nil {
		p.Advice = []string{}
	}

	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO prescriptions (id, patient_id, doctor_id, doctor_public_id, doctor_name,
			doctor_specialization, follow_up, investigations, advice)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING seq, issued_at, created_at`,
		p.ID, p.PatientID, p.DoctorID, p.DoctorPublicID, p.DoctorName,
		p.DoctorSpecialization, p.FollowUp, p.Investigations, p.Advice).
		Scan(&seq, &p.IssuedAt, &p.CreatedAt)
	if err != nil {
		return err
	}
	p.PublicID = fmt.Sprintf("PRES-%d", seq)
	if _, err := q.Exec(ctx,
		`UPDATE prescriptions SET public_id = $2 WHERE id = $1`, p.ID, p.PublicID); err != nil {
		return err
	}

	for i := range p.Items {
		it := &p.Items[i]
		it.ID = uuid.New()
		it.PrescriptionID = p.ID
		it.Position = i
		var itemSeq int64
		err := q.QueryRow(ctx, `
			INSERT INTO prescription_items (id, prescription_id, position, brand_name,
				generic_name, strength, dosage, frequency, duration, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			RETURNING seq`,
			it.ID, it.PrescriptionID, it.Position, it.BrandName,
			it.GenericName, it.Strength, it.Dosage, it.Frequency, it.Duration, it.Notes).
			Scan(&itemSeq)
		if err != nil {
			return err
		}
		it.PublicID = fmt.Sprintf("med-%d", itemSeq)
		if _, err := q.Exec(ctx,
			`UPDATE prescription_items SET public_id = $2 WHERE id = $1`, it.ID, it.PublicID); err != nil {
			return err
		}
	}
	return nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PublicID, &p.PatientID, &p.DoctorID, &p.DoctorPublicID,
		&p.DoctorName, &p.DoctorSpecialization, &p.IssuedAt, &p.FollowUp,
		&p.Investigations, &p.Advice, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Prescription, error) {
	q := r.conn(ctx)
	rows, err := q.Query(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE patient_id = $1 ORDER BY seq DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		prescriptions []*Prescription
		byID          = make(map[uuid.UUID]*Prescription)
		ids           []uuid.UUID
	)
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		p.Items = []Item{}
		prescriptions = append(prescriptions, p)
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return prescriptions, nil
	}

	itemRows, err := q.Query(ctx,
		`SELECT `+itemCols+` FROM prescription_items
		WHERE prescription_id = ANY($1) ORDER BY prescription_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it Item
		err := itemRows.Scan(&it.ID, &it.PublicID, &it.PrescriptionID, &it.Position,
			&it.BrandName, &it.GenericName, &it.Strength, &it.Dosage, &it.Frequency,
			&it.Duration, &it.Notes)
		if err != nil {
			return nil, err
		}
		if p, ok := byID[it.PrescriptionID]; ok {
			p.Items = append(p.Items, it)
		}
	}
	return prescriptions, itemRows.Err()
}
