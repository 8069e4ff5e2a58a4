package records

import (
	"context"
	"errors"
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

type pgBase struct{ pool *pgxpool.Pool }

func (r *pgBase) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// file columns are nullable as a group: either all set or all NULL.
type fileRow struct {
	name        *string
	contentType *string
	size        *int64
	hash        *string
}

func (f fileRow) info() *FileInfo {
	if f.name == nil {
		return nil
	}
	info := &FileInfo{Name: *f.name}
	if f.contentType != nil {
		info.ContentType = *f.contentType
	}
	if f.size != nil {
		info.Size = *f.size
	}
	if f.hash != nil {
		info.Hash = *f.hash
	}
	return info
}

func fileArgs(info *FileInfo) (name, contentType *string, size *int64, hash *string) {
	if info == nil {
		return nil, nil, nil, nil
	}
	return &info.Name, &info.ContentType, &info.Size, &info.Hash
}

// -- Medical records --

type MedicalRecordRepoPG struct{ pgBase }

func NewMedicalRecordRepoPG(pool *pgxpool.Pool) *MedicalRecordRepoPG {
	return &MedicalRecordRepoPG{pgBase{pool: pool}}
}

const medicalRecordCols = `id, public_id, patient_id, type, name, record_date, institution,
	file_name, file_type, file_size, file_hash, created_at`

func scanMedicalRecord(row pgx.Row) (*MedicalRecord, error) {
	var (
		rec MedicalRecord
		f   fileRow
	)
	err := row.Scan(&rec.ID, &rec.PublicID, &rec.PatientID, &rec.Type, &rec.Name,
		&rec.RecordDate, &rec.Institution, &f.name, &f.contentType, &f.size, &f.hash,
		&rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.File = f.info()
	return &rec, nil
}

func (r *MedicalRecordRepoPG) Create(ctx context.Context, rec *MedicalRecord, fileData []byte) error {
	q := r.conn(ctx)
	rec.ID = uuid.New()
	name, contentType, size, hash := fileArgs(rec.File)

	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO medical_records (id, patient_id, type, name, record_date, institution,
			file_name, file_type, file_data, file_size, file_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING seq, created_at`,
		rec.ID, rec.PatientID, rec.Type, rec.Name, rec.RecordDate, rec.Institution,
		name, contentType, fileData, size, hash).
		Scan(&seq, &rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.PublicID = fmt.Sprintf("REC-%d", seq)
	_, err = q.Exec(ctx, `UPDATE medical_records SET public_id = $2 WHERE id = $1`, rec.ID, rec.PublicID)
	return err
}

func (r *MedicalRecordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medicalRecordCols+` FROM medical_records WHERE patient_id = $1 ORDER BY seq DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*MedicalRecord
	for rows.Next() {
		rec, err := scanMedicalRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *MedicalRecordRepoPG) GetFile(ctx context.Context, publicID string) (*MedicalRecord, []byte, error) {
	var (
		rec  MedicalRecord
		f    fileRow
		data []byte
	)
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+medicalRecordCols+`, file_data FROM medical_records WHERE public_id = $1`,
		publicID).
		Scan(&rec.ID, &rec.PublicID, &rec.PatientID, &rec.Type, &rec.Name,
			&rec.RecordDate, &rec.Institution, &f.name, &f.contentType, &f.size, &f.hash,
			&rec.CreatedAt, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	rec.File = f.info()
	if rec.File == nil {
		return nil, nil, ErrNotFound
	}
	return &rec, data, nil
}

// -- Prescription records --

type PrescriptionRecordRepoPG struct{ pgBase }

func NewPrescriptionRecordRepoPG(pool *pgxpool.Pool) *PrescriptionRecordRepoPG {
	return &PrescriptionRecordRepoPG{pgBase{pool: pool}}
}

const prescriptionRecordCols = `id, public_id, patient_id, name, record_date,
	file_name, file_type, file_size, file_hash, created_at`

func scanPrescriptionRecord(row pgx.Row) (*PrescriptionRecord, error) {
	var (
		rec PrescriptionRecord
		f   fileRow
	)
	err := row.Scan(&rec.ID, &rec.PublicID, &rec.PatientID, &rec.Name, &rec.RecordDate,
		&f.name, &f.contentType, &f.size, &f.hash, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.File = f.info()
	return &rec, nil
}

func (r *PrescriptionRecordRepoPG) Create(ctx context.Context, rec *PrescriptionRecord, fileData []byte) error {
	q := r.conn(ctx)
	rec.ID = uuid.New()
	name, contentType, size, hash := fileArgs(rec.File)

	var seq int64
	err := q.QueryRow(ctx, `
		INSERT INTO prescription_records (id, patient_id, name, record_date,
			file_name, file_type, file_data, file_size, file_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING seq, created_at`,
		rec.ID, rec.PatientID, rec.Name, rec.RecordDate,
		name, contentType, fileData, size, hash).
		Scan(&seq, &rec.CreatedAt)
	if err != nil {
		return err
	}
	rec.PublicID = fmt.Sprintf("PR-%d", seq)
	_, err = q.Exec(ctx, `UPDATE prescription_records SET public_id = $2 WHERE id = $1`, rec.ID, rec.PublicID)
	return err
}

func (r *PrescriptionRecordRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*PrescriptionRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionRecordCols+` FROM prescription_records WHERE patient_id = $1 ORDER BY seq DESC`,
		patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*PrescriptionRecord
	for rows.Next() {
		rec, err := scanPrescriptionRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PrescriptionRecordRepoPG) GetFile(ctx context.Context, publicID string) (*PrescriptionRecord, []byte, error) {
	var (
		rec  PrescriptionRecord
		f    fileRow
		data []byte
	)
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionRecordCols+`, file_data FROM prescription_records WHERE public_id = $1`,
		publicID).
		Scan(&rec.ID, &rec.PublicID, &rec.PatientID, &rec.Name, &rec.RecordDate,
			&f.name, &f.contentType, &f.size, &f.hash, &rec.CreatedAt, &data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	rec.File = f.info()
	if rec.File == nil {
		return nil, nil, ErrNotFound
	}
	return &rec, data, nil
}
