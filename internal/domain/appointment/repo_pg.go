package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/clinicdesk/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type apptRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &apptRepoPG{pool: pool} }

func (r *apptRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const apptCols = `id, start_time, end_time, status, patient_id, type, location, meeting_link, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.StartTime, &a.EndTime, &a.Status, &a.PatientID,
		&a.Type, &a.Location, &a.MeetingLink, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *apptRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointment (id, start_time, end_time, status, patient_id, type, location, meeting_link)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		a.ID, a.StartTime, a.EndTime, a.Status, a.PatientID, a.Type, a.Location, a.MeetingLink).
		Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapExclusion(err)
}

// mapExclusion translates a violation of the interval exclusion constraint
// into ErrOverlap so the service can report a conflict instead of a 500.
func mapExclusion(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
		return ErrOverlap
	}
	return err
}

func (r *apptRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *apptRepoPG) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	var d Detail
	var patientID *uuid.UUID
	var fullName, email *string
	var phone *string
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT a.id, a.start_time, a.end_time, a.status, a.patient_id, a.type,
			a.location, a.meeting_link, a.created_at, a.updated_at,
			u.id, u.full_name, u.email, u.phone
		FROM appointment a
		LEFT JOIN app_user u ON u.id = a.patient_id
		WHERE a.id = $1`, id).
		Scan(&d.ID, &d.StartTime, &d.EndTime, &d.Status, &d.PatientID,
			&d.Type, &d.Location, &d.MeetingLink, &d.CreatedAt, &d.UpdatedAt,
			&patientID, &fullName, &email, &phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if patientID != nil {
		d.Patient = &PatientContact{ID: *patientID, FullName: *fullName, Email: *email, Phone: phone}
	}
	return &d, nil
}

func (r *apptRepoPG) Overwrite(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment
		SET start_time=$2, end_time=$3, status=$4, patient_id=$5, type=$6,
			location=$7, meeting_link=$8, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.StartTime, a.EndTime, a.Status, a.PatientID, a.Type, a.Location, a.MeetingLink)
	if err != nil {
		return mapExclusion(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *apptRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *apptRepoPG) HasOverlap(ctx context.Context, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	// Half-open interval intersection: edge-touching slots do not conflict.
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointment
			WHERE start_time < $2 AND end_time > $1
			  AND ($3::uuid IS NULL OR id <> $3)
		)`, start, end, excludeID).Scan(&exists)
	return exists, err
}

// Book expresses the availability check and the transition as one conditional
// write. Zero affected rows means some precondition no longer holds and the
// caller must re-read to find out which.
func (r *apptRepoPG) Book(ctx context.Context, id uuid.UUID, p BookParams, now time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointment
		SET status=$2, patient_id=$3, type=$4, location=$5, meeting_link=$6, updated_at=NOW()
		WHERE id = $1 AND status = $7 AND start_time > $8
		RETURNING `+apptCols,
		id, StatusBooked, p.PatientID, p.Type, p.Location, p.MeetingLink, StatusAvailable, now))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotBookable
		}
		return nil, err
	}
	return a, nil
}

func (r *apptRepoPG) Cancel(ctx context.Context, id uuid.UUID, patientID uuid.UUID) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointment
		SET status=$3, patient_id=NULL, type=NULL, location=NULL, meeting_link=NULL, updated_at=NOW()
		WHERE id = $1 AND status = $4 AND patient_id = $2
		RETURNING `+apptCols,
		id, patientID, StatusAvailable, StatusBooked))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotCancellable
		}
		return nil, err
	}
	return a, nil
}

func (r *apptRepoPG) List(ctx context.Context, from *time.Time, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE $1::timestamptz IS NULL OR start_time >= $1`, from).
		Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE $1::timestamptz IS NULL OR start_time >= $1
		ORDER BY start_time ASC LIMIT $2 OFFSET $3`, from, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *apptRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE patient_id = $1
		ORDER BY start_time ASC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *apptRepoPG) ListIncoming(ctx context.Context, now time.Time, limit, offset int) ([]*IncomingAppointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment
		WHERE status = $1 AND start_time > $2`, StatusBooked, now).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.start_time, a.end_time, a.status, a.patient_id, a.type,
			a.location, a.meeting_link, a.created_at, a.updated_at,
			u.id, u.full_name, u.email, u.phone
		FROM appointment a
		JOIN app_user u ON u.id = a.patient_id
		WHERE a.status = $1 AND a.start_time > $2
		ORDER BY a.start_time ASC LIMIT $3 OFFSET $4`,
		StatusBooked, now, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*IncomingAppointment
	for rows.Next() {
		var in IncomingAppointment
		if err := rows.Scan(&in.ID, &in.StartTime, &in.EndTime, &in.Status, &in.PatientID,
			&in.Type, &in.Location, &in.MeetingLink, &in.CreatedAt, &in.UpdatedAt,
			&in.Patient.ID, &in.Patient.FullName, &in.Patient.Email, &in.Patient.Phone); err != nil {
			return nil, 0, err
		}
		items = append(items, &in)
	}
	return items, total, rows.Err()
}

func (r *apptRepoPG) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}
