// Package repo provides the attendance ledger repository
package repo

import (
	"context"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/attendance/domain"
)

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the ledger repository. Ingestion binds this inside its own
// transaction so the event insert and the record append commit together
type Storage interface {
	LastFor(ctx context.Context, employeeID uuid.UUID) (*domain.Record, error)
	LastInFor(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) (*domain.Record, error)
	Insert(ctx context.Context, r domain.Record) (domain.Record, error)
	Day(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) ([]domain.Record, error)
	ForDate(ctx context.Context, d clockwork.Date) ([]domain.Record, error)
}

type pg struct{ q repokit.Queryer }

const recordCols = `id, employee_id, device_id, recognition_event_id, shift_id,
	attendance_date::text, event_time, event_type,
	is_late, is_early_leave, is_overtime, duration_minutes,
	notes, status, created_at, updated_at`

func scanRecord(scan func(dest ...any) error) (domain.Record, error) {
	var (
		r    domain.Record
		date string
	)
	err := scan(
		&r.ID, &r.EmployeeID, &r.DeviceID, &r.RecognitionEventID, &r.ShiftID,
		&date, &r.EventTime, &r.EventType,
		&r.IsLate, &r.IsEarlyLeave, &r.IsOvertime, &r.DurationMinutes,
		&r.Notes, &r.Status, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return domain.Record{}, err
	}
	if r.AttendanceDate, err = clockwork.ParseDate(date); err != nil {
		return domain.Record{}, err
	}
	return r, nil
}

// LastFor returns the most recent record for the employee, nil when none exists
func (s *pg) LastFor(ctx context.Context, employeeID uuid.UUID) (*domain.Record, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+recordCols+`
		FROM attendance_records
		WHERE employee_id = $1
		ORDER BY event_time DESC
		LIMIT 1`, employeeID)
	r, err := scanRecord(row.Scan)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LastInFor returns the most recent IN within the business date, nil when none exists
func (s *pg) LastInFor(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) (*domain.Record, error) {
	row := s.q.QueryRow(ctx, `
		SELECT `+recordCols+`
		FROM attendance_records
		WHERE employee_id = $1 AND attendance_date = $2::date AND event_type = 'IN'
		ORDER BY event_time DESC
		LIMIT 1`, employeeID, d.String())
	r, err := scanRecord(row.Scan)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Insert appends one record. When the record references a recognition event
// the partial unique index makes the append idempotent: a second insert for
// the same event returns the row already committed
func (s *pg) Insert(ctx context.Context, r domain.Record) (domain.Record, error) {
	if r.Status == "" {
		r.Status = domain.RecordValid
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO attendance_records (
			employee_id, device_id, recognition_event_id, shift_id,
			attendance_date, event_time, event_type,
			is_late, is_early_leave, is_overtime, duration_minutes,
			notes, status
		)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (recognition_event_id) WHERE recognition_event_id IS NOT NULL DO NOTHING
		RETURNING `+recordCols,
		r.EmployeeID, r.DeviceID, r.RecognitionEventID, r.ShiftID,
		r.AttendanceDate.String(), r.EventTime, r.EventType,
		r.IsLate, r.IsEarlyLeave, r.IsOvertime, r.DurationMinutes,
		r.Notes, r.Status,
	)

	stored, err := scanRecord(row.Scan)
	if perr.IsCode(err, perr.ErrorCodeNotFound) && r.RecognitionEventID != nil {
		// conflict path: fetch the record that won
		row = s.q.QueryRow(ctx,
			`SELECT `+recordCols+` FROM attendance_records WHERE recognition_event_id = $1`,
			*r.RecognitionEventID)
		return scanRecord(row.Scan)
	}
	return stored, err
}

// Day lists an employee's records for one business date in event-time order
func (s *pg) Day(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) ([]domain.Record, error) {
	return s.list(ctx, `
		SELECT `+recordCols+`
		FROM attendance_records
		WHERE employee_id = $1 AND attendance_date = $2::date
		ORDER BY event_time`, employeeID, d.String())
}

// ForDate lists all records for one business date
func (s *pg) ForDate(ctx context.Context, d clockwork.Date) ([]domain.Record, error) {
	return s.list(ctx, `
		SELECT `+recordCols+`
		FROM attendance_records
		WHERE attendance_date = $1::date
		ORDER BY employee_id, event_time`, d.String())
}

func (s *pg) list(ctx context.Context, sql string, args ...any) ([]domain.Record, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
