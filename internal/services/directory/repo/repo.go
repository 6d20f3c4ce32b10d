// Package repo provides repository implementations for the directory
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/directory/domain"
)

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the directory repository
type Storage interface {
	InsertEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error)
	GetEmployee(ctx context.Context, id uuid.UUID) (domain.Employee, error)
	GetEmployeeByCode(ctx context.Context, code string) (domain.Employee, error)
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	UpdateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error)

	InsertDevice(ctx context.Context, d domain.Device) (domain.Device, error)
	GetDevice(ctx context.Context, id uuid.UUID) (domain.Device, error)
	GetDeviceByCode(ctx context.Context, code string) (domain.Device, error)
	ListDevices(ctx context.Context) ([]domain.Device, error)
	TouchDevice(ctx context.Context, id uuid.UUID, at time.Time) error
	SetDeviceStatus(ctx context.Context, id uuid.UUID, status domain.DeviceStatus) error
}

type pg struct{ q repokit.Queryer }

const employeeCols = `id, employee_code, full_name, status, shift_id, created_at, updated_at`

func scanEmployee(scan func(dest ...any) error) (domain.Employee, error) {
	var e domain.Employee
	err := scan(&e.ID, &e.Code, &e.FullName, &e.Status, &e.ShiftID, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// InsertEmployee persists a new employee and returns the stored row
func (s *pg) InsertEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO employees (employee_code, full_name, status, shift_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+employeeCols,
		e.Code, e.FullName, e.Status, e.ShiftID,
	)
	return scanEmployee(row.Scan)
}

// GetEmployee fetches an employee by id
func (s *pg) GetEmployee(ctx context.Context, id uuid.UUID) (domain.Employee, error) {
	row := s.q.QueryRow(ctx, `SELECT `+employeeCols+` FROM employees WHERE id = $1`, id)
	return scanEmployee(row.Scan)
}

// GetEmployeeByCode fetches an employee by canonical code
func (s *pg) GetEmployeeByCode(ctx context.Context, code string) (domain.Employee, error) {
	row := s.q.QueryRow(ctx, `SELECT `+employeeCols+` FROM employees WHERE employee_code = $1`, code)
	return scanEmployee(row.Scan)
}

// ListEmployees returns all employees ordered by code
func (s *pg) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := s.q.Query(ctx, `SELECT `+employeeCols+` FROM employees ORDER BY employee_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEmployee writes mutable fields and bumps updated_at
func (s *pg) UpdateEmployee(ctx context.Context, e domain.Employee) (domain.Employee, error) {
	row := s.q.QueryRow(ctx, `
		UPDATE employees
		SET full_name = $2, status = $3, shift_id = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+employeeCols,
		e.ID, e.FullName, e.Status, e.ShiftID,
	)
	return scanEmployee(row.Scan)
}

const deviceCols = `id, device_code, name, status, last_seen, created_at, updated_at`

func scanDevice(scan func(dest ...any) error) (domain.Device, error) {
	var d domain.Device
	err := scan(&d.ID, &d.Code, &d.Name, &d.Status, &d.LastSeen, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// InsertDevice persists a new device and returns the stored row
func (s *pg) InsertDevice(ctx context.Context, d domain.Device) (domain.Device, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO devices (device_code, name, status)
		VALUES ($1, $2, $3)
		RETURNING `+deviceCols,
		d.Code, d.Name, d.Status,
	)
	return scanDevice(row.Scan)
}

// GetDevice fetches a device by id
func (s *pg) GetDevice(ctx context.Context, id uuid.UUID) (domain.Device, error) {
	row := s.q.QueryRow(ctx, `SELECT `+deviceCols+` FROM devices WHERE id = $1`, id)
	return scanDevice(row.Scan)
}

// GetDeviceByCode fetches a device by canonical code
func (s *pg) GetDeviceByCode(ctx context.Context, code string) (domain.Device, error) {
	row := s.q.QueryRow(ctx, `SELECT `+deviceCols+` FROM devices WHERE device_code = $1`, code)
	return scanDevice(row.Scan)
}

// ListDevices returns all devices ordered by code
func (s *pg) ListDevices(ctx context.Context) ([]domain.Device, error) {
	rows, err := s.q.Query(ctx, `SELECT `+deviceCols+` FROM devices ORDER BY device_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Device
	for rows.Next() {
		d, err := scanDevice(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TouchDevice bumps last_seen; missing devices are ignored on purpose
// heartbeats race against provisioning and must stay cheap
func (s *pg) TouchDevice(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := s.q.Exec(ctx, `UPDATE devices SET last_seen = $2, updated_at = now() WHERE id = $1`, id, at)
	return err
}

// SetDeviceStatus flips a device's lifecycle status
func (s *pg) SetDeviceStatus(ctx context.Context, id uuid.UUID, status domain.DeviceStatus) error {
	tag, err := s.q.Exec(ctx, `UPDATE devices SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return perr.ErrNotFound
	}
	return nil
}
