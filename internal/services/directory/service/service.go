// Package service provides the directory service implementation
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/core/normalize"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/directory/domain"
	"punchcard/internal/services/directory/repo"
)

// Service implements domain.EmployeesPort and domain.DevicesPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// New constructs a new directory service
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage]) *Service {
	return &Service{DB: db, Binder: b}
}

// Create registers a new employee; codes are canonicalized before storage
func (s *Service) Create(ctx context.Context, in domain.CreateEmployeeInput) (domain.Employee, error) {
	code := normalize.Code(in.Code)
	if code == "" {
		return domain.Employee{}, perr.WithField(perr.InvalidArgf("employee code is empty after canonicalization"), "employee_code")
	}

	var out domain.Employee
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).InsertEmployee(ctx, domain.Employee{
			Code:     code,
			FullName: in.FullName,
			Status:   domain.EmployeeActive,
			ShiftID:  in.ShiftID,
		})
		return err
	})
	if perr.IsDuplicateKey(err) {
		return domain.Employee{}, perr.Conflictf("employee code %q already exists", code)
	}
	if err != nil {
		return domain.Employee{}, perr.FromPostgresf(err, "create employee")
	}
	return out, nil
}

// Get fetches an employee by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Employee, error) {
	var out domain.Employee
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).GetEmployee(ctx, id)
		return err
	})
	return out, err
}

// GetByCode fetches an employee by code, canonicalizing the input first
func (s *Service) GetByCode(ctx context.Context, code string) (domain.Employee, error) {
	var out domain.Employee
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).GetEmployeeByCode(ctx, normalize.Code(code))
		return err
	})
	return out, err
}

// List returns all employees
func (s *Service) List(ctx context.Context) ([]domain.Employee, error) {
	var out []domain.Employee
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).ListEmployees(ctx)
		return err
	})
	return out, err
}

// Update patches an employee; nil input fields keep their stored values
func (s *Service) Update(ctx context.Context, id uuid.UUID, in domain.UpdateEmployeeInput) (domain.Employee, error) {
	var out domain.Employee
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		st := s.Binder.Bind(q)
		cur, err := st.GetEmployee(ctx, id)
		if err != nil {
			return err
		}
		if in.FullName != nil {
			cur.FullName = *in.FullName
		}
		if in.Status != nil {
			cur.Status = *in.Status
		}
		if in.ShiftID != nil {
			cur.ShiftID = in.ShiftID
		}
		out, err = st.UpdateEmployee(ctx, cur)
		return err
	})
	if err != nil {
		return domain.Employee{}, err
	}
	return out, nil
}

// Deactivate soft-deletes an employee
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	st := domain.EmployeeInactive
	_, err := s.Update(ctx, id, domain.UpdateEmployeeInput{Status: &st})
	return err
}

// Devices is the device half of the directory, split out so each port has
// its own receiver type for the module registry
type Devices struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// NewDevices constructs the devices surface
func NewDevices(db repokit.TxRunner, b repokit.Binder[repo.Storage]) *Devices {
	return &Devices{DB: db, Binder: b}
}

// Create registers a new device
func (s *Devices) Create(ctx context.Context, in domain.CreateDeviceInput) (domain.Device, error) {
	code := normalize.Code(in.Code)
	if code == "" {
		return domain.Device{}, perr.WithField(perr.InvalidArgf("device code is empty after canonicalization"), "device_code")
	}

	var out domain.Device
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).InsertDevice(ctx, domain.Device{
			Code:   code,
			Name:   in.Name,
			Status: domain.DeviceActive,
		})
		return err
	})
	if perr.IsDuplicateKey(err) {
		return domain.Device{}, perr.Conflictf("device code %q already exists", code)
	}
	if err != nil {
		return domain.Device{}, perr.FromPostgresf(err, "create device")
	}
	return out, nil
}

// Get fetches a device by id
func (s *Devices) Get(ctx context.Context, id uuid.UUID) (domain.Device, error) {
	var out domain.Device
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).GetDevice(ctx, id)
		return err
	})
	return out, err
}

// GetByCode fetches a device by canonical code
func (s *Devices) GetByCode(ctx context.Context, code string) (domain.Device, error) {
	var out domain.Device
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).GetDeviceByCode(ctx, normalize.Code(code))
		return err
	})
	return out, err
}

// List returns all devices
func (s *Devices) List(ctx context.Context) ([]domain.Device, error) {
	var out []domain.Device
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).ListDevices(ctx)
		return err
	})
	return out, err
}

// Heartbeat touches last_seen for the device
func (s *Devices) Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error {
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).TouchDevice(ctx, id, at)
	})
}

// Deactivate flips the device to INACTIVE
func (s *Devices) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).SetDeviceStatus(ctx, id, domain.DeviceInactive)
	})
}
