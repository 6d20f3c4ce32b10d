package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EmployeesPort is the directory surface for employees
type EmployeesPort interface {
	Create(ctx context.Context, in CreateEmployeeInput) (Employee, error)
	Get(ctx context.Context, id uuid.UUID) (Employee, error)
	GetByCode(ctx context.Context, code string) (Employee, error)
	List(ctx context.Context) ([]Employee, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateEmployeeInput) (Employee, error)

	// Deactivate soft-deletes: employees referenced by events are never hard-deleted
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// DevicesPort is the directory surface for devices
type DevicesPort interface {
	Create(ctx context.Context, in CreateDeviceInput) (Device, error)
	Get(ctx context.Context, id uuid.UUID) (Device, error)
	GetByCode(ctx context.Context, code string) (Device, error)
	List(ctx context.Context) ([]Device, error)

	// Heartbeat touches last_seen for the device
	Heartbeat(ctx context.Context, id uuid.UUID, at time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}
