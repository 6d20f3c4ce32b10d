// Package domain defines core types for the employee and device directory
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EmployeeStatus enumerates employee lifecycle states
type EmployeeStatus string

// Employee statuses
const (
	EmployeeActive    EmployeeStatus = "ACTIVE"
	EmployeeInactive  EmployeeStatus = "INACTIVE"
	EmployeeSuspended EmployeeStatus = "SUSPENDED"
)

// Employee is a person known to the attendance system
type Employee struct {
	ID        uuid.UUID      `json:"id"`
	Code      string         `json:"employee_code"` // canonical, unique
	FullName  string         `json:"full_name"`
	Status    EmployeeStatus `json:"status"`
	ShiftID   *uuid.UUID     `json:"shift_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DeviceStatus enumerates device lifecycle states
type DeviceStatus string

// Device statuses
const (
	DeviceActive   DeviceStatus = "ACTIVE"
	DeviceInactive DeviceStatus = "INACTIVE"
)

// Device is an edge camera pushing recognition events
type Device struct {
	ID        uuid.UUID    `json:"id"`
	Code      string       `json:"device_code"` // canonical, unique
	Name      string       `json:"name"`
	Status    DeviceStatus `json:"status"`
	LastSeen  *time.Time   `json:"last_seen,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// CreateEmployeeInput creates an employee
type CreateEmployeeInput struct {
	Code     string     `json:"employee_code" validate:"required,max=32"`
	FullName string     `json:"full_name"     validate:"required,max=128"`
	ShiftID  *uuid.UUID `json:"shift_id"`
}

// UpdateEmployeeInput patches an employee; nil fields are left untouched
type UpdateEmployeeInput struct {
	FullName *string         `json:"full_name" validate:"omitempty,max=128"`
	Status   *EmployeeStatus `json:"status"    validate:"omitempty,oneof=ACTIVE INACTIVE SUSPENDED"`
	ShiftID  *uuid.UUID      `json:"shift_id"`
}

// CreateDeviceInput creates a device
type CreateDeviceInput struct {
	Code string `json:"device_code" validate:"required,max=32"`
	Name string `json:"name"        validate:"omitempty,max=128"`
}
