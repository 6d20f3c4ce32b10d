// Package domain defines the attendance ledger types
package domain

import (
	"time"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
)

// EventType is the direction of a ledger entry
type EventType string

// Event types
const (
	EventIn  EventType = "IN"
	EventOut EventType = "OUT"
)

// RecordStatus is the ledger entry lifecycle state
type RecordStatus string

// Record statuses
const (
	RecordValid    RecordStatus = "VALID"
	RecordInvalid  RecordStatus = "INVALID"
	RecordAdjusted RecordStatus = "ADJUSTED"
	RecordDisputed RecordStatus = "DISPUTED"
)

// Record is one committed attendance punch
type Record struct {
	ID                 uuid.UUID  `json:"id"`
	EmployeeID         uuid.UUID  `json:"employee_id"`
	DeviceID           *uuid.UUID `json:"device_id,omitempty"`
	RecognitionEventID *uuid.UUID `json:"recognition_event_id,omitempty"`
	ShiftID            *uuid.UUID `json:"shift_id,omitempty"`

	AttendanceDate clockwork.Date `json:"attendance_date"`
	EventTime      time.Time      `json:"event_time"`
	EventType      EventType      `json:"event_type"`

	IsLate       bool `json:"is_late"`
	IsEarlyLeave bool `json:"is_early_leave"`
	IsOvertime   bool `json:"is_overtime"`

	// DurationMinutes is set on OUT when a matching IN exists for the same business date
	DurationMinutes *int `json:"duration_minutes,omitempty"`

	Notes  string       `json:"notes,omitempty"`
	Status RecordStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
