// Package domain defines shifts, attendance policies and evaluation results
package domain

import (
	"time"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
)

// Shift is a named working window in the business zone
type Shift struct {
	ID                 uuid.UUID           `json:"id"`
	Name               string              `json:"name"`
	StartTime          clockwork.TimeOfDay `json:"start_time"`
	EndTime            clockwork.TimeOfDay `json:"end_time"`
	Timezone           string              `json:"timezone"`
	GracePeriodMinutes int                 `json:"grace_period_minutes"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// IsOvernight reports whether the shift crosses midnight (end at or before start)
func (s Shift) IsOvernight() bool { return !s.EndTime.After(s.StartTime) }

// EventType is the direction of an attendance punch
type EventType string

// Event types
const (
	EventIn  EventType = "IN"
	EventOut EventType = "OUT"
)

// Status classifies an approved punch against the shift boundary
type Status string

// Attendance statuses
const (
	StatusEarlyIn     Status = "EARLY_IN"
	StatusOnTimeIn    Status = "ON_TIME_IN"
	StatusLateIn      Status = "LATE_IN"
	StatusEarlyOut    Status = "EARLY_OUT"
	StatusOnTimeOut   Status = "ON_TIME_OUT"
	StatusOvertimeOut Status = "OVERTIME_OUT"
)

// Policy is the configurable rule set applied to punches for one shift
type Policy struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ShiftID     uuid.UUID `json:"shift_id"`

	// admission window offsets, minutes relative to the shift boundary
	EntryStartMin int `json:"entry_start_min"`
	EntryEndMin   int `json:"entry_end_min"`
	ExitStartMin  int `json:"exit_start_min"`
	ExitEndMin    int `json:"exit_end_min"`

	// grace periods and overtime threshold, minutes
	EarlyArrivalGraceMin   int `json:"early_arrival_grace_min"`
	LateArrivalGraceMin    int `json:"late_arrival_grace_min"`
	EarlyDepartureGraceMin int `json:"early_departure_grace_min"`
	OvertimeThresholdMin   int `json:"overtime_threshold_min"`

	// cool-downs between consecutive punches, minutes
	InToOutCooldownMin int `json:"in_to_out_cooldown_min"`
	OutToInCooldownMin int `json:"out_to_in_cooldown_min"`

	BreakStart *clockwork.TimeOfDay `json:"break_start,omitempty"`
	BreakEnd   *clockwork.TimeOfDay `json:"break_end,omitempty"`

	AllowWeekend bool `json:"allow_weekend"`
	AllowHoliday bool `json:"allow_holiday"`

	AutoClockOutEnabled bool                 `json:"auto_clock_out_enabled"`
	AutoClockOutTime    *clockwork.TimeOfDay `json:"auto_clock_out_time,omitempty"`

	IsActive  bool `json:"is_active"`
	IsDefault bool `json:"is_default"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Policy defaults applied when create inputs leave a knob unset
const (
	DefaultEntryStartMin          = 30
	DefaultEntryEndMin            = 120
	DefaultExitStartMin           = 30
	DefaultExitEndMin             = 120
	DefaultEarlyArrivalGraceMin   = 15
	DefaultLateArrivalGraceMin    = 10
	DefaultEarlyDepartureGraceMin = 15
	DefaultOvertimeThresholdMin   = 30
	DefaultInToOutCooldownMin     = 30
	DefaultOutToInCooldownMin     = 15
)

// EntryWindow is the admission interval for IN punches
func (p Policy) EntryWindow(s Shift) (start, end clockwork.TimeOfDay) {
	return s.StartTime.AddMinutes(-p.EntryStartMin), s.StartTime.AddMinutes(p.EntryEndMin)
}

// ExitWindow is the admission interval for OUT punches
func (p Policy) ExitWindow(s Shift) (start, end clockwork.TimeOfDay) {
	return s.EndTime.AddMinutes(-p.ExitStartMin), s.EndTime.AddMinutes(p.ExitEndMin)
}

// Compliance carries the metrics computed for an approved punch
type Compliance struct {
	IsLate                bool `json:"is_late"`
	IsEarlyLeave          bool `json:"is_early_leave"`
	IsOvertime            bool `json:"is_overtime"`
	LateMinutes           int  `json:"late_minutes"`
	OvertimeMinutes       int  `json:"overtime_minutes"`
	EarlyDepartureMinutes int  `json:"early_departure_minutes"`
	WithinBreak           bool `json:"within_break"`
}

// Evaluation is the evaluator verdict for one punch
// on rejection only Approved and RejectionReason are meaningful
type Evaluation struct {
	Approved        bool       `json:"approved"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	EventType       EventType  `json:"event_type,omitempty"`
	Status          Status     `json:"status,omitempty"`
	Compliance      Compliance `json:"compliance"`
}

// Rejected builds a rejection verdict
func Rejected(reason string) Evaluation {
	return Evaluation{Approved: false, RejectionReason: reason}
}

// Approved builds an approval verdict
func Approved(et EventType, st Status, c Compliance) Evaluation {
	return Evaluation{Approved: true, EventType: et, Status: st, Compliance: c}
}

// LastRecord is the slice of ledger state the evaluator needs
type LastRecord struct {
	EventType EventType
	EventTime time.Time
}

// CreateShiftInput creates a shift; times are HH:MM[:SS] strings
type CreateShiftInput struct {
	Name               string `json:"name"       validate:"required,max=100"`
	StartTime          string `json:"start_time" validate:"required,timeofday"`
	EndTime            string `json:"end_time"   validate:"required,timeofday"`
	Timezone           string `json:"timezone"   validate:"omitempty,max=64"`
	GracePeriodMinutes int    `json:"grace_period_minutes" validate:"gte=0,lte=720"`
}

// CreatePolicyInput creates a policy; nil knobs fall back to defaults
type CreatePolicyInput struct {
	Name        string    `json:"name"        validate:"required,max=100"`
	Description string    `json:"description" validate:"omitempty,max=2000"`
	ShiftID     uuid.UUID `json:"shift_id"    validate:"required"`

	EntryStartMin *int `json:"entry_start_min" validate:"omitempty,gte=0,lte=720"`
	EntryEndMin   *int `json:"entry_end_min"   validate:"omitempty,gte=0,lte=720"`
	ExitStartMin  *int `json:"exit_start_min"  validate:"omitempty,gte=0,lte=720"`
	ExitEndMin    *int `json:"exit_end_min"    validate:"omitempty,gte=0,lte=720"`

	EarlyArrivalGraceMin   *int `json:"early_arrival_grace_min"   validate:"omitempty,gte=0,lte=720"`
	LateArrivalGraceMin    *int `json:"late_arrival_grace_min"    validate:"omitempty,gte=0,lte=720"`
	EarlyDepartureGraceMin *int `json:"early_departure_grace_min" validate:"omitempty,gte=0,lte=720"`
	OvertimeThresholdMin   *int `json:"overtime_threshold_min"    validate:"omitempty,gte=0,lte=720"`

	InToOutCooldownMin *int `json:"in_to_out_cooldown_min" validate:"omitempty,gte=0,lte=720"`
	OutToInCooldownMin *int `json:"out_to_in_cooldown_min" validate:"omitempty,gte=0,lte=720"`

	BreakStart *string `json:"break_start" validate:"omitempty,timeofday"`
	BreakEnd   *string `json:"break_end"   validate:"omitempty,timeofday"`

	AllowWeekend bool `json:"allow_weekend"`
	AllowHoliday bool `json:"allow_holiday"`

	AutoClockOutEnabled bool    `json:"auto_clock_out_enabled"`
	AutoClockOutTime    *string `json:"auto_clock_out_time" validate:"omitempty,timeofday"`

	IsDefault bool `json:"is_default"`
}
