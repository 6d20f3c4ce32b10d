package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
)

// ShiftsPort is the admin surface for shifts
type ShiftsPort interface {
	Create(ctx context.Context, in CreateShiftInput) (Shift, error)
	Get(ctx context.Context, id uuid.UUID) (Shift, error)
	List(ctx context.Context) ([]Shift, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PoliciesPort is the admin surface for attendance policies
type PoliciesPort interface {
	Create(ctx context.Context, in CreatePolicyInput) (Policy, error)
	Get(ctx context.Context, id uuid.UUID) (Policy, error)
	List(ctx context.Context) ([]Policy, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// HolidayHook decides whether a business date is a holiday
// the core ships no holiday calendar; the default hook always says no
type HolidayHook func(ctx context.Context, d clockwork.Date) bool

// EvaluatorPort is what ingestion consumes to judge a punch
type EvaluatorPort interface {
	// Evaluate judges a punch for an employee whose shift may be nil.
	// Rejections come back inside the Evaluation, not as errors
	Evaluate(ctx context.Context, shiftID *uuid.UUID, capturedAt time.Time, last *LastRecord) (Evaluation, error)

	// AttendanceAllowed applies the weekend/holiday gate for a business date
	AttendanceAllowed(ctx context.Context, shiftID *uuid.UUID, d clockwork.Date) (bool, error)

	// AutoClockOutDue reports whether the applicable policy wants an automatic
	// OUT at the current business time
	AutoClockOutDue(ctx context.Context, shiftID *uuid.UUID) (bool, error)
}
