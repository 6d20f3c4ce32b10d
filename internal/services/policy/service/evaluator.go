package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/policy/domain"
	"punchcard/internal/services/policy/repo"
)

// ReasonNoPolicy is returned when neither a shift policy nor a default exists
const ReasonNoPolicy = "No attendance policy configured"

// Evaluator implements domain.EvaluatorPort
type Evaluator struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
	Zone   clockwork.Zone
	Clock  clockwork.Clock

	// Holiday defaults to "never a holiday" until a calendar is wired in
	Holiday domain.HolidayHook
}

// NewEvaluator constructs the evaluator
func NewEvaluator(db repokit.TxRunner, b repokit.Binder[repo.Storage], zone clockwork.Zone, clock clockwork.Clock) *Evaluator {
	if clock == nil {
		clock = clockwork.System()
	}
	return &Evaluator{
		DB:      db,
		Binder:  b,
		Zone:    zone,
		Clock:   clock,
		Holiday: func(context.Context, clockwork.Date) bool { return false },
	}
}

// resolve picks the active policy for the shift, falling back to the active
// default, and loads the policy's shift for window arithmetic
func (e *Evaluator) resolve(ctx context.Context, st repo.Storage, shiftID *uuid.UUID) (domain.Policy, domain.Shift, bool, error) {
	var pol domain.Policy
	var err error

	found := false
	if shiftID != nil {
		pol, err = st.ActiveForShift(ctx, *shiftID)
		switch {
		case err == nil:
			found = true
		case perr.IsCode(err, perr.ErrorCodeNotFound):
		default:
			return domain.Policy{}, domain.Shift{}, false, err
		}
	}
	if !found {
		pol, err = st.ActiveDefault(ctx)
		switch {
		case err == nil:
			found = true
		case perr.IsCode(err, perr.ErrorCodeNotFound):
			return domain.Policy{}, domain.Shift{}, false, nil
		default:
			return domain.Policy{}, domain.Shift{}, false, err
		}
	}

	sh, err := st.GetShift(ctx, pol.ShiftID)
	if err != nil {
		return domain.Policy{}, domain.Shift{}, false, err
	}
	return pol, sh, true, nil
}

// Evaluate judges a punch; see Judge for the pure decision logic
func (e *Evaluator) Evaluate(ctx context.Context, shiftID *uuid.UUID, capturedAt time.Time, last *domain.LastRecord) (domain.Evaluation, error) {
	var ev domain.Evaluation
	err := e.DB.Tx(ctx, func(q repokit.Queryer) error {
		pol, sh, ok, err := e.resolve(ctx, e.Binder.Bind(q), shiftID)
		if err != nil {
			return err
		}
		if !ok {
			ev = domain.Rejected(ReasonNoPolicy)
			return nil
		}
		ev = Judge(pol, sh, e.Zone, capturedAt, last)
		return nil
	})
	if err != nil {
		return domain.Evaluation{}, err
	}
	return ev, nil
}

// AttendanceAllowed applies the weekend/holiday gate
func (e *Evaluator) AttendanceAllowed(ctx context.Context, shiftID *uuid.UUID, d clockwork.Date) (bool, error) {
	var allowed bool
	err := e.DB.Tx(ctx, func(q repokit.Queryer) error {
		pol, _, ok, err := e.resolve(ctx, e.Binder.Bind(q), shiftID)
		if err != nil {
			return err
		}
		if !ok {
			allowed = false
			return nil
		}
		wd := d.Weekday()
		if (wd == time.Saturday || wd == time.Sunday) && !pol.AllowWeekend {
			allowed = false
			return nil
		}
		if e.Holiday(ctx, d) && !pol.AllowHoliday {
			allowed = false
			return nil
		}
		allowed = true
		return nil
	})
	return allowed, err
}

// AutoClockOutDue reports whether the applicable policy wants an automatic OUT now
func (e *Evaluator) AutoClockOutDue(ctx context.Context, shiftID *uuid.UUID) (bool, error) {
	var due bool
	err := e.DB.Tx(ctx, func(q repokit.Queryer) error {
		pol, _, ok, err := e.resolve(ctx, e.Binder.Bind(q), shiftID)
		if err != nil {
			return err
		}
		if !ok || !pol.AutoClockOutEnabled || pol.AutoClockOutTime == nil {
			due = false
			return nil
		}
		now := e.Zone.BusinessTime(e.Clock.NowUTC())
		due = !now.Before(*pol.AutoClockOutTime)
		return nil
	})
	return due, err
}

// Judge is the pure evaluation of one punch against a policy and its shift.
// Windows are closed intervals; grace boundaries are inclusive on the on-time side
func Judge(pol domain.Policy, sh domain.Shift, zone clockwork.Zone, capturedAt time.Time, last *domain.LastRecord) domain.Evaluation {
	t := zone.BusinessTime(capturedAt)
	overnight := sh.IsOvernight()

	expected := domain.EventIn
	if last != nil && last.EventType == domain.EventIn {
		expected = domain.EventOut
	}

	var wStart, wEnd clockwork.TimeOfDay
	if expected == domain.EventIn {
		wStart, wEnd = pol.EntryWindow(sh)
	} else {
		wStart, wEnd = pol.ExitWindow(sh)
	}
	if !clockwork.InTimeRange(t, wStart, wEnd, overnight) {
		return domain.Rejected(fmt.Sprintf("Outside %s window. Expected window: %s to %s", expected, wStart, wEnd))
	}

	if last != nil {
		delta := clockwork.DurationMinutes(last.EventTime, capturedAt)

		var required int
		var label string
		switch {
		case last.EventType == domain.EventIn && expected == domain.EventOut:
			required, label = pol.InToOutCooldownMin, "IN to OUT"
		case last.EventType == domain.EventOut && expected == domain.EventIn:
			required, label = pol.OutToInCooldownMin, "OUT to IN"
		default:
			required = max(pol.InToOutCooldownMin, pol.OutToInCooldownMin)
			label = "duplicate " + string(expected)
		}
		if delta < required {
			return domain.Rejected(fmt.Sprintf(
				"%s cooldown violation. Required: %d minutes, Actual: %d minutes", label, required, delta))
		}
	}

	boundary := sh.StartTime
	if expected == domain.EventOut {
		boundary = sh.EndTime
	}
	m := clockwork.DurationMinutesOfDay(boundary, t, overnight)

	var status domain.Status
	var comp domain.Compliance
	if expected == domain.EventIn {
		switch {
		case m < -pol.EarlyArrivalGraceMin:
			status = domain.StatusEarlyIn
		case m > pol.LateArrivalGraceMin:
			status = domain.StatusLateIn
		default:
			status = domain.StatusOnTimeIn
		}
		comp.IsLate = status == domain.StatusLateIn
		comp.LateMinutes = max(0, m)
	} else {
		switch {
		case m < -pol.EarlyDepartureGraceMin:
			status = domain.StatusEarlyOut
		case m > pol.OvertimeThresholdMin:
			status = domain.StatusOvertimeOut
		default:
			status = domain.StatusOnTimeOut
		}
		comp.IsEarlyLeave = status == domain.StatusEarlyOut
		comp.IsOvertime = status == domain.StatusOvertimeOut
		comp.OvertimeMinutes = max(0, m)
		comp.EarlyDepartureMinutes = max(0, -m)
	}

	if pol.BreakStart != nil && pol.BreakEnd != nil {
		comp.WithinBreak = clockwork.InTimeRange(t, *pol.BreakStart, *pol.BreakEnd, overnight)
	}

	return domain.Approved(expected, status, comp)
}
