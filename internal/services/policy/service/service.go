// Package service provides shift and policy administration plus the evaluator
package service

import (
	"context"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/policy/domain"
	"punchcard/internal/services/policy/repo"
)

// Shifts implements domain.ShiftsPort
type Shifts struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]

	// DefaultZone names the business zone stamped on shifts created without one
	DefaultZone string
}

// NewShifts constructs the shift admin surface
func NewShifts(db repokit.TxRunner, b repokit.Binder[repo.Storage], defaultZone string) *Shifts {
	return &Shifts{DB: db, Binder: b, DefaultZone: defaultZone}
}

// Create persists a new shift from validated input
func (s *Shifts) Create(ctx context.Context, in domain.CreateShiftInput) (domain.Shift, error) {
	start, err := clockwork.ParseTimeOfDay(in.StartTime)
	if err != nil {
		return domain.Shift{}, perr.WithField(err, "start_time")
	}
	end, err := clockwork.ParseTimeOfDay(in.EndTime)
	if err != nil {
		return domain.Shift{}, perr.WithField(err, "end_time")
	}
	zone := in.Timezone
	if zone == "" {
		zone = s.DefaultZone
	}
	if _, err := clockwork.LoadZone(zone); err != nil {
		return domain.Shift{}, perr.WithField(err, "timezone")
	}

	var out domain.Shift
	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).InsertShift(ctx, domain.Shift{
			Name:               in.Name,
			StartTime:          start,
			EndTime:            end,
			Timezone:           zone,
			GracePeriodMinutes: in.GracePeriodMinutes,
		})
		return err
	})
	if err != nil {
		return domain.Shift{}, perr.FromPostgresf(err, "create shift")
	}
	return out, nil
}

// Get fetches a shift by id
func (s *Shifts) Get(ctx context.Context, id uuid.UUID) (domain.Shift, error) {
	var out domain.Shift
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).GetShift(ctx, id)
		return err
	})
	return out, err
}

// List returns all shifts
func (s *Shifts) List(ctx context.Context) ([]domain.Shift, error) {
	var out []domain.Shift
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).ListShifts(ctx)
		return err
	})
	return out, err
}

// Delete removes a shift; shifts referenced by policies stay put
func (s *Shifts) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).DeleteShift(ctx, id)
	})
	if perr.IsForeignKeyViolation(err) {
		return perr.Conflictf("shift is referenced by a policy")
	}
	return err
}

// Policies implements domain.PoliciesPort
type Policies struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// NewPolicies constructs the policy admin surface
func NewPolicies(db repokit.TxRunner, b repokit.Binder[repo.Storage]) *Policies {
	return &Policies{DB: db, Binder: b}
}

func intOr(p *int, def int) int {
	if p != nil {
		return *p
	}
	return def
}

func timeOr(p *string) (*clockwork.TimeOfDay, error) {
	if p == nil {
		return nil, nil
	}
	t, err := clockwork.ParseTimeOfDay(*p)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Create persists a new active policy; unset knobs take the documented defaults
func (s *Policies) Create(ctx context.Context, in domain.CreatePolicyInput) (domain.Policy, error) {
	breakStart, err := timeOr(in.BreakStart)
	if err != nil {
		return domain.Policy{}, perr.WithField(err, "break_start")
	}
	breakEnd, err := timeOr(in.BreakEnd)
	if err != nil {
		return domain.Policy{}, perr.WithField(err, "break_end")
	}
	autoTime, err := timeOr(in.AutoClockOutTime)
	if err != nil {
		return domain.Policy{}, perr.WithField(err, "auto_clock_out_time")
	}
	if (breakStart == nil) != (breakEnd == nil) {
		return domain.Policy{}, perr.InvalidArgf("break_start and break_end must be set together")
	}

	p := domain.Policy{
		Name:        in.Name,
		Description: in.Description,
		ShiftID:     in.ShiftID,

		EntryStartMin: intOr(in.EntryStartMin, domain.DefaultEntryStartMin),
		EntryEndMin:   intOr(in.EntryEndMin, domain.DefaultEntryEndMin),
		ExitStartMin:  intOr(in.ExitStartMin, domain.DefaultExitStartMin),
		ExitEndMin:    intOr(in.ExitEndMin, domain.DefaultExitEndMin),

		EarlyArrivalGraceMin:   intOr(in.EarlyArrivalGraceMin, domain.DefaultEarlyArrivalGraceMin),
		LateArrivalGraceMin:    intOr(in.LateArrivalGraceMin, domain.DefaultLateArrivalGraceMin),
		EarlyDepartureGraceMin: intOr(in.EarlyDepartureGraceMin, domain.DefaultEarlyDepartureGraceMin),
		OvertimeThresholdMin:   intOr(in.OvertimeThresholdMin, domain.DefaultOvertimeThresholdMin),

		InToOutCooldownMin: intOr(in.InToOutCooldownMin, domain.DefaultInToOutCooldownMin),
		OutToInCooldownMin: intOr(in.OutToInCooldownMin, domain.DefaultOutToInCooldownMin),

		BreakStart: breakStart,
		BreakEnd:   breakEnd,

		AllowWeekend: in.AllowWeekend,
		AllowHoliday: in.AllowHoliday,

		AutoClockOutEnabled: in.AutoClockOutEnabled,
		AutoClockOutTime:    autoTime,

		IsActive:  true,
		IsDefault: in.IsDefault,
	}

	var out domain.Policy
	err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).InsertPolicy(ctx, p)
		return err
	})
	if perr.IsDuplicateKey(err) {
		// partial uniques: one active policy per shift, one active default
		return domain.Policy{}, perr.Conflictf("an active policy already exists for this scope")
	}
	if perr.IsForeignKeyViolation(err) {
		return domain.Policy{}, perr.WithField(perr.InvalidArgf("shift does not exist"), "shift_id")
	}
	if err != nil {
		return domain.Policy{}, perr.FromPostgresf(err, "create policy")
	}
	return out, nil
}

// Get fetches a policy by id
func (s *Policies) Get(ctx context.Context, id uuid.UUID) (domain.Policy, error) {
	var out domain.Policy
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).GetPolicy(ctx, id)
		return err
	})
	return out, err
}

// List returns all policies
func (s *Policies) List(ctx context.Context) ([]domain.Policy, error) {
	var out []domain.Policy
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).ListPolicies(ctx)
		return err
	})
	return out, err
}

// Deactivate retires a policy without deleting its history
func (s *Policies) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.DB.Tx(ctx, func(q repokit.Queryer) error {
		return s.Binder.Bind(q).SetPolicyActive(ctx, id, false)
	})
}
