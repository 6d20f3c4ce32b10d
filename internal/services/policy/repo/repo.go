// Package repo provides repository implementations for shifts and policies
package repo

import (
	"context"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/policy/domain"
)

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the policy repository
type Storage interface {
	InsertShift(ctx context.Context, s domain.Shift) (domain.Shift, error)
	GetShift(ctx context.Context, id uuid.UUID) (domain.Shift, error)
	ListShifts(ctx context.Context) ([]domain.Shift, error)
	DeleteShift(ctx context.Context, id uuid.UUID) error

	InsertPolicy(ctx context.Context, p domain.Policy) (domain.Policy, error)
	GetPolicy(ctx context.Context, id uuid.UUID) (domain.Policy, error)
	ListPolicies(ctx context.Context) ([]domain.Policy, error)
	SetPolicyActive(ctx context.Context, id uuid.UUID, active bool) error

	// ActiveForShift and ActiveDefault back policy resolution during evaluation;
	// partial unique indexes guarantee at most one row each
	ActiveForShift(ctx context.Context, shiftID uuid.UUID) (domain.Policy, error)
	ActiveDefault(ctx context.Context) (domain.Policy, error)
}

type pg struct{ q repokit.Queryer }

// Postgres TIME columns travel as text on the wire here; clockwork owns parsing
const shiftCols = `id, name, start_time::text, end_time::text, timezone, grace_period_minutes, created_at, updated_at`

func scanShift(scan func(dest ...any) error) (domain.Shift, error) {
	var (
		s          domain.Shift
		start, end string
	)
	if err := scan(&s.ID, &s.Name, &start, &end, &s.Timezone, &s.GracePeriodMinutes, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.Shift{}, err
	}
	var err error
	if s.StartTime, err = clockwork.ParseTimeOfDay(start); err != nil {
		return domain.Shift{}, err
	}
	if s.EndTime, err = clockwork.ParseTimeOfDay(end); err != nil {
		return domain.Shift{}, err
	}
	return s, nil
}

// InsertShift persists a new shift and returns the stored row
func (s *pg) InsertShift(ctx context.Context, sh domain.Shift) (domain.Shift, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO shifts (name, start_time, end_time, timezone, grace_period_minutes)
		VALUES ($1, $2::time, $3::time, $4, $5)
		RETURNING `+shiftCols,
		sh.Name, sh.StartTime.String(), sh.EndTime.String(), sh.Timezone, sh.GracePeriodMinutes,
	)
	return scanShift(row.Scan)
}

// GetShift fetches a shift by id
func (s *pg) GetShift(ctx context.Context, id uuid.UUID) (domain.Shift, error) {
	row := s.q.QueryRow(ctx, `SELECT `+shiftCols+` FROM shifts WHERE id = $1`, id)
	return scanShift(row.Scan)
}

// ListShifts returns all shifts ordered by name
func (s *pg) ListShifts(ctx context.Context) ([]domain.Shift, error) {
	rows, err := s.q.Query(ctx, `SELECT `+shiftCols+` FROM shifts ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Shift
	for rows.Next() {
		sh, err := scanShift(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	return out, rows.Err()
}

// DeleteShift removes a shift; referencing policies make this fail with an FK violation
func (s *pg) DeleteShift(ctx context.Context, id uuid.UUID) error {
	_, err := s.q.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	return err
}

const policyCols = `id, name, description, shift_id,
	entry_window_start_minutes, entry_window_end_minutes,
	exit_window_start_minutes, exit_window_end_minutes,
	early_arrival_grace_minutes, late_arrival_grace_minutes,
	early_departure_grace_minutes, overtime_threshold_minutes,
	in_to_out_cooldown_minutes, out_to_in_cooldown_minutes,
	break_start_time::text, break_end_time::text,
	allow_weekend_attendance, allow_holiday_attendance,
	auto_clock_out_enabled, auto_clock_out_time::text,
	is_active, is_default, created_at, updated_at`

func scanPolicy(scan func(dest ...any) error) (domain.Policy, error) {
	var (
		p                              domain.Policy
		breakStart, breakEnd, autoTime *string
	)
	err := scan(
		&p.ID, &p.Name, &p.Description, &p.ShiftID,
		&p.EntryStartMin, &p.EntryEndMin,
		&p.ExitStartMin, &p.ExitEndMin,
		&p.EarlyArrivalGraceMin, &p.LateArrivalGraceMin,
		&p.EarlyDepartureGraceMin, &p.OvertimeThresholdMin,
		&p.InToOutCooldownMin, &p.OutToInCooldownMin,
		&breakStart, &breakEnd,
		&p.AllowWeekend, &p.AllowHoliday,
		&p.AutoClockOutEnabled, &autoTime,
		&p.IsActive, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return domain.Policy{}, err
	}
	if p.BreakStart, err = parseOptionalTime(breakStart); err != nil {
		return domain.Policy{}, err
	}
	if p.BreakEnd, err = parseOptionalTime(breakEnd); err != nil {
		return domain.Policy{}, err
	}
	if p.AutoClockOutTime, err = parseOptionalTime(autoTime); err != nil {
		return domain.Policy{}, err
	}
	return p, nil
}

func parseOptionalTime(s *string) (*clockwork.TimeOfDay, error) {
	if s == nil {
		return nil, nil
	}
	t, err := clockwork.ParseTimeOfDay(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func timeArg(t *clockwork.TimeOfDay) *string {
	if t == nil {
		return nil
	}
	s := t.String()
	return &s
}

// InsertPolicy persists a new policy and returns the stored row
func (s *pg) InsertPolicy(ctx context.Context, p domain.Policy) (domain.Policy, error) {
	row := s.q.QueryRow(ctx, `
		INSERT INTO attendance_policies (
			name, description, shift_id,
			entry_window_start_minutes, entry_window_end_minutes,
			exit_window_start_minutes, exit_window_end_minutes,
			early_arrival_grace_minutes, late_arrival_grace_minutes,
			early_departure_grace_minutes, overtime_threshold_minutes,
			in_to_out_cooldown_minutes, out_to_in_cooldown_minutes,
			break_start_time, break_end_time,
			allow_weekend_attendance, allow_holiday_attendance,
			auto_clock_out_enabled, auto_clock_out_time,
			is_active, is_default
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
			$14::time, $15::time, $16, $17, $18, $19::time, $20, $21)
		RETURNING `+policyCols,
		p.Name, p.Description, p.ShiftID,
		p.EntryStartMin, p.EntryEndMin,
		p.ExitStartMin, p.ExitEndMin,
		p.EarlyArrivalGraceMin, p.LateArrivalGraceMin,
		p.EarlyDepartureGraceMin, p.OvertimeThresholdMin,
		p.InToOutCooldownMin, p.OutToInCooldownMin,
		timeArg(p.BreakStart), timeArg(p.BreakEnd),
		p.AllowWeekend, p.AllowHoliday,
		p.AutoClockOutEnabled, timeArg(p.AutoClockOutTime),
		p.IsActive, p.IsDefault,
	)
	return scanPolicy(row.Scan)
}

// GetPolicy fetches a policy by id
func (s *pg) GetPolicy(ctx context.Context, id uuid.UUID) (domain.Policy, error) {
	row := s.q.QueryRow(ctx, `SELECT `+policyCols+` FROM attendance_policies WHERE id = $1`, id)
	return scanPolicy(row.Scan)
}

// ListPolicies returns all policies, active first then by name
func (s *pg) ListPolicies(ctx context.Context) ([]domain.Policy, error) {
	rows, err := s.q.Query(ctx, `SELECT `+policyCols+` FROM attendance_policies ORDER BY is_active DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetPolicyActive flips is_active
func (s *pg) SetPolicyActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := s.q.Exec(ctx, `UPDATE attendance_policies SET is_active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return perr.ErrNotFound
	}
	return nil
}

// ActiveForShift returns the single active policy for a shift
func (s *pg) ActiveForShift(ctx context.Context, shiftID uuid.UUID) (domain.Policy, error) {
	row := s.q.QueryRow(ctx, `SELECT `+policyCols+` FROM attendance_policies WHERE shift_id = $1 AND is_active`, shiftID)
	return scanPolicy(row.Scan)
}

// ActiveDefault returns the single active default policy
func (s *pg) ActiveDefault(ctx context.Context) (domain.Policy, error) {
	row := s.q.QueryRow(ctx, `SELECT `+policyCols+` FROM attendance_policies WHERE is_default AND is_active`)
	return scanPolicy(row.Scan)
}
