package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/policy/domain"
	"punchcard/internal/services/policy/repo"
)

var dhaka = clockwork.MustLoadZone("Asia/Dhaka")

type passthroughDB struct{}

var _ repokit.TxRunner = passthroughDB{}

func (passthroughDB) Tx(_ context.Context, fn func(q repokit.Queryer) error) error { return fn(nil) }

func (passthroughDB) Exec(context.Context, string, ...any) (repokit.CommandTag, error) {
	panic("not used")
}

func (passthroughDB) Query(context.Context, string, ...any) (repokit.Rows, error) {
	panic("not used")
}

func (passthroughDB) QueryRow(context.Context, string, ...any) repokit.Row { panic("not used") }

// registryFake backs the evaluator with in-memory shifts and policies
type registryFake struct {
	shifts   map[uuid.UUID]domain.Shift
	byShift  map[uuid.UUID]domain.Policy
	fallback *domain.Policy
}

func newRegistryFake() *registryFake {
	return &registryFake{
		shifts:  map[uuid.UUID]domain.Shift{},
		byShift: map[uuid.UUID]domain.Policy{},
	}
}

func (f *registryFake) binder() repokit.Binder[repo.Storage] {
	return repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return f })
}

func (f *registryFake) addShift(start, end string) domain.Shift {
	sh := domain.Shift{
		ID:        uuid.New(),
		Name:      "shift " + start,
		StartTime: clockwork.MustTimeOfDay(start),
		EndTime:   clockwork.MustTimeOfDay(end),
		Timezone:  "Asia/Dhaka",
	}
	f.shifts[sh.ID] = sh
	return sh
}

func (f *registryFake) addPolicy(sh domain.Shift, mut func(*domain.Policy)) domain.Policy {
	p := domain.Policy{
		ID:      uuid.New(),
		Name:    "policy for " + sh.Name,
		ShiftID: sh.ID,

		EntryStartMin: domain.DefaultEntryStartMin,
		EntryEndMin:   domain.DefaultEntryEndMin,
		ExitStartMin:  domain.DefaultExitStartMin,
		ExitEndMin:    domain.DefaultExitEndMin,

		EarlyArrivalGraceMin:   domain.DefaultEarlyArrivalGraceMin,
		LateArrivalGraceMin:    domain.DefaultLateArrivalGraceMin,
		EarlyDepartureGraceMin: domain.DefaultEarlyDepartureGraceMin,
		OvertimeThresholdMin:   domain.DefaultOvertimeThresholdMin,

		InToOutCooldownMin: domain.DefaultInToOutCooldownMin,
		OutToInCooldownMin: domain.DefaultOutToInCooldownMin,

		IsActive: true,
	}
	if mut != nil {
		mut(&p)
	}
	f.byShift[sh.ID] = p
	return p
}

func (f *registryFake) InsertShift(_ context.Context, s domain.Shift) (domain.Shift, error) {
	f.shifts[s.ID] = s
	return s, nil
}

func (f *registryFake) GetShift(_ context.Context, id uuid.UUID) (domain.Shift, error) {
	sh, ok := f.shifts[id]
	if !ok {
		return domain.Shift{}, perr.ErrNotFound
	}
	return sh, nil
}

func (f *registryFake) ListShifts(context.Context) ([]domain.Shift, error) { return nil, nil }
func (f *registryFake) DeleteShift(context.Context, uuid.UUID) error      { return nil }

func (f *registryFake) InsertPolicy(_ context.Context, p domain.Policy) (domain.Policy, error) {
	f.byShift[p.ShiftID] = p
	return p, nil
}

func (f *registryFake) GetPolicy(context.Context, uuid.UUID) (domain.Policy, error) {
	return domain.Policy{}, perr.ErrNotFound
}
func (f *registryFake) ListPolicies(context.Context) ([]domain.Policy, error)  { return nil, nil }
func (f *registryFake) SetPolicyActive(context.Context, uuid.UUID, bool) error { return nil }

func (f *registryFake) ActiveForShift(_ context.Context, shiftID uuid.UUID) (domain.Policy, error) {
	p, ok := f.byShift[shiftID]
	if !ok {
		return domain.Policy{}, perr.ErrNotFound
	}
	return p, nil
}

func (f *registryFake) ActiveDefault(context.Context) (domain.Policy, error) {
	if f.fallback == nil {
		return domain.Policy{}, perr.ErrNotFound
	}
	return *f.fallback, nil
}

func newEvaluator(f *registryFake) *Evaluator {
	return NewEvaluator(passthroughDB{}, f.binder(), dhaka, clockwork.System())
}

func utc(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestEvaluateNoPolicy(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	ev := newEvaluator(f)

	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T03:05:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Approved || got.RejectionReason != "No attendance policy configured" {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateFallsBackToDefaultPolicy(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	p := f.addPolicy(sh, nil)
	delete(f.byShift, sh.ID)
	f.fallback = &p

	got, err := newEvaluator(f).Evaluate(context.Background(), nil, utc("2024-01-15T03:05:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || got.Status != domain.StatusOnTimeIn {
		t.Fatalf("got %+v", got)
	}
}

func TestEvaluateOnTimeIn(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)

	// 03:05Z is 09:05 in Dhaka, five minutes into a ten minute grace
	got, err := newEvaluator(f).Evaluate(context.Background(), &sh.ID, utc("2024-01-15T03:05:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || got.EventType != domain.EventIn || got.Status != domain.StatusOnTimeIn {
		t.Fatalf("got %+v", got)
	}
	if got.Compliance.IsLate {
		t.Fatal("on-time IN marked late")
	}
}

func TestEvaluateLateIn(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)

	got, err := newEvaluator(f).Evaluate(context.Background(), &sh.ID, utc("2024-01-15T03:15:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Status != domain.StatusLateIn || !got.Compliance.IsLate {
		t.Fatalf("got %+v", got)
	}
	if got.Compliance.LateMinutes != 15 {
		t.Fatalf("late minutes = %d, want 15", got.Compliance.LateMinutes)
	}
}

func TestEvaluateOutsideEntryWindow(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)

	// 05:30Z is 11:30 in Dhaka, past the 120 minute entry end
	got, err := newEvaluator(f).Evaluate(context.Background(), &sh.ID, utc("2024-01-15T05:30:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := "Outside IN window. Expected window: 08:30:00 to 11:00:00"
	if got.Approved || got.RejectionReason != want {
		t.Fatalf("reason = %q, want %q", got.RejectionReason, want)
	}
}

func TestEvaluateWindowBoundariesInclusive(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)
	ev := newEvaluator(f)

	// 02:30Z = 08:30 local, exact window start; early beyond grace but admitted
	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T02:30:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || got.Status != domain.StatusEarlyIn {
		t.Fatalf("window start: got %+v", got)
	}

	// 05:00Z = 11:00 local, exact window end
	got, err = ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T05:00:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || got.Status != domain.StatusLateIn {
		t.Fatalf("window end: got %+v", got)
	}
}

func TestEvaluateGraceBoundariesOnTime(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)
	ev := newEvaluator(f)

	// m = -15, exactly the early arrival grace
	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T02:45:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Status != domain.StatusOnTimeIn {
		t.Fatalf("m=-grace: status = %s, want ON_TIME_IN", got.Status)
	}

	// m = +10, exactly the late arrival grace
	got, err = ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T03:10:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Status != domain.StatusOnTimeIn {
		t.Fatalf("m=+grace: status = %s, want ON_TIME_IN", got.Status)
	}
}

func TestEvaluateCooldownViolation(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	// widen the exit window so the punch reaches the cool-down check
	f.addPolicy(sh, func(p *domain.Policy) { p.ExitStartMin = 600 })
	ev := newEvaluator(f)

	last := &domain.LastRecord{EventType: domain.EventIn, EventTime: utc("2024-01-15T03:05:00Z")}
	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T03:25:00Z"), last)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := "IN to OUT cooldown violation. Required: 30 minutes, Actual: 20 minutes"
	if got.Approved || got.RejectionReason != want {
		t.Fatalf("reason = %q, want %q", got.RejectionReason, want)
	}
}

func TestEvaluateOutToInCooldown(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)
	ev := newEvaluator(f)

	// last OUT ten minutes ago, next IN still inside the entry window
	last := &domain.LastRecord{EventType: domain.EventOut, EventTime: utc("2024-01-15T03:00:00Z")}
	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T03:10:00Z"), last)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := "OUT to IN cooldown violation. Required: 15 minutes, Actual: 10 minutes"
	if got.Approved || got.RejectionReason != want {
		t.Fatalf("reason = %q, want %q", got.RejectionReason, want)
	}
}

func TestEvaluateOvertimeOut(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)
	ev := newEvaluator(f)

	// 12:30Z = 18:30 local, 90 minutes past shift end with a 30 minute threshold
	last := &domain.LastRecord{EventType: domain.EventIn, EventTime: utc("2024-01-15T03:05:00Z")}
	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T12:30:00Z"), last)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || got.EventType != domain.EventOut || got.Status != domain.StatusOvertimeOut {
		t.Fatalf("got %+v", got)
	}
	if !got.Compliance.IsOvertime || got.Compliance.OvertimeMinutes != 90 {
		t.Fatalf("compliance = %+v", got.Compliance)
	}
}

func TestEvaluateOvernightShift(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("22:00", "06:00")
	f.addPolicy(sh, func(p *domain.Policy) { p.OvertimeThresholdMin = 15 })
	ev := newEvaluator(f)

	// 16:05Z = 22:05 local, five minutes in
	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T16:05:00Z"), nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || got.Status != domain.StatusOnTimeIn {
		t.Fatalf("overnight IN: got %+v", got)
	}

	// 00:30Z next day = 06:30 local, past the end with a 15 minute threshold
	last := &domain.LastRecord{EventType: domain.EventIn, EventTime: utc("2024-01-15T16:05:00Z")}
	got, err = ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-16T00:30:00Z"), last)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || got.Status != domain.StatusOvertimeOut {
		t.Fatalf("overnight OUT: got %+v", got)
	}
	if got.Compliance.OvertimeMinutes != 30 {
		t.Fatalf("overtime minutes = %d, want 30", got.Compliance.OvertimeMinutes)
	}
}

func TestEvaluateWithinBreak(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	bs, be := clockwork.MustTimeOfDay("13:00"), clockwork.MustTimeOfDay("14:00")
	f.addPolicy(sh, func(p *domain.Policy) {
		p.BreakStart, p.BreakEnd = &bs, &be
		p.ExitStartMin = 600
	})
	ev := newEvaluator(f)

	// 07:30Z = 13:30 local, inside the break window on an OUT punch
	last := &domain.LastRecord{EventType: domain.EventIn, EventTime: utc("2024-01-15T03:00:00Z")}
	got, err := ev.Evaluate(context.Background(), &sh.ID, utc("2024-01-15T07:30:00Z"), last)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.Approved || !got.Compliance.WithinBreak {
		t.Fatalf("got %+v", got)
	}
}

func TestAttendanceAllowedWeekendGate(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)
	ev := newEvaluator(f)
	ctx := context.Background()

	saturday := clockwork.Date{Year: 2024, Month: time.January, Day: 13}
	monday := clockwork.Date{Year: 2024, Month: time.January, Day: 15}

	ok, err := ev.AttendanceAllowed(ctx, &sh.ID, saturday)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if ok {
		t.Fatal("weekend admitted without allow_weekend")
	}

	ok, err = ev.AttendanceAllowed(ctx, &sh.ID, monday)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if !ok {
		t.Fatal("weekday rejected")
	}

	f.addPolicy(sh, func(p *domain.Policy) { p.AllowWeekend = true })
	ok, err = ev.AttendanceAllowed(ctx, &sh.ID, saturday)
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if !ok {
		t.Fatal("weekend rejected despite allow_weekend")
	}
}

func TestAttendanceAllowedHolidayHook(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	f.addPolicy(sh, nil)
	ev := newEvaluator(f)
	ev.Holiday = func(context.Context, clockwork.Date) bool { return true }

	ok, err := ev.AttendanceAllowed(context.Background(), &sh.ID, clockwork.Date{Year: 2024, Month: time.January, Day: 15})
	if err != nil {
		t.Fatalf("allowed: %v", err)
	}
	if ok {
		t.Fatal("holiday admitted without allow_holiday")
	}
}

func TestAutoClockOutDue(t *testing.T) {
	f := newRegistryFake()
	sh := f.addShift("09:00", "17:00")
	at := clockwork.MustTimeOfDay("18:00")
	f.addPolicy(sh, func(p *domain.Policy) {
		p.AutoClockOutEnabled = true
		p.AutoClockOutTime = &at
	})

	ev := NewEvaluator(passthroughDB{}, f.binder(), dhaka, clockwork.Fixed(utc("2024-01-15T13:00:00Z"))) // 19:00 local
	due, err := ev.AutoClockOutDue(context.Background(), &sh.ID)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if !due {
		t.Fatal("auto clock-out not due at 19:00 local")
	}

	ev.Clock = clockwork.Fixed(utc("2024-01-15T11:00:00Z")) // 17:00 local
	due, err = ev.AutoClockOutDue(context.Background(), &sh.ID)
	if err != nil {
		t.Fatalf("due: %v", err)
	}
	if due {
		t.Fatal("auto clock-out due before the configured time")
	}
}
