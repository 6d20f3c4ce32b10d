package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/core/fingerprint"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	attdomain "punchcard/internal/services/attendance/domain"
	attrepo "punchcard/internal/services/attendance/repo"
	dirdomain "punchcard/internal/services/directory/domain"
	"punchcard/internal/services/ingest/domain"
	ingrepo "punchcard/internal/services/ingest/repo"
	poldomain "punchcard/internal/services/policy/domain"
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

type eventsFake struct {
	events []domain.Event

	// raceOnce makes the next PROCESSED insert lose the dedup race
	raceOnce bool

	// failInsert makes every insert fail with this error
	failInsert error
}

func (f *eventsFake) binder() repokit.Binder[ingrepo.Storage] {
	return repokit.BindFunc[ingrepo.Storage](func(repokit.Queryer) ingrepo.Storage { return f })
}

func (f *eventsFake) ExistsByFingerprint(_ context.Context, hash string) (bool, error) {
	for _, e := range f.events {
		if e.DedupHash != nil && *e.DedupHash == hash && e.Status != domain.EventDuplicate {
			return true, nil
		}
	}
	return false, nil
}

func (f *eventsFake) Insert(_ context.Context, e domain.Event) (domain.Event, error) {
	if f.failInsert != nil {
		return domain.Event{}, f.failInsert
	}
	if f.raceOnce && e.Status == domain.EventProcessed {
		f.raceOnce = false
		return domain.Event{}, &pgconn.PgError{Code: "23505", ConstraintName: ingrepo.DedupConstraint}
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	f.events = append(f.events, e)
	return e, nil
}

func (f *eventsFake) RecentFor(_ context.Context, _, _ *uuid.UUID, since time.Time) ([]domain.Event, error) {
	var out []domain.Event
	for _, e := range f.events {
		if !e.CapturedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *eventsFake) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []domain.Event
	var purged int64
	for _, e := range f.events {
		if e.CapturedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return purged, nil
}

type ledgerFake struct {
	records []attdomain.Record
}

func (f *ledgerFake) binder() repokit.Binder[attrepo.Storage] {
	return repokit.BindFunc[attrepo.Storage](func(repokit.Queryer) attrepo.Storage { return f })
}

func (f *ledgerFake) LastFor(_ context.Context, employeeID uuid.UUID) (*attdomain.Record, error) {
	var last *attdomain.Record
	for i := range f.records {
		r := f.records[i]
		if r.EmployeeID != employeeID {
			continue
		}
		if last == nil || r.EventTime.After(last.EventTime) {
			last = &f.records[i]
		}
	}
	return last, nil
}

func (f *ledgerFake) LastInFor(_ context.Context, employeeID uuid.UUID, d clockwork.Date) (*attdomain.Record, error) {
	var last *attdomain.Record
	for i := range f.records {
		r := f.records[i]
		if r.EmployeeID != employeeID || r.EventType != attdomain.EventIn || r.AttendanceDate != d {
			continue
		}
		if last == nil || r.EventTime.After(last.EventTime) {
			last = &f.records[i]
		}
	}
	return last, nil
}

func (f *ledgerFake) Insert(_ context.Context, r attdomain.Record) (attdomain.Record, error) {
	r.ID = uuid.New()
	f.records = append(f.records, r)
	return r, nil
}

func (f *ledgerFake) Day(_ context.Context, employeeID uuid.UUID, d clockwork.Date) ([]attdomain.Record, error) {
	var out []attdomain.Record
	for _, r := range f.records {
		if r.EmployeeID == employeeID && r.AttendanceDate == d {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *ledgerFake) ForDate(_ context.Context, d clockwork.Date) ([]attdomain.Record, error) {
	var out []attdomain.Record
	for _, r := range f.records {
		if r.AttendanceDate == d {
			out = append(out, r)
		}
	}
	return out, nil
}

type employeesFake struct {
	byID map[uuid.UUID]dirdomain.Employee
}

func (f *employeesFake) Get(_ context.Context, id uuid.UUID) (dirdomain.Employee, error) {
	e, ok := f.byID[id]
	if !ok {
		return dirdomain.Employee{}, perr.NotFoundf("employee %s not found", id)
	}
	return e, nil
}

func (f *employeesFake) Create(context.Context, dirdomain.CreateEmployeeInput) (dirdomain.Employee, error) {
	panic("not used")
}

func (f *employeesFake) GetByCode(context.Context, string) (dirdomain.Employee, error) {
	panic("not used")
}

func (f *employeesFake) List(context.Context) ([]dirdomain.Employee, error) { panic("not used") }

func (f *employeesFake) Update(context.Context, uuid.UUID, dirdomain.UpdateEmployeeInput) (dirdomain.Employee, error) {
	panic("not used")
}

func (f *employeesFake) Deactivate(context.Context, uuid.UUID) error { panic("not used") }

type devicesFake struct {
	byID map[uuid.UUID]dirdomain.Device
}

func (f *devicesFake) Get(_ context.Context, id uuid.UUID) (dirdomain.Device, error) {
	d, ok := f.byID[id]
	if !ok {
		return dirdomain.Device{}, perr.NotFoundf("device %s not found", id)
	}
	return d, nil
}

func (f *devicesFake) Create(context.Context, dirdomain.CreateDeviceInput) (dirdomain.Device, error) {
	panic("not used")
}

func (f *devicesFake) GetByCode(context.Context, string) (dirdomain.Device, error) {
	panic("not used")
}

func (f *devicesFake) List(context.Context) ([]dirdomain.Device, error) { panic("not used") }

func (f *devicesFake) Heartbeat(context.Context, uuid.UUID, time.Time) error { panic("not used") }

func (f *devicesFake) Deactivate(context.Context, uuid.UUID) error { panic("not used") }

type evalFake struct {
	eval    poldomain.Evaluation
	evalErr error

	evaluated int
	lastSeen  *poldomain.LastRecord
}

func (f *evalFake) Evaluate(
	_ context.Context, _ *uuid.UUID, _ time.Time, last *poldomain.LastRecord,
) (poldomain.Evaluation, error) {
	f.evaluated++
	f.lastSeen = last
	return f.eval, f.evalErr
}

func (f *evalFake) AttendanceAllowed(context.Context, *uuid.UUID, clockwork.Date) (bool, error) {
	return true, nil
}

func (f *evalFake) AutoClockOutDue(context.Context, *uuid.UUID) (bool, error) { return false, nil }

type fixture struct {
	svc      *Service
	events   *eventsFake
	ledger   *ledgerFake
	eval     *evalFake
	employee dirdomain.Employee
	device   dirdomain.Device
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	shiftID := uuid.New()
	emp := dirdomain.Employee{
		ID:      uuid.New(),
		Code:    "EMP-001",
		Status:  dirdomain.EmployeeActive,
		ShiftID: &shiftID,
	}
	dev := dirdomain.Device{ID: uuid.New(), Code: "GATE-A"}

	events := &eventsFake{}
	ledger := &ledgerFake{}
	eval := &evalFake{}

	svc := New(Service{
		DB:        passthroughDB{},
		Events:    events.binder(),
		Ledger:    ledger.binder(),
		Employees: &employeesFake{byID: map[uuid.UUID]dirdomain.Employee{emp.ID: emp}},
		Devices:   &devicesFake{byID: map[uuid.UUID]dirdomain.Device{dev.ID: dev}},
		Evaluator: eval,
		FP:        fingerprint.New(fingerprint.NopReader{}, 300),
		Zone:      dhaka,
	})

	return &fixture{svc: svc, events: events, ledger: ledger, eval: eval, employee: emp, device: dev}
}

func utc(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return ts
}

func (fx *fixture) push(t *testing.T, capturedAt time.Time, similarity float64) domain.Ingress {
	t.Helper()
	empID := fx.employee.ID
	return domain.Ingress{
		DeviceID:               fx.device.ID,
		CapturedAt:             capturedAt,
		Embedding:              make([]float32, 512),
		TopCandidateEmployeeID: &empID,
		SimilarityScore:        &similarity,
	}
}

func TestIngestRecorded(t *testing.T) {
	fx := newFixture(t)
	fx.eval.eval = poldomain.Approved(poldomain.EventIn, poldomain.StatusOnTimeIn, poldomain.Compliance{})

	// 03:05Z is 09:05 in Dhaka
	out, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeRecorded {
		t.Fatalf("kind = %s, want RECORDED", out.Kind)
	}
	if out.Event == nil || out.Event.Status != domain.EventProcessed || out.Event.DedupHash == nil {
		t.Fatalf("event not persisted as PROCESSED with a fingerprint: %+v", out.Event)
	}
	if out.Record == nil {
		t.Fatal("no record in outcome")
	}
	if out.Record.EmployeeID != fx.employee.ID || out.Record.EventType != attdomain.EventIn {
		t.Fatalf("record = %+v", out.Record)
	}
	if got := out.Record.AttendanceDate.String(); got != "2024-01-15" {
		t.Fatalf("attendance date = %s, want 2024-01-15", got)
	}
	if out.Record.RecognitionEventID == nil || *out.Record.RecognitionEventID != out.Event.ID {
		t.Fatal("record does not reference the stored event")
	}
	if len(fx.ledger.records) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(fx.ledger.records))
	}
}

func TestIngestDuplicateFingerprint(t *testing.T) {
	fx := newFixture(t)
	fx.eval.eval = poldomain.Approved(poldomain.EventIn, poldomain.StatusOnTimeIn, poldomain.Compliance{})

	at := utc(t, "2024-01-15T03:05:00Z")
	in := fx.push(t, at, 0.92)

	first, err := fx.svc.Ingest(context.Background(), in)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if first.Kind != domain.OutcomeRecorded {
		t.Fatalf("first kind = %s, want RECORDED", first.Kind)
	}

	second, err := fx.svc.Ingest(context.Background(), in)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if second.Kind != domain.OutcomeDuplicate {
		t.Fatalf("second kind = %s, want DUPLICATE", second.Kind)
	}
	if second.Event == nil || second.Event.Status != domain.EventDuplicate {
		t.Fatalf("duplicate event = %+v", second.Event)
	}
	if second.Event.DedupHash == nil || *second.Event.DedupHash != *first.Event.DedupHash {
		t.Fatal("duplicate row must carry the same fingerprint")
	}
	if len(fx.ledger.records) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(fx.ledger.records))
	}
	if fx.eval.evaluated != 1 {
		t.Fatalf("evaluator ran %d times, want 1", fx.eval.evaluated)
	}
}

func TestIngestStoredOnLowSimilarity(t *testing.T) {
	fx := newFixture(t)

	out, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.41))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeStored {
		t.Fatalf("kind = %s, want STORED", out.Kind)
	}
	if fx.eval.evaluated != 0 {
		t.Fatal("evaluator must not run for an invalid match")
	}
	if len(fx.ledger.records) != 0 {
		t.Fatal("no record may be appended for an invalid match")
	}
}

func TestIngestStoredOnFailedLiveness(t *testing.T) {
	fx := newFixture(t)

	in := fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92)
	failed := false
	in.LivenessPassed = &failed

	out, err := fx.svc.Ingest(context.Background(), in)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeStored {
		t.Fatalf("kind = %s, want STORED", out.Kind)
	}
}

func TestIngestStoredOnUnknownEmployee(t *testing.T) {
	fx := newFixture(t)

	in := fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92)
	stranger := uuid.New()
	in.TopCandidateEmployeeID = &stranger

	out, err := fx.svc.Ingest(context.Background(), in)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeStored {
		t.Fatalf("kind = %s, want STORED", out.Kind)
	}
	if out.Event.EmployeeID != nil {
		t.Fatal("unresolvable candidate must not attach an employee")
	}
}

func TestIngestUnknownDeviceTolerated(t *testing.T) {
	fx := newFixture(t)
	fx.eval.eval = poldomain.Approved(poldomain.EventIn, poldomain.StatusOnTimeIn, poldomain.Compliance{})

	in := fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92)
	in.DeviceID = uuid.New() // never registered

	out, err := fx.svc.Ingest(context.Background(), in)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeRecorded {
		t.Fatalf("kind = %s, want RECORDED", out.Kind)
	}
	if out.Event.DeviceID != nil {
		t.Fatal("unresolved device must stay nil")
	}
	if out.Event.ReportedDeviceID != in.DeviceID {
		t.Fatal("reported device claim must be kept")
	}
}

func TestIngestRejectedPropagatesReason(t *testing.T) {
	fx := newFixture(t)
	fx.eval.eval = poldomain.Rejected("Outside IN window. Expected window: 08:30:00 to 11:00:00")

	out, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-15T01:00:00Z"), 0.92))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeRejected {
		t.Fatalf("kind = %s, want REJECTED", out.Kind)
	}
	if out.Reason != "Outside IN window. Expected window: 08:30:00 to 11:00:00" {
		t.Fatalf("reason = %q", out.Reason)
	}
	if out.Event == nil || out.Event.Status != domain.EventProcessed {
		t.Fatal("rejected punches still keep their event")
	}
	if len(fx.ledger.records) != 0 {
		t.Fatal("rejected punches must not reach the ledger")
	}
}

func TestIngestWeekendPunchReachesEvaluator(t *testing.T) {
	fx := newFixture(t)
	fx.eval.eval = poldomain.Approved(poldomain.EventIn, poldomain.StatusOnTimeIn, poldomain.Compliance{})

	// 2024-01-13 is a Saturday; day gating is a separate query, never an
	// ingest step, so the punch goes to the evaluator like any other
	out, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-13T03:05:00Z"), 0.92))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeRecorded {
		t.Fatalf("kind = %s, want RECORDED", out.Kind)
	}
	if fx.eval.evaluated != 1 {
		t.Fatalf("evaluator ran %d times, want 1", fx.eval.evaluated)
	}
	if len(fx.ledger.records) != 1 {
		t.Fatalf("ledger has %d records, want 1", len(fx.ledger.records))
	}
}

func TestIngestEvaluationError(t *testing.T) {
	fx := newFixture(t)
	fx.eval.evalErr = errors.New("policy store went sideways")

	out, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeEvaluationError {
		t.Fatalf("kind = %s, want EVALUATION_ERROR", out.Kind)
	}
	if out.Error != "policy store went sideways" {
		t.Fatalf("error = %q", out.Error)
	}
	if out.Event == nil {
		t.Fatal("the event must stay stored when evaluation fails")
	}
	if len(fx.ledger.records) != 0 {
		t.Fatal("no record may be appended when evaluation fails")
	}
}

func TestIngestDedupRaceStoresDuplicate(t *testing.T) {
	fx := newFixture(t)
	fx.events.raceOnce = true

	out, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeDuplicate {
		t.Fatalf("kind = %s, want DUPLICATE", out.Kind)
	}
	if out.Event == nil || out.Event.Status != domain.EventDuplicate {
		t.Fatalf("race loser must persist a DUPLICATE event, got %+v", out.Event)
	}
}

func TestIngestOutComputesDuration(t *testing.T) {
	fx := newFixture(t)

	inAt := utc(t, "2024-01-15T03:05:00Z") // 09:05 local
	fx.ledger.records = append(fx.ledger.records, attdomain.Record{
		ID:             uuid.New(),
		EmployeeID:     fx.employee.ID,
		AttendanceDate: dhaka.BusinessDate(inAt),
		EventTime:      inAt,
		EventType:      attdomain.EventIn,
	})

	fx.eval.eval = poldomain.Approved(poldomain.EventOut, poldomain.StatusOvertimeOut, poldomain.Compliance{
		IsOvertime:      true,
		OvertimeMinutes: 90,
	})

	outAt := utc(t, "2024-01-15T12:30:00Z") // 18:30 local
	out, err := fx.svc.Ingest(context.Background(), fx.push(t, outAt, 0.92))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeRecorded {
		t.Fatalf("kind = %s, want RECORDED", out.Kind)
	}
	if out.Record.DurationMinutes == nil || *out.Record.DurationMinutes != 565 {
		t.Fatalf("duration = %v, want 565", out.Record.DurationMinutes)
	}
	if !out.Record.IsOvertime {
		t.Fatal("overtime flag must carry into the record")
	}
	if fx.eval.lastSeen == nil || fx.eval.lastSeen.EventType != poldomain.EventIn {
		t.Fatal("evaluator must see the prior IN")
	}
}

func TestIngestRetriesExhaustedBecomeTimeout(t *testing.T) {
	fx := newFixture(t)
	fx.events.failInsert = &pgconn.PgError{Code: "40001"} // serialization failure, retryable
	fx.svc.Cfg.Retries = 2

	out, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if out.Kind != domain.OutcomeTimeout {
		t.Fatalf("kind = %s, want TIMEOUT", out.Kind)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	fx := newFixture(t)
	fx.eval.eval = poldomain.Approved(poldomain.EventIn, poldomain.StatusOnTimeIn, poldomain.Compliance{})

	if _, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2023-06-01T03:05:00Z"), 0.92)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := fx.svc.Ingest(context.Background(), fx.push(t, utc(t, "2024-01-15T03:05:00Z"), 0.92)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	n, err := fx.svc.PurgeOlderThan(context.Background(), utc(t, "2024-01-01T00:00:00Z"))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d, want 1", n)
	}
	if len(fx.events.events) != 1 {
		t.Fatalf("%d events remain, want 1", len(fx.events.events))
	}
}
