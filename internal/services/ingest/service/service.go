// Package service implements the recognition-to-attendance pipeline
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/core/fingerprint"
	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/platform/logger"
	"punchcard/internal/platform/store"
	attdomain "punchcard/internal/services/attendance/domain"
	attrepo "punchcard/internal/services/attendance/repo"
	dirdomain "punchcard/internal/services/directory/domain"
	"punchcard/internal/services/ingest/domain"
	ingrepo "punchcard/internal/services/ingest/repo"
	poldomain "punchcard/internal/services/policy/domain"
)

// Serialization strategies for same-employee races
const (
	SerializationLock    = "per_employee_lock"
	SerializationRecheck = "in_transaction_recheck"
)

// Config tunes the pipeline
type Config struct {
	MinSimilarity  float64       // valid-match gate, default 0.60
	Serialization  string        // SerializationLock or SerializationRecheck
	IngestDeadline time.Duration // whole-call budget, default 5s
	Retries        int           // transient retry attempts, default 3
}

// Service implements domain.IngestPort and domain.JanitorPort
type Service struct {
	DB     repokit.TxRunner
	Events repokit.Binder[ingrepo.Storage]

	// Ledger is bound inside the pipeline transaction so the event insert and
	// the record append commit or roll back together
	Ledger repokit.Binder[attrepo.Storage]

	Employees dirdomain.EmployeesPort
	Devices   dirdomain.DevicesPort
	Evaluator poldomain.EvaluatorPort

	FP    fingerprint.Generator
	Zone  clockwork.Zone
	Clock clockwork.Clock
	CH    store.Clickhouse
	Log   logger.Logger
	Cfg   Config

	locks employeeLocks
}

// New constructs the pipeline with defaults filled in
func New(s Service) *Service {
	if s.Cfg.MinSimilarity <= 0 {
		s.Cfg.MinSimilarity = 0.60
	}
	if s.Cfg.Serialization == "" {
		s.Cfg.Serialization = SerializationLock
	}
	if s.Cfg.IngestDeadline <= 0 {
		s.Cfg.IngestDeadline = 5 * time.Second
	}
	if s.Cfg.Retries <= 0 {
		s.Cfg.Retries = 3
	}
	if s.Clock == nil {
		s.Clock = clockwork.System()
	}
	return &s
}

// errDedupRace marks a unique violation on dedup_hash; the transaction that
// hit it is already doomed, so the duplicate row is written in a fresh one
var errDedupRace = errors.New("ingest: lost dedup race")

// Ingest runs one push through dedup, the valid-match gate, the evaluator and
// the ledger. Rejections come back inside the Outcome; only infrastructure
// failures surface as errors
func (s *Service) Ingest(ctx context.Context, in domain.Ingress) (domain.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Cfg.IngestDeadline)
	defer cancel()

	employee, err := s.resolveEmployee(ctx, in.TopCandidateEmployeeID)
	if err != nil {
		return domain.Outcome{}, err
	}
	deviceID, err := s.resolveDevice(ctx, in.DeviceID)
	if err != nil {
		return domain.Outcome{}, err
	}

	code := fingerprint.Unknown
	var shiftID *uuid.UUID
	if employee != nil {
		code = employee.Code
		shiftID = employee.ShiftID
	}
	var locator string
	if in.SnapshotURL != nil {
		locator = *in.SnapshotURL
	}
	hash := s.FP.Hash(locator, code, in.DeviceID.String(), in.CapturedAt)

	if employee != nil && s.Cfg.Serialization == SerializationLock {
		unlock := s.locks.lock(employee.ID)
		defer unlock()
	}

	var out domain.Outcome
	for attempt := 1; ; attempt++ {
		out, err = s.runOnce(ctx, in, employee, shiftID, deviceID, hash)
		if err == nil {
			break
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Outcome{Kind: domain.OutcomeTimeout}, nil
		}
		if !perr.IsRetryable(err) {
			return domain.Outcome{}, err
		}
		if attempt >= s.Cfg.Retries {
			// transient contention outlasted the retry budget
			return domain.Outcome{Kind: domain.OutcomeTimeout}, nil
		}
		s.Log.Warn().Err(err).Int("attempt", attempt).Msg("ingest retrying transient failure")
		select {
		case <-ctx.Done():
			return domain.Outcome{Kind: domain.OutcomeTimeout}, nil
		case <-time.After(time.Duration(25+rand.IntN(75)) * time.Millisecond):
		}
	}

	s.mirror(out, in)
	return out, nil
}

// Recent lists stored events for audit
func (s *Service) Recent(
	ctx context.Context, employeeID, deviceID *uuid.UUID, since time.Time,
) ([]domain.Event, error) {
	var out []domain.Event
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Events.Bind(q).RecentFor(ctx, employeeID, deviceID, since)
		return err
	})
	return out, err
}

// PurgeOlderThan deletes events captured before the cutoff
func (s *Service) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		n, err = s.Events.Bind(q).PurgeOlderThan(ctx, cutoff)
		return err
	})
	return n, err
}

func (s *Service) resolveEmployee(ctx context.Context, id *uuid.UUID) (*dirdomain.Employee, error) {
	if id == nil {
		return nil, nil
	}
	e, err := s.Employees.Get(ctx, *id)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		// unresolvable candidate degrades to "unknown", the event is still kept
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Service) resolveDevice(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	d, err := s.Devices.Get(ctx, id)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		// missing device is tolerated; the event records the claim for audit
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d.ID, nil
}

func eventFromIngress(in domain.Ingress, employee *dirdomain.Employee, deviceID *uuid.UUID) domain.Event {
	e := domain.Event{
		DeviceID:             deviceID,
		ReportedDeviceID:     in.DeviceID,
		CapturedAt:           in.CapturedAt,
		Embedding:            in.Embedding,
		SimilarityScore:      in.SimilarityScore,
		LivenessScore:        in.LivenessScore,
		LivenessPassed:       in.LivenessPassed,
		FaceBox:              in.FaceBox,
		SnapshotURL:          in.SnapshotURL,
		ProcessingDurationMS: in.ProcessingDurationMS,
	}
	if employee != nil {
		id := employee.ID
		e.EmployeeID = &id
	}
	return e
}

// validMatch gates the evaluator: an identified employee, a confident score,
// and liveness either unreported or passed
func (s *Service) validMatch(in domain.Ingress, employee *dirdomain.Employee) bool {
	if employee == nil {
		return false
	}
	if in.SimilarityScore == nil || *in.SimilarityScore < s.Cfg.MinSimilarity {
		return false
	}
	return in.LivenessPassed == nil || *in.LivenessPassed
}

func (s *Service) runOnce(
	ctx context.Context,
	in domain.Ingress,
	employee *dirdomain.Employee,
	shiftID *uuid.UUID,
	deviceID *uuid.UUID,
	hash string,
) (domain.Outcome, error) {
	var out domain.Outcome
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		events := s.Events.Bind(q)
		ledger := s.Ledger.Bind(q)

		exists, err := events.ExistsByFingerprint(ctx, hash)
		if err != nil {
			return err
		}
		if exists {
			ev, err := s.insertDuplicate(ctx, events, in, employee, deviceID, hash)
			if err != nil {
				return err
			}
			out = domain.Outcome{Kind: domain.OutcomeDuplicate, Event: &ev}
			return nil
		}

		base := eventFromIngress(in, employee, deviceID)
		base.Status = domain.EventProcessed
		base.DedupHash = &hash
		ev, err := events.Insert(ctx, base)
		if err != nil {
			if perr.IsUniqueViolationOn(err, ingrepo.DedupConstraint) {
				return errDedupRace
			}
			return err
		}

		if !s.validMatch(in, employee) {
			out = domain.Outcome{Kind: domain.OutcomeStored, Event: &ev}
			return nil
		}

		d := s.Zone.BusinessDate(in.CapturedAt)

		// the in-transaction read doubles as the cool-down recheck when the
		// per-employee lock is disabled
		last, err := ledger.LastFor(ctx, employee.ID)
		if err != nil {
			return err
		}
		var lastRec *poldomain.LastRecord
		if last != nil {
			lastRec = &poldomain.LastRecord{
				EventType: poldomain.EventType(last.EventType),
				EventTime: last.EventTime,
			}
		}

		eval, err := s.Evaluator.Evaluate(ctx, shiftID, in.CapturedAt, lastRec)
		if err != nil {
			if perr.IsRetryable(err) {
				return err
			}
			// the event stays committed; no record is appended
			out = domain.Outcome{Kind: domain.OutcomeEvaluationError, Event: &ev, Error: err.Error()}
			return nil
		}
		if !eval.Approved {
			e := eval
			out = domain.Outcome{Kind: domain.OutcomeRejected, Event: &ev, Eval: &e, Reason: eval.RejectionReason}
			return nil
		}

		rec := attdomain.Record{
			EmployeeID:         employee.ID,
			DeviceID:           deviceID,
			RecognitionEventID: &ev.ID,
			ShiftID:            shiftID,
			AttendanceDate:     d,
			EventTime:          in.CapturedAt,
			EventType:          attdomain.EventType(eval.EventType),
			IsLate:             eval.Compliance.IsLate,
			IsEarlyLeave:       eval.Compliance.IsEarlyLeave,
			IsOvertime:         eval.Compliance.IsOvertime,
			Status:             attdomain.RecordValid,
		}
		if eval.EventType == poldomain.EventOut {
			lastIn, err := ledger.LastInFor(ctx, employee.ID, d)
			if err != nil {
				return err
			}
			if lastIn != nil {
				dm := clockwork.DurationMinutes(lastIn.EventTime, in.CapturedAt)
				rec.DurationMinutes = &dm
			}
		}

		stored, err := ledger.Insert(ctx, rec)
		if err != nil {
			return err
		}
		e := eval
		out = domain.Outcome{Kind: domain.OutcomeRecorded, Event: &ev, Record: &stored, Eval: &e}
		return nil
	})

	if errors.Is(err, errDedupRace) {
		// the racing transaction owns the hash now; write the duplicate row fresh
		err = s.DB.Tx(ctx, func(q repokit.Queryer) error {
			ev, err := s.insertDuplicate(ctx, s.Events.Bind(q), in, employee, deviceID, hash)
			if err != nil {
				return err
			}
			out = domain.Outcome{Kind: domain.OutcomeDuplicate, Event: &ev}
			return nil
		})
	}
	if err != nil {
		return domain.Outcome{}, err
	}
	return out, nil
}

func (s *Service) insertDuplicate(
	ctx context.Context,
	events ingrepo.Storage,
	in domain.Ingress,
	employee *dirdomain.Employee,
	deviceID *uuid.UUID,
	hash string,
) (domain.Event, error) {
	dup := eventFromIngress(in, employee, deviceID)
	dup.Status = domain.EventDuplicate
	dup.DedupHash = &hash
	return events.Insert(ctx, dup)
}

// mirror streams the outcome to the analytics store; best effort, off the
// request path
func (s *Service) mirror(out domain.Outcome, in domain.Ingress) {
	if s.CH == nil || out.Event == nil {
		return
	}
	ev := *out.Event
	var employeeID string
	if ev.EmployeeID != nil {
		employeeID = ev.EmployeeID.String()
	}
	var similarity float64
	if in.SimilarityScore != nil {
		similarity = *in.SimilarityScore
	}
	var status string
	if out.Eval != nil {
		status = string(out.Eval.Status)
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		err := s.CH.Insert(ctx, "recognition_outcomes",
			[]string{"event_id", "reported_device_id", "employee_id", "captured_at", "kind", "status", "similarity"},
			[][]any{{
				ev.ID.String(), ev.ReportedDeviceID.String(), employeeID,
				ev.CapturedAt, string(out.Kind), status, similarity,
			}},
		)
		if err != nil {
			s.Log.Warn().Err(err).Msg("analytics mirror insert failed")
		}
	}()
}
