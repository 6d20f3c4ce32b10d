//go:build integration_pg
// +build integration_pg

package repo_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/platform/store"
	"punchcard/migrations"

	attdomain "punchcard/internal/services/attendance/domain"
	attrepo "punchcard/internal/services/attendance/repo"
	dirdomain "punchcard/internal/services/directory/domain"
	dirrepo "punchcard/internal/services/directory/repo"
	"punchcard/internal/services/ingest/domain"
	"punchcard/internal/services/ingest/repo"

	"punchcard/internal/core/clockwork"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func openMigrated(t *testing.T, ctx context.Context, dsn string) *store.Store {
	t.Helper()

	if err := store.Migrate(ctx, dsn, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st, err := store.Open(ctx, store.Config{
		PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2},
	}, store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func TestEventStore_Integration_DedupIndex(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st := openMigrated(t, ctx, dsn)
	binder := repo.NewPG()

	hash := "a3f1c2d4e5f60718293a4b5c6d7e8f90a3f1c2d4e5f60718293a4b5c6d7e8f90"
	base := domain.Event{
		ReportedDeviceID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		CapturedAt:       time.Date(2024, 1, 15, 3, 5, 0, 0, time.UTC),
		Embedding:        make([]float32, 512),
		DedupHash:        &hash,
		Status:           domain.EventProcessed,
	}

	err := repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		events := binder.Bind(q)

		if _, err := events.Insert(ctx, base); err != nil {
			return fmt.Errorf("first insert: %w", err)
		}

		exists, err := events.ExistsByFingerprint(ctx, hash)
		if err != nil {
			return fmt.Errorf("exists: %w", err)
		}
		if !exists {
			return fmt.Errorf("fingerprint not visible after insert")
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	// same hash again as PROCESSED must hit the named partial unique index
	err = repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		_, err := binder.Bind(q).Insert(ctx, base)
		return err
	})
	if !perr.IsUniqueViolationOn(err, repo.DedupConstraint) {
		t.Fatalf("want unique violation on %s, got %v", repo.DedupConstraint, err)
	}

	// the same hash as a DUPLICATE audit row is allowed
	err = repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		dup := base
		dup.Status = domain.EventDuplicate
		_, err := binder.Bind(q).Insert(ctx, dup)
		return err
	})
	if err != nil {
		t.Fatalf("duplicate audit row: %v", err)
	}

	err = repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		events := binder.Bind(q)

		recent, err := events.RecentFor(ctx, nil, nil, base.CapturedAt.Add(-time.Minute))
		if err != nil {
			return err
		}
		if len(recent) != 2 {
			return fmt.Errorf("recent = %d events, want 2", len(recent))
		}

		n, err := events.PurgeOlderThan(ctx, base.CapturedAt.Add(time.Minute))
		if err != nil {
			return err
		}
		if n != 2 {
			return fmt.Errorf("purged %d, want 2", n)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEventStore_Integration_SameCaptureDistinctSnapshots(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st := openMigrated(t, ctx, dsn)

	// two pushes from the same device at the same instant with different
	// snapshots hash differently; both are legitimate non-duplicate events
	err := repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		employee, err := dirrepo.NewPG().Bind(q).InsertEmployee(ctx, dirdomain.Employee{
			Code:     "EMP-002",
			FullName: "Grace Example",
			Status:   dirdomain.EmployeeActive,
		})
		if err != nil {
			return err
		}
		device, err := dirrepo.NewPG().Bind(q).InsertDevice(ctx, dirdomain.Device{
			Code:   "GATE-B",
			Name:   "Back gate",
			Status: dirdomain.DeviceActive,
		})
		if err != nil {
			return err
		}

		events := repo.NewPG().Bind(q)
		empID, devID := employee.ID, device.ID
		at := time.Date(2024, 1, 15, 3, 5, 0, 0, time.UTC)
		for _, hash := range []string{
			"1111111111111111111111111111111111111111111111111111111111111111",
			"2222222222222222222222222222222222222222222222222222222222222222",
		} {
			h := hash
			if _, err := events.Insert(ctx, domain.Event{
				DeviceID:         &devID,
				ReportedDeviceID: devID,
				EmployeeID:       &empID,
				CapturedAt:       at,
				Embedding:        make([]float32, 512),
				DedupHash:        &h,
				Status:           domain.EventProcessed,
			}); err != nil {
				return fmt.Errorf("insert %s: %w", hash[:8], err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLedger_Integration_IdempotentAppend(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st := openMigrated(t, ctx, dsn)

	var (
		employee dirdomain.Employee
		event    domain.Event
	)
	err := repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		var err error
		employee, err = dirrepo.NewPG().Bind(q).InsertEmployee(ctx, dirdomain.Employee{
			Code:     "EMP-001",
			FullName: "Ada Example",
			Status:   dirdomain.EmployeeActive,
		})
		if err != nil {
			return err
		}

		empID := employee.ID
		event, err = repo.NewPG().Bind(q).Insert(ctx, domain.Event{
			ReportedDeviceID: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
			EmployeeID:       &empID,
			CapturedAt:       time.Date(2024, 1, 15, 3, 5, 0, 0, time.UTC),
			Embedding:        make([]float32, 512),
			Status:           domain.EventProcessed,
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := attdomain.Record{
		EmployeeID:         employee.ID,
		RecognitionEventID: &event.ID,
		AttendanceDate:     clockwork.Date{Year: 2024, Month: time.January, Day: 15},
		EventTime:          event.CapturedAt,
		EventType:          attdomain.EventIn,
	}

	var first, second attdomain.Record
	err = repokit.WithTx(ctx, st.PG, func(q repokit.Queryer) error {
		ledger := attrepo.NewPG().Bind(q)

		var err error
		if first, err = ledger.Insert(ctx, rec); err != nil {
			return fmt.Errorf("first append: %w", err)
		}
		if second, err = ledger.Insert(ctx, rec); err != nil {
			return fmt.Errorf("second append: %w", err)
		}

		last, err := ledger.LastFor(ctx, employee.ID)
		if err != nil {
			return err
		}
		if last == nil || last.ID != first.ID {
			return fmt.Errorf("last = %+v, want the single appended row", last)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if second.ID != first.ID {
		t.Fatalf("second append returned %s, want the committed row %s", second.ID, first.ID)
	}
	if first.Status != attdomain.RecordValid {
		t.Fatalf("status = %s, want VALID", first.Status)
	}
}
