package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"punchcard/internal/modkit/repokit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/directory/domain"
	"punchcard/internal/services/directory/repo"
)

// passthroughDB satisfies repokit.TxRunner without a database
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

type memStorage struct {
	employees map[uuid.UUID]domain.Employee
	devices   map[uuid.UUID]domain.Device
	dupNext   bool
}

func newMemStorage() *memStorage {
	return &memStorage{
		employees: map[uuid.UUID]domain.Employee{},
		devices:   map[uuid.UUID]domain.Device{},
	}
}

func (m *memStorage) binder() repokit.Binder[repo.Storage] {
	return repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return m })
}

func (m *memStorage) InsertEmployee(_ context.Context, e domain.Employee) (domain.Employee, error) {
	if m.dupNext {
		m.dupNext = false
		return domain.Employee{}, &pgconn.PgError{Code: "23505", ConstraintName: "employees_employee_code_key"}
	}
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	m.employees[e.ID] = e
	return e, nil
}

func (m *memStorage) GetEmployee(_ context.Context, id uuid.UUID) (domain.Employee, error) {
	e, ok := m.employees[id]
	if !ok {
		return domain.Employee{}, perr.ErrNotFound
	}
	return e, nil
}

func (m *memStorage) GetEmployeeByCode(_ context.Context, code string) (domain.Employee, error) {
	for _, e := range m.employees {
		if e.Code == code {
			return e, nil
		}
	}
	return domain.Employee{}, perr.ErrNotFound
}

func (m *memStorage) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	out := make([]domain.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		out = append(out, e)
	}
	return out, nil
}

func (m *memStorage) UpdateEmployee(_ context.Context, e domain.Employee) (domain.Employee, error) {
	if _, ok := m.employees[e.ID]; !ok {
		return domain.Employee{}, perr.ErrNotFound
	}
	e.UpdatedAt = time.Now()
	m.employees[e.ID] = e
	return e, nil
}

func (m *memStorage) InsertDevice(_ context.Context, d domain.Device) (domain.Device, error) {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.devices[d.ID] = d
	return d, nil
}

func (m *memStorage) GetDevice(_ context.Context, id uuid.UUID) (domain.Device, error) {
	d, ok := m.devices[id]
	if !ok {
		return domain.Device{}, perr.ErrNotFound
	}
	return d, nil
}

func (m *memStorage) GetDeviceByCode(_ context.Context, code string) (domain.Device, error) {
	for _, d := range m.devices {
		if d.Code == code {
			return d, nil
		}
	}
	return domain.Device{}, perr.ErrNotFound
}

func (m *memStorage) ListDevices(_ context.Context) ([]domain.Device, error) {
	out := make([]domain.Device, 0, len(m.devices))
	for _, d := range m.devices {
		out = append(out, d)
	}
	return out, nil
}

func (m *memStorage) TouchDevice(_ context.Context, id uuid.UUID, at time.Time) error {
	d, ok := m.devices[id]
	if !ok {
		return nil
	}
	d.LastSeen = &at
	m.devices[id] = d
	return nil
}

func (m *memStorage) SetDeviceStatus(_ context.Context, id uuid.UUID, status domain.DeviceStatus) error {
	d, ok := m.devices[id]
	if !ok {
		return perr.ErrNotFound
	}
	d.Status = status
	m.devices[id] = d
	return nil
}

func TestCreateEmployeeCanonicalizesCode(t *testing.T) {
	mem := newMemStorage()
	svc := New(passthroughDB{}, mem.binder())

	e, err := svc.Create(context.Background(), domain.CreateEmployeeInput{
		Code:     " emp-00１ ", // fullwidth digit and padding
		FullName: "Rahim Uddin",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if e.Code != "EMP-001" {
		t.Fatalf("code = %q, want EMP-001", e.Code)
	}
	if e.Status != domain.EmployeeActive {
		t.Fatalf("status = %q, want ACTIVE", e.Status)
	}
}

func TestCreateEmployeeEmptyCodeRejected(t *testing.T) {
	mem := newMemStorage()
	svc := New(passthroughDB{}, mem.binder())

	_, err := svc.Create(context.Background(), domain.CreateEmployeeInput{Code: "   ", FullName: "x"})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
}

func TestCreateEmployeeDuplicateIsConflict(t *testing.T) {
	mem := newMemStorage()
	mem.dupNext = true
	svc := New(passthroughDB{}, mem.binder())

	_, err := svc.Create(context.Background(), domain.CreateEmployeeInput{Code: "EMP-001", FullName: "x"})
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestUpdateEmployeePatchSemantics(t *testing.T) {
	mem := newMemStorage()
	svc := New(passthroughDB{}, mem.binder())
	ctx := context.Background()

	e, err := svc.Create(ctx, domain.CreateEmployeeInput{Code: "EMP-002", FullName: "Before"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "After"
	got, err := svc.Update(ctx, e.ID, domain.UpdateEmployeeInput{FullName: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.FullName != "After" {
		t.Fatalf("full name = %q", got.FullName)
	}
	if got.Status != domain.EmployeeActive {
		t.Fatalf("status changed on partial update: %q", got.Status)
	}
}

func TestDeactivateEmployee(t *testing.T) {
	mem := newMemStorage()
	svc := New(passthroughDB{}, mem.binder())
	ctx := context.Background()

	e, err := svc.Create(ctx, domain.CreateEmployeeInput{Code: "EMP-003", FullName: "x"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(ctx, e.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err := svc.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.EmployeeInactive {
		t.Fatalf("status = %q, want INACTIVE", got.Status)
	}
}

func TestDeviceHeartbeat(t *testing.T) {
	mem := newMemStorage()
	svc := NewDevices(passthroughDB{}, mem.binder())
	ctx := context.Background()

	d, err := svc.Create(ctx, domain.CreateDeviceInput{Code: "cam-01", Name: "Main gate"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Code != "CAM-01" {
		t.Fatalf("code = %q, want CAM-01", d.Code)
	}

	at := time.Date(2024, 1, 15, 3, 5, 0, 0, time.UTC)
	if err := svc.Heartbeat(ctx, d.ID, at); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	got, err := svc.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastSeen == nil || !got.LastSeen.Equal(at) {
		t.Fatalf("last seen = %v, want %v", got.LastSeen, at)
	}
}
