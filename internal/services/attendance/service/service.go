// Package service provides the attendance ledger service
package service

import (
	"context"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/repokit"
	"punchcard/internal/services/attendance/domain"
	"punchcard/internal/services/attendance/repo"
)

// Service implements domain.LedgerPort
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[repo.Storage]
}

// New constructs a new ledger service
func New(db repokit.TxRunner, b repokit.Binder[repo.Storage]) *Service {
	return &Service{DB: db, Binder: b}
}

// LastFor returns the most recent record for the employee
func (s *Service) LastFor(ctx context.Context, employeeID uuid.UUID) (*domain.Record, error) {
	var out *domain.Record
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).LastFor(ctx, employeeID)
		return err
	})
	return out, err
}

// LastInFor returns the most recent IN within the business date
func (s *Service) LastInFor(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) (*domain.Record, error) {
	var out *domain.Record
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).LastInFor(ctx, employeeID, d)
		return err
	})
	return out, err
}

// Append persists a record in its own transaction.
// Ingestion does not use this path; it binds the repo inside its pipeline
// transaction so event and record commit together
func (s *Service) Append(ctx context.Context, r domain.Record) (domain.Record, error) {
	var out domain.Record
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).Insert(ctx, r)
		return err
	})
	return out, err
}

// Day lists an employee's records for one business date
func (s *Service) Day(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) ([]domain.Record, error) {
	var out []domain.Record
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).Day(ctx, employeeID, d)
		return err
	})
	return out, err
}

// ForDate lists all records for one business date
func (s *Service) ForDate(ctx context.Context, d clockwork.Date) ([]domain.Record, error) {
	var out []domain.Record
	err := s.DB.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.Binder.Bind(q).ForDate(ctx, d)
		return err
	})
	return out, err
}
