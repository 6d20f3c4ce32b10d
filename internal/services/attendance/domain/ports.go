package domain

import (
	"context"

	"github.com/google/uuid"

	"punchcard/internal/core/clockwork"
)

// LedgerPort is the read/append surface of the attendance ledger
type LedgerPort interface {
	// LastFor returns the most recent record by event time, nil when none exists
	LastFor(ctx context.Context, employeeID uuid.UUID) (*Record, error)

	// LastInFor returns the most recent IN within the business date, nil when none exists
	LastInFor(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) (*Record, error)

	// Append persists a record; it is idempotent per recognition event
	Append(ctx context.Context, r Record) (Record, error)

	// Day lists an employee's records for one business date in event-time order
	Day(ctx context.Context, employeeID uuid.UUID, d clockwork.Date) ([]Record, error)

	// ForDate lists every employee's records for one business date
	ForDate(ctx context.Context, d clockwork.Date) ([]Record, error)
}
