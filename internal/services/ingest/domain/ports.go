package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IngestPort is the single entry point edge devices hit
type IngestPort interface {
	Ingest(ctx context.Context, in Ingress) (Outcome, error)
}

// AuditPort reads stored events back out
type AuditPort interface {
	// Recent lists events captured since the cutoff, optionally narrowed
	// to one employee and one device
	Recent(ctx context.Context, employeeID, deviceID *uuid.UUID, since time.Time) ([]Event, error)
}

// JanitorPort maintains the event store
type JanitorPort interface {
	// PurgeOlderThan deletes events captured before the cutoff and
	// returns how many rows went away
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
