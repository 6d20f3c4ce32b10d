// Package repo provides the recognition event store
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/modkit/repokit"
	"punchcard/internal/services/ingest/domain"
)

// DedupConstraint names the partial unique index guarding dedup_hash.
// The pipeline matches on it to tell a lost dedup race from any other
// integrity failure
const DedupConstraint = "recognition_events_dedup_hash_key"

type binder struct{}

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the event store
type Storage interface {
	// ExistsByFingerprint is an optimization; the unique index is the authority
	ExistsByFingerprint(ctx context.Context, hash string) (bool, error)

	Insert(ctx context.Context, e domain.Event) (domain.Event, error)

	// RecentFor serves reporting, not ingestion
	RecentFor(ctx context.Context, employeeID, deviceID *uuid.UUID, since time.Time) ([]domain.Event, error)

	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type pg struct{ q repokit.Queryer }

const eventCols = `id, device_id, reported_device_id, employee_id, captured_at,
	embedding, similarity_score, liveness_score, liveness_passed,
	face_box_x, face_box_y, face_box_width, face_box_height,
	snapshot_url, processing_duration_ms, dedup_hash, status, created_at`

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var (
		e      domain.Event
		bx, by *int
		bw, bh *int
	)
	err := scan(
		&e.ID, &e.DeviceID, &e.ReportedDeviceID, &e.EmployeeID, &e.CapturedAt,
		&e.Embedding, &e.SimilarityScore, &e.LivenessScore, &e.LivenessPassed,
		&bx, &by, &bw, &bh,
		&e.SnapshotURL, &e.ProcessingDurationMS, &e.DedupHash, &e.Status, &e.CreatedAt,
	)
	if err != nil {
		return domain.Event{}, err
	}
	if bx != nil && by != nil && bw != nil && bh != nil {
		e.FaceBox = &domain.FaceBox{X: *bx, Y: *by, W: *bw, H: *bh}
	}
	return e, nil
}

// ExistsByFingerprint reports whether a non-duplicate event already owns the hash
func (s *pg) ExistsByFingerprint(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := s.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM recognition_events
			WHERE dedup_hash = $1 AND status <> 'DUPLICATE'
		)`, hash).Scan(&exists)
	return exists, err
}

// Insert persists one event and returns the stored row
func (s *pg) Insert(ctx context.Context, e domain.Event) (domain.Event, error) {
	var bx, by, bw, bh *int
	if e.FaceBox != nil {
		bx, by, bw, bh = &e.FaceBox.X, &e.FaceBox.Y, &e.FaceBox.W, &e.FaceBox.H
	}
	row := s.q.QueryRow(ctx, `
		INSERT INTO recognition_events (
			device_id, reported_device_id, employee_id, captured_at,
			embedding, similarity_score, liveness_score, liveness_passed,
			face_box_x, face_box_y, face_box_width, face_box_height,
			snapshot_url, processing_duration_ms, dedup_hash, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING `+eventCols,
		e.DeviceID, e.ReportedDeviceID, e.EmployeeID, e.CapturedAt,
		e.Embedding, e.SimilarityScore, e.LivenessScore, e.LivenessPassed,
		bx, by, bw, bh,
		e.SnapshotURL, e.ProcessingDurationMS, e.DedupHash, e.Status,
	)
	return scanEvent(row.Scan)
}

// RecentFor lists events since the cutoff, optionally narrowed to an employee and device
func (s *pg) RecentFor(ctx context.Context, employeeID, deviceID *uuid.UUID, since time.Time) ([]domain.Event, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+eventCols+`
		FROM recognition_events
		WHERE captured_at >= $1
			AND ($2::uuid IS NULL OR employee_id = $2)
			AND ($3::uuid IS NULL OR device_id = $3)
		ORDER BY captured_at DESC`, since, employeeID, deviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes events captured before the cutoff
func (s *pg) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.q.Exec(ctx, `DELETE FROM recognition_events WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
