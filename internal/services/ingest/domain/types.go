// Package domain defines the recognition ingress, stored events and outcomes
package domain

import (
	"time"

	"github.com/google/uuid"

	attdomain "punchcard/internal/services/attendance/domain"
	poldomain "punchcard/internal/services/policy/domain"
)

// FaceBox is the detected face rectangle in frame coordinates
type FaceBox struct {
	X int `json:"x" validate:"gte=0"`
	Y int `json:"y" validate:"gte=0"`
	W int `json:"w" validate:"gte=1"`
	H int `json:"h" validate:"gte=1"`
}

// Ingress is one recognition push from an edge device
type Ingress struct {
	DeviceID   uuid.UUID `json:"device_id"   validate:"required"`
	CapturedAt time.Time `json:"captured_at" validate:"required"`

	Embedding []float32 `json:"embedding" validate:"required,len=512"`

	TopCandidateEmployeeID *uuid.UUID `json:"top_candidate_employee_id"`
	SimilarityScore        *float64   `json:"similarity_score" validate:"omitempty,gte=0,lte=1"`

	LivenessScore  *float64 `json:"liveness_score" validate:"omitempty,gte=0,lte=1"`
	LivenessPassed *bool    `json:"liveness_passed"`

	FaceBox *FaceBox `json:"face_box"`

	SnapshotURL *string `json:"snapshot_url" validate:"omitempty,http_url"`

	ProcessingDurationMS *int `json:"processing_duration_ms" validate:"omitempty,gte=0"`
}

// EventStatus is the lifecycle state of a stored recognition event
type EventStatus string

// Event statuses
const (
	EventPending   EventStatus = "PENDING"
	EventProcessed EventStatus = "PROCESSED"
	EventFailed    EventStatus = "FAILED"
	EventDuplicate EventStatus = "DUPLICATE"
)

// Event is a persisted recognition event; the audit trail of every push
type Event struct {
	ID uuid.UUID `json:"id"`

	// DeviceID is the resolved directory device, nil when the reported device is unknown
	DeviceID *uuid.UUID `json:"device_id,omitempty"`

	// ReportedDeviceID is what the edge claimed, kept even when unresolved
	ReportedDeviceID uuid.UUID `json:"reported_device_id"`

	EmployeeID *uuid.UUID `json:"employee_id,omitempty"`

	CapturedAt time.Time `json:"captured_at"`

	Embedding []float32 `json:"-"`

	SimilarityScore *float64 `json:"similarity_score,omitempty"`
	LivenessScore   *float64 `json:"liveness_score,omitempty"`
	LivenessPassed  *bool    `json:"liveness_passed,omitempty"`

	FaceBox *FaceBox `json:"face_box,omitempty"`

	SnapshotURL          *string `json:"snapshot_url,omitempty"`
	ProcessingDurationMS *int    `json:"processing_duration_ms,omitempty"`

	DedupHash *string     `json:"dedup_hash,omitempty"`
	Status    EventStatus `json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

// OutcomeKind discriminates the ingest result union
type OutcomeKind string

// Outcome kinds
const (
	OutcomeDuplicate       OutcomeKind = "DUPLICATE"
	OutcomeStored          OutcomeKind = "STORED"
	OutcomeRecorded        OutcomeKind = "RECORDED"
	OutcomeRejected        OutcomeKind = "REJECTED"
	OutcomeEvaluationError OutcomeKind = "EVALUATION_ERROR"
	OutcomeTimeout         OutcomeKind = "TIMEOUT"
)

// Outcome is what one ingest call produced. Rejections are data, not errors
type Outcome struct {
	Kind   OutcomeKind           `json:"kind"`
	Event  *Event                `json:"event,omitempty"`
	Record *attdomain.Record     `json:"record,omitempty"`
	Eval   *poldomain.Evaluation `json:"evaluation,omitempty"`
	Reason string                `json:"reason,omitempty"`
	Error  string                `json:"error,omitempty"`
}
