// Package http provides the ingest transport
package http

import (
	stdhttp "net/http"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/modkit/httpkit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/ingest/domain"
)

// Register mounts the recognition endpoints on the given router
func Register(r httpkit.Router, ingest domain.IngestPort, audit domain.AuditPort) {
	h := &handlers{svc: ingest, audit: audit}

	httpkit.PostJSON[domain.Ingress](r, "/", h.ingest)
	httpkit.Get(r, "/", h.recent)
}

type handlers struct {
	svc   domain.IngestPort
	audit domain.AuditPort
}

// @Summary Ingest a recognition push
// @Description Deduplicates, evaluates against the attendance policy and
// @Description appends to the ledger when approved. Rejections come back in
// @Description the outcome body, not as HTTP errors
// @Tags Ingest
// @Accept json
// @Produce json
// @Param payload body domain.Ingress true "Recognition push"
// @Success 200 {object} domain.Outcome "ok"
// @Router /recognitions [post]
func (h *handlers) ingest(r *stdhttp.Request, in domain.Ingress) (any, error) {
	return h.svc.Ingest(r.Context(), in)
}

// @Summary List recent recognition events
// @Tags Ingest
// @Produce json
// @Param since query string false "RFC3339 cutoff, default 24h ago"
// @Param employee_id query string false "Narrow to one employee"
// @Param device_id query string false "Narrow to one device"
// @Success 200 {array} domain.Event "ok"
// @Router /recognitions [get]
func (h *handlers) recent(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()

	since := time.Now().UTC().Add(-24 * time.Hour)
	if raw := q.Get("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, perr.InvalidArgf("since must be RFC3339")
		}
		since = t
	}

	employeeID, err := optionalUUID(q.Get("employee_id"), "employee_id")
	if err != nil {
		return nil, err
	}
	deviceID, err := optionalUUID(q.Get("device_id"), "device_id")
	if err != nil {
		return nil, err
	}

	return h.audit.Recent(r.Context(), employeeID, deviceID, since)
}

func optionalUUID(raw, name string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, perr.InvalidArgf("%s must be a uuid", name)
	}
	return &id, nil
}
