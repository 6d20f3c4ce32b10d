// Package http provides the attendance reporting endpoints
package http

import (
	stdhttp "net/http"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/modkit/httpkit"
	perr "punchcard/internal/platform/errors"
	"punchcard/internal/services/attendance/domain"
)

// Register mounts ledger read endpoints on the given router
func Register(r httpkit.Router, ledger domain.LedgerPort) {
	h := &handlers{ledger: ledger}

	httpkit.Get(r, "/records/{date}", h.forDate)
	httpkit.Get(r, "/records/{date}/employees/{id}", h.dayFor)
}

type handlers struct{ ledger domain.LedgerPort }

func dateParam(r *stdhttp.Request) (clockwork.Date, error) {
	d, err := clockwork.ParseDate(httpkit.Param(r, "date"))
	if err != nil {
		return clockwork.Date{}, perr.WithField(err, "date")
	}
	return d, nil
}

// @Summary Attendance records for a business date
// @Tags Attendance
// @Produce json
// @Param date path string true "Business date (YYYY-MM-DD)"
// @Success 200 {array} domain.Record "ok"
// @Router /attendance/records/{date} [get]
func (h *handlers) forDate(r *stdhttp.Request) (any, error) {
	d, err := dateParam(r)
	if err != nil {
		return nil, err
	}
	return h.ledger.ForDate(r.Context(), d)
}

// @Summary One employee's punches for a business date
// @Tags Attendance
// @Produce json
// @Param date path string true "Business date (YYYY-MM-DD)"
// @Param id path string true "Employee id"
// @Success 200 {array} domain.Record "ok"
// @Router /attendance/records/{date}/employees/{id} [get]
func (h *handlers) dayFor(r *stdhttp.Request) (any, error) {
	d, err := dateParam(r)
	if err != nil {
		return nil, err
	}
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.ledger.Day(r.Context(), id, d)
}
