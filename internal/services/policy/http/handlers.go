// Package http provides http transport for shifts and policies
package http

import (
	stdhttp "net/http"

	"punchcard/internal/modkit/httpkit"
	"punchcard/internal/services/policy/domain"
)

// Register mounts policy admin endpoints on the given router
func Register(r httpkit.Router, shifts domain.ShiftsPort, policies domain.PoliciesPort) {
	h := &handlers{shifts: shifts, policies: policies}

	httpkit.PostJSON[domain.CreateShiftInput](r, "/shifts", h.createShift)
	httpkit.Get(r, "/shifts", h.listShifts)
	httpkit.Get(r, "/shifts/{id}", h.getShift)
	httpkit.Delete(r, "/shifts/{id}", h.deleteShift)

	httpkit.PostJSON[domain.CreatePolicyInput](r, "/policies", h.createPolicy)
	httpkit.Get(r, "/policies", h.listPolicies)
	httpkit.Get(r, "/policies/{id}", h.getPolicy)
	httpkit.Delete(r, "/policies/{id}", h.deactivatePolicy)
}

type handlers struct {
	shifts   domain.ShiftsPort
	policies domain.PoliciesPort
}

// @Summary Create a shift
// @Tags Policy
// @Accept json
// @Produce json
// @Param payload body domain.CreateShiftInput true "Shift"
// @Success 200 {object} domain.Shift "ok"
// @Router /policy/shifts [post]
func (h *handlers) createShift(r *stdhttp.Request, in domain.CreateShiftInput) (any, error) {
	return h.shifts.Create(r.Context(), in)
}

// @Summary List shifts
// @Tags Policy
// @Produce json
// @Success 200 {array} domain.Shift "ok"
// @Router /policy/shifts [get]
func (h *handlers) listShifts(r *stdhttp.Request) (any, error) {
	return h.shifts.List(r.Context())
}

// @Summary Fetch a shift
// @Tags Policy
// @Produce json
// @Param id path string true "Shift id"
// @Success 200 {object} domain.Shift "ok"
// @Router /policy/shifts/{id} [get]
func (h *handlers) getShift(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.shifts.Get(r.Context(), id)
}

// @Summary Delete a shift
// @Tags Policy
// @Produce json
// @Param id path string true "Shift id"
// @Success 204 "no content"
// @Router /policy/shifts/{id} [delete]
func (h *handlers) deleteShift(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	if err := h.shifts.Delete(r.Context(), id); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// @Summary Create an attendance policy
// @Tags Policy
// @Accept json
// @Produce json
// @Param payload body domain.CreatePolicyInput true "Policy"
// @Success 200 {object} domain.Policy "ok"
// @Router /policy/policies [post]
func (h *handlers) createPolicy(r *stdhttp.Request, in domain.CreatePolicyInput) (any, error) {
	return h.policies.Create(r.Context(), in)
}

// @Summary List attendance policies
// @Tags Policy
// @Produce json
// @Success 200 {array} domain.Policy "ok"
// @Router /policy/policies [get]
func (h *handlers) listPolicies(r *stdhttp.Request) (any, error) {
	return h.policies.List(r.Context())
}

// @Summary Fetch an attendance policy
// @Tags Policy
// @Produce json
// @Param id path string true "Policy id"
// @Success 200 {object} domain.Policy "ok"
// @Router /policy/policies/{id} [get]
func (h *handlers) getPolicy(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.policies.Get(r.Context(), id)
}

// @Summary Deactivate an attendance policy
// @Tags Policy
// @Produce json
// @Param id path string true "Policy id"
// @Success 204 "no content"
// @Router /policy/policies/{id} [delete]
func (h *handlers) deactivatePolicy(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	if err := h.policies.Deactivate(r.Context(), id); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}
