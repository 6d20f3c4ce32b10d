// Package http provides http transport for the directory
package http

import (
	stdhttp "net/http"
	"time"

	"punchcard/internal/modkit/httpkit"
	"punchcard/internal/services/directory/domain"
)

// Register mounts directory endpoints on the given router
func Register(r httpkit.Router, employees domain.EmployeesPort, devices domain.DevicesPort) {
	h := &handlers{employees: employees, devices: devices}

	httpkit.PostJSON[domain.CreateEmployeeInput](r, "/employees", h.createEmployee)
	httpkit.Get(r, "/employees", h.listEmployees)
	httpkit.Get(r, "/employees/{id}", h.getEmployee)
	httpkit.PatchJSON[domain.UpdateEmployeeInput](r, "/employees/{id}", h.updateEmployee)
	httpkit.Delete(r, "/employees/{id}", h.deactivateEmployee)

	httpkit.PostJSON[domain.CreateDeviceInput](r, "/devices", h.createDevice)
	httpkit.Get(r, "/devices", h.listDevices)
	httpkit.Get(r, "/devices/{id}", h.getDevice)
	httpkit.Post(r, "/devices/{id}/heartbeat", h.heartbeatDevice)
	httpkit.Delete(r, "/devices/{id}", h.deactivateDevice)
}

type handlers struct {
	employees domain.EmployeesPort
	devices   domain.DevicesPort
}

// @Summary Register an employee
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body domain.CreateEmployeeInput true "Employee"
// @Success 200 {object} domain.Employee "ok"
// @Router /directory/employees [post]
func (h *handlers) createEmployee(r *stdhttp.Request, in domain.CreateEmployeeInput) (any, error) {
	return h.employees.Create(r.Context(), in)
}

// @Summary List employees
// @Tags Directory
// @Produce json
// @Success 200 {array} domain.Employee "ok"
// @Router /directory/employees [get]
func (h *handlers) listEmployees(r *stdhttp.Request) (any, error) {
	return h.employees.List(r.Context())
}

// @Summary Fetch an employee
// @Tags Directory
// @Produce json
// @Param id path string true "Employee id"
// @Success 200 {object} domain.Employee "ok"
// @Router /directory/employees/{id} [get]
func (h *handlers) getEmployee(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.employees.Get(r.Context(), id)
}

// @Summary Update an employee
// @Tags Directory
// @Accept json
// @Produce json
// @Param id path string true "Employee id"
// @Param payload body domain.UpdateEmployeeInput true "Patch"
// @Success 200 {object} domain.Employee "ok"
// @Router /directory/employees/{id} [patch]
func (h *handlers) updateEmployee(r *stdhttp.Request, in domain.UpdateEmployeeInput) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.employees.Update(r.Context(), id, in)
}

// @Summary Deactivate an employee
// @Tags Directory
// @Produce json
// @Param id path string true "Employee id"
// @Success 204 "no content"
// @Router /directory/employees/{id} [delete]
func (h *handlers) deactivateEmployee(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	if err := h.employees.Deactivate(r.Context(), id); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// @Summary Register a device
// @Tags Directory
// @Accept json
// @Produce json
// @Param payload body domain.CreateDeviceInput true "Device"
// @Success 200 {object} domain.Device "ok"
// @Router /directory/devices [post]
func (h *handlers) createDevice(r *stdhttp.Request, in domain.CreateDeviceInput) (any, error) {
	return h.devices.Create(r.Context(), in)
}

// @Summary List devices
// @Tags Directory
// @Produce json
// @Success 200 {array} domain.Device "ok"
// @Router /directory/devices [get]
func (h *handlers) listDevices(r *stdhttp.Request) (any, error) {
	return h.devices.List(r.Context())
}

// @Summary Fetch a device
// @Tags Directory
// @Produce json
// @Param id path string true "Device id"
// @Success 200 {object} domain.Device "ok"
// @Router /directory/devices/{id} [get]
func (h *handlers) getDevice(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	return h.devices.Get(r.Context(), id)
}

// @Summary Device heartbeat
// @Tags Directory
// @Produce json
// @Param id path string true "Device id"
// @Success 204 "no content"
// @Router /directory/devices/{id}/heartbeat [post]
func (h *handlers) heartbeatDevice(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	if err := h.devices.Heartbeat(r.Context(), id, time.Now().UTC()); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// @Summary Deactivate a device
// @Tags Directory
// @Produce json
// @Param id path string true "Device id"
// @Success 204 "no content"
// @Router /directory/devices/{id} [delete]
func (h *handlers) deactivateDevice(r *stdhttp.Request) (any, error) {
	id, err := httpkit.ParamUUID(r, "id")
	if err != nil {
		return nil, err
	}
	if err := h.devices.Deactivate(r.Context(), id); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}
