// Package module wires the directory into the API using modkit
package module

import (
	"net/http"

	modkit "punchcard/internal/modkit"
	"punchcard/internal/modkit/httpkit"
	"punchcard/internal/services/directory/domain"
	dirhttp "punchcard/internal/services/directory/http"
	dirrepo "punchcard/internal/services/directory/repo"
	dirsvc "punchcard/internal/services/directory/service"
)

// Ports exposed by the directory module
type Ports struct {
	Employees domain.EmployeesPort
	Devices   domain.DevicesPort
}

// Module implements the directory module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)
}

// New constructs the directory module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("directory"), modkit.WithPrefix("/directory")}, opts...)...)

	binder := dirrepo.NewPG()
	employees := dirsvc.New(deps.PG, binder)
	devices := dirsvc.NewDevices(deps.PG, binder)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  Ports{Employees: employees, Devices: devices},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		dirhttp.Register(r, m.ports.Employees, m.ports.Devices)
		if external != nil {
			external(r)
		}
	}
	return m
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		m.register(rr)
	})
}

// Name returns the module name
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return m.prefix }

// Ports returns the module port set
func (m *Module) Ports() any { return m.ports }

// Middlewares returns the module middlewares
func (m *Module) Middlewares() []func(http.Handler) http.Handler { return m.mws }
