// Package module wires the attendance ledger into the API
package module

import (
	"net/http"

	modkit "punchcard/internal/modkit"
	"punchcard/internal/modkit/httpkit"
	"punchcard/internal/services/attendance/domain"
	atthttp "punchcard/internal/services/attendance/http"
	attrepo "punchcard/internal/services/attendance/repo"
	attsvc "punchcard/internal/services/attendance/service"
)

// Ports exposed by the attendance module
type Ports struct {
	Ledger domain.LedgerPort
}

// Module implements the attendance module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)
}

// New constructs the attendance module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("attendance"), modkit.WithPrefix("/attendance")}, opts...)...)

	binder := attrepo.NewPG()
	svc := attsvc.New(deps.PG, binder)

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  Ports{Ledger: svc},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		atthttp.Register(r, m.ports.Ledger)
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
