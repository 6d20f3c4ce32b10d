// Package module wires the recognition pipeline into the API
package module

import (
	"net/http"

	"punchcard/internal/core/clockwork"
	"punchcard/internal/core/fingerprint"
	modkit "punchcard/internal/modkit"
	"punchcard/internal/modkit/httpkit"
	attrepo "punchcard/internal/services/attendance/repo"
	dirdomain "punchcard/internal/services/directory/domain"
	"punchcard/internal/services/ingest/domain"
	inghttp "punchcard/internal/services/ingest/http"
	ingrepo "punchcard/internal/services/ingest/repo"
	ingsvc "punchcard/internal/services/ingest/service"
	poldomain "punchcard/internal/services/policy/domain"
)

// Wiring declares the cross-module ports the pipeline requires, injected by
// the composition root via modkit.WithPorts
type Wiring struct {
	Employees dirdomain.EmployeesPort
	Devices   dirdomain.DevicesPort
	Evaluator poldomain.EvaluatorPort
	Zone      clockwork.Zone
}

// Ports exposed by the ingest module
type Ports struct {
	Ingest  domain.IngestPort
	Audit   domain.AuditPort
	Janitor domain.JanitorPort
}

// Module implements the ingest module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)
}

// New constructs the ingest module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{
		modkit.WithName("ingest"),
		modkit.WithPrefix("/recognitions"),
	}, opts...)...)

	w, ok := b.Ports.(Wiring)
	if !ok || w.Employees == nil || w.Devices == nil || w.Evaluator == nil {
		panic("ingest module requires Employees, Devices and Evaluator ports")
	}

	o := FromConfig(deps.Cfg)

	var reader fingerprint.SnapshotReader = fingerprint.NopReader{}
	if o.SnapshotsLocal {
		reader = fingerprint.LocalFileReader{}
	}

	svc := ingsvc.New(ingsvc.Service{
		DB:        deps.PG,
		Events:    ingrepo.NewPG(),
		Ledger:    attrepo.NewPG(),
		Employees: w.Employees,
		Devices:   w.Devices,
		Evaluator: w.Evaluator,
		FP:        fingerprint.New(reader, int64(o.DedupWindowSeconds)),
		Zone:      w.Zone,
		CH:        deps.CH,
		Log:       deps.Log,
		Cfg: ingsvc.Config{
			MinSimilarity:  o.MinSimilarity,
			Serialization:  o.Serialization,
			IngestDeadline: o.Deadline,
			Retries:        o.Retries,
		},
	})

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  Ports{Ingest: svc, Audit: svc, Janitor: svc},
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		inghttp.Register(r, m.ports.Ingest, m.ports.Audit)
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
