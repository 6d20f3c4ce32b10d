// Package module wires shifts, policies and the evaluator into the API
package module

import (
	"net/http"

	"punchcard/internal/core/clockwork"
	modkit "punchcard/internal/modkit"
	"punchcard/internal/modkit/httpkit"
	"punchcard/internal/services/policy/domain"
	polhttp "punchcard/internal/services/policy/http"
	polrepo "punchcard/internal/services/policy/repo"
	polsvc "punchcard/internal/services/policy/service"
)

// Ports exposed by the policy module
type Ports struct {
	Shifts    domain.ShiftsPort
	Policies  domain.PoliciesPort
	Evaluator domain.EvaluatorPort
}

// Module implements the policy module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws      []func(http.Handler) http.Handler
	ports    Ports
	register func(httpkit.Router)

	// Zone is exported for composition roots that need the same zone
	Zone clockwork.Zone
}

// New constructs the policy module
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("policy"), modkit.WithPrefix("/policy")}, opts...)...)

	o := FromConfig(deps.Cfg)
	zone := clockwork.MustLoadZone(o.BusinessZone)

	binder := polrepo.NewPG()
	shifts := polsvc.NewShifts(deps.PG, binder, o.BusinessZone)
	policies := polsvc.NewPolicies(deps.PG, binder)
	evaluator := polsvc.NewEvaluator(deps.PG, binder, zone, clockwork.System())

	m := &Module{
		deps:   deps,
		name:   b.Name,
		prefix: b.Prefix,
		mws:    b.Mw,
		ports:  Ports{Shifts: shifts, Policies: policies, Evaluator: evaluator},
		Zone:   zone,
	}

	external := b.Register
	m.register = func(r httpkit.Router) {
		polhttp.Register(r, m.ports.Shifts, m.ports.Policies)
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
