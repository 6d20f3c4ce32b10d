// Package api provides the HTTP API for the application
package api

import (
	"punchcard/internal/platform/config"
	"punchcard/internal/platform/logger"
	phttp "punchcard/internal/platform/net/http"
	"punchcard/internal/platform/store"

	"punchcard/internal/modkit"
	"punchcard/internal/modkit/httpkit"
	"punchcard/internal/modkit/module"
	"punchcard/internal/modkit/swaggerkit"

	metamod "punchcard/internal/services/api/meta/module"
	attmod "punchcard/internal/services/attendance/module"
	dirmod "punchcard/internal/services/directory/module"
	ingmod "punchcard/internal/services/ingest/module"
	polmod "punchcard/internal/services/policy/module"
)

// Options are the API options
type Options struct {
	Config         config.Conf
	Store          *store.Store
	Logger         *logger.Logger
	EnableSwagger  bool
	EnableProfiler bool
}

// Mount mounts the API service onto the given router
func Mount(r phttp.Router, opt Options) {
	// shared deps for modules
	deps := modkit.Deps{
		Cfg: opt.Config,
		PG:  opt.Store.PG,
		CH:  opt.Store.CH,
	}
	if opt.Logger != nil {
		deps.Log = *opt.Logger
	}

	// Directory and policy come up first; the pipeline consumes their ports
	directory := dirmod.New(deps)
	policy := polmod.New(deps)
	attendance := attmod.New(deps)

	dirPorts := module.MustPortsOf[dirmod.Ports](directory)
	polPorts := module.MustPortsOf[polmod.Ports](policy)

	ingest := ingmod.New(deps, modkit.WithPorts(ingmod.Wiring{
		Employees: dirPorts.Employees,
		Devices:   dirPorts.Devices,
		Evaluator: polPorts.Evaluator,
		Zone:      policy.Zone,
	}))

	mods := []module.Module{
		metamod.New(deps),
		directory,
		policy,
		attendance,
		ingest,
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			m.MountRoutes(api)
		}
	})
}
