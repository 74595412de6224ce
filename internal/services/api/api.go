// Package api provides the HTTP API for the application
package api

import (
	"crypto/subtle"

	"fanflow/internal/platform/config"
	perr "fanflow/internal/platform/errors"
	"fanflow/internal/platform/logger"
	phttp "fanflow/internal/platform/net/http"
	"fanflow/internal/platform/net/middleware"
	"fanflow/internal/platform/store"

	"fanflow/internal/modkit"
	"fanflow/internal/modkit/httpkit"
	"fanflow/internal/modkit/module"
	"fanflow/internal/modkit/swaggerkit"

	"fanflow/internal/adapters/brain"
	automationsapimod "fanflow/internal/services/api/automations/module"
	interactionsmod "fanflow/internal/services/api/interactions/module"
	metamod "fanflow/internal/services/api/meta/module"
	queueapimod "fanflow/internal/services/api/queue/module"
	automationsdom "fanflow/internal/services/automations/domain"
	automationsmod "fanflow/internal/services/automations/module"
	enginedom "fanflow/internal/services/engine/domain"
	enginemod "fanflow/internal/services/engine/module"
	enginesvc "fanflow/internal/services/engine/service"
	queuesvc "fanflow/internal/services/queue/service"
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

	// The brain client backs both AI rule conditions and reply generation.
	// Without a BRAIN_URL the pipeline runs template-only and AI conditions
	// evaluate as non-matching
	var evaluator automationsdom.ConditionEvaluator
	var generator enginedom.ResponseGenerator
	if bo := brain.FromConfig(deps.Cfg); bo.BaseURL != "" {
		client := brain.NewClient(bo)
		evaluator = client
		generator = client
	}

	// Mutating endpoints sit behind a static operator bearer token when
	// ADMIN_TOKEN is set; without it they stay open for local development
	var adminPort middleware.AuthPort
	if tok := deps.Cfg.MayString("ADMIN_TOKEN", ""); tok != "" {
		adminPort = httpkit.NewPortFunc(adminTokenFunc(tok))
	}

	// Construct the worker-side modules first and extract their ports
	automations := automationsmod.New(deps, automationsmod.Options{Evaluator: evaluator})
	queue := queuesvc.New(deps, queuesvc.FromConfig(deps.Cfg))

	engine := enginemod.New(deps, enginesvcDeps(automations, queue, generator))

	mods := []module.Module{
		metamod.New(deps),
		interactionsmod.New(
			deps,
			modkit.WithPorts(interactionsmod.Ports{
				Submitter: engine.Ports().Submitter,
			}),
		),
		queueapimod.New(
			deps,
			modkit.WithPorts(queueapimod.Ports{
				Reader: queue,
				Auth:   adminPort,
			}),
		),
		automationsapimod.New(
			deps,
			modkit.WithPorts(automationsapimod.Ports{
				Reader: automations.Ports().Reader,
				Writer: automations.Ports().Writer,
				Auth:   adminPort,
			}),
		),
	}

	// versioned API with a common middleware stack
	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		// Swagger + profiler
		swaggerkit.Mount(r, opt.EnableSwagger)
		phttp.MountProfiler(r, "/debug", opt.EnableProfiler)

		for _, m := range mods {
			// register each module's ports under its own name (for cross-module lookups)
			module.Register(m.Name(), m.Ports())

			// mount module routes under its Prefix()
			m.MountRoutes(api)
		}
	})
}

// adminTokenFunc accepts exactly the configured operator token
func adminTokenFunc(want string) httpkit.TokenFunc {
	return func(token string) (string, string, error) {
		if subtle.ConstantTimeCompare([]byte(token), []byte(want)) != 1 {
			return "", "", perr.Unauthorizedf("invalid bearer token")
		}
		return "admin", "", nil
	}
}

// enginesvcDeps bundles the pipeline capabilities the engine consumes
func enginesvcDeps(a *automationsmod.Module, q *queuesvc.Svc, gen enginedom.ResponseGenerator) enginesvc.Deps {
	ap := a.Ports()
	return enginesvc.Deps{
		Reader:    ap.Reader,
		Matcher:   ap.Matcher,
		Scheduler: ap.Scheduler,
		Enqueuer:  q,
		Usage:     q,
		Generator: gen,
	}
}
