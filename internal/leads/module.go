// Package leads wires the lead disposition and assignment engine: dispositions,
// campaign and agent assignment, pools with import and distribution, and intake.
package leads

import (
	"callcenter_backend/internal/events"
	apphttp "callcenter_backend/internal/http"
	"callcenter_backend/internal/leads/assignment"
	"callcenter_backend/internal/leads/dedupe"
	"callcenter_backend/internal/leads/disposition"
	"callcenter_backend/internal/leads/domain"
	"callcenter_backend/internal/leads/handler"
	"callcenter_backend/internal/leads/management"
	"callcenter_backend/internal/leads/pools"
	"callcenter_backend/internal/leads/repository"
	"callcenter_backend/platform/config"
	"callcenter_backend/platform/httpkit"
	"callcenter_backend/platform/logger"
	"callcenter_backend/platform/metrics"
	"callcenter_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Config is the configuration the module reads.
type Config interface {
	config.ImportConfig
	config.PhoneConfig
	GetMinIOMaxFileSize() int64
}

// Deps are optional collaborators. Nil fields disable the feature.
type Deps struct {
	Cache    dedupe.Cache
	Archiver pools.Archiver
	Metrics  *metrics.Metrics
}

// Module is the leads bounded context implementing http.Module.
type Module struct {
	handler       *handler.Handler
	poolHandler   *handler.PoolHandler
	intakeHandler *handler.IntakeHandler
	detector      *dedupe.Detector
}

// NewModule creates the module with all services sharing one repository.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg Config, deps Deps, log *logger.Logger) *Module {
	repo := repository.New(pool)
	detector := dedupe.New(repo, deps.Cache, log, deps.Metrics)

	dispositions := disposition.New(repo, eventBus, log)
	assignments := assignment.New(repo, eventBus, log)
	intake := management.New(repo, detector, eventBus, cfg, log)
	poolSvc := pools.New(repo, detector, deps.Archiver, eventBus, cfg, log)

	if deps.Metrics != nil {
		SubscribeMetrics(eventBus, deps.Metrics)
	}

	return &Module{
		handler:       handler.New(dispositions, assignments, intake, val),
		poolHandler:   handler.NewPoolHandler(poolSvc, val, cfg.GetMinIOMaxFileSize()),
		intakeHandler: handler.NewIntakeHandler(intake, val),
		detector:      detector,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "leads"
}

// Detector exposes the duplicate detector for other modules.
func (m *Module) Detector() *dedupe.Detector {
	return m.detector
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	m.handler.RegisterSupervisorRoutes(ctx.Supervisors)
	m.poolHandler.RegisterRoutes(ctx.Supervisors.Group("/pools"))

	agents := ctx.Protected.Group("")
	agents.Use(httpkit.RequireRole(domain.RoleAgent))
	m.intakeHandler.RegisterAgentRoutes(agents)

	public := ctx.V1.Group("/public")
	if ctx.PublicRateLimiter != nil {
		public.Use(ctx.PublicRateLimiter.RateLimit())
	}
	m.intakeHandler.RegisterPublicRoutes(public)
}

var (
	_ apphttp.Module              = (*Module)(nil)
	_ disposition.Repository      = (*repository.Repository)(nil)
	_ assignment.Repository       = (*repository.Repository)(nil)
	_ pools.Repository            = (*repository.Repository)(nil)
	_ management.Repository       = (*repository.Repository)(nil)
	_ dedupe.Store                = (*repository.Repository)(nil)
	_ pools.DuplicateChecker      = (*dedupe.Detector)(nil)
	_ management.DuplicateChecker = (*dedupe.Detector)(nil)
)
