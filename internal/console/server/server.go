package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/nosigns-guard/internal/console/handler"
	"github.com/xela07ax/nosigns-guard/internal/domain"
	"github.com/xela07ax/nosigns-guard/internal/engine"
	"github.com/xela07ax/nosigns-guard/internal/infra/auth"
)

// Server — единый HTTP-вход: проверки от хоста и админка правил.
type Server struct {
	router *chi.Mux
	logger *zap.Logger

	// nil — auth.disabled, токены не проверяем (локальный хост в одном поде)
	authValidator auth.TokenValidator

	healthHandler *handler.HealthHandler     // /health, /ready
	checkHandler  http.Handler               // /v1/placements/check
	rulesHandler  *handler.RulesHandler      // /v1/rules
	permHandler   *handler.PermissionHandler // /v1/permissions
	dashHandler   *handler.DashboardHandler  // /v1/stats
}

func NewServer(
	logger *zap.Logger,
	validator auth.TokenValidator,
	healthH *handler.HealthHandler,
	checkH http.Handler,
	rulesH *handler.RulesHandler,
	permH *handler.PermissionHandler,
	dashH *handler.DashboardHandler,
) *Server {
	s := &Server{
		router:        chi.NewRouter(),
		logger:        logger.Named("http-api"),
		authValidator: validator,
		healthHandler: healthH,
		checkHandler:  checkH,
		rulesHandler:  rulesH,
		permHandler:   permH,
		dashHandler:   dashH,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(engine.TracingMiddleware)

	// --- 2. Публичные роуты ---
	r.Get("/health", s.healthHandler.Live)
	r.Get("/ready", s.healthHandler.Ready)

	// --- 3. Хост: проверка размещения ---
	r.With(s.protect(domain.ScopePlacementCheck)...).
		Method(http.MethodPost, "/v1/placements/check", s.checkHandler)

	// --- 4. Админка ---
	r.Group(func(r chi.Router) {
		r.Use(s.protect(domain.ScopeRulesAdmin)...)

		r.Route("/v1/rules", func(r chi.Router) {
			r.Get("/", s.rulesHandler.Get)
			r.Post("/reload", s.rulesHandler.Reload)
			r.Put("/targets", s.rulesHandler.Replace)
			r.Post("/targets", s.rulesHandler.Add)
			r.Delete("/targets/{key}", s.rulesHandler.Remove)
		})

		r.Route("/v1/permissions", func(r chi.Router) {
			r.Get("/", s.permHandler.List)
			r.Post("/{actor}", s.permHandler.Grant)
			r.Delete("/{actor}", s.permHandler.Revoke)
		})

		r.Get("/v1/stats", s.dashHandler.GetStats)
	})
}

// protect — RS256 токен хоста плюс нужный scope.
func (s *Server) protect(scope string) []func(http.Handler) http.Handler {
	if s.authValidator == nil {
		return nil
	}
	return []func(http.Handler) http.Handler{
		auth.NewMiddleware(s.authValidator, s.logger),
		auth.RequireScope(scope),
	}
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
