package rest

import (
	"context"
	"net/http"
	"time"

	"cost-engine-service/internal/core/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

type Server struct {
	httpServer *http.Server
	logger     port.LoggerPort
}

// Handlers are the route groups mounted under /api.
type Handlers struct {
	CostFactors *CostFactorHandler
	Estimates   *EstimateHandler
	Scenarios   *ScenarioHandler
	Heatmaps    *HeatmapHandler
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(cfg ServerConfig, h Handlers, observer HTTPObserver, baseLogger port.LoggerPort) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)
	if observer != nil {
		r.Use(MetricsMiddleware(observer))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders:   []string{"X-Trace-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
	})
	if h.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/cost-factors", func(r chi.Router) {
			r.Get("/", h.CostFactors.GetCostFactors)
			r.Get("/source", h.CostFactors.GetActiveSource)
			r.Put("/source", h.CostFactors.SetActiveSource)
			r.Get("/sources", h.CostFactors.ListSources)
			r.Put("/sources/{source}/dataset", h.CostFactors.ImportDataset)
			r.Delete("/cache", h.CostFactors.ClearCache)
		})

		r.Post("/cost-estimates", h.Estimates.Estimate)
		r.Post("/cost-estimates/matrix", h.Estimates.Matrix)
		r.Post("/cost-estimates/batch", h.Estimates.Batch)

		r.Route("/what-if-scenarios", func(r chi.Router) {
			r.Get("/", h.Scenarios.List)
			r.Post("/", h.Scenarios.Create)
			r.Post("/impact", h.Scenarios.PreviewImpact)
			r.Post("/compare", h.Scenarios.Compare)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.Scenarios.Get)
				r.Put("/", h.Scenarios.Update)
				r.Delete("/", h.Scenarios.Delete)
				r.Post("/save", h.Scenarios.Save)
				r.Get("/variations", h.Scenarios.ListVariations)
				r.Post("/variations", h.Scenarios.AddVariation)
				r.Delete("/variations/{variationID}", h.Scenarios.RemoveVariation)
			})
		})

		r.Get("/heatmaps/{level}", h.Heatmaps.GetHeatmap)
		r.Delete("/heatmaps/cache", h.Heatmaps.ClearCache)
	})

	return r
}

func NewServer(cfg ServerConfig, h Handlers, observer HTTPObserver, baseLogger port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, h, observer, baseLogger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: baseLogger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST server", port.Fields{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	return s.httpServer.Shutdown(ctx)
}
