package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user/perfwatch/internal/delivery/http/handler"
	"github.com/user/perfwatch/internal/delivery/http/middleware"
	"go.uber.org/zap"
)

func New(h *handler.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/api/health", h.HandleHealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/channels", func(r chi.Router) {
		r.Get("/", h.HandleListChannels)
		r.Post("/", h.HandleCreateChannel)

		// Static segments win over {id}, so these never reach the channel routes.
		r.Route("/metrics", func(r chi.Router) {
			r.Get("/average", h.HandleAverageMetrics)
			r.Get("/pages/{page_id}", h.HandlePageMetrics)
			r.Post("/collect", h.HandleCollectAll)
			r.Post("/{channel_id}/collect", h.HandleCollectChannel)
			r.Post("/{channel_id}/pages/{page_id}/collect", h.HandleCollectPage)
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetChannel)
			r.Patch("/", h.HandleUpdateChannel)
			r.Delete("/", h.HandleDeleteChannel)

			r.Get("/pages", h.HandleListPages)
			r.Post("/pages", h.HandleCreatePage)
			r.Get("/pages/{page_id}", h.HandleGetPage)
			r.Patch("/pages/{page_id}", h.HandleUpdatePage)
			r.Delete("/pages/{page_id}", h.HandleDeletePage)
		})
	})

	r.Route("/providers", func(r chi.Router) {
		r.Get("/", h.HandleListProviders)
		r.Post("/", h.HandleCreateProvider)
		r.Get("/{id}", h.HandleGetProvider)
		r.Patch("/{id}", h.HandleUpdateProvider)
		r.Delete("/{id}", h.HandleDeleteProvider)
	})

	r.Get("/queues/{name}/counts", h.HandleQueueCounts)

	return r
}
