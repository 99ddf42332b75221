package app

import (
	"net/http"

	middle "pulsewatch/internals/middleware"
	"pulsewatch/internals/modules/channel"
	"pulsewatch/internals/modules/monitor"
	"pulsewatch/internals/modules/user"
	"pulsewatch/pkg/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(c *Container) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middle.Logger(c.Logger))
	r.Use(middle.Metrics(metrics.HTTPRecorder{}))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: c.Config.HTTP.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.Timeout(c.Config.HTTP.RequestTimeout))

		v1.Mount("/users", user.Routes(c.userHandler, c.authMW))
		v1.Mount("/monitors", monitor.Routes(c.monitorHandler, c.authMW))
		v1.Mount("/channels", channel.Routes(c.channelHandler, c.authMW))
	})

	return r
}
