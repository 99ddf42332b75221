package monitor

import (
	middle "pulsewatch/internals/middleware"

	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, authMW *middle.AuthMiddleware) chi.Router {
	r := chi.NewRouter()
	r.Use(authMW.Handle)

	r.Post("/", h.CreateMonitor)
	r.Get("/", h.ListMonitors)
	r.Post("/check-all", h.CheckAll)

	r.Route("/{monitorID}", func(r chi.Router) {
		r.Get("/", h.GetMonitor)
		r.Patch("/", h.UpdateMonitor)
		r.Delete("/", h.DeleteMonitor)
		r.Get("/history", h.GetHistory)
		r.Get("/incidents", h.GetIncidents)
		r.Post("/check", h.CheckNow)

		r.Get("/channels", h.ListChannels)
		r.Put("/channels/{channelID}", h.Subscribe)
		r.Delete("/channels/{channelID}", h.Unsubscribe)
	})

	return r
}

/*
- POST: /monitors -> create monitor
	body : CreateMonitorRequest
	resp : MonitorResponse

- GET: /monitors?limit={}&offset={} -> monitors of the user with derived status
	resp : ListMonitorsResponse

- GET|PATCH|DELETE: /monitors/{monitorID}
	PATCH body : UpdateMonitorRequest

- GET: /monitors/{monitorID}/history?from={}&to={} -> ordered check results
- GET: /monitors/{monitorID}/incidents?from={}&to={} -> derived incidents

- POST: /monitors/{monitorID}/check -> probe now
- POST: /monitors/check-all -> probe every enabled monitor now

- GET: /monitors/{monitorID}/channels -> subscribed channels
- PUT|DELETE: /monitors/{monitorID}/channels/{channelID} -> subscribe / unsubscribe

all routes require auth
*/
