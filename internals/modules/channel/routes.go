package channel

import (
	middle "pulsewatch/internals/middleware"

	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, authMW *middle.AuthMiddleware) chi.Router {
	r := chi.NewRouter()
	r.Use(authMW.Handle)

	r.Post("/", h.CreateChannel)
	r.Get("/", h.ListChannels)
	r.Get("/{channelID}", h.GetChannel)
	r.Patch("/{channelID}", h.UpdateChannel)
	r.Delete("/{channelID}", h.DeleteChannel)

	return r
}

/*
- POST: /channels -> create channel
	body : CreateChannelRequest

- GET: /channels -> channels of the user
- GET|PATCH|DELETE: /channels/{channelID}
	PATCH body : UpdateChannelRequest

all routes require auth
*/
