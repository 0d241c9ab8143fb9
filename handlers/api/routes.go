package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// Prefix is the mount point of every endpoint
const Prefix = "/ceapp/v1"

// RegisterRoutes mounts the REST endpoints. public guards the endpoints
// anyone can call, such as a rate limiter.
func RegisterRoutes(app fiber.Router, jwtSecret []byte, users *UsersHandler, colors *ColorsHandler, events *NotificationHandler, public ...fiber.Handler) {
	v1 := app.Group(Prefix, BearerIdentity(jwtSecret))

	guarded := func(h fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, public...), h)
	}
	v1.Post("/users/new", guarded(users.Register)...)
	v1.Post("/users/recover", guarded(users.Recover)...)

	v1.Get("/users/me", users.Me)
	v1.Post("/users/me", users.UpdateMe)

	v1.Get("/users/me/colors", colors.List)
	v1.Post("/users/me/colors", colors.Add)
	v1.Delete("/users/me/colors", colors.Remove)

	v1.Get("/users/me/events", events.HandleSSE)
	v1.Get("/users/me/ws", events.RequireWebSocket, websocket.New(events.HandleWebSocket))

	v1.Get("/i18n/:lang", GetTranslations)
}
