package routes

import (
	"infinite-experiment/keydrop/internal/api"
	"infinite-experiment/keydrop/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers the admin API. Every route requires the admin API key.
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers, limiter *middleware.RateLimiter, cfg RouterConfig) {
	r.Route("/api/v1/admin", func(admin chi.Router) {
		admin.Use(limiter.Middleware)
		admin.Use(middleware.AdminAuthMiddleware(cfg.AdminAPIKey, cfg.AdminID))

		admin.Get("/stats", handlers.StatsHandler)

		admin.Post("/keys", handlers.AddKeysHandler)

		admin.Route("/users", func(users chi.Router) {
			users.Get("/", handlers.ListUsersHandler)
			users.Get("/{userID}/history", handlers.UserHistoryHandler)
			users.Post("/{userID}/block", handlers.BlockUserHandler)
			users.Post("/{userID}/unblock", handlers.UnblockUserHandler)
			users.Post("/{userID}/reset-cooldown", handlers.ResetCooldownHandler)
		})

		admin.Get("/waitlist", handlers.ListWaitlistHandler)
		admin.Get("/left-users", handlers.ListLeftUsersHandler)

		// Two-phase bulk actions
		admin.Post("/actions", handlers.ProposeActionHandler)
		admin.Post("/actions/confirm", handlers.ConfirmActionHandler)
		admin.Post("/actions/cancel", handlers.CancelActionHandler)

		admin.Get("/settings", handlers.GetSettingsHandler)
		admin.Patch("/settings", handlers.UpdateSettingsHandler)

		admin.Get("/channels", handlers.ListChannelsHandler)
		admin.Post("/channels", handlers.AddChannelHandler)
		admin.Delete("/channels/{handle}", handlers.RemoveChannelHandler)

		admin.Post("/broadcast", handlers.BroadcastHandler)
	})
}
