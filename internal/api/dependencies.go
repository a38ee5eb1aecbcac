package api

import (
	"context"

	"infinite-experiment/keydrop/internal/db/repositories"
	"infinite-experiment/keydrop/internal/services"
)

// Pinger reports whether a backing service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Admin         *services.AdminService
	Notifications *services.NotificationService
}

type Dependencies struct {
	Services *Services
	Stats    *repositories.StatsRepo
	// Redis is nil when the in-process cache is used
	Redis Pinger
}

func InitDependencies(admin *services.AdminService, notifications *services.NotificationService, stats *repositories.StatsRepo, redis Pinger) *Dependencies {
	return &Dependencies{
		Services: &Services{
			Admin:         admin,
			Notifications: notifications,
		},
		Stats: stats,
		Redis: redis,
	}
}
