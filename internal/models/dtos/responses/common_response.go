package responses

import (
	"time"

	"infinite-experiment/keydrop/internal/models/entities"
)

type APIResponse[T any] struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Error     string         `json:"error,omitempty"`
	Code      string         `json:"code,omitempty"`
	Page      *entities.Page `json:"page,omitempty"`
	Data      *T             `json:"data,omitempty"`
}
