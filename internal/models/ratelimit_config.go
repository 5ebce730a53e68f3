package models

import "time"

// Rate limit config keys
const (
	RatelimitKeyDefault = "default"
	RatelimitKeyConvert = "convert"
)

// RatelimitConfig holds a named rate limit (e.g. "5-S", "100-M") for a group of routes.
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
