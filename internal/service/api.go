package service

import (
	"log/slog"

	"github.com/set-night/coworker/internal/config"
)

// New returns the backend selected by cfg: the embedded fixtures when mock
// mode is on, the HTTP backend otherwise.
func New(cfg *config.Config) API {
	if cfg.UseMockAPI {
		slog.Warn("using mock backend")
		return NewMockBackend()
	}
	return NewBackend(cfg.BackendURL, cfg.APIGatewayID, cfg.BackendTimeout)
}
