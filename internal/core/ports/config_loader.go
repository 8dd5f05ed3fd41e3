package ports

import "go.trai.ch/parcel/internal/core/domain"

// ConfigLoader resolves the runtime configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load merges the explicit overrides with the environment, the optional
	// config file, and the defaults.
	Load(overrides domain.Overrides) (*domain.Config, error)
}
