// factory.go maps backend names from configuration to their registered
// constructors.
package storage

import (
	"fmt"

	"github.com/gem-registry/gem-registry/internal/config"
)

// FactoryFunc constructs a backend from the application configuration
type FactoryFunc func(*config.Config) (Storage, error)

var factories = make(map[string]FactoryFunc)

// Register registers a storage backend factory under a name
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// NewStorage creates the configured storage backend
func NewStorage(cfg *config.Config) (Storage, error) {
	factory, ok := factories[cfg.Storage.DefaultBackend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", cfg.Storage.DefaultBackend)
	}

	return factory(cfg)
}
