// Package ops provides CLI commands to validate and execute batches of operations.
package ops

import (
	"github.com/smartcontractkit/batchops/batch"
	"github.com/smartcontractkit/batchops/config"
	"github.com/smartcontractkit/batchops/opfile"
	"github.com/smartcontractkit/batchops/pkg/logger"
)

// ConfigLoaderFunc loads the configuration from a file, falling back to the environment.
type ConfigLoaderFunc func(path string) (*config.Config, error)

// OperationsLoaderFunc loads the operations of a batch from a file.
type OperationsLoaderFunc func(path string) ([]batch.Operation, error)

// RequesterFactoryFunc creates the Requester verb operations are sent through.
type RequesterFactoryFunc func(cfg config.RemoteConfig, lggr logger.Logger) (batch.Requester, error)

// defaultRequesterFactory creates a REST client from the remote configuration.
func defaultRequesterFactory(cfg config.RemoteConfig, lggr logger.Logger) (batch.Requester, error) {
	return cfg.NewClient(lggr)
}

// Deps holds the injectable dependencies for the batch commands.
// All fields are optional; nil values will use production defaults.
type Deps struct {
	// ConfigLoader loads the configuration.
	// Default: config.Load
	ConfigLoader ConfigLoaderFunc

	// OperationsLoader loads the operations file.
	// Default: opfile.Load
	OperationsLoader OperationsLoaderFunc

	// RequesterFactory creates the Requester for verb operations.
	// Default: a remote.Client built from the remote configuration
	RequesterFactory RequesterFactoryFunc
}

// applyDefaults fills in nil dependencies with production defaults.
func (d *Deps) applyDefaults() {
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.OperationsLoader == nil {
		d.OperationsLoader = opfile.Load
	}
	if d.RequesterFactory == nil {
		d.RequesterFactory = defaultRequesterFactory
	}
}
