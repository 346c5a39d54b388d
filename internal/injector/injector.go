//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/onart/YERM-sub001/internal/core/runtime"
)

// InitializeRuntime builds a runtime from a loaded config.
func InitializeRuntime(cfg runtime.Config) (*runtime.Runtime, error) {
	wire.Build(runtime.New)
	return nil, nil
}
