//go:build !rust

package rust

import (
	"github.com/cockroachdb/errors"

	"github.com/gogpu/gpuapi/backend"
	"github.com/gogpu/gpuapi/gpucore"
)

// init registers a factory that always fails, so backend.Default skips
// rust when the tag is not set and backend.Get reports why.
func init() {
	backend.Register(backend.BackendRust, func() (gpucore.Backend, error) {
		return nil, errors.Mark(ErrNotCompiled, backend.ErrBackendNotAvailable)
	})
}
