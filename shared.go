package gpuapi

import (
	"sync/atomic"

	"github.com/gogpu/gpuapi/gpucore"
)

// sharedBackend is a reference-counted backend instance. The Instance
// and every live wrapper hold one reference each; the backend is closed
// when the last one is released.
type sharedBackend struct {
	gpucore.Backend
	refs atomic.Int32
}

func newSharedBackend(b gpucore.Backend) *sharedBackend {
	sb := &sharedBackend{Backend: b}
	sb.refs.Store(1)

	liveMu.Lock()
	live[sb] = struct{}{}
	liveMu.Unlock()

	propagateLogger(b, Logger())
	return sb
}

// acquire adds a reference.
func (sb *sharedBackend) acquire() *sharedBackend {
	sb.refs.Add(1)
	return sb
}

// release drops a reference and closes the backend on the last one.
func (sb *sharedBackend) release() {
	if sb.refs.Add(-1) != 0 {
		return
	}
	liveMu.Lock()
	delete(live, sb)
	liveMu.Unlock()

	Logger().Debug("gpu: closing backend", "backend", sb.Name())
	sb.Close()
}
