// Package gpuapi provides a backend-agnostic GPU resource and command API.
//
// # Overview
//
// gpuapi wraps a [gpucore.Backend] in typed, owning resource handles and
// a checked command recording model. The same program runs unchanged on
// any registered backend: the pure-Go native HAL backend, the wgpu-native
// backend, or the in-process memory backend used by tests.
//
// # Quick Start
//
//	inst, err := gpuapi.NewDefaultInstance()
//	if err != nil {
//	    return err
//	}
//	defer inst.Release()
//
//	adapter, err := inst.RequestAdapter(ctx, nil)
//	if err != nil {
//	    return err // errors.Is(err, gpuapi.ErrNoAdapter)
//	}
//	defer adapter.Release()
//
//	device, queue, err := adapter.RequestDevice(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer device.Release()
//
//	enc, _ := device.CreateCommandEncoder(nil)
//	pass := enc.BeginComputePass(nil)
//	pass.SetPipeline(pipeline)
//	pass.Dispatch(64, 1, 1)
//	pass.End()
//	cmd, _ := enc.Finish()
//	queue.Submit(cmd)
//
// # Ownership
//
// Every wrapper owns one backend handle and forwards exactly one drop
// when released. Release is idempotent. Deferred releases that run while
// a panic unwinds skip the backend call so that the original panic is
// the one reported.
//
// The backend itself is reference counted by the Instance, every Adapter
// and every Device, and is closed when the last of them is released.
//
// # Recording
//
// A CommandEncoder is locked while a RenderPass or ComputePass is open.
// Using it directly in that state, or after Finish, panics. Passes are
// ended explicitly, usually by a deferred End.
//
// # Mapping
//
// Buffers are mapped through BufferSlice.MapAsync. The returned future
// resolves once the device is polled past any pending work. Mapped views
// must not overlap and must be released before Unmap.
//
// # Presentation
//
// A SwapChain hands out at most one SwapChainFrame at a time. Releasing
// the frame presents it. Recreating the swap chain while a frame is alive
// panics.
//
// # Errors
//
// Runtime failures (no adapter, device request, map failure, swap chain
// acquisition) are returned as errors. Misuse of the API is a programmer
// error and panics with a value matching one of the exported sentinels
// through errors.Is.
package gpuapi

// Version information
const (
	// Version is the current version of the library
	Version = "0.1.0-alpha.1"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0

	// VersionPrerelease is the prerelease identifier
	VersionPrerelease = "alpha.1"
)
