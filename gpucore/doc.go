// Package gpucore defines the dispatch contract between the gpuapi front
// end and a GPU backend.
//
// A backend implements [Backend]: one method per resource creation, per
// command recording step and per submission step. Everything that crosses
// the boundary is either an opaque handle ([BufferID], [TextureID], ...),
// a plain-data descriptor, or one of the pass encoder interfaces
// ([RenderPassEncoder], [ComputePassEncoder], [RenderBundleEncoder]).
//
// # Handles
//
// Handles are distinct uint64 types. A backend never issues [InvalidID].
// The front end never inspects a handle; it only passes it back.
//
// # Asynchronous operations
//
// Adapter requests, device requests and buffer mapping return a [Future].
// A future resolves exactly once. Backends that execute on a GPU timeline
// may leave a map future pending until [Backend.DevicePoll] is called.
//
//	fut := b.BufferMapAsync(buf, gpucore.MapModeRead, 0, 256)
//	b.DevicePoll(dev, gpucore.MaintainWait)
//	if _, err := fut.Wait(ctx); err != nil {
//	    return err
//	}
//
// # Descriptors
//
// Value types that carry no handles (formats, usages, limits, pipeline
// states) come from github.com/gogpu/gputypes. Descriptors are not
// validated here; backends decide what is legal.
package gpucore
