// Package trace provides a gpucore.Backend decorator that records every
// dispatch call as a structured log record.
//
// The decorator forwards each call to the wrapped backend unchanged and
// emits one record per call. The record message is the operation name
// ("DeviceCreateBuffer", "RenderPass.Draw", ...) and the attributes are
// the call's handles, sizes, labels and outcome:
//
//	b := trace.NewJSON(memory.New(), f)
//	inst := gpuapi.NewInstance(b)
//
// With NewJSON the stream is one JSON object per line, in call order,
// each carrying a monotonically increasing "seq". Futures returned by
// the wrapped backend are traced twice: once when requested and once
// with the "resolved" suffix when they resolve.
//
// Pass and bundle encoders are wrapped so their recording calls are
// traced too; each one carries a "pass" attribute that ties its records
// to the Begin call that opened it.
package trace
