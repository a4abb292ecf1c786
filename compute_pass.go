package gpuapi

import "github.com/gogpu/gpuapi/gpucore"

// ComputePass records dispatches into its parent encoder.
//
//	pass := enc.BeginComputePass(nil)
//	defer pass.End()
type ComputePass struct {
	encoder *CommandEncoder
	pass    gpucore.ComputePassEncoder
	label   string
	state   PassState
}

// State returns the pass state.
func (p *ComputePass) State() PassState { return p.state }

func (p *ComputePass) check(op string) gpucore.ComputePassEncoder {
	if p.state == PassStateEnded {
		panic(passEnded("compute", p.label, op))
	}
	return p.pass
}

// SetPipeline sets the active compute pipeline.
func (p *ComputePass) SetPipeline(pipeline *ComputePipeline) {
	p.check("set pipeline").SetPipeline(pipeline.live())
}

// SetBindGroup binds group at index with one offset per dynamic binding.
func (p *ComputePass) SetBindGroup(index uint32, group *BindGroup, dynamicOffsets []uint32) {
	p.check("set bind group").SetBindGroup(index, group.live(), dynamicOffsets)
}

// SetPushConstants writes data at a 4-byte aligned byte offset.
func (p *ComputePass) SetPushConstants(offset uint32, data []uint32) {
	enc := p.check("set push constants")
	checkPushConstantOffset(offset)
	enc.SetPushConstants(offset, data)
}

// InsertDebugMarker inserts a debug label.
func (p *ComputePass) InsertDebugMarker(label string) {
	p.check("insert debug marker").InsertDebugMarker(label)
}

// PushDebugGroup opens a labelled debug group.
func (p *ComputePass) PushDebugGroup(label string) {
	p.check("push debug group").PushDebugGroup(label)
}

// PopDebugGroup closes the innermost debug group.
func (p *ComputePass) PopDebugGroup() {
	p.check("pop debug group").PopDebugGroup()
}

// Dispatch dispatches x*y*z workgroups.
func (p *ComputePass) Dispatch(x, y, z uint32) {
	p.check("dispatch").Dispatch(x, y, z)
}

// DispatchIndirect dispatches with workgroup counts read from buffer.
func (p *ComputePass) DispatchIndirect(buffer *Buffer, offset uint64) {
	p.check("dispatch indirect").DispatchIndirect(buffer.live(), offset)
}

// End appends the pass to its encoder and unlocks it. Calling End again
// does nothing. During a panic the backend is not called.
func (p *ComputePass) End() {
	if r := recover(); r != nil {
		p.abandon()
		panic(r)
	}
	p.end()
}

// Release is End.
func (p *ComputePass) Release() {
	if r := recover(); r != nil {
		p.abandon()
		panic(r)
	}
	p.end()
}

func (p *ComputePass) end() {
	if p.state == PassStateEnded {
		return
	}
	p.state = PassStateEnded
	p.encoder.backend.CommandEncoderEndComputePass(p.encoder.live(), p.pass)
	p.encoder.endPass()
	Logger().Debug("gpu: compute pass end", "encoder", p.encoder.label, "pass", p.label)
}

func (p *ComputePass) abandon() {
	if p.state == PassStateEnded {
		return
	}
	p.state = PassStateEnded
	p.encoder.abandonPass()
	Logger().Warn("gpu: compute pass end skipped during panic", "pass", p.label)
}
