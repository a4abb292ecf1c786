package gpuapi

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
	"github.com/gogpu/gpuapi/internal/mapping"
)

// copyBufferAlignment is the size granularity of buffer copies and
// CreateBufferInit allocations.
const copyBufferAlignment = 4

// Device is an open logical device. It creates every other resource.
type Device struct {
	handle[gpucore.DeviceID]
}

// Features returns the features enabled on the device.
func (d *Device) Features() Features { return d.backend.DeviceFeatures(d.live()) }

// Limits returns the limits the device was created with.
func (d *Device) Limits() Limits { return d.backend.DeviceLimits(d.live()) }

// Poll makes progress on outstanding work. With wait set it blocks until
// all submitted work has completed. Pending map futures resolve here.
func (d *Device) Poll(wait bool) {
	if wait {
		d.Maintain(MaintainWait)
		return
	}
	d.Maintain(MaintainPoll)
}

// Maintain is Poll with an explicit mode.
func (d *Device) Maintain(m Maintain) { d.backend.DevicePoll(d.live(), m) }

// CreateShaderModule creates a shader module.
func (d *Device) CreateShaderModule(desc *ShaderModuleDescriptor) (*ShaderModule, error) {
	id, err := d.backend.DeviceCreateShaderModule(d.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create shader module %q: %w", desc.Label, err)
	}
	m := &ShaderModule{}
	m.init(d.backend, id, "shader module", gpucore.Backend.ShaderModuleDrop)
	return m, nil
}

// CreateBindGroupLayout creates a bind group layout.
func (d *Device) CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (*BindGroupLayout, error) {
	id, err := d.backend.DeviceCreateBindGroupLayout(d.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create bind group layout %q: %w", desc.Label, err)
	}
	return newBindGroupLayout(d.backend, id), nil
}

// CreateBindGroup creates a bind group.
func (d *Device) CreateBindGroup(desc *BindGroupDescriptor) (*BindGroup, error) {
	id, err := d.backend.DeviceCreateBindGroup(d.live(), desc.toCore())
	if err != nil {
		return nil, fmt.Errorf("create bind group %q: %w", desc.Label, err)
	}
	g := &BindGroup{}
	g.init(d.backend, id, "bind group", gpucore.Backend.BindGroupDrop)
	return g, nil
}

// CreatePipelineLayout creates a pipeline layout.
func (d *Device) CreatePipelineLayout(desc *PipelineLayoutDescriptor) (*PipelineLayout, error) {
	id, err := d.backend.DeviceCreatePipelineLayout(d.live(), desc.toCore())
	if err != nil {
		return nil, fmt.Errorf("create pipeline layout %q: %w", desc.Label, err)
	}
	l := &PipelineLayout{}
	l.init(d.backend, id, "pipeline layout", gpucore.Backend.PipelineLayoutDrop)
	return l, nil
}

// CreateRenderPipeline creates a render pipeline.
func (d *Device) CreateRenderPipeline(desc *RenderPipelineDescriptor) (*RenderPipeline, error) {
	id, err := d.backend.DeviceCreateRenderPipeline(d.live(), desc.toCore())
	if err != nil {
		return nil, fmt.Errorf("create render pipeline %q: %w", desc.Label, err)
	}
	p := &RenderPipeline{}
	p.init(d.backend, id, "render pipeline", gpucore.Backend.RenderPipelineDrop)
	return p, nil
}

// CreateComputePipeline creates a compute pipeline.
func (d *Device) CreateComputePipeline(desc *ComputePipelineDescriptor) (*ComputePipeline, error) {
	id, err := d.backend.DeviceCreateComputePipeline(d.live(), desc.toCore())
	if err != nil {
		return nil, fmt.Errorf("create compute pipeline %q: %w", desc.Label, err)
	}
	p := &ComputePipeline{}
	p.init(d.backend, id, "compute pipeline", gpucore.Backend.ComputePipelineDrop)
	return p, nil
}

// CreateBuffer creates a buffer. With MappedAtCreation the whole buffer is
// mapped for writing until Unmap is called.
func (d *Device) CreateBuffer(desc *BufferDescriptor) (*Buffer, error) {
	id, err := d.backend.DeviceCreateBuffer(d.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}
	b := &Buffer{size: desc.Size, usage: desc.Usage, mapCtx: mapping.New(desc.Size)}
	b.init(d.backend, id, "buffer", gpucore.Backend.BufferDrop)
	if desc.MappedAtCreation {
		b.mapCtx.SetInitial(0, desc.Size)
	}
	Logger().Debug("gpu: buffer created", "label", desc.Label, "size", desc.Size)
	return b, nil
}

// BufferInitDescriptor describes a buffer created with initial contents.
type BufferInitDescriptor struct {
	Label    string
	Contents []byte
	Usage    gputypes.BufferUsage
}

// CreateBufferInit creates a buffer holding desc.Contents. The size is
// padded up to a multiple of 4 bytes.
func (d *Device) CreateBufferInit(desc *BufferInitDescriptor) (*Buffer, error) {
	n := uint64(len(desc.Contents))
	if n == 0 {
		return d.CreateBuffer(&BufferDescriptor{Label: desc.Label, Usage: desc.Usage})
	}
	padded := (n + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
	buf, err := d.CreateBuffer(&BufferDescriptor{
		Label:            desc.Label,
		Size:             padded,
		Usage:            desc.Usage,
		MappedAtCreation: true,
	})
	if err != nil {
		return nil, err
	}
	view := buf.Slice(Full()).GetMappedRangeMut()
	copy(view.Bytes(), desc.Contents)
	view.Release()
	buf.Unmap()
	return buf, nil
}

// CreateTexture creates a texture.
func (d *Device) CreateTexture(desc *TextureDescriptor) (*Texture, error) {
	id, err := d.backend.DeviceCreateTexture(d.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}
	t := &Texture{desc: *desc, owned: true}
	t.init(d.backend, id, "texture", gpucore.Backend.TextureDrop)
	return t, nil
}

// CreateSampler creates a sampler.
func (d *Device) CreateSampler(desc *SamplerDescriptor) (*Sampler, error) {
	id, err := d.backend.DeviceCreateSampler(d.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create sampler %q: %w", desc.Label, err)
	}
	s := &Sampler{}
	s.init(d.backend, id, "sampler", gpucore.Backend.SamplerDrop)
	return s, nil
}

// CreateCommandEncoder creates a command encoder.
func (d *Device) CreateCommandEncoder(desc *CommandEncoderDescriptor) (*CommandEncoder, error) {
	if desc == nil {
		desc = &CommandEncoderDescriptor{}
	}
	id, err := d.backend.DeviceCreateCommandEncoder(d.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create command encoder %q: %w", desc.Label, err)
	}
	e := &CommandEncoder{label: desc.Label}
	e.init(d.backend, id, "command encoder", gpucore.Backend.CommandEncoderDrop)
	return e, nil
}

// CreateRenderBundleEncoder creates an encoder for a reusable render bundle.
func (d *Device) CreateRenderBundleEncoder(desc *RenderBundleEncoderDescriptor) (*RenderBundleEncoder, error) {
	enc, err := d.backend.DeviceCreateRenderBundleEncoder(d.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create render bundle encoder %q: %w", desc.Label, err)
	}
	return &RenderBundleEncoder{backend: d.backend.acquire(), enc: enc, label: desc.Label}, nil
}

// CreateSwapChain creates a swap chain for surface, replacing any swap
// chain the surface already has. It panics if a frame acquired from the
// previous swap chain has not been presented.
func (d *Device) CreateSwapChain(surface *Surface, desc *SwapChainDescriptor) (*SwapChain, error) {
	surface.mu.Lock()
	defer surface.mu.Unlock()

	if old := surface.swapChain; old != nil {
		if old.frameAlive.Load() {
			panic(errors.WithAssertionFailure(ErrFrameAlive))
		}
		old.release()
		surface.swapChain = nil
	}

	id, err := d.backend.DeviceCreateSwapChain(d.live(), surface.live(), desc)
	if err != nil {
		return nil, fmt.Errorf("create swap chain: %w", err)
	}
	sc := &SwapChain{surface: surface, desc: *desc}
	sc.init(d.backend, id, "swap chain", gpucore.Backend.SwapChainDrop)
	surface.swapChain = sc
	return sc, nil
}

// Release drops the device and its backend reference.
func (d *Device) Release() {
	if r := recover(); r != nil {
		panic(d.unwind(r))
	}
	d.release()
}

// Destroy releases the device.
func (d *Device) Destroy() {
	if r := recover(); r != nil {
		panic(d.unwind(r))
	}
	d.release()
}
