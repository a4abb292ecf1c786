//go:build rust

package rust

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/sync/semaphore"

	"github.com/gogpu/gpuapi/backend"
	"github.com/gogpu/gpuapi/gpucore"
)

// init registers the rust backend on package import.
func init() {
	backend.Register(backend.BackendRust, func() (gpucore.Backend, error) {
		return New(), nil
	})
}

// Backend is a gpucore.Backend over wgpu-native. It is safe for
// concurrent use.
//
// wgpu-native validates every call itself; the backend maps handles,
// forwards the calls and converts errors and statuses.
type Backend struct {
	instance *wgpu.Instance
	logger   atomic.Pointer[slog.Logger]

	nextID atomic.Uint64

	// queueSem serializes queue access: submits, writes and presents.
	queueSem *semaphore.Weighted

	mu     sync.RWMutex
	closed bool

	adapters         map[gpucore.AdapterID]*wgpu.Adapter
	devices          map[gpucore.DeviceID]*device
	queues           map[gpucore.QueueID]*device
	surfaces         map[gpucore.SurfaceID]*surface
	swapChains       map[gpucore.SwapChainID]*swapChain
	buffers          map[gpucore.BufferID]*buffer
	textures         map[gpucore.TextureID]*wgpu.Texture
	views            map[gpucore.TextureViewID]*textureView
	samplers         map[gpucore.SamplerID]*wgpu.Sampler
	shaders          map[gpucore.ShaderModuleID]*wgpu.ShaderModule
	bindGroupLayouts map[gpucore.BindGroupLayoutID]*wgpu.BindGroupLayout
	bindGroups       map[gpucore.BindGroupID]*wgpu.BindGroup
	pipelineLayouts  map[gpucore.PipelineLayoutID]*wgpu.PipelineLayout
	renderPipelines  map[gpucore.RenderPipelineID]*wgpu.RenderPipeline
	computePipelines map[gpucore.ComputePipelineID]*wgpu.ComputePipeline
	encoders         map[gpucore.CommandEncoderID]*commandEncoder
	commandBuffers   map[gpucore.CommandBufferID]*wgpu.CommandBuffer
	bundles          map[gpucore.RenderBundleID]*wgpu.RenderBundle
}

var _ gpucore.Backend = (*Backend)(nil)

// New creates a wgpu-native instance.
func New() *Backend {
	b := &Backend{
		instance:         wgpu.CreateInstance(nil),
		queueSem:         semaphore.NewWeighted(1),
		adapters:         make(map[gpucore.AdapterID]*wgpu.Adapter),
		devices:          make(map[gpucore.DeviceID]*device),
		queues:           make(map[gpucore.QueueID]*device),
		surfaces:         make(map[gpucore.SurfaceID]*surface),
		swapChains:       make(map[gpucore.SwapChainID]*swapChain),
		buffers:          make(map[gpucore.BufferID]*buffer),
		textures:         make(map[gpucore.TextureID]*wgpu.Texture),
		views:            make(map[gpucore.TextureViewID]*textureView),
		samplers:         make(map[gpucore.SamplerID]*wgpu.Sampler),
		shaders:          make(map[gpucore.ShaderModuleID]*wgpu.ShaderModule),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]*wgpu.BindGroupLayout),
		bindGroups:       make(map[gpucore.BindGroupID]*wgpu.BindGroup),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]*wgpu.PipelineLayout),
		renderPipelines:  make(map[gpucore.RenderPipelineID]*wgpu.RenderPipeline),
		computePipelines: make(map[gpucore.ComputePipelineID]*wgpu.ComputePipeline),
		encoders:         make(map[gpucore.CommandEncoderID]*commandEncoder),
		commandBuffers:   make(map[gpucore.CommandBufferID]*wgpu.CommandBuffer),
		bundles:          make(map[gpucore.RenderBundleID]*wgpu.RenderBundle),
	}
	b.logger.Store(slog.New(nopHandler{}))
	b.nextID.Store(1)
	return b
}

// Name returns "rust".
func (b *Backend) Name() string { return backend.BackendRust }

// SetLogger sets the backend logger. Nil disables logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	b.logger.Store(l)
}

func (b *Backend) log() *slog.Logger { return b.logger.Load() }

func (b *Backend) newID() uint64 {
	return b.nextID.Add(1) - 1
}

// Close releases every device and then the instance.
func (b *Backend) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	devices := make([]*device, 0, len(b.devices))
	for id, d := range b.devices {
		devices = append(devices, d)
		delete(b.devices, id)
	}
	adapters := make([]*wgpu.Adapter, 0, len(b.adapters))
	for id, a := range b.adapters {
		adapters = append(adapters, a)
		delete(b.adapters, id)
	}
	b.mu.Unlock()

	for _, d := range devices {
		b.destroyDevice(d)
	}
	for _, a := range adapters {
		a.Release()
	}
	b.instance.Release()
	b.log().Debug("rust: backend closed")
}

func (b *Backend) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// withQueue runs fn with exclusive queue access.
func (b *Backend) withQueue(fn func() error) error {
	if err := b.queueSem.Acquire(context.Background(), 1); err != nil {
		return err
	}
	defer b.queueSem.Release(1)
	return fn()
}

func insert[K ~uint64, V any](b *Backend, m map[K]V, v V) K {
	id := K(b.newID())
	b.mu.Lock()
	m[id] = v
	b.mu.Unlock()
	return id
}

func lookup[K ~uint64, V any](b *Backend, m map[K]V, id K) (V, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := m[id]
	return v, ok
}

// remove unregisters id. Unknown IDs are logged.
func remove[K ~uint64, V any](b *Backend, kind string, m map[K]V, id K) (V, bool) {
	b.mu.Lock()
	v, ok := m[id]
	if ok {
		delete(m, id)
	}
	b.mu.Unlock()

	if !ok {
		b.log().Warn("rust: drop of unknown handle", "kind", kind, "id", uint64(id))
	}
	return v, ok
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
