package memory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/backend"
	"github.com/gogpu/gpuapi/gpucore"
)

// DefaultAdapterInfo describes the adapter a Backend exposes when no
// WithAdapters option is given.
var DefaultAdapterInfo = gputypes.AdapterInfo{
	Name:       "Memory Adapter",
	Vendor:     "gogpu",
	DeviceType: gputypes.DeviceTypeCPU,
	Driver:     "memory",
	Backend:    gputypes.BackendEmpty,
}

// DefaultPushConstantSize is the push constant storage of the default
// limits, in bytes.
const DefaultPushConstantSize = 128

func init() {
	backend.Register(backend.BackendMemory, func() (gpucore.Backend, error) {
		return New(), nil
	})
}

// Option configures a Backend.
type Option func(*config)

type config struct {
	adapters []gputypes.AdapterInfo
	features gputypes.Features
	limits   gputypes.Limits
}

// WithAdapters replaces the exposed adapters. With no arguments the
// backend exposes none, and every adapter request fails.
func WithAdapters(infos ...gputypes.AdapterInfo) Option {
	return func(c *config) { c.adapters = infos }
}

// WithFeatures sets the features every adapter exposes.
func WithFeatures(f gputypes.Features) Option {
	return func(c *config) { c.features = f }
}

// WithLimits sets the limits every adapter supports.
func WithLimits(l gputypes.Limits) Option {
	return func(c *config) { c.limits = l }
}

// Backend is an in-process gpucore.Backend. It is safe for concurrent use.
type Backend struct {
	cfg    config
	logger atomic.Pointer[slog.Logger]

	// ID generation
	nextID atomic.Uint64

	stats struct {
		submissions  atomic.Int64
		draws        atomic.Int64
		dispatches   atomic.Int64
		presents     atomic.Int64
		unknownDrops atomic.Int64
	}

	mu     sync.Mutex
	closed bool

	// Resource tracking maps gpucore IDs to host-side objects
	adapters         map[gpucore.AdapterID]*adapter
	devices          map[gpucore.DeviceID]*device
	surfaces         map[gpucore.SurfaceID]*surface
	swapChains       map[gpucore.SwapChainID]*swapChain
	buffers          map[gpucore.BufferID]*buffer
	textures         map[gpucore.TextureID]*texture
	views            map[gpucore.TextureViewID]*textureView
	samplers         map[gpucore.SamplerID]*gpucore.SamplerDescriptor
	shaders          map[gpucore.ShaderModuleID]*shaderModule
	bindGroupLayouts map[gpucore.BindGroupLayoutID]*bindGroupLayout
	bindGroups       map[gpucore.BindGroupID]*bindGroup
	pipelineLayouts  map[gpucore.PipelineLayoutID]*pipelineLayout
	renderPipelines  map[gpucore.RenderPipelineID]*renderPipeline
	computePipelines map[gpucore.ComputePipelineID]*computePipeline
	encoders         map[gpucore.CommandEncoderID]*commandEncoder
	commandBuffers   map[gpucore.CommandBufferID]*commandBuffer
	bundles          map[gpucore.RenderBundleID]*renderBundle
}

var _ gpucore.Backend = (*Backend)(nil)

// New creates a memory backend.
func New(opts ...Option) *Backend {
	limits := gputypes.DefaultLimits()
	limits.MaxPushConstantSize = DefaultPushConstantSize
	cfg := config{
		adapters: []gputypes.AdapterInfo{DefaultAdapterInfo},
		limits:   limits,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Backend{
		cfg:              cfg,
		adapters:         make(map[gpucore.AdapterID]*adapter),
		devices:          make(map[gpucore.DeviceID]*device),
		surfaces:         make(map[gpucore.SurfaceID]*surface),
		swapChains:       make(map[gpucore.SwapChainID]*swapChain),
		buffers:          make(map[gpucore.BufferID]*buffer),
		textures:         make(map[gpucore.TextureID]*texture),
		views:            make(map[gpucore.TextureViewID]*textureView),
		samplers:         make(map[gpucore.SamplerID]*gpucore.SamplerDescriptor),
		shaders:          make(map[gpucore.ShaderModuleID]*shaderModule),
		bindGroupLayouts: make(map[gpucore.BindGroupLayoutID]*bindGroupLayout),
		bindGroups:       make(map[gpucore.BindGroupID]*bindGroup),
		pipelineLayouts:  make(map[gpucore.PipelineLayoutID]*pipelineLayout),
		renderPipelines:  make(map[gpucore.RenderPipelineID]*renderPipeline),
		computePipelines: make(map[gpucore.ComputePipelineID]*computePipeline),
		encoders:         make(map[gpucore.CommandEncoderID]*commandEncoder),
		commandBuffers:   make(map[gpucore.CommandBufferID]*commandBuffer),
		bundles:          make(map[gpucore.RenderBundleID]*renderBundle),
	}
	b.logger.Store(slog.New(nopHandler{}))

	// Start ID generation at 1 (0 is invalid)
	b.nextID.Store(1)
	return b
}

// Name returns "memory".
func (b *Backend) Name() string { return backend.BackendMemory }

// SetLogger sets the backend logger. Nil disables logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	b.logger.Store(l)
}

func (b *Backend) log() *slog.Logger { return b.logger.Load() }

// newID generates a unique resource ID.
func (b *Backend) newID() uint64 {
	return b.nextID.Add(1) - 1
}

// Close marks the backend closed. Outstanding objects are discarded.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.log().Debug("memory: backend closed", "live", b.liveLocked())
}

// Closed reports whether Close has been called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Stats is a snapshot of backend activity.
type Stats struct {
	// Live counts objects created and not yet dropped, excluding
	// adapters, devices and surfaces.
	Live int

	Submissions int64
	Draws       int64
	Dispatches  int64
	Presents    int64

	// UnknownDrops counts drops of handles that were never issued or
	// were already dropped.
	UnknownDrops int64
}

// Stats returns a snapshot of backend activity.
func (b *Backend) Stats() Stats {
	b.mu.Lock()
	live := b.liveLocked()
	b.mu.Unlock()
	return Stats{
		Live:         live,
		Submissions:  b.stats.submissions.Load(),
		Draws:        b.stats.draws.Load(),
		Dispatches:   b.stats.dispatches.Load(),
		Presents:     b.stats.presents.Load(),
		UnknownDrops: b.stats.unknownDrops.Load(),
	}
}

func (b *Backend) liveLocked() int {
	return len(b.swapChains) + len(b.buffers) + len(b.textures) + len(b.views) +
		len(b.samplers) + len(b.shaders) + len(b.bindGroupLayouts) + len(b.bindGroups) +
		len(b.pipelineLayouts) + len(b.renderPipelines) + len(b.computePipelines) +
		len(b.encoders) + len(b.commandBuffers) + len(b.bundles)
}

// insert registers v under a fresh ID.
func insert[K ~uint64, V any](b *Backend, m map[K]V, v V) K {
	id := K(b.newID())
	b.mu.Lock()
	m[id] = v
	b.mu.Unlock()
	return id
}

// lookup returns the object registered under id.
func lookup[K ~uint64, V any](b *Backend, m map[K]V, id K) (V, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := m[id]
	return v, ok
}

// remove unregisters id. Unknown IDs are counted and logged.
func remove[K ~uint64, V any](b *Backend, kind string, m map[K]V, id K) (V, bool) {
	b.mu.Lock()
	v, ok := m[id]
	if ok {
		delete(m, id)
	}
	b.mu.Unlock()

	if !ok {
		b.stats.unknownDrops.Add(1)
		b.log().Warn("memory: drop of unknown handle", "kind", kind, "id", uint64(id))
	}
	return v, ok
}

// nopHandler is a slog.Handler that silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
