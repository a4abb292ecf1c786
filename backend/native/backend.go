package native

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"golang.org/x/sync/semaphore"

	"github.com/gogpu/gpuapi/backend"
	"github.com/gogpu/gpuapi/gpucore"
)

func init() {
	backend.Register(backend.BackendNative, func() (gpucore.Backend, error) {
		b, err := New()
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

// Option configures a Backend.
type Option func(*config)

type config struct {
	driver  hal.Backend
	variant gputypes.Backend
	pinned  bool
	spirv   bool
	flags   gputypes.InstanceFlags
}

// WithBackendType selects the registered hal driver for variant instead
// of the best available one.
func WithBackendType(variant gputypes.Backend) Option {
	return func(c *config) {
		c.variant = variant
		c.pinned = true
	}
}

// WithHAL uses driver directly, bypassing the hal registry.
func WithHAL(driver hal.Backend) Option {
	return func(c *config) { c.driver = driver }
}

// WithSPIRV makes the backend compile WGSL to SPIR-V with naga before
// handing modules to the driver.
func WithSPIRV(enabled bool) Option {
	return func(c *config) { c.spirv = enabled }
}

// WithInstanceFlags sets the hal instance flags, e.g. validation.
func WithInstanceFlags(flags gputypes.InstanceFlags) Option {
	return func(c *config) { c.flags = flags }
}

// Backend is a gpucore.Backend driving a hal instance. It is safe for
// concurrent use.
type Backend struct {
	cfg      config
	driver   hal.Backend
	instance hal.Instance
	logger   atomic.Pointer[slog.Logger]

	// ID generation
	nextID atomic.Uint64

	// queueSem serializes queue access: submits, writes and presents.
	queueSem *semaphore.Weighted

	mu     sync.RWMutex
	closed bool

	// Resource tracking maps gpucore IDs to hal resources
	adapters         map[gpucore.AdapterID]*adapter
	devices          map[gpucore.DeviceID]*device
	queues           map[gpucore.QueueID]*device
	surfaces         map[gpucore.SurfaceID]*surface
	swapChains       map[gpucore.SwapChainID]*swapChain
	buffers          map[gpucore.BufferID]*buffer
	textures         map[gpucore.TextureID]*texture
	views            map[gpucore.TextureViewID]*textureView
	samplers         map[gpucore.SamplerID]*sampler
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

// New creates a hal instance on the selected driver.
func New(opts ...Option) (*Backend, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}

	driver, err := selectDriver(&cfg)
	if err != nil {
		return nil, err
	}
	instance, err := driver.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsAll,
		Flags:    cfg.flags,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "native: create %s instance", driver.Variant())
	}

	b := &Backend{
		cfg:              cfg,
		driver:           driver,
		instance:         instance,
		queueSem:         semaphore.NewWeighted(1),
		adapters:         make(map[gpucore.AdapterID]*adapter),
		devices:          make(map[gpucore.DeviceID]*device),
		queues:           make(map[gpucore.QueueID]*device),
		surfaces:         make(map[gpucore.SurfaceID]*surface),
		swapChains:       make(map[gpucore.SwapChainID]*swapChain),
		buffers:          make(map[gpucore.BufferID]*buffer),
		textures:         make(map[gpucore.TextureID]*texture),
		views:            make(map[gpucore.TextureViewID]*textureView),
		samplers:         make(map[gpucore.SamplerID]*sampler),
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
	return b, nil
}

func selectDriver(cfg *config) (hal.Backend, error) {
	switch {
	case cfg.driver != nil:
		return cfg.driver, nil
	case cfg.pinned:
		if d, ok := hal.GetBackend(cfg.variant); ok {
			return d, nil
		}
		d, err := hal.CreateBackend(cfg.variant)
		if err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "native: %s driver", cfg.variant), ErrNoDriver)
		}
		return d, nil
	default:
		d, err := hal.SelectBestBackend()
		if err != nil {
			return nil, errors.Mark(err, ErrNoDriver)
		}
		return d, nil
	}
}

// Name returns "native".
func (b *Backend) Name() string { return backend.BackendNative }

// Variant returns the hal driver in use.
func (b *Backend) Variant() gputypes.Backend { return b.driver.Variant() }

// SetLogger sets the backend logger and the hal logger. Nil disables
// logging.
func (b *Backend) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	b.logger.Store(l)
	hal.SetLogger(l)
}

func (b *Backend) log() *slog.Logger { return b.logger.Load() }

// newID generates a unique resource ID.
func (b *Backend) newID() uint64 {
	return b.nextID.Add(1) - 1
}

// Close destroys the hal instance. Devices still open are waited on and
// destroyed first.
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
	b.mu.Unlock()

	for _, d := range devices {
		b.destroyDevice(d)
	}
	b.instance.Destroy()
	b.log().Debug("native: backend closed", "driver", b.driver.Variant())
}

// Closed reports whether Close has been called.
func (b *Backend) Closed() bool {
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
		b.log().Warn("native: drop of unknown handle", "kind", kind, "id", uint64(id))
	}
	return v, ok
}

// nopHandler is a slog.Handler that silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
