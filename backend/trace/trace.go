package trace

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/gpuapi/gpucore"
)

// Option configures a Backend.
type Option func(*Backend)

// WithLevel sets the level of trace records. The default is
// slog.LevelInfo.
func WithLevel(l slog.Level) Option {
	return func(b *Backend) { b.level = l }
}

// Backend wraps a gpucore.Backend and traces every call to it.
type Backend struct {
	inner  gpucore.Backend
	logger *slog.Logger
	level  slog.Level

	seq     atomic.Uint64
	passSeq atomic.Uint64

	closeOnce sync.Once
	done      chan struct{}
}

var _ gpucore.Backend = (*Backend)(nil)

// New wraps inner, writing trace records to logger.
func New(inner gpucore.Backend, logger *slog.Logger, opts ...Option) *Backend {
	b := &Backend{
		inner:  inner,
		logger: logger,
		level:  slog.LevelInfo,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewJSON wraps inner, writing trace records to w as JSON lines.
func NewJSON(inner gpucore.Backend, w io.Writer, opts ...Option) *Backend {
	b := New(inner, nil, opts...)
	b.logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: b.level}))
	return b
}

// Unwrap returns the traced backend.
func (b *Backend) Unwrap() gpucore.Backend { return b.inner }

// SetLogger forwards the diagnostic logger to the traced backend. It does
// not change where trace records go.
func (b *Backend) SetLogger(l *slog.Logger) {
	if ls, ok := b.inner.(interface{ SetLogger(*slog.Logger) }); ok {
		ls.SetLogger(l)
	}
}

func (b *Backend) record(op string, attrs ...slog.Attr) {
	ctx := context.Background()
	if !b.logger.Enabled(ctx, b.level) {
		return
	}
	all := make([]slog.Attr, 0, len(attrs)+1)
	all = append(all, slog.Uint64("seq", b.seq.Add(1)))
	all = append(all, attrs...)
	b.logger.LogAttrs(ctx, b.level, op, all...)
}

// watch records the outcome of f once it resolves. Futures still pending
// when the backend closes are not recorded.
func watch[T any](b *Backend, op string, f *gpucore.Future[T], result func(T) slog.Attr) {
	report := func() {
		v, _, err := f.Result()
		if err != nil {
			b.record(op+".resolved", errAttr(err))
			return
		}
		b.record(op+".resolved", result(v))
	}
	if f.Ready() {
		report()
		return
	}
	go func() {
		select {
		case <-f.Done():
			report()
		case <-b.done:
		}
	}()
}

func errAttr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("err", err.Error())
}

func id[T ~uint64](key string, v T) slog.Attr { return slog.Uint64(key, uint64(v)) }

func ids[T ~uint64](key string, vs []T) slog.Attr {
	out := make([]uint64, len(vs))
	for i, v := range vs {
		out[i] = uint64(v)
	}
	return slog.Any(key, out)
}

func label(s string) slog.Attr {
	if s == "" {
		return slog.Attr{}
	}
	return slog.String("label", s)
}
