package backend

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gpuapi/gpucore"
)

// stubBackend is the smallest gpucore.Backend the registry can hand out.
// Only Name is ever called.
type stubBackend struct {
	gpucore.Backend
	name string
}

func (s stubBackend) Name() string { return s.name }

func withRegistry(t *testing.T, factories map[string]BackendFactory) {
	t.Helper()
	registryMu.Lock()
	saved := backends
	backends = make(map[string]BackendFactory)
	for k, v := range factories {
		backends[k] = v
	}
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		backends = saved
		registryMu.Unlock()
	})
}

func ok(name string) BackendFactory {
	return func() (gpucore.Backend, error) { return stubBackend{name: name}, nil }
}

func failing(err error) BackendFactory {
	return func() (gpucore.Backend, error) { return nil, err }
}

func TestRegisterAndGet(t *testing.T) {
	withRegistry(t, nil)

	Register("custom", ok("custom"))
	if !IsRegistered("custom") {
		t.Fatal("IsRegistered(custom) = false after Register")
	}
	b, err := Get("custom")
	if err != nil {
		t.Fatalf("Get(custom) error = %v", err)
	}
	if b.Name() != "custom" {
		t.Errorf("Name() = %q, want %q", b.Name(), "custom")
	}

	Unregister("custom")
	if IsRegistered("custom") {
		t.Error("IsRegistered(custom) = true after Unregister")
	}
	if _, err := Get("custom"); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Get after Unregister error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestAvailableOrder(t *testing.T) {
	withRegistry(t, map[string]BackendFactory{
		"zeta":        ok("zeta"),
		BackendMemory: ok(BackendMemory),
		"alpha":       ok("alpha"),
		BackendNative: ok(BackendNative),
	})

	want := []string{BackendNative, BackendMemory, "alpha", "zeta"}
	if got := Available(); !slices.Equal(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
}

func TestDefault(t *testing.T) {
	boom := errors.New("no driver")

	tests := []struct {
		name      string
		factories map[string]BackendFactory
		env       string
		want      string
		wantErr   error
	}{
		{
			name: "priority",
			factories: map[string]BackendFactory{
				BackendMemory: ok(BackendMemory),
				BackendNative: ok(BackendNative),
			},
			want: BackendNative,
		},
		{
			name: "skips failing factory",
			factories: map[string]BackendFactory{
				BackendRust:   failing(boom),
				BackendMemory: ok(BackendMemory),
			},
			want: BackendMemory,
		},
		{
			name: "env override",
			factories: map[string]BackendFactory{
				BackendMemory: ok(BackendMemory),
				BackendNative: ok(BackendNative),
			},
			env:  BackendMemory,
			want: BackendMemory,
		},
		{
			name: "env override unknown",
			factories: map[string]BackendFactory{
				BackendMemory: ok(BackendMemory),
			},
			env:     "vulkan",
			wantErr: ErrBackendNotAvailable,
		},
		{
			name:    "empty registry",
			wantErr: ErrBackendNotAvailable,
		},
		{
			name: "all fail",
			factories: map[string]BackendFactory{
				BackendRust: failing(boom),
			},
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withRegistry(t, tt.factories)
			t.Setenv(EnvBackend, tt.env)

			b, err := Default()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Default() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Default() error = %v", err)
			}
			if b.Name() != tt.want {
				t.Errorf("Default().Name() = %q, want %q", b.Name(), tt.want)
			}
		})
	}
}

func TestMustDefaultPanics(t *testing.T) {
	withRegistry(t, nil)
	t.Setenv(EnvBackend, "")

	defer func() {
		r := recover()
		err, isErr := r.(error)
		if !isErr || !errors.Is(err, ErrBackendNotAvailable) {
			t.Errorf("MustDefault() panic = %v, want ErrBackendNotAvailable", r)
		}
	}()
	MustDefault()
}
