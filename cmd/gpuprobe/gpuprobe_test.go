package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/gpuapi"
	"github.com/gogpu/gpuapi/backend/memory"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { gpuapi.SetLogger(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAdapters(t *testing.T) {
	out, err := run(t, "adapters", "--backend", "memory", "--limits")
	if err != nil {
		t.Fatalf("adapters error = %v", err)
	}
	for _, want := range []string{
		"backend memory: 1 adapter(s)",
		memory.DefaultAdapterInfo.Name,
		"max texture 2D:       8,192",
		"max workgroup size:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSmoke(t *testing.T) {
	dir := t.TempDir()
	imgPath := filepath.Join(dir, "in.png")
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	img.Set(1, 1, color.NRGBA{G: 255, A: 255})
	f, err := os.Create(imgPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	f.Close()

	tracePath := filepath.Join(dir, "calls.jsonl")
	out, err := run(t, "smoke", "--backend", "memory", "--size", "1001", "--image", imgPath, "--trace", tracePath)
	if err != nil {
		t.Fatalf("smoke error = %v", err)
	}
	if !strings.Contains(out, "buffer round trip: 1,004 bytes") {
		t.Errorf("unexpected round trip output:\n%s", out)
	}
	if !strings.Contains(out, "as 8x4 (4 mip levels)") {
		t.Errorf("unexpected texture output:\n%s", out)
	}

	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	var submits int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("trace line %q: %v", line, err)
		}
		if rec[slog.MessageKey] == "QueueSubmit" {
			submits++
		}
	}
	if submits != 1 {
		t.Errorf("traced %d submits, want 1", submits)
	}
}

func TestUnknownBackend(t *testing.T) {
	if _, err := run(t, "adapters", "--backend", "nope"); err == nil {
		t.Fatal("adapters with an unknown backend should fail")
	}
}

func TestRoundTripSizes(t *testing.T) {
	inst := gpuapi.NewInstance(memory.New())
	defer inst.Release()
	ctx := context.Background()
	adapter, err := inst.RequestAdapter(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	device, queue, err := adapter.RequestDevice(ctx, nil)
	adapter.Release()
	if err != nil {
		t.Fatal(err)
	}
	defer device.Release()

	tests := []struct {
		size    uint64
		want    uint64
		wantErr bool
	}{
		{4, 4, false},
		{5, 8, false},
		{0, 0, true},
	}
	for _, tt := range tests {
		got, err := roundTrip(ctx, device, queue, tt.size)
		if (err != nil) != tt.wantErr {
			t.Errorf("roundTrip(%d) error = %v, wantErr %v", tt.size, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("roundTrip(%d) = %d, want %d", tt.size, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, slog.LevelInfo, false).Info("hello", "k", 1)
	if !json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Errorf("non-terminal writer should get JSON, got %q", buf.String())
	}
}
