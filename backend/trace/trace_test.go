package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/backend/memory"
	"github.com/gogpu/gpuapi/gpucore"
)

// lockedBuffer is read by the test while future watchers write to it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.buf.Write(p)
}

func (l *lockedBuffer) records(t *testing.T) []map[string]any {
	t.Helper()
	l.mu.Lock()
	data := l.buf.String()
	l.mu.Unlock()

	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("invalid trace line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

func messages(recs []map[string]any) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i], _ = r[slog.MessageKey].(string)
	}
	return out
}

func find(recs []map[string]any, msg string) map[string]any {
	for _, r := range recs {
		if r[slog.MessageKey] == msg {
			return r
		}
	}
	return nil
}

func openTraced(t *testing.T) (*Backend, *lockedBuffer, gpucore.DeviceQueue) {
	t.Helper()
	var out lockedBuffer
	b := NewJSON(memory.New(), &out)
	t.Cleanup(b.Close)

	adapter, ok, err := b.RequestAdapter(nil).Result()
	if !ok || err != nil {
		t.Fatalf("RequestAdapter() = %v, %v", ok, err)
	}
	dq, ok, err := b.AdapterRequestDevice(adapter, &gpucore.DeviceDescriptor{Label: "traced"}).Result()
	if !ok || err != nil {
		t.Fatalf("AdapterRequestDevice() = %v, %v", ok, err)
	}
	return b, &out, dq
}

func TestCallOrder(t *testing.T) {
	b, out, dq := openTraced(t)

	enc, err := b.DeviceCreateCommandEncoder(dq.Device, &gpucore.CommandEncoderDescriptor{Label: "frame"})
	if err != nil {
		t.Fatal(err)
	}
	pass := b.CommandEncoderBeginComputePass(enc, nil)
	pass.InsertDebugMarker("empty")
	b.CommandEncoderEndComputePass(enc, pass)
	cb, err := b.CommandEncoderFinish(enc, nil)
	if err != nil {
		t.Fatalf("CommandEncoderFinish() error = %v", err)
	}
	if err := b.QueueSubmit(dq.Queue, []gpucore.CommandBufferID{cb}); err != nil {
		t.Fatal(err)
	}

	recs := out.records(t)
	want := []string{
		"RequestAdapter",
		"RequestAdapter.resolved",
		"AdapterRequestDevice",
		"AdapterRequestDevice.resolved",
		"DeviceCreateCommandEncoder",
		"CommandEncoderBeginComputePass",
		"ComputePass.InsertDebugMarker",
		"CommandEncoderEndComputePass",
		"CommandEncoderFinish",
		"QueueSubmit",
	}
	got := messages(recs)
	if len(got) != len(want) {
		t.Fatalf("records = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, got[i], want[i])
		}
	}
	for i, r := range recs {
		if seq, _ := r["seq"].(float64); int(seq) != i+1 {
			t.Errorf("record %d seq = %v, want %d", i, r["seq"], i+1)
		}
	}
	if r := find(recs, "DeviceCreateCommandEncoder"); r["label"] != "frame" {
		t.Errorf("encoder label = %v, want frame", r["label"])
	}
	begin, marker := find(recs, "CommandEncoderBeginComputePass"), find(recs, "ComputePass.InsertDebugMarker")
	if begin["pass"] == nil || begin["pass"] != marker["pass"] {
		t.Errorf("pass attribute mismatch: begin %v, marker %v", begin["pass"], marker["pass"])
	}
}

func TestErrorsRecorded(t *testing.T) {
	b, out, dq := openTraced(t)

	_, err := b.DeviceCreateBuffer(dq.Device+100, &gpucore.BufferDescriptor{Size: 4, Usage: gputypes.BufferUsageVertex})
	if err == nil {
		t.Fatal("DeviceCreateBuffer() on unknown device should fail")
	}
	r := find(out.records(t), "DeviceCreateBuffer")
	if r == nil {
		t.Fatal("DeviceCreateBuffer not traced")
	}
	if r["err"] != err.Error() {
		t.Errorf("err = %v, want %q", r["err"], err.Error())
	}
}

func TestRenderBundleUnwrapped(t *testing.T) {
	b, out, dq := openTraced(t)

	enc, err := b.DeviceCreateRenderBundleEncoder(dq.Device, &gpucore.RenderBundleEncoderDescriptor{
		Label:        "bundle",
		ColorFormats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
		SampleCount:  1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := enc.(*bundleEncoder); !ok {
		t.Fatalf("bundle encoder type = %T, want *bundleEncoder", enc)
	}
	bundle, err := b.RenderBundleEncoderFinish(enc, &gpucore.RenderBundleDescriptor{Label: "bundle"})
	if err != nil {
		t.Fatalf("RenderBundleEncoderFinish() error = %v", err)
	}
	if bundle == gpucore.InvalidID {
		t.Fatal("RenderBundleEncoderFinish() returned InvalidID")
	}

	recs := out.records(t)
	create, finish := find(recs, "DeviceCreateRenderBundleEncoder"), find(recs, "RenderBundleEncoderFinish")
	if create == nil || finish == nil || create["pass"] != finish["pass"] {
		t.Errorf("bundle records = %v, %v", create, finish)
	}
}

func TestMapResolvedLater(t *testing.T) {
	b, out, dq := openTraced(t)

	buf, err := b.DeviceCreateBuffer(dq.Device, &gpucore.BufferDescriptor{Size: 16, Usage: gputypes.BufferUsageMapRead})
	if err != nil {
		t.Fatal(err)
	}
	f := b.BufferMapAsync(buf, gpucore.MapModeRead, 0, 16)
	b.DevicePoll(dq.Device, gpucore.MaintainWait)
	if _, ok, err := f.Result(); !ok || err != nil {
		t.Fatalf("map = %v, %v", ok, err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for find(out.records(t), "BufferMapAsync.resolved") == nil {
		if time.Now().After(deadline) {
			t.Fatal("BufferMapAsync.resolved never traced")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   slog.Level
		handler slog.Level
		want    bool
	}{
		{"info into info", slog.LevelInfo, slog.LevelInfo, true},
		{"debug into info", slog.LevelDebug, slog.LevelInfo, false},
		{"warn into info", slog.LevelWarn, slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: tt.handler}))
			b := New(memory.New(), logger, WithLevel(tt.level))
			b.EnumerateAdapters()
			b.Close()
			if got := out.Len() > 0; got != tt.want {
				t.Errorf("traced = %v, want %v (%s)", got, tt.want, out.String())
			}
		})
	}
}

func TestNameAndUnwrap(t *testing.T) {
	inner := memory.New()
	b := New(inner, slog.Default())
	defer b.Close()
	if b.Name() != inner.Name() {
		t.Errorf("Name() = %q, want %q", b.Name(), inner.Name())
	}
	if b.Unwrap() != gpucore.Backend(inner) {
		t.Error("Unwrap() should return the traced backend")
	}
}
