package memory

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
	"github.com/gogpu/gpuapi/internal/wgsl"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

type shaderModule struct {
	label string

	// reflect is nil for SPIR-V modules, whose interface is not
	// inspected.
	reflect *wgsl.Module
}

// DeviceCreateShaderModule parses and validates WGSL with naga. SPIR-V
// is only checked for its magic number.
func (b *Backend) DeviceCreateShaderModule(deviceID gpucore.DeviceID, desc *gpucore.ShaderModuleDescriptor) (gpucore.ShaderModuleID, error) {
	if _, err := b.device(deviceID); err != nil {
		return gpucore.InvalidID, err
	}

	var m *shaderModule
	switch {
	case desc.Source.IsWGSL():
		var err error
		m, err = compileWGSL(desc.Label, desc.Source.WGSL)
		if err != nil {
			return gpucore.InvalidID, err
		}
	case len(desc.Source.SPIRV) > 0:
		if desc.Source.SPIRV[0] != spirvMagic {
			return gpucore.InvalidID, fmt.Errorf("%w: module %q is not SPIR-V", ErrShaderCompile, desc.Label)
		}
		m = &shaderModule{label: desc.Label}
	default:
		return gpucore.InvalidID, fmt.Errorf("%w: module %q has no source", ErrInvalidDescriptor, desc.Label)
	}

	id := insert(b, b.shaders, m)
	b.log().Debug("memory: shader module created", "id", uint64(id), "label", desc.Label, "wgsl", m.reflect != nil)
	return id, nil
}

func compileWGSL(label, source string) (*shaderModule, error) {
	m, err := wgsl.Reflect(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrShaderCompile, label, err)
	}
	return &shaderModule{label: label, reflect: m}, nil
}

// checkEntryPoint verifies that a WGSL module declares name for stage.
func (m *shaderModule) checkEntryPoint(name string, stage gputypes.ShaderStage) error {
	if m.reflect == nil {
		return nil
	}
	got, ok := m.reflect.Stage(name)
	if !ok {
		return fmt.Errorf("%w: %q in module %q", ErrEntryPoint, name, m.label)
	}
	if got != stage {
		return fmt.Errorf("%w: %q in module %q is a %s entry point, want %s", ErrEntryPoint, name, m.label, got, stage)
	}
	return nil
}

// ShaderModuleDrop releases a shader module.
func (b *Backend) ShaderModuleDrop(id gpucore.ShaderModuleID) {
	remove(b, "shader module", b.shaders, id)
}
