// Package wgsl reflects WGSL modules with naga.
//
// Backends use it to check pipeline entry points and to derive bind group
// layouts for pipelines created without an explicit layout.
package wgsl

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/gpuapi/internal/cache"
)

// Reflection and compilation results are shared by every backend and
// device in the process. Cached values must not be modified.
var (
	reflected = cache.New[*Module](256)
	compiled  = cache.New[[]uint32](64)
)

// Binding is a resource binding declared by a module.
type Binding struct {
	Group   uint32
	Binding uint32

	// Layout has every field but Binding and Visibility filled in.
	Layout gputypes.BindGroupLayoutEntry
}

// Module is the reflected interface of a WGSL module.
type Module struct {
	EntryPoints   map[string]gputypes.ShaderStage
	Bindings      []Binding
	PushConstants bool
}

// Reflect parses, lowers and validates source. The returned Module is
// shared and must not be modified.
func Reflect(source string) (*Module, error) {
	return reflected.GetOrCompute(cache.KeyOf(source), func() (*Module, error) {
		return reflect(source)
	})
}

func reflect(source string) (*Module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, errors.Wrap(err, "parse")
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, errors.Wrap(err, "validate")
	}
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, errors.Join(errs...)
	}

	m := &Module{EntryPoints: make(map[string]gputypes.ShaderStage)}
	for _, ep := range module.EntryPoints {
		switch ep.Stage {
		case ir.StageVertex:
			m.EntryPoints[ep.Name] = gputypes.ShaderStageVertex
		case ir.StageFragment:
			m.EntryPoints[ep.Name] = gputypes.ShaderStageFragment
		case ir.StageCompute:
			m.EntryPoints[ep.Name] = gputypes.ShaderStageCompute
		}
	}
	for _, g := range module.GlobalVariables {
		if g.Space == ir.SpacePushConstant || g.Space == ir.SpaceImmediate {
			m.PushConstants = true
		}
		if g.Binding == nil {
			continue
		}
		var inner ir.TypeInner
		if int(g.Type) < len(module.Types) {
			inner = module.Types[g.Type].Inner
		}
		m.Bindings = append(m.Bindings, Binding{
			Group:   g.Binding.Group,
			Binding: g.Binding.Binding,
			Layout:  layoutEntry(g.Space, g.Access, inner),
		})
	}
	return m, nil
}

// Stage returns the stage of entry point name.
func (m *Module) Stage(name string) (gputypes.ShaderStage, bool) {
	s, ok := m.EntryPoints[name]
	return s, ok
}

func layoutEntry(space ir.AddressSpace, access ir.StorageAccessMode, inner ir.TypeInner) gputypes.BindGroupLayoutEntry {
	var e gputypes.BindGroupLayoutEntry
	switch space {
	case ir.SpaceUniform:
		e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
	case ir.SpaceStorage:
		typ := gputypes.BufferBindingTypeStorage
		if access == ir.StorageRead {
			typ = gputypes.BufferBindingTypeReadOnlyStorage
		}
		e.Buffer = &gputypes.BufferBindingLayout{Type: typ}
	case ir.SpaceHandle:
		switch t := inner.(type) {
		case ir.SamplerType:
			typ := gputypes.SamplerBindingTypeFiltering
			if t.Comparison {
				typ = gputypes.SamplerBindingTypeComparison
			}
			e.Sampler = &gputypes.SamplerBindingLayout{Type: typ}
		case ir.ImageType:
			dim := viewDimension(t.Dim, t.Arrayed)
			if t.Class == ir.ImageClassStorage {
				e.StorageTexture = &gputypes.StorageTextureBindingLayout{
					Access:        storageAccess(t.StorageAccess),
					ViewDimension: dim,
				}
				break
			}
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    sampleType(t),
				ViewDimension: dim,
				Multisampled:  t.Multisampled,
			}
		}
	}
	return e
}

func viewDimension(dim ir.ImageDimension, arrayed bool) gputypes.TextureViewDimension {
	switch {
	case dim == ir.Dim1D:
		return gputypes.TextureViewDimension1D
	case dim == ir.Dim3D:
		return gputypes.TextureViewDimension3D
	case dim == ir.DimCube && arrayed:
		return gputypes.TextureViewDimensionCubeArray
	case dim == ir.DimCube:
		return gputypes.TextureViewDimensionCube
	case arrayed:
		return gputypes.TextureViewDimension2DArray
	default:
		return gputypes.TextureViewDimension2D
	}
}

func sampleType(t ir.ImageType) gputypes.TextureSampleType {
	if t.Class == ir.ImageClassDepth {
		return gputypes.TextureSampleTypeDepth
	}
	switch t.SampledKind {
	case ir.ScalarSint:
		return gputypes.TextureSampleTypeSint
	case ir.ScalarUint:
		return gputypes.TextureSampleTypeUint
	default:
		return gputypes.TextureSampleTypeFloat
	}
}

func storageAccess(a ir.StorageAccess) gputypes.StorageTextureAccess {
	switch a {
	case ir.StorageAccessRead:
		return gputypes.StorageTextureAccessReadOnly
	case ir.StorageAccessReadWrite, ir.StorageAccessAtomic:
		return gputypes.StorageTextureAccessReadWrite
	default:
		return gputypes.StorageTextureAccessWriteOnly
	}
}

// DeriveGroups builds one entry list per bind group index, from group 0
// to the highest group any module declares. Gaps become empty groups.
// Every entry is visible to stages.
func DeriveGroups(stages gputypes.ShaderStages, modules ...*Module) [][]gputypes.BindGroupLayoutEntry {
	byGroup := map[uint32]map[uint32]gputypes.BindGroupLayoutEntry{}
	var maxGroup int64 = -1
	for _, m := range modules {
		if m == nil {
			continue
		}
		for _, b := range m.Bindings {
			if byGroup[b.Group] == nil {
				byGroup[b.Group] = map[uint32]gputypes.BindGroupLayoutEntry{}
			}
			e := b.Layout
			e.Binding = b.Binding
			e.Visibility = stages
			byGroup[b.Group][b.Binding] = e
			maxGroup = max(maxGroup, int64(b.Group))
		}
	}

	groups := make([][]gputypes.BindGroupLayoutEntry, maxGroup+1)
	for g := range groups {
		for _, e := range byGroup[uint32(g)] {
			groups[g] = append(groups[g], e)
		}
		slices.SortFunc(groups[g], func(a, b gputypes.BindGroupLayoutEntry) int { return cmp.Compare(a.Binding, b.Binding) })
	}
	return groups
}

// UsesPushConstants reports whether any module declares push constants.
func UsesPushConstants(modules ...*Module) bool {
	return slices.ContainsFunc(modules, func(m *Module) bool { return m != nil && m.PushConstants })
}

// CompileSPIRV compiles source to SPIR-V words. The returned slice is
// shared and must not be modified.
func CompileSPIRV(source string) ([]uint32, error) {
	return compiled.GetOrCompute(cache.KeyOf(source), func() ([]uint32, error) {
		return compile(source)
	})
}

func compile(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, errors.Newf("spir-v output of %d bytes is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}
