//go:build rust

package rust

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuapi/gpucore"
)

// Enum values are translated by name: gputypes follows the current
// webgpu.h numbering, which does not match every wgpu-native release.
// Bit flags share their bit positions and are converted directly.

func conv[K comparable, V any](m map[K]V, k K) V {
	return m[k]
}

var textureFormats = map[gputypes.TextureFormat]wgpu.TextureFormat{
	gputypes.TextureFormatR8Unorm:              wgpu.TextureFormatR8Unorm,
	gputypes.TextureFormatR8Snorm:              wgpu.TextureFormatR8Snorm,
	gputypes.TextureFormatR8Uint:               wgpu.TextureFormatR8Uint,
	gputypes.TextureFormatR8Sint:               wgpu.TextureFormatR8Sint,
	gputypes.TextureFormatR16Uint:              wgpu.TextureFormatR16Uint,
	gputypes.TextureFormatR16Sint:              wgpu.TextureFormatR16Sint,
	gputypes.TextureFormatR16Float:             wgpu.TextureFormatR16Float,
	gputypes.TextureFormatRG8Unorm:             wgpu.TextureFormatRG8Unorm,
	gputypes.TextureFormatRG8Snorm:             wgpu.TextureFormatRG8Snorm,
	gputypes.TextureFormatRG8Uint:              wgpu.TextureFormatRG8Uint,
	gputypes.TextureFormatRG8Sint:              wgpu.TextureFormatRG8Sint,
	gputypes.TextureFormatR32Float:             wgpu.TextureFormatR32Float,
	gputypes.TextureFormatR32Uint:              wgpu.TextureFormatR32Uint,
	gputypes.TextureFormatR32Sint:              wgpu.TextureFormatR32Sint,
	gputypes.TextureFormatRG16Uint:             wgpu.TextureFormatRG16Uint,
	gputypes.TextureFormatRG16Sint:             wgpu.TextureFormatRG16Sint,
	gputypes.TextureFormatRG16Float:            wgpu.TextureFormatRG16Float,
	gputypes.TextureFormatRGBA8Unorm:           wgpu.TextureFormatRGBA8Unorm,
	gputypes.TextureFormatRGBA8UnormSrgb:       wgpu.TextureFormatRGBA8UnormSrgb,
	gputypes.TextureFormatRGBA8Snorm:           wgpu.TextureFormatRGBA8Snorm,
	gputypes.TextureFormatRGBA8Uint:            wgpu.TextureFormatRGBA8Uint,
	gputypes.TextureFormatRGBA8Sint:            wgpu.TextureFormatRGBA8Sint,
	gputypes.TextureFormatBGRA8Unorm:           wgpu.TextureFormatBGRA8Unorm,
	gputypes.TextureFormatBGRA8UnormSrgb:       wgpu.TextureFormatBGRA8UnormSrgb,
	gputypes.TextureFormatRGB10A2Unorm:         wgpu.TextureFormatRGB10A2Unorm,
	gputypes.TextureFormatRG11B10Ufloat:        wgpu.TextureFormatRG11B10Ufloat,
	gputypes.TextureFormatRG32Float:            wgpu.TextureFormatRG32Float,
	gputypes.TextureFormatRG32Uint:             wgpu.TextureFormatRG32Uint,
	gputypes.TextureFormatRG32Sint:             wgpu.TextureFormatRG32Sint,
	gputypes.TextureFormatRGBA16Uint:           wgpu.TextureFormatRGBA16Uint,
	gputypes.TextureFormatRGBA16Sint:           wgpu.TextureFormatRGBA16Sint,
	gputypes.TextureFormatRGBA16Float:          wgpu.TextureFormatRGBA16Float,
	gputypes.TextureFormatRGBA32Float:          wgpu.TextureFormatRGBA32Float,
	gputypes.TextureFormatRGBA32Uint:           wgpu.TextureFormatRGBA32Uint,
	gputypes.TextureFormatRGBA32Sint:           wgpu.TextureFormatRGBA32Sint,
	gputypes.TextureFormatStencil8:             wgpu.TextureFormatStencil8,
	gputypes.TextureFormatDepth16Unorm:         wgpu.TextureFormatDepth16Unorm,
	gputypes.TextureFormatDepth24Plus:          wgpu.TextureFormatDepth24Plus,
	gputypes.TextureFormatDepth24PlusStencil8:  wgpu.TextureFormatDepth24PlusStencil8,
	gputypes.TextureFormatDepth32Float:         wgpu.TextureFormatDepth32Float,
	gputypes.TextureFormatDepth32FloatStencil8: wgpu.TextureFormatDepth32FloatStencil8,
}

// textureFormatFrom is the reverse of textureFormats.
var textureFormatFrom = func() map[wgpu.TextureFormat]gputypes.TextureFormat {
	m := make(map[wgpu.TextureFormat]gputypes.TextureFormat, len(textureFormats))
	for k, v := range textureFormats {
		m[v] = k
	}
	return m
}()

var vertexFormats = map[gputypes.VertexFormat]wgpu.VertexFormat{
	gputypes.VertexFormatUint8x2:   wgpu.VertexFormatUint8x2,
	gputypes.VertexFormatUint8x4:   wgpu.VertexFormatUint8x4,
	gputypes.VertexFormatSint8x2:   wgpu.VertexFormatSint8x2,
	gputypes.VertexFormatSint8x4:   wgpu.VertexFormatSint8x4,
	gputypes.VertexFormatUnorm8x2:  wgpu.VertexFormatUnorm8x2,
	gputypes.VertexFormatUnorm8x4:  wgpu.VertexFormatUnorm8x4,
	gputypes.VertexFormatSnorm8x2:  wgpu.VertexFormatSnorm8x2,
	gputypes.VertexFormatSnorm8x4:  wgpu.VertexFormatSnorm8x4,
	gputypes.VertexFormatUint16x2:  wgpu.VertexFormatUint16x2,
	gputypes.VertexFormatUint16x4:  wgpu.VertexFormatUint16x4,
	gputypes.VertexFormatSint16x2:  wgpu.VertexFormatSint16x2,
	gputypes.VertexFormatSint16x4:  wgpu.VertexFormatSint16x4,
	gputypes.VertexFormatUnorm16x2: wgpu.VertexFormatUnorm16x2,
	gputypes.VertexFormatUnorm16x4: wgpu.VertexFormatUnorm16x4,
	gputypes.VertexFormatSnorm16x2: wgpu.VertexFormatSnorm16x2,
	gputypes.VertexFormatSnorm16x4: wgpu.VertexFormatSnorm16x4,
	gputypes.VertexFormatFloat16x2: wgpu.VertexFormatFloat16x2,
	gputypes.VertexFormatFloat16x4: wgpu.VertexFormatFloat16x4,
	gputypes.VertexFormatFloat32:   wgpu.VertexFormatFloat32,
	gputypes.VertexFormatFloat32x2: wgpu.VertexFormatFloat32x2,
	gputypes.VertexFormatFloat32x3: wgpu.VertexFormatFloat32x3,
	gputypes.VertexFormatFloat32x4: wgpu.VertexFormatFloat32x4,
	gputypes.VertexFormatUint32:    wgpu.VertexFormatUint32,
	gputypes.VertexFormatUint32x2:  wgpu.VertexFormatUint32x2,
	gputypes.VertexFormatUint32x3:  wgpu.VertexFormatUint32x3,
	gputypes.VertexFormatUint32x4:  wgpu.VertexFormatUint32x4,
	gputypes.VertexFormatSint32:    wgpu.VertexFormatSint32,
	gputypes.VertexFormatSint32x2:  wgpu.VertexFormatSint32x2,
	gputypes.VertexFormatSint32x3:  wgpu.VertexFormatSint32x3,
	gputypes.VertexFormatSint32x4:  wgpu.VertexFormatSint32x4,
}

var loadOps = map[gputypes.LoadOp]wgpu.LoadOp{
	gputypes.LoadOpLoad:  wgpu.LoadOpLoad,
	gputypes.LoadOpClear: wgpu.LoadOpClear,
}

var storeOps = map[gputypes.StoreOp]wgpu.StoreOp{
	gputypes.StoreOpStore:   wgpu.StoreOpStore,
	gputypes.StoreOpDiscard: wgpu.StoreOpDiscard,
}

var addressModes = map[gputypes.AddressMode]wgpu.AddressMode{
	gputypes.AddressModeUndefined:    wgpu.AddressModeClampToEdge,
	gputypes.AddressModeClampToEdge:  wgpu.AddressModeClampToEdge,
	gputypes.AddressModeRepeat:       wgpu.AddressModeRepeat,
	gputypes.AddressModeMirrorRepeat: wgpu.AddressModeMirrorRepeat,
}

var filterModes = map[gputypes.FilterMode]wgpu.FilterMode{
	gputypes.FilterModeUndefined: wgpu.FilterModeNearest,
	gputypes.FilterModeNearest:   wgpu.FilterModeNearest,
	gputypes.FilterModeLinear:    wgpu.FilterModeLinear,
}

var mipmapFilterModes = map[gputypes.FilterMode]wgpu.MipmapFilterMode{
	gputypes.FilterModeUndefined: wgpu.MipmapFilterModeNearest,
	gputypes.FilterModeNearest:   wgpu.MipmapFilterModeNearest,
	gputypes.FilterModeLinear:    wgpu.MipmapFilterModeLinear,
}

var compareFunctions = map[gputypes.CompareFunction]wgpu.CompareFunction{
	gputypes.CompareFunctionNever:        wgpu.CompareFunctionNever,
	gputypes.CompareFunctionLess:         wgpu.CompareFunctionLess,
	gputypes.CompareFunctionEqual:        wgpu.CompareFunctionEqual,
	gputypes.CompareFunctionLessEqual:    wgpu.CompareFunctionLessEqual,
	gputypes.CompareFunctionGreater:      wgpu.CompareFunctionGreater,
	gputypes.CompareFunctionNotEqual:     wgpu.CompareFunctionNotEqual,
	gputypes.CompareFunctionGreaterEqual: wgpu.CompareFunctionGreaterEqual,
	gputypes.CompareFunctionAlways:       wgpu.CompareFunctionAlways,
}

var stencilOps = map[gputypes.StencilOperation]wgpu.StencilOperation{
	gputypes.StencilOperationUndefined:      wgpu.StencilOperationKeep,
	gputypes.StencilOperationKeep:           wgpu.StencilOperationKeep,
	gputypes.StencilOperationZero:           wgpu.StencilOperationZero,
	gputypes.StencilOperationReplace:        wgpu.StencilOperationReplace,
	gputypes.StencilOperationInvert:         wgpu.StencilOperationInvert,
	gputypes.StencilOperationIncrementClamp: wgpu.StencilOperationIncrementClamp,
	gputypes.StencilOperationDecrementClamp: wgpu.StencilOperationDecrementClamp,
	gputypes.StencilOperationIncrementWrap:  wgpu.StencilOperationIncrementWrap,
	gputypes.StencilOperationDecrementWrap:  wgpu.StencilOperationDecrementWrap,
}

var indexFormats = map[gputypes.IndexFormat]wgpu.IndexFormat{
	gputypes.IndexFormatUint16: wgpu.IndexFormatUint16,
	gputypes.IndexFormatUint32: wgpu.IndexFormatUint32,
}

var topologies = map[gputypes.PrimitiveTopology]wgpu.PrimitiveTopology{
	gputypes.PrimitiveTopologyPointList:     wgpu.PrimitiveTopologyPointList,
	gputypes.PrimitiveTopologyLineList:      wgpu.PrimitiveTopologyLineList,
	gputypes.PrimitiveTopologyLineStrip:     wgpu.PrimitiveTopologyLineStrip,
	gputypes.PrimitiveTopologyTriangleList:  wgpu.PrimitiveTopologyTriangleList,
	gputypes.PrimitiveTopologyTriangleStrip: wgpu.PrimitiveTopologyTriangleStrip,
}

var frontFaces = map[gputypes.FrontFace]wgpu.FrontFace{
	gputypes.FrontFaceCCW: wgpu.FrontFaceCCW,
	gputypes.FrontFaceCW:  wgpu.FrontFaceCW,
}

var cullModes = map[gputypes.CullMode]wgpu.CullMode{
	gputypes.CullModeNone:  wgpu.CullModeNone,
	gputypes.CullModeFront: wgpu.CullModeFront,
	gputypes.CullModeBack:  wgpu.CullModeBack,
}

var blendFactors = map[gputypes.BlendFactor]wgpu.BlendFactor{
	gputypes.BlendFactorZero:              wgpu.BlendFactorZero,
	gputypes.BlendFactorOne:               wgpu.BlendFactorOne,
	gputypes.BlendFactorSrc:               wgpu.BlendFactorSrc,
	gputypes.BlendFactorOneMinusSrc:       wgpu.BlendFactorOneMinusSrc,
	gputypes.BlendFactorSrcAlpha:          wgpu.BlendFactorSrcAlpha,
	gputypes.BlendFactorOneMinusSrcAlpha:  wgpu.BlendFactorOneMinusSrcAlpha,
	gputypes.BlendFactorDst:               wgpu.BlendFactorDst,
	gputypes.BlendFactorOneMinusDst:       wgpu.BlendFactorOneMinusDst,
	gputypes.BlendFactorDstAlpha:          wgpu.BlendFactorDstAlpha,
	gputypes.BlendFactorOneMinusDstAlpha:  wgpu.BlendFactorOneMinusDstAlpha,
	gputypes.BlendFactorSrcAlphaSaturated: wgpu.BlendFactorSrcAlphaSaturated,
	gputypes.BlendFactorConstant:          wgpu.BlendFactorConstant,
	gputypes.BlendFactorOneMinusConstant:  wgpu.BlendFactorOneMinusConstant,
}

var blendOps = map[gputypes.BlendOperation]wgpu.BlendOperation{
	gputypes.BlendOperationAdd:             wgpu.BlendOperationAdd,
	gputypes.BlendOperationSubtract:        wgpu.BlendOperationSubtract,
	gputypes.BlendOperationReverseSubtract: wgpu.BlendOperationReverseSubtract,
	gputypes.BlendOperationMin:             wgpu.BlendOperationMin,
	gputypes.BlendOperationMax:             wgpu.BlendOperationMax,
}

var stepModes = map[gputypes.VertexStepMode]wgpu.VertexStepMode{
	gputypes.VertexStepModeVertex:              wgpu.VertexStepModeVertex,
	gputypes.VertexStepModeInstance:            wgpu.VertexStepModeInstance,
	gputypes.VertexStepModeVertexBufferNotUsed: wgpu.VertexStepModeVertexBufferNotUsed,
}

var bufferBindingTypes = map[gputypes.BufferBindingType]wgpu.BufferBindingType{
	gputypes.BufferBindingTypeUniform:         wgpu.BufferBindingTypeUniform,
	gputypes.BufferBindingTypeStorage:         wgpu.BufferBindingTypeStorage,
	gputypes.BufferBindingTypeReadOnlyStorage: wgpu.BufferBindingTypeReadOnlyStorage,
}

var samplerBindingTypes = map[gputypes.SamplerBindingType]wgpu.SamplerBindingType{
	gputypes.SamplerBindingTypeFiltering:    wgpu.SamplerBindingTypeFiltering,
	gputypes.SamplerBindingTypeNonFiltering: wgpu.SamplerBindingTypeNonFiltering,
	gputypes.SamplerBindingTypeComparison:   wgpu.SamplerBindingTypeComparison,
}

var sampleTypes = map[gputypes.TextureSampleType]wgpu.TextureSampleType{
	gputypes.TextureSampleTypeFloat:             wgpu.TextureSampleTypeFloat,
	gputypes.TextureSampleTypeUnfilterableFloat: wgpu.TextureSampleTypeUnfilterableFloat,
	gputypes.TextureSampleTypeDepth:             wgpu.TextureSampleTypeDepth,
	gputypes.TextureSampleTypeSint:              wgpu.TextureSampleTypeSint,
	gputypes.TextureSampleTypeUint:              wgpu.TextureSampleTypeUint,
}

var storageAccess = map[gputypes.StorageTextureAccess]wgpu.StorageTextureAccess{
	gputypes.StorageTextureAccessWriteOnly: wgpu.StorageTextureAccessWriteOnly,
	gputypes.StorageTextureAccessReadOnly:  wgpu.StorageTextureAccessReadOnly,
	gputypes.StorageTextureAccessReadWrite: wgpu.StorageTextureAccessReadWrite,
}

var viewDimensions = map[gputypes.TextureViewDimension]wgpu.TextureViewDimension{
	gputypes.TextureViewDimension1D:        wgpu.TextureViewDimension1D,
	gputypes.TextureViewDimension2D:        wgpu.TextureViewDimension2D,
	gputypes.TextureViewDimension2DArray:   wgpu.TextureViewDimension2DArray,
	gputypes.TextureViewDimensionCube:      wgpu.TextureViewDimensionCube,
	gputypes.TextureViewDimensionCubeArray: wgpu.TextureViewDimensionCubeArray,
	gputypes.TextureViewDimension3D:        wgpu.TextureViewDimension3D,
}

var textureDimensions = map[gputypes.TextureDimension]wgpu.TextureDimension{
	gputypes.TextureDimensionUndefined: wgpu.TextureDimension2D,
	gputypes.TextureDimension1D:        wgpu.TextureDimension1D,
	gputypes.TextureDimension2D:        wgpu.TextureDimension2D,
	gputypes.TextureDimension3D:        wgpu.TextureDimension3D,
}

var aspects = map[gputypes.TextureAspect]wgpu.TextureAspect{
	gputypes.TextureAspectUndefined:   wgpu.TextureAspectAll,
	gputypes.TextureAspectAll:         wgpu.TextureAspectAll,
	gputypes.TextureAspectStencilOnly: wgpu.TextureAspectStencilOnly,
	gputypes.TextureAspectDepthOnly:   wgpu.TextureAspectDepthOnly,
}

var presentModes = map[gputypes.PresentMode]wgpu.PresentMode{
	gputypes.PresentModeUndefined:   wgpu.PresentModeFifo,
	gputypes.PresentModeFifo:        wgpu.PresentModeFifo,
	gputypes.PresentModeFifoRelaxed: wgpu.PresentModeFifoRelaxed,
	gputypes.PresentModeImmediate:   wgpu.PresentModeImmediate,
	gputypes.PresentModeMailbox:     wgpu.PresentModeMailbox,
}

var powerPreferences = map[gputypes.PowerPreference]wgpu.PowerPreference{
	gputypes.PowerPreferenceLowPower:        wgpu.PowerPreferenceLowPower,
	gputypes.PowerPreferenceHighPerformance: wgpu.PowerPreferenceHighPerformance,
}

var features = map[gputypes.Feature]wgpu.FeatureName{
	gputypes.FeatureDepthClipControl:        wgpu.FeatureNameDepthClipControl,
	gputypes.FeatureDepth32FloatStencil8:    wgpu.FeatureNameDepth32FloatStencil8,
	gputypes.FeatureTextureCompressionBC:    wgpu.FeatureNameTextureCompressionBC,
	gputypes.FeatureTextureCompressionETC2:  wgpu.FeatureNameTextureCompressionETC2,
	gputypes.FeatureTextureCompressionASTC:  wgpu.FeatureNameTextureCompressionASTC,
	gputypes.FeatureIndirectFirstInstance:   wgpu.FeatureNameIndirectFirstInstance,
	gputypes.FeatureShaderF16:               wgpu.FeatureNameShaderF16,
	gputypes.FeatureRG11B10UfloatRenderable: wgpu.FeatureNameRG11B10UfloatRenderable,
	gputypes.FeatureBGRA8UnormStorage:       wgpu.FeatureNameBGRA8UnormStorage,
	gputypes.FeatureFloat32Filterable:       wgpu.FeatureNameFloat32Filterable,
	gputypes.FeatureTimestampQuery:          wgpu.FeatureNameTimestampQuery,
}

var mapStatuses = map[wgpu.BufferMapAsyncStatus]gpucore.BufferMapAsyncStatus{
	wgpu.BufferMapAsyncStatusSuccess:                 gpucore.BufferMapAsyncStatusSuccess,
	wgpu.BufferMapAsyncStatusValidationError:         gpucore.BufferMapAsyncStatusValidationError,
	wgpu.BufferMapAsyncStatusUnknown:                 gpucore.BufferMapAsyncStatusUnknown,
	wgpu.BufferMapAsyncStatusDeviceLost:              gpucore.BufferMapAsyncStatusDeviceLost,
	wgpu.BufferMapAsyncStatusDestroyedBeforeCallback: gpucore.BufferMapAsyncStatusDestroyedBeforeCallback,
	wgpu.BufferMapAsyncStatusUnmappedBeforeCallback:  gpucore.BufferMapAsyncStatusUnmappedBeforeCallback,
	wgpu.BufferMapAsyncStatusMappingAlreadyPending:   gpucore.BufferMapAsyncStatusMappingAlreadyPending,
	wgpu.BufferMapAsyncStatusOffsetOutOfRange:        gpucore.BufferMapAsyncStatusOffsetOutOfRange,
	wgpu.BufferMapAsyncStatusSizeOutOfRange:          gpucore.BufferMapAsyncStatusSizeOutOfRange,
}

func mapStatus(s wgpu.BufferMapAsyncStatus) gpucore.BufferMapAsyncStatus {
	if st, ok := mapStatuses[s]; ok {
		return st
	}
	return gpucore.BufferMapAsyncStatusUnknown
}

func wgpuFeatures(f gputypes.Features) []wgpu.FeatureName {
	var out []wgpu.FeatureName
	for k, v := range features {
		if f.Contains(k) {
			out = append(out, v)
		}
	}
	return out
}

func fromFeatures(names []wgpu.FeatureName) gputypes.Features {
	var f gputypes.Features
	for k, v := range features {
		for _, n := range names {
			if n == v {
				f |= gputypes.Features(k)
			}
		}
	}
	return f
}

func wgpuLimits(l gputypes.Limits) wgpu.Limits {
	return wgpu.Limits{
		MaxTextureDimension1D:                     l.MaxTextureDimension1D,
		MaxTextureDimension2D:                     l.MaxTextureDimension2D,
		MaxTextureDimension3D:                     l.MaxTextureDimension3D,
		MaxTextureArrayLayers:                     l.MaxTextureArrayLayers,
		MaxBindGroups:                             l.MaxBindGroups,
		MaxBindingsPerBindGroup:                   l.MaxBindingsPerBindGroup,
		MaxDynamicUniformBuffersPerPipelineLayout: l.MaxDynamicUniformBuffersPerPipelineLayout,
		MaxDynamicStorageBuffersPerPipelineLayout: l.MaxDynamicStorageBuffersPerPipelineLayout,
		MaxSampledTexturesPerShaderStage:          l.MaxSampledTexturesPerShaderStage,
		MaxSamplersPerShaderStage:                 l.MaxSamplersPerShaderStage,
		MaxStorageBuffersPerShaderStage:           l.MaxStorageBuffersPerShaderStage,
		MaxStorageTexturesPerShaderStage:          l.MaxStorageTexturesPerShaderStage,
		MaxUniformBuffersPerShaderStage:           l.MaxUniformBuffersPerShaderStage,
		MaxUniformBufferBindingSize:               l.MaxUniformBufferBindingSize,
		MaxStorageBufferBindingSize:               l.MaxStorageBufferBindingSize,
		MinUniformBufferOffsetAlignment:           l.MinUniformBufferOffsetAlignment,
		MinStorageBufferOffsetAlignment:           l.MinStorageBufferOffsetAlignment,
		MaxVertexBuffers:                          l.MaxVertexBuffers,
		MaxBufferSize:                             l.MaxBufferSize,
		MaxVertexAttributes:                       l.MaxVertexAttributes,
		MaxVertexBufferArrayStride:                l.MaxVertexBufferArrayStride,
		MaxColorAttachments:                       l.MaxColorAttachments,
		MaxComputeWorkgroupStorageSize:            l.MaxComputeWorkgroupStorageSize,
		MaxComputeInvocationsPerWorkgroup:         l.MaxComputeInvocationsPerWorkgroup,
		MaxComputeWorkgroupSizeX:                  l.MaxComputeWorkgroupSizeX,
		MaxComputeWorkgroupSizeY:                  l.MaxComputeWorkgroupSizeY,
		MaxComputeWorkgroupSizeZ:                  l.MaxComputeWorkgroupSizeZ,
		MaxComputeWorkgroupsPerDimension:          l.MaxComputeWorkgroupsPerDimension,
	}
}

func fromLimits(l wgpu.Limits) gputypes.Limits {
	return gputypes.Limits{
		MaxTextureDimension1D:                     l.MaxTextureDimension1D,
		MaxTextureDimension2D:                     l.MaxTextureDimension2D,
		MaxTextureDimension3D:                     l.MaxTextureDimension3D,
		MaxTextureArrayLayers:                     l.MaxTextureArrayLayers,
		MaxBindGroups:                             l.MaxBindGroups,
		MaxBindingsPerBindGroup:                   l.MaxBindingsPerBindGroup,
		MaxDynamicUniformBuffersPerPipelineLayout: l.MaxDynamicUniformBuffersPerPipelineLayout,
		MaxDynamicStorageBuffersPerPipelineLayout: l.MaxDynamicStorageBuffersPerPipelineLayout,
		MaxSampledTexturesPerShaderStage:          l.MaxSampledTexturesPerShaderStage,
		MaxSamplersPerShaderStage:                 l.MaxSamplersPerShaderStage,
		MaxStorageBuffersPerShaderStage:           l.MaxStorageBuffersPerShaderStage,
		MaxStorageTexturesPerShaderStage:          l.MaxStorageTexturesPerShaderStage,
		MaxUniformBuffersPerShaderStage:           l.MaxUniformBuffersPerShaderStage,
		MaxUniformBufferBindingSize:               l.MaxUniformBufferBindingSize,
		MaxStorageBufferBindingSize:               l.MaxStorageBufferBindingSize,
		MinUniformBufferOffsetAlignment:           l.MinUniformBufferOffsetAlignment,
		MinStorageBufferOffsetAlignment:           l.MinStorageBufferOffsetAlignment,
		MaxVertexBuffers:                          l.MaxVertexBuffers,
		MaxBufferSize:                             l.MaxBufferSize,
		MaxVertexAttributes:                       l.MaxVertexAttributes,
		MaxVertexBufferArrayStride:                l.MaxVertexBufferArrayStride,
		MaxColorAttachments:                       l.MaxColorAttachments,
		MaxComputeWorkgroupStorageSize:            l.MaxComputeWorkgroupStorageSize,
		MaxComputeInvocationsPerWorkgroup:         l.MaxComputeInvocationsPerWorkgroup,
		MaxComputeWorkgroupSizeX:                  l.MaxComputeWorkgroupSizeX,
		MaxComputeWorkgroupSizeY:                  l.MaxComputeWorkgroupSizeY,
		MaxComputeWorkgroupSizeZ:                  l.MaxComputeWorkgroupSizeZ,
		MaxComputeWorkgroupsPerDimension:          l.MaxComputeWorkgroupsPerDimension,
	}
}

func extent(e gputypes.Extent3D) wgpu.Extent3D {
	return wgpu.Extent3D{Width: e.Width, Height: e.Height, DepthOrArrayLayers: max(e.DepthOrArrayLayers, 1)}
}

func color(c gputypes.Color) wgpu.Color {
	return wgpu.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}

func dataLayout(l gpucore.TextureDataLayout) wgpu.TextureDataLayout {
	return wgpu.TextureDataLayout{Offset: l.Offset, BytesPerRow: l.BytesPerRow, RowsPerImage: l.RowsPerImage}
}

// wholeSize turns a zero size into wgpu.WholeSize.
func wholeSize(size uint64) uint64 {
	if size == gpucore.WholeSize {
		return wgpu.WholeSize
	}
	return size
}

func bindGroupLayoutEntry(e gputypes.BindGroupLayoutEntry) wgpu.BindGroupLayoutEntry {
	out := wgpu.BindGroupLayoutEntry{
		Binding:    e.Binding,
		Visibility: wgpu.ShaderStage(e.Visibility),
	}
	if e.Buffer != nil {
		out.Buffer = wgpu.BufferBindingLayout{
			Type:             conv(bufferBindingTypes, e.Buffer.Type),
			HasDynamicOffset: e.Buffer.HasDynamicOffset,
			MinBindingSize:   e.Buffer.MinBindingSize,
		}
	}
	if e.Sampler != nil {
		out.Sampler = wgpu.SamplerBindingLayout{Type: conv(samplerBindingTypes, e.Sampler.Type)}
	}
	if e.Texture != nil {
		out.Texture = wgpu.TextureBindingLayout{
			SampleType:    conv(sampleTypes, e.Texture.SampleType),
			ViewDimension: conv(viewDimensions, e.Texture.ViewDimension),
			Multisampled:  e.Texture.Multisampled,
		}
	}
	if e.StorageTexture != nil {
		out.StorageTexture = wgpu.StorageTextureBindingLayout{
			Access:        conv(storageAccess, e.StorageTexture.Access),
			Format:        conv(textureFormats, e.StorageTexture.Format),
			ViewDimension: conv(viewDimensions, e.StorageTexture.ViewDimension),
		}
	}
	return out
}

func vertexLayouts(in []gputypes.VertexBufferLayout) []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, len(in))
	for i, l := range in {
		attrs := make([]wgpu.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = wgpu.VertexAttribute{
				Format:         conv(vertexFormats, a.Format),
				Offset:         a.Offset,
				ShaderLocation: a.ShaderLocation,
			}
		}
		out[i] = wgpu.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    conv(stepModes, l.StepMode),
			Attributes:  attrs,
		}
	}
	return out
}

func blendComponent(c gputypes.BlendComponent) wgpu.BlendComponent {
	return wgpu.BlendComponent{
		Operation: conv(blendOps, c.Operation),
		SrcFactor: conv(blendFactors, c.SrcFactor),
		DstFactor: conv(blendFactors, c.DstFactor),
	}
}

func colorTargets(in []gputypes.ColorTargetState) []wgpu.ColorTargetState {
	out := make([]wgpu.ColorTargetState, len(in))
	for i, t := range in {
		out[i] = wgpu.ColorTargetState{
			Format:    conv(textureFormats, t.Format),
			WriteMask: wgpu.ColorWriteMask(t.WriteMask),
		}
		if t.Blend != nil {
			out[i].Blend = &wgpu.BlendState{
				Color: blendComponent(t.Blend.Color),
				Alpha: blendComponent(t.Blend.Alpha),
			}
		}
	}
	return out
}

func primitiveState(p gputypes.PrimitiveState) wgpu.PrimitiveState {
	out := wgpu.PrimitiveState{
		Topology:  conv(topologies, p.Topology),
		FrontFace: conv(frontFaces, p.FrontFace),
		CullMode:  conv(cullModes, p.CullMode),
	}
	if p.StripIndexFormat != nil {
		out.StripIndexFormat = conv(indexFormats, *p.StripIndexFormat)
	}
	return out
}

func stencilFace(s gputypes.StencilFaceState) wgpu.StencilFaceState {
	compare := conv(compareFunctions, s.Compare)
	if s.Compare == gputypes.CompareFunctionUndefined {
		compare = wgpu.CompareFunctionAlways
	}
	return wgpu.StencilFaceState{
		Compare:     compare,
		FailOp:      conv(stencilOps, s.FailOp),
		DepthFailOp: conv(stencilOps, s.DepthFailOp),
		PassOp:      conv(stencilOps, s.PassOp),
	}
}

func depthStencilState(d *gpucore.DepthStencilState) *wgpu.DepthStencilState {
	if d == nil {
		return nil
	}
	return &wgpu.DepthStencilState{
		Format:              conv(textureFormats, d.Format),
		DepthWriteEnabled:   d.DepthWriteEnabled,
		DepthCompare:        conv(compareFunctions, d.DepthCompare),
		StencilFront:        stencilFace(d.StencilFront),
		StencilBack:         stencilFace(d.StencilBack),
		StencilReadMask:     d.StencilReadMask,
		StencilWriteMask:    d.StencilWriteMask,
		DepthBias:           d.DepthBias,
		DepthBiasSlopeScale: d.DepthBiasSlopeScale,
		DepthBiasClamp:      d.DepthBiasClamp,
	}
}

func multisampleState(m gputypes.MultisampleState) wgpu.MultisampleState {
	count := m.Count
	if count == 0 {
		count = 1
	}
	mask := uint32(m.Mask)
	if m.Mask == 0 {
		mask = 0xFFFFFFFF
	}
	return wgpu.MultisampleState{
		Count:                  count,
		Mask:                   mask,
		AlphaToCoverageEnabled: m.AlphaToCoverageEnabled,
	}
}
