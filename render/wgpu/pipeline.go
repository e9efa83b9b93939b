package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"hash/fnv"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline cache errors.
var (
	// ErrPipelineCacheNilDevice is returned when creating a cache without a device.
	ErrPipelineCacheNilDevice = errors.New("wgpu: hal device is nil")

	// ErrPipelineCacheNilShader is returned when creating a pipeline with a nil shader module.
	ErrPipelineCacheNilShader = errors.New("wgpu: shader module is nil")

	// ErrUnknownPipelineKind reports a PipelineKind with no descriptor.
	// GetOrCreate takes a descriptor rather than a kind and never returns it.
	ErrUnknownPipelineKind = errors.New("wgpu: unknown pipeline kind")
)

// PipelineKind identifies one of the renderer's fixed draw pipelines. Each
// kind has a main (one part-level mesh) and an instanced (stud) variant that
// share all fixed-function state and differ in shader module and vertex
// buffer layout.
type PipelineKind int

const (
	PipelineHardLine PipelineKind = iota
	PipelineOpaqueTriangle
	PipelineTransparentTriangle
	PipelineOptionalLine
)

func (k PipelineKind) String() string {
	switch k {
	case PipelineHardLine:
		return "hard-line"
	case PipelineOpaqueTriangle:
		return "opaque-triangle"
	case PipelineTransparentTriangle:
		return "transparent-triangle"
	case PipelineOptionalLine:
		return "optional-line"
	default:
		return "unknown-pipeline"
	}
}

// ColorFormat is the surface/target color attachment format used by every
// pipeline in this package.
const ColorFormat = gputypes.TextureFormatBGRA8UnormSRGB

// DepthFormat is the depth attachment format. Reverse-Z only needs a
// comparison function consistent with the clear value; 32-bit float depth
// keeps the common near-camera precision loss from reverse-Z negligible.
const DepthFormat = gputypes.TextureFormatDepth32Float

// RenderPipelineDescriptor describes one of the eight render pipelines to
// create. It mirrors the shape gogpu's own HAL pipeline cache already
// hashes pipeline state with, generalized to cover line-list,
// triangle-list with depth bias, and an instanced vertex buffer slot.
type RenderPipelineDescriptor struct {
	Label string

	VertexShader       hal.ShaderModule
	VertexShaderHash    uint64
	VertexEntryPoint   string
	FragmentShader     hal.ShaderModule
	FragmentShaderHash uint64
	FragmentEntryPoint string

	VertexBuffers []VertexBufferLayout

	Topology  gputypes.PrimitiveTopology
	CullMode  gputypes.CullMode
	FrontFace gputypes.FrontFace

	DepthWriteEnabled bool
	DepthCompare      gputypes.CompareFunction
	DepthBiasSlope    float32
	DepthBiasConstant float32

	Blend *BlendState
}

// VertexBufferLayout describes one vertex buffer slot's stride, step mode
// and attributes.
type VertexBufferLayout struct {
	ArrayStride uint64
	Instanced   bool
	Attributes  []VertexAttribute
}

// VertexAttribute describes a single shader-visible vertex attribute.
type VertexAttribute struct {
	ShaderLocation uint32
	Format         gputypes.VertexFormat
	Offset         uint64
}

// BlendState describes premultiplied-alpha or opaque color blending.
type BlendState struct {
	SrcFactor gputypes.BlendFactor
	DstFactor gputypes.BlendFactor
	Operation gputypes.BlendOperation
}

// PremultipliedAlphaBlend is the blend state used by both triangle
// pipelines: premultiplied source color, standard over compositing.
var PremultipliedAlphaBlend = &BlendState{
	SrcFactor: gputypes.BlendFactorOne,
	DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
	Operation: gputypes.BlendOperationAdd,
}

// PipelineCache caches the renderer's four fixed render pipelines (plus
// their stud-instanced variants) keyed by an FNV-1a hash of their
// descriptor, using a double-checked read/write lock the same way the
// teacher's HAL pipeline cache does for its vello rasterizer pipelines.
type PipelineCache struct {
	mu       sync.RWMutex
	device   hal.Device
	pipelines map[uint64]hal.RenderPipeline
}

// NewPipelineCache creates an empty pipeline cache bound to device.
func NewPipelineCache(device hal.Device) (*PipelineCache, error) {
	if device == nil {
		return nil, ErrPipelineCacheNilDevice
	}
	return &PipelineCache{
		device:    device,
		pipelines: make(map[uint64]hal.RenderPipeline),
	}, nil
}

// GetOrCreate returns the cached pipeline for desc, creating and caching it
// on first use.
func (c *PipelineCache) GetOrCreate(layout hal.PipelineLayout, desc *RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	if desc.VertexShader == nil || desc.FragmentShader == nil {
		return nil, ErrPipelineCacheNilShader
	}

	key := hashPipelineDescriptor(desc)

	c.mu.RLock()
	if p, ok := c.pipelines[key]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if p, ok := c.pipelines[key]; ok {
		return p, nil
	}

	p, err := createRenderPipeline(c.device, layout, desc)
	if err != nil {
		return nil, fmt.Errorf("create pipeline %s: %w", desc.Label, err)
	}
	c.pipelines[key] = p
	return p, nil
}

// Size returns the number of distinct pipelines built so far.
func (c *PipelineCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

// DestroyAll releases every cached pipeline.
func (c *PipelineCache) DestroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pipelines {
		c.device.DestroyRenderPipeline(p)
	}
	c.pipelines = make(map[uint64]hal.RenderPipeline)
}

func createRenderPipeline(device hal.Device, layout hal.PipelineLayout, desc *RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	vertexEntry := desc.VertexEntryPoint
	if vertexEntry == "" {
		vertexEntry = "vs_main"
	}
	fragmentEntry := desc.FragmentEntryPoint
	if fragmentEntry == "" {
		fragmentEntry = "fs_main"
	}

	// Stencil isn't used by any pipeline in this package; both faces are
	// set to the always-pass, always-keep no-op the way gogpu's own
	// non-stencil pipelines do.
	noopStencil := hal.StencilFaceState{
		Compare:     gputypes.CompareFunctionAlways,
		FailOp:      hal.StencilOperationKeep,
		DepthFailOp: hal.StencilOperationKeep,
		PassOp:      hal.StencilOperationKeep,
	}

	var depthStencil *hal.DepthStencilState
	if desc.DepthCompare != gputypes.CompareFunctionUndefined {
		depthStencil = &hal.DepthStencilState{
			Format:              DepthFormat,
			DepthWriteEnabled:   desc.DepthWriteEnabled,
			DepthCompare:        desc.DepthCompare,
			DepthBias:           int32(desc.DepthBiasConstant),
			DepthBiasSlopeScale: desc.DepthBiasSlope,
			StencilFront:        noopStencil,
			StencilBack:         noopStencil,
		}
	}

	var blend *gputypes.BlendState
	if desc.Blend != nil {
		blend = &gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: desc.Blend.SrcFactor,
				DstFactor: desc.Blend.DstFactor,
				Operation: desc.Blend.Operation,
			},
			Alpha: gputypes.BlendComponent{
				SrcFactor: desc.Blend.SrcFactor,
				DstFactor: desc.Blend.DstFactor,
				Operation: desc.Blend.Operation,
			},
		}
	}

	halDesc := &hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     desc.VertexShader,
			EntryPoint: vertexEntry,
			Buffers:    convertVertexBufferLayouts(desc.VertexBuffers),
		},
		Fragment: &hal.FragmentState{
			Module:     desc.FragmentShader,
			EntryPoint: fragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    ColorFormat,
				Blend:     blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: desc.FrontFace,
			CullMode:  desc.CullMode,
		},
		DepthStencil: depthStencil,
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	return device.CreateRenderPipeline(halDesc)
}

func convertVertexBufferLayouts(layouts []VertexBufferLayout) []gputypes.VertexBufferLayout {
	out := make([]gputypes.VertexBufferLayout, len(layouts))
	for i, l := range layouts {
		stepMode := gputypes.VertexStepModeVertex
		if l.Instanced {
			stepMode = gputypes.VertexStepModeInstance
		}
		attrs := make([]gputypes.VertexAttribute, len(l.Attributes))
		for j, a := range l.Attributes {
			attrs[j] = gputypes.VertexAttribute{
				ShaderLocation: a.ShaderLocation,
				Format:         a.Format,
				Offset:         a.Offset,
			}
		}
		out[i] = gputypes.VertexBufferLayout{
			ArrayStride: l.ArrayStride,
			StepMode:    stepMode,
			Attributes:  attrs,
		}
	}
	return out
}

// hashPipelineDescriptor computes an FNV-1a hash over every field that
// changes pipeline behavior, the same approach gogpu's own HAL pipeline
// cache uses for its vello pipelines.
func hashPipelineDescriptor(desc *RenderPipelineDescriptor) uint64 {
	h := fnv.New64a()

	hashUint64(h, desc.VertexShaderHash)
	hashString(h, desc.VertexEntryPoint)
	hashUint64(h, desc.FragmentShaderHash)
	hashString(h, desc.FragmentEntryPoint)

	hashUint32(h, uint32(len(desc.VertexBuffers)))
	for _, l := range desc.VertexBuffers {
		hashUint64(h, l.ArrayStride)
		hashBool(h, l.Instanced)
		hashUint32(h, uint32(len(l.Attributes)))
		for _, a := range l.Attributes {
			hashUint32(h, a.ShaderLocation)
			hashUint32(h, uint32(a.Format))
			hashUint64(h, a.Offset)
		}
	}

	hashUint32(h, uint32(desc.Topology))
	hashUint32(h, uint32(desc.CullMode))
	hashUint32(h, uint32(desc.FrontFace))
	hashBool(h, desc.DepthWriteEnabled)
	hashUint32(h, uint32(desc.DepthCompare))

	var biasBuf [8]byte
	binary.LittleEndian.PutUint32(biasBuf[0:4], math.Float32bits(desc.DepthBiasSlope))
	binary.LittleEndian.PutUint32(biasBuf[4:8], math.Float32bits(desc.DepthBiasConstant))
	_, _ = h.Write(biasBuf[:])

	if desc.Blend != nil {
		hashBool(h, true)
		hashUint32(h, uint32(desc.Blend.SrcFactor))
		hashUint32(h, uint32(desc.Blend.DstFactor))
		hashUint32(h, uint32(desc.Blend.Operation))
	} else {
		hashBool(h, false)
	}

	return h.Sum64()
}

func hashUint32(h hash.Hash64, v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func hashString(h hash.Hash64, s string) {
	hashUint32(h, uint32(len(s)))
	_, _ = h.Write([]byte(s))
}

func hashBool(h hash.Hash64, v bool) {
	if v {
		_, _ = h.Write([]byte{1})
	} else {
		_, _ = h.Write([]byte{0})
	}
}
