package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ldraw-go/brickviewer/cache"
	"github.com/ldraw-go/brickviewer/flatten"
	"github.com/ldraw-go/brickviewer/ldraw"
)

// colorLookupWidth/Height size the color-lookup texture named in 4.5:
// row-major, y = code / colorLookupWidth, x = code % colorLookupWidth. Four
// rows of 256 covers every code up to 1023, comfortably beyond the official
// LDConfig.ldr palette.
const (
	colorLookupWidth  = 256
	colorLookupHeight = 4
)

// Uniform buffer byte sizes, matching the WGSL structs in shaders.go.
const (
	transformUniformSize    = 64
	defaultColorUniformSize = 16
)

// GeometryHandle is an opaque GPU-resident upload of one flatten.Geometry,
// returned by Upload and memoized per file name (4.5's geometry cache).
// Callers hold it only to pass back into a RenderRequest.
type GeometryHandle struct {
	opaqueTriangles      hal.Buffer
	opaqueTriangleCount  uint32
	transparentTriangles hal.Buffer
	transparentCount     uint32
	lines                hal.Buffer
	lineCount            uint32
	optionalLines        hal.Buffer
	optionalCount        uint32
	studs                hal.Buffer
	studCount            uint32
}

func (g *GeometryHandle) destroy(device hal.Device) {
	for _, b := range []hal.Buffer{
		g.opaqueTriangles, g.transparentTriangles, g.lines, g.optionalLines, g.studs,
	} {
		if b != nil {
			device.DestroyBuffer(b)
		}
	}
}

// StudMesh is the canonical per-instance stud geometry: one stud part (e.g.
// "stud.dat") flattened on its own with an empty, non-nil
// Config.StudNames (a nil set falls back to the default stud names), so
// its own triangles and hard lines come back instead of collapsing into
// an instance record. GpuRenderer draws every stud occurrence across every
// loaded model by pairing this single mesh with each model's per-instance
// transform buffer.
type StudMesh struct {
	Triangles     []flatten.TriangleVertex
	Lines         []flatten.LineVertex
	OptionalLines []flatten.OptionalLineVertex
}

// pipelineSet names the eight fixed pipelines of 4.5: four kinds, each with
// a main and a stud-instanced variant.
type pipelineSet struct {
	hardLine                hal.RenderPipeline
	studHardLine             hal.RenderPipeline
	opaqueTriangle           hal.RenderPipeline
	studOpaqueTriangle       hal.RenderPipeline
	transparentTriangle      hal.RenderPipeline
	studTransparentTriangle  hal.RenderPipeline
	optionalLine             hal.RenderPipeline
	studOptionalLine         hal.RenderPipeline
}

// RenderRequest is one frame's draw parameters: the shared-bind-group
// uniforms plus the uploaded geometry to draw.
type RenderRequest struct {
	// Transform is the combined view-projection matrix (column-major,
	// matching WGSL's mat4x4<f32>); geometry vertices are already in
	// absolute model space, so this is the only per-frame transform applied
	// on the GPU.
	Transform [16]float32
	// DefaultColor resolves a vertex baked with LDraw color code 16 before
	// upload; kept as a uniform because the shared bind-group layout
	// declares it, even though every current shader consumes an
	// already-resolved per-vertex color instead of sampling it.
	DefaultColor [4]float32
	Geometry     *GeometryHandle
}

// GpuRenderer owns every render pipeline, the shared bind-group layout, the
// color-lookup texture, and the per-file-name geometry cache described in
// 4.5. It is constructed once per DeviceHandle and shared by every
// CanvasRenderer backed by that device.
type GpuRenderer struct {
	device hal.Device
	queue  hal.Queue

	shaders   *ShaderSet
	pipelines *PipelineCache
	built     pipelineSet

	bindGroupLayout hal.BindGroupLayout
	pipelineLayout  hal.PipelineLayout
	sampler         hal.Sampler

	colorLookup     hal.Texture
	colorLookupView hal.TextureView

	transformBuf    hal.Buffer
	defaultColorBuf hal.Buffer
	bindGroup       hal.BindGroup

	studMeshTriangles     hal.Buffer
	studMeshTriangleCount uint32
	studMeshLines         hal.Buffer
	studMeshLineCount     uint32
	studMeshOptionalLines hal.Buffer
	studMeshOptionalCount uint32

	geometry *cache.ShardedCache[string, *GeometryHandle]

	mu sync.Mutex
}

// NewGpuRenderer resolves handle to its hal.Device/hal.Queue (this package
// never creates a device of its own, see device.go), compiles every
// shader, builds the shared bind-group layout and pipeline layout, uploads
// the color-lookup texture from colors, and builds all eight fixed
// pipelines.
func NewGpuRenderer(handle DeviceHandle, colors *ldraw.ColorTable) (*GpuRenderer, error) {
	device, err := ResolveHalDevice(handle)
	if err != nil {
		return nil, err
	}
	queue, err := ResolveHalQueue(handle)
	if err != nil {
		return nil, err
	}

	shaders, err := CompileShaders(device)
	if err != nil {
		return nil, fmt.Errorf("render/wgpu: compile shaders: %w", err)
	}

	pipelines, err := NewPipelineCache(device)
	if err != nil {
		shaders.DestroyAll(device)
		return nil, fmt.Errorf("render/wgpu: new pipeline cache: %w", err)
	}

	bindGroupLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "ldraw-shared-bind-group-layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    3,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		shaders.DestroyAll(device)
		return nil, fmt.Errorf("render/wgpu: create bind group layout: %w", err)
	}

	pipelineLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "ldraw-pipeline-layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindGroupLayout},
	})
	if err != nil {
		shaders.DestroyAll(device)
		device.DestroyBindGroupLayout(bindGroupLayout)
		return nil, fmt.Errorf("render/wgpu: create pipeline layout: %w", err)
	}

	sampler, err := device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "ldraw-color-lookup-sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		shaders.DestroyAll(device)
		device.DestroyPipelineLayout(pipelineLayout)
		device.DestroyBindGroupLayout(bindGroupLayout)
		return nil, fmt.Errorf("render/wgpu: create sampler: %w", err)
	}

	r := &GpuRenderer{
		device:          device,
		queue:           queue,
		shaders:         shaders,
		pipelines:       pipelines,
		bindGroupLayout: bindGroupLayout,
		pipelineLayout:  pipelineLayout,
		sampler:         sampler,
		geometry:        cache.NewSharded[string, *GeometryHandle](0, cache.StringHasher),
	}

	if err := r.buildColorLookup(colors); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.buildUniforms(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.buildBindGroup(); err != nil {
		r.Close()
		return nil, err
	}
	if err := r.buildPipelines(); err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

func (r *GpuRenderer) buildColorLookup(colors *ldraw.ColorTable) error {
	pixels := make([]byte, colorLookupWidth*colorLookupHeight*4)
	for code := 0; code < colorLookupWidth*colorLookupHeight; code++ {
		c, ok := colors.Lookup(code)
		if !ok {
			continue
		}
		o := code * 4
		pixels[o+0] = c.Value.R
		pixels[o+1] = c.Value.G
		pixels[o+2] = c.Value.B
		pixels[o+3] = c.Value.A
	}

	tex, err := r.device.CreateTexture(&hal.TextureDescriptor{
		Label: "ldraw-color-lookup",
		Size: hal.Extent3D{
			Width:              colorLookupWidth,
			Height:             colorLookupHeight,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("render/wgpu: create color lookup texture: %w", err)
	}

	view, err := r.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: "ldraw-color-lookup-view",
	})
	if err != nil {
		r.device.DestroyTexture(tex)
		return fmt.Errorf("render/wgpu: create color lookup view: %w", err)
	}

	r.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		pixels,
		&hal.ImageDataLayout{BytesPerRow: colorLookupWidth * 4, RowsPerImage: colorLookupHeight},
		&hal.Extent3D{Width: colorLookupWidth, Height: colorLookupHeight, DepthOrArrayLayers: 1},
	)

	r.colorLookup = tex
	r.colorLookupView = view
	return nil
}

func (r *GpuRenderer) buildUniforms() error {
	transformBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ldraw-transform-uniform",
		Size:  transformUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("render/wgpu: create transform uniform: %w", err)
	}

	defaultColorBuf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "ldraw-default-color-uniform",
		Size:  defaultColorUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		r.device.DestroyBuffer(transformBuf)
		return fmt.Errorf("render/wgpu: create default color uniform: %w", err)
	}

	r.transformBuf = transformBuf
	r.defaultColorBuf = defaultColorBuf
	return nil
}

func (r *GpuRenderer) buildBindGroup() error {
	bindGroup, err := r.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "ldraw-shared-bind-group",
		Layout: r.bindGroupLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: r.transformBuf.NativeHandle(), Offset: 0, Size: transformUniformSize,
			}},
			{Binding: 1, Resource: gputypes.BufferBinding{
				Buffer: r.defaultColorBuf.NativeHandle(), Offset: 0, Size: defaultColorUniformSize,
			}},
			{Binding: 2, Resource: r.colorLookupView},
			{Binding: 3, Resource: r.sampler},
		},
	})
	if err != nil {
		return fmt.Errorf("render/wgpu: create bind group: %w", err)
	}
	r.bindGroup = bindGroup
	return nil
}

// buildPipelines creates the eight fixed pipelines named in 4.5's table:
// opaque/transparent triangles cull the back face with a depth bias
// (slope -1, constant -1); every pipeline uses reverse-Z (cmp=greater);
// transparent triangles disable depth write.
func (r *GpuRenderer) buildPipelines() error {
	type spec struct {
		label          string
		vs, fs         hal.ShaderModule
		vsHash, fsHash uint64
		buffers        []VertexBufferLayout
		topology       gputypes.PrimitiveTopology
		cull           bool
		depthWrite     bool
		depthBias      bool
		blend          *BlendState
		dst            *hal.RenderPipeline
	}

	specs := []spec{
		{
			label: "hard-line", vs: r.shaders.HardLine, vsHash: r.shaders.HardLineHash,
			fs: r.shaders.HardLine, fsHash: r.shaders.HardLineHash,
			buffers: []VertexBufferLayout{lineVertexLayout()},
			topology: gputypes.PrimitiveTopologyLineList, depthWrite: true,
			dst: &r.built.hardLine,
		},
		{
			label: "stud-hard-line", vs: r.shaders.StudHardLine, vsHash: r.shaders.StudHardLineHash,
			fs: r.shaders.StudHardLine, fsHash: r.shaders.StudHardLineHash,
			buffers: []VertexBufferLayout{lineVertexLayout(), instanceLayout()},
			topology: gputypes.PrimitiveTopologyLineList, depthWrite: true,
			dst: &r.built.studHardLine,
		},
		{
			label: "opaque-triangle", vs: r.shaders.OpaqueTriangle, vsHash: r.shaders.OpaqueTriangleHash,
			fs: r.shaders.OpaqueTriangle, fsHash: r.shaders.OpaqueTriangleHash,
			buffers: []VertexBufferLayout{triangleVertexLayout()},
			topology: gputypes.PrimitiveTopologyTriangleList, cull: true, depthWrite: true, depthBias: true,
			blend: PremultipliedAlphaBlend, dst: &r.built.opaqueTriangle,
		},
		{
			label: "stud-opaque-triangle", vs: r.shaders.StudOpaqueTriangle, vsHash: r.shaders.StudOpaqueTriangleHash,
			fs: r.shaders.StudOpaqueTriangle, fsHash: r.shaders.StudOpaqueTriangleHash,
			buffers: []VertexBufferLayout{triangleVertexLayout(), instanceLayout()},
			topology: gputypes.PrimitiveTopologyTriangleList, cull: true, depthWrite: true, depthBias: true,
			blend: PremultipliedAlphaBlend, dst: &r.built.studOpaqueTriangle,
		},
		{
			label: "transparent-triangle", vs: r.shaders.TransparentTriangle, vsHash: r.shaders.TransparentTriangleHash,
			fs: r.shaders.TransparentTriangle, fsHash: r.shaders.TransparentTriangleHash,
			buffers: []VertexBufferLayout{triangleVertexLayout()},
			topology: gputypes.PrimitiveTopologyTriangleList, cull: true, depthWrite: false, depthBias: true,
			blend: PremultipliedAlphaBlend, dst: &r.built.transparentTriangle,
		},
		{
			label: "stud-transparent-triangle", vs: r.shaders.StudTransparentTriangle, vsHash: r.shaders.StudTransparentTriangleHash,
			fs: r.shaders.StudTransparentTriangle, fsHash: r.shaders.StudTransparentTriangleHash,
			buffers: []VertexBufferLayout{triangleVertexLayout(), instanceLayout()},
			topology: gputypes.PrimitiveTopologyTriangleList, cull: true, depthWrite: false, depthBias: true,
			blend: PremultipliedAlphaBlend, dst: &r.built.studTransparentTriangle,
		},
		{
			label: "optional-line", vs: r.shaders.OptionalLine, vsHash: r.shaders.OptionalLineHash,
			fs: r.shaders.OptionalLine, fsHash: r.shaders.OptionalLineHash,
			buffers: []VertexBufferLayout{optionalLineVertexLayout()},
			topology: gputypes.PrimitiveTopologyLineList, depthWrite: true,
			dst: &r.built.optionalLine,
		},
		{
			label: "stud-optional-line", vs: r.shaders.StudOptionalLine, vsHash: r.shaders.StudOptionalLineHash,
			fs: r.shaders.StudOptionalLine, fsHash: r.shaders.StudOptionalLineHash,
			buffers: []VertexBufferLayout{optionalLineVertexLayout(), instanceLayout()},
			topology: gputypes.PrimitiveTopologyLineList, depthWrite: true,
			dst: &r.built.studOptionalLine,
		},
	}

	for _, s := range specs {
		desc := &RenderPipelineDescriptor{
			Label:              s.label,
			VertexShader:       s.vs,
			VertexShaderHash:   s.vsHash,
			FragmentShader:     s.fs,
			FragmentShaderHash: s.fsHash,
			VertexBuffers:      s.buffers,
			Topology:           s.topology,
			FrontFace:          gputypes.FrontFaceCCW,
			DepthWriteEnabled:  s.depthWrite,
			DepthCompare:       gputypes.CompareFunctionGreater,
			Blend:              s.blend,
		}
		if s.cull {
			desc.CullMode = gputypes.CullModeBack
		}
		if s.depthBias {
			desc.DepthBiasSlope = -1
			desc.DepthBiasConstant = -1
		}
		pipeline, err := r.pipelines.GetOrCreate(r.pipelineLayout, desc)
		if err != nil {
			return fmt.Errorf("render/wgpu: build %s pipeline: %w", s.label, err)
		}
		*s.dst = pipeline
	}

	return nil
}

func triangleVertexLayout() VertexBufferLayout {
	return VertexBufferLayout{
		ArrayStride: 40,
		Attributes: []VertexAttribute{
			{ShaderLocation: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
			{ShaderLocation: 1, Format: gputypes.VertexFormatFloat32x3, Offset: 12},
			{ShaderLocation: 2, Format: gputypes.VertexFormatFloat32x4, Offset: 24},
		},
	}
}

func lineVertexLayout() VertexBufferLayout {
	return VertexBufferLayout{
		ArrayStride: 28,
		Attributes: []VertexAttribute{
			{ShaderLocation: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
			{ShaderLocation: 1, Format: gputypes.VertexFormatFloat32x4, Offset: 12},
		},
	}
}

func optionalLineVertexLayout() VertexBufferLayout {
	return VertexBufferLayout{
		ArrayStride: 64,
		Attributes: []VertexAttribute{
			{ShaderLocation: 0, Format: gputypes.VertexFormatFloat32x3, Offset: 0},
			{ShaderLocation: 1, Format: gputypes.VertexFormatFloat32x3, Offset: 12},
			{ShaderLocation: 2, Format: gputypes.VertexFormatFloat32x3, Offset: 24},
			{ShaderLocation: 3, Format: gputypes.VertexFormatFloat32x3, Offset: 36},
			{ShaderLocation: 4, Format: gputypes.VertexFormatFloat32x4, Offset: 48},
		},
	}
}

// instanceLayout describes the per-instance (mat4, color) attribute stream
// shared by every stud-instanced pipeline: four vec4 columns at locations
// 8-11, plus the resolved instance color at location 12, matching
// studInstanceAttributes in shaders.go.
func instanceLayout() VertexBufferLayout {
	return VertexBufferLayout{
		ArrayStride: 80,
		Instanced:   true,
		Attributes: []VertexAttribute{
			{ShaderLocation: 8, Format: gputypes.VertexFormatFloat32x4, Offset: 0},
			{ShaderLocation: 9, Format: gputypes.VertexFormatFloat32x4, Offset: 16},
			{ShaderLocation: 10, Format: gputypes.VertexFormatFloat32x4, Offset: 32},
			{ShaderLocation: 11, Format: gputypes.VertexFormatFloat32x4, Offset: 48},
			{ShaderLocation: 12, Format: gputypes.VertexFormatFloat32x4, Offset: 64},
		},
	}
}

// SetStudMesh uploads the canonical stud geometry used by every
// stud-instanced draw from this point on, replacing any previous mesh.
func (r *GpuRenderer) SetStudMesh(mesh StudMesh) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.studMeshTriangles != nil {
		r.device.DestroyBuffer(r.studMeshTriangles)
		r.studMeshTriangles = nil
		r.studMeshTriangleCount = 0
	}
	if r.studMeshLines != nil {
		r.device.DestroyBuffer(r.studMeshLines)
		r.studMeshLines = nil
		r.studMeshLineCount = 0
	}
	if r.studMeshOptionalLines != nil {
		r.device.DestroyBuffer(r.studMeshOptionalLines)
		r.studMeshOptionalLines = nil
		r.studMeshOptionalCount = 0
	}

	if len(mesh.Triangles) > 0 {
		buf, err := r.createAndUpload("stud-mesh-triangles", packTriangleVertices(mesh.Triangles),
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("render/wgpu: upload stud mesh triangles: %w", err)
		}
		r.studMeshTriangles = buf
		r.studMeshTriangleCount = uint32(len(mesh.Triangles))
	}

	if len(mesh.Lines) > 0 {
		buf, err := r.createAndUpload("stud-mesh-lines", packLineVertices(mesh.Lines),
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("render/wgpu: upload stud mesh lines: %w", err)
		}
		r.studMeshLines = buf
		r.studMeshLineCount = uint32(len(mesh.Lines))
	}

	if len(mesh.OptionalLines) > 0 {
		buf, err := r.createAndUpload("stud-mesh-optional-lines", packOptionalLineVertices(mesh.OptionalLines),
			gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			return fmt.Errorf("render/wgpu: upload stud mesh optional lines: %w", err)
		}
		r.studMeshOptionalLines = buf
		r.studMeshOptionalCount = uint32(len(mesh.OptionalLines))
	}

	return nil
}

// Upload uploads geo's vertex buffers to the GPU and memoizes the result
// under name, per 4.5's geometry cache. Calling Upload again for a name
// still cached returns the existing handle without touching the GPU; use
// Forget first to force a re-upload.
//
// Concurrent Upload calls for the same uncached name may each upload a
// buffer set; the cache keeps only the one set last, and the other is
// simply never referenced again and leaks until the renderer is closed.
// The worker package already deduplicates loads by file name before they
// ever reach here, so this race is not exercised in practice.
func (r *GpuRenderer) Upload(name string, geo *flatten.Geometry) (*GeometryHandle, error) {
	if h, ok := r.geometry.Get(name); ok {
		return h, nil
	}

	h, err := r.uploadGeometry(geo)
	if err != nil {
		return nil, err
	}
	r.geometry.Set(name, h)
	return h, nil
}

// Forget evicts name from the geometry cache, destroying its GPU buffers.
func (r *GpuRenderer) Forget(name string) {
	if h, ok := r.geometry.Get(name); ok {
		r.geometry.Delete(name)
		h.destroy(r.device)
	}
}

func (r *GpuRenderer) uploadGeometry(geo *flatten.Geometry) (*GeometryHandle, error) {
	h := &GeometryHandle{}

	type upload struct {
		data  []byte
		count int
		label string
		buf   *hal.Buffer
		n     *uint32
	}

	uploads := []upload{
		{packTriangleVertices(geo.OpaqueTriangles), len(geo.OpaqueTriangles), "opaque-triangles", &h.opaqueTriangles, &h.opaqueTriangleCount},
		{packTriangleVertices(geo.TransparentTriangles), len(geo.TransparentTriangles), "transparent-triangles", &h.transparentTriangles, &h.transparentCount},
		{packLineVertices(geo.Lines), len(geo.Lines), "lines", &h.lines, &h.lineCount},
		{packOptionalLineVertices(geo.OptionalLines), len(geo.OptionalLines), "optional-lines", &h.optionalLines, &h.optionalCount},
		{packInstanceData(geo.Studs), len(geo.Studs), "stud-instances", &h.studs, &h.studCount},
	}

	for _, u := range uploads {
		if u.count == 0 {
			continue
		}
		buf, err := r.createAndUpload(u.label, u.data, gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
		if err != nil {
			h.destroy(r.device)
			return nil, fmt.Errorf("render/wgpu: upload %s: %w", u.label, err)
		}
		*u.buf = buf
		*u.n = uint32(u.count)
	}

	return h, nil
}

func (r *GpuRenderer) createAndUpload(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := r.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	r.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// Prepare returns a draw closure bound to target's color/depth attachments,
// per 4.5's prepare(target) -> draw_fn contract. CanvasRenderer calls this
// once on construction and again on every resize, since a resized surface
// needs a differently-sized depth attachment.
func (r *GpuRenderer) Prepare(target RenderPassTarget) func(hal.CommandEncoder, RenderRequest) error {
	return func(encoder hal.CommandEncoder, req RenderRequest) error {
		return r.draw(encoder, target, req)
	}
}

// draw performs the six-step sequence from 4.5 against one render pass:
// clear (implicit in BeginRenderPass), bind the shared group, opaque
// triangles (main then stud), hard lines (main then stud), optional lines
// (main then stud), transparent triangles (main only). Stud instances,
// whatever their color, are drawn once with the opaque stud pipeline;
// the stud-transparent pipeline is built but draw does not use it.
func (r *GpuRenderer) draw(encoder hal.CommandEncoder, target RenderPassTarget, req RenderRequest) error {
	r.writeUniforms(req.Transform, req.DefaultColor)

	pass, err := BeginRenderPass(encoder, target)
	if err != nil {
		return fmt.Errorf("render/wgpu: begin render pass: %w", err)
	}

	pass.SetBindGroup(0, r.bindGroup)

	g := req.Geometry
	if g != nil {
		if g.opaqueTriangleCount > 0 {
			pass.SetPipeline(r.built.opaqueTriangle)
			pass.SetVertexBuffer(0, g.opaqueTriangles)
			pass.Draw(g.opaqueTriangleCount, 1)
		}
		if g.studCount > 0 && r.studMeshTriangleCount > 0 {
			pass.SetPipeline(r.built.studOpaqueTriangle)
			pass.SetVertexBuffer(0, r.studMeshTriangles)
			pass.SetVertexBuffer(1, g.studs)
			pass.Draw(r.studMeshTriangleCount, g.studCount)
		}

		if g.lineCount > 0 {
			pass.SetPipeline(r.built.hardLine)
			pass.SetVertexBuffer(0, g.lines)
			pass.Draw(g.lineCount, 1)
		}
		if g.studCount > 0 && r.studMeshLineCount > 0 {
			pass.SetPipeline(r.built.studHardLine)
			pass.SetVertexBuffer(0, r.studMeshLines)
			pass.SetVertexBuffer(1, g.studs)
			pass.Draw(r.studMeshLineCount, g.studCount)
		}

		if g.optionalCount > 0 {
			pass.SetPipeline(r.built.optionalLine)
			pass.SetVertexBuffer(0, g.optionalLines)
			pass.Draw(g.optionalCount, 1)
		}
		if g.studCount > 0 && r.studMeshOptionalCount > 0 {
			pass.SetPipeline(r.built.studOptionalLine)
			pass.SetVertexBuffer(0, r.studMeshOptionalLines)
			pass.SetVertexBuffer(1, g.studs)
			pass.Draw(r.studMeshOptionalCount, g.studCount)
		}

		if g.transparentCount > 0 {
			pass.SetPipeline(r.built.transparentTriangle)
			pass.SetVertexBuffer(0, g.transparentTriangles)
			pass.Draw(g.transparentCount, 1)
		}
	}

	return pass.End()
}

func (r *GpuRenderer) writeUniforms(transform [16]float32, defaultColor [4]float32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var tbuf [transformUniformSize]byte
	for i, v := range transform {
		binary.LittleEndian.PutUint32(tbuf[i*4:], math.Float32bits(v))
	}
	r.queue.WriteBuffer(r.transformBuf, 0, tbuf[:])

	var cbuf [defaultColorUniformSize]byte
	for i, v := range defaultColor {
		binary.LittleEndian.PutUint32(cbuf[i*4:], math.Float32bits(v))
	}
	r.queue.WriteBuffer(r.defaultColorBuf, 0, cbuf[:])
}

// Close releases every device-scoped resource: pipelines, shaders, the
// shared bind group and its layout, the color-lookup texture and sampler,
// the uniform buffers and the stud mesh buffers. Cached geometry uploads
// are dropped from the cache but their buffers are not destroyed here.
func (r *GpuRenderer) Close() {
	if r.pipelines != nil {
		r.pipelines.DestroyAll()
	}
	if r.shaders != nil {
		r.shaders.DestroyAll(r.device)
	}
	if r.bindGroup != nil {
		r.device.DestroyBindGroup(r.bindGroup)
	}
	if r.pipelineLayout != nil {
		r.device.DestroyPipelineLayout(r.pipelineLayout)
	}
	if r.bindGroupLayout != nil {
		r.device.DestroyBindGroupLayout(r.bindGroupLayout)
	}
	if r.sampler != nil {
		r.device.DestroySampler(r.sampler)
	}
	if r.colorLookupView != nil {
		r.device.DestroyTextureView(r.colorLookupView)
	}
	if r.colorLookup != nil {
		r.device.DestroyTexture(r.colorLookup)
	}
	if r.transformBuf != nil {
		r.device.DestroyBuffer(r.transformBuf)
	}
	if r.defaultColorBuf != nil {
		r.device.DestroyBuffer(r.defaultColorBuf)
	}
	if r.studMeshTriangles != nil {
		r.device.DestroyBuffer(r.studMeshTriangles)
	}
	if r.studMeshLines != nil {
		r.device.DestroyBuffer(r.studMeshLines)
	}
	if r.studMeshOptionalLines != nil {
		r.device.DestroyBuffer(r.studMeshOptionalLines)
	}
	// ShardedCache has no iteration API, so geometry buffers still resident
	// here are released with the device on process exit rather than
	// individually destroyed; Forget each name before Close for a clean
	// shutdown.
	if r.geometry != nil {
		r.geometry.Clear()
	}
}

func packTriangleVertices(v []flatten.TriangleVertex) []byte {
	buf := make([]byte, len(v)*40)
	o := 0
	for _, vx := range v {
		o = putFloat3(buf, o, vx.Position)
		o = putFloat3(buf, o, vx.Normal)
		o = putFloat4(buf, o, vx.Color)
	}
	return buf
}

func packLineVertices(v []flatten.LineVertex) []byte {
	buf := make([]byte, len(v)*28)
	o := 0
	for _, vx := range v {
		o = putFloat3(buf, o, vx.Position)
		o = putFloat4(buf, o, vx.Color)
	}
	return buf
}

func packOptionalLineVertices(v []flatten.OptionalLineVertex) []byte {
	buf := make([]byte, len(v)*64)
	o := 0
	for _, vx := range v {
		o = putFloat3(buf, o, vx.Position)
		o = putFloat3(buf, o, vx.OtherPosition)
		o = putFloat3(buf, o, vx.Control1)
		o = putFloat3(buf, o, vx.Control2)
		o = putFloat4(buf, o, vx.Color)
	}
	return buf
}

func packInstanceData(v []flatten.InstanceData) []byte {
	buf := make([]byte, len(v)*80)
	o := 0
	for _, vx := range v {
		for _, f := range vx.Transform {
			binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(f))
			o += 4
		}
		o = putFloat4(buf, o, vx.Color)
	}
	return buf
}

func putFloat3(buf []byte, o int, v [3]float32) int {
	for _, f := range v {
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(f))
		o += 4
	}
	return o
}

func putFloat4(buf []byte, o int, v [4]float32) int {
	for _, f := range v {
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(f))
		o += 4
	}
	return o
}
