package wgpu

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Shared WGSL bindings for every pipeline in this package:
//
//	group(0) binding(0): uniform Transform  { transform: mat4x4<f32> }
//	group(0) binding(1): uniform DefaultColor { color: vec4<f32> }
//	group(0) binding(2): texture_2d<f32> colorLookup
//	group(0) binding(3): sampler colorLookupSampler
const sharedBindings = `
struct Transform {
	matrix: mat4x4<f32>,
}
struct DefaultColor {
	color: vec4<f32>,
}
@group(0) @binding(0) var<uniform> transform: Transform;
@group(0) @binding(1) var<uniform> defaultColor: DefaultColor;
@group(0) @binding(2) var colorLookup: texture_2d<f32>;
@group(0) @binding(3) var colorLookupSampler: sampler;

fn lookupColor(code: i32) -> vec4<f32> {
	if (code == 16) {
		return defaultColor.color;
	}
	let x = code % 256;
	let y = code / 256;
	return textureLoad(colorLookup, vec2<i32>(x, y), 0);
}
`

const opaqueTriangleWGSL = sharedBindings + `
struct VertexIn {
	@location(0) position: vec3<f32>,
	@location(1) normal: vec3<f32>,
	@location(2) color: vec4<f32>,
}
struct VertexOut {
	@builtin(position) clipPosition: vec4<f32>,
	@location(0) color: vec4<f32>,
	@location(1) normal: vec3<f32>,
}

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
	var out: VertexOut;
	out.clipPosition = transform.matrix * vec4<f32>(in.position, 1.0);
	out.color = in.color;
	out.normal = in.normal;
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	let lighting = 0.6 + 0.4 * max(dot(normalize(in.normal), vec3<f32>(0.0, 0.0, 1.0)), 0.0);
	return vec4<f32>(in.color.rgb * lighting, in.color.a);
}
`

const studInstanceAttributes = `
struct InstanceIn {
	@location(8) col0: vec4<f32>,
	@location(9) col1: vec4<f32>,
	@location(10) col2: vec4<f32>,
	@location(11) col3: vec4<f32>,
	@location(12) instanceColor: vec4<f32>,
}
fn instanceMatrix(inst: InstanceIn) -> mat4x4<f32> {
	return mat4x4<f32>(inst.col0, inst.col1, inst.col2, inst.col3);
}
`

const studOpaqueTriangleWGSL = sharedBindings + studInstanceAttributes + `
struct VertexIn {
	@location(0) position: vec3<f32>,
	@location(1) normal: vec3<f32>,
	@location(2) color: vec4<f32>,
}
struct VertexOut {
	@builtin(position) clipPosition: vec4<f32>,
	@location(0) color: vec4<f32>,
	@location(1) normal: vec3<f32>,
}

@vertex
fn vs_main(in: VertexIn, inst: InstanceIn) -> VertexOut {
	var out: VertexOut;
	let model = instanceMatrix(inst);
	out.clipPosition = transform.matrix * model * vec4<f32>(in.position, 1.0);
	out.color = inst.instanceColor;
	out.normal = in.normal;
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	let lighting = 0.6 + 0.4 * max(dot(normalize(in.normal), vec3<f32>(0.0, 0.0, 1.0)), 0.0);
	return vec4<f32>(in.color.rgb * lighting, in.color.a);
}
`

const hardLineWGSL = sharedBindings + `
struct VertexIn {
	@location(0) position: vec3<f32>,
	@location(1) color: vec4<f32>,
}
struct VertexOut {
	@builtin(position) clipPosition: vec4<f32>,
	@location(0) color: vec4<f32>,
}

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
	var out: VertexOut;
	out.clipPosition = transform.matrix * vec4<f32>(in.position, 1.0);
	out.color = in.color;
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	return in.color;
}
`

const studHardLineWGSL = sharedBindings + studInstanceAttributes + `
struct VertexIn {
	@location(0) position: vec3<f32>,
	@location(1) color: vec4<f32>,
}
struct VertexOut {
	@builtin(position) clipPosition: vec4<f32>,
	@location(0) color: vec4<f32>,
}

@vertex
fn vs_main(in: VertexIn, inst: InstanceIn) -> VertexOut {
	var out: VertexOut;
	let model = instanceMatrix(inst);
	out.clipPosition = transform.matrix * model * vec4<f32>(in.position, 1.0);
	out.color = inst.instanceColor;
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	return in.color;
}
`

// optionalLineWGSL implements the straddle test from 4.5: the line is drawn
// only if its two control points fall on opposite sides of the plane formed
// by the edge and the camera's view normal. visible is computed per-vertex
// in the vertex shader and carried to the fragment shader, which discards
// when it's false.
const optionalLineWGSL = sharedBindings + `
struct VertexIn {
	@location(0) position: vec3<f32>,
	@location(1) other: vec3<f32>,
	@location(2) control1: vec3<f32>,
	@location(3) control2: vec3<f32>,
	@location(4) color: vec4<f32>,
}
struct VertexOut {
	@builtin(position) clipPosition: vec4<f32>,
	@location(0) color: vec4<f32>,
	@location(1) visible: f32,
}

fn edgeSide(p1: vec3<f32>, p2: vec3<f32>, c: vec3<f32>) -> f32 {
	let viewNormal = vec3<f32>(0.0, 0.0, 1.0);
	return dot(cross(p2 - p1, c - p1), viewNormal);
}

@vertex
fn vs_main(in: VertexIn) -> VertexOut {
	var out: VertexOut;
	out.clipPosition = transform.matrix * vec4<f32>(in.position, 1.0);
	out.color = in.color;

	let s1 = edgeSide(in.position, in.other, in.control1);
	let s2 = edgeSide(in.position, in.other, in.control2);
	out.visible = select(0.0, 1.0, s1 * s2 < 0.0);
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	if (in.visible < 0.5) {
		discard;
	}
	return in.color;
}
`

const studOptionalLineWGSL = sharedBindings + studInstanceAttributes + `
struct VertexIn {
	@location(0) position: vec3<f32>,
	@location(1) other: vec3<f32>,
	@location(2) control1: vec3<f32>,
	@location(3) control2: vec3<f32>,
	@location(4) color: vec4<f32>,
}
struct VertexOut {
	@builtin(position) clipPosition: vec4<f32>,
	@location(0) color: vec4<f32>,
	@location(1) visible: f32,
}

fn edgeSide(p1: vec3<f32>, p2: vec3<f32>, c: vec3<f32>) -> f32 {
	let viewNormal = vec3<f32>(0.0, 0.0, 1.0);
	return dot(cross(p2 - p1, c - p1), viewNormal);
}

@vertex
fn vs_main(in: VertexIn, inst: InstanceIn) -> VertexOut {
	var out: VertexOut;
	let model = instanceMatrix(inst);
	out.clipPosition = transform.matrix * model * vec4<f32>(in.position, 1.0);
	out.color = inst.instanceColor;

	let s1 = edgeSide(in.position, in.other, in.control1);
	let s2 = edgeSide(in.position, in.other, in.control2);
	out.visible = select(0.0, 1.0, s1 * s2 < 0.0);
	return out;
}

@fragment
fn fs_main(in: VertexOut) -> @location(0) vec4<f32> {
	if (in.visible < 0.5) {
		discard;
	}
	return in.color;
}
`

// transparentTriangleWGSL reuses opaqueTriangleWGSL's shading model; it is
// distinguished only by the pipeline state (depth write off) the caller
// builds around the same shader module, matching 4.5's pipeline table where
// opaque and transparent triangles differ solely in depth/blend state.
const transparentTriangleWGSL = opaqueTriangleWGSL
const studTransparentTriangleWGSL = studOpaqueTriangleWGSL

// ShaderSet holds every compiled shader module this renderer's pipelines
// need, one per PipelineKind plus its stud-instanced variant.
type ShaderSet struct {
	HardLine               hal.ShaderModule
	HardLineHash           uint64
	StudHardLine           hal.ShaderModule
	StudHardLineHash       uint64
	OpaqueTriangle         hal.ShaderModule
	OpaqueTriangleHash     uint64
	StudOpaqueTriangle     hal.ShaderModule
	StudOpaqueTriangleHash uint64
	TransparentTriangle    hal.ShaderModule
	TransparentTriangleHash uint64
	StudTransparentTriangle hal.ShaderModule
	StudTransparentTriangleHash uint64
	OptionalLine           hal.ShaderModule
	OptionalLineHash       uint64
	StudOptionalLine       hal.ShaderModule
	StudOptionalLineHash   uint64
}

// CompileShaders validates and compiles every WGSL source this package needs
// through naga, then creates a HAL shader module for each. naga.Compile
// additionally catches malformed WGSL (a typo in a shared struct field,
// say) before it ever reaches the driver.
func CompileShaders(device hal.Device) (*ShaderSet, error) {
	set := &ShaderSet{}
	sources := []struct {
		label  string
		source string
		module *hal.ShaderModule
		hash   *uint64
	}{
		{"hard-line", hardLineWGSL, &set.HardLine, &set.HardLineHash},
		{"stud-hard-line", studHardLineWGSL, &set.StudHardLine, &set.StudHardLineHash},
		{"opaque-triangle", opaqueTriangleWGSL, &set.OpaqueTriangle, &set.OpaqueTriangleHash},
		{"stud-opaque-triangle", studOpaqueTriangleWGSL, &set.StudOpaqueTriangle, &set.StudOpaqueTriangleHash},
		{"transparent-triangle", transparentTriangleWGSL, &set.TransparentTriangle, &set.TransparentTriangleHash},
		{"stud-transparent-triangle", studTransparentTriangleWGSL, &set.StudTransparentTriangle, &set.StudTransparentTriangleHash},
		{"optional-line", optionalLineWGSL, &set.OptionalLine, &set.OptionalLineHash},
		{"stud-optional-line", studOptionalLineWGSL, &set.StudOptionalLine, &set.StudOptionalLineHash},
	}

	for _, s := range sources {
		module, codeHash, err := compileShaderModule(device, s.label, s.source)
		if err != nil {
			return nil, fmt.Errorf("compile %s shader: %w", s.label, err)
		}
		*s.module = module
		*s.hash = codeHash
	}

	return set, nil
}

func compileShaderModule(device hal.Device, label, source string) (hal.ShaderModule, uint64, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, 0, fmt.Errorf("naga validation failed: %w", err)
	}
	codeHash := hashBytes(spirvBytes)

	spirvCode := make([]uint32, len(spirvBytes)/4)
	for i := range spirvCode {
		spirvCode[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}

	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{SPIRV: spirvCode},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("create shader module: %w", err)
	}

	return module, codeHash, nil
}

func hashBytes(data []byte) uint64 {
	var sum uint64 = 14695981039346656037
	for _, b := range data {
		sum ^= uint64(b)
		sum *= 1099511628211
	}
	return sum
}

// DestroyAll releases every compiled shader module.
func (s *ShaderSet) DestroyAll(device hal.Device) {
	modules := []hal.ShaderModule{
		s.HardLine, s.StudHardLine,
		s.OpaqueTriangle, s.StudOpaqueTriangle,
		s.TransparentTriangle, s.StudTransparentTriangle,
		s.OptionalLine, s.StudOptionalLine,
	}
	for _, m := range modules {
		if m != nil {
			device.DestroyShaderModule(m)
		}
	}
}
