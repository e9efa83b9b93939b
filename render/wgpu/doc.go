// Package wgpu renders a flattened LDraw model with gogpu/wgpu, per
// 4.5: a single GpuRenderer owns the color-lookup texture, the shader
// pipeline set, and a cache of uploaded GeometryHandles, and produces a
// reusable draw closure for each frame.
//
// # Pipeline
//
// Upload converts a *flatten.Geometry into GPU buffers once per LDraw
// file name (memoized by cache.ShardedCache, evicting least-recently
// used handles once a shard holds more than its entry capacity) and
// returns an opaque
// GeometryHandle. Prepare binds a fixed color/depth attachment pair and
// returns a closure that, given a RenderRequest (transform matrix,
// default color, and a GeometryHandle), records the frame's draw calls
// against that pair using the eight fixed pipelines of pipelineSet: one
// main and one stud-instanced variant each for opaque triangles
// (depth-tested), transparent triangles (depth-tested with depth write
// off), hard edge lines, and optional (conditional) edge lines. Each
// buffer is drawn in upload order; no primitive sorting happens here. Stud geometry (SetStudMesh) is tessellated once and
// reused across every part instance that has a stud, rather than
// re-tessellated per upload.
//
// pipeline.go builds and hashes the pipelineSet's RenderPipelines
// (keyed by a hash of shader, vertex-layout, primitive, depth and blend
// state, so identical descriptors share one compiled pipeline);
// shaders.go holds their
// WGSL source; renderpass.go wraps hal's render-pass encoder in the
// method shapes GpuRenderer's draw closures call against.
//
// # Device ownership
//
// GpuRenderer never creates its own wgpu.Device: it's constructed with
// a DeviceHandle (device.go) supplied by the embedding application (a
// gogpu.Context's GPUContextProvider, or a test double), the same
// receive-don't-create convention surface.CanvasRenderer follows for
// its own device/queue handles.
package wgpu
