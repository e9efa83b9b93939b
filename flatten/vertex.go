// Package flatten implements GeometryFlattener: it walks a resolved
// ldraw.Part DAG and emits flat, GPU-ready vertex buffers, remapping
// LDraw's (x,y,z) coordinate convention to the renderer's (x,z,y) and
// resolving inherited/edge colors against a ldraw.ColorTable along the
// way.
package flatten

// TriangleVertex is one vertex of an opaque or transparent triangle,
// emitted three at a time (no index buffer: each triangle owns its own
// three vertices, since LDraw parts share almost no vertex positions
// between adjacent triangles).
type TriangleVertex struct {
	Position [3]float32
	Normal   [3]float32
	Color    [4]float32
}

// LineVertex is one vertex of a hard (always-visible) edge, emitted two
// at a time for a line-list draw.
type LineVertex struct {
	Position [3]float32
	Color    [4]float32
}

// OptionalLineVertex is one vertex of a conditional edge. Both vertices
// of a segment carry the segment's own two endpoints and its two
// control points, so the vertex shader can perform the straddle test
// (do P1-P2's plane and the view direction place Control1 and Control2
// on the same side?) without a separate per-primitive uniform.
type OptionalLineVertex struct {
	Position      [3]float32
	OtherPosition [3]float32
	Control1      [3]float32
	Control2      [3]float32
	Color         [4]float32
}

// InstanceData is the per-instance attribute stream for stud-instanced
// draws: studs are the single highest-multiplicity primitive in a
// typical LDraw model, so the renderer draws every stud location with
// one shared mesh and an instance buffer instead of flattening each
// stud's triangles individually.
type InstanceData struct {
	Transform [16]float32
	Color     [4]float32
}

// BoundingBox is an axis-aligned bounding box in the remapped
// (x,z,y) render coordinate space.
type BoundingBox struct {
	Min [3]float32
	Max [3]float32
}

// Geometry holds the four flat vertex buffers produced by Flatten,
// plus the bounding information needed to frame a default camera view.
type Geometry struct {
	OpaqueTriangles      []TriangleVertex
	TransparentTriangles []TriangleVertex
	Lines                []LineVertex
	OptionalLines        []OptionalLineVertex
	Studs                []InstanceData

	Bounds BoundingBox
	// ViewBox is the radius of the tightest axis-aligned cube centered
	// on the origin containing every emitted vertex (the max absolute
	// coordinate magnitude seen), used to configure the orthographic
	// projection volume.
	ViewBox float32
	Center  [3]float32
}
