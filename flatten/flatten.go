package flatten

import (
	"math"

	"github.com/ldraw-go/brickviewer/ldraw"
)

// defaultStudNames are the primitive file names treated as stud
// instances rather than flattened per-occurrence triangles. Names are
// matched case-sensitively against ldraw.Part.Name, which is always the
// resolved file name (e.g. "stud.dat").
var defaultStudNames = map[string]bool{
	"stud.dat":  true,
	"stud2.dat": true,
	"stud3.dat": true,
	"stud4.dat": true,
}

// Config controls GeometryFlattener behavior.
type Config struct {
	// Colors resolves color-16 (inherit) and color-24 (edge) references
	// and transparency against the model's loaded color definitions.
	// Required.
	Colors *ldraw.ColorTable

	// StudNames is the set of part file names flattened into the
	// instanced stud draw instead of individual triangles. If nil,
	// defaultStudNames is used.
	StudNames map[string]bool
}

// GeometryFlattener walks a resolved ldraw.Part DAG and produces a flat
// Geometry ready for GPU upload.
type GeometryFlattener struct {
	colors    *ldraw.ColorTable
	studNames map[string]bool
}

// NewGeometryFlattener creates a flattener from cfg. Panics if
// cfg.Colors is nil, since every triangle and line needs color
// resolution.
func NewGeometryFlattener(cfg Config) *GeometryFlattener {
	if cfg.Colors == nil {
		panic("flatten: Config.Colors is required")
	}
	studNames := cfg.StudNames
	if studNames == nil {
		studNames = defaultStudNames
	}
	return &GeometryFlattener{colors: cfg.Colors, studNames: studNames}
}

// frame carries the accumulated DFS state down into each recursive
// call: the placement transform, the inherited color, and the running
// sign of BFC winding inversion.
type frame struct {
	transform ldraw.Matrix4
	color     int
	invert    bool
}

// Flatten walks root and every part it transitively references,
// producing the four geometry buffers plus bounding information. The
// defaultColor is used to resolve any color-16 reference at the root
// (a root part referencing "inherit" has nothing above it to inherit
// from).
func (g *GeometryFlattener) Flatten(root *ldraw.Part, defaultColor int) *Geometry {
	geo := &Geometry{}
	minB := [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	maxB := [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}

	var sum [3]float64
	var count int
	var viewBox float32

	var touch = func(p [3]float32) {
		for i := 0; i < 3; i++ {
			if p[i] < minB[i] {
				minB[i] = p[i]
			}
			if p[i] > maxB[i] {
				maxB[i] = p[i]
			}
			if m := float32(math.Abs(float64(p[i]))); m > viewBox {
				viewBox = m
			}
		}
		sum[0] += float64(p[0])
		sum[1] += float64(p[1])
		sum[2] += float64(p[2])
		count++
	}

	g.walk(root, frame{transform: ldraw.Identity4(), color: defaultColor, invert: false}, geo, touch)

	geo.Bounds = BoundingBox{Min: minB, Max: maxB}
	geo.ViewBox = viewBox
	if count > 0 {
		geo.Center = [3]float32{
			float32(sum[0] / float64(count)),
			float32(sum[1] / float64(count)),
			float32(sum[2] / float64(count)),
		}
	}
	return geo
}

func (g *GeometryFlattener) walk(part *ldraw.Part, f frame, geo *Geometry, touch func([3]float32)) {
	if g.studNames[part.Name] {
		geo.Studs = append(geo.Studs, InstanceData{
			Transform: [16]float32(f.transform),
			Color:     g.resolveColor(f.color, f.color).asFloat4(),
		})
		return
	}

	for _, line := range part.Lines {
		color := g.resolveColor(line.Color, f.color)
		v1 := remap(f.transform.Apply(line.P1.X, line.P1.Y, line.P1.Z))
		v2 := remap(f.transform.Apply(line.P2.X, line.P2.Y, line.P2.Z))
		geo.Lines = append(geo.Lines,
			LineVertex{Position: v1, Color: color.asFloat4()},
			LineVertex{Position: v2, Color: color.asFloat4()},
		)
		touch(v1)
		touch(v2)
	}

	for _, opt := range part.Optional {
		color := g.resolveColor(opt.Color, f.color)
		p1 := remap(f.transform.Apply(opt.P1.X, opt.P1.Y, opt.P1.Z))
		p2 := remap(f.transform.Apply(opt.P2.X, opt.P2.Y, opt.P2.Z))
		c1 := remap(f.transform.Apply(opt.Control1.X, opt.Control1.Y, opt.Control1.Z))
		c2 := remap(f.transform.Apply(opt.Control2.X, opt.Control2.Y, opt.Control2.Z))
		cf := color.asFloat4()
		geo.OptionalLines = append(geo.OptionalLines,
			OptionalLineVertex{Position: p1, OtherPosition: p2, Control1: c1, Control2: c2, Color: cf},
			OptionalLineVertex{Position: p2, OtherPosition: p1, Control1: c1, Control2: c2, Color: cf},
		)
		touch(p1)
		touch(p2)
	}

	for _, tri := range part.Triangles {
		color := g.resolveColor(tri.Color, f.color)
		p1 := applyPoint(f.transform, tri.P1)
		p2 := applyPoint(f.transform, tri.P2)
		p3 := applyPoint(f.transform, tri.P3)

		if f.invert {
			p2, p3 = p3, p2
		}

		normal := triangleNormal(p1, p2, p3)
		cf := color.asFloat4()

		v1 := TriangleVertex{Position: remapPoint(p1), Normal: normal, Color: cf}
		v2 := TriangleVertex{Position: remapPoint(p2), Normal: normal, Color: cf}
		v3 := TriangleVertex{Position: remapPoint(p3), Normal: normal, Color: cf}

		if color.transparent {
			geo.TransparentTriangles = append(geo.TransparentTriangles, v1, v2, v3)
		} else {
			geo.OpaqueTriangles = append(geo.OpaqueTriangles, v1, v2, v3)
		}

		touch(v1.Position)
		touch(v2.Position)
		touch(v3.Position)
	}

	for _, ref := range part.Children {
		childColor := ref.Color
		if childColor == ldraw.ColorInherit {
			childColor = f.color
		}
		// BFC invert-next flips winding only for this one child; the
		// running sign is the XOR of the ancestor's accumulated sign,
		// this child's own INVERTNEXT flag, and the sign of this
		// child's transform determinant (a mirrored placement flips
		// winding on its own, independent of any INVERTNEXT meta).
		childTransform := f.transform.Mul(ref.Transform)
		mirrored := ref.Transform.Determinant3() < 0
		childInvert := f.invert != ref.InvertNext != mirrored

		g.walk(ref.Part, frame{transform: childTransform, color: childColor, invert: childInvert}, geo, touch)
	}
}

// resolvedColor is the renderer-ready color for one vertex.
type resolvedColor struct {
	rgba        [4]float32
	transparent bool
}

func (c resolvedColor) asFloat4() [4]float32 { return c.rgba }

// resolveColor resolves an LDraw color code against the flattener's
// color table: code 16 inherits the surrounding context's color, code
// 24 is the context color's edge color, and any other code is looked
// up directly. An unknown code falls back to opaque black rather than
// failing the whole flatten pass, since a missing color definition
// should degrade gracefully, not abort rendering.
func (g *GeometryFlattener) resolveColor(code, context int) resolvedColor {
	resolved := code
	if code == ldraw.ColorInherit {
		resolved = context
	}

	if code == ldraw.ColorEdge {
		if base, ok := g.colors.Lookup(context); ok {
			return resolvedColor{rgba: toFloat4(base.Edge), transparent: false}
		}
		return resolvedColor{rgba: [4]float32{0, 0, 0, 1}}
	}

	if base, ok := g.colors.Lookup(resolved); ok {
		return resolvedColor{rgba: toFloat4(base.Value), transparent: base.Transparent}
	}
	return resolvedColor{rgba: [4]float32{0, 0, 0, 1}}
}

func toFloat4(c ldraw.RGBA) [4]float32 {
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

// remap converts LDraw-space (x,y,z) to render-space (x,z,y), the
// coordinate convention the GPU renderer and depth-sort both expect.
func remap(x, y, z float64) [3]float32 {
	return [3]float32{float32(x), float32(z), float32(y)}
}

// applyPoint transforms an ldraw.Point3 by m, keeping the result in
// LDraw space (pre-remap) so triangleNormal can be computed before the
// coordinate swap.
func applyPoint(m ldraw.Matrix4, p ldraw.Point3) [3]float64 {
	x, y, z := m.Apply(p.X, p.Y, p.Z)
	return [3]float64{x, y, z}
}

func remapPoint(p [3]float64) [3]float32 { return remap(p[0], p[1], p[2]) }

func triangleNormal(p1, p2, p3 [3]float64) [3]float32 {
	ux, uy, uz := p2[0]-p1[0], p2[1]-p1[1], p2[2]-p1[2]
	vx, vy, vz := p3[0]-p1[0], p3[1]-p1[1], p3[2]-p1[2]

	nx := uy*vz - uz*vy
	ny := uz*vx - ux*vz
	nz := ux*vy - uy*vx

	length := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if length < 1e-12 {
		return [3]float32{0, 0, 0}
	}
	return remap(nx/length, ny/length, nz/length)
}
