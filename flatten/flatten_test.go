package flatten

import (
	"testing"

	"github.com/ldraw-go/brickviewer/ldraw"
)

func colorsForTest() *ldraw.ColorTable {
	t := ldraw.NewColorTable()
	t.Put(ldraw.Color{Code: 16, Value: ldraw.RGBA{200, 200, 200, 255}})
	t.Put(ldraw.Color{Code: 4, Value: ldraw.RGBA{255, 0, 0, 255}, Edge: ldraw.RGBA{0, 0, 0, 255}})
	t.Put(ldraw.Color{Code: 47, Value: ldraw.RGBA{255, 255, 255, 128}, Transparent: true})
	return t
}

func TestFlattenSingleTriangleCoordinateRemap(t *testing.T) {
	part := &ldraw.Part{
		Name: "root.dat",
		Triangles: []ldraw.TriangleCommand{
			{Color: 4, P1: ldraw.Point3{X: 0, Y: 0, Z: 0}, P2: ldraw.Point3{X: 1, Y: 0, Z: 0}, P3: ldraw.Point3{X: 0, Y: 2, Z: 3}},
		},
	}

	flattener := NewGeometryFlattener(Config{Colors: colorsForTest()})
	geo := flattener.Flatten(part, 16)

	if len(geo.OpaqueTriangles) != 3 {
		t.Fatalf("expected 3 opaque vertices, got %d", len(geo.OpaqueTriangles))
	}
	got := geo.OpaqueTriangles[2].Position
	want := [3]float32{0, 3, 2} // (x,y,z)=(0,2,3) -> (x,z,y)=(0,3,2)
	if got != want {
		t.Fatalf("coordinate remap: got %v want %v", got, want)
	}
}

func TestFlattenTransparentColorRoutedSeparately(t *testing.T) {
	part := &ldraw.Part{
		Name: "root.dat",
		Triangles: []ldraw.TriangleCommand{
			{Color: 47, P1: ldraw.Point3{}, P2: ldraw.Point3{X: 1}, P3: ldraw.Point3{Y: 1}},
		},
	}
	flattener := NewGeometryFlattener(Config{Colors: colorsForTest()})
	geo := flattener.Flatten(part, 16)

	if len(geo.OpaqueTriangles) != 0 {
		t.Fatalf("expected 0 opaque vertices, got %d", len(geo.OpaqueTriangles))
	}
	if len(geo.TransparentTriangles) != 3 {
		t.Fatalf("expected 3 transparent vertices, got %d", len(geo.TransparentTriangles))
	}
}

func TestFlattenInheritedColorResolvesFromParentContext(t *testing.T) {
	child := &ldraw.Part{
		Name: "child.dat",
		Triangles: []ldraw.TriangleCommand{
			{Color: ldraw.ColorInherit, P1: ldraw.Point3{}, P2: ldraw.Point3{X: 1}, P3: ldraw.Point3{Y: 1}},
		},
	}
	root := &ldraw.Part{
		Name: "root.dat",
		Children: []ldraw.SubFileReference{
			{Part: child, Transform: ldraw.Identity4(), Color: 4},
		},
	}

	flattener := NewGeometryFlattener(Config{Colors: colorsForTest()})
	geo := flattener.Flatten(root, 16)

	if len(geo.OpaqueTriangles) != 3 {
		t.Fatalf("expected 3 vertices, got %d", len(geo.OpaqueTriangles))
	}
	want := toFloat4(ldraw.RGBA{255, 0, 0, 255})
	if geo.OpaqueTriangles[0].Color != want {
		t.Fatalf("inherited color mismatch: got %v want %v", geo.OpaqueTriangles[0].Color, want)
	}
}

func TestFlattenEdgeColorUsesContextEdge(t *testing.T) {
	part := &ldraw.Part{
		Name: "root.dat",
		Lines: []ldraw.LineCommand{
			{Color: ldraw.ColorEdge, P1: ldraw.Point3{}, P2: ldraw.Point3{X: 1}},
		},
	}
	flattener := NewGeometryFlattener(Config{Colors: colorsForTest()})
	geo := flattener.Flatten(part, 4)

	want := toFloat4(ldraw.RGBA{0, 0, 0, 255})
	if geo.Lines[0].Color != want {
		t.Fatalf("edge color mismatch: got %v want %v", geo.Lines[0].Color, want)
	}
}

func TestFlattenViewBoxIsMaxCoordinateMagnitude(t *testing.T) {
	part := &ldraw.Part{
		Name: "root.dat",
		Triangles: []ldraw.TriangleCommand{
			{Color: 4, P1: ldraw.Point3{X: 0, Y: 0, Z: 0}, P2: ldraw.Point3{X: -5, Y: 0, Z: 0}, P3: ldraw.Point3{X: 0, Y: 2, Z: 3}},
		},
	}

	flattener := NewGeometryFlattener(Config{Colors: colorsForTest()})
	geo := flattener.Flatten(part, 16)

	if geo.ViewBox != 5 {
		t.Fatalf("expected view box radius 5 (largest magnitude coordinate), got %v", geo.ViewBox)
	}
}

func TestFlattenStudsBecomeInstances(t *testing.T) {
	stud := &ldraw.Part{Name: "stud.dat", Triangles: []ldraw.TriangleCommand{
		{Color: 16, P1: ldraw.Point3{}, P2: ldraw.Point3{X: 1}, P3: ldraw.Point3{Y: 1}},
	}}
	root := &ldraw.Part{
		Name: "root.dat",
		Children: []ldraw.SubFileReference{
			{Part: stud, Transform: ldraw.Translation4(1, 2, 3), Color: 4},
		},
	}

	flattener := NewGeometryFlattener(Config{Colors: colorsForTest()})
	geo := flattener.Flatten(root, 16)

	if len(geo.OpaqueTriangles) != 0 {
		t.Fatalf("expected stud geometry to be instanced, not flattened, got %d triangle vertices", len(geo.OpaqueTriangles))
	}
	if len(geo.Studs) != 1 {
		t.Fatalf("expected 1 stud instance, got %d", len(geo.Studs))
	}
}

func TestFlattenInvertNextFlipsWinding(t *testing.T) {
	child := &ldraw.Part{
		Name: "child.dat",
		Triangles: []ldraw.TriangleCommand{
			{Color: 4, P1: ldraw.Point3{X: 0}, P2: ldraw.Point3{X: 1}, P3: ldraw.Point3{Y: 1}},
		},
	}
	withInvert := &ldraw.Part{
		Name: "root.dat",
		Children: []ldraw.SubFileReference{
			{Part: child, Transform: ldraw.Identity4(), Color: 4, InvertNext: true},
		},
	}
	withoutInvert := &ldraw.Part{
		Name: "root.dat",
		Children: []ldraw.SubFileReference{
			{Part: child, Transform: ldraw.Identity4(), Color: 4},
		},
	}

	flattener := NewGeometryFlattener(Config{Colors: colorsForTest()})
	inverted := flattener.Flatten(withInvert, 16)
	normal := flattener.Flatten(withoutInvert, 16)

	if inverted.OpaqueTriangles[1].Position != normal.OpaqueTriangles[2].Position {
		t.Fatalf("expected INVERTNEXT to swap vertex 2 and 3 of the triangle")
	}
}
