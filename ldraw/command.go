package ldraw

// ColorInherit is the LDraw color code meaning "use the color of the
// file that references this sub-part or primitive."
const ColorInherit = 16

// ColorEdge is the LDraw color code meaning "use the current edge
// color," resolved by the renderer rather than looked up in the color
// table directly.
const ColorEdge = 24

// Point3 is a raw LDraw-space (x,y,z) coordinate, prior to the
// coordinate-system remap GeometryFlattener applies.
type Point3 struct {
	X, Y, Z float64
}

// Command is one parsed LDraw source line. Concrete types are
// CommentCommand, SubFileCommand, LineCommand, TriangleCommand, and
// OptionalLineCommand. Quad lines (type 4) are decomposed into two
// TriangleCommand values at parse time and never appear as a distinct
// command type.
type Command interface {
	commandLineType() int
}

// BFCDirective distinguishes the BFC meta-commands this parser
// recognizes. Other "0 BFC ..." variants (NOCERTIFY, CLIP, NOCLIP) are
// accepted syntactically but do not affect winding and are not given
// their own directive constant.
type BFCDirective int

const (
	BFCNone BFCDirective = iota
	BFCCertifyCCW
	BFCCertifyCW
	BFCInvertNext
)

// CommentCommand is a type-0 line: a comment, or a recognized meta
// command (currently only BFC directives are interpreted).
type CommentCommand struct {
	Text      string
	Directive BFCDirective
}

func (CommentCommand) commandLineType() int { return 0 }

// SubFileCommand is a type-1 line: a reference to another LDraw file,
// carrying its own placement transform and color code.
type SubFileCommand struct {
	Color      int
	Transform  Matrix4
	File       string
	InvertNext bool // true if immediately preceded by "0 BFC INVERTNEXT"
}

func (SubFileCommand) commandLineType() int { return 1 }

// LineCommand is a type-2 line: a hard (always visible) edge.
type LineCommand struct {
	Color  int
	P1, P2 Point3
}

func (LineCommand) commandLineType() int { return 2 }

// TriangleCommand is a type-3 line, or one half of a decomposed type-4
// quad line.
type TriangleCommand struct {
	Color      int
	P1, P2, P3 Point3
}

func (TriangleCommand) commandLineType() int { return 3 }

// OptionalLineCommand is a type-5 line: an edge that is only visible
// when the two control points fall on opposite sides of the plane
// containing P1-P2 and the view direction (the "straddle" test the GPU
// renderer performs per-vertex; see render/wgpu).
type OptionalLineCommand struct {
	Color          int
	P1, P2         Point3
	Control1, Control2 Point3
}

func (OptionalLineCommand) commandLineType() int { return 5 }
