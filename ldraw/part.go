package ldraw

// Part is a resolved node in the part DAG: the geometry commands of one
// LdrawFile, plus its resolved sub-file references as child Parts. Two
// SubFileReference values referencing the same file name share the same
// *Part pointer — the DAG is built by PartAssembler interning parts by
// name, so a part referenced a thousand times (a single stud, say) is
// parsed and assembled exactly once.
type Part struct {
	Name     string
	Lines    []LineCommand
	Triangles []TriangleCommand
	Optional []OptionalLineCommand
	Children []SubFileReference
}

// SubFileReference is one edge of the part DAG: a placement of a child
// Part within its parent, carrying the local transform, color code,
// and BFC invert-next flag from the originating SubFileCommand.
type SubFileReference struct {
	Part       *Part
	Transform  Matrix4
	Color      int
	InvertNext bool
}
