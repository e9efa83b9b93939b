package ldraw

import (
	"strings"
	"testing"
)

func TestParseFileTriangleAndLine(t *testing.T) {
	src := strings.NewReader(strings.Join([]string{
		"0 Simple test part",
		"1 16 0 0 0 1 0 0 0 1 0 0 0 1 sub.dat",
		"2 24 0 0 0 1 1 1",
		"3 16 0 0 0 1 0 0 0 1 0",
	}, "\n"))

	f, err := ParseFile("test.dat", src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Commands) != 4 {
		t.Fatalf("expected 4 commands, got %d", len(f.Commands))
	}

	sub, ok := f.Commands[1].(SubFileCommand)
	if !ok {
		t.Fatalf("command 1: expected SubFileCommand, got %T", f.Commands[1])
	}
	if sub.File != "sub.dat" || sub.Color != 16 {
		t.Fatalf("unexpected sub-file command: %+v", sub)
	}

	line, ok := f.Commands[2].(LineCommand)
	if !ok {
		t.Fatalf("command 2: expected LineCommand, got %T", f.Commands[2])
	}
	if line.Color != 24 {
		t.Fatalf("expected edge color 24, got %d", line.Color)
	}

	tri, ok := f.Commands[3].(TriangleCommand)
	if !ok {
		t.Fatalf("command 3: expected TriangleCommand, got %T", f.Commands[3])
	}
	if tri.Color != 16 {
		t.Fatalf("expected color 16, got %d", tri.Color)
	}
}

func TestParseFileQuadDecomposesToTwoTriangles(t *testing.T) {
	src := strings.NewReader("4 1 0 0 0 1 0 0 1 1 0 0 1 0")

	f, err := ParseFile("quad.dat", src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(f.Commands) != 2 {
		t.Fatalf("expected quad to decompose into 2 commands, got %d", len(f.Commands))
	}
	t1, ok1 := f.Commands[0].(TriangleCommand)
	t2, ok2 := f.Commands[1].(TriangleCommand)
	if !ok1 || !ok2 {
		t.Fatalf("expected two TriangleCommands, got %T, %T", f.Commands[0], f.Commands[1])
	}
	if t1.P1 != t2.P1 {
		t.Fatalf("decomposed triangles should share the quad's first vertex")
	}
}

func TestParseFileBFCInvertNextAppliesToNextSubFileOnly(t *testing.T) {
	src := strings.NewReader(strings.Join([]string{
		"0 BFC INVERTNEXT",
		"1 16 0 0 0 1 0 0 0 1 0 0 0 1 a.dat",
		"1 16 0 0 0 1 0 0 0 1 0 0 0 1 b.dat",
	}, "\n"))

	f, err := ParseFile("test.dat", src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	first := f.Commands[1].(SubFileCommand)
	second := f.Commands[2].(SubFileCommand)
	if !first.InvertNext {
		t.Fatalf("expected first sub-file reference to be marked InvertNext")
	}
	if second.InvertNext {
		t.Fatalf("INVERTNEXT must not propagate past the next type-1 line")
	}
}

func TestParseFileOptionalLine(t *testing.T) {
	src := strings.NewReader("5 24 0 0 0 1 0 0 0 1 0 1 1 0")

	f, err := ParseFile("opt.dat", src)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	opt, ok := f.Commands[0].(OptionalLineCommand)
	if !ok {
		t.Fatalf("expected OptionalLineCommand, got %T", f.Commands[0])
	}
	if opt.Color != 24 {
		t.Fatalf("expected edge color, got %d", opt.Color)
	}
}

func TestParseFileIgnoresUnrecognizedLineType(t *testing.T) {
	src := strings.NewReader("9 garbage line\n3 16 0 0 0 1 0 0 0 1 0")
	f, err := ParseFile("forward-compat.dat", src)
	if err != nil {
		t.Fatalf("expected unknown line type to be silently skipped, got error: %v", err)
	}
	if len(f.Commands) != 1 {
		t.Fatalf("expected only the trailing triangle command to survive, got %d commands", len(f.Commands))
	}
	if _, ok := f.Commands[0].(TriangleCommand); !ok {
		t.Fatalf("expected a TriangleCommand, got %T", f.Commands[0])
	}
}

func TestParseFileRejectsTruncatedTriangle(t *testing.T) {
	src := strings.NewReader("3 16 0 0 0")
	if _, err := ParseFile("bad.dat", src); err == nil {
		t.Fatal("expected an error for a truncated triangle line")
	}
}
