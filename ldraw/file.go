package ldraw

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// LdrawFile is the parsed, unresolved contents of a single LDraw source
// file: an ordered list of commands, in source order. Resolving
// SubFileCommand references into a Part DAG is PartAssembler's job, not
// this package's.
type LdrawFile struct {
	Name     string
	Commands []Command
}

// ParseFile parses the contents of an LDraw source file read from r.
// The name is used only for error messages and is not looked up or
// validated against a filesystem.
func ParseFile(name string, r io.Reader) (*LdrawFile, error) {
	f := &LdrawFile{Name: name}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	pendingInvertNext := false

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		lineType, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, newParseError(name, lineNo, line, fmt.Errorf("invalid line type %q", fields[0]))
		}

		switch lineType {
		case 0:
			cmd := parseComment(fields[1:], line)
			if cmd.Directive == BFCInvertNext {
				pendingInvertNext = true
			}
			f.Commands = append(f.Commands, cmd)

		case 1:
			cmd, err := parseSubFile(fields[1:])
			if err != nil {
				return nil, newParseError(name, lineNo, line, err)
			}
			cmd.InvertNext = pendingInvertNext
			pendingInvertNext = false
			f.Commands = append(f.Commands, cmd)

		case 2:
			cmd, err := parseLine(fields[1:])
			if err != nil {
				return nil, newParseError(name, lineNo, line, err)
			}
			f.Commands = append(f.Commands, cmd)
			pendingInvertNext = false

		case 3:
			cmd, err := parseTriangle(fields[1:])
			if err != nil {
				return nil, newParseError(name, lineNo, line, err)
			}
			f.Commands = append(f.Commands, cmd)
			pendingInvertNext = false

		case 4:
			t1, t2, err := parseQuad(fields[1:])
			if err != nil {
				return nil, newParseError(name, lineNo, line, err)
			}
			f.Commands = append(f.Commands, t1, t2)
			pendingInvertNext = false

		case 5:
			cmd, err := parseOptionalLine(fields[1:])
			if err != nil {
				return nil, newParseError(name, lineNo, line, err)
			}
			f.Commands = append(f.Commands, cmd)
			pendingInvertNext = false

		default:
			// Unknown line types are skipped rather than rejected, so a
			// newer LDraw extension a future file might use doesn't break
			// parsing of everything that comes after it.
			pendingInvertNext = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, newParseError(name, lineNo, "", err)
	}

	return f, nil
}

func parseComment(fields []string, raw string) CommentCommand {
	cmd := CommentCommand{Text: raw}
	if len(fields) >= 2 && fields[0] == "BFC" {
		switch fields[1] {
		case "INVERTNEXT":
			cmd.Directive = BFCInvertNext
		case "CERTIFY":
			if len(fields) >= 3 && fields[2] == "CW" {
				cmd.Directive = BFCCertifyCW
			} else {
				cmd.Directive = BFCCertifyCCW
			}
		case "CW":
			cmd.Directive = BFCCertifyCW
		case "CCW":
			cmd.Directive = BFCCertifyCCW
		}
	}
	return cmd
}

func parseFloats(fields []string, n int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d numeric fields, got %d", n, len(fields))
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseSubFile(fields []string) (SubFileCommand, error) {
	if len(fields) < 14 {
		return SubFileCommand{}, fmt.Errorf("type-1 line needs 14 fields, got %d", len(fields))
	}
	color, err := strconv.Atoi(fields[0])
	if err != nil {
		return SubFileCommand{}, fmt.Errorf("color: %w", err)
	}
	nums, err := parseFloats(fields[1:13], 12)
	if err != nil {
		return SubFileCommand{}, err
	}
	file := strings.Join(fields[13:], " ")

	x, y, z := nums[0], nums[1], nums[2]
	a, b, c := nums[3], nums[4], nums[5]
	d, e, f := nums[6], nums[7], nums[8]
	g, h, i := nums[9], nums[10], nums[11]

	return SubFileCommand{
		Color:     color,
		Transform: NewMatrix4(x, y, z, a, b, c, d, e, f, g, h, i),
		File:      file,
	}, nil
}

func parseLine(fields []string) (LineCommand, error) {
	if len(fields) < 7 {
		return LineCommand{}, fmt.Errorf("type-2 line needs 7 fields, got %d", len(fields))
	}
	color, err := strconv.Atoi(fields[0])
	if err != nil {
		return LineCommand{}, fmt.Errorf("color: %w", err)
	}
	nums, err := parseFloats(fields[1:7], 6)
	if err != nil {
		return LineCommand{}, err
	}
	return LineCommand{
		Color: color,
		P1:    Point3{nums[0], nums[1], nums[2]},
		P2:    Point3{nums[3], nums[4], nums[5]},
	}, nil
}

func parseTriangle(fields []string) (TriangleCommand, error) {
	if len(fields) < 10 {
		return TriangleCommand{}, fmt.Errorf("type-3 line needs 10 fields, got %d", len(fields))
	}
	color, err := strconv.Atoi(fields[0])
	if err != nil {
		return TriangleCommand{}, fmt.Errorf("color: %w", err)
	}
	nums, err := parseFloats(fields[1:10], 9)
	if err != nil {
		return TriangleCommand{}, err
	}
	return TriangleCommand{
		Color: color,
		P1:    Point3{nums[0], nums[1], nums[2]},
		P2:    Point3{nums[3], nums[4], nums[5]},
		P3:    Point3{nums[6], nums[7], nums[8]},
	}, nil
}

// parseQuad decomposes a type-4 quad (vertices in winding order
// P1,P2,P3,P4) into two triangles (P1,P2,P3) and (P1,P3,P4), preserving
// the quad's winding so BFC culling behaves identically to rendering it
// as a single quad.
func parseQuad(fields []string) (TriangleCommand, TriangleCommand, error) {
	if len(fields) < 13 {
		return TriangleCommand{}, TriangleCommand{}, fmt.Errorf("type-4 line needs 13 fields, got %d", len(fields))
	}
	color, err := strconv.Atoi(fields[0])
	if err != nil {
		return TriangleCommand{}, TriangleCommand{}, fmt.Errorf("color: %w", err)
	}
	nums, err := parseFloats(fields[1:13], 12)
	if err != nil {
		return TriangleCommand{}, TriangleCommand{}, err
	}
	p1 := Point3{nums[0], nums[1], nums[2]}
	p2 := Point3{nums[3], nums[4], nums[5]}
	p3 := Point3{nums[6], nums[7], nums[8]}
	p4 := Point3{nums[9], nums[10], nums[11]}

	return TriangleCommand{Color: color, P1: p1, P2: p2, P3: p3},
		TriangleCommand{Color: color, P1: p1, P2: p3, P3: p4},
		nil
}

func parseOptionalLine(fields []string) (OptionalLineCommand, error) {
	if len(fields) < 13 {
		return OptionalLineCommand{}, fmt.Errorf("type-5 line needs 13 fields, got %d", len(fields))
	}
	color, err := strconv.Atoi(fields[0])
	if err != nil {
		return OptionalLineCommand{}, fmt.Errorf("color: %w", err)
	}
	nums, err := parseFloats(fields[1:13], 12)
	if err != nil {
		return OptionalLineCommand{}, err
	}
	return OptionalLineCommand{
		Color:    color,
		P1:       Point3{nums[0], nums[1], nums[2]},
		P2:       Point3{nums[3], nums[4], nums[5]},
		Control1: Point3{nums[6], nums[7], nums[8]},
		Control2: Point3{nums[9], nums[10], nums[11]},
	}, nil
}
