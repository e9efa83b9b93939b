package ldraw

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// RGBA is an 8-bit-per-channel color, alpha 255 meaning fully opaque.
type RGBA struct {
	R, G, B, A uint8
}

// Color is one entry of an LDConfig.ldr color definition: a named,
// numbered color with a fill color, an edge color, and optional alpha
// for transparent colors (e.g. "Trans_Clear").
type Color struct {
	Code      int
	Name      string
	Value     RGBA
	Edge      RGBA
	Luminance int
	Transparent bool
}

// ColorTable maps LDraw color codes to their Color definition. The zero
// value is an empty table; use ParseLDConfig to populate one from an
// LDConfig.ldr stream.
type ColorTable struct {
	byCode map[int]Color
}

// NewColorTable returns an empty color table.
func NewColorTable() *ColorTable {
	return &ColorTable{byCode: make(map[int]Color)}
}

// Lookup returns the color for code, and whether it was found. The
// table stores whatever codes it is given, 16 (inherit) and 24 (edge)
// included; GeometryFlattener resolves 16 and 24 against the
// surrounding context before calling Lookup.
func (t *ColorTable) Lookup(code int) (Color, bool) {
	c, ok := t.byCode[code]
	return c, ok
}

// Put registers or replaces a color definition.
func (t *ColorTable) Put(c Color) {
	t.byCode[c.Code] = c
}

// Len returns the number of registered colors.
func (t *ColorTable) Len() int { return len(t.byCode) }

// ParseLDConfig parses an LDConfig.ldr color-definition stream. Each
// relevant line has the form:
//
//	0 !COLOUR <name> CODE <code> VALUE #<hex> EDGE #<hex> [ALPHA <n>] [LUMINANCE <n>]
//
// Lines that are not "0 !COLOUR" directives are ignored.
func ParseLDConfig(r io.Reader) (*ColorTable, error) {
	table := NewColorTable()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "0" || fields[1] != "!COLOUR" {
			continue
		}
		c, err := parseColourLine(fields[2:])
		if err != nil {
			return nil, newParseError("LDConfig.ldr", lineNo, line, err)
		}
		table.Put(c)
	}
	if err := scanner.Err(); err != nil {
		return nil, newParseError("LDConfig.ldr", lineNo, "", err)
	}
	return table, nil
}

func parseColourLine(fields []string) (Color, error) {
	if len(fields) == 0 {
		return Color{}, fmt.Errorf("!COLOUR missing name")
	}
	c := Color{Name: fields[0]}
	haveCode, haveValue, haveEdge := false, false, false

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "CODE":
			if i+1 >= len(fields) {
				return Color{}, fmt.Errorf("CODE missing value")
			}
			code, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return Color{}, fmt.Errorf("CODE: %w", err)
			}
			c.Code = code
			haveCode = true
			i++
		case "VALUE":
			if i+1 >= len(fields) {
				return Color{}, fmt.Errorf("VALUE missing hex")
			}
			rgb, err := parseHexColor(fields[i+1])
			if err != nil {
				return Color{}, fmt.Errorf("VALUE: %w", err)
			}
			c.Value = rgb
			haveValue = true
			i++
		case "EDGE":
			if i+1 >= len(fields) {
				return Color{}, fmt.Errorf("EDGE missing hex")
			}
			rgb, err := parseHexColor(fields[i+1])
			if err != nil {
				return Color{}, fmt.Errorf("EDGE: %w", err)
			}
			c.Edge = rgb
			haveEdge = true
			i++
		case "ALPHA":
			if i+1 >= len(fields) {
				return Color{}, fmt.Errorf("ALPHA missing value")
			}
			a, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return Color{}, fmt.Errorf("ALPHA: %w", err)
			}
			c.Value.A = uint8(a)
			c.Transparent = a < 255
			i++
		case "LUMINANCE":
			if i+1 >= len(fields) {
				return Color{}, fmt.Errorf("LUMINANCE missing value")
			}
			lum, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return Color{}, fmt.Errorf("LUMINANCE: %w", err)
			}
			c.Luminance = lum
			i++
		}
	}

	if !haveCode {
		return Color{}, fmt.Errorf("!COLOUR %s missing CODE", c.Name)
	}
	if !haveValue {
		return Color{}, fmt.Errorf("!COLOUR %s missing VALUE", c.Name)
	}
	if !haveEdge {
		c.Edge = c.Value
	}
	if c.Value.A == 0 {
		c.Value.A = 255
	}
	return c, nil
}

func parseHexColor(s string) (RGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return RGBA{}, fmt.Errorf("expected 6 hex digits, got %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return RGBA{}, err
	}
	return RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}, nil
}
