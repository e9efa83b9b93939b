package ldraw

import (
	"strings"
	"testing"
)

func TestParseLDConfigBasic(t *testing.T) {
	src := strings.NewReader(strings.Join([]string{
		"0 LDraw.org Configuration File",
		"0 !COLOUR Black CODE 0 VALUE #05131D EDGE #595959",
		"0 !COLOUR Trans_Clear CODE 47 VALUE #FCFCFC EDGE #C3C3C3 ALPHA 128",
		"1 16 0 0 0 1 0 0 0 1 0 0 0 1 ignored.dat",
	}, "\n"))

	table, err := ParseLDConfig(src)
	if err != nil {
		t.Fatalf("ParseLDConfig: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 colors, got %d", table.Len())
	}

	black, ok := table.Lookup(0)
	if !ok {
		t.Fatal("expected color 0 to be present")
	}
	if black.Value != (RGBA{0x05, 0x13, 0x1D, 255}) {
		t.Fatalf("unexpected black value: %+v", black.Value)
	}
	if black.Edge != (RGBA{0x59, 0x59, 0x59, 255}) {
		t.Fatalf("unexpected black edge: %+v", black.Edge)
	}

	trans, ok := table.Lookup(47)
	if !ok {
		t.Fatal("expected color 47 to be present")
	}
	if !trans.Transparent {
		t.Fatal("expected Trans_Clear to be marked transparent")
	}
	if trans.Value.A != 128 {
		t.Fatalf("expected alpha 128, got %d", trans.Value.A)
	}
}

func TestParseLDConfigMissingCodeIsError(t *testing.T) {
	src := strings.NewReader("0 !COLOUR Bad VALUE #FFFFFF EDGE #000000")
	if _, err := ParseLDConfig(src); err == nil {
		t.Fatal("expected error for missing CODE")
	}
}

func TestParseLDConfigDefaultsEdgeToValue(t *testing.T) {
	src := strings.NewReader("0 !COLOUR Solo CODE 99 VALUE #112233")
	table, err := ParseLDConfig(src)
	if err != nil {
		t.Fatalf("ParseLDConfig: %v", err)
	}
	c, ok := table.Lookup(99)
	if !ok {
		t.Fatal("expected color 99")
	}
	if c.Edge != c.Value {
		t.Fatalf("expected edge to default to value, got edge=%+v value=%+v", c.Edge, c.Value)
	}
}
