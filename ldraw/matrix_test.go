package ldraw

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIdentity4Apply(t *testing.T) {
	m := Identity4()
	x, y, z := m.Apply(1, 2, 3)
	if !almostEqual(x, 1) || !almostEqual(y, 2) || !almostEqual(z, 3) {
		t.Fatalf("identity apply: got (%v,%v,%v)", x, y, z)
	}
}

func TestTranslation4(t *testing.T) {
	m := Translation4(10, 20, 30)
	x, y, z := m.Apply(1, 1, 1)
	if !almostEqual(x, 11) || !almostEqual(y, 21) || !almostEqual(z, 31) {
		t.Fatalf("translate apply: got (%v,%v,%v)", x, y, z)
	}
}

func TestMatrix4MulOrder(t *testing.T) {
	translate := Translation4(5, 0, 0)
	scale := Matrix4{
		2, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 2, 0,
		0, 0, 0, 1,
	}

	// translate.Mul(scale) applies scale first, then translate.
	composed := translate.Mul(scale)
	x, _, _ := composed.Apply(1, 0, 0)
	if !almostEqual(x, 7) { // (1*2) + 5
		t.Fatalf("composed apply: got x=%v, want 7", x)
	}
}

func TestDeterminant3Sign(t *testing.T) {
	if d := Identity4().Determinant3(); d <= 0 {
		t.Fatalf("identity determinant should be positive, got %v", d)
	}

	mirror := Matrix4{
		-1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	if d := mirror.Determinant3(); d >= 0 {
		t.Fatalf("mirrored matrix determinant should be negative, got %v", d)
	}
}

func TestQuaternionIdentityMatrix(t *testing.T) {
	q := IdentityQuaternion()
	m := q.Matrix4()
	want := Identity4()
	for i := range m {
		if !almostEqual(float64(m[i]), float64(want[i])) {
			t.Fatalf("identity quaternion matrix mismatch at %d: got %v want %v", i, m[i], want[i])
		}
	}
}

func TestQuaternionFromEulerNormalized(t *testing.T) {
	q := FromEuler(math.Pi/4, math.Pi/6, math.Pi/3).Normalize()
	n := q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W
	if !almostEqual(n, 1) {
		t.Fatalf("quaternion not unit length: %v", n)
	}
}
