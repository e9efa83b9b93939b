package ldraw

import "math"

// Matrix4 is a 4x4 column-major transformation matrix, stored as 16
// floats in column-major order: m[col*4+row]. This matches the layout
// GPU uniform buffers expect, so a Matrix4 can be copied directly into a
// uniform without reshaping.
type Matrix4 [16]float32

// Identity4 returns the identity matrix.
func Identity4() Matrix4 {
	return Matrix4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// NewMatrix4 builds a Matrix4 from an LDraw type-1 line's 3x3 rotation
// part (a,b,c / d,e,f / g,h,i) and translation (x,y,z), in LDraw's own
// row-major convention:
//
//	| a d g 0 |   column-major m = [a d g 0  b e h 0  c f i 0  x y z 1]
//	| b e h 0 |
//	| c f i 0 |
//	| x y z 1 |
func NewMatrix4(x, y, z, a, b, c, d, e, f, g, h, i float64) Matrix4 {
	return Matrix4{
		float32(a), float32(d), float32(g), 0,
		float32(b), float32(e), float32(h), 0,
		float32(c), float32(f), float32(i), 0,
		float32(x), float32(y), float32(z), 1,
	}
}

// Mul returns m*n (applies n first, then m), matching the convention
// that a point p transforms as m.Mul(n).Apply(p) == m.Apply(n.Apply(p)).
func (m Matrix4) Mul(n Matrix4) Matrix4 {
	var out Matrix4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += m[k*4+row] * n[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Apply transforms a point (x,y,z,1) by m.
func (m Matrix4) Apply(x, y, z float64) (float64, float64, float64) {
	fx, fy, fz := float32(x), float32(y), float32(z)
	ox := m[0]*fx + m[4]*fy + m[8]*fz + m[12]
	oy := m[1]*fx + m[5]*fy + m[9]*fz + m[13]
	oz := m[2]*fx + m[6]*fy + m[10]*fz + m[14]
	return float64(ox), float64(oy), float64(oz)
}

// ApplyVector transforms a direction (x,y,z,0) by m, ignoring translation.
// Used for normals and line directions.
func (m Matrix4) ApplyVector(x, y, z float64) (float64, float64, float64) {
	fx, fy, fz := float32(x), float32(y), float32(z)
	ox := m[0]*fx + m[4]*fy + m[8]*fz
	oy := m[1]*fx + m[5]*fy + m[9]*fz
	oz := m[2]*fx + m[6]*fy + m[10]*fz
	return float64(ox), float64(oy), float64(oz)
}

// Determinant3 returns the determinant of m's upper-left 3x3 rotation
// sub-matrix. Its sign determines whether a BFC INVERTNEXT flag should
// flip winding order when composed with an ancestor's accumulated
// determinant sign: a negative determinant means the transform mirrors
// the part, which also reverses triangle winding.
func (m Matrix4) Determinant3() float64 {
	a, b, c := float64(m[0]), float64(m[4]), float64(m[8])
	d, e, f := float64(m[1]), float64(m[5]), float64(m[9])
	g, h, i := float64(m[2]), float64(m[6]), float64(m[10])
	return a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
}

// Translation4 returns a pure translation matrix.
func Translation4(x, y, z float64) Matrix4 {
	m := Identity4()
	m[12], m[13], m[14] = float32(x), float32(y), float32(z)
	return m
}

// Quaternion is a unit quaternion used to compose orbit-camera rotations
// from Euler angles without accumulating gimbal-lock drift across many
// incremental updates.
type Quaternion struct {
	X, Y, Z, W float64
}

// IdentityQuaternion returns the identity rotation.
func IdentityQuaternion() Quaternion { return Quaternion{0, 0, 0, 1} }

// FromEuler builds a quaternion from intrinsic Z-Y-X Euler angles in
// radians: yaw about Z, then pitch about Y, then roll about X.
func FromEuler(yaw, pitch, roll float64) Quaternion {
	cy, sy := math.Cos(yaw*0.5), math.Sin(yaw*0.5)
	cp, sp := math.Cos(pitch*0.5), math.Sin(pitch*0.5)
	cr, sr := math.Cos(roll*0.5), math.Sin(roll*0.5)

	return Quaternion{
		W: cr*cp*cy + sr*sp*sy,
		X: sr*cp*cy - cr*sp*sy,
		Y: cr*sp*cy + sr*cp*sy,
		Z: cr*cp*sy - sr*sp*cy,
	}
}

// Mul composes q then r (r applied first).
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Normalize returns q scaled to unit length, or the identity quaternion
// if q is degenerate (zero length).
func (q Quaternion) Normalize() Quaternion {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n < 1e-12 {
		return IdentityQuaternion()
	}
	return Quaternion{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Matrix4 converts q to an equivalent 4x4 rotation matrix.
func (q Quaternion) Matrix4() Matrix4 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	x2, y2, z2 := x+x, y+y, z+z
	xx, xy, xz := x*x2, x*y2, x*z2
	yy, yz, zz := y*y2, y*z2, z*z2
	wx, wy, wz := w*x2, w*y2, w*z2

	return Matrix4{
		float32(1 - (yy + zz)), float32(xy + wz), float32(xz - wy), 0,
		float32(xy - wz), float32(1 - (xx + zz)), float32(yz + wx), 0,
		float32(xz + wy), float32(yz - wx), float32(1 - (xx + yy)), 0,
		0, 0, 0, 1,
	}
}

// Orthographic returns a right-handed orthographic projection matrix
// mapping [left,right]x[bottom,top]x[near,far] to reverse-Z clip space,
// where near maps to depth 1.0 and far maps to depth 0.0. Reverse-Z is
// used throughout the renderer to improve depth precision for the
// typically-small, typically-distant LDraw scenes (see render/wgpu).
func Orthographic(left, right, bottom, top, near, far float64) Matrix4 {
	rl := right - left
	tb := top - bottom
	fn := far - near

	var m Matrix4
	m[0] = float32(2 / rl)
	m[5] = float32(2 / tb)
	m[10] = float32(1 / fn) // far->0, near->1 after translation below
	m[12] = float32(-(right + left) / rl)
	m[13] = float32(-(top + bottom) / tb)
	m[14] = float32(far / fn)
	m[15] = 1
	return m
}
