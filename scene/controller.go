// Package scene holds the camera-facing state an embedding application
// mutates in response to pointer orbit and slider-scale input, and
// composes it into the rotation-and-scale matrix the renderer consumes
// each frame.
package scene

import (
	"math"

	"github.com/ldraw-go/brickviewer/ldraw"
)

// Transformation is 3's orbit-camera state: a default orientation and
// scale established at load time, plus the pitch/yaw/scale accumulated
// from user input since the last Reset.
type Transformation struct {
	DefaultRotation ldraw.Quaternion
	DefaultScale    float32
	Pitch           float64 // radians
	Yaw             float64 // radians
	Scale           float32
}

// DefaultTransformation returns the identity transformation: no extra
// orbit, unit scale, no default rotation.
func DefaultTransformation() Transformation {
	return Transformation{
		DefaultRotation: ldraw.IdentityQuaternion(),
		DefaultScale:    1,
		Scale:           1,
	}
}

// scaling4 returns a uniform-scale matrix. ldraw/matrix.go has no scale
// constructor of its own since GeometryFlattener never needs one — every
// part transform it composes comes straight from parsed type-1 lines.
func scaling4(s float32) ldraw.Matrix4 {
	m := ldraw.Identity4()
	m[0], m[5], m[10] = s, s, s
	return m
}

// Matrix composes t's current orientation and scale into a single model
// matrix: fromQuaternion(fromEuler(pitch,yaw,0) * defaultRotation) *
// fromScaling(scale), per 3.
func (t Transformation) Matrix() ldraw.Matrix4 {
	orbit := ldraw.FromEuler(t.Yaw, t.Pitch, 0)
	rotation := orbit.Mul(t.DefaultRotation).Normalize()
	return rotation.Matrix4().Mul(scaling4(t.Scale))
}

// Reset restores pitch, yaw, and scale to their defaults, discarding
// accumulated orbit/scale input. DefaultRotation and DefaultScale
// themselves are untouched, since they describe the model's initial
// framing rather than user state.
func (t *Transformation) Reset() {
	t.Pitch = 0
	t.Yaw = 0
	t.Scale = t.DefaultScale
}

// minScale and maxScale bound Transformation.Scale so a runaway slider or
// scroll-wheel delta can never invert or degenerate the model matrix.
const (
	minScale float32 = 0.05
	maxScale float32 = 20
)

// maxPitch keeps the orbit camera from flipping over its own pole, the
// same clamp an LDraw viewer's mouse-drag orbit conventionally applies.
const maxPitch = math.Pi/2 - 0.01

// Controller owns the current Transformation and a callback to invoke
// whenever it changes, so an embedding application can wire orbit/scale
// input straight to a re-draw without polling.
//
// Controller is not safe for concurrent use: per 5, input handling and
// rendering both run on the foreground thread.
type Controller struct {
	transform Transformation
	onChange  func(Transformation)
}

// NewController creates a Controller seeded with initial (typically
// DefaultTransformation, or a framing computed from a loaded model's
// flatten.Geometry.Center/ViewBox). onChange may be nil.
func NewController(initial Transformation, onChange func(Transformation)) *Controller {
	return &Controller{transform: initial, onChange: onChange}
}

// Transform returns the current Transformation.
func (c *Controller) Transform() Transformation { return c.transform }

// Matrix returns the current Transformation's composed model matrix.
func (c *Controller) Matrix() ldraw.Matrix4 { return c.transform.Matrix() }

// Orbit adds deltaYaw and deltaPitch (radians) to the current orbit
// angles, clamping pitch to +/-maxPitch, and notifies onChange.
func (c *Controller) Orbit(deltaYaw, deltaPitch float64) {
	c.transform.Yaw += deltaYaw
	c.transform.Pitch = clampPitch(c.transform.Pitch + deltaPitch)
	c.notify()
}

// SetScale sets the absolute scale factor, clamped to [minScale,
// maxScale], and notifies onChange.
func (c *Controller) SetScale(scale float32) {
	c.transform.Scale = clampScale(scale)
	c.notify()
}

// ScaleBy multiplies the current scale by factor, clamped to [minScale,
// maxScale], and notifies onChange. Intended for a scroll-wheel or
// pinch-gesture delta rather than an absolute slider value.
func (c *Controller) ScaleBy(factor float32) {
	c.SetScale(c.transform.Scale * factor)
}

// Reset restores pitch, yaw, and scale to their defaults and notifies
// onChange.
func (c *Controller) Reset() {
	c.transform.Reset()
	c.notify()
}

// SetDefaults replaces DefaultRotation and DefaultScale, e.g. once a
// newly loaded model's bounding geometry determines an initial framing.
// Does not itself change the current pitch/yaw/scale; call Reset
// afterward to snap to the new defaults immediately.
func (c *Controller) SetDefaults(rotation ldraw.Quaternion, scale float32) {
	c.transform.DefaultRotation = rotation
	c.transform.DefaultScale = scale
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.transform)
	}
}

func clampPitch(p float64) float64 {
	if p > maxPitch {
		return maxPitch
	}
	if p < -maxPitch {
		return -maxPitch
	}
	return p
}

func clampScale(s float32) float32 {
	if s < minScale {
		return minScale
	}
	if s > maxScale {
		return maxScale
	}
	return s
}
