package scene

import (
	"math"
	"testing"

	"github.com/ldraw-go/brickviewer/ldraw"
)

func TestTransformationMatrixIdentity(t *testing.T) {
	tr := DefaultTransformation()
	got := tr.Matrix()
	want := ldraw.Identity4()
	for i := range got {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("identity transformation matrix mismatch at %d: got %v want %v", i, got, want)
		}
	}
}

func TestTransformationMatrixAppliesScale(t *testing.T) {
	tr := DefaultTransformation()
	tr.Scale = 2
	m := tr.Matrix()

	x, y, z := m.Apply(1, 0, 0)
	if math.Abs(x-2) > 1e-6 || math.Abs(y) > 1e-6 || math.Abs(z) > 1e-6 {
		t.Fatalf("expected (2,0,0), got (%v,%v,%v)", x, y, z)
	}
}

func TestTransformationReset(t *testing.T) {
	tr := DefaultTransformation()
	tr.DefaultScale = 3
	tr.Pitch, tr.Yaw, tr.Scale = 1, 1, 1

	tr.Reset()

	if tr.Pitch != 0 || tr.Yaw != 0 {
		t.Fatalf("expected pitch/yaw reset to 0, got pitch=%v yaw=%v", tr.Pitch, tr.Yaw)
	}
	if tr.Scale != tr.DefaultScale {
		t.Fatalf("expected scale reset to DefaultScale %v, got %v", tr.DefaultScale, tr.Scale)
	}
}

func TestControllerOrbitClampsPitch(t *testing.T) {
	c := NewController(DefaultTransformation(), nil)

	c.Orbit(0, math.Pi) // far beyond the pole

	if c.Transform().Pitch > maxPitch || c.Transform().Pitch < -maxPitch {
		t.Fatalf("expected pitch clamped to +/-%v, got %v", maxPitch, c.Transform().Pitch)
	}
}

func TestControllerOrbitAccumulatesYaw(t *testing.T) {
	c := NewController(DefaultTransformation(), nil)

	c.Orbit(0.5, 0)
	c.Orbit(0.25, 0)

	if got, want := c.Transform().Yaw, 0.75; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected accumulated yaw %v, got %v", want, got)
	}
}

func TestControllerSetScaleClamps(t *testing.T) {
	c := NewController(DefaultTransformation(), nil)

	c.SetScale(1000)
	if got := c.Transform().Scale; got != maxScale {
		t.Fatalf("expected scale clamped to maxScale %v, got %v", maxScale, got)
	}

	c.SetScale(-5)
	if got := c.Transform().Scale; got != minScale {
		t.Fatalf("expected scale clamped to minScale %v, got %v", minScale, got)
	}
}

func TestControllerScaleByMultipliesCurrentScale(t *testing.T) {
	c := NewController(DefaultTransformation(), nil)
	c.SetScale(2)

	c.ScaleBy(1.5)

	if got, want := c.Transform().Scale, float32(3); math.Abs(float64(got-want)) > 1e-6 {
		t.Fatalf("expected scale %v, got %v", want, got)
	}
}

func TestControllerResetNotifiesAndRestoresDefaults(t *testing.T) {
	var notifications int
	var last Transformation
	c := NewController(DefaultTransformation(), func(tr Transformation) {
		notifications++
		last = tr
	})

	c.Orbit(1, 1)
	c.SetScale(5)
	c.Reset()

	if notifications != 3 {
		t.Fatalf("expected 3 notifications (orbit, scale, reset), got %d", notifications)
	}
	if last.Pitch != 0 || last.Yaw != 0 || last.Scale != last.DefaultScale {
		t.Fatalf("expected reset transformation, got %+v", last)
	}
}

func TestControllerSetDefaultsDoesNotChangeCurrentOrientation(t *testing.T) {
	c := NewController(DefaultTransformation(), nil)
	c.Orbit(0.3, 0.2)

	rotation := ldraw.FromEuler(0.1, 0.2, 0.3)
	c.SetDefaults(rotation, 4)

	tr := c.Transform()
	if tr.Pitch != 0.2 || tr.Yaw != 0.3 {
		t.Fatalf("expected pitch/yaw unchanged by SetDefaults, got pitch=%v yaw=%v", tr.Pitch, tr.Yaw)
	}
	if tr.DefaultRotation != rotation {
		t.Fatalf("expected DefaultRotation updated to %+v, got %+v", rotation, tr.DefaultRotation)
	}
	if tr.DefaultScale != 4 {
		t.Fatalf("expected DefaultScale updated to 4, got %v", tr.DefaultScale)
	}
}
