package wgpu

import (
	"errors"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// DeviceError wraps a failure resolving a DeviceHandle into the HAL
// resources this package draws with, naming the operation that failed so
// callers can distinguish "no handle supplied" from "handle doesn't expose
// HAL access".
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string { return "wgpu: " + e.Op + ": " + e.Err.Error() }
func (e *DeviceError) Unwrap() error { return e.Err }

var (
	// ErrNilDeviceHandle is returned when a nil DeviceHandle is supplied
	// where a usable GPU device is required.
	ErrNilDeviceHandle = errors.New("wgpu: nil device handle")

	// ErrNoHalAccess is returned when a DeviceHandle doesn't additionally
	// implement HalProvider, so no hal.Device/hal.Queue can be obtained from
	// it. A CPU-only or 2D-only host is a legitimate reason for this.
	ErrNoHalAccess = errors.New("wgpu: device handle does not expose HAL access")
)

// DeviceHandle is the external GPU-device-acquisition contract (see package
// doc): the renderer RECEIVES a device from its host application, it never
// creates or owns one itself. This is an alias of gpucontext.DeviceProvider,
// the same interface gogpu's own renderers are handed, so a single host
// implementation can drive both.
type DeviceHandle = gpucontext.DeviceProvider

// HalProvider is implemented by a DeviceHandle whose host can additionally
// hand out the github.com/gogpu/wgpu/hal objects this package's pipelines,
// render passes and shader compiler are built directly against. A host that
// only exposes the opaque gpucontext.Device/Queue (e.g. a pure-2D renderer
// sharing its device) cannot satisfy this, and SurfaceRenderer reports
// ErrNoHalAccess rather than attempting to create its own device.
type HalProvider interface {
	HalDevice() (hal.Device, error)
	HalQueue() (hal.Queue, error)
}

// NullDeviceHandle is a DeviceHandle with no backing GPU, for CPU-only
// fallback paths and tests that never reach a render pass.
type NullDeviceHandle struct{}

func (NullDeviceHandle) Device() gpucontext.Device { return nil }
func (NullDeviceHandle) Queue() gpucontext.Queue   { return nil }
func (NullDeviceHandle) Adapter() gpucontext.Adapter {
	return nil
}
func (NullDeviceHandle) SurfaceFormat() gputypes.TextureFormat {
	return gputypes.TextureFormatUndefined
}

var _ DeviceHandle = NullDeviceHandle{}

// ResolveHalDevice resolves handle to the hal.Device this package's
// pipelines and shader compiler are built against. Returns ErrNilDeviceHandle
// or ErrNoHalAccess (wrapped in a *DeviceError) rather than ever
// constructing a device on its own.
func ResolveHalDevice(handle DeviceHandle) (hal.Device, error) {
	if handle == nil {
		return nil, &DeviceError{Op: "resolve device", Err: ErrNilDeviceHandle}
	}
	hp, ok := handle.(HalProvider)
	if !ok {
		return nil, &DeviceError{Op: "resolve device", Err: ErrNoHalAccess}
	}
	device, err := hp.HalDevice()
	if err != nil {
		return nil, &DeviceError{Op: "resolve device", Err: err}
	}
	return device, nil
}

// ResolveHalQueue resolves handle to the hal.Queue command buffers are
// submitted on.
func ResolveHalQueue(handle DeviceHandle) (hal.Queue, error) {
	if handle == nil {
		return nil, &DeviceError{Op: "resolve queue", Err: ErrNilDeviceHandle}
	}
	hp, ok := handle.(HalProvider)
	if !ok {
		return nil, &DeviceError{Op: "resolve queue", Err: ErrNoHalAccess}
	}
	queue, err := hp.HalQueue()
	if err != nil {
		return nil, &DeviceError{Op: "resolve queue", Err: err}
	}
	return queue, nil
}
