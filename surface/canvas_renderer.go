// Package surface adapts one GpuRenderer to a single on-screen (or
// off-screen) presentation target.
package surface

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ldraw-go/brickviewer/render/wgpu"
)

// Common errors returned by CanvasRenderer operations.
var (
	// ErrCanvasRendererClosed is returned when operations are attempted on a
	// closed CanvasRenderer.
	ErrCanvasRendererClosed = errors.New("surface: canvas renderer is closed")

	// ErrInvalidSurfaceSize is returned when width or height is zero.
	ErrInvalidSurfaceSize = errors.New("surface: width and height must be positive")

	// ErrNilTarget is returned when constructing a CanvasRenderer without a
	// SurfaceTarget.
	ErrNilTarget = errors.New("surface: nil SurfaceTarget")
)

// submitTimeout bounds how long a single frame's command buffer is allowed
// to take to finish on the GPU before Draw reports an error, matching the
// 5-second budget gogpu's own render session uses for the same wait.
const submitTimeout = 5 * time.Second

// AlphaMode selects how a surface's alpha channel composites against
// whatever sits behind it on screen. CanvasRenderer always configures its
// target with AlphaModePremultiplied, per 4.6.
type AlphaMode int

const (
	AlphaModeOpaque AlphaMode = iota
	AlphaModePremultiplied
)

// SurfaceTarget is the host-supplied presentation surface CanvasRenderer
// draws into: a browser canvas context, a native window swapchain, or a
// test double. No hal.Surface/swapchain type exists in this module's GPU
// stack, so the host owns acquisition and presentation entirely; this
// package only configures the target once (and again on resize) and asks
// it for the color view to render into each frame.
type SurfaceTarget interface {
	// Configure applies format and alphaMode to the surface at the given
	// pixel dimensions. Called once at construction and again on every
	// Resize.
	Configure(format gputypes.TextureFormat, alphaMode AlphaMode, width, height uint32) error

	// ColorView returns the surface's current color attachment view. The
	// same view is reused across frames until the next Configure call.
	ColorView() hal.TextureView

	// Present flushes a completed frame, e.g. swapping a browser canvas's
	// backing texture or presenting a native swapchain image. Called once
	// per Draw after the render pass has ended and the GPU has finished.
	Present() error
}

// CanvasRenderer is a thin per-surface adapter over one wgpu.GpuRenderer, per
// 4.6: on construction it configures the target with premultiplied alpha
// and the renderer's color format, and creates a depth texture sized to the
// surface. On resize it recreates the depth texture and re-prepares the
// draw closure, since GpuRenderer.Prepare binds directly to a fixed pair of
// color/depth attachments.
type CanvasRenderer struct {
	device hal.Device
	queue  hal.Queue

	renderer *wgpu.GpuRenderer
	target   SurfaceTarget

	colorFormat   gputypes.TextureFormat
	width, height uint32

	depthTexture hal.Texture
	depthView    hal.TextureView

	drawFn func(hal.CommandEncoder, wgpu.RenderRequest) error

	closed bool
}

// NewCanvasRenderer resolves handle to its hal.Device/hal.Queue, configures
// target for premultiplied-alpha presentation at width x height, creates the
// depth attachment, and prepares the first draw closure against renderer.
// handle and renderer must already share the same underlying GPU device;
// this package never creates a device of its own (see render/wgpu/device.go).
func NewCanvasRenderer(handle wgpu.DeviceHandle, renderer *wgpu.GpuRenderer, target SurfaceTarget, width, height uint32) (*CanvasRenderer, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if width == 0 || height == 0 {
		return nil, ErrInvalidSurfaceSize
	}

	device, err := wgpu.ResolveHalDevice(handle)
	if err != nil {
		return nil, err
	}
	queue, err := wgpu.ResolveHalQueue(handle)
	if err != nil {
		return nil, err
	}

	c := &CanvasRenderer{
		device:      device,
		queue:       queue,
		renderer:    renderer,
		target:      target,
		colorFormat: wgpu.ColorFormat,
		width:       width,
		height:      height,
	}

	if err := target.Configure(c.colorFormat, AlphaModePremultiplied, width, height); err != nil {
		return nil, fmt.Errorf("surface: configure target: %w", err)
	}
	if err := c.rebuildDepthTexture(); err != nil {
		return nil, err
	}
	c.prepare()

	wgpu.Logger().Info("canvas renderer configured", "width", width, "height", height, "format", c.colorFormat)
	return c, nil
}

// Resize reconfigures the target, recreates the depth texture at the new
// dimensions, and re-prepares the draw closure. A no-op if the dimensions
// are unchanged.
func (c *CanvasRenderer) Resize(width, height uint32) error {
	if c.closed {
		return ErrCanvasRendererClosed
	}
	if width == 0 || height == 0 {
		return ErrInvalidSurfaceSize
	}
	if width == c.width && height == c.height {
		return nil
	}

	if err := c.target.Configure(c.colorFormat, AlphaModePremultiplied, width, height); err != nil {
		return fmt.Errorf("surface: reconfigure target: %w", err)
	}

	c.width, c.height = width, height
	if err := c.rebuildDepthTexture(); err != nil {
		return err
	}
	c.prepare()

	wgpu.Logger().Debug("canvas renderer resized", "width", width, "height", height)
	return nil
}

// Width and Height report the surface's current pixel dimensions.
func (c *CanvasRenderer) Width() uint32  { return c.width }
func (c *CanvasRenderer) Height() uint32 { return c.height }

// Draw records req's draw sequence against the target's current color view
// and this surface's depth attachment, submits it, waits for the GPU to
// finish, and presents the frame. Mirrors gogpu's own encodeSubmitSurface
// sequence: submitting without a fence wait would let presentation race
// the render pass, so Draw waits before calling Present.
func (c *CanvasRenderer) Draw(req wgpu.RenderRequest) error {
	if c.closed {
		return ErrCanvasRendererClosed
	}

	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "canvas-frame-encoder",
	})
	if err != nil {
		return fmt.Errorf("surface: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("canvas-frame"); err != nil {
		return fmt.Errorf("surface: begin encoding: %w", err)
	}

	if err := c.drawFn(encoder, req); err != nil {
		return fmt.Errorf("surface: draw: %w", err)
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("surface: end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	fence, err := c.device.CreateFence()
	if err != nil {
		return fmt.Errorf("surface: create fence: %w", err)
	}
	defer c.device.DestroyFence(fence)

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("surface: submit: %w", err)
	}

	ok, err := c.device.Wait(fence, 1, submitTimeout)
	if err != nil || !ok {
		return fmt.Errorf("surface: wait for GPU: ok=%v err=%w", ok, err)
	}

	return c.target.Present()
}

// Close releases the depth attachment. The target and the underlying
// GpuRenderer are owned by the caller and outlive this CanvasRenderer.
// Idempotent.
func (c *CanvasRenderer) Close() {
	if c.closed {
		return
	}
	c.closed = true

	if c.depthView != nil {
		c.device.DestroyTextureView(c.depthView)
		c.depthView = nil
	}
	if c.depthTexture != nil {
		c.device.DestroyTexture(c.depthTexture)
		c.depthTexture = nil
	}
}

func (c *CanvasRenderer) rebuildDepthTexture() error {
	if c.depthView != nil {
		c.device.DestroyTextureView(c.depthView)
		c.depthView = nil
	}
	if c.depthTexture != nil {
		c.device.DestroyTexture(c.depthTexture)
		c.depthTexture = nil
	}

	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label: "canvas-depth",
		Size: hal.Extent3D{
			Width:              c.width,
			Height:             c.height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        wgpu.DepthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("surface: create depth texture: %w", err)
	}

	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "canvas-depth-view"})
	if err != nil {
		c.device.DestroyTexture(tex)
		return fmt.Errorf("surface: create depth view: %w", err)
	}

	c.depthTexture = tex
	c.depthView = view
	return nil
}

func (c *CanvasRenderer) prepare() {
	c.drawFn = c.renderer.Prepare(wgpu.RenderPassTarget{
		ColorView:  c.target.ColorView(),
		DepthView:  c.depthView,
		ClearColor: gputypes.Color{R: 0, G: 0, B: 0, A: 0},
	})
}
