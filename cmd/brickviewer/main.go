// Command brickviewer is an example host application wiring together
// worker.Worker, scene.Controller, render/wgpu.GpuRenderer, and
// surface.CanvasRenderer into an interactive window via gogpu, the way
// examples/gogpu_integration/main.go wires gg into the same window for
// 2D drawing.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ldraw-go/brickviewer/ldraw"
	"github.com/ldraw-go/brickviewer/render/wgpu"
	"github.com/ldraw-go/brickviewer/scene"
	"github.com/ldraw-go/brickviewer/surface"
	"github.com/ldraw-go/brickviewer/worker"
)

func main() {
	libraryRoot := flag.String("library", ".", "root of an LDraw parts library (must contain ldraw/p/, ldraw/parts/, ldraw/models/, and LDConfig.ldr)")
	modelName := flag.String("model", "", "model file name to load, resolved against -library (e.g. car.ldr)")
	defaultColor := flag.Int("default-color", 4, "LDraw color code substituted for the model's own color-16 (inherit) references, the per-render default color described in 6")
	flag.Parse()

	if *modelName == "" {
		fmt.Fprintln(os.Stderr, "brickviewer: -model is required")
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ldraw.SetLogger(logger)
	wgpu.SetLogger(logger)

	fetcher := &dirFetcher{root: *libraryRoot}
	ldr := worker.New(fetcher)
	defer ldr.Close()

	ctx := context.Background()

	configFile, err := os.Open(filepath.Join(*libraryRoot, "LDConfig.ldr"))
	if err != nil {
		logger.Error("open LDConfig.ldr", "error", err)
		os.Exit(1)
	}
	defer configFile.Close()

	if _, err := ldr.LoadColors(ctx, configFile); err != nil {
		logger.Error("load colors", "error", err)
		os.Exit(1)
	}

	part, err := ldr.LoadPart(ctx, *modelName)
	if err != nil {
		logger.Error("load model", "model", *modelName, "error", err)
		os.Exit(1)
	}

	geometry, err := ldr.Flatten(ctx, part, *defaultColor)
	if err != nil {
		logger.Error("flatten model", "error", err)
		os.Exit(1)
	}

	controller := scene.NewController(scene.DefaultTransformation(), nil)

	const width, height = 1024, 768
	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle("brickviewer: "+*modelName).
		WithSize(width, height))

	var (
		renderer *wgpu.GpuRenderer
		canvas   *surface.CanvasRenderer
		geomH    *wgpu.GeometryHandle
		frame    int
	)

	app.OnDraw(func(dc *gogpu.Context) {
		w, h := dc.Width(), dc.Height()
		if w <= 0 || h <= 0 {
			return
		}

		if renderer == nil {
			provider := app.GPUContextProvider()
			if provider == nil {
				return // GPU not ready yet
			}

			renderer, err = wgpu.NewGpuRenderer(provider, ldr.Colors())
			if err != nil {
				logger.Error("create renderer", "error", err)
				return
			}

			geomH, err = renderer.Upload(*modelName, geometry)
			if err != nil {
				logger.Error("upload geometry", "error", err)
				return
			}

			device, hErr := wgpu.ResolveHalDevice(provider)
			if hErr != nil {
				logger.Error("resolve hal device", "error", hErr)
				return
			}

			target := newWindowSurfaceTarget(device)
			canvas, err = surface.NewCanvasRenderer(provider, renderer, target, uint32(w), uint32(h))
			if err != nil {
				logger.Error("create canvas renderer", "error", err)
				return
			}
		}

		if canvas.Width() != uint32(w) || canvas.Height() != uint32(h) {
			if err := canvas.Resize(uint32(w), uint32(h)); err != nil {
				logger.Error("resize canvas", "error", err)
				return
			}
		}

		req := wgpu.RenderRequest{
			Transform:    controller.Matrix(),
			DefaultColor: [4]float32{1, 1, 1, 1},
			Geometry:     geomH,
		}
		if err := canvas.Draw(req); err != nil {
			logger.Error("draw frame", "error", err)
		}
		frame++
	})

	app.EventSource().OnResize(func(w, h int) {
		if canvas != nil && w > 0 && h > 0 {
			if err := canvas.Resize(uint32(w), uint32(h)); err != nil {
				logger.Error("resize on event", "error", err)
			}
		}
	})

	// Pointer orbit and slider scale input are an external collaborator,
	// not this module's concern: a real host would wire its own
	// drag/scroll handling straight to controller.Orbit/controller.ScaleBy
	// here; this example only drives controller.Matrix() each frame from
	// whatever state it's left in.

	if err := app.Run(); err != nil {
		logger.Error("run", "error", err)
		os.Exit(1)
	}

	if canvas != nil {
		canvas.Close()
	}
	if renderer != nil {
		renderer.Close()
	}
}

// windowSurfaceTarget adapts a window's device into surface.SurfaceTarget
// by owning its own color texture sized to the window, the same
// create/destroy-on-resize shape CanvasRenderer itself uses for its
// depth attachment. This module has no vendored access to gogpu's actual
// swapchain/present API (gogpu is an external, unvendored dependency;
// examples/gogpu_integration/main.go only shows gg's 2D TextureDrawer
// path, never a raw hal.TextureView), so wiring this color texture into
// the real OS window surface is intentionally left to the embedding
// application — Present is the extension point where a host would copy
// or blit colorTexture into its actual swapchain image.
type windowSurfaceTarget struct {
	device hal.Device

	width, height uint32
	colorTexture  hal.Texture
	colorView     hal.TextureView
}

func newWindowSurfaceTarget(device hal.Device) *windowSurfaceTarget {
	return &windowSurfaceTarget{device: device}
}

func (t *windowSurfaceTarget) Configure(format gputypes.TextureFormat, alphaMode surface.AlphaMode, width, height uint32) error {
	if t.colorView != nil {
		t.device.DestroyTextureView(t.colorView)
		t.colorView = nil
	}
	if t.colorTexture != nil {
		t.device.DestroyTexture(t.colorTexture)
		t.colorTexture = nil
	}

	tex, err := t.device.CreateTexture(&hal.TextureDescriptor{
		Label: "brickviewer-window-color",
		Size: hal.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("brickviewer: create window color texture: %w", err)
	}
	view, err := t.device.CreateTextureView(tex, &hal.TextureViewDescriptor{Label: "brickviewer-window-color-view"})
	if err != nil {
		t.device.DestroyTexture(tex)
		return fmt.Errorf("brickviewer: create window color view: %w", err)
	}

	t.width, t.height = width, height
	t.colorTexture, t.colorView = tex, view
	return nil
}

func (t *windowSurfaceTarget) ColorView() hal.TextureView { return t.colorView }

// Present is a no-op placeholder: see the windowSurfaceTarget doc comment.
func (t *windowSurfaceTarget) Present() error { return nil }

// dirFetcher implements ldraw.Fetcher by reading files from a directory
// tree, the simplest possible backing for the CandidatePaths search
// table (6's "fetch is an injected function mapping path to contents").
type dirFetcher struct {
	root string
}

func (f *dirFetcher) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(f.root, path))
}
