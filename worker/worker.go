// Package worker runs the LDraw loading/assembly/flattening pipeline on a
// single background goroutine, per 5's concurrency model: a foreground
// context owns the GPU device and surface, while this package owns the
// FileLoader, PartAssembler, and GeometryFlattener and processes requests
// one at a time (no additional locking beyond what ldraw.FileLoader's own
// concurrency guarantee already requires).
package worker

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ldraw-go/brickviewer/flatten"
	"github.com/ldraw-go/brickviewer/ldraw"
)

// ErrWorkerClosed is returned by any in-flight or new request once Close
// has been called.
var ErrWorkerClosed = errors.New("worker: closed")

// ErrColorsNotLoaded is returned by Flatten if called before LoadColors has
// completed successfully at least once.
var ErrColorsNotLoaded = errors.New("worker: color table not loaded")

type partResult struct {
	part *ldraw.Part
	err  error
}

type colorResult struct {
	table *ldraw.ColorTable
	err   error
}

// Worker is the background side of the foreground/worker split in 5.
// Requests are queued on a channel and drained by a single goroutine, so
// two LoadPart calls for the same name never race PartAssembler.Resolve
// against each other — the second observes the first's in-flight result
// instead of triggering a redundant resolution.
type Worker struct {
	loader    *ldraw.FileLoader
	assembler *ldraw.PartAssembler

	requests  chan func()
	done      chan struct{}
	closeOnce sync.Once

	mu             sync.Mutex
	colors         *ldraw.ColorTable
	flattener      *flatten.GeometryFlattener
	colorRequested bool
	colorWaiters   []chan colorResult
	partWaiters    map[string][]chan partResult
}

// New creates a Worker backed by fetcher, with no persistent contents
// cache, and starts its background goroutine.
func New(fetcher ldraw.Fetcher) *Worker {
	return newWorker(ldraw.NewFileLoader(fetcher))
}

// NewWithCache is like New but consults cache before invoking fetcher, per
// 4.2's algorithm.
func NewWithCache(fetcher ldraw.Fetcher, cache ldraw.ContentsCache) *Worker {
	return newWorker(ldraw.NewFileLoaderWithCache(fetcher, cache))
}

func newWorker(loader *ldraw.FileLoader) *Worker {
	w := &Worker{
		loader:      loader,
		assembler:   ldraw.NewPartAssembler(loader),
		requests:    make(chan func(), 32),
		done:        make(chan struct{}),
		partWaiters: make(map[string][]chan partResult),
	}
	go w.run()
	return w
}

func (w *Worker) run() {
	for {
		select {
		case fn, ok := <-w.requests:
			if !ok {
				return
			}
			fn()
		case <-w.done:
			return
		}
	}
}

func (w *Worker) submit(fn func()) {
	select {
	case w.requests <- fn:
	case <-w.done:
	}
}

// LoadColors parses contents as an LDConfig.ldr stream into the worker's
// shared ColorTable exactly once, per 5's "color table is loaded exactly
// once; all subsequent requests observe it synchronously" guarantee.
// Callers after the first successful load get the cached table without
// contents being read again; contents is only consumed by whichever call
// happens to be first.
func (w *Worker) LoadColors(ctx context.Context, contents io.Reader) (*ldraw.ColorTable, error) {
	w.mu.Lock()
	if w.colors != nil {
		table := w.colors
		w.mu.Unlock()
		return table, nil
	}

	result := make(chan colorResult, 1)
	alreadyRequested := w.colorRequested
	w.colorRequested = true
	w.colorWaiters = append(w.colorWaiters, result)
	w.mu.Unlock()

	if !alreadyRequested {
		w.submit(func() {
			table, err := ldraw.ParseLDConfig(contents)

			w.mu.Lock()
			waiters := w.colorWaiters
			w.colorWaiters = nil
			if err == nil {
				w.colors = table
				w.flattener = flatten.NewGeometryFlattener(flatten.Config{Colors: table})
			} else {
				w.colorRequested = false
			}
			w.mu.Unlock()

			for _, c := range waiters {
				c <- colorResult{table, err}
			}
		})
	}

	select {
	case r := <-result:
		return r.table, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, ErrWorkerClosed
	}
}

// LoadPart resolves name (and every file it transitively references) into
// a Part DAG, per 4.2's at-most-one-fetch-per-name guarantee extended to
// the Part-assembly level: concurrent LoadPart calls for the same name
// share one PartAssembler.Resolve call instead of racing independent ones.
func (w *Worker) LoadPart(ctx context.Context, name string) (*ldraw.Part, error) {
	result := make(chan partResult, 1)

	w.mu.Lock()
	waiters, inFlight := w.partWaiters[name]
	w.partWaiters[name] = append(waiters, result)
	w.mu.Unlock()

	if !inFlight {
		w.submit(func() {
			part, err := w.assembler.Resolve(context.Background(), "", name)

			w.mu.Lock()
			chans := w.partWaiters[name]
			delete(w.partWaiters, name)
			w.mu.Unlock()

			for _, c := range chans {
				c <- partResult{part, err}
			}
		})
	}

	select {
	case r := <-result:
		return r.part, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, ErrWorkerClosed
	}
}

// Flatten runs the GeometryFlattener against part on the worker goroutine,
// returning ErrColorsNotLoaded if LoadColors has never completed
// successfully. The returned *flatten.Geometry transfers ownership of its
// vertex buffers to the caller, per 5's "messages...carry owned byte
// buffers (transferred, not copied)".
func (w *Worker) Flatten(ctx context.Context, part *ldraw.Part, defaultColor int) (*flatten.Geometry, error) {
	w.mu.Lock()
	flattener := w.flattener
	w.mu.Unlock()
	if flattener == nil {
		return nil, ErrColorsNotLoaded
	}

	result := make(chan *flatten.Geometry, 1)
	w.submit(func() {
		result <- flattener.Flatten(part, defaultColor)
	})

	select {
	case geo := <-result:
		return geo, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.done:
		return nil, ErrWorkerClosed
	}
}

// Forget evicts name from the underlying FileLoader so a subsequent
// LoadPart re-fetches and re-assembles it from scratch.
func (w *Worker) Forget(name string) {
	w.loader.Forget(name)
}

// Colors returns the color table loaded by LoadColors, or nil if
// LoadColors has never completed successfully. Exposed so a host
// application can hand the same table to wgpu.NewGpuRenderer's
// color-lookup texture once the model's geometry is ready to upload.
func (w *Worker) Colors() *ldraw.ColorTable {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.colors
}

// Close stops the worker's background goroutine. Idempotent. Requests
// already blocked in LoadColors/LoadPart/Flatten observe ErrWorkerClosed
// rather than hanging forever.
func (w *Worker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
}
