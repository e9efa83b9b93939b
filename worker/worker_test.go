package worker

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ldraw-go/brickviewer/ldraw"
)

type memFetcher struct {
	mu    sync.Mutex
	files map[string]string
	calls map[string]*int32
}

func newMemFetcher(files map[string]string) *memFetcher {
	return &memFetcher{files: files, calls: make(map[string]*int32)}
}

func (f *memFetcher) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	counter, ok := f.calls[path]
	if !ok {
		var n int32
		counter = &n
		f.calls[path] = counter
	}
	content, ok := f.files[path]
	f.mu.Unlock()

	atomic.AddInt32(counter, 1)
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (f *memFetcher) callCount(path string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.calls[path]
	if !ok {
		return 0
	}
	return atomic.LoadInt32(c)
}

const testLDConfig = "0 !COLOUR Black CODE 0 VALUE #212121 EDGE #595959\n"

func TestWorkerLoadColorsCachesAfterFirstSuccess(t *testing.T) {
	w := New(newMemFetcher(nil))
	defer w.Close()

	ctx := context.Background()
	table, err := w.LoadColors(ctx, strings.NewReader(testLDConfig))
	if err != nil {
		t.Fatalf("LoadColors: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("expected 1 color, got %d", table.Len())
	}

	// A second call must observe the cached table without reading the
	// (now-exhausted) reader passed in.
	second, err := w.LoadColors(ctx, nil)
	if err != nil {
		t.Fatalf("LoadColors (cached): %v", err)
	}
	if second != table {
		t.Fatal("expected second LoadColors to return the same cached table")
	}
}

func TestWorkerLoadColorsConcurrentCallersShareOneParse(t *testing.T) {
	w := New(newMemFetcher(nil))
	defer w.Close()

	const n = 10
	var wg sync.WaitGroup
	tables := make([]*ldraw.ColorTable, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			table, err := w.LoadColors(context.Background(), strings.NewReader(testLDConfig))
			if err != nil {
				t.Errorf("LoadColors %d: %v", i, err)
				return
			}
			tables[i] = table
		}(i)
	}
	wg.Wait()

	for i, table := range tables {
		if table != tables[0] {
			t.Fatalf("caller %d got a different table than caller 0", i)
		}
	}
}

func TestWorkerFlattenRequiresColors(t *testing.T) {
	w := New(newMemFetcher(nil))
	defer w.Close()

	part := &ldraw.Part{Name: "brick.dat"}
	_, err := w.Flatten(context.Background(), part, 16)
	if !errors.Is(err, ErrColorsNotLoaded) {
		t.Fatalf("expected ErrColorsNotLoaded, got %v", err)
	}
}

func TestWorkerFlattenAfterColorsLoaded(t *testing.T) {
	w := New(newMemFetcher(nil))
	defer w.Close()

	ctx := context.Background()
	if _, err := w.LoadColors(ctx, strings.NewReader(testLDConfig)); err != nil {
		t.Fatalf("LoadColors: %v", err)
	}

	part := &ldraw.Part{
		Name: "brick.dat",
		Triangles: []ldraw.TriangleCommand{
			{Color: 0, P1: ldraw.Point3{X: 0, Y: 0, Z: 0}, P2: ldraw.Point3{X: 1, Y: 0, Z: 0}, P3: ldraw.Point3{X: 0, Y: 1, Z: 0}},
		},
	}
	geo, err := w.Flatten(ctx, part, 16)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(geo.OpaqueTriangles) != 3 {
		t.Fatalf("expected 3 triangle vertices, got %d", len(geo.OpaqueTriangles))
	}
}

func TestWorkerLoadPartDeduplicatesConcurrentRequests(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"ldraw/parts/shared.dat": "3 16 0 0 0 1 0 0 0 1 0",
	})
	w := New(fetcher)
	defer w.Close()

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = w.LoadPart(context.Background(), "shared.dat")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("LoadPart %d: %v", i, err)
		}
	}
	if got := fetcher.callCount("ldraw/parts/shared.dat"); got != 1 {
		t.Fatalf("expected exactly 1 fetch call, got %d", got)
	}
}

func TestWorkerLoadPartMissingReturnsError(t *testing.T) {
	w := New(newMemFetcher(nil))
	defer w.Close()

	_, err := w.LoadPart(context.Background(), "nonexistent.dat")
	var missing *ldraw.MissingSubPartError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSubPartError, got %v (%T)", err, err)
	}
}

func TestWorkerCloseUnblocksPendingRequests(t *testing.T) {
	w := New(newMemFetcher(nil))

	w.Close()
	w.Close() // idempotent

	_, err := w.LoadPart(context.Background(), "brick.dat")
	if !errors.Is(err, ErrWorkerClosed) {
		t.Fatalf("expected ErrWorkerClosed, got %v", err)
	}
}

func TestWorkerLoadPartContextCancellation(t *testing.T) {
	w := New(newMemFetcher(nil))
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond)

	_, err := w.LoadPart(ctx, "brick.dat")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
}
