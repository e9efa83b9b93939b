package ldraw

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

type memFetcher struct {
	mu      sync.Mutex
	files   map[string]string
	calls   map[string]*int32
	failing map[string]bool
}

func newMemFetcher(files map[string]string) *memFetcher {
	return &memFetcher{files: files, calls: make(map[string]*int32), failing: make(map[string]bool)}
}

func (f *memFetcher) Fetch(ctx context.Context, path string) (io.ReadCloser, error) {
	f.mu.Lock()
	counter, ok := f.calls[path]
	if !ok {
		var n int32
		counter = &n
		f.calls[path] = counter
	}
	failing := f.failing[path]
	f.mu.Unlock()

	atomic.AddInt32(counter, 1)

	if failing {
		return nil, errors.New("simulated fetch failure")
	}
	content, ok := f.files[path]
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

func TestFileLoaderResolvesCandidatePaths(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"ldraw/parts/brick.dat": "3 16 0 0 0 1 0 0 0 1 0",
	})
	loader := NewFileLoader(fetcher)

	f, err := loader.Load(context.Background(), "models/car.ldr", "brick.dat")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(f.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(f.Commands))
	}
}

func TestFileLoaderMissingAllCandidatesIsMissingSubPart(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{})
	loader := NewFileLoader(fetcher)

	_, err := loader.Load(context.Background(), "models/car.ldr", "nonexistent.dat")
	var missing *MissingSubPartError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingSubPartError, got %v (%T)", err, err)
	}
}

func TestFileLoaderMemoizesSuccessNotFailure(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{})
	loader := NewFileLoader(fetcher)

	if _, err := loader.Load(context.Background(), "x.ldr", "missing.dat"); err == nil {
		t.Fatal("expected first load to fail")
	}

	fetcher.mu.Lock()
	fetcher.files["ldraw/parts/missing.dat"] = "3 1 0 0 0 1 0 0 0 1 0"
	fetcher.mu.Unlock()

	f, err := loader.Load(context.Background(), "x.ldr", "missing.dat")
	if err != nil {
		t.Fatalf("expected retry after fetcher gains the file to succeed: %v", err)
	}
	if len(f.Commands) != 1 {
		t.Fatalf("expected 1 command, got %d", len(f.Commands))
	}
}

func TestFileLoaderDeduplicatesConcurrentLoads(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"ldraw/parts/shared.dat": "3 16 0 0 0 1 0 0 0 1 0",
	})
	loader := NewFileLoader(fetcher)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = loader.Load(context.Background(), "root.ldr", "shared.dat")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("load %d failed: %v", i, err)
		}
	}

	if got := fetcher.callCount("ldraw/parts/shared.dat"); got != 1 {
		t.Fatalf("expected exactly 1 fetch call, got %d", got)
	}
}

func TestFileLoaderForget(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"ldraw/parts/brick.dat": "3 16 0 0 0 1 0 0 0 1 0",
	})
	loader := NewFileLoader(fetcher)

	ctx := context.Background()
	if _, err := loader.Load(ctx, "x.ldr", "brick.dat"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	loader.Forget("brick.dat")

	if _, err := loader.Load(ctx, "x.ldr", "brick.dat"); err != nil {
		t.Fatalf("Load after Forget: %v", err)
	}
	if got := fetcher.callCount("ldraw/parts/brick.dat"); got != 2 {
		t.Fatalf("expected 2 fetch calls after Forget, got %d", got)
	}
}
