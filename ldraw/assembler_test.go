package ldraw

import (
	"context"
	"errors"
	"testing"
)

func TestPartAssemblerBuildsDAGAndSharesSubParts(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"ldraw/models/car.ldr": "1 16 0 0 0 1 0 0 0 1 0 0 0 1 wheel.dat\n" +
			"1 16 10 0 0 1 0 0 0 1 0 0 0 1 wheel.dat\n",
		"ldraw/parts/wheel.dat": "3 16 0 0 0 1 0 0 0 1 0",
	})
	loader := NewFileLoader(fetcher)
	assembler := NewPartAssembler(loader)

	root, err := assembler.Resolve(context.Background(), "", "car.ldr")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(root.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Children))
	}
	if root.Children[0].Part != root.Children[1].Part {
		t.Fatal("expected both wheel references to share the same *Part")
	}
	if got := fetcher.callCount("ldraw/parts/wheel.dat"); got != 1 {
		t.Fatalf("expected wheel.dat fetched exactly once, got %d", got)
	}
}

func TestPartAssemblerDetectsCycle(t *testing.T) {
	fetcher := newMemFetcher(map[string]string{
		"ldraw/models/a.ldr": "1 16 0 0 0 1 0 0 0 1 0 0 0 1 b.ldr\n",
		"ldraw/models/b.ldr": "1 16 0 0 0 1 0 0 0 1 0 0 0 1 a.ldr\n",
	})
	loader := NewFileLoader(fetcher)
	assembler := NewPartAssembler(loader)

	_, err := assembler.Resolve(context.Background(), "", "a.ldr")
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v (%T)", err, err)
	}
}
