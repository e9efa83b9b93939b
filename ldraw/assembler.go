package ldraw

import (
	"context"
	"sync"
)

// PartAssembler resolves LdrawFile command streams into a Part DAG,
// recursively loading each SubFileCommand's target through a
// FileLoader and interning the result by file name so a sub-part
// referenced many times (a single stud beneath a dozen bricks) is
// assembled exactly once and shared by pointer.
//
// PartAssembler is safe for concurrent use; the same assembler can
// resolve multiple root files concurrently and will still share
// sub-parts between them.
type PartAssembler struct {
	loader *FileLoader

	mu     sync.Mutex
	parts  map[string]*Part
	active map[string]bool // names currently being resolved, for cycle detection
}

// NewPartAssembler creates an assembler backed by loader.
func NewPartAssembler(loader *FileLoader) *PartAssembler {
	return &PartAssembler{
		loader: loader,
		parts:  make(map[string]*Part),
		active: make(map[string]bool),
	}
}

// Resolve loads and assembles name (and transitively, every file it
// references) into a Part DAG rooted at the returned *Part.
func (a *PartAssembler) Resolve(ctx context.Context, referrer, name string) (*Part, error) {
	a.mu.Lock()
	if p, ok := a.parts[name]; ok {
		a.mu.Unlock()
		return p, nil
	}
	if a.active[name] {
		a.mu.Unlock()
		return nil, &CycleError{Chain: []string{referrer, name}}
	}
	a.active[name] = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		delete(a.active, name)
		a.mu.Unlock()
	}()

	file, err := a.loader.Load(ctx, referrer, name)
	if err != nil {
		return nil, err
	}

	part := &Part{Name: name}
	for _, cmd := range file.Commands {
		switch c := cmd.(type) {
		case LineCommand:
			part.Lines = append(part.Lines, c)
		case TriangleCommand:
			part.Triangles = append(part.Triangles, c)
		case OptionalLineCommand:
			part.Optional = append(part.Optional, c)
		case SubFileCommand:
			child, err := a.Resolve(ctx, name, c.File)
			if err != nil {
				return nil, err
			}
			part.Children = append(part.Children, SubFileReference{
				Part:       child,
				Transform:  c.Transform,
				Color:      c.Color,
				InvertNext: c.InvertNext,
			})
		}
	}

	a.mu.Lock()
	a.parts[name] = part
	a.mu.Unlock()

	return part, nil
}
