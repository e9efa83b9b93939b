package ldraw

import (
	"context"
	"io"
	"strings"
	"sync"
)

// Fetcher is the external collaborator that retrieves raw LDraw source
// bytes for a resolved candidate path. Transport (HTTP, embedded
// filesystem) is out of this module's scope; the embedding application
// supplies a Fetcher implementation.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (io.ReadCloser, error)
}

// ContentsCache is the persistent key/value store contract of 6: a
// disk or browser-storage backed cache of raw file contents keyed by
// LDraw file name, consulted before the Fetcher and written through on
// a successful fetch. Backing storage is an external collaborator;
// this module never evicts or owns entries. A nil ContentsCache is
// valid and simply disables the lookaside (every Load goes straight to
// the Fetcher).
type ContentsCache interface {
	Get(ctx context.Context, name string) (contents string, ok bool, err error)
	Set(ctx context.Context, name, contents string) error
}

// inflight tracks a load in progress, so concurrent requests for the
// same file name join the same fetch instead of issuing redundant
// Fetcher calls.
type inflight struct {
	done chan struct{}
	file *LdrawFile
	err  error
}

// FileLoader deduplicates concurrent loads of the same LDraw file name:
// it guarantees at most one Fetcher call per name is ever in flight,
// and memoizes successfully parsed files indefinitely. Failed loads are
// NOT memoized, so a transient fetch failure can be retried by a later
// call with the same name.
//
// FileLoader is safe for concurrent use from multiple goroutines.
type FileLoader struct {
	fetcher Fetcher
	cache   ContentsCache

	mu       sync.Mutex
	parsed   map[string]*LdrawFile
	inFlight map[string]*inflight
}

// NewFileLoader creates a loader backed by fetcher with no contents
// lookaside cache.
func NewFileLoader(fetcher Fetcher) *FileLoader {
	return NewFileLoaderWithCache(fetcher, nil)
}

// NewFileLoaderWithCache creates a loader backed by fetcher that
// consults cache before every fetch and writes fetched contents
// through to it on success, per 6's persistent cache contract. A nil
// cache behaves like NewFileLoader.
func NewFileLoaderWithCache(fetcher Fetcher, cache ContentsCache) *FileLoader {
	return &FileLoader{
		fetcher:  fetcher,
		cache:    cache,
		parsed:   make(map[string]*LdrawFile),
		inFlight: make(map[string]*inflight),
	}
}

// Load returns the parsed LdrawFile for name, trying each candidate
// path from CandidatePaths(referrer, name) in order and returning the
// first one that both fetches and parses successfully. If every
// candidate fails, it returns a MissingSubPartError listing the paths
// tried; the last candidate's error is logged at debug level, not
// wrapped.
//
// Multiple concurrent calls for the same name join a single underlying
// fetch-and-parse attempt; none of them triggers a second Fetcher call
// while the first is outstanding.
func (l *FileLoader) Load(ctx context.Context, referrer, name string) (*LdrawFile, error) {
	l.mu.Lock()
	if f, ok := l.parsed[name]; ok {
		l.mu.Unlock()
		return f, nil
	}
	if inf, ok := l.inFlight[name]; ok {
		l.mu.Unlock()
		<-inf.done
		return inf.file, inf.err
	}

	inf := &inflight{done: make(chan struct{})}
	l.inFlight[name] = inf
	l.mu.Unlock()

	file, err := l.loadUncached(ctx, referrer, name)

	l.mu.Lock()
	delete(l.inFlight, name)
	if err == nil {
		l.parsed[name] = file
	}
	l.mu.Unlock()

	inf.file, inf.err = file, err
	close(inf.done)

	return file, err
}

func (l *FileLoader) loadUncached(ctx context.Context, referrer, name string) (*LdrawFile, error) {
	if l.cache != nil {
		if contents, ok, err := l.cache.Get(ctx, name); err != nil {
			Logger().Warn("ldraw: contents cache get failed, falling through to fetch", "name", name, "error", err)
		} else if ok {
			file, err := ParseFile(name, strings.NewReader(contents))
			if err != nil {
				return nil, err
			}
			Logger().Debug("ldraw: contents cache hit", "name", name)
			return file, nil
		}
	}

	candidates := CandidatePaths(referrer, name)

	var lastErr error
	for _, path := range candidates {
		rc, err := l.fetcher.Fetch(ctx, path)
		if err != nil {
			lastErr = newFetchError(path, err)
			continue
		}

		raw, err := io.ReadAll(rc)
		closeErr := rc.Close()
		if err != nil {
			lastErr = newFetchError(path, err)
			continue
		}
		if closeErr != nil {
			Logger().Warn("ldraw: close fetched file", "path", path, "error", closeErr)
		}

		file, err := ParseFile(name, strings.NewReader(string(raw)))
		if err != nil {
			lastErr = err
			continue
		}

		if l.cache != nil {
			if err := l.cache.Set(ctx, name, string(raw)); err != nil {
				Logger().Warn("ldraw: contents cache set failed", "name", name, "error", err)
			}
		}

		return file, nil
	}

	if lastErr != nil {
		Logger().Debug("ldraw: all candidates failed", "name", name, "last_error", lastErr)
	}

	return nil, &MissingSubPartError{
		Name:       name,
		Referrer:   referrer,
		SearchPath: candidates,
	}
}

// Forget removes name from the memoized-success cache, so the next
// Load call re-fetches it. Intended for cache invalidation by an
// embedding application; the core renderer never calls this itself.
func (l *FileLoader) Forget(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.parsed, name)
}
