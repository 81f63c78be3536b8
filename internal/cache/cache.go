// Package cache is the shared, concurrency-safe path/metadata store (§4.6):
// CachedPath nodes memoize file-system metadata, symlink realpath
// computation, the nearest node_modules directory, and the nearest
// package.json, with each lazy slot initialized at most once across
// concurrent resolutions. A parallel TsConfig cache memoizes parsed
// tsconfigs by path.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/standardbeagle/goresolve/internal/fsutil"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
	"github.com/standardbeagle/goresolve/internal/rlog"
	"github.com/standardbeagle/goresolve/internal/tsconfig"
)

const shardCount = 64

type shard struct {
	mu    sync.RWMutex
	paths map[string]*CachedPath
}

// Store is the per-engine shared cache. It is safe for concurrent use by
// many resolutions; each path hashes to one of a fixed number of shards,
// so independent paths contend only when they land in the same shard (§5
// "per-bucket or per-entry locking").
type Store struct {
	FS fsutil.FileSystem

	shards [shardCount]*shard
	insert singleflight.Group // dedupes concurrent first-touch inserts of the same path

	tsMu       sync.RWMutex
	tsconfigs  map[string]*tsconfig.TsConfig
	tsInsert   singleflight.Group
}

// NewStore constructs an empty store backed by fs.
func NewStore(fs fsutil.FileSystem) *Store {
	s := &Store{FS: fs, tsconfigs: make(map[string]*tsconfig.TsConfig)}
	for i := range s.shards {
		s.shards[i] = &shard{paths: make(map[string]*CachedPath)}
	}
	return s
}

func (s *Store) shardFor(path string) *shard {
	h := xxhash.Sum64String(path)
	return s.shards[h%uint64(shardCount)]
}

// Clear drops every cached entry. Callers must only invoke this at a
// quiescent point (§4.6 "clear()", §9 "concurrent clear_cache").
func (s *Store) Clear() {
	rlog.Warnf("cache store cleared")
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.paths = make(map[string]*CachedPath)
		sh.mu.Unlock()
	}
	s.tsMu.Lock()
	s.tsconfigs = make(map[string]*tsconfig.TsConfig)
	s.tsMu.Unlock()
}

// Value returns the CachedPath node for path, constructing it (and its
// parent chain) on first touch. Concurrent callers requesting the same new
// path are deduplicated by singleflight so only one constructs the node
// (§4.6 "Insertion is atomic").
func (s *Store) Value(path string) *CachedPath {
	path = pathutil.Normalize(path)
	sh := s.shardFor(path)

	sh.mu.RLock()
	if cp, ok := sh.paths[path]; ok {
		sh.mu.RUnlock()
		return cp
	}
	sh.mu.RUnlock()

	v, _, _ := s.insert.Do(path, func() (interface{}, error) {
		sh.mu.RLock()
		if cp, ok := sh.paths[path]; ok {
			sh.mu.RUnlock()
			return cp, nil
		}
		sh.mu.RUnlock()

		var parent *CachedPath
		if p := parentOf(path); p != "" && p != path {
			parent = s.Value(p)
		}
		cp := newCachedPath(path, parent)

		sh.mu.Lock()
		if existing, ok := sh.paths[path]; ok {
			sh.mu.Unlock()
			return existing, nil
		}
		sh.paths[path] = cp
		sh.mu.Unlock()
		return cp, nil
	})
	return v.(*CachedPath)
}

func parentOf(path string) string {
	dir := pathsDir(path)
	if dir == path {
		return ""
	}
	return dir
}

// pathsDir mirrors filepath.Dir's semantics over POSIX- and
// Windows-style separators without depending on the OS's own filepath
// package (the store must behave the same on every platform it's tested
// against, per the memory-backed test suite).
func pathsDir(path string) string {
	sep := byte('/')
	trimmed := path
	for len(trimmed) > 1 && (trimmed[len(trimmed)-1] == '/' || trimmed[len(trimmed)-1] == '\\') {
		trimmed = trimmed[:len(trimmed)-1]
	}
	lastSlash := -1
	for i := len(trimmed) - 1; i >= 0; i-- {
		if trimmed[i] == '/' || trimmed[i] == '\\' {
			lastSlash = i
			sep = trimmed[i]
			break
		}
	}
	if lastSlash < 0 {
		return trimmed
	}
	if lastSlash == 0 {
		return string(sep)
	}
	return trimmed[:lastSlash]
}

// Tsconfig returns the parsed TsConfig at path, memoized by path,
// constructing it via build on first touch.
func (s *Store) Tsconfig(path string, build func() (*tsconfig.TsConfig, error)) (*tsconfig.TsConfig, error) {
	s.tsMu.RLock()
	if tc, ok := s.tsconfigs[path]; ok {
		s.tsMu.RUnlock()
		return tc, nil
	}
	s.tsMu.RUnlock()

	v, err, _ := s.tsInsert.Do(path, func() (interface{}, error) {
		s.tsMu.RLock()
		if tc, ok := s.tsconfigs[path]; ok {
			s.tsMu.RUnlock()
			return tc, nil
		}
		s.tsMu.RUnlock()

		tc, err := build()
		if err != nil {
			return nil, err
		}
		s.tsMu.Lock()
		s.tsconfigs[path] = tc
		s.tsMu.Unlock()
		return tc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*tsconfig.TsConfig), nil
}

// FindPackageJSON walks up from cp looking for the nearest package.json,
// first walking up to the nearest directory if cp itself isn't one
// (§4.6 find_package_json).
func (s *Store) FindPackageJSON(cp *CachedPath, opts *options.ResolveOptions, ctx *resolvectx.Context) (*pkgjson.PackageJson, error) {
	cur := cp
	for !cur.IsDir(s.FS, ctx) {
		if cur.Parent() == nil {
			break
		}
		cur = cur.Parent()
	}
	for cur != nil {
		pj, err := s.PackageJSON(cur, opts, ctx)
		if err != nil {
			return nil, err
		}
		if pj != nil {
			return pj, nil
		}
		cur = cur.Parent()
	}
	return nil, nil
}

// PackageJSON returns the package.json directly inside cp, if any (§4.6
// package_json).
func (s *Store) PackageJSON(cp *CachedPath, opts *options.ResolveOptions, ctx *resolvectx.Context) (*pkgjson.PackageJson, error) {
	pj, err := cp.packageJSON.get(func() (*pkgjson.PackageJson, error) {
		declPath := pathutil.NormalizeWith(cp.path, "package.json")
		raw, readErr := s.FS.Read(declPath)
		if readErr != nil {
			return nil, nil
		}
		realPath := declPath
		if opts.Symlinks {
			if rp, rerr := cp.Realpath(s.FS); rerr == nil {
				realPath = pathutil.NormalizeWith(rp, "package.json")
			}
		}
		return pkgjson.Parse(declPath, realPath, raw)
	})

	declPath := pathutil.NormalizeWith(cp.path, "package.json")
	switch {
	case err != nil:
		ctx.AddFileDependency(declPath)
	case pj != nil:
		ctx.AddFileDependency(pj.Path)
	default:
		ctx.AddMissingDependency(declPath)
	}
	return pj, err
}
