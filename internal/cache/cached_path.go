package cache

import (
	"strings"
	"sync"

	"github.com/standardbeagle/goresolve/internal/fsutil"
	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
)

// lazySlot runs init at most once and remembers its result, regardless of
// how many goroutines call get concurrently (§4.6 "each lazily computed
// exactly once, shared across all callers").
type lazySlot[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (s *lazySlot[T]) get(init func() (T, error)) (T, error) {
	s.once.Do(func() {
		s.val, s.err = init()
	})
	return s.val, s.err
}

// CachedPath is one node in the store's path tree. It carries the
// normalized absolute path plus lazily computed, memoized metadata: file
// metadata, canonical (symlink-resolved) path, the node_modules directory
// directly inside it (if any), and the package.json directly inside it
// (if any) — §4.6.
type CachedPath struct {
	path   string
	parent *CachedPath

	meta        lazySlot[fsutil.Metadata]
	symlink     lazySlot[fsutil.Metadata]
	canonical   lazySlot[string]
	nodeModules lazySlot[*CachedPath]
	packageJSON lazySlot[*pkgjson.PackageJson]
}

func newCachedPath(path string, parent *CachedPath) *CachedPath {
	return &CachedPath{path: path, parent: parent}
}

// Path returns the normalized absolute path this node represents.
func (cp *CachedPath) Path() string { return cp.path }

// Parent returns the node for the containing directory, or nil at the
// root.
func (cp *CachedPath) Parent() *CachedPath { return cp.parent }

// Meta returns (and memoizes) the filesystem metadata for this path,
// following symlinks.
func (cp *CachedPath) Meta(fs fsutil.FileSystem) (fsutil.Metadata, error) {
	return cp.meta.get(func() (fsutil.Metadata, error) {
		return fs.Metadata(cp.path)
	})
}

// SymlinkMeta returns (and memoizes) the lstat-style metadata for this
// path, not following a trailing symlink.
func (cp *CachedPath) SymlinkMeta(fs fsutil.FileSystem) (fsutil.Metadata, error) {
	return cp.symlink.get(func() (fsutil.Metadata, error) {
		return fs.SymlinkMetadata(cp.path)
	})
}

// IsFile reports whether this path is (or resolves through symlinks to) a
// regular file. Errors are treated as "not a file" (§4.6).
func (cp *CachedPath) IsFile(fs fsutil.FileSystem, ctx *resolvectx.Context) bool {
	m, err := cp.Meta(fs)
	if err != nil {
		ctx.AddMissingDependency(cp.path)
		return false
	}
	ctx.AddFileDependency(cp.path)
	return m.IsFile
}

// IsDir reports whether this path is (or resolves through symlinks to) a
// directory.
func (cp *CachedPath) IsDir(fs fsutil.FileSystem, ctx *resolvectx.Context) bool {
	m, err := cp.Meta(fs)
	if err != nil {
		return false
	}
	return m.IsDir
}

// Realpath returns (and memoizes) the canonicalized, symlink-resolved form
// of this path (§4.6 canonicalize()). A node that is itself a symlink
// delegates to the filesystem's full canonicalization; otherwise it
// recurses on its parent and appends its own basename to the parent's
// already-resolved (and itself memoized) realpath, so resolving N
// descendants of the same directory only walks that directory's symlink
// chain once.
func (cp *CachedPath) Realpath(fs fsutil.FileSystem) (string, error) {
	return cp.canonical.get(func() (string, error) {
		symMeta, err := cp.SymlinkMeta(fs)
		if err != nil {
			return "", err
		}
		if symMeta.IsSymlink {
			return fs.Canonicalize(cp.path)
		}
		if cp.parent == nil {
			return cp.path, nil
		}
		parentReal, err := cp.parent.Realpath(fs)
		if err != nil {
			return "", err
		}
		if suffix, ok := strings.CutPrefix(cp.path, cp.parent.path); ok {
			return parentReal + suffix, nil
		}
		return parentReal, nil
	})
}

// NodeModules returns (and memoizes) the CachedPath for the node_modules
// directory directly inside this one, resolved lazily against store so
// parent links stay consistent.
func (cp *CachedPath) NodeModules(store *Store) *CachedPath {
	v, _ := cp.nodeModules.get(func() (*CachedPath, error) {
		return store.Value(pathutil.NormalizeWith(cp.path, "node_modules")), nil
	})
	return v
}
