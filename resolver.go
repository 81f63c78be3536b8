// Package goresolve implements a Node.js/bundler-compatible module
// resolution algorithm: CommonJS and ESM specifier resolution, package.json
// "exports"/"imports" map evaluation, browser-field and configured alias
// rewriting, tsconfig "paths" resolution and Yarn Plug'n'Play support, all
// backed by a shared, concurrency-safe path cache.
package goresolve

import (
	"sync"

	"github.com/standardbeagle/goresolve/internal/cache"
	rerrors "github.com/standardbeagle/goresolve/internal/errors"
	"github.com/standardbeagle/goresolve/internal/fsutil"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
	"github.com/standardbeagle/goresolve/internal/pnp"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
)

// Resolution is the successful result of resolving a specifier: the
// absolute file path (symlink-resolved when Symlinks is set) plus any query/fragment carried on
// the original specifier and the nearest enclosing package.json, if any.
type Resolution struct {
	Path        string
	Query       string
	Fragment    string
	PackageJson *pkgjson.PackageJson
}

// ModuleType reports the governing package.json's "type" field: module,
// commonjs, or unset if there is no governing package.json or it doesn't
// set one.
func (r *Resolution) ModuleType() pkgjson.ModuleType {
	if r.PackageJson == nil {
		return pkgjson.ModuleTypeUnset
	}
	return r.PackageJson.Type
}

// ContextResult carries the file/missing dependency sets collected during a
// ResolveWithContext call, for callers building a watch list.
type ContextResult struct {
	FileDependencies    []string
	MissingDependencies []string
}

// pnpCache memoizes parsed PnP manifests by the manifest file's path. It is
// held by pointer and shared across every Engine produced by
// CloneWithOptions, the same way the underlying cache.Store is, so the
// mutex actually guards every reader.
type pnpCache struct {
	mu        sync.Mutex
	manifests map[string]*pnp.Manifest
}

// Engine resolves module specifiers against a directory according to its
// ResolveOptions. It is safe for concurrent use; every Engine sharing a
// cache (via CloneWithOptions) shares path and tsconfig memoization too.
type Engine struct {
	options options.ResolveOptions
	cache   *cache.Store
	pnp     *pnpCache
}

// New constructs an Engine backed by the real OS filesystem.
func New(opts options.ResolveOptions) *Engine {
	return NewWithFileSystem(fsutil.NewOSFileSystem(), opts)
}

// NewWithFileSystem constructs an Engine backed by an arbitrary
// fsutil.FileSystem, for testing against an in-memory tree.
func NewWithFileSystem(fs fsutil.FileSystem, opts options.ResolveOptions) *Engine {
	return &Engine{
		options: opts.Sanitize(),
		cache:   cache.NewStore(fs),
		pnp:     &pnpCache{manifests: make(map[string]*pnp.Manifest)},
	}
}

// CloneWithOptions returns a new Engine with different options that shares
// this Engine's cache, so repeated resolutions with per-call option tweaks
// (as getExtendedTsconfigPath's restricted tsconfig lookup does) don't pay to
// re-walk the filesystem.
func (e *Engine) CloneWithOptions(opts options.ResolveOptions) *Engine {
	return &Engine{
		options: opts.Sanitize(),
		cache:   e.cache,
		pnp:     e.pnp,
	}
}

// Options returns the Engine's resolved options.
func (e *Engine) Options() options.ResolveOptions { return e.options }

// ClearCache drops every cached path, package.json, tsconfig and PnP
// manifest. Callers must only call this at a quiescent point: concurrent
// resolutions racing a clear may reconstruct entries that are about to be
// dropped.
func (e *Engine) ClearCache() {
	e.cache.Clear()
	e.pnp.mu.Lock()
	e.pnp.manifests = make(map[string]*pnp.Manifest)
	e.pnp.mu.Unlock()
}

// Resolve resolves specifier relative to directory.
func (e *Engine) Resolve(directory, specifier string) (*Resolution, error) {
	ctx := resolvectx.New()
	return e.resolveImpl(directory, specifier, ctx)
}

// ResolveWithContext resolves specifier relative to directory, additionally
// returning the file and missing dependencies touched along the way.
func (e *Engine) ResolveWithContext(directory, specifier string) (*Resolution, *ContextResult, error) {
	ctx := resolvectx.NewWithDependencyTracking()
	res, err := e.resolveImpl(directory, specifier, ctx)
	return res, &ContextResult{
		FileDependencies:    ctx.FileDependencies(),
		MissingDependencies: ctx.MissingDependencies(),
	}, err
}

func (e *Engine) resolveImpl(directory, specifier string, ctx *resolvectx.Context) (*Resolution, error) {
	ctx.WithFullySpecified(e.options.FullySpecified)

	start := e.cache.Value(directory)
	resolved, err := e.require(start, specifier, ctx)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, rerrors.NotFound(specifier)
	}

	realPath, err := e.loadRealpath(resolved)
	if err != nil {
		return nil, rerrors.IO(resolved.Path(), err)
	}

	pj, err := e.cache.FindPackageJSON(resolved, &e.options, ctx)
	if err != nil {
		return nil, err
	}

	return &Resolution{
		Path:        realPath,
		Query:       ctx.Query,
		Fragment:    ctx.Fragment,
		PackageJson: pj,
	}, nil
}

func (e *Engine) loadRealpath(cp *cache.CachedPath) (string, error) {
	if !e.options.Symlinks {
		return cp.Path(), nil
	}
	return cp.Realpath(e.cache.FS)
}
