package goresolve

import (
	"fmt"

	"github.com/standardbeagle/goresolve/internal/cache"
	rerrors "github.com/standardbeagle/goresolve/internal/errors"
	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
	"github.com/standardbeagle/goresolve/internal/pnp"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
	"github.com/standardbeagle/goresolve/internal/rlog"
)

const pnpManifestFile = ".pnp.data.json"

// findPnpManifest walks up from cp looking for the nearest .pnp.data.json.
func (e *Engine) findPnpManifest(cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, bool) {
	for cur := cp; cur != nil; cur = cur.Parent() {
		if !cur.IsDir(e.cache.FS, ctx) {
			continue
		}
		candidate := e.cache.Value(pathutil.NormalizeWith(cur.Path(), pnpManifestFile))
		if candidate.IsFile(e.cache.FS, ctx) {
			return candidate, true
		}
	}
	return nil, false
}

// getPnpManifest returns the parsed manifest at manifestCp, memoized by
// path.
func (e *Engine) getPnpManifest(manifestCp *cache.CachedPath) (*pnp.Manifest, error) {
	path := manifestCp.Path()

	e.pnp.mu.Lock()
	if m, ok := e.pnp.manifests[path]; ok {
		e.pnp.mu.Unlock()
		return m, nil
	}
	e.pnp.mu.Unlock()

	m, err := pnp.Load(e.cache.FS, path)
	if err != nil {
		rlog.Warnf("failed to load PnP manifest %s: %v", path, err)
		return nil, nil // an unparseable manifest is treated as "no PnP", not a hard failure
	}

	e.pnp.mu.Lock()
	e.pnp.manifests[path] = m
	e.pnp.mu.Unlock()
	return m, nil
}

// loadPnp consults the nearest PnP manifest (if any) before falling back to
// the ordinary node_modules walk. A nil, nil return always means "PnP
// didn't apply here, try the normal walk": a manifest lookup miss is
// recorded as a diagnostic instead of returned as an error, and the
// collected misses are aggregated into a MultiError and logged once the
// whole chain comes up empty. Once a linked folder or package matches, an
// error from resolving inside that directory is returned as is.
func (e *Engine) loadPnp(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	manifestCp, ok := e.findPnpManifest(cp, ctx)
	if !ok {
		return nil, nil
	}
	manifest, err := e.getPnpManifest(manifestCp)
	if err != nil || manifest == nil {
		return nil, nil
	}

	var misses []error
	if dir, ok := manifest.ResolveLinkedFolder(specifier); ok {
		return e.resolvePnpDirectory(dir, "", ctx)
	}
	misses = append(misses, fmt.Errorf("pnp: %s is not a linked folder in %s", specifier, manifestCp.Path()))

	packageName, subpath := pkgjson.ParsePackageSpecifier(specifier)
	dir, ok := manifest.Resolve("", packageName)
	if !ok {
		misses = append(misses, fmt.Errorf("pnp: %s not found in %s", packageName, manifestCp.Path()))
		rlog.Warnf("%v", rerrors.NewMultiError(misses))
		return nil, nil
	}
	return e.resolvePnpDirectory(dir, subpath, ctx)
}

// resolvePnpDirectory resolves into a package directory a PnP lookup
// pointed at: the package's own exports first, then the requested subpath
// as a plain relative specifier.
func (e *Engine) resolvePnpDirectory(dir, subpath string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	dirCached := e.cache.Value(dir)
	if resolved, err := e.loadPackageSelf(dirCached, ".", ctx); err == nil && resolved != nil {
		return resolved, nil
	}

	inner := "."
	if subpath != "" {
		inner = "." + subpath
	}
	ctx.WithFullySpecified(false)
	return e.require(dirCached, inner, ctx)
}
