package goresolve

import (
	"strings"

	"github.com/standardbeagle/goresolve/internal/cache"
	rerrors "github.com/standardbeagle/goresolve/internal/errors"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
)

// loadPackageSelfOrNodeModules tries resolving specifier as a package
// importing its own exports, then falls back to a node_modules search.
func (e *Engine) loadPackageSelfOrNodeModules(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	_, subpath := pkgjson.ParsePackageSpecifier(specifier)
	if subpath == "" {
		ctx.WithFullySpecified(false)
	}
	if resolved, err := e.loadPackageSelf(cp, specifier, ctx); err != nil {
		return nil, err
	} else if resolved != nil {
		return resolved, nil
	}
	return e.loadNodeModules(cp, specifier, ctx)
}

// loadPackageImports resolves a "#..." specifier against the nearest
// enclosing package.json's "imports" field.
func (e *Engine) loadPackageImports(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	pj, err := e.cache.FindPackageJSON(cp, &e.options, ctx)
	if err != nil {
		return nil, err
	}
	if pj == nil {
		return nil, nil
	}
	return e.packageImportsResolve(specifier, pj, ctx)
}

// loadAsFile tries cp as a literal file, then with each configured
// extension appended.
func (e *Engine) loadAsFile(cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if resolved, err := e.loadExtensionAlias(cp, ctx); err != nil {
		return nil, err
	} else if resolved != nil {
		return resolved, nil
	}

	if e.options.EnforceExtension.IsDisabled(e.options.Extensions) {
		if resolved, err := e.loadAliasOrFile(cp, ctx); err != nil {
			return nil, err
		} else if resolved != nil {
			return resolved, nil
		}
	}

	return e.loadExtensions(cp, e.options.Extensions, ctx)
}

// loadAsDirectory tries the configured main fields of the package.json
// directly inside cp (only when DescriptionFiles is non-empty), then falls
// back to the configured index files.
func (e *Engine) loadAsDirectory(cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if len(e.options.DescriptionFiles) > 0 {
		pj, err := e.cache.PackageJSON(cp, &e.options, ctx)
		if err != nil {
			return nil, err
		}
		if pj != nil {
			for _, main := range pj.MainFields(e.options.MainFields) {
				mainPath := main
				if !isRelativeSpecifier(mainPath) {
					mainPath = "./" + mainPath
				}
				candidate := e.cache.Value(pathutil.NormalizeWith(cp.Path(), mainPath))
				if resolved, err := e.loadAsFile(candidate, ctx); err == nil && resolved != nil {
					return resolved, nil
				}
				if resolved, err := e.loadIndex(candidate, ctx); err == nil && resolved != nil {
					return resolved, nil
				}
			}
		}
	}
	return e.loadIndex(cp, ctx)
}

// loadAsFileOrDirectory is the shared entry point for "resolve this path as
// either a file or a directory", honoring ResolveToContext and a trailing
// slash that forces directory-only resolution.
func (e *Engine) loadAsFileOrDirectory(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if e.options.ResolveToContext {
		if cp.IsDir(e.cache.FS, ctx) {
			return cp, nil
		}
		return nil, nil
	}

	if !strings.HasSuffix(specifier, "/") {
		if resolved, err := e.loadAsFile(cp, ctx); err != nil {
			return nil, err
		} else if resolved != nil {
			return resolved, nil
		}
	}

	if cp.IsDir(e.cache.FS, ctx) {
		return e.loadAsDirectory(cp, ctx)
	}
	return nil, nil
}

// loadExtensions tries path+ext for each configured extension, in order.
func (e *Engine) loadExtensions(cp *cache.CachedPath, extensions []string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if ctx.FullySpecified {
		return nil, nil
	}
	for _, ext := range extensions {
		candidate := e.cache.Value(cp.Path() + ext)
		if resolved, err := e.loadAliasOrFile(candidate, ctx); err != nil {
			return nil, err
		} else if resolved != nil {
			return resolved, nil
		}
	}
	return nil, nil
}

func (e *Engine) checkRestrictions(path string) bool {
	for _, r := range e.options.Restrictions {
		if !r.Matches(path) {
			return false
		}
	}
	return true
}

// loadIndex tries each configured main file directly inside cp.
func (e *Engine) loadIndex(cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	for _, mainFile := range e.options.MainFiles {
		candidate := e.cache.Value(pathutil.NormalizeWith(cp.Path(), mainFile))
		if e.options.EnforceExtension.IsDisabled(e.options.Extensions) {
			if resolved, err := e.loadAliasOrFile(candidate, ctx); err != nil {
				return nil, err
			} else if resolved != nil {
				return resolved, nil
			}
		}
		if resolved, err := e.loadExtensions(candidate, e.options.Extensions, ctx); err != nil {
			return nil, err
		} else if resolved != nil {
			return resolved, nil
		}
	}
	return nil, nil
}

// loadAliasOrFile applies the browser field and configured alias list to
// cp, and if neither rewrites it, accepts cp as-is iff it's a file
// satisfying every restriction.
func (e *Engine) loadAliasOrFile(cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if len(e.options.AliasFields) > 0 {
		pj, err := e.cache.FindPackageJSON(cp, &e.options, ctx)
		if err != nil {
			return nil, err
		}
		if pj != nil {
			if resolved, err := e.loadBrowserField(cp, nil, pj, ctx); err != nil {
				return nil, err
			} else if resolved != nil {
				return resolved, nil
			}
		}
	}

	if resolved, err := e.loadAlias(cp, cp.Path(), e.options.Alias, ctx); err != nil {
		return nil, err
	} else if resolved != nil {
		return resolved, nil
	}

	if cp.IsFile(e.cache.FS, ctx) && e.checkRestrictions(cp.Path()) {
		return cp, nil
	}
	return nil, nil
}

// getModuleDirectory finds the directory named moduleName directly inside
// cp (node_modules uses the memoized NodeModules slot; any other name is
// looked up freshly).
func (e *Engine) getModuleDirectory(cp *cache.CachedPath, moduleName string, ctx *resolvectx.Context) *cache.CachedPath {
	if moduleName == "node_modules" {
		nm := cp.NodeModules(e.cache)
		if nm.IsDir(e.cache.FS, ctx) {
			return nm
		}
		return nil
	}
	if baseName(cp.Path()) == moduleName {
		return cp
	}
	dir := e.cache.Value(pathutil.NormalizeWith(cp.Path(), moduleName))
	if dir.IsDir(e.cache.FS, ctx) {
		return dir
	}
	return nil
}

// loadNodeModules walks up from cp through each configured module
// directory name looking for a package named specifier's leading segment.
func (e *Engine) loadNodeModules(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if e.options.EnablePnp {
		if resolved, err := e.loadPnp(cp, specifier, ctx); err != nil {
			return nil, err
		} else if resolved != nil {
			return resolved, nil
		}
	}

	packageName, subpath := pkgjson.ParsePackageSpecifier(specifier)

	for _, moduleName := range e.options.Modules {
		for cur := cp; cur != nil; cur = cur.Parent() {
			if !cur.IsDir(e.cache.FS, ctx) {
				continue
			}
			moduleDir := e.getModuleDirectory(cur, moduleName, ctx)
			if moduleDir == nil {
				continue
			}

			if packageName != "" {
				packagePath := pathutil.NormalizeWith(moduleDir.Path(), packageName)
				packageCached := e.cache.Value(packagePath)
				if packageCached.IsDir(e.cache.FS, ctx) {
					if resolved, err := e.loadPackageExports(specifier, subpath, packageCached, ctx); err != nil {
						return nil, err
					} else if resolved != nil {
						return resolved, nil
					}
				} else if subpath == "" && strings.HasPrefix(packageName, "@") {
					if parent := packageCached.Parent(); parent != nil && !parent.IsDir(e.cache.FS, ctx) {
						continue
					}
				}
			}

			nodeModuleFile := pathutil.NormalizeWith(moduleDir.Path(), specifier)
			candidate := e.cache.Value(nodeModuleFile)
			if resolved, err := e.loadAsFileOrDirectory(candidate, specifier, ctx); err != nil {
				return nil, err
			} else if resolved != nil {
				return resolved, nil
			}
		}
	}
	return nil, nil
}

// loadPackageExports reads the package.json directly at cp (not the
// nearest-ancestor search loadPackageImports uses) and resolves subpath
// through its exports map.
func (e *Engine) loadPackageExports(specifier, subpath string, cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	pj, err := e.cache.PackageJSON(cp, &e.options, ctx)
	if err != nil {
		return nil, err
	}
	if pj == nil {
		return nil, nil
	}
	for _, exports := range pj.ExportsFields(e.options.ExportsFields) {
		resolved, err := e.packageExportsResolve(cp.Path(), "."+subpath, exports, ctx)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return e.resolveEsmMatch(specifier, resolved, ctx)
		}
	}
	return nil, nil
}

// loadPackageSelf resolves specifier against the nearest enclosing
// package.json, when specifier names that very package (a package
// importing one of its own exported subpaths by name).
func (e *Engine) loadPackageSelf(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	pj, err := e.cache.FindPackageJSON(cp, &e.options, ctx)
	if err != nil {
		return nil, err
	}
	if pj == nil {
		return nil, nil
	}
	if pj.Name != "" {
		if subpath, ok := pkgjson.StripPackageName(specifier, pj.Name); ok {
			packageURL := pj.Directory()
			for _, exports := range pj.ExportsFields(e.options.ExportsFields) {
				resolved, err := e.packageExportsResolve(packageURL, "."+subpath, exports, ctx)
				if err != nil {
					return nil, err
				}
				if resolved != nil {
					return e.resolveEsmMatch(specifier, resolved, ctx)
				}
			}
		}
	}
	return e.loadBrowserField(cp, &specifier, pj, ctx)
}

// resolveEsmMatch finishes resolving an exports/imports match: the matched
// path is tried as a file or directory, and if that fails, any trailing
// "?query" segments are stripped (right to left) and retried, since a
// matched target may itself carry a literal '?' that isn't meant as a query
// string once appended to a real file path.
func (e *Engine) resolveEsmMatch(specifier string, cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if resolved, err := e.loadAsFileOrDirectory(cp, "", ctx); err != nil {
		return nil, err
	} else if resolved != nil {
		return resolved, nil
	}

	rest := cp.Path()
	for {
		idx := strings.LastIndexByte(rest, '?')
		if idx < 0 {
			break
		}
		rest = rest[:idx]
		candidate := e.cache.Value(rest)
		if resolved, err := e.loadAsFileOrDirectory(candidate, "", ctx); err == nil && resolved != nil {
			return cp, nil
		}
	}
	return nil, rerrors.NotFound(specifier)
}

// loadBrowserField applies the configured alias-fields browser map to cp,
// recursing into the rewritten specifier while guarding against the
// self-reference and alias-cycle cases §9 documents.
func (e *Engine) loadBrowserField(cp *cache.CachedPath, moduleSpecifier *string, pj *pkgjson.PackageJson, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	specArg := ""
	if moduleSpecifier != nil {
		specArg = *moduleSpecifier
	}
	newSpecifier, err := pj.ResolveBrowserField(cp.Path(), specArg, e.options.AliasFields)
	if err != nil {
		return nil, err
	}
	if newSpecifier == "" {
		return nil, nil
	}
	if moduleSpecifier != nil && *moduleSpecifier == newSpecifier {
		return nil, nil
	}

	if ctx.ResolvingAlias == newSpecifier {
		if rest, ok := strings.CutPrefix(newSpecifier, "./"); ok && strings.HasSuffix(cp.Path(), rest) {
			if cp.IsFile(e.cache.FS, ctx) && e.checkRestrictions(cp.Path()) {
				return cp, nil
			}
			return nil, rerrors.NotFound(newSpecifier)
		}
		return nil, rerrors.Recursion(newSpecifier)
	}

	ctx.WithResolvingAlias(newSpecifier)
	ctx.WithFullySpecified(false)
	return e.require(e.cache.Value(pj.Directory()), newSpecifier, ctx)
}

// loadAlias walks aliases looking for an entry whose key matches specifier,
// returning the first resolved value. An exact ("$"-suffixed) key requires
// specifier to match it exactly; otherwise specifier must have the key as a
// package-name prefix.
func (e *Engine) loadAlias(cp *cache.CachedPath, specifier string, aliases []options.AliasEntry, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	for _, entry := range aliases {
		key := entry.Key
		exact := strings.HasSuffix(key, "$")
		rawKey := strings.TrimSuffix(key, "$")

		if exact {
			if specifier != rawKey {
				continue
			}
		} else if _, ok := pkgjson.StripPackageName(specifier, rawKey); !ok {
			continue
		}

		shouldStop := false
		for _, value := range entry.Values {
			if value.Ignore {
				return nil, rerrors.Ignored(specifier)
			}
			resolved, err := e.loadAliasValue(cp, rawKey, value.Path, specifier, ctx, &shouldStop)
			if err != nil {
				return nil, err
			}
			if resolved != nil {
				return resolved, nil
			}
		}
		if shouldStop {
			return nil, rerrors.MatchedAliasNotFound(specifier, rawKey)
		}
	}
	return nil, nil
}

// loadAliasValue recurses into one alias candidate, rewriting specifier's
// aliasKey-length prefix to aliasValue's replacement.
func (e *Engine) loadAliasValue(cp *cache.CachedPath, aliasKey, aliasValue, request string, ctx *resolvectx.Context, shouldStop *bool) (*cache.CachedPath, error) {
	if request == aliasValue || strings.HasPrefix(strings.TrimPrefix(request, aliasValue), "/") {
		return nil, nil
	}

	tail := request[len(aliasKey):]
	newSpecifier := aliasValue
	if tail != "" {
		target := e.cache.Value(aliasValue)
		if target.IsFile(e.cache.FS, ctx) {
			// An alias value that is itself a file may not have anything
			// appended to it.
			return nil, nil
		}
		newSpecifier = pathutil.NormalizeWith(aliasValue, strings.TrimPrefix(tail, "/"))
	}

	*shouldStop = true
	ctx.WithFullySpecified(false)
	resolved, err := e.require(cp, newSpecifier, ctx)
	if err != nil {
		if rerrors.Recoverable(err) {
			return nil, nil
		}
		return nil, err
	}
	return resolved, nil
}

// loadExtensionAlias swaps cp's extension for each configured substitute in
// turn, per the extensionAlias option.
func (e *Engine) loadExtensionAlias(cp *cache.CachedPath, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if len(e.options.ExtensionAlias) == 0 {
		return nil, nil
	}
	ext := fileExtension(cp.Path())
	substitutes, ok := e.options.ExtensionAlias[ext]
	if !ok {
		return nil, nil
	}

	base := strings.TrimSuffix(cp.Path(), ext)
	var tried []string
	for _, sub := range substitutes {
		candidate := e.cache.Value(base + sub)
		if resolved, err := e.loadAliasOrFile(candidate, ctx); err != nil {
			return nil, err
		} else if resolved != nil {
			ctx.WithFullySpecified(false)
			return resolved, nil
		}
		tried = append(tried, base+sub)
	}

	if !cp.IsFile(e.cache.FS, ctx) || !e.checkRestrictions(cp.Path()) {
		ctx.WithFullySpecified(false)
		return nil, nil
	}

	return nil, rerrors.ExtensionAlias(rerrors.ExtensionAliasInfo{
		File:  cp.Path(),
		Tried: tried,
		Dir:   baseDir(cp.Path()),
	})
}

// loadRoots tries each configured root directory for a specifier that
// begins with a server-relative slash.
func (e *Engine) loadRoots(specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if len(e.options.Roots) == 0 || !strings.HasPrefix(specifier, "/") {
		return nil, nil
	}
	stripped := strings.TrimPrefix(specifier, "/")
	for _, root := range e.options.Roots {
		rootCached := e.cache.Value(root)
		if resolved, err := e.requireRelative(rootCached, "./"+stripped, ctx); err == nil && resolved != nil {
			return resolved, nil
		}
	}
	return nil, nil
}

func baseName(p string) string {
	trimmed := strings.TrimRight(p, "/\\")
	idx := strings.LastIndexAny(trimmed, "/\\")
	if idx < 0 {
		return trimmed
	}
	return trimmed[idx+1:]
}

func baseDir(p string) string {
	idx := strings.LastIndexAny(p, "/\\")
	if idx < 0 {
		return "."
	}
	return p[:idx]
}

// fileExtension returns the final "." + suffix of p's base name, or "" if
// p has no extension (a leading dot, as in ".gitignore", doesn't count).
func fileExtension(p string) string {
	base := baseName(p)
	idx := strings.LastIndexByte(base, '.')
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}
