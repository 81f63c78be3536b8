package goresolve

import (
	"path"
	"strings"

	"github.com/standardbeagle/goresolve/internal/cache"
	rerrors "github.com/standardbeagle/goresolve/internal/errors"
	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
	"github.com/standardbeagle/goresolve/internal/rlog"
	"github.com/standardbeagle/goresolve/internal/specifier"
	"github.com/standardbeagle/goresolve/internal/suggest"
)

// require resolves specifier relative to cp, guarding against runaway
// recursion and splitting off any query/fragment suffix before dispatching.
func (e *Engine) require(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if ctx.Enter() {
		defer ctx.Exit()
		rlog.Warnf("recursion limit hit resolving %q", specifier)
		return nil, rerrors.Recursion(specifier)
	}
	defer ctx.Exit()

	resolved, path, err := e.loadParse(cp, specifier, ctx)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}
	return e.requireWithoutParse(cp, path, ctx)
}

// loadParse splits specifier into path/query/fragment, records them on ctx,
// and handles the case where a bare "#fragment" with no query is itself a
// literal path component (a file whose name contains '#'). Otherwise it
// returns the path part for require to dispatch.
func (e *Engine) loadParse(cp *cache.CachedPath, raw string, ctx *resolvectx.Context) (*cache.CachedPath, string, error) {
	parsed, err := specifier.Parse(raw)
	if err != nil {
		return nil, "", rerrors.Specifier(err.Error())
	}
	ctx.WithQueryFragment(parsed.Query, parsed.Fragment)

	if parsed.Fragment != "" && parsed.Query == "" {
		ctx.WithQueryFragment("", "")
		if resolved, err := e.requireWithoutParse(cp, parsed.Path+parsed.Fragment, ctx); err == nil && resolved != nil {
			return resolved, "", nil
		}
		ctx.WithQueryFragment(parsed.Query, parsed.Fragment)
	}
	if parsed.Path == "" {
		// "#name" parses as an empty path plus a fragment; it is an imports
		// specifier, so it is dispatched whole.
		return nil, raw, nil
	}
	return nil, parsed.Path, nil
}

// requireWithoutParse dispatches an already-parsed specifier (no query or
// fragment stripping left to do). It tries tsconfig paths and the
// configured alias list first, then dispatches on the specifier's shape;
// any non-Ignored failure from that dispatch gets one more chance against
// the configured fallback list before the original error is returned.
func (e *Engine) requireWithoutParse(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	// tsconfig paths resolution uses a throwaway context: it must not leak
	// query/fragment/fully-specified state from the caller's in-flight
	// resolution into the paths candidates it tries.
	if resolved, err := e.loadTsconfigPaths(cp, specifier, resolvectx.New()); err == nil && resolved != nil {
		return resolved, nil
	}

	if resolved, err := e.loadAlias(cp, specifier, e.options.Alias, ctx); err != nil {
		return nil, err
	} else if resolved != nil {
		return resolved, nil
	}

	resolved, dispatchErr := e.dispatchRequire(cp, specifier, ctx)
	if dispatchErr == nil {
		return resolved, nil
	}
	if rerrors.IsIgnored(dispatchErr) {
		return nil, dispatchErr
	}

	if fallback, ferr := e.loadAlias(cp, specifier, e.options.Fallback, ctx); ferr == nil && fallback != nil {
		return fallback, nil
	}
	return nil, dispatchErr
}

func (e *Engine) dispatchRequire(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	switch {
	case pathutil.HasSlashStart(specifier):
		return e.requireAbsolute(cp, specifier, ctx)
	case isRelativeSpecifier(specifier):
		return e.requireRelative(cp, specifier, ctx)
	case strings.HasPrefix(specifier, "#"):
		return e.requireHash(cp, specifier, ctx)
	default:
		if err := e.requireCore(specifier); err != nil {
			return nil, err
		}
		return e.requireBare(cp, specifier, ctx)
	}
}

// requireCore reports a Builtin error if builtin-module resolution is
// enabled and specifier names a Node.js core module.
func (e *Engine) requireCore(specifier string) error {
	if !e.options.BuiltinModules {
		return nil
	}
	bare := strings.TrimPrefix(specifier, "node:")
	if isNodeBuiltin(bare) {
		full := specifier
		if !strings.HasPrefix(specifier, "node:") {
			full = "node:" + specifier
		}
		return rerrors.Builtin(full)
	}
	return nil
}

func (e *Engine) requireAbsolute(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if !e.options.PreferRelative && e.options.PreferAbsolute {
		if resolved, err := e.loadPackageSelfOrNodeModules(cp, specifier, ctx); err == nil && resolved != nil {
			return resolved, nil
		}
	}
	if resolved, err := e.loadRoots(specifier, ctx); err != nil {
		return nil, err
	} else if resolved != nil {
		return resolved, nil
	}

	target := e.cache.Value(specifier)
	resolved, err := e.loadAsFileOrDirectory(target, specifier, ctx)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}
	return nil, rerrors.NotFoundWithSuggestions(specifier, e.suggestSiblings(specifier))
}

func (e *Engine) requireRelative(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	joined := pathutil.NormalizeWith(cp.Path(), specifier)
	target := e.cache.Value(joined)
	resolved, err := e.loadAsFileOrDirectory(target, specifier, ctx)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}
	return nil, rerrors.NotFoundWithSuggestions(specifier, e.suggestSiblings(joined))
}

func (e *Engine) requireHash(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if resolved, err := e.loadPackageImports(cp, specifier, ctx); err != nil {
		return nil, err
	} else if resolved != nil {
		return resolved, nil
	}
	resolved, err := e.loadPackageSelfOrNodeModules(cp, specifier, ctx)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}
	return nil, rerrors.NotFoundWithSuggestions(specifier, nil)
}

func (e *Engine) requireBare(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if e.options.PreferRelative {
		if resolved, err := e.requireRelative(cp, specifier, ctx); err == nil && resolved != nil {
			return resolved, nil
		}
	}
	resolved, err := e.loadPackageSelfOrNodeModules(cp, specifier, ctx)
	if err != nil {
		return nil, err
	}
	if resolved != nil {
		return resolved, nil
	}
	return nil, rerrors.NotFoundWithSuggestions(specifier, e.suggestBarePackage(cp, specifier, ctx))
}

// suggestSiblings lists the entries of resolvedPath's parent directory as
// "did you mean" candidates for a failed relative/absolute lookup. A
// listing failure just means no suggestions, not an error worth surfacing.
func (e *Engine) suggestSiblings(resolvedPath string) []string {
	dir := path.Dir(resolvedPath)
	entries, err := e.cache.FS.ReadDir(dir)
	if err != nil {
		return nil
	}
	return suggest.Candidates(path.Base(resolvedPath), entries)
}

// suggestBarePackage fuzzy-matches specifier's package name against the
// sibling packages of the nearest node_modules directory found walking up
// from cp, across every configured module directory name.
func (e *Engine) suggestBarePackage(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) []string {
	packageName, _ := pkgjson.ParsePackageSpecifier(specifier)
	for _, moduleName := range e.options.Modules {
		for cur := cp; cur != nil; cur = cur.Parent() {
			if !cur.IsDir(e.cache.FS, ctx) {
				continue
			}
			moduleDir := e.getModuleDirectory(cur, moduleName, ctx)
			if moduleDir == nil {
				continue
			}
			entries, err := e.cache.FS.ReadDir(moduleDir.Path())
			if err != nil {
				continue
			}
			if candidates := suggest.Candidates(packageName, entries); len(candidates) > 0 {
				return candidates
			}
		}
	}
	return nil
}
