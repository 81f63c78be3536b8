package goresolve

import (
	"github.com/standardbeagle/goresolve/internal/cache"
	rerrors "github.com/standardbeagle/goresolve/internal/errors"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
	"github.com/standardbeagle/goresolve/internal/tsconfig"
)

// loadTsconfigPaths resolves specifier against the configured tsconfig's
// compilerOptions.paths, trying each candidate path in turn. The lookup
// runs in a throwaway context so it never inherits the caller's in-flight
// query/fragment/fully-specified state.
func (e *Engine) loadTsconfigPaths(cp *cache.CachedPath, specifier string, scratch *resolvectx.Context) (*cache.CachedPath, error) {
	if e.options.Tsconfig == nil {
		return nil, nil
	}

	root, err := e.loadTsconfig(true, e.options.Tsconfig.ConfigFile, e.options.Tsconfig.ReferencesMode, e.options.Tsconfig.ReferencePaths)
	if err != nil {
		return nil, err
	}

	for _, candidate := range root.Resolve(cp.Path(), specifier) {
		candidateCached := e.cache.Value(candidate)
		if resolved, err := e.requireRelative(candidateCached, ".", scratch); err == nil && resolved != nil {
			return resolved, nil
		}
	}
	return nil, nil
}

// loadTsconfig loads and fully builds the tsconfig at path: resolving its
// extends chain (each link fully processed in turn) and its project
// references (each loaded via loadReferencedTsconfig, which does NOT
// process the referenced file's own extends chain — only a self-reference
// cycle check, mirroring the asymmetry between a root config's extends
// processing and a reference's).
func (e *Engine) loadTsconfig(root bool, path string, refMode options.TsconfigReferencesMode, refPaths []string) (*tsconfig.TsConfig, error) {
	return e.cache.Tsconfig(path, func() (*tsconfig.TsConfig, error) {
		tc, err := e.resolveTsconfigFile(root, path)
		if err != nil {
			return nil, err
		}

		for _, ext := range tc.Extends {
			extPath, err := e.getExtendedTsconfigPath(tc.Directory(), ext)
			if err != nil {
				return nil, err
			}
			extTc, err := e.loadTsconfig(false, extPath, options.TsconfigReferencesDisabled, nil)
			if err != nil {
				return nil, err
			}
			tc.ExtendTsconfig(extTc)
		}

		switch refMode {
		case options.TsconfigReferencesDisabled:
			tc.References = nil
		default:
			if len(refPaths) > 0 {
				refs := make([]tsconfig.ProjectReference, len(refPaths))
				for i, p := range refPaths {
					refs[i] = tsconfig.ProjectReference{Path: p}
				}
				tc.References = refs
			}
		}

		for i := range tc.References {
			ref := &tc.References[i]
			refPath := pathutil.NormalizeWith(tc.Directory(), ref.Path)
			refTc, err := e.loadReferencedTsconfig(refPath, tc.Path)
			if err != nil {
				return nil, err
			}
			ref.Tsconfig = refTc
		}

		return tc.Build(), nil
	})
}

// loadReferencedTsconfig loads the tsconfig a "references" entry points at.
// Unlike loadTsconfig, it does not process the referenced file's own
// extends chain — it only checks for a reference cycle back to the
// referencing config.
func (e *Engine) loadReferencedTsconfig(refPath, selfPath string) (*tsconfig.TsConfig, error) {
	return e.cache.Tsconfig(refPath, func() (*tsconfig.TsConfig, error) {
		tc, err := e.resolveTsconfigFile(true, refPath)
		if err != nil {
			return nil, err
		}
		if tc.Path == selfPath {
			return nil, rerrors.TsconfigSelfReference(refPath)
		}
		return tc.Build(), nil
	})
}

// resolveTsconfigFile reads and parses the tsconfig at path, treating path
// as a literal file if it is one, else as a directory containing
// tsconfig.json, else as a bare name needing a ".json" suffix.
func (e *Engine) resolveTsconfigFile(root bool, path string) (*tsconfig.TsConfig, error) {
	cp := e.cache.Value(path)
	resolvedPath := path
	if meta, err := cp.Meta(e.cache.FS); err == nil {
		switch {
		case meta.IsDir:
			resolvedPath = pathutil.NormalizeWith(path, "tsconfig.json")
		case meta.IsFile:
			resolvedPath = path
		default:
			resolvedPath = path + ".json"
		}
	} else {
		resolvedPath = path + ".json"
	}

	data, err := e.cache.FS.Read(resolvedPath)
	if err != nil {
		return nil, rerrors.TsconfigNotFound(resolvedPath)
	}
	return tsconfig.Parse(root, resolvedPath, data)
}

// getExtendedTsconfigPath resolves one "extends" entry to an absolute
// tsconfig path: an absolute specifier is used as-is, a relative one is
// joined against directory, and a bare specifier (e.g. "@tsconfig/node16")
// is resolved like a package import restricted to tsconfig.json lookups.
func (e *Engine) getExtendedTsconfigPath(directory, specifier string) (string, error) {
	if specifier == "" {
		return "", rerrors.Specifier("empty tsconfig extends specifier")
	}
	switch specifier[0] {
	case '/':
		return pathutil.Normalize(specifier), nil
	case '.':
		return pathutil.NormalizeWith(directory, specifier), nil
	default:
		restricted := options.ResolveOptions{
			Extensions:     []string{".json"},
			MainFields:     []string{"main"},
			MainFiles:      []string{"tsconfig.json"},
			Modules:        e.options.Modules,
			ConditionNames: e.options.ConditionNames,
			ExportsFields:  e.options.ExportsFields,
			ImportsFields:  e.options.ImportsFields,
		}.Sanitize()
		restrictedEngine := e.CloneWithOptions(restricted)
		dirCached := restrictedEngine.cache.Value(directory)
		resolved, err := restrictedEngine.loadPackageSelfOrNodeModules(dirCached, specifier, resolvectx.New())
		if err != nil {
			if re, ok := err.(*rerrors.ResolveError); ok && re.Kind == rerrors.KindNotFound {
				return "", rerrors.TsconfigNotFound(specifier)
			}
			return "", err
		}
		if resolved == nil {
			return "", rerrors.TsconfigNotFound(specifier)
		}
		return resolved.Path(), nil
	}
}
