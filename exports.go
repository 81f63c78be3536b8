package goresolve

import (
	"strings"

	"github.com/standardbeagle/goresolve/internal/cache"
	rerrors "github.com/standardbeagle/goresolve/internal/errors"
	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
	"github.com/standardbeagle/goresolve/internal/resolvectx"
)

// packageResolve implements PACKAGE_RESOLVE: resolve a bare specifier
// ("pkg" or "pkg/sub") by walking up through each configured module
// directory looking for a package with that name, trying its exports map
// before falling back to treating the remainder as a plain relative path
// inside the package directory.
func (e *Engine) packageResolve(cp *cache.CachedPath, specifier string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	packageName, subpath := pkgjson.ParsePackageSpecifier(specifier)
	if err := e.requireCore(packageName); err != nil {
		return nil, err
	}

	for _, moduleName := range e.options.Modules {
		for cur := cp; cur != nil; cur = cur.Parent() {
			if !cur.IsDir(e.cache.FS, ctx) {
				continue
			}
			moduleDir := e.getModuleDirectory(cur, moduleName, ctx)
			if moduleDir == nil {
				continue
			}
			packageURL := pathutil.NormalizeWith(moduleDir.Path(), packageName)
			packageCached := e.cache.Value(packageURL)
			if !packageCached.IsDir(e.cache.FS, ctx) {
				continue
			}

			pj, err := e.cache.PackageJSON(packageCached, &e.options, ctx)
			if err != nil {
				return nil, err
			}
			if pj != nil {
				for _, exports := range pj.ExportsFields(e.options.ExportsFields) {
					resolved, err := e.packageExportsResolve(packageURL, "."+subpath, exports, ctx)
					if err != nil {
						return nil, err
					}
					if resolved != nil {
						return resolved, nil
					}
				}
			}

			// Subpath equal to the literal string "." never actually occurs
			// here: ParsePackageSpecifier yields "" for a bare package name,
			// never ".". This mirrors the upstream main-field fallback
			// check verbatim rather than "fixing" it to subpath == "".
			if subpath == "." && pj != nil {
				for _, main := range pj.MainFields(e.options.MainFields) {
					mainPath := main
					if !isRelativeSpecifier(mainPath) {
						mainPath = "./" + mainPath
					}
					mainCached := e.cache.Value(pathutil.NormalizeWith(packageURL, mainPath))
					if resolved, err := e.loadAsFile(mainCached, ctx); err == nil && resolved != nil {
						return resolved, nil
					}
				}
			}

			newSpecifier := "." + subpath
			ctx.WithFullySpecified(false)
			return e.require(packageCached, newSpecifier, ctx)
		}
	}
	return nil, rerrors.NotFound(specifier)
}

// packageExportsResolve implements PACKAGE_EXPORTS_RESOLVE.
func (e *Engine) packageExportsResolve(packageURL, subpath string, exports pkgjson.Value, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	if exports.IsObject() && !pkgjson.ValidateExportsObject(exports.Obj) {
		return nil, rerrors.InvalidPackageConfig(pathutil.NormalizeWith(packageURL, "package.json"))
	}

	if subpath == "." {
		if ctx.Query != "" || ctx.Fragment != "" {
			return nil, rerrors.PackagePathNotExported(subpath, pathutil.NormalizeWith(packageURL, "package.json"))
		}
		if mainExport, ok := pkgjson.MainExport(exports); ok {
			resolved, err := e.packageTargetResolve(packageURL, ".", mainExport, "", false, false, e.options.ConditionNames, ctx)
			if err != nil {
				return nil, err
			}
			if resolved != nil {
				return resolved, nil
			}
		}
	}

	if exports.IsObject() {
		resolved, err := e.packageImportsExportsResolve(subpath, exports.Obj, packageURL, false, e.options.ConditionNames, ctx)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}

	return nil, rerrors.PackagePathNotExported(subpath, pathutil.NormalizeWith(packageURL, "package.json"))
}

// packageImportsResolve implements PACKAGE_IMPORTS_RESOLVE: specifier must
// start with "#".
func (e *Engine) packageImportsResolve(specifier string, pj *pkgjson.PackageJson, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	hasImports := false
	for _, imports := range pj.ImportsFields(e.options.ImportsFields) {
		if !hasImports {
			hasImports = true
			if specifier == "#" || strings.HasPrefix(specifier, "#/") {
				return nil, rerrors.PackageImportNotDefined(specifier, pj.Path)
			}
		}
		resolved, err := e.packageImportsExportsResolve(specifier, imports, pj.Directory(), true, e.options.ConditionNames, ctx)
		if err != nil {
			return nil, err
		}
		if resolved != nil {
			return resolved, nil
		}
	}
	if hasImports {
		return nil, rerrors.PackageImportNotDefined(specifier, pj.Path)
	}
	return nil, nil
}

// packageImportsExportsResolve implements PACKAGE_IMPORTS_EXPORTS_RESOLVE's
// key matching (delegated to pkgjson.MatchKey) followed by target
// resolution.
func (e *Engine) packageImportsExportsResolve(matchKey string, matchObj *pkgjson.Object, packageURL string, isImports bool, conditions []string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	result := pkgjson.MatchKey(matchKey, matchObj)
	if !result.Found {
		return nil, nil
	}
	hasPattern := strings.Contains(result.Key, "*")
	return e.packageTargetResolve(packageURL, result.Key, result.Target, result.PatternMatch, hasPattern, isImports, conditions, ctx)
}

// packageTargetResolve implements PACKAGE_TARGET_RESOLVE.
func (e *Engine) packageTargetResolve(packageURL, targetKey string, target pkgjson.Value, patternMatch string, hasPatternMatch, isImports bool, conditions []string, ctx *resolvectx.Context) (*cache.CachedPath, error) {
	switch target.Kind {
	case pkgjson.KindString:
		str := target.Str
		if !strings.HasPrefix(str, "./") {
			if !isImports || strings.HasPrefix(str, "../") || strings.HasPrefix(str, "/") {
				return nil, rerrors.InvalidPackageTarget(str)
			}
			normalized, err := normalizeStringTarget(targetKey, str, patternMatch, hasPatternMatch, packageURL)
			if err != nil {
				return nil, err
			}
			packageCached := e.cache.Value(packageURL)
			return e.packageResolve(packageCached, normalized, ctx)
		}

		normalized, err := normalizeStringTarget(targetKey, str, patternMatch, hasPatternMatch, packageURL)
		if err != nil {
			return nil, err
		}
		if pathutil.IsInvalidExportsTarget(normalized) {
			return nil, rerrors.InvalidPackageTarget(normalized)
		}
		resolvedPath := pathutil.NormalizeWith(packageURL, normalized)
		return e.cache.Value(resolvedPath), nil

	case pkgjson.KindObject:
		for _, key := range target.Obj.Keys() {
			if key != "default" && !containsString(conditions, key) {
				continue
			}
			v, _ := target.Obj.Get(key)
			resolved, err := e.packageTargetResolve(packageURL, targetKey, v, patternMatch, hasPatternMatch, isImports, conditions, ctx)
			if err != nil {
				return nil, err
			}
			if resolved != nil {
				return resolved, nil
			}
		}
		return nil, nil

	case pkgjson.KindArray:
		if len(target.Arr) == 0 {
			pm := "."
			if hasPatternMatch {
				pm = patternMatch
			}
			return nil, rerrors.PackagePathNotExported(pm, pathutil.NormalizeWith(packageURL, "package.json"))
		}
		// Each candidate is tried in order; a failing candidate (error or no
		// match) simply falls through to the next one, and the array
		// resolves to "no match" rather than surfacing any one candidate's
		// error if every candidate fails.
		for _, item := range target.Arr {
			resolved, err := e.packageTargetResolve(packageURL, targetKey, item, patternMatch, hasPatternMatch, isImports, conditions, ctx)
			if err == nil && resolved != nil {
				return resolved, nil
			}
		}
		return nil, nil

	default:
		return nil, nil
	}
}

// normalizeStringTarget substitutes a captured pattern match into target,
// including the deprecated trailing-slash folder-mapping form (both
// targetKey and target must end with "/").
func normalizeStringTarget(targetKey, target, patternMatch string, hasPatternMatch bool, packageURL string) (string, error) {
	if !hasPatternMatch {
		return target, nil
	}
	if !strings.Contains(targetKey, "*") && !strings.Contains(target, "*") {
		if strings.HasSuffix(targetKey, "/") && strings.HasSuffix(target, "/") {
			return target + patternMatch, nil
		}
		return "", rerrors.InvalidPackageConfigDirectory(pathutil.NormalizeWith(packageURL, "package.json"))
	}
	return strings.ReplaceAll(target, "*", patternMatch), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
