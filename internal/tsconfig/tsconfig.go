// Package tsconfig parses tsconfig.json (JSON-with-comments) and resolves
// compilerOptions.paths against a specifier (§4.5).
package tsconfig

import (
	"strings"

	"github.com/standardbeagle/goresolve/internal/pathutil"
	"github.com/standardbeagle/goresolve/internal/pkgjson"
)

const templateVariable = "${configDir}"

// ProjectReference is one entry of the "references" array.
type ProjectReference struct {
	Path     string
	Tsconfig *TsConfig
}

// CompilerOptions is the subset of "compilerOptions" this resolver reads.
type CompilerOptions struct {
	BaseURL   string
	HasBaseURL bool
	Paths     map[string][]string
	PathsOrder []string
	HasPaths  bool
	PathsBase string
}

// TsConfig is one parsed tsconfig.json (§3).
type TsConfig struct {
	Root            bool
	Path            string
	Extends         []string
	CompilerOptions CompilerOptions
	References      []ProjectReference
}

// Parse parses a JSONC document at path into a TsConfig. root is true only
// for the user-supplied top-level tsconfig (§3).
func Parse(root bool, path string, jsonc []byte) (*TsConfig, error) {
	stripped := StripComments(jsonc)
	var v pkgjson.Value
	if strings.TrimSpace(string(stripped)) == "" {
		v = pkgjson.Value{Kind: pkgjson.KindObject, Obj: pkgjson.NewObject()}
	} else {
		parsed, err := pkgjson.DecodeValue(stripped)
		if err != nil {
			return nil, err
		}
		v = parsed
	}
	if !v.IsObject() {
		return nil, errNotObject
	}

	tc := &TsConfig{Root: root, Path: path}
	if extendsVal, ok := v.Obj.Get("extends"); ok {
		tc.Extends = parseExtends(extendsVal)
	}
	if compilerVal, ok := v.Obj.Get("compilerOptions"); ok && compilerVal.IsObject() {
		tc.CompilerOptions = parseCompilerOptions(compilerVal.Obj)
	}
	if refsVal, ok := v.Obj.Get("references"); ok && refsVal.IsArray() {
		tc.References = parseReferences(refsVal.Arr)
	}

	directory := tc.Directory()
	if tc.CompilerOptions.HasBaseURL && !strings.HasPrefix(tc.CompilerOptions.BaseURL, templateVariable) {
		tc.CompilerOptions.BaseURL = pathutil.NormalizeWith(directory, tc.CompilerOptions.BaseURL)
	}
	if tc.CompilerOptions.HasPaths {
		if tc.CompilerOptions.HasBaseURL {
			tc.CompilerOptions.PathsBase = tc.CompilerOptions.BaseURL
		} else {
			tc.CompilerOptions.PathsBase = directory
		}
	}
	return tc, nil
}

func parseExtends(v pkgjson.Value) []string {
	switch v.Kind {
	case pkgjson.KindString:
		return []string{v.Str}
	case pkgjson.KindArray:
		out := make([]string, 0, len(v.Arr))
		for _, item := range v.Arr {
			if s, ok := item.AsString(); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func parseCompilerOptions(obj *pkgjson.Object) CompilerOptions {
	co := CompilerOptions{Paths: make(map[string][]string)}
	if v, ok := obj.Get("baseUrl"); ok {
		if s, ok := v.AsString(); ok {
			co.BaseURL = s
			co.HasBaseURL = true
		}
	}
	if v, ok := obj.Get("paths"); ok && v.IsObject() {
		co.HasPaths = true
		for _, alias := range v.Obj.Keys() {
			targetsVal, _ := v.Obj.Get(alias)
			if !targetsVal.IsArray() {
				continue
			}
			var targets []string
			for _, t := range targetsVal.Arr {
				if s, ok := t.AsString(); ok {
					targets = append(targets, s)
				}
			}
			co.Paths[alias] = targets
			co.PathsOrder = append(co.PathsOrder, alias)
		}
	}
	return co
}

func parseReferences(arr []pkgjson.Value) []ProjectReference {
	var out []ProjectReference
	for _, entry := range arr {
		if !entry.IsObject() {
			continue
		}
		pathVal, ok := entry.Obj.Get("path")
		if !ok {
			continue
		}
		s, ok := pathVal.AsString()
		if !ok {
			continue
		}
		out = append(out, ProjectReference{Path: s})
	}
	return out
}

// Directory returns the directory containing this tsconfig.json.
func (t *TsConfig) Directory() string {
	return pathutil.Normalize(parentDir(t.Path))
}

func parentDir(p string) string {
	p = strings.TrimRight(p, "/\\")
	idx := strings.LastIndexAny(p, "/\\")
	if idx < 0 {
		return "."
	}
	if idx == 0 {
		return p[:1]
	}
	return p[:idx]
}

// Build applies `${configDir}` template-variable substitution to paths,
// paths_base, and base_url, after extends/references are fully resolved.
// Only the root tsconfig does this (§3, §4.5 step 3).
func (t *TsConfig) Build() *TsConfig {
	if !t.Root {
		return t
	}
	dir := t.Directory()
	for alias, targets := range t.CompilerOptions.Paths {
		for i, target := range targets {
			targets[i] = substituteTemplateVariable(dir, target)
		}
		t.CompilerOptions.Paths[alias] = targets
	}
	t.CompilerOptions.PathsBase = substituteTemplateVariable(dir, t.CompilerOptions.PathsBase)
	if t.CompilerOptions.HasBaseURL {
		t.CompilerOptions.BaseURL = substituteTemplateVariable(dir, t.CompilerOptions.BaseURL)
	}
	return t
}

func substituteTemplateVariable(directory, p string) string {
	stripped, ok := cutPrefix(p, templateVariable)
	if !ok {
		return p
	}
	if rest, ok := cutPrefix(stripped, "/"); ok {
		return pathutil.NormalizeWith(directory, rest)
	}
	return pathutil.NormalizeWith(directory, stripped)
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// ExtendTsconfig copies paths/base_url from other into t, but only if t
// itself lacks them (§3 "Extending copies paths/base_url only if the
// extender lacks them").
func (t *TsConfig) ExtendTsconfig(other *TsConfig) {
	if !t.CompilerOptions.HasPaths {
		if t.CompilerOptions.HasBaseURL {
			t.CompilerOptions.PathsBase = t.CompilerOptions.BaseURL
		} else {
			t.CompilerOptions.PathsBase = other.CompilerOptions.PathsBase
		}
		t.CompilerOptions.Paths = other.CompilerOptions.Paths
		t.CompilerOptions.PathsOrder = other.CompilerOptions.PathsOrder
		t.CompilerOptions.HasPaths = other.CompilerOptions.HasPaths
	}
	if !t.CompilerOptions.HasBaseURL {
		t.CompilerOptions.BaseURL = other.CompilerOptions.BaseURL
		t.CompilerOptions.HasBaseURL = other.CompilerOptions.HasBaseURL
	}
}

// Resolve resolves specifier against this tsconfig, delegating to a
// project reference whose base path is a prefix of path, if any (§4.5
// step 2).
func (t *TsConfig) Resolve(path, specifier string) []string {
	for _, ref := range t.References {
		if ref.Tsconfig == nil {
			continue
		}
		if strings.HasPrefix(path, ref.Tsconfig.basePath()) {
			return ref.Tsconfig.ResolvePathAlias(specifier)
		}
	}
	return t.ResolvePathAlias(specifier)
}

func (t *TsConfig) basePath() string {
	if t.CompilerOptions.HasBaseURL {
		return t.CompilerOptions.BaseURL
	}
	return t.Directory()
}

// ResolvePathAlias implements §4.5's alias resolution (exact match, then
// longest-prefix wildcard match, plus a base_url fallback).
func (t *TsConfig) ResolvePathAlias(specifier string) []string {
	if strings.HasPrefix(specifier, "/") || strings.HasPrefix(specifier, ".") {
		return nil
	}

	var baseURLResult []string
	if t.CompilerOptions.HasBaseURL {
		baseURLResult = []string{pathutil.NormalizeWith(t.CompilerOptions.BaseURL, specifier)}
	}

	if !t.CompilerOptions.HasPaths {
		return baseURLResult
	}

	var paths []string
	if exact, ok := t.CompilerOptions.Paths[specifier]; ok {
		paths = exact
	} else {
		longestPrefix := 0
		longestSuffix := 0
		bestKey := ""
		found := false
		for _, key := range t.CompilerOptions.PathsOrder {
			idx := strings.IndexByte(key, '*')
			if idx < 0 {
				continue
			}
			prefix, suffix := key[:idx], key[idx+1:]
			if (!found || len(prefix) > longestPrefix) &&
				strings.HasPrefix(specifier, prefix) && strings.HasSuffix(specifier, suffix) {
				longestPrefix = len(prefix)
				longestSuffix = len(suffix)
				bestKey = key
				found = true
			}
		}
		if found {
			captured := specifier[longestPrefix : len(specifier)-longestSuffix]
			for _, target := range t.CompilerOptions.Paths[bestKey] {
				paths = append(paths, strings.ReplaceAll(target, "*", captured))
			}
		}
	}

	out := make([]string, 0, len(paths)+len(baseURLResult))
	for _, p := range paths {
		out = append(out, pathutil.NormalizeWith(t.CompilerOptions.PathsBase, p))
	}
	out = append(out, baseURLResult...)
	return out
}
