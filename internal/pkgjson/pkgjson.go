// Package pkgjson parses package.json description files and implements the
// pure, file-system-free parts of the Node.js PACKAGE_EXPORTS_RESOLVE /
// PACKAGE_IMPORTS_RESOLVE family (§4.4, §4.7.6-§4.7.10): field access,
// browser-field alias lookup, exports-object validation, and pattern-key
// matching. Resolving a matched target string to an actual file is the
// resolution engine's job (it needs the cache and recursion), so
// PACKAGE_TARGET_RESOLVE itself lives in the root package.
package pkgjson

import (
	"path"
	"strings"

	rerrors "github.com/standardbeagle/goresolve/internal/errors"
	"github.com/standardbeagle/goresolve/internal/pathutil"
)

// ModuleType is the package.json "type" field.
type ModuleType int

const (
	ModuleTypeUnset ModuleType = iota
	ModuleTypeCommonJS
	ModuleTypeModule
)

func (t ModuleType) String() string {
	switch t {
	case ModuleTypeModule:
		return "module"
	case ModuleTypeCommonJS:
		return "commonjs"
	default:
		return ""
	}
}

// SideEffects holds the parsed "sideEffects" field.
type SideEffects struct {
	Bool  *bool
	Glob  string
	Globs []string
}

// PackageJson is the parsed, immutable-after-construction description file.
type PackageJson struct {
	Path        string // declared path, including "package.json"
	RealPath    string // path after symlink resolution
	Name        string
	Type        ModuleType
	SideEffects *SideEffects

	raw *Value // the full parsed document, for field iteration
}

// Parse parses json (the file's raw bytes) declared at declPath with the
// given realPath (post-symlink-resolution, per §3 CachedPath.package_json).
func Parse(declPath, realPath string, json []byte) (*PackageJson, error) {
	v, err := DecodeValue(json)
	if err != nil {
		return nil, rerrors.JSON(declPath, err)
	}
	pkg := &PackageJson{Path: declPath, RealPath: realPath, raw: &v}
	if v.IsObject() {
		if nameVal, ok := v.Obj.Get("name"); ok {
			if s, ok := nameVal.AsString(); ok {
				pkg.Name = s
			}
		}
		if typeVal, ok := v.Obj.Get("type"); ok {
			if s, ok := typeVal.AsString(); ok {
				switch s {
				case "module":
					pkg.Type = ModuleTypeModule
				case "commonjs":
					pkg.Type = ModuleTypeCommonJS
				}
			}
		}
		if seVal, ok := v.Obj.Get("sideEffects"); ok {
			pkg.SideEffects = parseSideEffects(seVal)
		}
	}
	return pkg, nil
}

func parseSideEffects(v Value) *SideEffects {
	switch v.Kind {
	case KindBool:
		b := v.Bool
		return &SideEffects{Bool: &b}
	case KindString:
		return &SideEffects{Glob: v.Str}
	case KindArray:
		globs := make([]string, 0, len(v.Arr))
		for _, item := range v.Arr {
			if s, ok := item.AsString(); ok {
				globs = append(globs, s)
			}
		}
		return &SideEffects{Globs: globs}
	default:
		return nil
	}
}

// Directory returns the directory containing package.json (the parent of
// RealPath).
func (p *PackageJson) Directory() string {
	return path.Dir(filepathToSlash(p.RealPath))
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

func getByPath(obj *Object, dotted []string) (Value, bool) {
	if len(dotted) == 0 || obj == nil {
		return Value{}, false
	}
	v, ok := obj.Get(dotted[0])
	if !ok {
		return Value{}, false
	}
	for _, key := range dotted[1:] {
		if !v.IsObject() {
			return Value{}, false
		}
		v, ok = v.Obj.Get(key)
		if !ok {
			return Value{}, false
		}
	}
	return v, true
}

// MainFields iterates the configured main-field values (in configured
// order) that are present as strings.
func (p *PackageJson) MainFields(mainFields []string) []string {
	if p.raw == nil || !p.raw.IsObject() {
		return nil
	}
	var out []string
	for _, field := range mainFields {
		if v, ok := p.raw.Obj.Get(field); ok {
			if s, ok := v.AsString(); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// ExportsFields iterates the configured exports-field values (dotted
// paths), in configured order.
func (p *PackageJson) ExportsFields(exportsFields [][]string) []Value {
	if p.raw == nil || !p.raw.IsObject() {
		return nil
	}
	var out []Value
	for _, dotted := range exportsFields {
		if v, ok := getByPath(p.raw.Obj, dotted); ok {
			out = append(out, v)
		}
	}
	return out
}

// ImportsFields iterates the configured imports-field objects, in
// configured order.
func (p *PackageJson) ImportsFields(importsFields [][]string) []*Object {
	if p.raw == nil || !p.raw.IsObject() {
		return nil
	}
	var out []*Object
	for _, dotted := range importsFields {
		if v, ok := getByPath(p.raw.Obj, dotted); ok && v.IsObject() {
			out = append(out, v.Obj)
		}
	}
	return out
}

func (p *PackageJson) browserFields(aliasFields []string) []*Object {
	if p.raw == nil || !p.raw.IsObject() {
		return nil
	}
	var out []*Object
	for _, field := range aliasFields {
		if v, ok := p.raw.Obj.Get(field); ok && v.IsObject() {
			out = append(out, v.Obj)
		}
	}
	return out
}

// ResolveBrowserField implements §4.4 resolve_browser_field. If specifier
// is non-empty it is looked up directly; otherwise every key in the
// configured browser maps is compared, as dir/key, against candidatePath.
func (p *PackageJson) ResolveBrowserField(candidatePath, specifier string, aliasFields []string) (string, error) {
	dir := p.Directory()
	for _, obj := range p.browserFields(aliasFields) {
		if specifier != "" {
			if v, ok := obj.Get(specifier); ok {
				return aliasValue(candidatePath, v)
			}
			continue
		}
		for _, key := range obj.Keys() {
			v, _ := obj.Get(key)
			joined := pathutil.NormalizeWith(dir, key)
			if joined == candidatePath {
				return aliasValue(candidatePath, v)
			}
		}
	}
	return "", nil
}

func aliasValue(candidatePath string, v Value) (string, error) {
	switch v.Kind {
	case KindString:
		return v.Str, nil
	case KindBool:
		if !v.Bool {
			return "", rerrors.Ignored(candidatePath)
		}
		return "", nil
	default:
		return "", nil
	}
}

// ValidateExportsObject enforces §4.7.7 rule 1: an exports object may not
// mix keys starting with "."/"#" with keys that don't.
func ValidateExportsObject(obj *Object) bool {
	hasDot, withoutDot := false, false
	for _, key := range obj.Keys() {
		startsWithDotOrHash := strings.HasPrefix(key, ".") || strings.HasPrefix(key, "#")
		hasDot = hasDot || startsWithDotOrHash
		withoutDot = withoutDot || !startsWithDotOrHash
		if hasDot && withoutDot {
			return false
		}
	}
	return true
}

// MainExport computes the "." export per §4.7.7 rule 2-3: exports itself
// if it is a string/array; for an object, the value at the "." key if
// present, else the object itself if it has no "./"/"#"-prefixed keys.
func MainExport(exports Value) (Value, bool) {
	switch exports.Kind {
	case KindString, KindArray:
		return exports, true
	case KindObject:
		if v, ok := exports.Obj.Get("."); ok {
			return v, true
		}
		for _, key := range exports.Obj.Keys() {
			if strings.HasPrefix(key, "./") || strings.HasPrefix(key, "#") {
				return Value{}, false
			}
		}
		return exports, true
	default:
		return Value{}, false
	}
}

// MatchResult is the outcome of PACKAGE_IMPORTS_EXPORTS_RESOLVE's pure key
// matching (§4.7.8): the matched key, its target value, and the captured
// middle (empty for an exact, non-wildcard match).
type MatchResult struct {
	Key          string
	Target       Value
	PatternMatch string
	Found        bool
}

// MatchKey implements the key-matching half of PACKAGE_IMPORTS_EXPORTS_RESOLVE.
// matchKey is compared against matchObj's keys as-is, so it must already be
// in the same "./foo" or "#foo" form (exports callers prepend the "." to
// the package subpath before calling).
func MatchKey(matchKey string, matchObj *Object) MatchResult {
	if strings.HasSuffix(matchKey, "/") {
		return MatchResult{}
	}
	if !strings.Contains(matchKey, "*") {
		if target, ok := matchObj.Get(matchKey); ok {
			return MatchResult{Key: matchKey, Target: target, Found: true}
		}
	}

	var bestTarget Value
	bestMatch := ""
	bestKey := ""
	found := false
	for _, expansionKey := range matchObj.Keys() {
		if !strings.HasPrefix(expansionKey, "./") && !strings.HasPrefix(expansionKey, "#") {
			continue
		}
		target, _ := matchObj.Get(expansionKey)
		if idx := strings.IndexByte(expansionKey, '*'); idx >= 0 {
			patternBase := expansionKey[:idx]
			patternTrailer := expansionKey[idx+1:]
			if strings.Contains(patternTrailer, "*") {
				continue
			}
			if !strings.HasPrefix(matchKey, patternBase) {
				continue
			}
			ok := patternTrailer == "" ||
				(len(matchKey) >= len(expansionKey) && strings.HasSuffix(matchKey, patternTrailer))
			if !ok {
				continue
			}
			if PatternKeyCompare(bestKey, expansionKey) <= 0 {
				continue
			}
			bestTarget = target
			bestMatch = matchKey[len(patternBase) : len(matchKey)-len(patternTrailer)]
			bestKey = expansionKey
			found = true
		} else if strings.HasSuffix(expansionKey, "/") &&
			strings.HasPrefix(matchKey, expansionKey) &&
			PatternKeyCompare(bestKey, expansionKey) > 0 {
			bestTarget = target
			bestMatch = matchKey[len(expansionKey):]
			bestKey = expansionKey
			found = true
		}
	}
	if !found {
		return MatchResult{}
	}
	return MatchResult{Key: bestKey, Target: bestTarget, PatternMatch: bestMatch, Found: true}
}

// PatternKeyCompare orders two pattern keys by specificity (§4.7.10). It
// returns a value >0 when keyB is MORE specific than keyA (a longer base
// before the wildcard), mirroring Ordering::Greater in the original
// key-matching loop, where `pattern_key_compare(best, candidate).is_gt()`
// guards replacing best with a strictly more specific candidate.
func PatternKeyCompare(keyA, keyB string) int {
	if keyA == "" {
		return 1
	}
	aPos := strings.IndexByte(keyA, '*')
	baseLenA := len(keyA)
	if aPos >= 0 {
		baseLenA = aPos + 1
	}
	bPos := strings.IndexByte(keyB, '*')
	baseLenB := len(keyB)
	if bPos >= 0 {
		baseLenB = bPos + 1
	}
	if baseLenA > baseLenB {
		return -1
	}
	if baseLenB > baseLenA {
		return 1
	}
	if !strings.Contains(keyA, "*") {
		return 1
	}
	if !strings.Contains(keyB, "*") {
		return -1
	}
	if len(keyA) > len(keyB) {
		return -1
	}
	if len(keyB) > len(keyA) {
		return 1
	}
	return 0
}

// StripPackageName returns the subpath after packageName if specifier is
// exactly packageName or packageName followed by a slash, else ("", false).
func StripPackageName(specifier, packageName string) (string, bool) {
	if !strings.HasPrefix(specifier, packageName) {
		return "", false
	}
	tail := specifier[len(packageName):]
	if tail == "" || strings.HasPrefix(tail, "/") || strings.HasPrefix(tail, "\\") {
		return tail, true
	}
	return "", false
}

// ParsePackageSpecifier splits specifier into (packageName, subpath),
// handling @scope/name packages (§4.7.11 parse_package_specifier).
func ParsePackageSpecifier(specifier string) (string, string) {
	sepIndex := strings.IndexByte(specifier, '/')
	if strings.HasPrefix(specifier, "@") && sepIndex >= 0 {
		rest := specifier[sepIndex+1:]
		if next := strings.IndexByte(rest, '/'); next >= 0 {
			sepIndex = sepIndex + 1 + next
		} else {
			sepIndex = -1
		}
	}
	if sepIndex < 0 {
		return specifier, ""
	}
	return specifier[:sepIndex], specifier[sepIndex:]
}
