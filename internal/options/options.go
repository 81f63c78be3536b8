// Package options defines ResolveOptions (§3) and the small value types it
// is built from: alias lists, restrictions, and the extension-enforcement
// enum.
package options

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// EnforceExtension controls whether an extension-less candidate may be
// accepted as-is before the configured extensions list is tried.
type EnforceExtension int

const (
	// EnforceExtensionAuto becomes Enabled iff Extensions contains "".
	EnforceExtensionAuto EnforceExtension = iota
	EnforceExtensionEnabled
	EnforceExtensionDisabled
)

// Resolve turns Auto into Enabled/Disabled based on the configured
// extensions list, mirroring the teacher's resolve-time option
// normalization pattern (config.Validator.setSmartDefaults).
func (e EnforceExtension) Resolve(extensions []string) EnforceExtension {
	if e != EnforceExtensionAuto {
		return e
	}
	for _, ext := range extensions {
		if ext == "" {
			return EnforceExtensionEnabled
		}
	}
	return EnforceExtensionDisabled
}

// IsDisabled reports whether an as-is, extension-less candidate may still
// be tried (i.e. enforcement is NOT in effect).
func (e EnforceExtension) IsDisabled(extensions []string) bool {
	return e.Resolve(extensions) == EnforceExtensionDisabled
}

// AliasValue is either a replacement path prefix or Ignore.
type AliasValue struct {
	Ignore bool
	Path   string
}

// AliasEntry is one (key, ordered value list) pair of an Alias/Fallback
// list. Key order and value order within a key are both significant.
type AliasEntry struct {
	Key    string
	Values []AliasValue
}

// Restriction is either a path-prefix or a doublestar glob the final
// resolved path must satisfy (§3, §4.7.12). Globs are distinguished from
// literal prefixes by the presence of glob metacharacters.
type Restriction struct {
	Pattern string
}

// IsGlob reports whether the restriction should be matched with doublestar
// rather than as a plain path prefix.
func (r Restriction) IsGlob() bool {
	return strings.ContainsAny(r.Pattern, "*?[{")
}

// Matches reports whether path satisfies this restriction.
func (r Restriction) Matches(path string) bool {
	if r.IsGlob() {
		ok, err := doublestar.Match(r.Pattern, path)
		return err == nil && ok
	}
	return isInside(path, r.Pattern)
}

func isInside(path, parent string) bool {
	if !strings.HasPrefix(path, parent) {
		return false
	}
	if len(path) == len(parent) {
		return true
	}
	rest := path[len(parent):]
	return rest == "/" || rest == "\\" || strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, "\\")
}

// TsconfigReferencesMode controls how project references are resolved for
// a tsconfig.
type TsconfigReferencesMode int

const (
	TsconfigReferencesAuto TsconfigReferencesMode = iota
	TsconfigReferencesDisabled
)

// TsconfigOptions configures the tsconfig-paths integration.
type TsconfigOptions struct {
	ConfigFile      string
	ReferencesMode  TsconfigReferencesMode
	ReferencePaths  []string
}

// ResolveOptions is the immutable (after construction) configuration of
// one Engine (§3).
type ResolveOptions struct {
	Extensions       []string
	EnforceExtension EnforceExtension
	ExtensionAlias   map[string][]string

	Alias    []AliasEntry
	Fallback []AliasEntry

	AliasFields []string // dotted paths, e.g. "browser"

	ExportsFields [][]string // default [["exports"]]
	ImportsFields [][]string // default [["imports"]]

	MainFields      []string
	MainFiles       []string
	Modules         []string
	DescriptionFiles []string

	ConditionNames []string

	Roots []string

	Restrictions []Restriction

	Symlinks bool

	PreferRelative bool
	PreferAbsolute bool

	ResolveToContext bool
	FullySpecified   bool

	BuiltinModules bool

	Tsconfig *TsconfigOptions

	EnablePnp bool
}

// Default returns the resolver's built-in defaults, mirroring Node's own
// CommonJS/ESM defaults plus the enhanced-resolve extensions this resolver
// carries (§3).
func Default() ResolveOptions {
	return ResolveOptions{
		Extensions:       []string{".js", ".json", ".node"},
		EnforceExtension: EnforceExtensionAuto,
		MainFields:       []string{"main"},
		MainFiles:        []string{"index"},
		Modules:          []string{"node_modules"},
		DescriptionFiles: []string{"package.json"},
		ExportsFields:    [][]string{{"exports"}},
		ImportsFields:    [][]string{{"imports"}},
		ConditionNames:   []string{"node", "require"},
		Symlinks:         true,
	}
}

// Sanitize normalizes derived fields, mirroring the teacher's
// options.sanitize() call at construction time.
func (o ResolveOptions) Sanitize() ResolveOptions {
	if len(o.MainFields) == 0 {
		o.MainFields = []string{"main"}
	}
	if len(o.MainFiles) == 0 {
		o.MainFiles = []string{"index"}
	}
	if len(o.Modules) == 0 {
		o.Modules = []string{"node_modules"}
	}
	if len(o.ExportsFields) == 0 {
		o.ExportsFields = [][]string{{"exports"}}
	}
	if len(o.ImportsFields) == 0 {
		o.ImportsFields = [][]string{{"imports"}}
	}
	return o
}
