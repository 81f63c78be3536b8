// Package resolverconfig loads ResolveOptions from an on-disk resolver.toml
// or resolver.kdl file and validates the decoded document against a JSON
// Schema before it's applied, mirroring the teacher's config package
// (internal/config/build_artifact_detector.go for TOML, kdl_config.go for
// KDL, validator.go for schema-backed validation).
package resolverconfig

import (
	"fmt"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/goresolve/internal/options"
)

// fileConfig is the TOML/KDL on-disk shape; field names mirror
// ResolveOptions but stay string/slice based for straightforward
// unmarshaling.
type fileConfig struct {
	Extensions       []string            `toml:"extensions"`
	MainFields       []string            `toml:"main_fields"`
	MainFiles        []string            `toml:"main_files"`
	Modules          []string            `toml:"modules"`
	DescriptionFiles []string            `toml:"description_files"`
	ConditionNames   []string            `toml:"condition_names"`
	Roots            []string            `toml:"roots"`
	AliasFields      []string            `toml:"alias_fields"`
	Symlinks         *bool               `toml:"symlinks"`
	PreferRelative   bool                `toml:"prefer_relative"`
	PreferAbsolute   bool                `toml:"prefer_absolute"`
	FullySpecified   bool                `toml:"fully_specified"`
	BuiltinModules   bool                `toml:"builtin_modules"`
	EnablePnp        bool                `toml:"enable_pnp"`
	ExtensionAlias   map[string][]string `toml:"extension_alias"`
	Restrictions     []string            `toml:"restrictions"`
	Tsconfig         *tsconfigFileConfig `toml:"tsconfig"`
}

type tsconfigFileConfig struct {
	ConfigFile string `toml:"config_file"`
}

// DefaultResolveOptions returns the resolver's built-in defaults, for
// callers with no resolver.toml/resolver.kdl on disk.
func DefaultResolveOptions() options.ResolveOptions {
	return options.Default()
}

// LoadTOML parses a resolver.toml document into ResolveOptions, starting
// from the built-in defaults and overriding only fields the document sets.
// The document is validated against configSchema before it's applied, so a
// known field with the wrong type surfaces as a schema error instead of
// being silently dropped by toml.Unmarshal. Unknown keys are not rejected.
func LoadTOML(data []byte) (options.ResolveOptions, error) {
	if err := ValidateTOML(data); err != nil {
		return options.ResolveOptions{}, err
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return options.ResolveOptions{}, fmt.Errorf("resolver.toml: %w", err)
	}
	return applyFileConfig(fc), nil
}

// LoadKDL parses a resolver.kdl document into ResolveOptions, using the
// same node-by-node walk the teacher's KDL config loader uses. Validated
// against configSchema first, same as LoadTOML.
func LoadKDL(data []byte) (options.ResolveOptions, error) {
	if err := ValidateKDL(data); err != nil {
		return options.ResolveOptions{}, err
	}
	doc, err := kdl.Parse(strings.NewReader(string(data)))
	if err != nil {
		return options.ResolveOptions{}, fmt.Errorf("resolver.kdl: %w", err)
	}

	var fc fileConfig
	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "extensions":
			fc.Extensions = collectStringArgs(n)
		case "main_fields":
			fc.MainFields = collectStringArgs(n)
		case "main_files":
			fc.MainFiles = collectStringArgs(n)
		case "modules":
			fc.Modules = collectStringArgs(n)
		case "description_files":
			fc.DescriptionFiles = collectStringArgs(n)
		case "condition_names":
			fc.ConditionNames = collectStringArgs(n)
		case "roots":
			fc.Roots = collectStringArgs(n)
		case "alias_fields":
			fc.AliasFields = collectStringArgs(n)
		case "restrictions":
			fc.Restrictions = collectStringArgs(n)
		case "symlinks":
			if b, ok := firstBoolArg(n); ok {
				fc.Symlinks = &b
			}
		case "prefer_relative":
			if b, ok := firstBoolArg(n); ok {
				fc.PreferRelative = b
			}
		case "prefer_absolute":
			if b, ok := firstBoolArg(n); ok {
				fc.PreferAbsolute = b
			}
		case "fully_specified":
			if b, ok := firstBoolArg(n); ok {
				fc.FullySpecified = b
			}
		case "builtin_modules":
			if b, ok := firstBoolArg(n); ok {
				fc.BuiltinModules = b
			}
		case "enable_pnp":
			if b, ok := firstBoolArg(n); ok {
				fc.EnablePnp = b
			}
		case "extension_alias":
			fc.ExtensionAlias = make(map[string][]string)
			for _, cn := range n.Children {
				fc.ExtensionAlias[nodeName(cn)] = collectStringArgs(cn)
			}
		case "tsconfig":
			tc := &tsconfigFileConfig{}
			for _, cn := range n.Children {
				if s, ok := firstStringArg(cn); ok && nodeName(cn) == "config_file" {
					tc.ConfigFile = s
				}
			}
			fc.Tsconfig = tc
		}
	}
	return applyFileConfig(fc), nil
}

func applyFileConfig(fc fileConfig) options.ResolveOptions {
	o := options.Default()
	if len(fc.Extensions) > 0 {
		o.Extensions = fc.Extensions
	}
	if len(fc.MainFields) > 0 {
		o.MainFields = fc.MainFields
	}
	if len(fc.MainFiles) > 0 {
		o.MainFiles = fc.MainFiles
	}
	if len(fc.Modules) > 0 {
		o.Modules = fc.Modules
	}
	if len(fc.DescriptionFiles) > 0 {
		o.DescriptionFiles = fc.DescriptionFiles
	}
	if len(fc.ConditionNames) > 0 {
		o.ConditionNames = fc.ConditionNames
	}
	o.Roots = fc.Roots
	o.AliasFields = fc.AliasFields
	if fc.Symlinks != nil {
		o.Symlinks = *fc.Symlinks
	}
	o.PreferRelative = fc.PreferRelative
	o.PreferAbsolute = fc.PreferAbsolute
	o.FullySpecified = fc.FullySpecified
	o.BuiltinModules = fc.BuiltinModules
	o.EnablePnp = fc.EnablePnp
	o.ExtensionAlias = fc.ExtensionAlias
	for _, r := range fc.Restrictions {
		o.Restrictions = append(o.Restrictions, options.Restriction{Pattern: r})
	}
	if fc.Tsconfig != nil && fc.Tsconfig.ConfigFile != "" {
		o.Tsconfig = &options.TsconfigOptions{ConfigFile: fc.Tsconfig.ConfigFile}
	}
	return o.Sanitize()
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}
