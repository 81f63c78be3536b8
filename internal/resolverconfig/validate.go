package resolverconfig

import (
	"fmt"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/pelletier/go-toml/v2"
)

// configSchema describes the resolver.toml/resolver.kdl shape, mirroring
// the teacher's schema-driven validation of tool inputs
// (internal/mcp/server.go's InputSchema definitions).
func configSchema() *jsonschema.Schema {
	stringArray := &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"extensions":        stringArray,
			"main_fields":       stringArray,
			"main_files":        stringArray,
			"modules":           stringArray,
			"description_files": stringArray,
			"condition_names":   stringArray,
			"roots":             stringArray,
			"alias_fields":      stringArray,
			"restrictions":      stringArray,
			"symlinks":          {Type: "boolean"},
			"prefer_relative":   {Type: "boolean"},
			"prefer_absolute":   {Type: "boolean"},
			"fully_specified":   {Type: "boolean"},
			"builtin_modules":   {Type: "boolean"},
			"enable_pnp":        {Type: "boolean"},
			"extension_alias":   {Type: "object"},
			"tsconfig": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"config_file": {Type: "string"},
				},
			},
		},
	}
}

// ValidateTOML parses data as generic TOML and validates its shape against
// configSchema before LoadTOML applies it, catching wrong-typed values of
// known fields with a schema error instead of a silently ignored field.
// Keys the schema does not list are accepted without error.
func ValidateTOML(data []byte) error {
	var doc map[string]interface{}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("resolver.toml: %w", err)
	}
	return validate(doc)
}

// ValidateKDL parses data as a generic KDL document and validates its shape
// against configSchema, the KDL counterpart of ValidateTOML.
func ValidateKDL(data []byte) error {
	doc, err := kdl.Parse(strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("resolver.kdl: %w", err)
	}
	return validate(genericKDLDoc(doc))
}

// genericKDLDoc flattens a parsed KDL document into the same
// map[string]interface{} shape toml.Unmarshal produces, so one schema
// validates both formats.
func genericKDLDoc(doc *document.Document) map[string]interface{} {
	out := make(map[string]interface{})
	for _, n := range doc.Nodes {
		if name := nodeName(n); name != "" {
			out[name] = genericNodeValue(n)
		}
	}
	return out
}

func genericNodeValue(n *document.Node) interface{} {
	if len(n.Children) > 0 {
		obj := make(map[string]interface{})
		for _, child := range n.Children {
			obj[nodeName(child)] = genericNodeValue(child)
		}
		return obj
	}
	if len(n.Arguments) == 1 {
		return n.Arguments[0].Value
	}
	args := make([]interface{}, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		args = append(args, a.Value)
	}
	return args
}

func validate(doc map[string]interface{}) error {
	resolved, err := configSchema().Resolve(nil)
	if err != nil {
		return fmt.Errorf("resolver config schema: %w", err)
	}
	if err := resolved.Validate(doc); err != nil {
		return fmt.Errorf("resolver config: %w", err)
	}
	return nil
}
