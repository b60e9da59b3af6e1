// metadata.go decodes the YAML gemspec stream. Gemspecs produced by the
// original toolchain tag nodes with !ruby/object:... type hints, so decoding
// walks yaml.Node values directly instead of unmarshalling into structs —
// node walking ignores tags, struct decoding rejects them.
package gemspec

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

func decodeMetadata(data []byte) (*Metadata, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: invalid gemspec YAML: %v", ErrMalformed, err)
	}

	doc := &root
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, fmt.Errorf("%w: empty gemspec document", ErrMalformed)
		}
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: gemspec is not a mapping", ErrMalformed)
	}

	meta := &Metadata{}
	var decodeErr error

	eachPair(doc, func(key string, value *yaml.Node) {
		switch key {
		case "name":
			meta.Name = scalarOf(value)
		case "version":
			meta.Number = versionOf(value)
		case "platform":
			meta.Platform = scalarOf(value)
		case "summary":
			meta.Summary = scalarOf(value)
		case "description":
			meta.Description = scalarOf(value)
		case "homepage":
			meta.Homepage = scalarOf(value)
		case "dependencies":
			deps, err := dependenciesOf(value)
			if err != nil && decodeErr == nil {
				decodeErr = err
			}
			meta.Dependencies = deps
		}
	})

	if decodeErr != nil {
		return nil, decodeErr
	}

	return meta, nil
}

// eachPair visits the key/value pairs of a mapping node
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node)) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		fn(node.Content[i].Value, node.Content[i+1])
	}
}

// scalarOf returns a node's scalar value, or "" for non-scalars
func scalarOf(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}

// versionOf accepts either a bare scalar ("1.0.0") or a version object
// ({version: "1.0.0"}, possibly ruby-tagged)
func versionOf(node *yaml.Node) string {
	if node == nil {
		return ""
	}
	if node.Kind == yaml.ScalarNode {
		return node.Value
	}

	var number string
	eachPair(node, func(key string, value *yaml.Node) {
		if key == "version" {
			number = scalarOf(value)
		}
	})
	return number
}

func dependenciesOf(node *yaml.Node) ([]Dependency, error) {
	if node == nil || node.Kind != yaml.SequenceNode {
		if node == nil || (node.Kind == yaml.ScalarNode && node.Value == "") {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: dependencies is not a list", ErrMalformed)
	}

	var deps []Dependency
	for _, item := range node.Content {
		dep, err := dependencyOf(item)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func dependencyOf(node *yaml.Node) (Dependency, error) {
	if node.Kind != yaml.MappingNode {
		return Dependency{}, fmt.Errorf("%w: dependency entry is not a mapping", ErrMalformed)
	}

	dep := Dependency{Kind: DefaultDependencyKind}
	eachPair(node, func(key string, value *yaml.Node) {
		switch key {
		case "name":
			dep.Name = scalarOf(value)
		case "requirement", "requirements", "version_requirements":
			dep.Requirements = requirementsOf(value)
		case "type", "kind":
			dep.Kind = strings.TrimPrefix(scalarOf(value), ":")
		}
	})

	if dep.Name == "" {
		return Dependency{}, fmt.Errorf("%w: dependency entry has no name", ErrMalformed)
	}
	dep.Requirements = NormalizeRequirements(dep.Requirements)
	return dep, nil
}

// requirementsOf flattens the requirement node shapes a gemspec can carry:
// a bare scalar (">= 1.0"), a sequence of clauses, a sequence of
// [operator, version-object] pairs, or a requirement object whose
// "requirements" key holds any of the above.
func requirementsOf(node *yaml.Node) string {
	if node == nil {
		return ""
	}

	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value
	case yaml.MappingNode:
		var inner string
		eachPair(node, func(key string, value *yaml.Node) {
			if key == "requirements" {
				inner = requirementsOf(value)
			}
		})
		return inner
	case yaml.SequenceNode:
		var clauses []string
		for _, item := range node.Content {
			if clause := requirementClause(item); clause != "" {
				clauses = append(clauses, clause)
			}
		}
		return strings.Join(clauses, ", ")
	}
	return ""
}

func requirementClause(node *yaml.Node) string {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Value
	case yaml.SequenceNode:
		// [operator, version-object] pair
		if len(node.Content) == 2 {
			op := scalarOf(node.Content[0])
			number := versionOf(node.Content[1])
			if op != "" && number != "" {
				return op + " " + number
			}
		}
	}
	return ""
}
