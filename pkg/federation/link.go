package federation

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

const (
	// FederationSpecPrefix is the url prefix of the federation v2 spec. A
	// subgraph that links it opts into v2 composition semantics.
	FederationSpecPrefix = "https://specs.apollographql.com/federation/v2."

	// LinkSpecURL and JoinSpecURL identify the specs the supergraph schema
	// itself links.
	LinkSpecURL = "https://specs.apollographql.com/link/v1.0"
	JoinSpecURL = "https://specs.apollographql.com/join/v0.3"

	defaultNamespace = "federation"
)

// directiveNames resolves the local spelling of federation directives in one
// subgraph document back to their canonical names. In a v2 subgraph a
// directive is addressable through its @link import (possibly aliased) or
// through its fully qualified form, e.g. federation__requires.
type directiveNames struct {
	version   Version
	namespace string
	// imports maps the local name (without '@') to the canonical name.
	imports map[string]string
}

// canonical returns the canonical federation directive name for a local
// directive name, or false if the directive is not part of the federation
// spec from this subgraph's point of view.
func (n *directiveNames) canonical(local string) (string, bool) {
	if local == DirectiveLink {
		return DirectiveLink, true
	}
	if n.version == VersionOne {
		if _, ok := v1Directives[local]; ok {
			return local, true
		}
		return "", false
	}
	if canonical, ok := n.imports[local]; ok {
		return canonical, true
	}
	prefix := n.namespace + "__"
	if rest, ok := strings.CutPrefix(local, prefix); ok {
		if _, known := directiveDefinitions[rest]; known {
			return rest, true
		}
		if _, known := unsupportedDirectives[rest]; known {
			return rest, true
		}
	}
	return "", false
}

// local returns the spelling under which a canonical directive is known in
// this subgraph.
func (n *directiveNames) local(canonical string) string {
	if n.version == VersionOne {
		return canonical
	}
	for name, c := range n.imports {
		if c == canonical {
			return name
		}
	}
	return n.namespace + "__" + canonical
}

// parseLinks extracts the federation @link from the schema definition and
// schema extensions of a subgraph document. A missing federation link puts
// the subgraph into v1 compatibility mode.
func parseLinks(subgraphName string, doc *ast.SchemaDocument) (*directiveNames, string, error) {
	var linkDirectives []*ast.Directive
	for _, def := range doc.Schema {
		linkDirectives = append(linkDirectives, def.Directives.ForNames(DirectiveLink)...)
	}
	for _, ext := range doc.SchemaExtension {
		linkDirectives = append(linkDirectives, ext.Directives.ForNames(DirectiveLink)...)
	}

	for _, link := range linkDirectives {
		urlArg := link.Arguments.ForName("url")
		if urlArg == nil {
			return nil, "", errorf(ErrInvalidLinkDirective, subgraphName, "@link requires a url argument")
		}
		specURL := urlArg.Value.Raw
		if !strings.HasPrefix(specURL, FederationSpecPrefix) {
			continue
		}

		names := &directiveNames{
			version:   VersionTwo,
			namespace: defaultNamespace,
			imports:   map[string]string{},
		}
		if asArg := link.Arguments.ForName("as"); asArg != nil {
			names.namespace = asArg.Value.Raw
		}
		if importArg := link.Arguments.ForName("import"); importArg != nil {
			if err := parseImports(subgraphName, importArg.Value, names.imports); err != nil {
				return nil, "", err
			}
		}
		return names, specURL, nil
	}

	return &directiveNames{version: VersionOne}, "", nil
}

func parseImports(subgraphName string, value *ast.Value, imports map[string]string) error {
	if value.Kind != ast.ListValue {
		return errorf(ErrInvalidLinkDirective, subgraphName, "@link import must be a list")
	}
	for _, child := range value.Children {
		name, alias, err := parseImportEntry(subgraphName, child.Value)
		if err != nil {
			return err
		}
		// Type imports such as "FieldSet" carry no composition meaning here.
		if !strings.HasPrefix(name, "@") {
			continue
		}
		canonical := strings.TrimPrefix(name, "@")
		local := canonical
		if alias != "" {
			local = strings.TrimPrefix(alias, "@")
		}
		if _, known := directiveDefinitions[canonical]; !known {
			if _, unsupported := unsupportedDirectives[canonical]; !unsupported {
				return errorf(ErrInvalidLinkDirective, subgraphName, "unknown federation import %q", name)
			}
		}
		imports[local] = canonical
	}
	return nil
}

func parseImportEntry(subgraphName string, value *ast.Value) (name, alias string, err error) {
	switch value.Kind {
	case ast.StringValue:
		return value.Raw, "", nil
	case ast.ObjectValue:
		for _, field := range value.Children {
			switch field.Name {
			case "name":
				name = field.Value.Raw
			case "as":
				alias = field.Value.Raw
			default:
				return "", "", errorf(ErrInvalidLinkDirective, subgraphName,
					"unexpected field %q in @link import", field.Name)
			}
		}
		if name == "" {
			return "", "", errorf(ErrInvalidLinkDirective, subgraphName, "@link import object requires a name")
		}
		return name, alias, nil
	default:
		return "", "", errorf(ErrInvalidLinkDirective, subgraphName,
			"@link import entries must be strings or objects, got %s", fmt.Sprint(value.Kind))
	}
}
