package federation

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Version is the federation dialect a subgraph speaks. Subgraphs that link
// the federation v2 spec get v2 semantics, everything else is composed in v1
// compatibility mode.
type Version int

const (
	VersionOne Version = iota + 1
	VersionTwo
)

// Subgraph is the parsed and validated form of a single subgraph schema.
type Subgraph struct {
	Name    string
	URL     string
	Version Version
	// SpecURL is the federation spec url the subgraph linked, empty for v1.
	SpecURL string

	Document  *ast.SchemaDocument
	Types     map[string]*TypeInfo
	RootTypes map[string]string

	names *directiveNames
}

// TypeInfo is the federation view of one named type in a subgraph, with all
// extensions folded in and federation directives resolved to canonical names.
type TypeInfo struct {
	Name        string
	Kind        ast.DefinitionKind
	Description string
	// Extension is true when the subgraph only extends the type, i.e. the
	// type is declared via `extend type` or @extends without a base
	// definition in this subgraph.
	Extension bool

	Keys         []*Key
	Shareable    bool
	External     bool
	Inaccessible bool
	Tags         []string

	Interfaces []string
	Members    []string
	EnumValues []*EnumValueInfo

	Fields     map[string]*FieldInfo
	FieldOrder []string
}

// Key is one @key of an entity type.
type Key struct {
	FieldSet   *FieldSet
	Resolvable bool
}

// FieldInfo is the federation view of one field (or input field) definition.
type FieldInfo struct {
	Name       string
	Definition *ast.FieldDefinition

	External     bool
	Shareable    bool
	Inaccessible bool
	Tags         []string
	Provides     *FieldSet
	Requires     *FieldSet
	OverrideFrom string
	Deprecated   *ast.Directive
}

// EnumValueInfo is the federation view of one enum value.
type EnumValueInfo struct {
	Name         string
	Description  string
	Inaccessible bool
	Tags         []string
	Deprecated   *ast.Directive
}

// IsEntity reports whether the type declares at least one @key.
func (t *TypeInfo) IsEntity() bool {
	return len(t.Keys) > 0
}

// IsKeyField reports whether the named field is a top-level field of any of
// the type's keys.
func (t *TypeInfo) IsKeyField(name string) bool {
	for _, key := range t.Keys {
		for _, field := range key.FieldSet.TopLevelFields() {
			if field == name {
				return true
			}
		}
	}
	return false
}

// FieldShareable reports whether a field may be resolved by more than one
// subgraph from this subgraph's point of view. Key fields are always
// shareable, and v1 subgraphs never declare sharing intent so their fields
// are treated as shareable for compatibility.
func (s *Subgraph) FieldShareable(typeInfo *TypeInfo, field *FieldInfo) bool {
	if s.Version == VersionOne {
		return true
	}
	if field.Shareable || typeInfo.Shareable {
		return true
	}
	return typeInfo.IsKeyField(field.Name)
}

// IsRootType reports whether the named type is one of the subgraph's root
// operation types.
func (s *Subgraph) IsRootType(name string) bool {
	for _, rootType := range s.RootTypes {
		if rootType == name {
			return true
		}
	}
	return false
}

// Metadata returns the collected metadata for the named type, or nil when
// the subgraph does not define it.
func (s *Subgraph) Metadata(name string) *TypeInfo {
	return s.Types[name]
}

// Entities returns the names of all entity types in the subgraph, sorted.
func (s *Subgraph) Entities() []string {
	var names []string
	for name, typeInfo := range s.Types {
		if typeInfo.IsEntity() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// TypeNames returns all type names in the subgraph, sorted.
func (s *Subgraph) TypeNames() []string {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseSubgraph parses a subgraph SDL document, resolves its federation
// @link, folds type extensions into their base types and validates all
// federation directive usage. All independent validation errors are
// aggregated into one error.
func ParseSubgraph(name, url, sdl string) (*Subgraph, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: sdl})
	if err != nil {
		return nil, errorf(ErrInvalidGraphQL, name, "%s", err.Error())
	}

	names, specURL, err := parseLinks(name, doc)
	if err != nil {
		return nil, err
	}

	s := &Subgraph{
		Name:     name,
		URL:      url,
		Version:  names.version,
		SpecURL:  specURL,
		Document: doc,
		Types:    map[string]*TypeInfo{},
		RootTypes: map[string]string{
			"query":        "Query",
			"mutation":     "Mutation",
			"subscription": "Subscription",
		},
		names: names,
	}

	for _, schemaDef := range doc.Schema {
		for _, op := range schemaDef.OperationTypes {
			s.RootTypes[string(op.Operation)] = op.Type
		}
	}
	for _, schemaExt := range doc.SchemaExtension {
		for _, op := range schemaExt.OperationTypes {
			s.RootTypes[string(op.Operation)] = op.Type
		}
	}

	var errs *multierror.Error

	for _, def := range doc.Definitions {
		if err := s.addDefinition(def, false); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	for _, ext := range doc.Extensions {
		if err := s.addDefinition(ext, true); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if err := s.validate(); err != nil {
		errs = multierror.Append(errs, err)
	}

	return s, errs.ErrorOrNil()
}
