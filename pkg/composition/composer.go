package composition

import (
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/cosmo/composition/pkg/federation"
)

// Canonical root operation type names of the supergraph. Subgraphs may name
// their root types differently, composition normalizes them.
const (
	queryTypeName        = "Query"
	mutationTypeName     = "Mutation"
	subscriptionTypeName = "Subscription"
)

type composer struct {
	subgraphs []*federation.Subgraph
	byName    map[string]*federation.Subgraph

	types map[string]*mergedType
	errs  *multierror.Error
}

// typeSource is one subgraph's contribution to a merged type.
type typeSource struct {
	subgraph *federation.Subgraph
	info     *federation.TypeInfo
}

type mergedType struct {
	name        string
	kind        ast.DefinitionKind
	description string
	sources     []*typeSource

	fields     map[string]*mergedField
	fieldOrder []string

	interfaces []string
	members    []string
	enumValues []*mergedEnumValue
	usage      enumUsage

	inaccessible bool
	tags         []string
}

// fieldSource is one subgraph's declaration of a merged field.
type fieldSource struct {
	subgraph *federation.Subgraph
	typeInfo *federation.TypeInfo
	field    *federation.FieldInfo
}

type mergedField struct {
	name        string
	description string
	typ         *ast.Type
	sources     []*fieldSource

	arguments []*mergedArgument

	// resolvers are the names of the subgraphs that actually resolve the
	// field: non-external declarations minus overridden ones.
	resolvers []string
	// overriddenIn names the subgraphs whose declaration lost ownership to
	// an @override.
	overriddenIn []string

	inaccessible bool
	tags         []string
	deprecated   *ast.Directive
	defaultValue *ast.Value
}

type mergedArgument struct {
	name         string
	description  string
	typ          *ast.Type
	defaultValue *ast.Value
	inaccessible bool
	tags         []string
}

type mergedEnumValue struct {
	name         string
	description  string
	inaccessible bool
	tags         []string
	deprecated   *ast.Directive
	// subgraphs that define the value
	subgraphs []string
}

func (t *mergedType) source(subgraphName string) *typeSource {
	for _, src := range t.sources {
		if src.subgraph.Name == subgraphName {
			return src
		}
	}
	return nil
}

func (f *mergedField) resolvedBy(subgraphName string) bool {
	for _, name := range f.resolvers {
		if name == subgraphName {
			return true
		}
	}
	return false
}

func (f *mergedField) source(subgraphName string) *fieldSource {
	for _, src := range f.sources {
		if src.subgraph.Name == subgraphName {
			return src
		}
	}
	return nil
}

// compose runs the whole pipeline over subgraphs already sorted by name.
func compose(subgraphs []*federation.Subgraph) (*FederatedGraph, error) {
	c := &composer{
		subgraphs: subgraphs,
		byName:    make(map[string]*federation.Subgraph, len(subgraphs)),
		types:     map[string]*mergedType{},
	}
	for _, subgraph := range subgraphs {
		c.byName[subgraph.Name] = subgraph
	}

	c.collectTypes()
	c.mergeTypes()
	c.classifyEnumUsage()
	c.mergeEnums()
	c.checkInterfaceImplementations()
	c.checkSatisfiability()
	c.checkQueries()

	if err := c.errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	supergraphSDL := c.printSupergraph()

	apiSDL, err := c.printAPISchema()
	if err != nil {
		return nil, err
	}

	if err := checkEngineCompatibility(apiSDL); err != nil {
		return nil, err
	}

	return &FederatedGraph{
		SDL:                    supergraphSDL,
		APISDL:                 apiSDL,
		Version:                graphVersion(supergraphSDL),
		ArgumentConfigurations: c.argumentConfigurations(),
		Entities:               c.entityConfigurations(),
	}, nil
}

func (c *composer) reportf(code, format string, args ...any) {
	c.errs = multierror.Append(c.errs, compositionErrorf(code, format, args...))
}

// canonicalTypeName maps a subgraph-local type name to its supergraph name.
// Root operation types always compose under Query, Mutation and
// Subscription.
func canonicalTypeName(s *federation.Subgraph, name string) string {
	switch name {
	case s.RootTypes["query"]:
		return queryTypeName
	case s.RootTypes["mutation"]:
		return mutationTypeName
	case s.RootTypes["subscription"]:
		return subscriptionTypeName
	default:
		return name
	}
}

func isRootTypeName(name string) bool {
	return name == queryTypeName || name == mutationTypeName || name == subscriptionTypeName
}

func (c *composer) collectTypes() {
	for _, subgraph := range c.subgraphs {
		for _, typeName := range subgraph.TypeNames() {
			info := subgraph.Types[typeName]
			canonical := canonicalTypeName(subgraph, typeName)

			mt, ok := c.types[canonical]
			if !ok {
				mt = &mergedType{
					name:   canonical,
					kind:   info.Kind,
					fields: map[string]*mergedField{},
				}
				c.types[canonical] = mt
			} else if mt.kind != info.Kind {
				c.reportf(ErrTypeKindMismatch, "type %q is declared as %s in subgraph %q but as %s elsewhere",
					canonical, info.Kind, subgraph.Name, mt.kind)
				continue
			}

			if mt.description == "" {
				mt.description = info.Description
			}
			if info.Inaccessible {
				mt.inaccessible = true
			}
			for _, tag := range info.Tags {
				mt.tags = appendUnique(mt.tags, tag)
			}
			for _, iface := range info.Interfaces {
				mt.interfaces = appendUnique(mt.interfaces, iface)
			}
			for _, member := range info.Members {
				mt.members = appendUnique(mt.members, member)
			}

			mt.sources = append(mt.sources, &typeSource{subgraph: subgraph, info: info})
		}
	}
}

func (c *composer) typeNames() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *composer) checkQueries() {
	query, ok := c.types[queryTypeName]
	if !ok || len(query.fieldOrder) == 0 {
		c.reportf(ErrNoQueries, "the merged Query type defines no fields, the federated graph is unqueryable")
	}
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
