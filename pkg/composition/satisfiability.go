package composition

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/cosmo/composition/pkg/federation"
)

// checkSatisfiability detects fields the router could never resolve. For a
// subgraph that can return an object type, every merged field of that type
// must be resolvable locally, covered by a @provides on the path into the
// type, or reachable by an entity jump through a @key whose fields the
// subgraph can supply.
func (c *composer) checkSatisfiability() {
	returnable := c.returnableTypes()
	provided := c.providedFields()

	for _, typeName := range c.typeNames() {
		mt := c.types[typeName]
		if mt.kind != ast.Object || isRootTypeName(typeName) {
			continue
		}

		for _, src := range mt.sources {
			subgraph := src.subgraph
			if !returnable[subgraph.Name][typeName] {
				continue
			}

			for _, fieldName := range mt.fieldOrder {
				mf := mt.fields[fieldName]
				if len(mf.resolvers) == 0 {
					// Already reported as EXTERNAL_MISSING_ON_BASE.
					continue
				}
				if mf.resolvedBy(subgraph.Name) {
					continue
				}
				if provided[subgraph.Name][typeName][fieldName] {
					continue
				}
				if c.entityJumpPossible(mt, mf, subgraph) {
					continue
				}
				c.reportf(ErrUnresolvableField,
					"field %s.%s (resolved by %s) cannot be reached from subgraph %q: type %q has no usable @key",
					typeName, fieldName, mf.resolvers[0], subgraph.Name, typeName)
			}
		}
	}
}

// entityJumpPossible reports whether some subgraph resolving the field
// declares a resolvable @key on the type whose fields the starting subgraph
// can supply in an entity representation.
func (c *composer) entityJumpPossible(mt *mergedType, mf *mergedField, from *federation.Subgraph) bool {
	fromType := from.Types[localTypeName(from, mt.name)]
	if fromType == nil {
		return false
	}

	for _, resolver := range mf.resolvers {
		src := mt.source(resolver)
		if src == nil {
			continue
		}
		for _, key := range src.info.Keys {
			if !key.Resolvable {
				continue
			}
			if keyCoveredBy(key, fromType) {
				return true
			}
		}
	}
	return false
}

// keyCoveredBy reports whether the subgraph's declaration of the type
// carries every top-level field of the key, external declarations count.
func keyCoveredBy(key *federation.Key, typeInfo *federation.TypeInfo) bool {
	for _, fieldName := range key.FieldSet.TopLevelFields() {
		if _, ok := typeInfo.Fields[fieldName]; !ok {
			return false
		}
	}
	return true
}

// returnableTypes computes, per subgraph, the named types the subgraph can
// produce in a response: the types of all its non-external field
// declarations.
func (c *composer) returnableTypes() map[string]map[string]bool {
	returnable := make(map[string]map[string]bool, len(c.subgraphs))
	for _, subgraph := range c.subgraphs {
		types := map[string]bool{}
		for _, typeName := range subgraph.TypeNames() {
			info := subgraph.Types[typeName]
			if info.Kind != ast.Object && info.Kind != ast.Interface {
				continue
			}
			for _, fieldName := range info.FieldOrder {
				field := info.Fields[fieldName]
				if field.External {
					continue
				}
				types[canonicalTypeName(subgraph, field.Definition.Type.Name())] = true
			}
		}
		returnable[subgraph.Name] = types
	}
	return returnable
}

// providedFields collects the fields made locally resolvable through
// @provides, keyed by subgraph, type and field name. Only top-level
// selections of the provides set are considered.
func (c *composer) providedFields() map[string]map[string]map[string]bool {
	provided := make(map[string]map[string]map[string]bool, len(c.subgraphs))
	for _, subgraph := range c.subgraphs {
		bySubgraph := map[string]map[string]bool{}
		for _, typeName := range subgraph.TypeNames() {
			info := subgraph.Types[typeName]
			for _, fieldName := range info.FieldOrder {
				field := info.Fields[fieldName]
				if field.Provides == nil {
					continue
				}
				target := canonicalTypeName(subgraph, field.Definition.Type.Name())
				byType := bySubgraph[target]
				if byType == nil {
					byType = map[string]bool{}
					bySubgraph[target] = byType
				}
				for _, providedField := range field.Provides.TopLevelFields() {
					byType[providedField] = true
				}
			}
		}
		provided[subgraph.Name] = bySubgraph
	}
	return provided
}

// localTypeName maps a supergraph type name back to the subgraph's local
// name, undoing root type normalization.
func localTypeName(s *federation.Subgraph, canonical string) string {
	switch canonical {
	case queryTypeName:
		return s.RootTypes["query"]
	case mutationTypeName:
		return s.RootTypes["mutation"]
	case subscriptionTypeName:
		return s.RootTypes["subscription"]
	default:
		return canonical
	}
}
