package composition

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wundergraph/cosmo/composition/pkg/federation"
)

func (c *composer) mergeTypes() {
	for _, name := range c.typeNames() {
		mt := c.types[name]
		switch mt.kind {
		case ast.Object, ast.Interface:
			c.mergeCompositeType(mt)
		case ast.InputObject:
			c.mergeInputObject(mt)
		case ast.Enum:
			c.collectEnumValues(mt)
		case ast.Scalar, ast.Union:
			// collectTypes already gathered everything scalars and unions
			// contribute.
		}
		sort.Strings(mt.members)
		sort.Strings(mt.interfaces)
	}
}

func (c *composer) mergeCompositeType(mt *mergedType) {
	for _, src := range mt.sources {
		for _, fieldName := range src.info.FieldOrder {
			field := src.info.Fields[fieldName]
			mf, ok := mt.fields[fieldName]
			if !ok {
				mf = &mergedField{name: fieldName}
				mt.fields[fieldName] = mf
				mt.fieldOrder = append(mt.fieldOrder, fieldName)
			}
			mf.sources = append(mf.sources, &fieldSource{
				subgraph: src.subgraph,
				typeInfo: src.info,
				field:    field,
			})
		}
	}
	sort.Strings(mt.fieldOrder)

	for _, fieldName := range mt.fieldOrder {
		c.mergeField(mt, mt.fields[fieldName])
	}
}

func (c *composer) mergeField(mt *mergedType, mf *mergedField) {
	for _, src := range mf.sources {
		if mf.description == "" {
			mf.description = src.field.Definition.Description
		}
		if mf.deprecated == nil {
			mf.deprecated = src.field.Deprecated
		}
		if src.field.Inaccessible {
			mf.inaccessible = true
		}
		for _, tag := range src.field.Tags {
			mf.tags = appendUnique(mf.tags, tag)
		}
	}

	c.applyOverrides(mt, mf)

	for _, src := range mf.sources {
		if src.field.External {
			continue
		}
		if overridden(mf, src.subgraph.Name) {
			continue
		}
		mf.resolvers = append(mf.resolvers, src.subgraph.Name)
	}

	if len(mf.resolvers) == 0 {
		c.reportf(ErrExternalMissingOnBase,
			"field %s.%s is marked @external in all subgraphs that declare it, no subgraph resolves it",
			mt.name, mf.name)
	}

	c.checkFieldSharing(mt, mf)
	c.mergeFieldType(mt, mf)
	c.mergeFieldArguments(mt, mf)
}

// applyOverrides processes @override(from:) on all declarations of one
// field. A successful override removes the named subgraph from the field's
// resolvers.
func (c *composer) applyOverrides(mt *mergedType, mf *mergedField) {
	var overriders []*fieldSource
	for _, src := range mf.sources {
		if src.field.OverrideFrom != "" {
			overriders = append(overriders, src)
		}
	}
	if len(overriders) == 0 {
		return
	}
	if len(overriders) > 1 {
		var names []string
		for _, src := range overriders {
			names = append(names, src.subgraph.Name)
		}
		c.reportf(ErrOverrideSourceHasOverride,
			"field %s.%s is overridden in more than one subgraph: %s",
			mt.name, mf.name, strings.Join(names, ", "))
		return
	}

	overrider := overriders[0]
	from := overrider.field.OverrideFrom
	fromSource := mf.source(from)
	if fromSource == nil {
		// Overriding a subgraph that does not declare the field is a no-op,
		// commonly left over from a finished migration.
		return
	}
	if fromSource.field.OverrideFrom != "" {
		c.reportf(ErrOverrideSourceHasOverride,
			"field %s.%s in subgraph %q overrides subgraph %q which itself declares an @override",
			mt.name, mf.name, overrider.subgraph.Name, from)
		return
	}
	mf.overriddenIn = append(mf.overriddenIn, from)
}

func overridden(mf *mergedField, subgraphName string) bool {
	for _, name := range mf.overriddenIn {
		if name == subgraphName {
			return true
		}
	}
	return false
}

// checkFieldSharing enforces the v2 sharing rule: a field resolved by more
// than one subgraph must be shareable in every subgraph that resolves it.
// Interface fields and root operation fields are exempt, ownership of root
// fields is per definition unambiguous.
func (c *composer) checkFieldSharing(mt *mergedType, mf *mergedField) {
	if mt.kind != ast.Object || isRootTypeName(mt.name) {
		return
	}
	if len(mf.resolvers) < 2 {
		return
	}

	var nonShareable []string
	for _, name := range mf.resolvers {
		src := mf.source(name)
		if !src.subgraph.FieldShareable(src.typeInfo, src.field) {
			nonShareable = append(nonShareable, name)
		}
	}
	if len(nonShareable) > 0 {
		c.reportf(ErrInvalidFieldSharing,
			"non-shareable field %s.%s is resolved by multiple subgraphs (%s), mark it @shareable in %s",
			mt.name, mf.name, strings.Join(mf.resolvers, ", "), strings.Join(nonShareable, ", "))
	}
}

// mergeFieldType merges the declared types of all declarations of a field.
// Output positions are merged to the least restrictive nullability, the
// named type and list shape must agree.
func (c *composer) mergeFieldType(mt *mergedType, mf *mergedField) {
	for _, src := range mf.sources {
		declared := src.field.Definition.Type
		if mf.typ == nil {
			mf.typ = copyType(declared)
			continue
		}
		merged, ok := mergeOutputTypes(mf.typ, declared)
		if !ok {
			c.reportf(ErrFieldTypeMismatch,
				"field %s.%s has incompatible types across subgraphs: %s and %s declared in %s",
				mt.name, mf.name, mf.typ.String(), declared.String(), src.subgraph.Name)
			return
		}
		mf.typ = merged
	}
}

// mergeFieldArguments merges arguments with intersection semantics: an
// argument survives only if every subgraph that declares the field also
// declares the argument. Dropping a required argument is an error.
func (c *composer) mergeFieldArguments(mt *mergedType, mf *mergedField) {
	var argOrder []string
	seen := map[string]struct{}{}
	for _, src := range mf.sources {
		for _, arg := range src.field.Definition.Arguments {
			if _, ok := seen[arg.Name]; !ok {
				seen[arg.Name] = struct{}{}
				argOrder = append(argOrder, arg.Name)
			}
		}
	}

	for _, argName := range argOrder {
		merged, keep := c.mergeArgument(mt, mf, argName)
		if keep {
			mf.arguments = append(mf.arguments, merged)
		}
	}
}

func (c *composer) mergeArgument(mt *mergedType, mf *mergedField, argName string) (*mergedArgument, bool) {
	merged := &mergedArgument{name: argName}

	for _, src := range mf.sources {
		arg := src.field.Definition.Arguments.ForName(argName)
		if arg == nil {
			// The argument is not declared everywhere. If it is required
			// where it is declared the field cannot be composed, otherwise
			// the argument is dropped from the supergraph.
			for _, other := range mf.sources {
				declared := other.field.Definition.Arguments.ForName(argName)
				if declared != nil && declared.Type.NonNull && declared.DefaultValue == nil {
					c.reportf(ErrRequiredArgMissing,
						"required argument %s.%s(%s:) is missing in subgraph %q",
						mt.name, mf.name, argName, src.subgraph.Name)
					return nil, false
				}
			}
			return nil, false
		}

		if merged.description == "" {
			merged.description = arg.Description
		}
		c.applyInputDirectives(src.subgraph, arg.Directives, &merged.inaccessible, &merged.tags, nil)

		if merged.typ == nil {
			merged.typ = copyType(arg.Type)
		} else {
			mergedTyp, ok := mergeInputTypes(merged.typ, arg.Type)
			if !ok {
				c.reportf(ErrArgumentTypeMismatch,
					"argument %s.%s(%s:) has incompatible types across subgraphs: %s and %s declared in %s",
					mt.name, mf.name, argName, merged.typ.String(), arg.Type.String(), src.subgraph.Name)
				return nil, false
			}
			merged.typ = mergedTyp
		}

		switch {
		case merged.defaultValue == nil:
			merged.defaultValue = arg.DefaultValue
		case arg.DefaultValue == nil:
			// Subgraphs disagree on whether there is a default, drop it.
			merged.defaultValue = nil
		case merged.defaultValue.String() != arg.DefaultValue.String():
			c.reportf(ErrDefaultValueMismatch,
				"argument %s.%s(%s:) has incompatible default values across subgraphs: %s and %s",
				mt.name, mf.name, argName, merged.defaultValue.String(), arg.DefaultValue.String())
			return nil, false
		}
	}

	return merged, true
}

// mergeInputObject merges input object fields with intersection semantics,
// mirroring argument merging.
func (c *composer) mergeInputObject(mt *mergedType) {
	for _, src := range mt.sources {
		for _, fieldName := range src.info.FieldOrder {
			field := src.info.Fields[fieldName]
			mf, ok := mt.fields[fieldName]
			if !ok {
				mf = &mergedField{name: fieldName}
				mt.fields[fieldName] = mf
			}
			mf.sources = append(mf.sources, &fieldSource{
				subgraph: src.subgraph,
				typeInfo: src.info,
				field:    field,
			})
		}
	}

	var kept []string
	for _, fieldName := range sortedKeys(mt.fields) {
		mf := mt.fields[fieldName]
		if len(mf.sources) < len(mt.sources) {
			for _, src := range mf.sources {
				def := src.field.Definition
				if def.Type.NonNull && def.DefaultValue == nil {
					c.reportf(ErrRequiredInputMissing,
						"required input field %s.%s is not defined in all subgraphs defining %s",
						mt.name, fieldName, mt.name)
					break
				}
			}
			delete(mt.fields, fieldName)
			continue
		}
		c.mergeInputField(mt, mf)
		kept = append(kept, fieldName)
	}
	mt.fieldOrder = kept

	if len(mt.fieldOrder) == 0 {
		c.reportf(ErrEmptyMergedInput, "merging input object %q leaves no common fields", mt.name)
	}
}

func (c *composer) mergeInputField(mt *mergedType, mf *mergedField) {
	for _, src := range mf.sources {
		def := src.field.Definition
		if mf.description == "" {
			mf.description = def.Description
		}
		if mf.deprecated == nil {
			mf.deprecated = src.field.Deprecated
		}
		if src.field.Inaccessible {
			mf.inaccessible = true
		}
		for _, tag := range src.field.Tags {
			mf.tags = appendUnique(mf.tags, tag)
		}

		if mf.typ == nil {
			mf.typ = copyType(def.Type)
		} else {
			merged, ok := mergeInputTypes(mf.typ, def.Type)
			if !ok {
				c.reportf(ErrFieldTypeMismatch,
					"input field %s.%s has incompatible types across subgraphs: %s and %s declared in %s",
					mt.name, mf.name, mf.typ.String(), def.Type.String(), src.subgraph.Name)
				return
			}
			mf.typ = merged
		}

		switch {
		case mf.defaultValue == nil:
			mf.defaultValue = def.DefaultValue
		case def.DefaultValue == nil:
			mf.defaultValue = nil
		case mf.defaultValue.String() != def.DefaultValue.String():
			c.reportf(ErrDefaultValueMismatch,
				"input field %s.%s has incompatible default values across subgraphs", mt.name, mf.name)
			return
		}
	}
}

// applyInputDirectives resolves @inaccessible, @tag and @deprecated on
// argument and input value positions.
func (c *composer) applyInputDirectives(subgraph *federation.Subgraph, directives ast.DirectiveList, inaccessible *bool, tags *[]string, deprecated **ast.Directive) {
	for _, d := range directives {
		canonical, ok := subgraph.CanonicalDirective(d)
		if !ok {
			continue
		}
		switch canonical {
		case federation.DirectiveInaccessible:
			*inaccessible = true
		case federation.DirectiveTag:
			if arg := d.Arguments.ForName("name"); arg != nil {
				*tags = appendUnique(*tags, arg.Value.Raw)
			}
		case federation.DirectiveDeprecated:
			if deprecated != nil && *deprecated == nil {
				*deprecated = d
			}
		}
	}
}

func (c *composer) checkInterfaceImplementations() {
	for _, name := range c.typeNames() {
		mt := c.types[name]
		if mt.kind != ast.Object {
			continue
		}
		for _, ifaceName := range mt.interfaces {
			iface, ok := c.types[ifaceName]
			if !ok || iface.kind != ast.Interface {
				continue
			}
			for _, fieldName := range iface.fieldOrder {
				if _, ok := mt.fields[fieldName]; !ok {
					c.reportf(ErrInterfaceFieldNoImpl,
						"interface field %s.%s is expected on type %q but is missing after merging",
						ifaceName, fieldName, mt.name)
				}
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
