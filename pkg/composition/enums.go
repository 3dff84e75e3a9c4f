package composition

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
)

// enumUsage records the positions a merged enum appears in. How an enum
// merges depends on it: output-only enums merge by union (a client must be
// able to receive every value any subgraph may return), input-only enums by
// intersection (a client must only send values every subgraph understands),
// enums used in both positions must match exactly.
type enumUsage uint8

const (
	usageOutput enumUsage = 1 << iota
	usageInput
)

func (c *composer) markUsage(typeName string, usage enumUsage) {
	if mt, ok := c.types[typeName]; ok && mt.kind == ast.Enum {
		mt.usage |= usage
	}
}

func (c *composer) classifyEnumUsage() {
	for _, name := range c.typeNames() {
		mt := c.types[name]
		switch mt.kind {
		case ast.Object, ast.Interface:
			for _, fieldName := range mt.fieldOrder {
				mf := mt.fields[fieldName]
				if mf.typ != nil {
					c.markUsage(mf.typ.Name(), usageOutput)
				}
				for _, arg := range mf.arguments {
					if arg.typ != nil {
						c.markUsage(arg.typ.Name(), usageInput)
					}
				}
			}
		case ast.InputObject:
			for _, fieldName := range mt.fieldOrder {
				if mf := mt.fields[fieldName]; mf.typ != nil {
					c.markUsage(mf.typ.Name(), usageInput)
				}
			}
		}
	}
}

func (c *composer) collectEnumValues(mt *mergedType) {
	for _, src := range mt.sources {
		for _, value := range src.info.EnumValues {
			merged := mt.enumValue(value.Name)
			if merged == nil {
				merged = &mergedEnumValue{name: value.Name}
				mt.enumValues = append(mt.enumValues, merged)
			}
			if merged.description == "" {
				merged.description = value.Description
			}
			if merged.deprecated == nil {
				merged.deprecated = value.Deprecated
			}
			if value.Inaccessible {
				merged.inaccessible = true
			}
			for _, tag := range value.Tags {
				merged.tags = appendUnique(merged.tags, tag)
			}
			merged.subgraphs = append(merged.subgraphs, src.subgraph.Name)
		}
	}
	sort.Slice(mt.enumValues, func(i, j int) bool {
		return mt.enumValues[i].name < mt.enumValues[j].name
	})
}

func (mt *mergedType) enumValue(name string) *mergedEnumValue {
	for _, value := range mt.enumValues {
		if value.name == name {
			return value
		}
	}
	return nil
}

func (c *composer) mergeEnums() {
	for _, name := range c.typeNames() {
		mt := c.types[name]
		if mt.kind != ast.Enum {
			continue
		}
		switch {
		case mt.usage&usageInput != 0 && mt.usage&usageOutput != 0:
			c.mergeEnumExact(mt)
		case mt.usage&usageInput != 0:
			c.mergeEnumIntersection(mt)
		default:
			// Output-only and unused enums merge by union, which
			// collectEnumValues already produced.
		}
	}
}

func (c *composer) mergeEnumExact(mt *mergedType) {
	for _, value := range mt.enumValues {
		if len(value.subgraphs) < len(mt.sources) {
			var defining []string
			for _, src := range mt.sources {
				defining = append(defining, src.subgraph.Name)
			}
			c.reportf(ErrEnumValueMismatch,
				"enum %q is used in both input and output positions but value %q is not defined in all subgraphs (%s) defining the enum",
				mt.name, value.name, strings.Join(defining, ", "))
		}
	}
}

func (c *composer) mergeEnumIntersection(mt *mergedType) {
	var kept []*mergedEnumValue
	for _, value := range mt.enumValues {
		if len(value.subgraphs) == len(mt.sources) {
			kept = append(kept, value)
		}
	}
	if len(kept) == 0 {
		c.reportf(ErrEmptyMergedEnum,
			"merging input-only enum %q leaves no values defined in every subgraph", mt.name)
		return
	}
	mt.enumValues = kept
}
