package federation

import "github.com/vektah/gqlparser/v2/ast"

// Canonical names of the federation directives. Subgraphs may import them
// under different local names via @link(import: [{name:, as:}]).
const (
	DirectiveKey              = "key"
	DirectiveShareable        = "shareable"
	DirectiveExternal         = "external"
	DirectiveProvides         = "provides"
	DirectiveRequires         = "requires"
	DirectiveOverride         = "override"
	DirectiveInaccessible     = "inaccessible"
	DirectiveTag              = "tag"
	DirectiveExtends          = "extends"
	DirectiveLink             = "link"
	DirectiveComposeDirective = "composeDirective"
	DirectiveInterfaceObject  = "interfaceObject"

	// Built-in directives that survive composition.
	DirectiveDeprecated = "deprecated"
)

var blankPos = &ast.Position{Src: &ast.Source{BuiltIn: true}}

var keyDirective = &ast.DirectiveDefinition{
	Name: DirectiveKey,
	Arguments: ast.ArgumentDefinitionList{
		&ast.ArgumentDefinition{
			Name: "fields",
			Type: &ast.Type{NamedType: "String", NonNull: true},
		},
		&ast.ArgumentDefinition{
			Name:         "resolvable",
			Type:         &ast.Type{NamedType: "Boolean"},
			DefaultValue: &ast.Value{Kind: ast.BooleanValue, Raw: "true"},
		},
	},
	IsRepeatable: true,
	Locations: []ast.DirectiveLocation{
		ast.LocationObject,
		ast.LocationInterface,
	},
	Position: blankPos,
}

var shareableDirective = &ast.DirectiveDefinition{
	Name:         DirectiveShareable,
	IsRepeatable: true,
	Locations: []ast.DirectiveLocation{
		ast.LocationObject,
		ast.LocationFieldDefinition,
	},
	Position: blankPos,
}

var externalDirective = &ast.DirectiveDefinition{
	Name: DirectiveExternal,
	Locations: []ast.DirectiveLocation{
		ast.LocationObject,
		ast.LocationFieldDefinition,
	},
	Position: blankPos,
}

var providesDirective = &ast.DirectiveDefinition{
	Name: DirectiveProvides,
	Arguments: ast.ArgumentDefinitionList{
		&ast.ArgumentDefinition{
			Name: "fields",
			Type: &ast.Type{NamedType: "String", NonNull: true},
		},
	},
	Locations: []ast.DirectiveLocation{
		ast.LocationFieldDefinition,
	},
	Position: blankPos,
}

var requiresDirective = &ast.DirectiveDefinition{
	Name: DirectiveRequires,
	Arguments: ast.ArgumentDefinitionList{
		&ast.ArgumentDefinition{
			Name: "fields",
			Type: &ast.Type{NamedType: "String", NonNull: true},
		},
	},
	Locations: []ast.DirectiveLocation{
		ast.LocationFieldDefinition,
	},
	Position: blankPos,
}

var overrideDirective = &ast.DirectiveDefinition{
	Name: DirectiveOverride,
	Arguments: ast.ArgumentDefinitionList{
		&ast.ArgumentDefinition{
			Name: "from",
			Type: &ast.Type{NamedType: "String", NonNull: true},
		},
	},
	Locations: []ast.DirectiveLocation{
		ast.LocationFieldDefinition,
	},
	Position: blankPos,
}

var inaccessibleDirective = &ast.DirectiveDefinition{
	Name: DirectiveInaccessible,
	Locations: []ast.DirectiveLocation{
		ast.LocationObject,
		ast.LocationInterface,
		ast.LocationUnion,
		ast.LocationScalar,
		ast.LocationEnum,
		ast.LocationEnumValue,
		ast.LocationFieldDefinition,
		ast.LocationArgumentDefinition,
		ast.LocationInputObject,
		ast.LocationInputFieldDefinition,
	},
	Position: blankPos,
}

var tagDirective = &ast.DirectiveDefinition{
	Name: DirectiveTag,
	Arguments: ast.ArgumentDefinitionList{
		&ast.ArgumentDefinition{
			Name: "name",
			Type: &ast.Type{NamedType: "String", NonNull: true},
		},
	},
	IsRepeatable: true,
	Locations: []ast.DirectiveLocation{
		ast.LocationObject,
		ast.LocationInterface,
		ast.LocationUnion,
		ast.LocationScalar,
		ast.LocationEnum,
		ast.LocationEnumValue,
		ast.LocationFieldDefinition,
		ast.LocationArgumentDefinition,
		ast.LocationInputObject,
		ast.LocationInputFieldDefinition,
	},
	Position: blankPos,
}

var extendsDirective = &ast.DirectiveDefinition{
	Name: DirectiveExtends,
	Locations: []ast.DirectiveLocation{
		ast.LocationObject,
		ast.LocationInterface,
	},
	Position: blankPos,
}

// directiveDefinitions maps each canonical directive name to its definition.
var directiveDefinitions = map[string]*ast.DirectiveDefinition{
	DirectiveKey:          keyDirective,
	DirectiveShareable:    shareableDirective,
	DirectiveExternal:     externalDirective,
	DirectiveProvides:     providesDirective,
	DirectiveRequires:     requiresDirective,
	DirectiveOverride:     overrideDirective,
	DirectiveInaccessible: inaccessibleDirective,
	DirectiveTag:          tagDirective,
	DirectiveExtends:      extendsDirective,
}

// v1Directives are the directives available without a federation @link.
var v1Directives = map[string]struct{}{
	DirectiveKey:      {},
	DirectiveExternal: {},
	DirectiveProvides: {},
	DirectiveRequires: {},
	DirectiveExtends:  {},
	DirectiveTag:      {},
}

// unsupportedDirectives are recognized v2 spec members this engine does not
// compose. Importing them is allowed, applying them is an error.
var unsupportedDirectives = map[string]struct{}{
	DirectiveComposeDirective: {},
	DirectiveInterfaceObject:  {},
}

var builtinScalars = map[string]struct{}{
	"Int":     {},
	"Float":   {},
	"String":  {},
	"Boolean": {},
	"ID":      {},
}

func isBuiltinScalar(name string) bool {
	_, ok := builtinScalars[name]
	return ok
}
