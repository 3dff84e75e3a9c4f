package composition

import (
	"bytes"
	"sort"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Join spec machinery emitted into the supergraph schema. The names follow
// https://specs.apollographql.com/join/v0.3.
const (
	joinGraphEnum        = "join__Graph"
	joinFieldSetScalar   = "join__FieldSet"
	linkImportScalar     = "link__Import"
	linkPurposeEnum      = "link__Purpose"
	joinGraphDirective   = "join__graph"
	joinTypeDirective    = "join__type"
	joinFieldDirective   = "join__field"
	joinImplDirective    = "join__implements"
	joinUnionDirective   = "join__unionMember"
	joinEnumDirective    = "join__enumValue"
	inaccessibleName     = "inaccessible"
	tagName              = "tag"
	deprecatedName       = "deprecated"
)

func stringValue(s string) *ast.Value {
	return &ast.Value{Kind: ast.StringValue, Raw: s}
}

func enumValue(s string) *ast.Value {
	return &ast.Value{Kind: ast.EnumValue, Raw: s}
}

func boolValue(b bool) *ast.Value {
	raw := "false"
	if b {
		raw = "true"
	}
	return &ast.Value{Kind: ast.BooleanValue, Raw: raw}
}

// graphEnumNames returns the join__Graph enum value for every subgraph:
// upper-cased with every non-alphanumeric run collapsed to an underscore,
// de-duplicated with a numeric suffix.
func (c *composer) graphEnumNames() map[string]string {
	names := make(map[string]string, len(c.subgraphs))
	used := map[string]struct{}{}
	for _, subgraph := range c.subgraphs {
		name := sanitizeGraphName(subgraph.Name)
		candidate := name
		for i := 2; ; i++ {
			if _, taken := used[candidate]; !taken {
				break
			}
			candidate = name + "_" + strconv.Itoa(i)
		}
		used[candidate] = struct{}{}
		names[subgraph.Name] = candidate
	}
	return names
}

func sanitizeGraphName(name string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToUpper(name) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "GRAPH"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "GRAPH_" + out
	}
	return out
}

// printSupergraph serializes the merged graph as supergraph SDL annotated
// with the join spec.
func (c *composer) printSupergraph() string {
	graphNames := c.graphEnumNames()

	doc := &ast.SchemaDocument{}
	doc.Schema = ast.SchemaDefinitionList{c.supergraphSchemaDefinition()}
	doc.Directives = joinSpecDirectiveDefinitions()
	doc.Definitions = append(doc.Definitions, c.joinSpecTypeDefinitions(graphNames)...)

	for _, typeName := range c.typeNames() {
		doc.Definitions = append(doc.Definitions, c.supergraphTypeDefinition(c.types[typeName], graphNames))
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String()
}

func (c *composer) supergraphSchemaDefinition() *ast.SchemaDefinition {
	def := &ast.SchemaDefinition{
		Directives: ast.DirectiveList{
			{
				Name: "link",
				Arguments: ast.ArgumentList{
					{Name: "url", Value: stringValue("https://specs.apollographql.com/link/v1.0")},
				},
			},
			{
				Name: "link",
				Arguments: ast.ArgumentList{
					{Name: "url", Value: stringValue("https://specs.apollographql.com/join/v0.3")},
					{Name: "for", Value: enumValue("EXECUTION")},
				},
			},
		},
	}

	rootOps := []struct {
		op       ast.Operation
		typeName string
	}{
		{ast.Query, queryTypeName},
		{ast.Mutation, mutationTypeName},
		{ast.Subscription, subscriptionTypeName},
	}
	for _, root := range rootOps {
		if mt, ok := c.types[root.typeName]; ok && len(mt.fieldOrder) > 0 {
			def.OperationTypes = append(def.OperationTypes, &ast.OperationTypeDefinition{
				Operation: root.op,
				Type:      root.typeName,
			})
		}
	}
	return def
}

func joinSpecDirectiveDefinitions() ast.DirectiveDefinitionList {
	fieldSetType := &ast.Type{NamedType: joinFieldSetScalar}
	graphType := &ast.Type{NamedType: joinGraphEnum, NonNull: true}
	stringType := &ast.Type{NamedType: "String", NonNull: true}

	defs := ast.DirectiveDefinitionList{
		{
			Name: "link",
			Arguments: ast.ArgumentDefinitionList{
				{Name: "url", Type: &ast.Type{NamedType: "String"}},
				{Name: "as", Type: &ast.Type{NamedType: "String"}},
				{Name: "for", Type: &ast.Type{NamedType: linkPurposeEnum}},
				{Name: "import", Type: ast.ListType(&ast.Type{NamedType: linkImportScalar}, nil)},
			},
			IsRepeatable: true,
			Locations:    []ast.DirectiveLocation{ast.LocationSchema},
		},
		{
			Name: joinGraphDirective,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "name", Type: stringType},
				{Name: "url", Type: stringType},
			},
			Locations: []ast.DirectiveLocation{ast.LocationEnumValue},
		},
		{
			Name: joinTypeDirective,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "graph", Type: graphType},
				{Name: "key", Type: fieldSetType},
				{Name: "extension", Type: &ast.Type{NamedType: "Boolean", NonNull: true}, DefaultValue: boolValue(false)},
				{Name: "resolvable", Type: &ast.Type{NamedType: "Boolean", NonNull: true}, DefaultValue: boolValue(true)},
			},
			IsRepeatable: true,
			Locations: []ast.DirectiveLocation{
				ast.LocationObject,
				ast.LocationInterface,
				ast.LocationUnion,
				ast.LocationEnum,
				ast.LocationInputObject,
				ast.LocationScalar,
			},
		},
		{
			Name: joinFieldDirective,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "graph", Type: &ast.Type{NamedType: joinGraphEnum}},
				{Name: "requires", Type: fieldSetType},
				{Name: "provides", Type: fieldSetType},
				{Name: "type", Type: &ast.Type{NamedType: "String"}},
				{Name: "external", Type: &ast.Type{NamedType: "Boolean"}},
				{Name: "override", Type: &ast.Type{NamedType: "String"}},
			},
			IsRepeatable: true,
			Locations: []ast.DirectiveLocation{
				ast.LocationFieldDefinition,
				ast.LocationInputFieldDefinition,
			},
		},
		{
			Name: joinImplDirective,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "graph", Type: graphType},
				{Name: "interface", Type: stringType},
			},
			IsRepeatable: true,
			Locations: []ast.DirectiveLocation{
				ast.LocationObject,
				ast.LocationInterface,
			},
		},
		{
			Name: joinUnionDirective,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "graph", Type: graphType},
				{Name: "member", Type: stringType},
			},
			IsRepeatable: true,
			Locations:    []ast.DirectiveLocation{ast.LocationUnion},
		},
		{
			Name: joinEnumDirective,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "graph", Type: graphType},
			},
			IsRepeatable: true,
			Locations:    []ast.DirectiveLocation{ast.LocationEnumValue},
		},
		{
			Name:         inaccessibleName,
			IsRepeatable: false,
			Locations: []ast.DirectiveLocation{
				ast.LocationFieldDefinition,
				ast.LocationObject,
				ast.LocationInterface,
				ast.LocationUnion,
				ast.LocationArgumentDefinition,
				ast.LocationScalar,
				ast.LocationEnum,
				ast.LocationEnumValue,
				ast.LocationInputObject,
				ast.LocationInputFieldDefinition,
			},
		},
		{
			Name: tagName,
			Arguments: ast.ArgumentDefinitionList{
				{Name: "name", Type: stringType},
			},
			IsRepeatable: true,
			Locations: []ast.DirectiveLocation{
				ast.LocationFieldDefinition,
				ast.LocationObject,
				ast.LocationInterface,
				ast.LocationUnion,
				ast.LocationArgumentDefinition,
				ast.LocationScalar,
				ast.LocationEnum,
				ast.LocationEnumValue,
				ast.LocationInputObject,
				ast.LocationInputFieldDefinition,
			},
		},
	}
	// The formatter dereferences Position.Src on directive definitions, so
	// hand-built nodes need a non-nil position.
	for _, def := range defs {
		def.Position = &ast.Position{Src: &ast.Source{}}
	}
	return defs
}

func (c *composer) joinSpecTypeDefinitions(graphNames map[string]string) ast.DefinitionList {
	graphEnum := &ast.Definition{
		Kind: ast.Enum,
		Name: joinGraphEnum,
	}
	for _, subgraph := range c.subgraphs {
		graphEnum.EnumValues = append(graphEnum.EnumValues, &ast.EnumValueDefinition{
			Name: graphNames[subgraph.Name],
			Directives: ast.DirectiveList{{
				Name: joinGraphDirective,
				Arguments: ast.ArgumentList{
					{Name: "name", Value: stringValue(subgraph.Name)},
					{Name: "url", Value: stringValue(subgraph.URL)},
				},
			}},
		})
	}

	return ast.DefinitionList{
		{Kind: ast.Scalar, Name: joinFieldSetScalar},
		{Kind: ast.Scalar, Name: linkImportScalar},
		{
			Kind: ast.Enum,
			Name: linkPurposeEnum,
			EnumValues: ast.EnumValueList{
				{Name: "SECURITY", Description: "`SECURITY` features provide metadata necessary to securely resolve fields."},
				{Name: "EXECUTION", Description: "`EXECUTION` features provide metadata necessary for operation execution."},
			},
		},
		graphEnum,
	}
}

func (c *composer) supergraphTypeDefinition(mt *mergedType, graphNames map[string]string) *ast.Definition {
	def := &ast.Definition{
		Kind:        mt.kind,
		Name:        mt.name,
		Description: mt.description,
		Interfaces:  mt.interfaces,
		Types:       mt.members,
	}

	for _, src := range mt.sources {
		graph := graphNames[src.subgraph.Name]

		if len(src.info.Keys) > 0 {
			for _, key := range src.info.Keys {
				args := ast.ArgumentList{
					{Name: "graph", Value: enumValue(graph)},
					{Name: "key", Value: stringValue(key.FieldSet.Raw)},
				}
				if src.info.Extension {
					args = append(args, &ast.Argument{Name: "extension", Value: boolValue(true)})
				}
				if !key.Resolvable {
					args = append(args, &ast.Argument{Name: "resolvable", Value: boolValue(false)})
				}
				def.Directives = append(def.Directives, &ast.Directive{Name: joinTypeDirective, Arguments: args})
			}
		} else {
			def.Directives = append(def.Directives, &ast.Directive{
				Name:      joinTypeDirective,
				Arguments: ast.ArgumentList{{Name: "graph", Value: enumValue(graph)}},
			})
		}

		for _, iface := range src.info.Interfaces {
			def.Directives = append(def.Directives, &ast.Directive{
				Name: joinImplDirective,
				Arguments: ast.ArgumentList{
					{Name: "graph", Value: enumValue(graph)},
					{Name: "interface", Value: stringValue(iface)},
				},
			})
		}

		for _, member := range src.info.Members {
			def.Directives = append(def.Directives, &ast.Directive{
				Name: joinUnionDirective,
				Arguments: ast.ArgumentList{
					{Name: "graph", Value: enumValue(graph)},
					{Name: "member", Value: stringValue(member)},
				},
			})
		}
	}

	if mt.inaccessible {
		def.Directives = append(def.Directives, &ast.Directive{Name: inaccessibleName})
	}
	for _, tag := range mt.tags {
		def.Directives = append(def.Directives, &ast.Directive{
			Name:      tagName,
			Arguments: ast.ArgumentList{{Name: "name", Value: stringValue(tag)}},
		})
	}

	switch mt.kind {
	case ast.Object, ast.Interface:
		for _, fieldName := range mt.fieldOrder {
			def.Fields = append(def.Fields, c.supergraphFieldDefinition(mt, mt.fields[fieldName], graphNames))
		}
	case ast.InputObject:
		for _, fieldName := range mt.fieldOrder {
			def.Fields = append(def.Fields, c.supergraphInputFieldDefinition(mt.fields[fieldName]))
		}
	case ast.Enum:
		for _, value := range mt.enumValues {
			def.EnumValues = append(def.EnumValues, c.supergraphEnumValue(value, graphNames))
		}
	}

	return def
}

func (c *composer) supergraphFieldDefinition(mt *mergedType, mf *mergedField, graphNames map[string]string) *ast.FieldDefinition {
	field := &ast.FieldDefinition{
		Name:        mf.name,
		Description: mf.description,
		Type:        mf.typ,
	}
	for _, arg := range mf.arguments {
		field.Arguments = append(field.Arguments, supergraphArgumentDefinition(arg))
	}

	if !c.needsJoinField(mt, mf) {
		appendCommonFieldDirectives(field, mf)
		return field
	}

	for _, src := range mf.sources {
		graph := graphNames[src.subgraph.Name]
		args := ast.ArgumentList{{Name: "graph", Value: enumValue(graph)}}
		if src.field.Requires != nil {
			args = append(args, &ast.Argument{Name: "requires", Value: stringValue(src.field.Requires.Raw)})
		}
		if src.field.Provides != nil {
			args = append(args, &ast.Argument{Name: "provides", Value: stringValue(src.field.Provides.Raw)})
		}
		if src.field.External {
			args = append(args, &ast.Argument{Name: "external", Value: boolValue(true)})
		}
		if src.field.OverrideFrom != "" {
			args = append(args, &ast.Argument{Name: "override", Value: stringValue(src.field.OverrideFrom)})
		}
		if declared := src.field.Definition.Type; declared.String() != mf.typ.String() {
			args = append(args, &ast.Argument{Name: "type", Value: stringValue(declared.String())})
		}
		field.Directives = append(field.Directives, &ast.Directive{Name: joinFieldDirective, Arguments: args})
	}

	appendCommonFieldDirectives(field, mf)
	return field
}

// needsJoinField reports whether join__field annotations are required: they
// are omitted for fields that every subgraph defining the type resolves
// identically.
func (c *composer) needsJoinField(mt *mergedType, mf *mergedField) bool {
	if len(mf.sources) != len(mt.sources) {
		return true
	}
	for _, src := range mf.sources {
		if src.field.External || src.field.Requires != nil || src.field.Provides != nil || src.field.OverrideFrom != "" {
			return true
		}
		if src.field.Definition.Type.String() != mf.typ.String() {
			return true
		}
	}
	return false
}

func (c *composer) supergraphInputFieldDefinition(mf *mergedField) *ast.FieldDefinition {
	field := &ast.FieldDefinition{
		Name:         mf.name,
		Description:  mf.description,
		Type:         mf.typ,
		DefaultValue: mf.defaultValue,
	}
	appendCommonFieldDirectives(field, mf)
	return field
}

func appendCommonFieldDirectives(field *ast.FieldDefinition, mf *mergedField) {
	if mf.inaccessible {
		field.Directives = append(field.Directives, &ast.Directive{Name: inaccessibleName})
	}
	for _, tag := range mf.tags {
		field.Directives = append(field.Directives, &ast.Directive{
			Name:      tagName,
			Arguments: ast.ArgumentList{{Name: "name", Value: stringValue(tag)}},
		})
	}
	if mf.deprecated != nil {
		field.Directives = append(field.Directives, &ast.Directive{
			Name:      deprecatedName,
			Arguments: mf.deprecated.Arguments,
		})
	}
}

func supergraphArgumentDefinition(arg *mergedArgument) *ast.ArgumentDefinition {
	def := &ast.ArgumentDefinition{
		Name:         arg.name,
		Description:  arg.description,
		Type:         arg.typ,
		DefaultValue: arg.defaultValue,
	}
	if arg.inaccessible {
		def.Directives = append(def.Directives, &ast.Directive{Name: inaccessibleName})
	}
	for _, tag := range arg.tags {
		def.Directives = append(def.Directives, &ast.Directive{
			Name:      tagName,
			Arguments: ast.ArgumentList{{Name: "name", Value: stringValue(tag)}},
		})
	}
	return def
}

func (c *composer) supergraphEnumValue(value *mergedEnumValue, graphNames map[string]string) *ast.EnumValueDefinition {
	def := &ast.EnumValueDefinition{
		Name:        value.name,
		Description: value.description,
	}
	for _, subgraphName := range value.subgraphs {
		def.Directives = append(def.Directives, &ast.Directive{
			Name:      joinEnumDirective,
			Arguments: ast.ArgumentList{{Name: "graph", Value: enumValue(graphNames[subgraphName])}},
		})
	}
	if value.inaccessible {
		def.Directives = append(def.Directives, &ast.Directive{Name: inaccessibleName})
	}
	for _, tag := range value.tags {
		def.Directives = append(def.Directives, &ast.Directive{
			Name:      tagName,
			Arguments: ast.ArgumentList{{Name: "name", Value: stringValue(tag)}},
		})
	}
	if value.deprecated != nil {
		def.Directives = append(def.Directives, &ast.Directive{
			Name:      deprecatedName,
			Arguments: value.deprecated.Arguments,
		})
	}
	return def
}

// entityConfigurations lists every entity of the federated graph.
func (c *composer) entityConfigurations() []*EntityConfiguration {
	var entities []*EntityConfiguration
	for _, typeName := range c.typeNames() {
		mt := c.types[typeName]
		var keys, subgraphs []string
		for _, src := range mt.sources {
			if len(src.info.Keys) == 0 {
				continue
			}
			subgraphs = appendUnique(subgraphs, src.subgraph.Name)
			for _, key := range src.info.Keys {
				keys = appendUnique(keys, key.FieldSet.Raw)
			}
		}
		if len(keys) == 0 {
			continue
		}
		sort.Strings(keys)
		sort.Strings(subgraphs)
		entities = append(entities, &EntityConfiguration{
			TypeName:  typeName,
			Keys:      keys,
			Subgraphs: subgraphs,
		})
	}
	return entities
}

// argumentConfigurations lists the arguments of every field that accepts
// any, for the engine configuration.
func (c *composer) argumentConfigurations() []*ArgumentConfiguration {
	var configs []*ArgumentConfiguration
	for _, typeName := range c.typeNames() {
		mt := c.types[typeName]
		if mt.kind != ast.Object && mt.kind != ast.Interface {
			continue
		}
		for _, fieldName := range mt.fieldOrder {
			mf := mt.fields[fieldName]
			if len(mf.arguments) == 0 {
				continue
			}
			config := &ArgumentConfiguration{
				TypeName:  typeName,
				FieldName: fieldName,
			}
			for _, arg := range mf.arguments {
				config.ArgumentNames = append(config.ArgumentNames, arg.name)
			}
			configs = append(configs, config)
		}
	}
	return configs
}
