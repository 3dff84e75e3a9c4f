package composition

import (
	"bytes"

	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// printAPISchema projects the client-facing API schema from the merged
// graph: all federation and join machinery is stripped, @inaccessible
// elements are removed, @tag applications are dropped and @deprecated is
// kept. Removing an element that is still referenced by an accessible one
// is an error.
func (c *composer) printAPISchema() (string, error) {
	var errs *multierror.Error

	removed := map[string]bool{}
	for name, mt := range c.types {
		if mt.inaccessible {
			removed[name] = true
		}
	}

	// Removal cascades: a union that loses all members or a type that loses
	// all fields disappears too, which can empty further types.
	for changed := true; changed; {
		changed = false
		for _, name := range c.typeNames() {
			if removed[name] {
				continue
			}
			mt := c.types[name]
			if apiTypeEmpty(mt, removed) {
				removed[name] = true
				changed = true
			}
		}
	}

	doc := &ast.SchemaDocument{}
	for _, name := range c.typeNames() {
		if removed[name] {
			continue
		}
		def, err := c.apiTypeDefinition(c.types[name], removed)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		doc.Definitions = append(doc.Definitions, def)
	}

	schemaDef := &ast.SchemaDefinition{}
	for _, root := range []struct {
		op       ast.Operation
		typeName string
	}{
		{ast.Query, queryTypeName},
		{ast.Mutation, mutationTypeName},
		{ast.Subscription, subscriptionTypeName},
	} {
		if _, ok := c.types[root.typeName]; ok && !removed[root.typeName] {
			schemaDef.OperationTypes = append(schemaDef.OperationTypes, &ast.OperationTypeDefinition{
				Operation: root.op,
				Type:      root.typeName,
			})
		}
	}
	if removed[queryTypeName] {
		errs = multierror.Append(errs, compositionErrorf(ErrNoQueries,
			"removing @inaccessible elements leaves the API schema without queryable fields"))
	}
	doc.Schema = ast.SchemaDefinitionList{schemaDef}

	if err := errs.ErrorOrNil(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String(), nil
}

func apiTypeEmpty(mt *mergedType, removed map[string]bool) bool {
	switch mt.kind {
	case ast.Object, ast.Interface, ast.InputObject:
		for _, fieldName := range mt.fieldOrder {
			if !mt.fields[fieldName].inaccessible {
				return false
			}
		}
		return true
	case ast.Enum:
		for _, value := range mt.enumValues {
			if !value.inaccessible {
				return false
			}
		}
		return true
	case ast.Union:
		for _, member := range mt.members {
			if !removed[member] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (c *composer) apiTypeDefinition(mt *mergedType, removed map[string]bool) (*ast.Definition, error) {
	var errs *multierror.Error

	def := &ast.Definition{
		Kind:        mt.kind,
		Name:        mt.name,
		Description: mt.description,
	}
	for _, iface := range mt.interfaces {
		if !removed[iface] {
			def.Interfaces = append(def.Interfaces, iface)
		}
	}
	for _, member := range mt.members {
		if !removed[member] {
			def.Types = append(def.Types, member)
		}
	}

	switch mt.kind {
	case ast.Object, ast.Interface:
		for _, fieldName := range mt.fieldOrder {
			mf := mt.fields[fieldName]
			if mf.inaccessible {
				continue
			}
			field, err := c.apiFieldDefinition(mt, mf, removed)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			def.Fields = append(def.Fields, field)
		}
	case ast.InputObject:
		for _, fieldName := range mt.fieldOrder {
			mf := mt.fields[fieldName]
			if mf.inaccessible {
				if mf.typ.NonNull && mf.defaultValue == nil {
					errs = multierror.Append(errs, compositionErrorf(ErrRequiredInaccessible,
						"required input field %s.%s cannot be @inaccessible", mt.name, mf.name))
				}
				continue
			}
			if err := c.checkAPIReference(mt.name, mf.name, mf.typ, removed); err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			def.Fields = append(def.Fields, &ast.FieldDefinition{
				Name:         mf.name,
				Description:  mf.description,
				Type:         mf.typ,
				DefaultValue: mf.defaultValue,
				Directives:   apiDeprecated(mf.deprecated),
			})
		}
	case ast.Enum:
		for _, value := range mt.enumValues {
			if value.inaccessible {
				continue
			}
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{
				Name:        value.name,
				Description: value.description,
				Directives:  apiDeprecated(value.deprecated),
			})
		}
	}

	return def, errs.ErrorOrNil()
}

func (c *composer) apiFieldDefinition(mt *mergedType, mf *mergedField, removed map[string]bool) (*ast.FieldDefinition, error) {
	if err := c.checkAPIReference(mt.name, mf.name, mf.typ, removed); err != nil {
		return nil, err
	}

	field := &ast.FieldDefinition{
		Name:        mf.name,
		Description: mf.description,
		Type:        mf.typ,
		Directives:  apiDeprecated(mf.deprecated),
	}
	for _, arg := range mf.arguments {
		if arg.inaccessible {
			if arg.typ.NonNull && arg.defaultValue == nil {
				return nil, compositionErrorf(ErrRequiredInaccessible,
					"required argument %s.%s(%s:) cannot be @inaccessible", mt.name, mf.name, arg.name)
			}
			continue
		}
		if err := c.checkAPIReference(mt.name, mf.name, arg.typ, removed); err != nil {
			return nil, err
		}
		field.Arguments = append(field.Arguments, &ast.ArgumentDefinition{
			Name:         arg.name,
			Description:  arg.description,
			Type:         arg.typ,
			DefaultValue: arg.defaultValue,
		})
	}
	return field, nil
}

func (c *composer) checkAPIReference(typeName, fieldName string, typ *ast.Type, removed map[string]bool) error {
	named := typ.Name()
	if removed[named] {
		return compositionErrorf(ErrReferencedInaccessible,
			"field %s.%s references type %q which is removed from the API schema", typeName, fieldName, named)
	}
	return nil
}

func apiDeprecated(deprecated *ast.Directive) ast.DirectiveList {
	if deprecated == nil {
		return nil
	}
	return ast.DirectiveList{{Name: deprecatedName, Arguments: deprecated.Arguments}}
}
