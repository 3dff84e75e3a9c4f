package federation

import (
	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"
)

// addDefinition folds one type definition or type extension into the
// subgraph's type table and resolves its federation directives.
func (s *Subgraph) addDefinition(def *ast.Definition, isExtension bool) error {
	var errs *multierror.Error

	typeInfo, ok := s.Types[def.Name]
	if !ok {
		typeInfo = &TypeInfo{
			Name:      def.Name,
			Kind:      def.Kind,
			Extension: true,
			Fields:    map[string]*FieldInfo{},
		}
		s.Types[def.Name] = typeInfo
	} else if typeInfo.Kind != def.Kind {
		return errorf(ErrInvalidGraphQL, s.Name, "type %q declared as both %s and %s",
			def.Name, typeInfo.Kind, def.Kind)
	}
	if typeInfo.Description == "" {
		typeInfo.Description = def.Description
	}

	base := !isExtension

	for _, d := range def.Directives {
		canonical, ok, err := s.resolveDirective(d)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		switch canonical {
		case DirectiveKey:
			key, err := s.collectKey(def, d)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			typeInfo.Keys = append(typeInfo.Keys, key)
		case DirectiveShareable:
			typeInfo.Shareable = true
		case DirectiveExternal:
			typeInfo.External = true
		case DirectiveExtends:
			base = false
		case DirectiveInaccessible:
			typeInfo.Inaccessible = true
		case DirectiveTag:
			if tag, ok := directiveStringArg(d, "name"); ok {
				typeInfo.Tags = appendUnique(typeInfo.Tags, tag)
			}
		case DirectiveLink:
			errs = multierror.Append(errs, errorf(ErrInvalidLinkDirective, s.Name,
				"@link may only be applied to the schema definition"))
		}
	}

	if base {
		typeInfo.Extension = false
	}

	for _, iface := range def.Interfaces {
		typeInfo.Interfaces = appendUnique(typeInfo.Interfaces, iface)
	}
	for _, member := range def.Types {
		typeInfo.Members = appendUnique(typeInfo.Members, member)
	}

	for _, value := range def.EnumValues {
		if err := s.addEnumValue(typeInfo, value); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	for _, field := range def.Fields {
		if err := s.addField(typeInfo, field); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

func (s *Subgraph) addEnumValue(typeInfo *TypeInfo, value *ast.EnumValueDefinition) error {
	for _, existing := range typeInfo.EnumValues {
		if existing.Name == value.Name {
			return errorf(ErrInvalidGraphQL, s.Name, "enum value %s.%s defined more than once",
				typeInfo.Name, value.Name)
		}
	}

	info := &EnumValueInfo{
		Name:        value.Name,
		Description: value.Description,
	}
	for _, d := range value.Directives {
		canonical, ok, err := s.resolveDirective(d)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch canonical {
		case DirectiveInaccessible:
			info.Inaccessible = true
		case DirectiveTag:
			if tag, ok := directiveStringArg(d, "name"); ok {
				info.Tags = appendUnique(info.Tags, tag)
			}
		case DirectiveDeprecated:
			info.Deprecated = d
		}
	}
	typeInfo.EnumValues = append(typeInfo.EnumValues, info)
	return nil
}

func (s *Subgraph) addField(typeInfo *TypeInfo, field *ast.FieldDefinition) error {
	if _, exists := typeInfo.Fields[field.Name]; exists {
		return errorf(ErrInvalidGraphQL, s.Name, "field %s.%s defined more than once",
			typeInfo.Name, field.Name)
	}

	var errs *multierror.Error

	info := &FieldInfo{
		Name:       field.Name,
		Definition: field,
	}
	for _, d := range field.Directives {
		canonical, ok, err := s.resolveDirective(d)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		switch canonical {
		case DirectiveExternal:
			info.External = true
		case DirectiveShareable:
			info.Shareable = true
		case DirectiveInaccessible:
			info.Inaccessible = true
		case DirectiveTag:
			if tag, ok := directiveStringArg(d, "name"); ok {
				info.Tags = appendUnique(info.Tags, tag)
			}
		case DirectiveProvides:
			fieldSet, err := s.collectFieldSet(typeInfo, field, d, ErrProvidesInvalidFields)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			info.Provides = fieldSet
		case DirectiveRequires:
			fieldSet, err := s.collectFieldSet(typeInfo, field, d, ErrRequiresInvalidFields)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			info.Requires = fieldSet
		case DirectiveOverride:
			from, ok := directiveStringArg(d, "from")
			if !ok {
				errs = multierror.Append(errs, errorf(ErrInvalidGraphQL, s.Name,
					"@override on %s.%s requires a from argument", typeInfo.Name, field.Name))
				continue
			}
			info.OverrideFrom = from
		case DirectiveDeprecated:
			info.Deprecated = d
		case DirectiveKey:
			errs = multierror.Append(errs, errorf(ErrKeyInvalidFields, s.Name,
				"@key may not be applied to field %s.%s", typeInfo.Name, field.Name))
		}
	}

	typeInfo.Fields[field.Name] = info
	typeInfo.FieldOrder = append(typeInfo.FieldOrder, field.Name)

	return errs.ErrorOrNil()
}

func (s *Subgraph) collectKey(def *ast.Definition, d *ast.Directive) (*Key, error) {
	switch def.Kind {
	case ast.Object, ast.Interface:
	case ast.Union:
		return nil, errorf(ErrKeyUnsupportedOnUnion, s.Name, "@key may not be applied to union %q", def.Name)
	default:
		return nil, errorf(ErrKeyInvalidFields, s.Name, "@key may not be applied to %s %q", def.Kind, def.Name)
	}

	fields, ok := directiveStringArg(d, "fields")
	if !ok {
		return nil, errorf(ErrKeyInvalidFields, s.Name, "@key on %q requires a fields argument", def.Name)
	}
	fieldSet, err := ParseFieldSet(fields)
	if err != nil {
		return nil, errorf(ErrKeyInvalidFields, s.Name, "@key on %q: %s", def.Name, err.Error())
	}

	key := &Key{FieldSet: fieldSet, Resolvable: true}
	if resolvable := d.Arguments.ForName("resolvable"); resolvable != nil {
		key.Resolvable = resolvable.Value.Raw != "false"
	}
	return key, nil
}

func (s *Subgraph) collectFieldSet(typeInfo *TypeInfo, field *ast.FieldDefinition, d *ast.Directive, code string) (*FieldSet, error) {
	fields, ok := directiveStringArg(d, "fields")
	if !ok {
		return nil, errorf(code, s.Name, "@%s on %s.%s requires a fields argument",
			d.Name, typeInfo.Name, field.Name)
	}
	fieldSet, err := ParseFieldSet(fields)
	if err != nil {
		return nil, errorf(code, s.Name, "@%s on %s.%s: %s", d.Name, typeInfo.Name, field.Name, err.Error())
	}
	return fieldSet, nil
}

// resolveDirective maps an applied directive to its canonical federation
// name. Unknown directives are not an error, composition simply ignores
// them. Federation v2 directives applied in a v1 subgraph are rejected with
// a pointer to the missing @link.
func (s *Subgraph) resolveDirective(d *ast.Directive) (string, bool, error) {
	if d.Name == DirectiveDeprecated {
		return DirectiveDeprecated, true, nil
	}
	canonical, ok := s.names.canonical(d.Name)
	if ok {
		if _, unsupported := unsupportedDirectives[canonical]; unsupported {
			return "", false, errorf(ErrUnsupportedFeature, s.Name,
				"@%s is not supported by this composition engine", d.Name)
		}
		return canonical, true, nil
	}
	if s.Version == VersionOne {
		if _, known := directiveDefinitions[d.Name]; known {
			return "", false, errorf(ErrInvalidGraphQL, s.Name,
				"@%s requires the subgraph to @link the federation v2 spec", d.Name)
		}
	}
	return "", false, nil
}

// CanonicalDirective maps an applied directive to its canonical federation
// name, or false if composition should ignore it.
func (s *Subgraph) CanonicalDirective(d *ast.Directive) (string, bool) {
	canonical, ok, err := s.resolveDirective(d)
	if err != nil {
		return "", false
	}
	return canonical, ok
}

func directiveStringArg(d *ast.Directive, name string) (string, bool) {
	arg := d.Arguments.ForName(name)
	if arg == nil {
		return "", false
	}
	return arg.Value.Raw, true
}

func appendUnique(list []string, value string) []string {
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}
