package federation

import (
	"github.com/hashicorp/go-multierror"
	"github.com/vektah/gqlparser/v2/ast"
)

// validate runs the whole-subgraph checks that need the complete type table:
// field set resolution, @override sanity and type reference integrity.
func (s *Subgraph) validate() error {
	var errs *multierror.Error

	for _, name := range s.TypeNames() {
		typeInfo := s.Types[name]

		for _, key := range typeInfo.Keys {
			if err := s.validateFieldSet(ErrKeyInvalidFields, key.FieldSet, name); err != nil {
				errs = multierror.Append(errs, err)
			}
		}

		for _, iface := range typeInfo.Interfaces {
			ifaceInfo, ok := s.Types[iface]
			if !ok {
				errs = multierror.Append(errs, errorf(ErrUnknownType, s.Name,
					"type %q implements undefined interface %q", name, iface))
			} else if ifaceInfo.Kind != ast.Interface {
				errs = multierror.Append(errs, errorf(ErrInvalidGraphQL, s.Name,
					"type %q implements %q which is not an interface", name, iface))
			}
		}

		for _, member := range typeInfo.Members {
			memberInfo, ok := s.Types[member]
			if !ok {
				errs = multierror.Append(errs, errorf(ErrUnknownType, s.Name,
					"union %q references undefined type %q", name, member))
			} else if memberInfo.Kind != ast.Object {
				errs = multierror.Append(errs, errorf(ErrInvalidGraphQL, s.Name,
					"union member %s.%s must be an object type", name, member))
			}
		}

		for _, fieldName := range typeInfo.FieldOrder {
			field := typeInfo.Fields[fieldName]
			if err := s.validateField(typeInfo, field); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}

	return errs.ErrorOrNil()
}

func (s *Subgraph) validateField(typeInfo *TypeInfo, field *FieldInfo) error {
	var errs *multierror.Error

	if !s.typeExists(field.Definition.Type.Name()) {
		errs = multierror.Append(errs, errorf(ErrUnknownType, s.Name,
			"field %s.%s references undefined type %q", typeInfo.Name, field.Name, field.Definition.Type.Name()))
	}
	for _, arg := range field.Definition.Arguments {
		if !s.typeExists(arg.Type.Name()) {
			errs = multierror.Append(errs, errorf(ErrUnknownType, s.Name,
				"argument %s.%s(%s:) references undefined type %q",
				typeInfo.Name, field.Name, arg.Name, arg.Type.Name()))
		}
	}

	if field.Requires != nil {
		if err := s.validateFieldSet(ErrRequiresInvalidFields, field.Requires, typeInfo.Name); err != nil {
			errs = multierror.Append(errs, err)
		} else {
			for _, required := range field.Requires.TopLevelFields() {
				if other := typeInfo.Fields[required]; other != nil && !other.External {
					errs = multierror.Append(errs, errorf(ErrRequiresFieldsMissingExternal, s.Name,
						"@requires on %s.%s references field %q which is not marked @external",
						typeInfo.Name, field.Name, required))
				}
			}
		}
	}

	if field.Provides != nil {
		target := field.Definition.Type.Name()
		if !s.isCompositeType(target) {
			errs = multierror.Append(errs, errorf(ErrProvidesInvalidFields, s.Name,
				"@provides on %s.%s requires the field to return a composite type", typeInfo.Name, field.Name))
		} else if err := s.validateFieldSet(ErrProvidesInvalidFields, field.Provides, target); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if field.OverrideFrom == s.Name {
		errs = multierror.Append(errs, errorf(ErrOverrideFromSelf,
			s.Name, "field %s.%s cannot be overridden from its own subgraph",
			typeInfo.Name, field.Name))
	}

	return errs.ErrorOrNil()
}

func (s *Subgraph) typeExists(name string) bool {
	if isBuiltinScalar(name) {
		return true
	}
	_, ok := s.Types[name]
	return ok
}
