package federation

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// FieldSet is the parsed form of the selection-set mini-language used by
// @key(fields:), @requires(fields:) and @provides(fields:).
type FieldSet struct {
	Raw        string
	Selections ast.SelectionSet
}

// ParseFieldSet parses a raw field set such as "id organization { id }".
func ParseFieldSet(raw string) (*FieldSet, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: "{" + raw + "}"})
	if err != nil {
		return nil, fmt.Errorf("invalid field set %q: %w", raw, err)
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("invalid field set %q", raw)
	}
	return &FieldSet{
		Raw:        raw,
		Selections: doc.Operations[0].SelectionSet,
	}, nil
}

// TopLevelFields returns the names of the first-level fields of the set.
func (fs *FieldSet) TopLevelFields() []string {
	names := make([]string, 0, len(fs.Selections))
	for _, sel := range fs.Selections {
		if field, ok := sel.(*ast.Field); ok {
			names = append(names, field.Name)
		}
	}
	return names
}

// validateFieldSet checks a field set against the subgraph type it selects
// from. Field sets may only contain plain nested fields: no aliases, no
// arguments, no directives and no fragments.
func (s *Subgraph) validateFieldSet(code string, fs *FieldSet, typeName string) error {
	return s.validateSelections(code, fs, fs.Selections, typeName)
}

func (s *Subgraph) validateSelections(code string, fs *FieldSet, selections ast.SelectionSet, typeName string) error {
	typeInfo, ok := s.Types[typeName]
	if !ok {
		return errorf(code, s.Name, "field set %q selects from unknown type %q", fs.Raw, typeName)
	}
	if typeInfo.Kind == ast.Union {
		return errorf(ErrKeyUnsupportedOnUnion, s.Name, "field set %q selects from union %q", fs.Raw, typeName)
	}

	for _, sel := range selections {
		field, ok := sel.(*ast.Field)
		if !ok {
			return errorf(code, s.Name, "field set %q must not contain fragments", fs.Raw)
		}
		if field.Alias != "" && field.Alias != field.Name {
			return errorf(code, s.Name, "field set %q must not contain aliases", fs.Raw)
		}
		if len(field.Arguments) > 0 {
			return errorf(code, s.Name, "field set %q must not contain arguments", fs.Raw)
		}
		if len(field.Directives) > 0 {
			return errorf(code, s.Name, "field set %q must not contain directives", fs.Raw)
		}

		fieldInfo, ok := typeInfo.Fields[field.Name]
		if !ok {
			return errorf(code, s.Name, "field set %q references undefined field %q on type %q",
				fs.Raw, field.Name, typeName)
		}

		fieldType := fieldInfo.Definition.Type.Name()
		composite := s.isCompositeType(fieldType)
		if len(field.SelectionSet) > 0 {
			if !composite {
				return errorf(code, s.Name, "field set %q selects into leaf field %q", fs.Raw, field.Name)
			}
			if err := s.validateSelections(code, fs, field.SelectionSet, fieldType); err != nil {
				return err
			}
		} else if composite {
			return errorf(code, s.Name, "field set %q selects composite field %q without a sub-selection",
				fs.Raw, field.Name)
		}
	}
	return nil
}

func (s *Subgraph) isCompositeType(name string) bool {
	typeInfo, ok := s.Types[name]
	if !ok {
		return false
	}
	switch typeInfo.Kind {
	case ast.Object, ast.Interface, ast.Union:
		return true
	default:
		return false
	}
}
