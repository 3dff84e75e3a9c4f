package composition

import "github.com/vektah/gqlparser/v2/ast"

func copyType(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	return &ast.Type{
		NamedType: t.NamedType,
		Elem:      copyType(t.Elem),
		NonNull:   t.NonNull,
	}
}

// mergeOutputTypes merges two type references in output position. The named
// type and list shape must agree, nullability is coerced to the least
// restrictive form: a field that is nullable in any subgraph is nullable in
// the supergraph.
func mergeOutputTypes(a, b *ast.Type) (*ast.Type, bool) {
	switch {
	case a.NamedType != "" && b.NamedType != "":
		if a.NamedType != b.NamedType {
			return nil, false
		}
		return &ast.Type{NamedType: a.NamedType, NonNull: a.NonNull && b.NonNull}, true
	case a.Elem != nil && b.Elem != nil:
		elem, ok := mergeOutputTypes(a.Elem, b.Elem)
		if !ok {
			return nil, false
		}
		return &ast.Type{Elem: elem, NonNull: a.NonNull && b.NonNull}, true
	default:
		return nil, false
	}
}

// mergeInputTypes merges two type references in input position. Input
// positions coerce the other way: a value that is required anywhere must be
// required in the supergraph, otherwise a client could omit it for a
// subgraph that cannot handle the omission.
func mergeInputTypes(a, b *ast.Type) (*ast.Type, bool) {
	switch {
	case a.NamedType != "" && b.NamedType != "":
		if a.NamedType != b.NamedType {
			return nil, false
		}
		return &ast.Type{NamedType: a.NamedType, NonNull: a.NonNull || b.NonNull}, true
	case a.Elem != nil && b.Elem != nil:
		elem, ok := mergeInputTypes(a.Elem, b.Elem)
		if !ok {
			return nil, false
		}
		return &ast.Type{Elem: elem, NonNull: a.NonNull || b.NonNull}, true
	default:
		return nil, false
	}
}
