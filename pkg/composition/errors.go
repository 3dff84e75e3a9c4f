package composition

import "fmt"

// Error codes reported by composition. The codes are stable and are part of
// the public API, tools match on them.
const (
	ErrInvalidSubgraph           = "INVALID_SUBGRAPH"
	ErrTypeKindMismatch          = "TYPE_KIND_MISMATCH"
	ErrInvalidFieldSharing       = "INVALID_FIELD_SHARING"
	ErrFieldTypeMismatch         = "FIELD_TYPE_MISMATCH"
	ErrArgumentTypeMismatch      = "FIELD_ARGUMENT_TYPE_MISMATCH"
	ErrDefaultValueMismatch      = "FIELD_ARGUMENT_DEFAULT_MISMATCH"
	ErrRequiredArgMissing        = "REQUIRED_ARGUMENT_MISSING_IN_SOME_SUBGRAPH"
	ErrRequiredInputMissing      = "REQUIRED_INPUT_FIELD_MISSING_IN_SOME_SUBGRAPH"
	ErrEnumValueMismatch         = "ENUM_VALUE_MISMATCH"
	ErrEmptyMergedEnum           = "EMPTY_MERGED_ENUM_TYPE"
	ErrEmptyMergedInput          = "EMPTY_MERGED_INPUT_TYPE"
	ErrInterfaceFieldNoImpl      = "INTERFACE_FIELD_NO_IMPLEM"
	ErrExternalMissingOnBase     = "EXTERNAL_MISSING_ON_BASE"
	ErrOverrideSourceHasOverride = "OVERRIDE_SOURCE_HAS_OVERRIDE"
	ErrUnresolvableField         = "UNRESOLVABLE_FIELD"
	ErrNoQueries                 = "NO_QUERIES"
	ErrReferencedInaccessible    = "REFERENCED_INACCESSIBLE"
	ErrRequiredInaccessible      = "REQUIRED_INACCESSIBLE"
	ErrIncompatibleAPISchema     = "INCOMPATIBLE_API_SCHEMA"
)

// CompositionError is a cross-subgraph composition error with a stable
// machine-readable code.
type CompositionError struct {
	Code    string
	Message string
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func compositionErrorf(code, format string, args ...any) *CompositionError {
	return &CompositionError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
