package federation

import "fmt"

// Error codes reported while parsing and validating a single subgraph schema.
const (
	ErrInvalidGraphQL        = "INVALID_GRAPHQL"
	ErrInvalidLinkDirective  = "INVALID_LINK_DIRECTIVE"
	ErrKeyInvalidFields      = "KEY_INVALID_FIELDS"
	ErrKeyUnsupportedOnUnion = "KEY_UNSUPPORTED_ON_UNION"
	ErrProvidesInvalidFields = "PROVIDES_INVALID_FIELDS"
	ErrRequiresInvalidFields = "REQUIRES_INVALID_FIELDS"

	ErrRequiresFieldsMissingExternal = "REQUIRES_FIELDS_MISSING_EXTERNAL"
	ErrOverrideFromSelf              = "OVERRIDE_FROM_SELF_ERROR"
	ErrUnsupportedFeature            = "UNSUPPORTED_FEATURE"
	ErrUnknownType                   = "UNKNOWN_TYPE"
)

// Error is a subgraph validation error with a stable machine-readable code.
type Error struct {
	Code     string
	Subgraph string
	Message  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] subgraph %q: %s", e.Code, e.Subgraph, e.Message)
}

func errorf(code, subgraph, format string, args ...any) *Error {
	return &Error{
		Code:     code,
		Subgraph: subgraph,
		Message:  fmt.Sprintf(format, args...),
	}
}
