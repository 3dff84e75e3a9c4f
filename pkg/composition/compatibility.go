package composition

import (
	"github.com/wundergraph/graphql-go-tools/v2/pkg/astparser"
	"github.com/wundergraph/graphql-go-tools/v2/pkg/asttransform"
)

// checkEngineCompatibility re-parses the projected API schema with the
// execution engine's parser and merges in the base schema (__schema and
// __type). A schema the engine cannot load must never be published.
func checkEngineCompatibility(apiSDL string) error {
	definition, report := astparser.ParseGraphqlDocumentString(apiSDL)
	if report.HasErrors() {
		return compositionErrorf(ErrIncompatibleAPISchema,
			"api schema is not loadable by the execution engine: %s", report.Error())
	}
	if err := asttransform.MergeDefinitionWithBaseSchema(&definition); err != nil {
		return compositionErrorf(ErrIncompatibleAPISchema,
			"api schema cannot be merged with the base schema: %s", err)
	}
	return nil
}
