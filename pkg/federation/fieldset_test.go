package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFieldSet(t *testing.T) {
	fs, err := ParseFieldSet("id organization { id }")
	require.NoError(t, err)

	assert.Equal(t, "id organization { id }", fs.Raw)
	assert.Equal(t, []string{"id", "organization"}, fs.TopLevelFields())
}

func TestParseFieldSetInvalid(t *testing.T) {
	_, err := ParseFieldSet("id {")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field set")
}

func TestValidateFieldSet(t *testing.T) {
	s := parseTestSubgraph(t, linkV2+`
type Query {
	employee: Employee
}

type Employee @key(fields: "id") {
	id: Int!
	organization: Organization!
}

type Organization {
	id: Int!
}
`)

	tests := []struct {
		name     string
		fieldSet string
		wantErr  string
	}{
		{
			name:     "nested composite selection",
			fieldSet: "id organization { id }",
		},
		{
			name:     "undefined field",
			fieldSet: "uuid",
			wantErr:  "references undefined field",
		},
		{
			name:     "composite without sub-selection",
			fieldSet: "organization",
			wantErr:  "without a sub-selection",
		},
		{
			name:     "selection into leaf",
			fieldSet: "id { value }",
			wantErr:  "selects into leaf field",
		},
		{
			name:     "alias",
			fieldSet: "key: id",
			wantErr:  "must not contain aliases",
		},
		{
			name:     "fragment",
			fieldSet: "... on Employee { id }",
			wantErr:  "must not contain fragments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, err := ParseFieldSet(tt.fieldSet)
			require.NoError(t, err)

			err = s.validateFieldSet(ErrKeyInvalidFields, fs, "Employee")
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
