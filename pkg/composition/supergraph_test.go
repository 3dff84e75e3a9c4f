package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

func TestSupergraphSchemaDefinition(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)
	require.Len(t, doc.Schema, 1)

	links := doc.Schema[0].Directives.ForNames("link")
	require.Len(t, links, 2)
	assert.Equal(t, "https://specs.apollographql.com/link/v1.0", links[0].Arguments.ForName("url").Value.Raw)
	assert.Equal(t, "https://specs.apollographql.com/join/v0.3", links[1].Arguments.ForName("url").Value.Raw)
	assert.Equal(t, "EXECUTION", links[1].Arguments.ForName("for").Value.Raw)

	var rootOps []string
	for _, op := range doc.Schema[0].OperationTypes {
		rootOps = append(rootOps, string(op.Operation)+":"+op.Type)
	}
	assert.Equal(t, []string{"query:Query"}, rootOps)
}

func TestSupergraphJoinMachinery(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)

	for _, name := range []string{"join__FieldSet", "link__Import"} {
		def := findType(doc, name)
		require.NotNil(t, def, name)
		assert.Equal(t, ast.Scalar, def.Kind)
	}

	purpose := findType(doc, "link__Purpose")
	require.NotNil(t, purpose)
	assert.NotNil(t, purpose.EnumValues.ForName("SECURITY"))
	assert.NotNil(t, purpose.EnumValues.ForName("EXECUTION"))

	graphEnum := findType(doc, "join__Graph")
	require.NotNil(t, graphEnum)
	accounts := graphEnum.EnumValues.ForName("ACCOUNTS")
	require.NotNil(t, accounts)
	graphDirective := accounts.Directives.ForName("join__graph")
	require.NotNil(t, graphDirective)
	assert.Equal(t, "accounts", graphDirective.Arguments.ForName("name").Value.Raw)
	assert.Equal(t, "http://localhost:4001/graphql", graphDirective.Arguments.ForName("url").Value.Raw)

	var directiveNames []string
	for _, def := range doc.Directives {
		directiveNames = append(directiveNames, def.Name)
	}
	for _, expected := range []string{
		"link", "join__graph", "join__type", "join__field",
		"join__implements", "join__unionMember", "join__enumValue",
		"inaccessible", "tag",
	} {
		assert.Contains(t, directiveNames, expected)
	}
}

func TestSupergraphJoinFieldOmittedForIdenticalFields(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)

	// upc is declared identically in products and reviews
	upc := findType(doc, "Product").Fields.ForName("upc")
	require.NotNil(t, upc)
	assert.Empty(t, upc.Directives.ForNames("join__field"))

	// price exists only in products
	price := findType(doc, "Product").Fields.ForName("price")
	require.NotNil(t, price)
	joins := price.Directives.ForNames("join__field")
	require.Len(t, joins, 1)
	assert.Equal(t, "PRODUCTS", joins[0].Arguments.ForName("graph").Value.Raw)
}

func TestSupergraphExternalAndProvides(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)

	name := findType(doc, "User").Fields.ForName("name")
	require.NotNil(t, name)

	var sawExternal, sawProvides bool
	for _, join := range name.Directives.ForNames("join__field") {
		if arg := join.Arguments.ForName("external"); arg != nil && arg.Value.Raw == "true" {
			sawExternal = true
		}
	}
	author := findType(doc, "Review").Fields.ForName("author")
	require.NotNil(t, author)
	for _, join := range author.Directives.ForNames("join__field") {
		if arg := join.Arguments.ForName("provides"); arg != nil && arg.Value.Raw == "name" {
			sawProvides = true
		}
	}
	assert.True(t, sawExternal)
	assert.True(t, sawProvides)
}

func TestSupergraphExtensionAndResolvableFlags(t *testing.T) {
	federated, err := Federate(
		&Subgraph{Name: "catalog", Schema: `
type Query {
	products: [Product!]!
}

type Product @key(fields: "upc") @key(fields: "sku", resolvable: false) {
	upc: String!
	sku: String!
}
`},
		&Subgraph{Name: "inventory", Schema: `
extend type Product @key(fields: "upc") {
	upc: String! @external
	inStock: Boolean!
}
`},
	)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)
	product := findType(doc, "Product")
	require.NotNil(t, product)

	joins := product.Directives.ForNames("join__type")
	require.Len(t, joins, 3)

	var sawUnresolvable, sawExtension bool
	for _, join := range joins {
		if arg := join.Arguments.ForName("resolvable"); arg != nil && arg.Value.Raw == "false" {
			sawUnresolvable = true
		}
		if arg := join.Arguments.ForName("extension"); arg != nil && arg.Value.Raw == "true" {
			sawExtension = true
		}
	}
	assert.True(t, sawUnresolvable)
	assert.True(t, sawExtension)
}

func TestSupergraphTypeDivergence(t *testing.T) {
	federated, err := Federate(
		&Subgraph{Name: "a", Schema: `
type Query {
	greeting: String!
}
`},
		&Subgraph{Name: "b", Schema: `
type Query {
	greeting: String
}
`},
	)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)
	greeting := findType(doc, "Query").Fields.ForName("greeting")
	require.NotNil(t, greeting)
	assert.Equal(t, "String", greeting.Type.String())

	var divergent string
	for _, join := range greeting.Directives.ForNames("join__field") {
		if arg := join.Arguments.ForName("type"); arg != nil {
			divergent = arg.Value.Raw
		}
	}
	assert.Equal(t, "String!", divergent)
}

func TestSupergraphUnionMembers(t *testing.T) {
	federated, err := Federate(
		&Subgraph{Name: "content", Schema: `
type Query {
	media: [Media!]!
}

union Media = Book | Movie

type Book {
	title: String!
}

type Movie {
	title: String!
}
`},
	)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)
	media := findType(doc, "Media")
	require.NotNil(t, media)
	assert.Equal(t, []string{"Book", "Movie"}, media.Types)

	members := media.Directives.ForNames("join__unionMember")
	require.Len(t, members, 2)
	assert.Equal(t, "Book", members[0].Arguments.ForName("member").Value.Raw)
}

func TestSanitizeGraphName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"accounts", "ACCOUNTS"},
		{"my-service", "MY_SERVICE"},
		{"my.service.v2", "MY_SERVICE_V2"},
		{"1numbers", "GRAPH_1NUMBERS"},
		{"--weird--", "WEIRD"},
		{"---", "GRAPH"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeGraphName(tt.in), tt.in)
	}
}
