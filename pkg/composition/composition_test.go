package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

const accountsSchema = `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key", "@shareable", "@inaccessible", "@tag"])

type Query {
	me: User
}

type User @key(fields: "id") {
	id: ID!
	name: String!
	email: String!
}
`

const productsSchema = `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key", "@shareable"])

type Query {
	topProducts(first: Int = 5): [Product!]!
}

type Product @key(fields: "upc") {
	upc: String!
	name: String!
	price: Int!
}
`

const reviewsSchema = `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key", "@external", "@provides"])

type Review {
	id: ID!
	body: String!
	author: User! @provides(fields: "name")
	product: Product!
}

type User @key(fields: "id") {
	id: ID!
	name: String! @external
	reviews: [Review!]!
}

type Product @key(fields: "upc") {
	upc: String!
	reviews: [Review!]!
}
`

func testSubgraphs() []*Subgraph {
	return []*Subgraph{
		{Name: "accounts", URL: "http://localhost:4001/graphql", Schema: accountsSchema},
		{Name: "products", URL: "http://localhost:4002/graphql", Schema: productsSchema},
		{Name: "reviews", URL: "http://localhost:4003/graphql", Schema: reviewsSchema},
	}
}

func parseSDL(t *testing.T, sdl string) *ast.SchemaDocument {
	t.Helper()

	doc, err := parser.ParseSchema(&ast.Source{Name: "sdl", Input: sdl})
	require.NoError(t, err)
	return doc
}

func findType(doc *ast.SchemaDocument, name string) *ast.Definition {
	for _, def := range doc.Definitions {
		if def.Name == name {
			return def
		}
	}
	return nil
}

func requireCompositionError(t *testing.T, err error, code string) {
	t.Helper()

	require.Error(t, err)
	assert.Contains(t, err.Error(), code)
}

func TestFederate(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	assert.NotEmpty(t, federated.SDL)
	assert.NotEmpty(t, federated.APISDL)
	assert.NotEmpty(t, federated.Version)
	assert.Equal(t, federated.APISDL, federated.APISchema())

	doc := parseSDL(t, federated.SDL)

	graphEnum := findType(doc, "join__Graph")
	require.NotNil(t, graphEnum)
	var graphNames []string
	for _, value := range graphEnum.EnumValues {
		graphNames = append(graphNames, value.Name)
	}
	assert.Equal(t, []string{"ACCOUNTS", "PRODUCTS", "REVIEWS"}, graphNames)

	user := findType(doc, "User")
	require.NotNil(t, user)
	joins := user.Directives.ForNames("join__type")
	require.Len(t, joins, 2)
	assert.Equal(t, "id", joins[0].Arguments.ForName("key").Value.Raw)

	// name is external in reviews, so it carries join__field annotations
	name := user.Fields.ForName("name")
	require.NotNil(t, name)
	assert.NotEmpty(t, name.Directives.ForNames("join__field"))
}

func TestFederateEntities(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	require.Len(t, federated.Entities, 2)

	product := federated.Entities[0]
	assert.Equal(t, "Product", product.TypeName)
	assert.Equal(t, []string{"upc"}, product.Keys)
	assert.Equal(t, []string{"products", "reviews"}, product.Subgraphs)

	user := federated.Entities[1]
	assert.Equal(t, "User", user.TypeName)
	assert.Equal(t, []string{"id"}, user.Keys)
	assert.Equal(t, []string{"accounts", "reviews"}, user.Subgraphs)
}

func TestFederateArgumentConfigurations(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	require.Len(t, federated.ArgumentConfigurations, 1)
	cfg := federated.ArgumentConfigurations[0]
	assert.Equal(t, "Query", cfg.TypeName)
	assert.Equal(t, "topProducts", cfg.FieldName)
	assert.Equal(t, []string{"first"}, cfg.ArgumentNames)
}

func TestFederateAPISchema(t *testing.T) {
	federated, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	assert.NotContains(t, federated.APISDL, "join__")
	assert.NotContains(t, federated.APISDL, "link__")
	assert.NotContains(t, federated.APISDL, "@key")
	assert.NotContains(t, federated.APISDL, "@external")

	doc := parseSDL(t, federated.APISDL)
	for _, name := range []string{"Query", "User", "Product", "Review"} {
		assert.NotNil(t, findType(doc, name), name)
	}

	topProducts := findType(doc, "Query").Fields.ForName("topProducts")
	require.NotNil(t, topProducts)
	require.Len(t, topProducts.Arguments, 1)
	assert.Equal(t, "first", topProducts.Arguments[0].Name)
}

func TestFederateDeterministic(t *testing.T) {
	first, err := Federate(testSubgraphs()...)
	require.NoError(t, err)

	// Input order must not matter
	reversed := testSubgraphs()
	reversed[0], reversed[2] = reversed[2], reversed[0]
	second, err := Federate(reversed...)
	require.NoError(t, err)

	assert.Equal(t, first.SDL, second.SDL)
	assert.Equal(t, first.APISDL, second.APISDL)
	assert.Equal(t, first.Version, second.Version)
}

func TestFederateInputValidation(t *testing.T) {
	t.Run("no subgraphs", func(t *testing.T) {
		_, err := Federate()
		requireCompositionError(t, err, ErrInvalidSubgraph)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := Federate(&Subgraph{Name: "", Schema: "type Query { hello: String }"})
		requireCompositionError(t, err, ErrInvalidSubgraph)
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: "type Query { hello: String }"},
			&Subgraph{Name: "a", Schema: "type Query { world: String }"},
		)
		requireCompositionError(t, err, ErrInvalidSubgraph)
	})

	t.Run("invalid subgraph schema", func(t *testing.T) {
		_, err := Federate(&Subgraph{Name: "a", Schema: "type Query {"})
		require.Error(t, err)
	})
}

func TestFederateAggregatesParseErrors(t *testing.T) {
	invalid := `
type Query {
	thing: Thing
}

type Thing @key(fields: "missing") {
	id: ID!
}
`
	_, err := Federate(
		&Subgraph{Name: "alpha", Schema: invalid},
		&Subgraph{Name: "beta", Schema: invalid},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `subgraph "alpha"`)
	assert.Contains(t, err.Error(), `subgraph "beta"`)
}

func TestFieldSharing(t *testing.T) {
	t.Run("non-shareable conflict in v2", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key"])

type Query {
	position: Position
}

type Position {
	x: Int!
}
`},
			&Subgraph{Name: "b", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key"])

type Query {
	otherPosition: Position
}

type Position {
	x: Int!
}
`},
		)
		requireCompositionError(t, err, ErrInvalidFieldSharing)
	})

	t.Run("shareable everywhere", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@shareable"])

type Query {
	position: Position
}

type Position @shareable {
	x: Int!
}
`},
			&Subgraph{Name: "b", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@shareable"])

type Query {
	otherPosition: Position
}

type Position {
	x: Int! @shareable
}
`},
		)
		require.NoError(t, err)
	})

	t.Run("v1 fields are implicitly shareable", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	position: Position
}

type Position {
	x: Int!
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	otherPosition: Position
}

type Position {
	x: Int!
}
`},
		)
		require.NoError(t, err)
	})

	t.Run("key fields are exempt", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key"])

type Query {
	employee: Employee
}

type Employee @key(fields: "id") {
	id: Int!
}
`},
			&Subgraph{Name: "b", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key"])

type Query {
	employees: [Employee!]!
}

type Employee @key(fields: "id") {
	id: Int!
}
`},
		)
		require.NoError(t, err)
	})
}

func TestOutputTypeMerging(t *testing.T) {
	t.Run("nullability is coerced to nullable", func(t *testing.T) {
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

		doc := parseSDL(t, federated.APISDL)
		greeting := findType(doc, "Query").Fields.ForName("greeting")
		require.NotNil(t, greeting)
		assert.Equal(t, "String", greeting.Type.String())
	})

	t.Run("named type mismatch", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	greeting: String
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	greeting: Int
}
`},
		)
		requireCompositionError(t, err, ErrFieldTypeMismatch)
	})

	t.Run("list shape mismatch", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	greeting: [String]
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	greeting: String
}
`},
		)
		requireCompositionError(t, err, ErrFieldTypeMismatch)
	})
}

func TestArgumentMerging(t *testing.T) {
	t.Run("optional argument missing in one subgraph is dropped", func(t *testing.T) {
		federated, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	items(limit: Int): [String!]!
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	items: [String!]!
}
`},
		)
		require.NoError(t, err)

		doc := parseSDL(t, federated.APISDL)
		items := findType(doc, "Query").Fields.ForName("items")
		require.NotNil(t, items)
		assert.Empty(t, items.Arguments)
	})

	t.Run("required argument missing in one subgraph", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	items(limit: Int!): [String!]!
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	items: [String!]!
}
`},
		)
		requireCompositionError(t, err, ErrRequiredArgMissing)
	})

	t.Run("input nullability is coerced to non-null", func(t *testing.T) {
		federated, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	items(limit: Int): [String!]!
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	items(limit: Int!): [String!]!
}
`},
		)
		require.NoError(t, err)

		doc := parseSDL(t, federated.APISDL)
		items := findType(doc, "Query").Fields.ForName("items")
		require.NotNil(t, items)
		require.Len(t, items.Arguments, 1)
		assert.Equal(t, "Int!", items.Arguments[0].Type.String())
	})

	t.Run("argument type mismatch", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	items(limit: Int): [String!]!
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	items(limit: String): [String!]!
}
`},
		)
		requireCompositionError(t, err, ErrArgumentTypeMismatch)
	})

	t.Run("default value mismatch", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	items(limit: Int = 10): [String!]!
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	items(limit: Int = 20): [String!]!
}
`},
		)
		requireCompositionError(t, err, ErrDefaultValueMismatch)
	})
}

func TestInputObjectMerging(t *testing.T) {
	t.Run("intersection of fields", func(t *testing.T) {
		federated, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	search(filter: Filter): [String!]!
}

input Filter {
	query: String
	limit: Int
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	find(filter: Filter): [String!]!
}

input Filter {
	query: String
}
`},
		)
		require.NoError(t, err)

		doc := parseSDL(t, federated.APISDL)
		filter := findType(doc, "Filter")
		require.NotNil(t, filter)
		require.Len(t, filter.Fields, 1)
		assert.Equal(t, "query", filter.Fields[0].Name)
	})

	t.Run("dropped required field", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	search(filter: Filter): [String!]!
}

input Filter {
	query: String!
	limit: Int
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	find(filter: Filter): [String!]!
}

input Filter {
	limit: Int
}
`},
		)
		requireCompositionError(t, err, ErrRequiredInputMissing)
	})

	t.Run("empty intersection", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
type Query {
	search(filter: Filter): [String!]!
}

input Filter {
	query: String
}
`},
			&Subgraph{Name: "b", Schema: `
type Query {
	find(filter: Filter): [String!]!
}

input Filter {
	limit: Int
}
`},
		)
		requireCompositionError(t, err, ErrEmptyMergedInput)
	})
}

func TestOverride(t *testing.T) {
	t.Run("moves ownership", func(t *testing.T) {
		federated, err := Federate(
			&Subgraph{Name: "legacy", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key"])

type Query {
	employee: Employee
}

type Employee @key(fields: "id") {
	id: Int!
	salary: Int!
}
`},
			&Subgraph{Name: "payroll", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key", "@override"])

type Employee @key(fields: "id") {
	id: Int!
	salary: Int! @override(from: "legacy")
}
`},
		)
		require.NoError(t, err)

		doc := parseSDL(t, federated.SDL)
		salary := findType(doc, "Employee").Fields.ForName("salary")
		require.NotNil(t, salary)

		var overrideFrom string
		for _, join := range salary.Directives.ForNames("join__field") {
			if arg := join.Arguments.ForName("override"); arg != nil {
				overrideFrom = arg.Value.Raw
			}
		}
		assert.Equal(t, "legacy", overrideFrom)
	})

	t.Run("override source declares its own override", func(t *testing.T) {
		_, err := Federate(
			&Subgraph{Name: "a", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key", "@override"])

type Query {
	employee: Employee
}

type Employee @key(fields: "id") {
	id: Int!
	salary: Int! @override(from: "b")
}
`},
			&Subgraph{Name: "b", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key", "@override"])

type Employee @key(fields: "id") {
	id: Int!
	salary: Int! @override(from: "a")
}
`},
		)
		requireCompositionError(t, err, ErrOverrideSourceHasOverride)
	})
}

func TestSatisfiability(t *testing.T) {
	t.Run("unreachable entity field", func(t *testing.T) {
		// reviews can only resolve User through an entity jump on id, but
		// accounts declares its key as unresolvable.
		_, err := Federate(
			&Subgraph{Name: "accounts", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key"])

type Query {
	me: User
}

type User @key(fields: "id") {
	id: ID!
	name: String!
}
`},
			&Subgraph{Name: "reviews", Schema: `
extend schema @link(url: "https://specs.apollographql.com/federation/v2.3", import: ["@key"])

type User @key(fields: "uuid", resolvable: false) {
	uuid: ID!
	reviews: [String!]!
}
`},
		)
		requireCompositionError(t, err, ErrUnresolvableField)
	})

	t.Run("entity jump resolves remote fields", func(t *testing.T) {
		_, err := Federate(testSubgraphs()...)
		require.NoError(t, err)
	})
}

func TestNoQueries(t *testing.T) {
	_, err := Federate(
		&Subgraph{Name: "a", Schema: `
type Mutation {
	doIt: Boolean!
}
`},
	)
	requireCompositionError(t, err, ErrNoQueries)
}

func TestTypeKindMismatch(t *testing.T) {
	_, err := Federate(
		&Subgraph{Name: "a", Schema: `
type Query {
	thing: Thing
}

type Thing {
	id: Int!
}
`},
		&Subgraph{Name: "b", Schema: `
type Query {
	things: [Thing!]!
}

interface Thing {
	id: Int!
}
`},
	)
	requireCompositionError(t, err, ErrTypeKindMismatch)
}

func TestInterfaceImplementations(t *testing.T) {
	_, err := Federate(
		&Subgraph{Name: "a", Schema: `
type Query {
	nodes: [Node!]!
}

interface Node {
	id: ID!
	createdAt: String!
}

type Post implements Node {
	id: ID!
	createdAt: String!
}
`},
		&Subgraph{Name: "b", Schema: `
type Query {
	comments: [Comment!]!
}

interface Node {
	id: ID!
}

type Comment implements Node {
	id: ID!
}
`},
	)
	// Comment implements Node but the merged Node requires createdAt
	requireCompositionError(t, err, ErrInterfaceFieldNoImpl)
}

func TestRootTypeRenames(t *testing.T) {
	federated, err := Federate(
		&Subgraph{Name: "a", Schema: `
schema {
	query: RootQuery
}

type RootQuery {
	hello: String
}
`},
		&Subgraph{Name: "b", Schema: `
type Query {
	world: String
}
`},
	)
	require.NoError(t, err)

	doc := parseSDL(t, federated.APISDL)
	query := findType(doc, "Query")
	require.NotNil(t, query)
	assert.NotNil(t, query.Fields.ForName("hello"))
	assert.NotNil(t, query.Fields.ForName("world"))
	assert.Nil(t, findType(doc, "RootQuery"))
}

func TestGraphNameSanitization(t *testing.T) {
	federated, err := Federate(
		&Subgraph{Name: "my-service.v2", Schema: `
type Query {
	hello: String
}
`},
		&Subgraph{Name: "1numbers", Schema: `
type Query {
	world: String
}
`},
	)
	require.NoError(t, err)

	doc := parseSDL(t, federated.SDL)
	graphEnum := findType(doc, "join__Graph")
	require.NotNil(t, graphEnum)

	var graphNames []string
	for _, value := range graphEnum.EnumValues {
		graphNames = append(graphNames, value.Name)
	}
	assert.Equal(t, []string{"GRAPH_1NUMBERS", "MY_SERVICE_V2"}, graphNames)
}
