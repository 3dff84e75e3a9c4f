// Package composition implements federation composition for GraphQL. It
// merges the schemas of N subgraphs into one supergraph schema and projects
// the client-facing API schema from it.
package composition

import (
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/wundergraph/cosmo/composition/pkg/federation"
)

// Subgraph represents a graph to be federated. URL is optional.
type Subgraph struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Schema string `json:"schema"`
}

// ArgumentConfiguration tells the engine which arguments a field accepts in
// the federated graph.
type ArgumentConfiguration struct {
	ArgumentNames []string `json:"argumentNames"`
	FieldName     string   `json:"fieldName"`
	TypeName      string   `json:"typeName"`
}

// EntityConfiguration describes one entity of the federated graph: the keys
// under which it can be resolved and the subgraphs that define it.
type EntityConfiguration struct {
	TypeName  string   `json:"typeName"`
	Keys      []string `json:"keys"`
	Subgraphs []string `json:"subgraphs"`
}

// FederatedGraph is the result of composing a set of subgraphs.
type FederatedGraph struct {
	// SDL is the supergraph schema, annotated with the join spec.
	SDL string `json:"sdl"`
	// APISDL is the client-facing API schema, with all federation and join
	// machinery stripped.
	APISDL string `json:"apiSdl"`
	// Version is a content hash of the supergraph SDL. Two compositions with
	// the same inputs produce the same version.
	Version string `json:"version"`

	ArgumentConfigurations []*ArgumentConfiguration `json:"argumentConfigurations"`
	Entities               []*EntityConfiguration   `json:"entities"`
}

// APISchema returns the client-facing API schema.
func (g *FederatedGraph) APISchema() string {
	return g.APISDL
}

// Federate produces a federated graph from the schemas and names of each of
// the subgraphs. Subgraph schemas are parsed concurrently; all validation
// and composition errors are aggregated into the returned error.
func Federate(subgraphs ...*Subgraph) (*FederatedGraph, error) {
	if len(subgraphs) == 0 {
		return nil, compositionErrorf(ErrInvalidSubgraph, "at least one subgraph is required")
	}

	seen := make(map[string]struct{}, len(subgraphs))
	for _, subgraph := range subgraphs {
		if subgraph.Name == "" {
			return nil, compositionErrorf(ErrInvalidSubgraph, "subgraph name must not be empty")
		}
		if _, ok := seen[subgraph.Name]; ok {
			return nil, compositionErrorf(ErrInvalidSubgraph, "duplicate subgraph name %q", subgraph.Name)
		}
		seen[subgraph.Name] = struct{}{}
	}

	parsed := make([]*federation.Subgraph, len(subgraphs))
	parseErrs := make([]error, len(subgraphs))
	g := new(errgroup.Group)
	for i, subgraph := range subgraphs {
		g.Go(func() error {
			sg, err := federation.ParseSubgraph(subgraph.Name, subgraph.URL, subgraph.Schema)
			if err != nil {
				parseErrs[i] = err
				return nil
			}
			parsed[i] = sg
			return nil
		})
	}
	_ = g.Wait()

	var errs *multierror.Error
	for _, err := range parseErrs {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	// Composition is deterministic: subgraphs are processed in name order
	// regardless of the order they were passed in.
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Name < parsed[j].Name })

	return compose(parsed)
}

// FederateSubgraphs behaves like Federate but takes already parsed
// subgraphs.
func FederateSubgraphs(subgraphs []*federation.Subgraph) (*FederatedGraph, error) {
	if len(subgraphs) == 0 {
		return nil, compositionErrorf(ErrInvalidSubgraph, "at least one subgraph is required")
	}
	sorted := make([]*federation.Subgraph, len(subgraphs))
	copy(sorted, subgraphs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return compose(sorted)
}

func graphVersion(supergraphSDL string) string {
	return strconv.FormatUint(xxhash.Sum64String(supergraphSDL), 16)
}
