package scenario

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/surgekit/surgekit/internal/client"
	"github.com/surgekit/surgekit/internal/loadgen"
)

const graphqlEndpoint = "/demo-graphql/graphql"

func newGraphQLRead() *Definition {
	return &Definition{
		ID:   "graphql-read",
		Name: "GraphQL Reads",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			res, err := wc.Client.PostJSON(ctx, graphqlEndpoint, gqlQuery("{ Book { id title isbn genre price } }"))
			recordGraphQL(wc, res, err)
		},
	}
}

func newGraphQLMutation() *Definition {
	return &Definition{
		ID:   "graphql-mutation",
		Name: "GraphQL Mutations",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			id := uuid.NewString()
			mutation := fmt.Sprintf(
				`mutation { createBook(input: { id: %q, title: "GQL Bench %s", isbn: "978-%s", genre: "benchmark", price: 9.99 }) { id } }`,
				id, id[:8], id[:10],
			)
			res, err := wc.Client.PostJSON(ctx, graphqlEndpoint, gqlQuery(mutation))
			recordGraphQL(wc, res, err)
		},
	}
}

func newGraphQLJoin() *Definition {
	return &Definition{
		ID:   "graphql-join",
		Name: "GraphQL Join",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			id := (wc.VU % seededBookIDs) + 1
			query := fmt.Sprintf(`{ Book(id: "%d") { id title author { name } } }`, id)
			res, err := wc.Client.PostJSON(ctx, graphqlEndpoint, gqlQuery(query))
			recordGraphQL(wc, res, err)
		},
	}
}

func gqlQuery(query string) map[string]string {
	return map[string]string{"query": query}
}

// recordGraphQL classifies like record, with one extra rule: GraphQL
// servers report resolver failures as a 200 carrying an errors array,
// and that still counts as a failed outcome.
func recordGraphQL(wc *loadgen.WorkerContext, res *client.Result, err error) {
	if err != nil || !res.OK() || gjson.GetBytes(res.Body, "errors").Exists() {
		wc.Metrics.RecordError()
		return
	}
	wc.Metrics.RecordSuccess(res.Latency, int64(len(res.Body)))
}
