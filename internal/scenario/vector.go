package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/surgekit/surgekit/internal/loadgen"
)

const articleCollection = "/demo-vector/Article/"

// sampleTopics gives each worker distinct article content, so the
// target actually computes a fresh embedding per write and the search
// queries don't all hit one cache line.
var sampleTopics = []string{
	"technology innovation artificial intelligence",
	"climate change renewable energy sustainability",
	"space exploration mars colonization",
	"quantum computing breakthroughs",
	"biotechnology gene editing crispr",
	"ocean conservation marine biology",
	"autonomous vehicles self driving cars",
	"blockchain decentralized finance",
	"neuroscience brain computer interfaces",
	"cybersecurity threat detection",
}

func newVectorEmbed() *Definition {
	return &Definition{
		ID:   "vector-embed",
		Name: "Vector Embed",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			id := uuid.NewString()
			topic := sampleTopics[wc.VU%len(sampleTopics)]
			body := map[string]any{
				"id":    id,
				"title": fmt.Sprintf("Vector Article %s", id[:8]),
				"content": fmt.Sprintf(
					"This article explores %s. Generated for benchmark testing with unique content to trigger embedding computation. ID: %s",
					topic, id,
				),
			}
			res, err := wc.Client.PostJSON(ctx, articleCollection, body)
			record(wc, res, err)
		},
	}
}

func newVectorSearch() *Definition {
	return &Definition{
		ID:   "vector-search",
		Name: "Vector Search",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			topic := sampleTopics[wc.VU%len(sampleTopics)]
			query, err := json.Marshal(map[string]any{
				"conditions": []map[string]any{
					{"field": "embedding", "op": "vector", "value": topic},
				},
				"limit": 10,
			})
			if err != nil {
				wc.Metrics.RecordError()
				return
			}
			path := fmt.Sprintf("%s?query=%s", articleCollection, url.QueryEscape(string(query)))
			res, err := wc.Client.Get(ctx, path)
			record(wc, res, err)
		},
	}
}
