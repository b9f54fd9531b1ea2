package scenario

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/surgekit/surgekit/internal/loadgen"
)

// The record-CRUD scenarios drive the demo bookstore app's REST
// surface. Reads cycle through the seeded book IDs 1-100.

const (
	bookCollection = "/demo-graphql/Book/"
	seededBookIDs  = 100

	// recordsPerVU is how many records the update scenario seeds per
	// virtual user, so concurrent PATCHes spread across rows.
	recordsPerVU = 5
)

func newRESTRead() *Definition {
	return &Definition{
		ID:   "rest-read",
		Name: "REST Reads",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			id := (wc.VU % seededBookIDs) + 1
			res, err := wc.Client.Get(ctx, fmt.Sprintf("%s%d", bookCollection, id))
			record(wc, res, err)
		},
	}
}

func newRESTWrite() *Definition {
	return &Definition{
		ID:   "rest-write",
		Name: "REST Writes",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			res, err := wc.Client.PostJSON(ctx, bookCollection, newBookBody())
			record(wc, res, err)
		},
	}
}

func newRESTUpdate() *Definition {
	var ids []string

	d := &Definition{
		ID:   "rest-update",
		Name: "REST Update",
	}

	d.Setup = func(ctx context.Context, env *Env) error {
		count := env.Config.VUs * recordsPerVU
		ids = make([]string, 0, count)
		for i := 0; i < count; i++ {
			id := uuid.NewString()
			body := map[string]any{
				"id":    id,
				"title": fmt.Sprintf("Update Bench %s", id[:8]),
				"isbn":  fmt.Sprintf("978-%s", id[:10]),
				"genre": "benchmark",
				"price": 10.0,
			}
			// Only transport-level failures are fatal here; the target
			// rejecting individual rows still leaves enough seed data.
			if _, err := env.Client.PostJSON(ctx, bookCollection, body); err != nil {
				return fmt.Errorf("seeding record %d/%d: %w", i+1, count, err)
			}
		}
		return nil
	}

	d.Workload = func(ctx context.Context, wc *loadgen.WorkerContext) {
		// Without seeded records there is nothing valid to PATCH.
		if len(ids) == 0 {
			wc.Metrics.RecordError()
			return
		}
		id := ids[wc.VU%len(ids)]
		body := map[string]any{"price": rand.Float64() * 100}
		res, err := wc.Client.PatchJSON(ctx, bookCollection+id, body)
		record(wc, res, err)
	}

	return d
}

func newRESTJoin() *Definition {
	return &Definition{
		ID:   "rest-join",
		Name: "REST Join",
		Workload: func(ctx context.Context, wc *loadgen.WorkerContext) {
			id := (wc.VU % seededBookIDs) + 1
			path := fmt.Sprintf("%s%d?select=id,title,author{name}", bookCollection, id)
			res, err := wc.Client.Get(ctx, path)
			record(wc, res, err)
		},
	}
}

func newBookBody() map[string]any {
	id := uuid.NewString()
	return map[string]any{
		"id":    id,
		"title": fmt.Sprintf("Bench Book %s", id[:8]),
		"isbn":  fmt.Sprintf("978-%s", id[:10]),
		"genre": "benchmark",
		"price": 9.99,
	}
}
