package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/surgekit/surgekit/internal/loadgen"
)

// blobFiller repeated blobRepeat times yields roughly 150KB of article
// content, large enough to make payload transfer dominate the request.
const (
	blobFiller = "Lorem ipsum dolor sit amet, consectetur adipiscing elit. "
	blobRepeat = 2700
)

func newBlobRetrieval() *Definition {
	var blobID string

	d := &Definition{
		ID:   "blob-retrieval",
		Name: "150k Blob Retrieval",
	}

	d.Setup = func(ctx context.Context, env *Env) error {
		blobID = uuid.NewString()
		body := map[string]any{
			"id":      blobID,
			"title":   "Blob Benchmark Article",
			"content": strings.Repeat(blobFiller, blobRepeat),
		}
		res, err := env.Client.PostJSON(ctx, articleCollection, body)
		if err != nil {
			return fmt.Errorf("creating blob article: %w", err)
		}
		if !res.OK() {
			return fmt.Errorf("creating blob article: target returned %d", res.StatusCode)
		}
		return nil
	}

	d.Workload = func(ctx context.Context, wc *loadgen.WorkerContext) {
		res, err := wc.Client.Get(ctx, articleCollection+blobID)
		record(wc, res, err)
	}

	return d
}
