// Package report persists a computed run summary back to the owning
// platform's TestRun collection.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/surgekit/surgekit/internal/client"
	"github.com/surgekit/surgekit/internal/loadgen"
)

const testRunPath = "/admin/TestRun/"

// RunRecord is the body of the one creation request submitted per
// completed run. Once accepted it belongs to the platform's storage,
// not to this tool.
type RunRecord struct {
	TestName  string          `json:"testName"`
	Results   loadgen.Summary `json:"results"`
	Timestamp float64         `json:"timestamp"`
}

// Reporter submits run records. It is best-effort by contract: the run
// has already measured and reported locally before Report executes, so
// persistence failures are logged and swallowed, never escalated.
type Reporter struct {
	client *client.Client
	logw   io.Writer
	now    func() time.Time
}

// New creates a reporter using the run's shared client.
func New(c *client.Client) *Reporter {
	return &Reporter{client: c, logw: os.Stderr, now: time.Now}
}

// Report submits one run record for the given test identifier.
func (r *Reporter) Report(ctx context.Context, testID string, summary loadgen.Summary) {
	record := RunRecord{
		TestName:  testID,
		Results:   summary,
		Timestamp: float64(r.now().UnixMilli()) / 1000.0,
	}

	res, err := r.client.PostJSON(ctx, testRunPath, record)
	if err != nil {
		fmt.Fprintf(r.logw, "report: failed to persist run for %s: %v\n", testID, err)
		return
	}
	if !res.OK() {
		fmt.Fprintf(r.logw, "report: target rejected run for %s with status %d\n", testID, res.StatusCode)
	}
}
