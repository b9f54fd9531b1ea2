// Package scenario defines the benchmark workload units: every known
// test identifier maps to a Definition carrying the request bodies and
// URLs for that scenario. The load engine stays generic; a workload is
// any operation that, given a worker context, folds exactly one
// outcome into the aggregator.
package scenario

import (
	"context"
	"time"

	"github.com/surgekit/surgekit/internal/client"
	"github.com/surgekit/surgekit/internal/loadgen"
)

// Default load profile applied when neither the config file nor the
// flags override it.
const (
	DefaultDuration = 30 * time.Second
	DefaultVUs      = 50
)

// Env is the shared environment a scenario's setup phase and stream
// publisher run against.
type Env struct {
	Client *client.Client
	Config *loadgen.RunConfig
}

// Definition describes one runnable benchmark scenario. Exactly one of
// Workload and Stream is set: closed-loop scenarios supply a Workload,
// streaming scenarios supply a Stream.
type Definition struct {
	// ID is the test identifier accepted by the CLI.
	ID string

	// Name is the human-readable scenario name.
	Name string

	// Setup runs before any load is generated, e.g. seeding records.
	// A setup failure is fatal to the run: downstream measurements
	// would be meaningless without the precondition. Nil when the
	// scenario needs no seed data.
	Setup func(ctx context.Context, env *Env) error

	// Workload drives one closed-loop iteration.
	Workload loadgen.Workload

	// Stream builds the subscriber dialer and the publisher for
	// persistent-connection scenarios.
	Stream func(env *Env) (loadgen.DialFunc, loadgen.PublishFunc)
}

// builders keeps registry order stable for list output. Definitions
// are constructed fresh per lookup so seeded state never leaks between
// runs.
var builders = []func() *Definition{
	newRESTRead,
	newRESTWrite,
	newRESTUpdate,
	newRESTJoin,
	newGraphQLRead,
	newGraphQLMutation,
	newGraphQLJoin,
	newVectorEmbed,
	newVectorSearch,
	newWebSocket,
	newSSE,
	newBlobRetrieval,
}

// Lookup returns a fresh Definition for the given test identifier.
func Lookup(id string) (*Definition, bool) {
	for _, build := range builders {
		d := build()
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// All returns fresh Definitions for every known scenario, in registry
// order.
func All() []*Definition {
	defs := make([]*Definition, 0, len(builders))
	for _, build := range builders {
		defs = append(defs, build())
	}
	return defs
}

// record folds one request outcome. Transport errors and non-success
// statuses are error outcomes; anything else is a success with the
// measured latency and payload size.
func record(wc *loadgen.WorkerContext, res *client.Result, err error) {
	if err != nil || !res.OK() {
		wc.Metrics.RecordError()
		return
	}
	wc.Metrics.RecordSuccess(res.Latency, int64(len(res.Body)))
}
