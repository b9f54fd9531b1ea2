package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgekit/surgekit/internal/client"
	"github.com/surgekit/surgekit/internal/loadgen"
)

var knownIDs = []string{
	"rest-read", "rest-write", "rest-update", "rest-join",
	"graphql-read", "graphql-mutation", "graphql-join",
	"vector-embed", "vector-search",
	"ws", "sse", "blob-retrieval",
}

func TestRegistry(t *testing.T) {
	defs := All()
	require.Len(t, defs, len(knownIDs))
	for i, d := range defs {
		assert.Equal(t, knownIDs[i], d.ID)
		assert.NotEmpty(t, d.Name)
		if d.Stream != nil {
			assert.Nil(t, d.Workload, "%s: streaming scenarios have no closed-loop workload", d.ID)
		} else {
			assert.NotNil(t, d.Workload, "%s: missing workload", d.ID)
		}
	}

	_, ok := Lookup("nope")
	assert.False(t, ok)

	d, ok := Lookup("rest-read")
	require.True(t, ok)
	assert.Equal(t, "rest-read", d.ID)
}

func TestRegistry_FreshDefinitionsPerLookup(t *testing.T) {
	a, _ := Lookup("rest-update")
	b, _ := Lookup("rest-update")
	assert.NotSame(t, a, b)
}

// newWorker builds a worker context bound to a test server.
func newWorker(serverURL string, vu int) (*loadgen.WorkerContext, *loadgen.Aggregator) {
	agg := loadgen.NewAggregator()
	cfg := &loadgen.RunConfig{TestID: "test", VUs: 1, BaseURL: serverURL}
	return &loadgen.WorkerContext{
		VU:      vu,
		Client:  client.New(serverURL),
		Config:  cfg,
		Metrics: agg,
	}, agg
}

func TestRESTRead(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write([]byte(`{"id":8,"title":"x"}`))
	}))
	defer server.Close()

	d, _ := Lookup("rest-read")
	wc, agg := newWorker(server.URL, 7)
	d.Workload(context.Background(), wc)

	assert.Equal(t, "/demo-graphql/Book/8", path.Load())

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.SuccessCount)
	assert.Equal(t, int64(len(`{"id":8,"title":"x"}`)), snap.TotalBytes)
}

func TestRESTWrite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/demo-graphql/Book/", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "id")
		assert.Equal(t, "benchmark", body["genre"])

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	d, _ := Lookup("rest-write")
	wc, agg := newWorker(server.URL, 0)
	d.Workload(context.Background(), wc)

	assert.Equal(t, int64(1), agg.Snapshot().SuccessCount)
}

func TestWorkload_ServerErrorIsErrorOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	d, _ := Lookup("rest-read")
	wc, agg := newWorker(server.URL, 0)
	d.Workload(context.Background(), wc)

	snap := agg.Snapshot()
	assert.Equal(t, int64(0), snap.SuccessCount)
	assert.Equal(t, int64(1), snap.ErrorCount)
	assert.Empty(t, snap.Latencies, "errors never contribute a latency sample")
}

func TestRESTUpdate_SetupSeedsAndWorkloadPatches(t *testing.T) {
	var creates, patches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			creates.Add(1)
		case http.MethodPatch:
			patches.Add(1)
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body, "price")
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	d, _ := Lookup("rest-update")
	require.NotNil(t, d.Setup)

	wc, agg := newWorker(server.URL, 3)
	env := &Env{Client: wc.Client, Config: &loadgen.RunConfig{VUs: 2, BaseURL: server.URL}}
	require.NoError(t, d.Setup(context.Background(), env))
	assert.Equal(t, int64(2*recordsPerVU), creates.Load())

	d.Workload(context.Background(), wc)
	assert.Equal(t, int64(1), patches.Load())
	assert.Equal(t, int64(1), agg.Snapshot().SuccessCount)
}

func TestRESTUpdate_WorkloadWithoutSetupIsErrorOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be issued without seeded records")
	}))
	defer server.Close()

	d, _ := Lookup("rest-update")
	wc, agg := newWorker(server.URL, 0)
	d.Workload(context.Background(), wc)

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.ErrorCount)
	assert.Equal(t, int64(0), snap.SuccessCount)
}

func TestRESTUpdate_SetupTransportFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	d, _ := Lookup("rest-update")
	env := &Env{Client: client.New(server.URL), Config: &loadgen.RunConfig{VUs: 1, BaseURL: server.URL}}
	assert.Error(t, d.Setup(context.Background(), env))
}

func TestGraphQL_ErrorsArrayIsErrorOutcome(t *testing.T) {
	var reply atomic.Value
	reply.Store(`{"data":{"Book":[]}}`)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/demo-graphql/graphql", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "query")

		fmt.Fprint(w, reply.Load())
	}))
	defer server.Close()

	d, _ := Lookup("graphql-read")
	wc, agg := newWorker(server.URL, 0)

	d.Workload(context.Background(), wc)
	assert.Equal(t, int64(1), agg.Snapshot().SuccessCount)

	// A 200 carrying a GraphQL errors array is still a failed outcome.
	reply.Store(`{"errors":[{"message":"resolver blew up"}]}`)
	d.Workload(context.Background(), wc)

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.SuccessCount)
	assert.Equal(t, int64(1), snap.ErrorCount)
}

func TestGraphQLMutation_SendsCreateBook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["query"], "createBook")
		w.Write([]byte(`{"data":{"createBook":{"id":"x"}}}`))
	}))
	defer server.Close()

	d, _ := Lookup("graphql-mutation")
	wc, agg := newWorker(server.URL, 0)
	d.Workload(context.Background(), wc)

	assert.Equal(t, int64(1), agg.Snapshot().SuccessCount)
}

func TestVectorSearch_EncodesQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/demo-vector/Article/", r.URL.Path)

		raw := r.URL.Query().Get("query")
		var q map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &q))
		assert.EqualValues(t, 10, q["limit"])

		w.Write([]byte(`{"records":[]}`))
	}))
	defer server.Close()

	d, _ := Lookup("vector-search")
	wc, agg := newWorker(server.URL, 4)
	d.Workload(context.Background(), wc)

	assert.Equal(t, int64(1), agg.Snapshot().SuccessCount)
}

func TestVectorEmbed_UniqueContentPerRecord(t *testing.T) {
	seen := make(chan string, 2)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		seen <- body["content"].(string)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	d, _ := Lookup("vector-embed")
	wc, _ := newWorker(server.URL, 0)
	d.Workload(context.Background(), wc)
	d.Workload(context.Background(), wc)

	first, second := <-seen, <-seen
	assert.NotEqual(t, first, second)
}

func TestBlobRetrieval(t *testing.T) {
	var blobPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			content := body["content"].(string)
			assert.Greater(t, len(content), 140_000, "blob content should be ~150KB")
			w.WriteHeader(http.StatusCreated)
			return
		}
		blobPath.Store(r.URL.Path)
		w.Write([]byte("payload"))
	}))
	defer server.Close()

	d, _ := Lookup("blob-retrieval")
	wc, agg := newWorker(server.URL, 0)
	env := &Env{Client: wc.Client, Config: wc.Config}

	require.NoError(t, d.Setup(context.Background(), env))
	d.Workload(context.Background(), wc)

	assert.Contains(t, blobPath.Load(), "/demo-vector/Article/")
	assert.Equal(t, int64(1), agg.Snapshot().SuccessCount)
}

func TestBlobRetrieval_SetupRejectionIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	d, _ := Lookup("blob-retrieval")
	env := &Env{Client: client.New(server.URL), Config: &loadgen.RunConfig{VUs: 1, BaseURL: server.URL}}
	assert.Error(t, d.Setup(context.Background(), env))
}
