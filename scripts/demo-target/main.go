// Command demo-target runs a self-contained stand-in for the demo
// platform, serving every endpoint the benchmark scenarios hit. It
// lets surgekit be exercised end to end on a laptop without a real
// deployment behind it.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type store struct {
	mu      sync.RWMutex
	records map[string]json.RawMessage
}

func newStore() *store {
	return &store{records: make(map[string]json.RawMessage)}
}

func (s *store) put(id string, rec json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
}

func (s *store) get(id string) (json.RawMessage, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// broker fans one published message out to every open stream.
type broker struct {
	mu   sync.Mutex
	subs map[chan []byte]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan []byte]struct{})}
}

func (b *broker) subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broker) unsubscribe(ch chan []byte) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *broker) publish(msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Slow subscriber, drop rather than block the publisher.
		}
	}
}

func collectionHandler(s *store, prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Path[len(prefix):]

		switch {
		case r.Method == http.MethodPost && id == "":
			var rec map[string]json.RawMessage
			if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			var recID string
			json.Unmarshal(rec["id"], &recID)
			if recID == "" {
				http.Error(w, "missing id", http.StatusBadRequest)
				return
			}
			raw, _ := json.Marshal(rec)
			s.put(recID, raw)
			w.WriteHeader(http.StatusCreated)
			w.Write(raw)

		case r.Method == http.MethodGet && id == "":
			// Collection query, e.g. a vector search. Serve an empty
			// result set; latency is what the benchmark measures.
			fmt.Fprint(w, `{"records":[]}`)

		case r.Method == http.MethodGet:
			rec, ok := s.get(id)
			if !ok {
				// Reads cycle through seeded numeric IDs; synthesize
				// those on the fly so no seed step is needed.
				fmt.Fprintf(w, `{"id":%q,"title":"Seeded Record %s"}`, id, id)
				return
			}
			w.Write(rec)

		case r.Method == http.MethodPatch:
			if _, ok := s.get(id); !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `{"updated":true}`)

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func graphqlHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		fmt.Fprint(w, `{"errors":[{"message":"empty query"}]}`)
		return
	}
	fmt.Fprint(w, `{"data":{"Book":[{"id":"1","title":"Demo Book"}]}}`)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func messageHandler(b *broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var msg map[string]any
			if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			raw, _ := json.Marshal(msg)
			b.publish(raw)
			w.WriteHeader(http.StatusAccepted)
			return
		}

		switch r.URL.Query().Get("stream") {
		case "ws":
			serveWS(b, w, r)
		case "sse":
			serveSSE(b, w, r)
		default:
			http.Error(w, "unknown stream type", http.StatusBadRequest)
		}
	}
}

func serveWS(b *broker, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	for {
		select {
		case msg := <-ch:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func serveSSE(b *broker, w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	ch := b.subscribe()
	defer b.unsubscribe(ch)

	for {
		select {
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg)
			fl.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	books := newStore()
	articles := newStore()
	b := newBroker()

	mux := http.NewServeMux()
	mux.HandleFunc("/demo-graphql/Book/", collectionHandler(books, "/demo-graphql/Book/"))
	mux.HandleFunc("/demo-graphql/graphql", graphqlHandler)
	mux.HandleFunc("/demo-vector/Article/", collectionHandler(articles, "/demo-vector/Article/"))
	mux.HandleFunc("/demo-realtime/message", messageHandler(b))
	mux.HandleFunc("/admin/TestRun/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "healthy")
	})

	server := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("demo target listening on %s", *addr)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
