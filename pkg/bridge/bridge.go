// Package bridge exposes beacon notifiers to web clients: a chi router
// serves notification streams over Server-Sent Events and WebSocket, so
// UI bindings can subscribe to a node exactly like an in-process
// listener. Each connection is realized as one ordinary registered
// listener; closing the connection removes it.
package bridge

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Event is one notification delivered to a web client.
type Event struct {
	Node  string    `json:"node"`
	Seq   uint64    `json:"seq"`
	Time  time.Time `json:"time"`
	Value any       `json:"value,omitempty"`
}

// Bridge maps URL names to notifier handles and serves their rounds.
type Bridge struct {
	logger *slog.Logger

	mu    sync.RWMutex
	nodes map[string]*beacon.Notifier
	seq   uint64

	upgrader websocket.Upgrader
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the bridge's logger (default slog.Default).
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) { b.logger = logger }
}

// New creates an empty bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		nodes: make(map[string]*beacon.Notifier),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, o := range opts {
		o(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	return b
}

// Expose publishes the node under the given URL name. Value-carrying
// nodes stream their payloads; plain nodes stream bare events.
func (b *Bridge) Expose(name string, n *beacon.Notifier) {
	b.mu.Lock()
	b.nodes[name] = n
	b.mu.Unlock()
}

// Unexpose removes the node from the bridge. Open streams end on their
// next write.
func (b *Bridge) Unexpose(name string) {
	b.mu.Lock()
	delete(b.nodes, name)
	b.mu.Unlock()
}

// Routes returns the bridge's router:
//
//	GET /nodes                exposed names and listener counts
//	GET /nodes/{name}/sse     Server-Sent Events stream
//	GET /nodes/{name}/ws      WebSocket stream
//	POST /nodes/{name}/notify trigger one round
func (b *Bridge) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/nodes", b.handleList)
	r.Get("/nodes/{name}/sse", b.handleSSE)
	r.Get("/nodes/{name}/ws", b.handleWS)
	r.Post("/nodes/{name}/notify", b.handleNotify)
	return r
}

func (b *Bridge) lookup(name string) (*beacon.Notifier, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.nodes[name]
	return n, ok
}

func (b *Bridge) nextSeq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	return b.seq
}

func (b *Bridge) handleList(w http.ResponseWriter, r *http.Request) {
	type nodeInfo struct {
		Name      string `json:"name"`
		Listeners int    `json:"listeners"`
		Disposed  bool   `json:"disposed"`
	}

	b.mu.RLock()
	out := make([]nodeInfo, 0, len(b.nodes))
	for name, n := range b.nodes {
		out = append(out, nodeInfo{Name: name, Listeners: n.ListenerCount(), Disposed: n.IsDisposed()})
	}
	b.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (b *Bridge) handleNotify(w http.ResponseWriter, r *http.Request) {
	n, ok := b.lookup(chi.URLParam(r, "name"))
	if !ok {
		http.Error(w, "unknown node", http.StatusNotFound)
		return
	}
	if err := n.Notify(); err != nil {
		if err == beacon.ErrDisposed {
			http.Error(w, err.Error(), http.StatusGone)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// subscribe registers a streaming listener on the node and returns the
// event feed plus an unsubscribe func. The feed is buffered; a slow
// client drops events rather than blocking the round.
func (b *Bridge) subscribe(name string, n *beacon.Notifier) (<-chan Event, func(), error) {
	feed := make(chan Event, 64)
	key, err := n.AddListener(beacon.OnValue(func(v any) {
		ev := Event{Node: name, Seq: b.nextSeq(), Time: time.Now()}
		if v != beacon.NoValue {
			ev.Value = v
		}
		select {
		case feed <- ev:
		default:
			// Slow client: drop. Delivery is best-effort fan-out.
		}
	}))
	if err != nil {
		return nil, nil, err
	}
	return feed, func() { n.RemoveKey(key) }, nil
}

func (b *Bridge) handleSSE(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, ok := b.lookup(name)
	if !ok {
		http.Error(w, "unknown node", http.StatusNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	feed, unsubscribe, err := b.subscribe(name, n)
	if err != nil {
		http.Error(w, err.Error(), http.StatusGone)
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-feed:
			data, err := json.Marshal(ev)
			if err != nil {
				b.logger.Error("sse encode failed", "node", name, "error", err)
				continue
			}
			if _, err := w.Write(append(append([]byte("data: "), data...), '\n', '\n')); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, ok := b.lookup(name)
	if !ok {
		http.Error(w, "unknown node", http.StatusNotFound)
		return
	}

	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error("ws upgrade failed", "node", name, "error", err)
		return
	}
	defer conn.Close()

	feed, unsubscribe, err := b.subscribe(name, n)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(time.Second))
		return
	}
	defer unsubscribe()

	// Reader goroutine: consume (and discard) client frames so pings are
	// answered and closes are noticed.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-feed:
			if err := conn.WriteJSON(ev); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					b.logger.Error("ws write failed", "node", name, "error", err)
				}
				return
			}
		}
	}
}
