package bridge

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

func TestListNodes(t *testing.T) {
	b := New()
	n := beacon.New()
	n.AddListener(beacon.On(func() {}))
	b.Expose("clock", n)

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nodes")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	defer resp.Body.Close()

	var infos []struct {
		Name      string `json:"name"`
		Listeners int    `json:"listeners"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(infos) != 1 || infos[0].Name != "clock" || infos[0].Listeners != 1 {
		t.Errorf("unexpected listing: %+v", infos)
	}
}

func TestNotifyEndpoint(t *testing.T) {
	b := New()
	n := beacon.New()
	var fired int
	n.AddListener(beacon.On(func() { fired++ }))
	b.Expose("clock", n)

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/nodes/clock/notify", "", nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if fired != 1 {
		t.Errorf("fired = %d, want 1", fired)
	}
}

func TestNotifyUnknownNode(t *testing.T) {
	srv := httptest.NewServer(New().Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/nodes/missing/notify", "", nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestNotifyDisposedNode(t *testing.T) {
	b := New()
	n := beacon.New()
	n.Dispose()
	b.Expose("dead", n)

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/nodes/dead/notify", "", nil)
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusGone {
		t.Errorf("status = %d, want 410", resp.StatusCode)
	}
}

func TestSSEStream(t *testing.T) {
	b := New()
	v := beacon.NewValue[int]()
	b.Expose("counter", &v.Notifier)

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nodes/counter/sse")
	if err != nil {
		t.Fatalf("sse: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	// The subscription listener is planted before headers return.
	waitListeners(t, &v.Notifier, 1)
	if err := v.Publish(42); err != nil {
		t.Fatalf("publish: %v", err)
	}

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(line, "data: ") {
		t.Fatalf("line = %q, want data: prefix", line)
	}
	var ev Event
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Node != "counter" {
		t.Errorf("node = %q, want counter", ev.Node)
	}
	if got, ok := ev.Value.(float64); !ok || got != 42 {
		t.Errorf("value = %v, want 42", ev.Value)
	}
}

func TestSSEUnsubscribesOnClose(t *testing.T) {
	b := New()
	n := beacon.New()
	b.Expose("clock", n)

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nodes/clock/sse")
	if err != nil {
		t.Fatalf("sse: %v", err)
	}
	waitListeners(t, n, 1)

	resp.Body.Close()
	waitListeners(t, n, 0)
}

func TestWSStream(t *testing.T) {
	b := New()
	v := beacon.NewValue[string]()
	b.Expose("status", &v.Notifier)

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/nodes/status/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitListeners(t, &v.Notifier, 1)
	if err := v.Publish("ready"); err != nil {
		t.Fatalf("publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Node != "status" || ev.Value != "ready" {
		t.Errorf("event = %+v", ev)
	}
}

func TestWSUnsubscribesOnClose(t *testing.T) {
	b := New()
	n := beacon.New()
	b.Expose("clock", n)

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/nodes/clock/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitListeners(t, n, 1)

	conn.Close()
	waitListeners(t, n, 0)
}

func TestUnexpose(t *testing.T) {
	b := New()
	b.Expose("clock", beacon.New())
	b.Unexpose("clock")

	srv := httptest.NewServer(b.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nodes/clock/sse")
	if err != nil {
		t.Fatalf("sse: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func waitListeners(t *testing.T, n *beacon.Notifier, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n.ListenerCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("listener count = %d, want %d", n.ListenerCount(), want)
}
