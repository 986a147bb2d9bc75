// Package fetch provides an HTTP-request buffering wrapper around a
// beacon value notifier: each fetch performs a GET and publishes the
// buffered response, so listeners and downstream value nodes observe
// response snapshots as they arrive. It is an ordinary client of the
// core; no engine internals are touched.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/beacon-dev/beacon/pkg/beacon"
)

// Result is one buffered HTTP response snapshot.
type Result struct {
	Status    int
	Body      []byte
	FetchedAt time.Time
}

// Poller fetches a URL and publishes each response on its value node.
type Poller struct {
	v   *beacon.ValueNotifier[*Result]
	url string

	// Client is the HTTP client used for fetches (default
	// http.DefaultClient).
	Client *http.Client

	// OnChange suppresses publishing when the body is byte-identical to
	// the previous result; the buffer's timestamp is still refreshed.
	OnChange bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewPoller creates a poller around a fresh value node. Nothing is
// fetched until Fetch or Start.
func NewPoller(url string, opts ...beacon.Option) *Poller {
	return &Poller{
		v:      beacon.NewValue[*Result](opts...),
		url:    url,
		Client: http.DefaultClient,
	}
}

// Notifier returns the node receiving response snapshots.
func (p *Poller) Notifier() *beacon.ValueNotifier[*Result] { return p.v }

// Fetch performs one GET and publishes the result. Transport errors and
// disposed-node errors are returned; HTTP error statuses are published
// like any other response.
func (p *Poller) Fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", p.url, err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("fetch %s: read body: %w", p.url, err)
	}

	result := &Result{Status: resp.StatusCode, Body: body, FetchedAt: time.Now()}

	if p.OnChange {
		if prev, ok := p.v.Value(); ok && prev.Status == result.Status && bytes.Equal(prev.Body, result.Body) {
			p.v.SetValue(result)
			return nil
		}
	}
	return p.v.Publish(result)
}

// Start fetches at the given interval until ctx is canceled or Stop is
// called. Fetch errors do not stop the loop; the next tick retries.
func (p *Poller) Start(ctx context.Context, interval time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := p.Fetch(ctx); err == beacon.ErrDisposed {
					return
				}
			}
		}
	}()
}

// Stop halts the poll loop; the buffered result stays on the node.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}
