// Package transport builds HTTP clients for backend adapters. Its clients
// enforce a configurable low-activity timeout: a streaming response whose
// body stalls (no bytes arriving within the window) is aborted and surfaced
// as a retryable timeout error. Cancellation-on-abandon comes from the
// request context; closing a response body aborts the in-flight exchange.
package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/aschepis/backscratcher/modelhub/llm"
)

// NewClient returns an *http.Client whose response bodies abort the request
// when no data arrives within stallTimeout. A non-positive stallTimeout
// disables the watchdog.
func NewClient(stallTimeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &stallTransport{
			base:  http.DefaultTransport,
			stall: stallTimeout,
		},
	}
}

// stallTransport wraps a RoundTripper, attaching a low-activity watchdog to
// each response body.
type stallTransport struct {
	base  http.RoundTripper
	stall time.Duration
}

func (t *stallTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.stall <= 0 {
		return t.base.RoundTrip(req)
	}

	ctx, cancel := context.WithCancel(req.Context())
	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}

	body := &stallBody{
		rc:     resp.Body,
		cancel: cancel,
		window: t.stall,
	}
	// Headers have arrived; arm the watchdog for the first body byte.
	body.timer = time.AfterFunc(t.stall, body.onStall)
	resp.Body = body
	return resp, nil
}

// stallBody aborts the underlying request when a read makes no progress
// within the window. Each successful read re-arms the watchdog.
type stallBody struct {
	rc     io.ReadCloser
	cancel context.CancelFunc
	window time.Duration
	timer  *time.Timer

	mu      sync.Mutex
	stalled bool
}

func (b *stallBody) onStall() {
	b.mu.Lock()
	b.stalled = true
	b.mu.Unlock()
	// Cancelling the request context unblocks any pending Read.
	b.cancel()
}

func (b *stallBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		b.timer.Reset(b.window)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		b.mu.Lock()
		stalled := b.stalled
		b.mu.Unlock()
		if stalled {
			return n, llm.NewTimeoutError("no data received within the low-activity window", err)
		}
	}
	return n, err
}

func (b *stallBody) Close() error {
	b.timer.Stop()
	b.cancel()
	return b.rc.Close()
}
