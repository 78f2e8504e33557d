package reqsched

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
)

// DefaultMaxBodyBytes bounds how much of a response body HTTPTransport keeps.
const DefaultMaxBodyBytes int64 = 32 << 20

var errBodyTooLarge = errors.New("reqsched: response body exceeds limit")

// HTTPTransport issues requests with a net/http client.
//
// The zero value uses http.DefaultClient and DefaultMaxBodyBytes.
type HTTPTransport struct {
	Client       *http.Client
	MaxBodyBytes int64
}

// NewHTTPTransport returns a transport backed by client.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	return &HTTPTransport{Client: client}
}

func (t *HTTPTransport) Create() Handle {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	limit := t.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &httpHandle{client: client, limit: limit, ctx: ctx, cancel: cancel}
}

type httpHandle struct {
	client *http.Client
	limit  int64

	ctx    context.Context
	cancel context.CancelFunc

	done   atomic.Bool
	mu     sync.Mutex
	result TransportResult
}

func (h *httpHandle) Send(req *OutboundRequest) {
	go h.do(req)
}

func (h *httpHandle) do(req *OutboundRequest) {
	defer h.cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	hreq, err := http.NewRequestWithContext(h.ctx, req.Method, req.URL, body)
	if err != nil {
		h.finish(TransportResult{Err: err})
		return
	}
	for name, values := range req.Header {
		for _, v := range values {
			hreq.Header.Add(name, v)
		}
	}

	resp, err := h.client.Do(hreq)
	if err != nil {
		h.finish(TransportResult{Err: err})
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.limit+1))
	if err == nil && int64(len(data)) > h.limit {
		data = data[:h.limit]
		err = fmt.Errorf("%w (%d bytes)", errBodyTooLarge, h.limit)
	}
	h.finish(TransportResult{
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Header:     resp.Header,
		Body:       data,
		Err:        err,
	})
}

func (h *httpHandle) finish(res TransportResult) {
	h.mu.Lock()
	h.result = res
	h.mu.Unlock()
	h.done.Store(true)
}

func (h *httpHandle) State() HandleState {
	if h.done.Load() {
		return HandleComplete
	}
	return HandlePending
}

func (h *httpHandle) Result() TransportResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

func (h *httpHandle) Abort() { h.cancel() }
