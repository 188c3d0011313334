// Package probetest provides an in-memory httpclient.Doer for detector and
// crawler tests.
package probetest

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shadowprobe/shadowprobe/pkg/httpclient"
)

// Handler answers one request. Returning a nil response with a nil error
// yields an empty 404.
type Handler func(req *httpclient.Request) (*httpclient.Response, error)

// Doer records every request and answers it with its Handler.
type Doer struct {
	mu       sync.Mutex
	handler  Handler
	requests []*httpclient.Request
}

// New returns a Doer backed by h.
func New(h Handler) *Doer {
	return &Doer{handler: h}
}

// Static returns a Doer that answers every request with the same response.
func Static(status int, body string, header ...string) *Doer {
	return New(func(*httpclient.Request) (*httpclient.Response, error) {
		return Respond(status, body, header...), nil
	})
}

// Failing returns a Doer that fails every request with err.
func Failing(err error) *Doer {
	return New(func(*httpclient.Request) (*httpclient.Response, error) {
		return nil, err
	})
}

// Respond builds a response. header is a flat list of name/value pairs.
func Respond(status int, body string, header ...string) *httpclient.Response {
	h := make(http.Header)
	for i := 0; i+1 < len(header); i += 2 {
		h.Add(header[i], header[i+1])
	}
	return &httpclient.Response{
		StatusCode: status,
		Header:     h,
		Body:       []byte(body),
		Elapsed:    time.Millisecond,
	}
}

var _ httpclient.Doer = (*Doer)(nil)

// Do records req and dispatches it to the handler.
func (d *Doer) Do(ctx context.Context, req *httpclient.Request) (*httpclient.Response, error) {
	d.mu.Lock()
	d.requests = append(d.requests, req)
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := d.handler(req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = Respond(http.StatusNotFound, "")
	}
	return resp, nil
}

// Requests returns a copy of the recorded requests.
func (d *Doer) Requests() []*httpclient.Request {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*httpclient.Request(nil), d.requests...)
}

// Count returns the number of requests seen.
func (d *Doer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

// URLs returns the recorded request URLs in order.
func (d *Doer) URLs() []string {
	reqs := d.Requests()
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.URL
	}
	return out
}
