// Package otlptest provides an in-process OTLP/HTTP trace receiver for
// exercising exporters end to end.
package otlptest

import (
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/proto"
)

// Span is one received span.
type Span struct {
	// TraceID is in the "tr-<hex>" form returned by the agent.
	TraceID string
	Name    string
}

// Request is one export call.
type Request struct {
	Path   string
	Header http.Header
	Spans  []Span
}

// Receiver accepts OTLP/HTTP protobuf exports.
type Receiver struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
}

// NewReceiver starts a receiver. Callers must Close it.
func NewReceiver() *Receiver {
	r := &Receiver{}
	r.Server = httptest.NewServer(http.HandlerFunc(r.handle))
	return r
}

func (r *Receiver) handle(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var export coltracepb.ExportTraceServiceRequest
	if err := proto.Unmarshal(body, &export); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	got := Request{Path: req.URL.Path, Header: req.Header.Clone()}
	for _, rs := range export.GetResourceSpans() {
		for _, ss := range rs.GetScopeSpans() {
			for _, s := range ss.GetSpans() {
				got.Spans = append(got.Spans, Span{
					TraceID: "tr-" + hex.EncodeToString(s.GetTraceId()),
					Name:    s.GetName(),
				})
			}
		}
	}

	r.mu.Lock()
	r.requests = append(r.requests, got)
	r.mu.Unlock()

	out, _ := proto.Marshal(&coltracepb.ExportTraceServiceResponse{})
	w.Header().Set("Content-Type", "application/x-protobuf")
	_, _ = w.Write(out)
}

// Requests returns every export received so far.
func (r *Receiver) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}

// Spans flattens the spans of every export.
func (r *Receiver) Spans() []Span {
	var out []Span
	for _, req := range r.Requests() {
		out = append(out, req.Spans...)
	}
	return out
}
