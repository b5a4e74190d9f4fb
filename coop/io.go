package coop

import (
	"context"
	"fmt"
	"strings"
)

// Interest is a set of socket conditions a task waits for.
type Interest uint8

const (
	// Readable is set when the socket has data to read or was closed.
	Readable Interest = 1 << iota
	// Writable is set when the socket accepts writes.
	Writable
)

func (i Interest) String() string {
	var parts []string
	if i&Readable != 0 {
		parts = append(parts, "read")
	}
	if i&Writable != 0 {
		parts = append(parts, "write")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Reactor resolves readiness requests. Dispatch must not block: it
// hands the requests to background work, which sends one Batch per
// group of requests on resp. Every request ends up either ready,
// failed or marked for retry. At most cap(sema) batches may be in
// progress at once.
//
// ctx is the schedule's context. Each request carries its own, which
// may be cancelled earlier or detached from the schedule's.
type Reactor interface {
	Dispatch(
		ctx context.Context,
		sema chan struct{},
		reqs []*Request,
		resp chan<- *Batch,
	)
}

// Request is a parked task's wait for a socket condition.
type Request struct {
	ctx      context.Context
	task     *Task
	fd       int
	interest Interest
}

// Context returns the context the wait runs under. A reactor fails
// the request once it is done.
func (r *Request) Context() context.Context {
	return r.ctx
}

// FD returns the descriptor to wait on.
func (r *Request) FD() int {
	return r.fd
}

// Interest returns the conditions to wait for.
func (r *Request) Interest() Interest {
	return r.interest
}

// Readiness is what a parked task is resumed with.
type Readiness struct {
	// Ready holds the conditions observed on the socket.
	Ready Interest
	// Err is set when the wait itself failed.
	Err error
}

type response struct {
	req *Request
	out Readiness
}

// Batch groups requests dispatched together with their outcome.
type Batch struct {
	requests  []*Request
	responses []*response
	retries   []*Request
}

// NewBatch returns a batch for reqs.
func NewBatch(reqs ...*Request) *Batch {
	return &Batch{requests: reqs}
}

// Requests returns the requests of the batch.
func (b *Batch) Requests() []*Request {
	return b.requests
}

// Len returns the number of requests in the batch.
func (b *Batch) Len() int {
	return len(b.requests)
}

// SetReady resumes request i with the observed conditions.
func (b *Batch) SetReady(i int, ready Interest) {
	b.responses = append(b.responses, &response{req: b.requests[i], out: Readiness{Ready: ready}})
}

// SetFailed resumes request i with err.
func (b *Batch) SetFailed(i int, err error) {
	b.responses = append(b.responses, &response{req: b.requests[i], out: Readiness{Err: err}})
}

// SetRetry dispatches request i again with the next round.
func (b *Batch) SetRetry(i int) {
	b.retries = append(b.retries, b.requests[i])
}

// Validate panics unless every request has exactly one outcome. It
// returns b for chaining.
func (b *Batch) Validate() *Batch {
	if len(b.requests) != len(b.retries)+len(b.responses) {
		panic(fmt.Sprintf("coop: invalid batch: %d requests, %d responses, %d retries",
			len(b.requests), len(b.responses), len(b.retries)))
	}
	return b
}

type requestQueue struct {
	requests []*Request
}

func (q *requestQueue) add(reqs ...*Request) {
	q.requests = append(q.requests, reqs...)
}

// reset starts a fresh slice; the previous one belongs to the reactor.
func (q *requestQueue) reset() {
	q.requests = nil
}

func (q *requestQueue) len() int {
	return len(q.requests)
}
