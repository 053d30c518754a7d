// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/circuitgo/internal/builder"
	"github.com/vk/circuitgo/internal/circuit"
	"github.com/vk/circuitgo/internal/circuitdoc"
	"github.com/vk/circuitgo/internal/circuiterr"
	"github.com/vk/circuitgo/internal/components"
	"github.com/vk/circuitgo/internal/ctxlog"
	"github.com/vk/circuitgo/internal/frontend"
	"github.com/vk/circuitgo/internal/layout"
	"github.com/vk/circuitgo/internal/manualedits"
	"github.com/vk/circuitgo/internal/overlay"
	"github.com/vk/circuitgo/internal/vfs"
)

var (
	// ErrClosed is returned by every call made after Close.
	ErrClosed = errors.New("sandbox: host is closed")
	// ErrAborted is returned by a call whose run was aborted while it was in
	// flight.
	ErrAborted = errors.New("sandbox: run was aborted")
	// ErrNoRun is returned when settling or exporting before a successful
	// Execute.
	ErrNoRun = errors.New("sandbox: no circuit has been executed")
	// ErrNotSettled is returned by CircuitJSON before RenderUntilSettled.
	ErrNotSettled = errors.New("sandbox: circuit has not been settled")
)

// Recorder observes run outcomes. internal/metrics provides the Prometheus
// implementation.
type Recorder interface {
	ObserveRun(op, outcome string, elapsed time.Duration)
	ObserveSettlement(s *layout.Settled)
}

// Options configures a Host.
type Options struct {
	// Timeout bounds each evaluation and each settlement. Zero means only
	// the caller's context applies.
	Timeout time.Duration
	// Layout tunes the settlement loop.
	Layout layout.Options
	// ExtraEdits are host-level manual edit sets applied to the whole graph
	// after the sets declared on boards.
	ExtraEdits []*manualedits.Set
	// Strict turns unmatched or ambiguous edit selectors into errors.
	Strict bool
	// Registry lists the component kinds user code may declare. Defaults to
	// components.Core().
	Registry *components.Registry
	Metrics  Recorder
}

type op int

const (
	opExecute op = iota
	opSettle
	opDocument
)

func (o op) String() string {
	switch o {
	case opExecute:
		return "execute"
	case opSettle:
		return "settle"
	default:
		return "document"
	}
}

type request struct {
	ctx   context.Context
	op    op
	files vfs.Map
	entry string
	reply chan response
}

type response struct {
	doc circuitdoc.Document
	err error
}

// run is the state of one execution. Only the host goroutine touches it.
type run struct {
	id      string
	graph   *circuit.Graph
	settled *layout.Settled
	doc     *circuitdoc.Document
}

// Host evaluates circuits in isolation. All run state lives in one goroutine
// that is reached through a request channel; each request gets exactly one
// response. User code runs in a further goroutine so panics and deadlines
// never take the host down.
type Host struct {
	opts     Options
	requests chan request
	quit     chan struct{}
	done     chan struct{}
	once     sync.Once

	mu      sync.Mutex
	current string // ID of the run the host is working on.
	cancel  context.CancelCauseFunc
}

// New starts a host goroutine. Call Close to stop it.
func New(opts Options) *Host {
	if opts.Registry == nil {
		opts.Registry = components.Core()
	}
	h := &Host{
		opts:     opts,
		requests: make(chan request),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go h.loop()
	return h
}

// Execute starts a new run: the previous run is discarded, entrypoint is
// evaluated against a fresh builder and the validated graph is kept for
// RenderUntilSettled.
func (h *Host) Execute(ctx context.Context, files vfs.Map, entrypoint string) error {
	_, err := h.do(ctx, request{op: opExecute, files: files, entry: vfs.Clean(entrypoint)})
	return err
}

// RenderUntilSettled lays out the current run until its geometry is stable.
func (h *Host) RenderUntilSettled(ctx context.Context) error {
	_, err := h.do(ctx, request{op: opSettle})
	return err
}

// CircuitJSON returns the document of the settled run.
func (h *Host) CircuitJSON(ctx context.Context) (circuitdoc.Document, error) {
	resp, err := h.do(ctx, request{op: opDocument})
	return resp.doc, err
}

// Run is Execute, RenderUntilSettled and CircuitJSON in one call.
func (h *Host) Run(ctx context.Context, files vfs.Map, entrypoint string) (circuitdoc.Document, error) {
	if err := h.Execute(ctx, files, entrypoint); err != nil {
		return circuitdoc.Document{}, err
	}
	if err := h.RenderUntilSettled(ctx); err != nil {
		return circuitdoc.Document{}, err
	}
	return h.CircuitJSON(ctx)
}

// Abort cancels whatever the host is doing and discards the current run. A
// call in flight returns ErrAborted.
func (h *Host) Abort() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = ""
	if h.cancel != nil {
		h.cancel(ErrAborted)
	}
}

// Close aborts the current run and stops the host goroutine. It is safe to
// call more than once.
func (h *Host) Close() {
	h.once.Do(func() {
		h.Abort()
		close(h.quit)
	})
	<-h.done
}

func (h *Host) do(ctx context.Context, req request) (response, error) {
	req.ctx = ctx
	req.reply = make(chan response, 1)
	select {
	case <-h.quit:
		return response{}, ErrClosed
	case <-ctx.Done():
		return response{}, circuiterr.FromContext(ctx, "queueing "+req.op.String())
	case h.requests <- req:
	}
	resp := <-req.reply
	return resp, resp.err
}

func (h *Host) loop() {
	defer close(h.done)
	var cur *run
	for {
		select {
		case <-h.quit:
			return
		case req := <-h.requests:
			start := time.Now()
			resp := h.serve(req, &cur)
			if h.opts.Metrics != nil {
				h.opts.Metrics.ObserveRun(req.op.String(), outcome(resp.err), time.Since(start))
			}
			req.reply <- resp
		}
	}
}

func (h *Host) serve(req request, cur **run) response {
	switch req.op {
	case opExecute:
		r, err := h.execute(req)
		*cur = r
		return response{err: err}
	case opSettle:
		if err := h.usable(cur); err != nil {
			return response{err: err}
		}
		return response{err: h.settle(req, *cur)}
	default:
		if err := h.usable(cur); err != nil {
			return response{err: err}
		}
		doc, err := h.document(req, *cur)
		return response{doc: doc, err: err}
	}
}

// usable drops the current run if it was aborted since it was stored.
func (h *Host) usable(cur **run) error {
	if *cur != nil && !h.isCurrent((*cur).id) {
		*cur = nil
	}
	if *cur == nil {
		return ErrNoRun
	}
	return nil
}

func (h *Host) execute(req request) (*run, error) {
	id := uuid.NewString()
	h.mu.Lock()
	h.current = id
	h.mu.Unlock()
	ctx, end := h.begin(req.ctx, id)
	defer end()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Run started.", "entrypoint", req.entry, "files", req.files.Len())

	fe, err := frontend.ForEntrypoint(req.entry)
	if err != nil {
		return nil, circuiterr.Wrap(circuiterr.KindEvaluation, err, "cannot run %s", req.entry)
	}
	graph, err := guard(ctx, "evaluation", func(ctx context.Context) (*circuit.Graph, error) {
		b := builder.New(h.opts.Registry)
		if err := fe.Evaluate(ctx, req.files, req.entry, b); err != nil {
			return nil, err
		}
		return b.Finish(ctx)
	})
	if !h.isCurrent(id) {
		return nil, ErrAborted
	}
	if err != nil {
		logger.Debug("Run failed.", "error", err)
		return nil, err
	}
	logger.Info("Circuit evaluated.", "entrypoint", req.entry, "elements", graph.Len())
	return &run{id: id, graph: graph}, nil
}

func (h *Host) settle(req request, r *run) error {
	ctx, end := h.begin(req.ctx, r.id)
	defer end()

	opts := h.opts.Layout
	opts.Overlay.Strict = opts.Overlay.Strict || h.opts.Strict
	bindings := overlay.Bindings(r.graph, h.opts.ExtraEdits...)
	settled, err := guard(ctx, "settlement", func(ctx context.Context) (*layout.Settled, error) {
		return layout.Settle(ctx, r.graph, bindings, opts)
	})
	if !h.isCurrent(r.id) {
		return ErrAborted
	}
	if err != nil {
		return err
	}
	r.settled, r.doc = settled, nil
	if h.opts.Metrics != nil {
		h.opts.Metrics.ObserveSettlement(settled)
	}
	return nil
}

func (h *Host) document(req request, r *run) (circuitdoc.Document, error) {
	if r.settled == nil {
		return circuitdoc.Document{}, ErrNotSettled
	}
	if r.doc == nil {
		doc, err := circuitdoc.Materialize(r.settled)
		if err != nil {
			return circuitdoc.Document{}, err
		}
		r.doc = &doc
		ctxlog.FromContext(req.ctx).Debug("Circuit document materialized.", "run_id", r.id, "records", doc.Len())
	}
	return *r.doc, nil
}

// begin returns the context work on run id runs under, registered so Abort
// can cancel it. The returned func must be called when the work is over.
func (h *Host) begin(parent context.Context, id string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	stop := func() {}
	if h.opts.Timeout > 0 {
		ctx, stop = context.WithTimeout(ctx, h.opts.Timeout)
	}
	ctx = ctxlog.With(ctx, "run_id", id)

	h.mu.Lock()
	h.cancel = cancel
	if h.current != id {
		cancel(ErrAborted)
	}
	h.mu.Unlock()

	return ctx, func() {
		h.mu.Lock()
		h.cancel = nil
		h.mu.Unlock()
		stop()
		cancel(nil)
	}
}

func (h *Host) isCurrent(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current == id
}

// guard runs fn in its own goroutine. Panics become evaluation errors. When
// ctx ends first, guard returns without waiting; fn's late result is dropped.
func guard[T any](ctx context.Context, phase string, fn func(context.Context) (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: circuiterr.New(circuiterr.KindEvaluation, "%s panicked: %v", phase, p)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v: v, err: err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil && ctx.Err() != nil {
			return zero, contextError(ctx, phase)
		}
		return res.v, res.err
	case <-ctx.Done():
		return zero, contextError(ctx, phase)
	}
}

func contextError(ctx context.Context, phase string) error {
	if errors.Is(context.Cause(ctx), ErrAborted) {
		return ErrAborted
	}
	return circuiterr.FromContext(ctx, phase)
}

// outcome labels an error for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAborted):
		return "aborted"
	case errors.Is(err, ErrClosed), errors.Is(err, ErrNoRun), errors.Is(err, ErrNotSettled):
		return "misuse"
	}
	if kind := circuiterr.KindOf(err); kind != "" {
		return strings.ToLower(string(kind))
	}
	return "error"
}
