package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops the async handler on shutdown.
type Closer interface {
	Close()
}

// nopCloser is the Closer for synchronous mode.
type nopCloser struct{}

func (nopCloser) Close() {}

// queue is the buffering core shared by an AsyncHandler and all of its
// WithAttrs/WithGroup clones: one channel, one worker pool, one drop counter.
type queue struct {
	ch      chan slog.Record
	workers sync.WaitGroup
	dropped atomic.Int64
}

// AsyncHandler decouples log emission from the caller. Engagement runs can
// emit a record per candidate; buffering keeps logging off the action path.
// When the buffer is full the record is dropped, never blocked on.
type AsyncHandler struct {
	inner slog.Handler
	q     *queue
}

// NewAsyncHandler creates an AsyncHandler with the given buffer capacity and
// worker count.
func NewAsyncHandler(inner slog.Handler, bufSize, workers int) *AsyncHandler {
	q := &queue{ch: make(chan slog.Record, bufSize)}
	h := &AsyncHandler{inner: inner, q: q}
	for range workers {
		q.workers.Add(1)
		go func() {
			defer q.workers.Done()
			for rec := range q.ch {
				_ = inner.Handle(context.Background(), rec)
			}
		}()
	}
	return h
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it if the buffer is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.q.ch <- rec:
	default:
		h.q.dropped.Add(1)
	}
	return nil
}

// WithAttrs clones the handler around a new inner handler; the queue is shared.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), q: h.q}
}

// WithGroup clones the handler around a new inner handler; the queue is shared.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), q: h.q}
}

// DroppedCount returns the number of records dropped on a full buffer.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.q.dropped.Load()
}

// Close stops intake and waits for the workers to drain the buffer.
func (h *AsyncHandler) Close() {
	close(h.q.ch)
	h.q.workers.Wait()
}
