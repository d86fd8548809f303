package streaming

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/zaitanabil/galerly-sub003/internal/logging"
)

var (
	// ErrWriteTimeout reports that a single write, or the stream as a
	// whole, exceeded its configured budget. The usual cause is a
	// client receiving a large archive too slowly.
	ErrWriteTimeout = errors.New("streaming: write timeout exceeded")

	// ErrClientGone reports that the client disconnected before the
	// stream completed, detected through the request context.
	ErrClientGone = errors.New("streaming: client disconnected")

	// ErrStreamCanceled reports that the stream was closed
	// programmatically.
	ErrStreamCanceled = errors.New("streaming: stream canceled")
)

// Config bounds one streamed response.
type Config struct {
	// WriteTimeout is the budget for a single write to the client.
	WriteTimeout time.Duration
	// IdleTimeout is the longest allowed gap between successful
	// writes. Zero disables the idle check.
	IdleTimeout time.Duration
	// MaxDuration caps the whole stream. Zero means unlimited, which
	// is the right setting for multi-gigabyte archives on slow links.
	MaxDuration time.Duration
	// ChunkSize splits large writes so the idle clock advances and the
	// response flushes between chunks. Zero writes as received.
	ChunkSize int
}

// DefaultConfig returns the bounds archive downloads are served with.
func DefaultConfig() Config {
	return Config{
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		MaxDuration:  0,
		ChunkSize:    64 * 1024,
	}
}

// TimeoutWriter wraps an http.ResponseWriter so a stalled client
// cannot hold a handler goroutine forever. The zero value is not
// usable; construct with NewTimeoutWriter.
type TimeoutWriter struct {
	w       http.ResponseWriter
	ctx     context.Context
	cancel  context.CancelCauseFunc
	config  Config
	flusher http.Flusher

	startTime time.Time

	mu           sync.Mutex
	lastWrite    time.Time
	bytesWritten int64
	closed       bool
}

// NewTimeoutWriter wraps w. The context should be the request context
// so client disconnects end the stream early.
func NewTimeoutWriter(ctx context.Context, w http.ResponseWriter, config Config) *TimeoutWriter {
	writerCtx, cancel := context.WithCancelCause(ctx)

	tw := &TimeoutWriter{
		w:         w,
		ctx:       writerCtx,
		cancel:    cancel,
		config:    config,
		startTime: time.Now(),
		lastWrite: time.Now(),
	}

	if flusher, ok := w.(http.Flusher); ok {
		tw.flusher = flusher
	}

	if config.IdleTimeout > 0 {
		go tw.idleChecker()
	}
	return tw
}

// Write implements io.Writer. It fails with ErrWriteTimeout,
// ErrClientGone, or ErrStreamCanceled once the stream is no longer
// viable; callers should stop on the first error.
func (tw *TimeoutWriter) Write(p []byte) (int, error) {
	tw.mu.Lock()
	closed := tw.closed
	tw.mu.Unlock()
	if closed {
		return 0, ErrStreamCanceled
	}

	select {
	case <-tw.ctx.Done():
		return 0, tw.abortError()
	default:
	}

	if tw.config.MaxDuration > 0 && time.Since(tw.startTime) > tw.config.MaxDuration {
		tw.cancel(ErrWriteTimeout)
		return 0, ErrWriteTimeout
	}

	if tw.config.ChunkSize > 0 && len(p) > tw.config.ChunkSize {
		return tw.writeChunked(p)
	}
	return tw.writeWithTimeout(p)
}

func (tw *TimeoutWriter) writeChunked(p []byte) (int, error) {
	total := 0

	for len(p) > 0 {
		select {
		case <-tw.ctx.Done():
			return total, tw.abortError()
		default:
		}

		chunk := tw.config.ChunkSize
		if len(p) < chunk {
			chunk = len(p)
		}

		n, err := tw.writeWithTimeout(p[:chunk])
		total += n
		if err != nil {
			return total, err
		}
		p = p[chunk:]

		if tw.flusher != nil {
			tw.flusher.Flush()
		}
	}
	return total, nil
}

// writeWithTimeout performs one write on a helper goroutine so a
// blocked client connection cannot stall the caller past the budget.
// An abandoned write keeps sole ownership of its buffer slice; the
// caller must not reuse p after a timeout, which holds because every
// timeout ends the stream.
func (tw *TimeoutWriter) writeWithTimeout(p []byte) (int, error) {
	type writeResult struct {
		n   int
		err error
	}
	resultCh := make(chan writeResult, 1)

	go func() {
		n, err := tw.w.Write(p)
		resultCh <- writeResult{n, err}
	}()

	timer := time.NewTimer(tw.config.WriteTimeout)
	defer timer.Stop()

	select {
	case result := <-resultCh:
		if result.err == nil {
			tw.mu.Lock()
			tw.lastWrite = time.Now()
			tw.bytesWritten += int64(result.n)
			tw.mu.Unlock()
		}
		return result.n, result.err

	case <-timer.C:
		tw.cancel(ErrWriteTimeout)
		return 0, ErrWriteTimeout

	case <-tw.ctx.Done():
		return 0, tw.abortError()
	}
}

// idleChecker ends streams whose source stopped producing, which
// otherwise never hit the per-write budget.
func (tw *TimeoutWriter) idleChecker() {
	ticker := time.NewTicker(tw.config.IdleTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tw.mu.Lock()
			idle := time.Since(tw.lastWrite)
			closed := tw.closed
			tw.mu.Unlock()

			if closed {
				return
			}
			if idle > tw.config.IdleTimeout {
				logging.Warn("Stream idle for %v, terminating", idle.Round(time.Millisecond))
				tw.cancel(ErrWriteTimeout)
				return
			}

		case <-tw.ctx.Done():
			return
		}
	}
}

// abortError translates the cancel cause into the stream error.
func (tw *TimeoutWriter) abortError() error {
	cause := context.Cause(tw.ctx)
	switch {
	case errors.Is(cause, context.Canceled):
		// The parent (request) context went away underneath us.
		return ErrClientGone
	case cause != nil:
		return cause
	default:
		return ErrStreamCanceled
	}
}

// Close ends the stream. Safe to call more than once.
func (tw *TimeoutWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	if tw.closed {
		return nil
	}
	tw.closed = true
	tw.cancel(ErrStreamCanceled)
	return nil
}

// Stats returns bytes written so far and the elapsed stream time.
func (tw *TimeoutWriter) Stats() (bytesWritten int64, duration time.Duration) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.bytesWritten, time.Since(tw.startTime)
}

// Copy streams r to the response with timeout protection and reports
// how many bytes reached the client. Headers, including
// Content-Length, are the caller's business and must be set before the
// first byte.
func Copy(ctx context.Context, w http.ResponseWriter, r io.Reader, config Config) (int64, error) {
	tw := NewTimeoutWriter(ctx, w, config)
	defer tw.Close()

	_, err := io.Copy(tw, r)

	n, duration := tw.Stats()
	logging.Debug("Streamed %d bytes in %v", n, duration.Round(time.Millisecond))
	return n, err
}
