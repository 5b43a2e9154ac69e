package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/tripwire/kafkatransport/internal/backoff"
)

// runLoop is the transport's outer driver: it repeatedly runs a session
// until the transport is closed or ctx is cancelled. Any session-ending
// error is logged (or raised as OnServerDisconnected) and the loop
// immediately starts a new session, which begins by reconnecting.
func (t *Transport) runLoop(ctx context.Context) {
	defer close(t.doneCh)

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-t.closeCh:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	t.backoffPolicy = backoff.New(t.opts.InitialBackoff, t.opts.BackoffMultiplier, t.opts.MaxReconnectBackoff)

	for {
		if loopCtx.Err() != nil {
			return
		}

		err := t.runSession(loopCtx)

		if loopCtx.Err() != nil {
			return
		}
		if err == nil {
			continue
		}

		switch {
		case errors.Is(err, ErrServerDisconnected), errors.Is(err, ErrHandshakeFailed):
			t.events.emitServerDisconnected()
			if t.metrics != nil {
				t.metrics.Reconnects.Add(1)
			}
			t.logger.Warn("transport: server disconnected, reconnecting",
				slog.String("endpoint", t.endpoint.String()))
		case errors.Is(err, ErrDisposed):
			return
		default:
			t.logger.Error("transport: session ended unexpectedly",
				slog.String("endpoint", t.endpoint.String()),
				slog.Any("error", err))
		}
	}
}

// runSession owns one connected stream from handshake to disconnect. It
// returns nil when the session ended because the transport is shutting down
// (a clean exit, not logged by the caller), or a non-nil error describing
// why the session ended so the outer loop can reconnect.
func (t *Transport) runSession(ctx context.Context) error {
	conn, err := t.connectWithBackoff(ctx)
	if err != nil {
		// Only returns non-nil when ctx is done; a clean shutdown.
		return nil
	}
	defer func() {
		_ = conn.Close()
		if t.metrics != nil {
			t.metrics.Connected.Store(0)
		}
	}()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- t.writeLoop(sessionCtx, conn) }()
	go func() { errCh <- t.readLoop(sessionCtx, conn) }()

	first := <-errCh
	cancel()
	<-errCh // wait for the other direction to observe cancellation and exit

	return first
}

// connectWithBackoff retries connect until it succeeds or ctx is done,
// emitting OnReconnectionAttempt before every try and resetting the backoff
// policy on success so a later failure starts from InitialBackoff again.
func (t *Transport) connectWithBackoff(ctx context.Context) (net.Conn, error) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		attempt++
		t.events.emitReconnectionAttempt(attempt)
		if t.metrics != nil {
			t.metrics.ConnectAttempts.Add(1)
		}

		conn, err := t.connect(ctx)
		if err == nil {
			t.backoffPolicy.Reset()
			if t.metrics != nil {
				t.metrics.Connected.Store(1)
			}
			return conn, nil
		}

		if t.metrics != nil {
			t.metrics.ConnectErrors.Add(1)
		}
		t.logger.Warn("transport: connect attempt failed",
			slog.String("endpoint", t.endpoint.String()),
			slog.Int("attempt", attempt),
			slog.Any("error", err))

		delay := t.backoffPolicy.Next()
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// writeLoop pops and executes one WriteRequest at a time from the send
// queue, enforcing "at most one outstanding write" by never starting the
// next request until the previous one has returned.
func (t *Transport) writeLoop(ctx context.Context, conn net.Conn) error {
	for {
		if err := t.sendQ.Wait(ctx); err != nil || ctx.Err() != nil {
			return nil
		}
		req, ok := t.sendQ.TryPop()
		if !ok {
			continue
		}
		if req.canceled() {
			req.result <- writeResult{err: fmt.Errorf("%w", ErrCancelled)}
			continue
		}
		if err := t.processWrite(conn, req); err != nil {
			return err
		}
	}
}

// readLoop pops and executes one ReadRequest at a time from the read queue,
// enforcing "at most one outstanding read".
func (t *Transport) readLoop(ctx context.Context, conn net.Conn) error {
	for {
		if err := t.readQ.Wait(ctx); err != nil || ctx.Err() != nil {
			return nil
		}
		req, ok := t.readQ.TryPop()
		if !ok {
			continue
		}
		if req.canceled() {
			req.result <- readResult{err: fmt.Errorf("%w", ErrCancelled)}
			continue
		}
		if err := t.processRead(ctx, conn, req); err != nil {
			return err
		}
	}
}

// processWrite writes the payload in full, completing the request's result
// exactly once.
func (t *Transport) processWrite(conn net.Conn, req *writeRequest) error {
	t.events.emitWriteToSocketAttempt(req.payload)

	if err := writeFull(conn, req.payload.Buffer); err != nil {
		if t.disposed.Load() {
			req.result <- writeResult{err: ErrDisposed}
			return ErrDisposed
		}
		wrapped := fmt.Errorf("%w: %v", ErrServerDisconnected, err)
		if t.metrics != nil {
			t.metrics.WriteErrors.Add(1)
		}
		req.result <- writeResult{err: wrapped}
		return wrapped
	}

	if t.metrics != nil {
		t.metrics.Writes.Add(1)
	}
	req.result <- writeResult{payload: req.payload}
	return nil
}

// writeFull writes buf to w in full, looping over any partial writes the
// underlying stream reports.
func writeFull(w io.Writer, buf []byte) error {
	for written := 0; written < len(buf); {
		n, err := w.Write(buf[written:])
		written += n
		if err != nil {
			return err
		}
	}
	return nil
}

// processRead accumulates exactly req.size bytes, honouring req.ctx
// cancellation at chunk boundaries, and never returns a short buffer.
func (t *Transport) processRead(sessionCtx context.Context, conn net.Conn, req *readRequest) error {
	buf := make([]byte, req.size)
	var received uint32

	for received < req.size {
		remaining := req.size - received
		t.events.emitReadFromSocketAttempt(remaining)

		n, err := readWithCancel(sessionCtx, req.ctx, conn, buf[received:])
		if n > 0 {
			t.events.emitBytesReceived(n)
			received += uint32(n)
		}

		if err == nil && n <= 0 {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			return t.completeReadFailure(sessionCtx, req, received, err)
		}
	}

	if t.metrics != nil {
		t.metrics.Reads.Add(1)
		t.metrics.BytesReceived.Add(int64(received))
	}
	req.result <- readResult{data: buf}
	return nil
}

// completeReadFailure classifies why a read chunk failed and completes the
// request accordingly.
func (t *Transport) completeReadFailure(sessionCtx context.Context, req *readRequest, received uint32, cause error) error {
	if t.disposed.Load() {
		req.result <- readResult{err: ErrDisposed}
		return ErrDisposed
	}

	if sessionCtx.Err() != nil {
		// The session is ending for another reason (the write side failed,
		// or the transport is shutting down); let the outer loop report
		// that instead of double-reporting here.
		req.result <- readResult{err: fmt.Errorf("%w: %v", ErrServerDisconnected, cause)}
		return nil
	}

	if req.ctx != nil && req.ctx.Err() != nil {
		if received > 0 {
			// Stream position is undefined once partial bytes were
			// consumed; force a reconnect rather than leave the framing
			// ambiguous for the next reader.
			wrapped := fmt.Errorf("%w: cancelled mid-read", ErrServerDisconnected)
			req.result <- readResult{err: wrapped}
			return wrapped
		}
		req.result <- readResult{err: fmt.Errorf("%w: %v", ErrCancelled, req.ctx.Err())}
		return nil
	}

	wrapped := fmt.Errorf("%w: %v", ErrServerDisconnected, cause)
	if t.metrics != nil {
		t.metrics.ReadErrors.Add(1)
	}
	req.result <- readResult{err: wrapped}
	return wrapped
}

// readWithCancel runs one conn.Read call that can be interrupted by either
// ctx being done. net.Conn.Read does not accept a context directly, so a
// watcher goroutine nudges the read deadline to unblock it; the caller then
// consults ctx.Err()/req.ctx.Err() to tell a genuine I/O error apart from an
// induced cancellation.
func readWithCancel(sessionCtx, reqCtx context.Context, conn net.Conn, buf []byte) (int, error) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-sessionCtx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-reqCtx.Done():
			_ = conn.SetReadDeadline(time.Now())
		case <-done:
		}
	}()

	n, err := conn.Read(buf)

	// Clear any deadline set above so the next read on this connection
	// (same session, next request) is not left with a stale deadline.
	_ = conn.SetReadDeadline(time.Time{})

	return n, err
}
