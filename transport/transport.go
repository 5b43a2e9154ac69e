// Package transport implements a resilient, duplex, request-oriented TCP
// transport for a single Kafka broker endpoint: callers enqueue reads and
// writes, an owning loop multiplexes them over one socket (plain or
// TLS-wrapped) with one goroutine per direction, and the transport
// transparently re-establishes the
// connection with exponential backoff on failure.
//
// # Usage
//
//	tr := transport.New(transport.NewEndpoint("broker.example.com", 9093),
//	    transport.NewOptions(transport.WithTLS(transport.TLSOptions{
//	        ClientCertRef: "/etc/kafka/client.pfx",
//	        Password:      "changeit",
//	    })),
//	    transport.WithLogger(logger),
//	)
//	tr.Start(ctx)
//	defer tr.Close()
//
//	if _, err := tr.Write(ctx, transport.WritePayload{Buffer: req}); err != nil {
//	    // handle failure; the caller decides whether to retry
//	}
//	body, err := tr.Read(ctx, uint32(len(req)))
//
// # Reconnection
//
// On any I/O error the owning loop drops the stream and reconnects using
// exponential backoff (internal/backoff), resetting the delay to its
// initial value after every successful connect. Pending requests that were
// in flight when the connection dropped fail; the transport never retries
// an application-level request on the caller's behalf.
//
// # Disposal
//
// Close is idempotent and safe to call from any goroutine. It stops the
// owning loop, fails every queued and in-flight request with ErrDisposed,
// and releases the stream.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tripwire/kafkatransport/internal/backoff"
	"github.com/tripwire/kafkatransport/internal/certstore"
	"github.com/tripwire/kafkatransport/internal/netconn"
	"github.com/tripwire/kafkatransport/internal/reqqueue"
	"github.com/tripwire/kafkatransport/internal/tlstrust"
	"github.com/tripwire/kafkatransport/internal/transportmetrics"
)

// closeWait bounds how long Close waits for the owning loop to exit before
// giving up and returning anyway.
const closeWait = 30 * time.Second

// Transport is the public façade (TransportHandle) over the connection
// manager. Create one with New, call Start once, and use Read/Write from
// any number of goroutines. Call Close exactly when done; it is safe to
// call more than once.
type Transport struct {
	endpoint Endpoint
	opts     Options
	logger   *slog.Logger
	metrics  *transportmetrics.Metrics

	dialer        *netconn.Dialer
	personalStore certstore.PersonalStore
	trustedPeers  tlstrust.TrustedPeerStore

	sendQ *reqqueue.Queue[*writeRequest]
	readQ *reqqueue.Queue[*readRequest]

	backoffPolicy *backoff.Policy

	events events

	closeOnce sync.Once
	closeCh   chan struct{}
	doneCh    chan struct{}
	disposed  atomic.Bool
}

// HandleOption configures optional collaborators at construction time.
type HandleOption func(*Transport)

// WithLogger injects a structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) HandleOption {
	return func(t *Transport) { t.logger = logger }
}

// WithMetrics attaches a transportmetrics.Metrics value that is updated as
// the transport operates. When omitted the transport runs without metrics
// instrumentation.
func WithMetrics(m *transportmetrics.Metrics) HandleOption {
	return func(t *Transport) { t.metrics = m }
}

// WithPersonalStore injects the certificate store consulted when
// TLSOptions.ClientCertRef is not a .pfx path. Required only when TLS is
// enabled and ClientCertRef names a store subject rather than a file.
func WithPersonalStore(store certstore.PersonalStore) HandleOption {
	return func(t *Transport) { t.personalStore = store }
}

// WithTrustedPeerStore injects the pinned-certificate store consulted by
// the TLS trust policy when AllowSelfSignedServerCert is true. Defaults to
// an in-process tlstrust.MemStore.
func WithTrustedPeerStore(store tlstrust.TrustedPeerStore) HandleOption {
	return func(t *Transport) { t.trustedPeers = store }
}

// New constructs a Transport for endpoint with the given options. The
// transport is created in the Disconnected state; call Start to begin
// connecting.
func New(endpoint Endpoint, opts Options, hopts ...HandleOption) *Transport {
	t := &Transport{
		endpoint: endpoint,
		opts:     opts,
		logger:   slog.Default(),
		dialer:   netconn.NewDialer(),
		sendQ:    reqqueue.New[*writeRequest](opts.SendQueueCapacity),
		readQ:    reqqueue.New[*readRequest](opts.ReadQueueCapacity),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if t.opts.TLS != nil {
		t.trustedPeers = tlstrust.NewMemStore()
	}
	for _, o := range hopts {
		o(t)
	}
	return t
}

// Endpoint returns the broker endpoint this transport connects to.
func (t *Transport) Endpoint() Endpoint { return t.endpoint }

// Start launches the owning TransportLoop goroutine. Start is not safe to
// call more than once; callers that need to restart a disposed transport
// must construct a new one with New.
func (t *Transport) Start(ctx context.Context) {
	go t.runLoop(ctx)
}

// Read enqueues a request for exactly n bytes and blocks until it
// completes, the request's own context is cancelled, or the transport is
// closed. n must be > 0. A short read is never returned: Read either
// returns exactly n bytes or a non-nil error.
func (t *Transport) Read(ctx context.Context, n uint32) ([]byte, error) {
	if n == 0 {
		return nil, fmt.Errorf("kafkatransport: read size must be > 0")
	}
	if t.disposed.Load() {
		return nil, ErrDisposed
	}

	req := &readRequest{size: n, result: make(chan readResult, 1), ctx: ctx}
	if err := t.readQ.Push(ctx, req); err != nil {
		if errors.Is(err, reqqueue.ErrClosed) {
			return nil, ErrDisposed
		}
		return nil, err
	}

	select {
	case res := <-req.result:
		return res.data, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-t.closeCh:
		return nil, ErrDisposed
	}
}

// Write enqueues payload and blocks until it has been written in full, the
// request's own context is cancelled, or the transport is closed. A failed
// write may have been partially transmitted; the caller must not assume
// atomicity.
func (t *Transport) Write(ctx context.Context, payload WritePayload) (WritePayload, error) {
	if t.disposed.Load() {
		return WritePayload{}, ErrDisposed
	}

	req := &writeRequest{payload: payload, result: make(chan writeResult, 1), ctx: ctx}
	if err := t.sendQ.Push(ctx, req); err != nil {
		if errors.Is(err, reqqueue.ErrClosed) {
			return WritePayload{}, ErrDisposed
		}
		return WritePayload{}, err
	}

	select {
	case res := <-req.result:
		return res.payload, res.err
	case <-ctx.Done():
		return WritePayload{}, fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	case <-t.closeCh:
		return WritePayload{}, ErrDisposed
	}
}

// OnServerDisconnected subscribes fn to the server-disconnected event.
func (t *Transport) OnServerDisconnected(fn func()) { t.events.OnServerDisconnected(fn) }

// OnReconnectionAttempt subscribes fn to the reconnection-attempt event.
func (t *Transport) OnReconnectionAttempt(fn func(attempt int)) {
	t.events.OnReconnectionAttempt(fn)
}

// OnReadFromSocketAttempt subscribes fn to the read-attempt event.
func (t *Transport) OnReadFromSocketAttempt(fn func(remaining uint32)) {
	t.events.OnReadFromSocketAttempt(fn)
}

// OnBytesReceived subscribes fn to the bytes-received event.
func (t *Transport) OnBytesReceived(fn func(n int)) { t.events.OnBytesReceived(fn) }

// OnWriteToSocketAttempt subscribes fn to the write-attempt event.
func (t *Transport) OnWriteToSocketAttempt(fn func(payload WritePayload)) {
	t.events.OnWriteToSocketAttempt(fn)
}

// Close signals the owning loop to shut down, waits up to 30s for it to
// exit, and fails every queued request with ErrDisposed. Close is
// idempotent and safe to call from any goroutine.
func (t *Transport) Close() {
	t.closeOnce.Do(func() {
		t.disposed.Store(true)
		close(t.closeCh)

		t.sendQ.CloseAndDrain(func(req *writeRequest) {
			req.result <- writeResult{err: ErrDisposed}
		})
		t.readQ.CloseAndDrain(func(req *readRequest) {
			req.result <- readResult{err: ErrDisposed}
		})
	})

	select {
	case <-t.doneCh:
	case <-time.After(closeWait):
		t.logger.Warn("transport: loop did not exit within close timeout",
			slog.String("endpoint", t.endpoint.String()))
	}
}
