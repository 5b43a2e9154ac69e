package transport

import "errors"

// Sentinel errors forming the transport's failure taxonomy. Callers should
// use errors.Is against these values; wrapped causes are attached with
// fmt.Errorf("...: %w", ...) so the underlying error remains inspectable.
var (
	// ErrDisposed is returned by every operation once Close has been called,
	// and by any request that was still pending when Close was called.
	ErrDisposed = errors.New("kafkatransport: transport disposed")

	// ErrServerDisconnected indicates the TCP or TLS stream ended, or a read
	// returned zero bytes. The transport loop treats this as a signal to
	// reconnect.
	ErrServerDisconnected = errors.New("kafkatransport: server disconnected")

	// ErrConnectFailed wraps a failed connection attempt. It is absorbed by
	// the backoff loop and retried; it is never returned to a caller's
	// pending request.
	ErrConnectFailed = errors.New("kafkatransport: connect failed")

	// ErrCertificateNotFound is returned when certificate resolution finds no
	// matching certificate in the configured store.
	ErrCertificateNotFound = errors.New("kafkatransport: client certificate not found")

	// ErrCertificateLoadFailed wraps a failure to read or parse certificate
	// material (PFX file, store entry).
	ErrCertificateLoadFailed = errors.New("kafkatransport: client certificate load failed")

	// ErrHandshakeFailed indicates the TLS handshake was rejected, by either
	// party. It is treated identically to ErrServerDisconnected.
	ErrHandshakeFailed = errors.New("kafkatransport: tls handshake failed")

	// ErrCancelled is returned to a request whose context was cancelled
	// before or during execution.
	ErrCancelled = errors.New("kafkatransport: request cancelled")
)
