// Package netconn is the low-level connection factory: open a TCP socket
// and, optionally, perform a TLS client handshake over it. It has no
// knowledge of certificate resolution or trust policy; callers configure
// those through a standard *tls.Config and pass it in.
package netconn

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

// Dialer opens plain TCP connections. The zero value is ready to use.
type Dialer struct{}

// NewDialer returns a ready-to-use Dialer.
func NewDialer() *Dialer {
	return &Dialer{}
}

// Dial opens a TCP connection to addr ("host:port"), honouring ctx
// cancellation and deadline. Callers that want a bounded dial attempt
// should wrap ctx with context.WithTimeout before calling Dial.
func (d *Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	var nd net.Dialer
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netconn: dial %s: %w", addr, err)
	}
	return conn, nil
}

// WrapTLS performs a client-side TLS handshake over conn using cfg,
// presenting exactly the certificate(s) configured in cfg.Certificates and
// delegating server-certificate validation to cfg's VerifyConnection
// callback. It blocks until the handshake completes or ctx is done.
func WrapTLS(ctx context.Context, conn net.Conn, cfg *tls.Config) (net.Conn, error) {
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("netconn: tls handshake: %w", err)
	}
	return tlsConn, nil
}
