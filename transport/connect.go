package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/tripwire/kafkatransport/internal/certstore"
	"github.com/tripwire/kafkatransport/internal/netconn"
	"github.com/tripwire/kafkatransport/internal/tlstrust"
)

// connect opens a TCP connection to t.endpoint, then, if TLS is configured,
// wraps it with a TLS 1.2 client handshake presenting the resolved client
// certificate and delegating server-certificate validation to the TLS trust
// policy.
//
// Dial and handshake failures are wrapped in ErrConnectFailed; certificate
// resolution failures are returned as ErrCertificateNotFound or
// ErrCertificateLoadFailed. The caller (connectWithBackoff) treats every
// error as transient and retries with backoff.
func (t *Transport) connect(ctx context.Context) (net.Conn, error) {
	conn, err := t.dialer.Dial(ctx, t.endpoint.Address())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	if t.opts.TLS == nil {
		return conn, nil
	}

	tlsCfg, err := t.buildTLSConfig()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	tlsConn, err := netconn.WrapTLS(ctx, conn, tlsCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	return tlsConn, nil
}

// buildTLSConfig resolves the client certificate and assembles a
// *tls.Config whose VerifyConnection callback implements the TLS trust
// policy. InsecureSkipVerify is intentionally true: the handshake's
// standard validation is bypassed so that the trust policy can perform its
// own chain validation as step 1 and fall through to the pinning logic on
// failure; see tlstrust.Policy.
func (t *Transport) buildTLSConfig() (*tls.Config, error) {
	cert, err := certstore.Resolve(t.opts.TLS.ClientCertRef, t.opts.TLS.FriendlyName, t.opts.TLS.Password, t.personalStore)
	if err != nil {
		switch {
		case certstore.IsNotFound(err):
			return nil, fmt.Errorf("%w: %v", ErrCertificateNotFound, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrCertificateLoadFailed, err)
		}
	}

	policy := &tlstrust.Policy{
		AllowSelfSigned: t.opts.TLS.AllowSelfSignedServerCert,
		TrainMode:       t.opts.TLS.SelfSignedTrainMode,
		Store:           t.trustedPeers,
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		ServerName:         t.endpoint.Host,
		MinVersion:         tls.VersionTLS12,
		MaxVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true,
		VerifyConnection:   policy.VerifyConnection,
	}, nil
}
