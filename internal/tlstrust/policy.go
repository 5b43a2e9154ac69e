package tlstrust

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// Policy implements the server-certificate trust decision:
//
//  1. If the certificate chains to a trusted root, accept.
//  2. Otherwise, if AllowSelfSigned is false, reject.
//  3. Otherwise, if the leaf's thumbprint is already pinned in Store,
//     accept.
//  4. Otherwise, if TrainMode is true, pin the leaf in Store and accept
//     (trust-on-first-use).
//  5. Otherwise, reject.
type Policy struct {
	// AllowSelfSigned enables steps 2-5; when false an untrusted chain is
	// always rejected.
	AllowSelfSigned bool

	// TrainMode enables step 4, auto-pinning the first certificate seen for
	// a given endpoint. It has no effect when AllowSelfSigned is false.
	TrainMode bool

	// Store is consulted and updated by steps 3 and 4. Must not be nil when
	// AllowSelfSigned is true.
	Store TrustedPeerStore

	// Roots, when non-nil, overrides the system root pool used for standard
	// chain validation in step 1. Primarily for tests.
	Roots *x509.CertPool
}

// VerifyConnection is installed as tls.Config.VerifyConnection. It requires
// the config to set InsecureSkipVerify: true so that Go's handshake does not
// abort on a self-signed leaf before this callback runs; this function then
// performs standard validation itself as step 1.
func (p *Policy) VerifyConnection(cs tls.ConnectionState) error {
	if len(cs.PeerCertificates) == 0 {
		return fmt.Errorf("tlstrust: server presented no certificate")
	}
	leaf := cs.PeerCertificates[0]

	intermediates := x509.NewCertPool()
	for _, c := range cs.PeerCertificates[1:] {
		intermediates.AddCert(c)
	}

	_, chainErr := leaf.Verify(x509.VerifyOptions{
		DNSName:       cs.ServerName,
		Roots:         p.Roots,
		Intermediates: intermediates,
	})
	if chainErr == nil {
		// Step 1: standard validation succeeded.
		return nil
	}

	if !p.AllowSelfSigned {
		// Step 2.
		return fmt.Errorf("tlstrust: untrusted server certificate: %w", chainErr)
	}

	tp := Fingerprint(leaf)
	pinned, err := p.Store.Contains(tp)
	if err != nil {
		return fmt.Errorf("tlstrust: check trusted peer store: %w", err)
	}
	if pinned {
		// Step 3.
		return nil
	}

	if p.TrainMode {
		// Step 4: one-shot trust-on-first-use bootstrap.
		if err := p.Store.Add(leaf); err != nil {
			return fmt.Errorf("tlstrust: pin server certificate: %w", err)
		}
		return nil
	}

	// Step 5.
	return fmt.Errorf("tlstrust: self-signed server certificate not pinned: %w", chainErr)
}
