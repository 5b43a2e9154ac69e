// Package tlstrust implements the server-certificate trust policy used by
// the connection factory: standard chain validation, with an operator-pinned
// or trust-on-first-use fallback for self-signed certificates.
//
// The Windows "Trusted People" store is one possible backing; this package
// abstracts pinned-certificate storage behind TrustedPeerStore so a
// file-backed equivalent can be plugged in on every other platform.
package tlstrust

import "crypto/x509"

// Thumbprint is the SHA-256 fingerprint of a DER-encoded certificate, used
// as the TrustedPeerStore key.
type Thumbprint [32]byte

// TrustedPeerStore models the machine-local "Trusted People" store: a set of
// previously-pinned server certificates, keyed by thumbprint.
type TrustedPeerStore interface {
	// Contains reports whether a certificate with the given thumbprint has
	// already been pinned.
	Contains(tp Thumbprint) (bool, error)

	// Add pins cert for future connections. Implementations should be
	// idempotent: adding an already-pinned certificate is not an error.
	Add(cert *x509.Certificate) error
}
