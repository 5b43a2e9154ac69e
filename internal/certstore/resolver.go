// Package certstore resolves the client certificate presented during the
// TLS handshake, from either a PKCS#12 (.pfx) file or the platform's
// personal certificate store.
//
// Store access differs by platform, so it is abstracted behind
// PersonalStore: dirstore.go provides a file-backed implementation usable
// everywhere, and store_windows.go is a placeholder for a future
// CryptoAPI-backed one.
package certstore

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"

	"software.sslmate.com/src/go-pkcs12"
)

// Entry is a single certificate found in a PersonalStore lookup.
type Entry struct {
	Cert         tls.Certificate
	FriendlyName string
}

// PersonalStore models the machine-local personal certificate store that
// CertificateResolver falls back to when ClientCertRef is not a .pfx path.
type PersonalStore interface {
	// FindBySubject returns every certificate whose subject name equals
	// subject. An empty, non-error result means no match was found.
	FindBySubject(subject string) ([]Entry, error)
}

// Resolve loads a client certificate from a .pfx file when ref ends in
// ".pfx" (case-sensitive), otherwise looks ref up as a subject name in
// store.
//
//   - Any failure to read or parse the PFX file, or a store lookup error,
//     is reported as a load failure (see IsLoadFailed).
//   - A nil store, or a store with no certificate matching subject, is
//     reported as not found (see IsNotFound).
//   - Among multiple store matches, the one whose friendly name equals
//     friendlyName is preferred; otherwise the first match is used.
func Resolve(ref, friendlyName, password string, store PersonalStore) (tls.Certificate, error) {
	if strings.HasSuffix(ref, ".pfx") {
		return resolveFromFile(ref, password)
	}
	return resolveFromStore(ref, friendlyName, store)
}

func resolveFromFile(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: read %s: %v", errCertificateLoadFailed, path, err)
	}

	privateKey, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: decode pfx %s: %v", errCertificateLoadFailed, path, err)
	}

	tlsCert := tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  privateKey,
		Leaf:        cert,
	}
	for _, ca := range caCerts {
		tlsCert.Certificate = append(tlsCert.Certificate, ca.Raw)
	}
	return tlsCert, nil
}

func resolveFromStore(subject, friendlyName string, store PersonalStore) (tls.Certificate, error) {
	if store == nil {
		return tls.Certificate{}, fmt.Errorf("%w: no personal store configured", errCertificateNotFound)
	}

	entries, err := store.FindBySubject(subject)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("%w: lookup subject %q: %v", errCertificateLoadFailed, subject, err)
	}
	if len(entries) == 0 {
		return tls.Certificate{}, fmt.Errorf("%w: subject %q", errCertificateNotFound, subject)
	}

	for _, e := range entries {
		if friendlyName != "" && e.FriendlyName == friendlyName {
			return e.Cert, nil
		}
	}
	// No friendly-name match (or none requested): fall back to the first
	// match.
	return entries[0].Cert, nil
}
