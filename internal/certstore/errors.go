package certstore

import "errors"

// Sentinel errors returned by Resolve. The transport package wraps these
// with its own exported ErrCertificateNotFound / ErrCertificateLoadFailed so
// callers outside this module never need to import certstore directly.
var (
	errCertificateNotFound   = errors.New("certstore: client certificate not found")
	errCertificateLoadFailed = errors.New("certstore: client certificate load failed")
)

// IsNotFound reports whether err indicates no matching certificate was
// found in the personal store.
func IsNotFound(err error) bool {
	return errors.Is(err, errCertificateNotFound)
}

// IsLoadFailed reports whether err indicates the certificate material could
// not be read or parsed.
func IsLoadFailed(err error) bool {
	return errors.Is(err, errCertificateLoadFailed)
}
