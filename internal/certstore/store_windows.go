//go:build windows

package certstore

// TODO: back PersonalStore with the Windows CryptoAPI "MY" certificate
// store (CertOpenStore / CertFindCertificateInStore) instead of DirStore.
// DirStore (see dirstore.go, which also builds on windows) is used until
// then.
