package tlstrust_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/tripwire/kafkatransport/internal/tlstrust"
)

func selfSignedCert(t *testing.T, cn string) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	return cert
}

func connState(cert *x509.Certificate) tls.ConnectionState {
	return tls.ConnectionState{PeerCertificates: []*x509.Certificate{cert}}
}

func TestPolicy_RejectsUntrustedByDefault(t *testing.T) {
	cert := selfSignedCert(t, "broker.example.com")
	p := &tlstrust.Policy{AllowSelfSigned: false}

	if err := p.VerifyConnection(connState(cert)); err == nil {
		t.Fatal("expected rejection of untrusted self-signed certificate")
	}
}

func TestPolicy_AcceptsPinned(t *testing.T) {
	cert := selfSignedCert(t, "broker.example.com")
	store := tlstrust.NewMemStore()
	if err := store.Add(cert); err != nil {
		t.Fatal(err)
	}

	p := &tlstrust.Policy{AllowSelfSigned: true, Store: store}
	if err := p.VerifyConnection(connState(cert)); err != nil {
		t.Fatalf("expected acceptance of pre-pinned certificate, got %v", err)
	}
}

func TestPolicy_TrainModePinsOnce(t *testing.T) {
	cert := selfSignedCert(t, "broker.example.com")
	store := tlstrust.NewMemStore()
	p := &tlstrust.Policy{AllowSelfSigned: true, TrainMode: true, Store: store}

	if err := p.VerifyConnection(connState(cert)); err != nil {
		t.Fatalf("first connection should be auto-pinned, got %v", err)
	}
	pinned, err := store.Contains(tlstrust.Fingerprint(cert))
	if err != nil {
		t.Fatal(err)
	}
	if !pinned {
		t.Fatal("expected certificate to be pinned after train-mode accept")
	}

	// Second connection for the same certificate: already pinned, no new
	// entry should be created (Contains is idempotent via step 3).
	if err := p.VerifyConnection(connState(cert)); err != nil {
		t.Fatalf("second connection should be accepted via pinned entry, got %v", err)
	}
}

func TestPolicy_RejectsUnpinnedWithoutTrainMode(t *testing.T) {
	cert := selfSignedCert(t, "broker.example.com")
	store := tlstrust.NewMemStore()
	p := &tlstrust.Policy{AllowSelfSigned: true, TrainMode: false, Store: store}

	if err := p.VerifyConnection(connState(cert)); err == nil {
		t.Fatal("expected rejection of unpinned certificate without train mode")
	}
}
