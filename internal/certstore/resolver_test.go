package certstore_test

import (
	"testing"

	"github.com/tripwire/kafkatransport/internal/certstore"
)

func TestResolve_NotFoundInStore(t *testing.T) {
	store := certstore.NewDirStore(t.TempDir())

	_, err := certstore.Resolve("CN=broker", "", "", store)
	if err == nil {
		t.Fatal("expected an error for an unknown subject")
	}
	if !certstore.IsNotFound(err) {
		t.Fatalf("expected IsNotFound(err) to be true, got %v", err)
	}
}

func TestResolve_MissingFileIsLoadFailure(t *testing.T) {
	_, err := certstore.Resolve("/nonexistent/client.pfx", "", "secret", nil)
	if err == nil {
		t.Fatal("expected an error for a missing pfx file")
	}
	if !certstore.IsLoadFailed(err) {
		t.Fatalf("expected IsLoadFailed(err) to be true, got %v", err)
	}
}
