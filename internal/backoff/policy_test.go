package backoff_test

import (
	"testing"
	"time"

	"github.com/tripwire/kafkatransport/internal/backoff"
)

func TestPolicy_DoublesAndCaps(t *testing.T) {
	p := backoff.New(100*time.Millisecond, 2, 500*time.Millisecond)

	got := []time.Duration{p.Next(), p.Next(), p.Next(), p.Next(), p.Next()}
	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond, // capped
		500 * time.Millisecond,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Next() #%d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPolicy_ResetRestartsSequence(t *testing.T) {
	p := backoff.New(100*time.Millisecond, 2, 5*time.Second)

	p.Next()
	p.Next()
	p.Reset()

	if got := p.Next(); got != 100*time.Millisecond {
		t.Fatalf("Next() after Reset = %v, want 100ms", got)
	}
}
