package reqqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/tripwire/kafkatransport/internal/reqqueue"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := reqqueue.New[int](0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := q.Push(ctx, i); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 5; i++ {
		got, ok := q.TryPop()
		if !ok || got != i {
			t.Fatalf("TryPop() #%d = (%d, %v), want (%d, true)", i, got, ok, i)
		}
	}
}

func TestQueue_WaitBlocksUntilPush(t *testing.T) {
	q := reqqueue.New[string](0)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- q.Wait(ctx) }()

	select {
	case <-done:
		t.Fatal("Wait returned before any item was pushed")
	case <-time.After(20 * time.Millisecond):
	}

	if err := q.Push(ctx, "hello"); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait returned error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not unblock after Push")
	}
}

func TestQueue_CloseAndDrainFailsPending(t *testing.T) {
	q := reqqueue.New[int](0)
	ctx := context.Background()

	if err := q.Push(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := q.Push(ctx, 2); err != nil {
		t.Fatal(err)
	}

	var failed []int
	q.CloseAndDrain(func(item int) { failed = append(failed, item) })

	if len(failed) != 2 || failed[0] != 1 || failed[1] != 2 {
		t.Fatalf("CloseAndDrain failed items = %v, want [1 2]", failed)
	}

	if err := q.Push(ctx, 3); err != reqqueue.ErrClosed {
		t.Fatalf("Push after close = %v, want ErrClosed", err)
	}
}

func TestQueue_PushBlocksAtCapacity(t *testing.T) {
	q := reqqueue.New[int](1)
	ctx := context.Background()

	if err := q.Push(ctx, 1); err != nil {
		t.Fatal(err)
	}

	pushed := make(chan error, 1)
	go func() { pushed <- q.Push(ctx, 2) }()

	select {
	case <-pushed:
		t.Fatal("Push did not block at capacity")
	case <-time.After(20 * time.Millisecond):
	}

	if _, ok := q.TryPop(); !ok {
		t.Fatal("expected an item to pop")
	}

	select {
	case err := <-pushed:
		if err != nil {
			t.Fatalf("blocked Push returned error %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Push did not unblock after TryPop")
	}
}
