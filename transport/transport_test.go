package transport_test

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tripwire/kafkatransport/transport"
)

// echoListener accepts connections, serving each in its own goroutine, and
// echoes every byte it reads back to the writer until the peer closes or
// the listener is closed.
type echoListener struct {
	ln net.Listener
}

func newEchoListener(t *testing.T) *echoListener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	el := &echoListener{ln: ln}
	go el.serve()
	return el
}

func (el *echoListener) serve() {
	for {
		conn, err := el.ln.Accept()
		if err != nil {
			return
		}
		go echo(conn)
	}
}

func echo(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (el *echoListener) endpoint(t *testing.T) transport.Endpoint {
	t.Helper()
	host, port, err := net.SplitHostPort(el.ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	var p int
	if _, err := sscanfInt(port, &p); err != nil {
		t.Fatalf("parse port: %v", err)
	}
	return transport.NewEndpoint(host, p)
}

func (el *echoListener) Close() { el.ln.Close() }

func sscanfInt(s string, out *int) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
	}
	*out = n
	return 1, nil
}

func newTestTransport(t *testing.T, endpoint transport.Endpoint) *transport.Transport {
	t.Helper()
	tr := transport.New(endpoint, transport.NewOptions(
		transport.WithInitialBackoff(5*time.Millisecond),
		transport.WithMaxReconnectBackoff(50*time.Millisecond),
	))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		tr.Close()
		cancel()
	})
	tr.Start(ctx)
	return tr
}

func TestTransport_EchoRoundTrip(t *testing.T) {
	el := newEchoListener(t)
	defer el.Close()

	tr := newTestTransport(t, el.endpoint(t))
	ctx := context.Background()

	msg := []byte("hello-kafka")
	if _, err := tr.Write(ctx, transport.WritePayload{Buffer: msg}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := tr.Read(ctx, uint32(len(msg)))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(msg) {
		t.Fatalf("Read = %q, want %q", got, msg)
	}
}

func TestTransport_SplitRead(t *testing.T) {
	// A listener that writes its reply in two separate chunks, forcing the
	// transport to issue more than one socket read to satisfy one Read call.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 64)
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			return
		}
		conn.Write([]byte("AB"))
		time.Sleep(20 * time.Millisecond)
		conn.Write([]byte("CD"))
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	var p int
	sscanfInt(port, &p)

	tr := newTestTransport(t, transport.NewEndpoint(host, p))
	ctx := context.Background()

	if _, err := tr.Write(ctx, transport.WritePayload{Buffer: []byte("go")}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := tr.Read(ctx, 4)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "ABCD" {
		t.Fatalf("Read = %q, want %q", got, "ABCD")
	}
}

func TestTransport_ReconnectsAfterDisconnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			if accepted.Load() == 1 {
				// First connection: close immediately to force a reconnect.
				conn.Close()
				continue
			}
			go echo(conn)
		}
	}()

	host, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	var p int
	sscanfInt(port, &p)

	tr := newTestTransport(t, transport.NewEndpoint(host, p))

	var disconnects int32
	var mu sync.Mutex
	tr.OnServerDisconnected(func() {
		mu.Lock()
		disconnects++
		mu.Unlock()
	})

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	var lastErr, readErr error
	for time.Now().Before(deadline) {
		// A write to the connection the server already closed can still be
		// accepted by the socket; the loss then surfaces on the read that
		// follows, which ends the session and forces the reconnect.
		_, lastErr = tr.Write(ctx, transport.WritePayload{Buffer: []byte("x")})
		if lastErr == nil {
			if _, readErr = tr.Read(ctx, 1); readErr == nil {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	if lastErr != nil {
		t.Fatalf("Write never succeeded after reconnect: %v", lastErr)
	}

	if readErr != nil {
		t.Fatalf("Read after reconnect: %v", readErr)
	}
}

func TestTransport_RequestsAfterCloseFailWithErrDisposed(t *testing.T) {
	el := newEchoListener(t)
	defer el.Close()

	tr := transport.New(el.endpoint(t), transport.NewOptions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)

	tr.Close()

	if _, err := tr.Write(context.Background(), transport.WritePayload{Buffer: []byte("x")}); err != transport.ErrDisposed {
		t.Fatalf("Write after Close = %v, want ErrDisposed", err)
	}
	if _, err := tr.Read(context.Background(), 1); err != transport.ErrDisposed {
		t.Fatalf("Read after Close = %v, want ErrDisposed", err)
	}

	// Close is idempotent.
	tr.Close()
}

func TestTransport_ReadRejectsZeroSize(t *testing.T) {
	el := newEchoListener(t)
	defer el.Close()

	tr := newTestTransport(t, el.endpoint(t))
	if _, err := tr.Read(context.Background(), 0); err == nil {
		t.Fatal("Read(0) succeeded, want an error")
	}
}

func TestTransport_WriteContextCancelledBeforeCompletion(t *testing.T) {
	el := newEchoListener(t)
	defer el.Close()

	tr := newTestTransport(t, el.endpoint(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Write(ctx, transport.WritePayload{Buffer: []byte("x")})
	if err == nil {
		t.Fatal("Write with cancelled context succeeded, want an error")
	}
}
