package transport

import "sync"

// events holds the subscriber lists for the five observability hooks. All
// dispatch happens synchronously from the transport's loop goroutines (the
// outer reconnect loop and each session's read and write goroutines, so
// read and write events may arrive concurrently): subscribers must not
// block them.
type events struct {
	mu sync.Mutex

	onServerDisconnected   []func()
	onReconnectionAttempt  []func(attempt int)
	onReadFromSocketAttempt []func(remaining uint32)
	onBytesReceived        []func(n int)
	onWriteToSocketAttempt []func(payload WritePayload)
}

// OnServerDisconnected registers a callback invoked each time the stream is
// observed to have ended and a reconnect is about to begin.
func (e *events) OnServerDisconnected(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onServerDisconnected = append(e.onServerDisconnected, fn)
}

// OnReconnectionAttempt registers a callback invoked before each connect
// attempt, with the 1-based attempt number within the current session.
func (e *events) OnReconnectionAttempt(fn func(attempt int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReconnectionAttempt = append(e.onReconnectionAttempt, fn)
}

// OnReadFromSocketAttempt registers a callback invoked before each socket
// read, with the number of bytes still needed to satisfy the request.
func (e *events) OnReadFromSocketAttempt(fn func(remaining uint32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onReadFromSocketAttempt = append(e.onReadFromSocketAttempt, fn)
}

// OnBytesReceived registers a callback invoked after each successful socket
// read, with the number of bytes received in that call.
func (e *events) OnBytesReceived(fn func(n int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onBytesReceived = append(e.onBytesReceived, fn)
}

// OnWriteToSocketAttempt registers a callback invoked before each socket
// write, with the payload about to be written.
func (e *events) OnWriteToSocketAttempt(fn func(payload WritePayload)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onWriteToSocketAttempt = append(e.onWriteToSocketAttempt, fn)
}

func (e *events) emitServerDisconnected() {
	e.mu.Lock()
	subs := append([]func(){}, e.onServerDisconnected...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
}

func (e *events) emitReconnectionAttempt(attempt int) {
	e.mu.Lock()
	subs := append([]func(int){}, e.onReconnectionAttempt...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(attempt)
	}
}

func (e *events) emitReadFromSocketAttempt(remaining uint32) {
	e.mu.Lock()
	subs := append([]func(uint32){}, e.onReadFromSocketAttempt...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(remaining)
	}
}

func (e *events) emitBytesReceived(n int) {
	e.mu.Lock()
	subs := append([]func(int){}, e.onBytesReceived...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(n)
	}
}

func (e *events) emitWriteToSocketAttempt(payload WritePayload) {
	e.mu.Lock()
	subs := append([]func(WritePayload){}, e.onWriteToSocketAttempt...)
	e.mu.Unlock()
	for _, fn := range subs {
		fn(payload)
	}
}
