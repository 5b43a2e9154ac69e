package transport

import "context"

// WritePayload is the opaque unit of data handed to write_async. Buffer is
// passed through to the wire unchanged; the remaining fields are
// observability metadata only and are never interpreted by the transport.
type WritePayload struct {
	Buffer        []byte
	CorrelationID int32
	APIKey        uint16
	MessageCount  uint32
}

// readResult is the outcome delivered to a ReadRequest's result channel.
type readResult struct {
	data []byte
	err  error
}

// writeResult is the outcome delivered to a WriteRequest's result channel.
type writeResult struct {
	payload WritePayload
	err     error
}

// readRequest is an internal, queued request for exactly Size bytes.
// Size must be > 0; result is completed exactly once, by success, failure,
// or cancellation.
type readRequest struct {
	size   uint32
	result chan readResult
	ctx    context.Context
}

// writeRequest is an internal, queued request to write Payload in full.
type writeRequest struct {
	payload WritePayload
	result  chan writeResult
	ctx     context.Context
}

// canceled reports whether the request's context has already been
// cancelled. It is checked when a request is popped from its queue so that
// a request cancelled before it started is skipped instead of executed.
func (r *readRequest) canceled() bool {
	return r.ctx != nil && r.ctx.Err() != nil
}

func (r *writeRequest) canceled() bool {
	return r.ctx != nil && r.ctx.Err() != nil
}
