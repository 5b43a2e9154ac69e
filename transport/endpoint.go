package transport

import (
	"fmt"
	"net"
)

// Endpoint identifies a single Kafka broker by host and port. It is
// immutable after construction and used as an identity in log messages and
// events; the transport never discovers or routes between endpoints.
type Endpoint struct {
	Host string
	Port int
}

// NewEndpoint constructs an Endpoint from a host and port.
func NewEndpoint(host string, port int) Endpoint {
	return Endpoint{Host: host, Port: port}
}

// Address returns the "host:port" form used by net.Dial.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, fmt.Sprintf("%d", e.Port))
}

// String implements fmt.Stringer for log output.
func (e Endpoint) String() string {
	return e.Address()
}
