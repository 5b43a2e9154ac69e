// Package transportmetrics holds operational counters and gauges for a
// Transport. All fields are updated atomically so they can be read
// concurrently from an HTTP handler without holding any additional lock.
//
// # Prometheus text format
//
// Handler returns an http.Handler that serves the registered metrics in the
// standard Prometheus text exposition format on every GET request:
//
//	m := transportmetrics.New()
//	http.Handle("/metrics", m.Handler())
//
// # Metric catalogue
//
//	kafkatransport_connect_attempts_total    – counter: connect attempts made
//	kafkatransport_connect_errors_total      – counter: connect attempts that failed
//	kafkatransport_reconnects_total          – counter: reconnection cycles started
//	kafkatransport_writes_total              – counter: WriteRequests completed successfully
//	kafkatransport_write_errors_total        – counter: WriteRequests that failed
//	kafkatransport_reads_total               – counter: ReadRequests completed successfully
//	kafkatransport_read_errors_total         – counter: ReadRequests that failed
//	kafkatransport_bytes_received_total      – counter: bytes read from the socket
//	kafkatransport_connected                 – gauge:   1 when a session is active, 0 otherwise
package transportmetrics

import (
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// Metrics holds all counters and gauges for a Transport. The zero value is
// ready to use.
type Metrics struct {
	ConnectAttempts atomic.Int64
	ConnectErrors   atomic.Int64
	Reconnects      atomic.Int64
	Writes          atomic.Int64
	WriteErrors     atomic.Int64
	Reads           atomic.Int64
	ReadErrors      atomic.Int64
	BytesReceived   atomic.Int64

	// Connected is 0 or 1.
	Connected atomic.Int64
}

// New allocates a Metrics value with all counters at zero.
func New() *Metrics {
	return &Metrics{}
}

type metricLine struct {
	help  string
	kind  string
	name  string
	value int64
}

func (m *Metrics) snapshot() []metricLine {
	return []metricLine{
		{"Total number of connection attempts.", "counter", "kafkatransport_connect_attempts_total", m.ConnectAttempts.Load()},
		{"Total number of connection attempts that failed.", "counter", "kafkatransport_connect_errors_total", m.ConnectErrors.Load()},
		{"Total number of reconnection cycles started after a session ended.", "counter", "kafkatransport_reconnects_total", m.Reconnects.Load()},
		{"Total number of write requests completed successfully.", "counter", "kafkatransport_writes_total", m.Writes.Load()},
		{"Total number of write requests that failed.", "counter", "kafkatransport_write_errors_total", m.WriteErrors.Load()},
		{"Total number of read requests completed successfully.", "counter", "kafkatransport_reads_total", m.Reads.Load()},
		{"Total number of read requests that failed.", "counter", "kafkatransport_read_errors_total", m.ReadErrors.Load()},
		{"Total number of bytes read from the socket.", "counter", "kafkatransport_bytes_received_total", m.BytesReceived.Load()},
		{"1 when a session is currently active, 0 otherwise.", "gauge", "kafkatransport_connected", m.Connected.Load()},
	}
}

// Handler returns an http.Handler that writes all metrics in the Prometheus
// text exposition format on every GET request.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		writeMetrics(w, m.snapshot())
	})
}

func writeMetrics(w io.Writer, lines []metricLine) {
	for _, l := range lines {
		fmt.Fprintf(w, "# HELP %s %s\n", l.name, l.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", l.name, l.kind)
		fmt.Fprintf(w, "%s %d\n", l.name, l.value)
	}
}
