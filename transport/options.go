package transport

import "time"

const (
	// defaultMaxReconnectBackoff is the upper bound on reconnect delay.
	defaultMaxReconnectBackoff = 5 * time.Minute

	// defaultInitialBackoff is the wait after the first connection failure.
	defaultInitialBackoff = 100 * time.Millisecond

	// defaultBackoffMultiplier doubles the delay on each successive failure.
	defaultBackoffMultiplier = 2.0

	// defaultSendQueueCapacity and defaultReadQueueCapacity bound the two
	// request FIFOs. A caller enqueuing past capacity blocks on Push (see
	// reqqueue.Queue), which provides natural backpressure instead of
	// unbounded memory growth.
	defaultSendQueueCapacity = 256
	defaultReadQueueCapacity = 256
)

// TLSOptions configures mutual-TLS for a Transport. Leaving Options.TLS nil
// means the transport speaks plain TCP with no TLS wrapping at all; any
// non-nil TLSOptions, even a zero value, enables TLS.
type TLSOptions struct {
	// ClientCertRef identifies the client certificate to present. A value
	// ending in ".pfx" (case-sensitive) is treated as a file path; any other
	// value is treated as a subject name to look up in the local machine's
	// personal certificate store.
	ClientCertRef string

	// FriendlyName disambiguates between multiple store certificates that
	// share the same subject name. Ignored when ClientCertRef is a file
	// path.
	FriendlyName string

	// Password decrypts the PFX file identified by ClientCertRef. Ignored
	// for store-based resolution.
	Password string

	// AllowSelfSignedServerCert permits a server certificate that fails
	// standard chain validation, provided it is separately pinned (see
	// SelfSignedTrainMode) or already present in the local Trusted People
	// store.
	AllowSelfSignedServerCert bool

	// SelfSignedTrainMode auto-pins the first self-signed server
	// certificate seen for an endpoint into the Trusted People store. It is
	// a one-shot trust-on-first-use bootstrap; it has no effect unless
	// AllowSelfSignedServerCert is also true.
	SelfSignedTrainMode bool
}

// Options is an immutable record of transport behaviour, built once via
// NewOptions and never mutated afterwards.
type Options struct {
	MaxReconnectBackoff time.Duration
	InitialBackoff      time.Duration
	BackoffMultiplier   float64

	// TLS is nil for a plain TCP connection, or set to enable mutual TLS.
	TLS *TLSOptions

	// SendQueueCapacity and ReadQueueCapacity bound the two request FIFOs.
	SendQueueCapacity int
	ReadQueueCapacity int
}

// Option mutates an Options value during construction. See NewOptions.
type Option func(*Options)

// NewOptions builds an Options value with the package defaults, then applies
// opts in order.
func NewOptions(opts ...Option) Options {
	o := Options{
		MaxReconnectBackoff: defaultMaxReconnectBackoff,
		InitialBackoff:      defaultInitialBackoff,
		BackoffMultiplier:   defaultBackoffMultiplier,
		SendQueueCapacity:   defaultSendQueueCapacity,
		ReadQueueCapacity:   defaultReadQueueCapacity,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxReconnectBackoff overrides the backoff ceiling.
func WithMaxReconnectBackoff(d time.Duration) Option {
	return func(o *Options) { o.MaxReconnectBackoff = d }
}

// WithInitialBackoff overrides the first-retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(o *Options) { o.InitialBackoff = d }
}

// WithBackoffMultiplier overrides the exponential growth factor.
func WithBackoffMultiplier(m float64) Option {
	return func(o *Options) { o.BackoffMultiplier = m }
}

// WithTLS enables mutual TLS using the given options.
func WithTLS(tls TLSOptions) Option {
	return func(o *Options) { o.TLS = &tls }
}

// WithQueueCapacities overrides the send/read queue bounds.
func WithQueueCapacities(send, read int) Option {
	return func(o *Options) {
		o.SendQueueCapacity = send
		o.ReadQueueCapacity = read
	}
}
