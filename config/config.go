// Package config provides YAML configuration loading and validation for a
// kafkatransport.Transport.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tripwire/kafkatransport/transport"
)

// Config is the top-level configuration structure for a transport.
type Config struct {
	// Endpoint is the broker address to connect to. Required.
	Endpoint EndpointConfig `yaml:"endpoint"`

	// TLS enables mutual TLS when present. Omit for a plaintext transport.
	TLS *TLSConfig `yaml:"tls,omitempty"`

	// Backoff tunes the reconnect backoff policy. All fields optional.
	Backoff BackoffConfig `yaml:"backoff,omitempty"`

	// Queues tunes the send/read queue capacities. All fields optional.
	Queues QueueConfig `yaml:"queues,omitempty"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`

	// MetricsAddr is the listen address for the /metrics HTTP server (e.g.
	// "127.0.0.1:9000"). Defaults to "127.0.0.1:9000" when omitted.
	MetricsAddr string `yaml:"metrics_addr"`
}

// EndpointConfig identifies the broker to connect to.
type EndpointConfig struct {
	// Host is the broker hostname or IP address. Required.
	Host string `yaml:"host"`

	// Port is the broker's TCP port. Required.
	Port int `yaml:"port"`
}

// TLSConfig holds mutual-TLS settings for a transport.
type TLSConfig struct {
	// ClientCertRef locates the client certificate: a filesystem path ending
	// in ".pfx", or a subject name to resolve via the configured
	// certstore.PersonalStore. Required.
	ClientCertRef string `yaml:"client_cert_ref"`

	// FriendlyName disambiguates multiple store certificates sharing a
	// subject. Ignored for .pfx references.
	FriendlyName string `yaml:"friendly_name,omitempty"`

	// Password unlocks a password-protected .pfx file. Ignored for store
	// references.
	Password string `yaml:"password,omitempty"`

	// AllowSelfSignedServerCert relaxes server certificate validation to
	// accept a pinned, otherwise-untrusted certificate.
	AllowSelfSignedServerCert bool `yaml:"allow_self_signed_server_cert,omitempty"`

	// SelfSignedTrainMode pins the first server certificate seen instead of
	// rejecting it. Requires AllowSelfSignedServerCert.
	SelfSignedTrainMode bool `yaml:"self_signed_train_mode,omitempty"`
}

// BackoffConfig tunes the reconnect backoff policy.
type BackoffConfig struct {
	// InitialMillis is the delay before the first retry. Defaults to 100ms.
	InitialMillis int `yaml:"initial_millis,omitempty"`

	// Multiplier is applied to the delay after every failed attempt.
	// Defaults to 2.0.
	Multiplier float64 `yaml:"multiplier,omitempty"`

	// MaxSeconds caps the delay between retries. Defaults to 300s.
	MaxSeconds int `yaml:"max_seconds,omitempty"`
}

// QueueConfig tunes the bounded send/read request queues.
type QueueConfig struct {
	// SendCapacity bounds the number of outstanding Write calls. Defaults
	// to 256.
	SendCapacity int `yaml:"send_capacity,omitempty"`

	// ReadCapacity bounds the number of outstanding Read calls. Defaults to
	// 256.
	ReadCapacity int `yaml:"read_capacity,omitempty"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// LoadConfig reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates all required fields. A validation error joins
// every failure found, not only the first.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = "127.0.0.1:9000"
	}
	if cfg.Backoff.InitialMillis == 0 {
		cfg.Backoff.InitialMillis = 100
	}
	if cfg.Backoff.Multiplier == 0 {
		cfg.Backoff.Multiplier = 2.0
	}
	if cfg.Backoff.MaxSeconds == 0 {
		cfg.Backoff.MaxSeconds = 300
	}
	if cfg.Queues.SendCapacity == 0 {
		cfg.Queues.SendCapacity = 256
	}
	if cfg.Queues.ReadCapacity == 0 {
		cfg.Queues.ReadCapacity = 256
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Endpoint.Host == "" {
		errs = append(errs, errors.New("endpoint.host is required"))
	}
	if cfg.Endpoint.Port <= 0 {
		errs = append(errs, errors.New("endpoint.port must be a positive integer"))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}

	if cfg.TLS != nil {
		if cfg.TLS.ClientCertRef == "" {
			errs = append(errs, errors.New("tls.client_cert_ref is required when tls is set"))
		}
		if cfg.TLS.SelfSignedTrainMode && !cfg.TLS.AllowSelfSignedServerCert {
			errs = append(errs, errors.New("tls.self_signed_train_mode requires tls.allow_self_signed_server_cert"))
		}
	}

	return errors.Join(errs...)
}

// TransportOptions converts the loaded configuration into the endpoint and
// Options values transport.New expects.
func (cfg *Config) TransportOptions() (transport.Endpoint, transport.Options) {
	endpoint := transport.NewEndpoint(cfg.Endpoint.Host, cfg.Endpoint.Port)

	optFns := []transport.Option{
		transport.WithInitialBackoff(time.Duration(cfg.Backoff.InitialMillis) * time.Millisecond),
		transport.WithBackoffMultiplier(cfg.Backoff.Multiplier),
		transport.WithMaxReconnectBackoff(time.Duration(cfg.Backoff.MaxSeconds) * time.Second),
		transport.WithQueueCapacities(cfg.Queues.SendCapacity, cfg.Queues.ReadCapacity),
	}

	if cfg.TLS != nil {
		optFns = append(optFns, transport.WithTLS(transport.TLSOptions{
			ClientCertRef:             cfg.TLS.ClientCertRef,
			FriendlyName:              cfg.TLS.FriendlyName,
			Password:                  cfg.TLS.Password,
			AllowSelfSignedServerCert: cfg.TLS.AllowSelfSignedServerCert,
			SelfSignedTrainMode:       cfg.TLS.SelfSignedTrainMode,
		}))
	}

	return endpoint, transport.NewOptions(optFns...)
}
