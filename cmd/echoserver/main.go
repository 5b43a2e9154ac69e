// Command echoserver drives a kafkatransport.Transport against a plain TCP
// echo listener, for manually exercising reconnect and backoff behaviour
// without a real broker.
//
// Usage:
//
//	echoserver --config /etc/kafkatransport/echo.yaml
//	echoserver --listen 127.0.0.1:9093
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tripwire/kafkatransport/config"
	"github.com/tripwire/kafkatransport/internal/transportmetrics"
	"github.com/tripwire/kafkatransport/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "echoserver: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("echoserver", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML configuration file")
	listen := fs.String("listen", "127.0.0.1:9093", "address for the in-process echo listener when --config is omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var endpoint transport.Endpoint
	var opts transport.Options
	metricsAddr := "127.0.0.1:9000"

	if *configPath != "" {
		cfg, err := config.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
			return err
		}
		endpoint, opts = cfg.TransportOptions()
		metricsAddr = cfg.MetricsAddr
	} else {
		ln, err := net.Listen("tcp", *listen)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", *listen, err)
		}
		go serveEcho(ln, logger)
		host, port, err := net.SplitHostPort(ln.Addr().String())
		if err != nil {
			return err
		}
		var portNum int
		if _, err := fmt.Sscanf(port, "%d", &portNum); err != nil {
			return err
		}
		endpoint = transport.NewEndpoint(host, portNum)
		opts = transport.NewOptions()
	}

	metrics := transportmetrics.New()
	tr := transport.New(endpoint, opts,
		transport.WithLogger(logger),
		transport.WithMetrics(metrics),
	)
	tr.OnServerDisconnected(func() {
		logger.Warn("echoserver: server disconnected")
	})
	tr.OnReconnectionAttempt(func(attempt int) {
		logger.Info("echoserver: reconnecting", slog.Int("attempt", attempt))
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tr.Start(ctx)
	defer tr.Close()

	metricsSrv := &http.Server{Addr: metricsAddr, Handler: metrics.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("echoserver: metrics server failed", slog.Any("error", err))
		}
	}()
	defer metricsSrv.Close()

	logger.Info("echoserver: connecting", slog.String("endpoint", endpoint.String()))

	message := []byte("ping")
	for ctx.Err() == nil {
		writeCtx, writeCancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := tr.Write(writeCtx, transport.WritePayload{Buffer: message})
		writeCancel()
		if err != nil {
			logger.Warn("echoserver: write failed", slog.Any("error", err))
			time.Sleep(time.Second)
			continue
		}

		readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
		reply, err := tr.Read(readCtx, uint32(len(message)))
		readCancel()
		if err != nil {
			logger.Warn("echoserver: read failed", slog.Any("error", err))
			time.Sleep(time.Second)
			continue
		}

		logger.Info("echoserver: round trip complete", slog.String("reply", string(reply)))
		time.Sleep(time.Second)
	}

	return nil
}

// serveEcho accepts connections on ln and echoes every byte it reads back to
// the writer, for local testing against transport.Transport.
func serveEcho(ln net.Listener, logger *slog.Logger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer conn.Close()
			buf := make([]byte, 4096)
			for {
				n, err := conn.Read(buf)
				if n > 0 {
					if _, werr := conn.Write(buf[:n]); werr != nil {
						logger.Debug("echoserver: echo write failed", slog.Any("error", werr))
						return
					}
				}
				if err != nil {
					return
				}
			}
		}()
	}
}
