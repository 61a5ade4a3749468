// Command rppgd serves heart-rate estimation sessions over WebSocket, HTTP
// and, optionally, NATS.
//
// Usage:
//
//	rppgd [flags]
//
// Examples:
//
//	rppgd -listen :8080
//	rppgd -config rppgd.json -log-format json
//	rppgd -nats nats://127.0.0.1:4222 -nats-prefix lab
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cwbudde/algo-rppg/internal/config"
	"github.com/cwbudde/algo-rppg/internal/metrics"
	"github.com/cwbudde/algo-rppg/internal/natsbridge"
	"github.com/cwbudde/algo-rppg/internal/server"
	"github.com/cwbudde/algo-rppg/internal/session"
	"github.com/cwbudde/algo-rppg/rppg/processor"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfgPath := flag.String("config", "", "path to a JSON configuration file")
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	logFormat := flag.String("log-format", "", "text or json (overrides config)")
	natsURL := flag.String("nats", "", "NATS server URL; empty disables the bridge (overrides config)")
	natsPrefix := flag.String("nats-prefix", "", "NATS subject prefix (overrides config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rppgd [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Serves remote-photoplethysmography heart-rate sessions.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Empty()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	override(&cfg.ListenAddr, *listen)
	override(&cfg.LogLevel, *logLevel)
	override(&cfg.LogFormat, *logFormat)
	override(&cfg.NATSURL, *natsURL)
	override(&cfg.NATSPrefix, *natsPrefix)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("rppgd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func override(dst **string, v string) {
	if v != "" {
		*dst = &v
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	m := metrics.New()
	procOpts := append([]processor.Option{processor.WithObserver(m)}, cfg.ProcessorOptions()...)
	mgr := session.NewManager(
		session.WithLogger(log),
		session.WithProcessorOptions(procOpts...),
	)
	defer mgr.CloseAll()

	if url := cfg.GetNATSURL(); url != "" {
		nc, err := natsbridge.Connect(url, "rppgd", log)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		bridge := natsbridge.New(nc, mgr,
			natsbridge.WithPrefix(cfg.GetNATSPrefix()),
			natsbridge.WithLogger(log))
		if err := bridge.Start(); err != nil {
			nc.Close()
			return err
		}
		defer func() {
			bridge.Stop()
			if err := nc.Drain(); err != nil {
				log.Warn("nats drain failed", slog.Any("error", err))
			}
		}()
	}

	var wg sync.WaitGroup
	if idle := cfg.GetIdleTimeout(); idle > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweepIdle(ctx, mgr, m, idle, log)
		}()
	}

	srv := &http.Server{
		Addr:              cfg.GetListenAddr(),
		Handler:           server.New(mgr, m, server.WithLogger(log)).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("rppgd listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", slog.Any("error", err))
	}
	wg.Wait()
	return nil
}

// sweepIdle closes sessions that stopped sending samples.
func sweepIdle(ctx context.Context, mgr *session.Manager, m *metrics.Metrics, idle time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if closed := mgr.CloseIdle(idle); len(closed) > 0 {
				log.Info("idle sessions closed", slog.Int("count", len(closed)))
				m.SetSessions(mgr.Len())
			}
		}
	}
}
