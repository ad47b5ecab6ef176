// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command ollama-agent serves an A2A agent that answers text tasks with a
// language model, by default a local Ollama server.
//
// Usage:
//
//	ollama-agent [--host localhost] [--port 10002] [--config agent.yaml]
//	             [--backend ollama|openai|anthropic] [--model llama2]
//	             [--log-level info]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/go-a2a/a2a-ollama/config"
)

func init() {
	// Enable the use of the random pool for UUID generation.
	uuid.EnableRandPool()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Getenv, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// flags holds the command line. Only flags the user set override the config file.
type flags struct {
	set *pflag.FlagSet

	host       string
	port       int
	configPath string
	backend    string
	model      string
	logLevel   string
}

func parseFlags(args []string, output io.Writer) (*flags, error) {
	f := &flags{
		set: pflag.NewFlagSet("ollama-agent", pflag.ContinueOnError),
	}
	f.set.SetOutput(output)
	f.set.StringVar(&f.host, "host", "localhost", "host to listen on")
	f.set.IntVar(&f.port, "port", 10002, "port to listen on")
	f.set.StringVar(&f.configPath, "config", "", "path to a YAML config file")
	f.set.StringVar(&f.backend, "backend", config.BackendOllama, "model backend: ollama, openai or anthropic")
	f.set.StringVar(&f.model, "model", "llama2", "model name passed to the backend")
	f.set.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	if err := f.set.Parse(args); err != nil {
		return nil, err
	}
	if rest := f.set.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return f, nil
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then explicitly set flags, then the environment.
func loadConfig(f *flags, getenv func(string) string) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(f.configPath); err != nil {
			return nil, err
		}
	}

	if f.set.Changed("host") {
		cfg.Server.Host = f.host
	}
	if f.set.Changed("port") {
		cfg.Server.Port = f.port
	}
	if f.set.Changed("backend") {
		cfg.Backend.Kind = f.backend
	}
	if f.set.Changed("model") {
		cfg.Backend.Model = f.model
	}
	if f.set.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}

	cfg.ApplyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(c config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch c.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer) error {
	f, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(f, getenv)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}

	gen, err := newGenerator(cfg.Backend)
	if err != nil {
		return err
	}
	ag, err := newAgent(cfg, gen, logger)
	if err != nil {
		return err
	}

	l, err := net.Listen("tcp", cfg.Server.Addr())
	if err != nil {
		return err
	}
	return serve(ctx, l, cfg, ag, logger)
}

// serve runs the HTTP server on l until ctx is done, then drains in-flight
// requests and background tasks within the shutdown timeout.
func serve(ctx context.Context, l net.Listener, cfg *config.Config, ag *agent, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           ag.handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go ag.sweepLoop(sweepCtx, cfg.Task.SweepAge)

	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "agent listening",
			"addr", l.Addr().String(),
			"backend", cfg.Backend.Kind,
			"model", cfg.Backend.Model,
		)
		errCh <- srv.Serve(l)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := ag.close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
