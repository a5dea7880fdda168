package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/you/go-flight-offers/internal/app"
	"github.com/you/go-flight-offers/internal/auth"
	"github.com/you/go-flight-offers/internal/config"
	"github.com/you/go-flight-offers/internal/httpx"
	"github.com/you/go-flight-offers/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := app.SetupLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			log.Warn("close pipeline", zap.Error(err))
		}
	}()

	// the seed list only feeds the form; search works without it
	seed, err := routes.LoadFile(cfg.SeedRoutesCSV)
	if err != nil {
		log.Warn("seed routes unavailable", zap.String("path", cfg.SeedRoutesCSV), zap.Error(err))
	}

	authn := auth.New(cfg, log)

	protected := http.NewServeMux()
	httpx.NewHandlers(pipeline.Search, seed, cfg.StreamInterval, log).Register(protected)

	root := http.NewServeMux()
	root.HandleFunc("POST /auth/login", authn.LoginHandler())
	root.Handle("/", authn.Middleware(protected))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      0, // SSE and websocket streams stay open
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		tls := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.Bool("tls", tls),
			zap.String("provider", pipeline.Source.Name()),
			zap.String("config_file", cfg.ConfigFile),
		)
		var err error
		if tls {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
