// Package app initializes and runs the application service. It
// configures logging, the stores, authentication and routing, and
// handles graceful shutdown.
package app

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/patric-chuzhbe/tinylinks/internal/accessgate"
	"github.com/patric-chuzhbe/tinylinks/internal/config"
	"github.com/patric-chuzhbe/tinylinks/internal/ipchecker"
	"github.com/patric-chuzhbe/tinylinks/internal/keygen"
	"github.com/patric-chuzhbe/tinylinks/internal/logger"
	"github.com/patric-chuzhbe/tinylinks/internal/metrics"
	"github.com/patric-chuzhbe/tinylinks/internal/passhash"
	"github.com/patric-chuzhbe/tinylinks/internal/router"
	"github.com/patric-chuzhbe/tinylinks/internal/session"
	"github.com/patric-chuzhbe/tinylinks/internal/urlstore"
	"github.com/patric-chuzhbe/tinylinks/internal/userstore"
)

// App encapsulates the configuration, the stores and the HTTP handler
// needed to run the service.
type App struct {
	cfg         *config.Config
	httpHandler http.Handler
}

// New initializes a new App by:
// - loading configuration
// - initializing the logger
// - building the stores, session manager and access gate
// - setting up the router and middleware
func New() (*App, error) {
	app := &App{}

	var err error
	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	if err = logger.Init(app.cfg.LogLevel); err != nil {
		return nil, err
	}

	signingSecretKey, err := base64.URLEncoding.DecodeString(app.cfg.AuthCookieSigningSecretKey)
	if err != nil {
		return nil, fmt.Errorf("decoding the session signing key: %w", err)
	}

	keys := keygen.New(app.cfg.TokenLength)
	users := userstore.New(keys, passhash.New(0))
	links := urlstore.New(keys)
	sessions := session.New(signingSecretKey, app.cfg.SessionMaxAge)
	gate := accessgate.New(sessions, users, links)

	checker, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	app.httpHandler, err = router.New(
		gate,
		sessions,
		users,
		links,
		collector,
		checker,
		metrics.Handler(registry),
		app.cfg.ShortURLBase,
		app.cfg.AuthCookieName,
		app.cfg.SessionMaxAge,
	)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support. It listens
// for system signals and cleans up upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:    a.cfg.RunAddr,
		Handler: a.httpHandler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return nil

	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}
