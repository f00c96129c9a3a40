// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accountd/internal/auth"
	authpg "github.com/holomush/accountd/internal/auth/postgres"
	"github.com/holomush/accountd/internal/config"
	"github.com/holomush/accountd/internal/httpapi"
	"github.com/holomush/accountd/internal/logging"
	"github.com/holomush/accountd/internal/notify"
	"github.com/holomush/accountd/internal/store"
)

const (
	serviceName      = "accountd"
	readinessTimeout = 2 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the account HTTP API",
		Long: `Run the account HTTP API, the metrics and health endpoints, and the
background sweeper that deletes expired one-time tokens.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps.withDefaults())
		},
	}
}

// runServe starts the service and blocks until a signal arrives, ctx is
// cancelled, or a server fails.
func runServe(ctx context.Context, cmd *cobra.Command, deps *Deps) error {
	cfg, err := config.Load(cmd.Flags(), deps.Getenv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	logger.Info("starting accountd",
		"http_addr", cfg.HTTPAddr,
		"metrics_addr", cfg.MetricsAddr,
		"require_active_login", cfg.RequireActiveLogin,
		"auto_migrate", cfg.AutoMigrate)

	if cfg.AutoMigrate {
		if err := deps.MigrateUp(cfg.DatabaseURL, logger); err != nil {
			return err
		}
	}

	pool, err := deps.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	sessions, err := auth.NewJWTIssuer(cfg.Session())
	if err != nil {
		return err
	}
	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := notifier.(notifierCloser); ok {
		defer func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer closeCancel()
			if closeErr := closer.Close(closeCtx); closeErr != nil {
				logger.Warn("undelivered tokens dropped at shutdown", "error", closeErr)
			}
		}()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	failure := &serverFailure{cancel: cancel}

	svcOpts := []auth.Option{auth.WithLogger(logger), auth.WithPolicy(cfg.Policy())}
	apiOpts := []httpapi.Option{httpapi.WithLogger(logger)}

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, store.Readiness(pool, readinessTimeout), logger)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.Code("SERVE_OBSERVABILITY_FAILED").
				With("addr", cfg.MetricsAddr).
				Wrap(err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		go monitorServerErrors(ctx, failure, obsErrCh, "observability", logger)

		metrics := obsServer.Metrics()
		svcOpts = append(svcOpts, auth.WithRecorder(metrics))
		apiOpts = append(apiOpts, httpapi.WithObserver(metrics))
	}

	tokens := authpg.NewTokenRepository(pool)
	svc, err := auth.NewService(auth.Deps{
		Accounts: authpg.NewAccountRepository(pool),
		Tokens:   tokens,
		Hasher:   auth.NewArgon2idHasher(),
		Sessions: sessions,
		Notifier: notifier,
		Tx:       authpg.NewTransactor(pool),
	}, svcOpts...)
	if err != nil {
		return err
	}

	var sweeper *auth.Sweeper
	if cfg.SweepInterval > 0 {
		sweeper, err = auth.NewSweeper(tokens, cfg.Policy(), cfg.SweepInterval, logger)
		if err != nil {
			return err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	apiServer := &http.Server{
		Handler:           httpapi.NewRouter(svc, apiOpts...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return oops.Code("SERVE_LISTEN_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
	}
	apiErrCh := serveHTTP(apiServer, listener)
	go monitorServerErrors(ctx, failure, apiErrCh, "api", logger)
	logger.Info("http api listening", "addr", listener.Addr().String())

	var workers sync.WaitGroup
	if sweeper != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			sweeper.Run(ctx)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("accountd started")

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http api", "error", err)
	}
	workers.Wait()

	logger.Info("shutdown complete")
	return failure.Err()
}

// serveHTTP runs srv on listener. The returned channel receives a serve
// failure and is closed when the server stops.
func serveHTTP(srv *http.Server, listener net.Listener) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.SetDefault(serviceName, version, cfg.LogFormat, level), nil
}

// notifierCloser is implemented by notifiers that deliver in the background.
type notifierCloser interface {
	Close(ctx context.Context) error
}

// newNotifier emails tokens in the background when SMTP is configured and
// otherwise only logs their issuance.
func newNotifier(cfg *config.Config, logger *slog.Logger) (auth.Notifier, error) {
	if cfg.SMTPHost == "" {
		logger.Warn("smtp-host not set, one-time tokens will be logged but not delivered")
		return notify.NewLogSink(logger), nil
	}
	sink, err := notify.NewSMTPSink(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	if err != nil {
		return nil, err
	}
	async, err := notify.NewAsyncSink(sink, logger)
	if err != nil {
		return nil, err
	}
	return async, nil
}

// serverFailure keeps the first server failure and cancels the serve
// context when one is reported.
type serverFailure struct {
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func (f *serverFailure) report(serverName string, err error) {
	f.mu.Lock()
	if f.err == nil {
		f.err = oops.Code("SERVE_SERVER_FAILED").With("server", serverName).Wrap(err)
	}
	f.mu.Unlock()
	f.cancel()
}

// Err returns the first reported failure, or nil.
func (f *serverFailure) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// monitorServerErrors reports a server failure, which triggers shutdown.
func monitorServerErrors(ctx context.Context, failure *serverFailure, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err)
			failure.report(serverName, err)
		}
	case <-ctx.Done():
	}
}
