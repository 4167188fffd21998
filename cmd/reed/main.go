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

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"

	"github.com/Ramsey-B/reed/config"
	reqctx "github.com/Ramsey-B/reed/pkg/context"
	"github.com/Ramsey-B/reed/pkg/health"
	"github.com/Ramsey-B/reed/pkg/importer"
	"github.com/Ramsey-B/reed/pkg/jobs"
	"github.com/Ramsey-B/reed/pkg/middleware"
	"github.com/Ramsey-B/reed/pkg/redis"
	"github.com/Ramsey-B/reed/pkg/resolver"
	"github.com/Ramsey-B/reed/pkg/routes/collections"
	"github.com/Ramsey-B/reed/pkg/routes/duplicates"
	"github.com/Ramsey-B/reed/pkg/routes/imports"
	"github.com/Ramsey-B/reed/pkg/startup"
	"github.com/Ramsey-B/reed/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("Service stopped with error")
		os.Exit(1)
	}
}

// newLogger backs ectologger with zap and stamps request and trace ids on every line
func newLogger(cfg *config.Config) (ectologger.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.PrettyLogs {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = level

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return zapadapter.NewZapEctoLogger(zapLogger, func(msg ectologger.EctoLogMessage) ectologger.EctoLogMessage {
		if msg.Ctx == nil {
			return msg
		}
		fields := reqctx.Fields(msg.Ctx)
		if traceID := tracing.GetTraceID(msg.Ctx); traceID != "" {
			fields["trace_id"] = traceID
		}
		for key, value := range msg.Fields {
			fields[key] = value
		}
		msg.Fields = fields
		return msg
	}), nil
}

func run(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName: cfg.AppName,
		Enabled:     cfg.OTLPEndpoint != "",
		Endpoint:    cfg.OTLPEndpoint,
		Protocol:    cfg.OTLPProtocol,
		Insecure:    cfg.OTLPInsecure,
		SampleRatio: cfg.OTLPSampleRatio,
	}, logger)
	if err != nil {
		return err
	}

	checker := health.NewChecker(cfg.Version)
	deps := &dependencies{cfg: cfg, logger: logger, checker: checker}
	boot := startup.NewStartup(logger, cfg.StartupMaxAttempts)
	deps.register(boot)

	if err := boot.Start(ctx); err != nil {
		return err
	}

	cat, err := deps.openCatalog()
	if err != nil {
		return err
	}

	storeOpts := []jobs.Option{}
	runnerOpts := []importer.Option{}
	if deps.redis != nil {
		storeOpts = append(storeOpts, jobs.WithMirror(redis.NewJobMirror(deps.redis)))
		locker := redis.NewLocker(deps.redis, "")
		runnerOpts = append(runnerOpts, importer.WithLocker(func(ctx context.Context, key string, ttl time.Duration) (importer.Lock, error) {
			lock, err := locker.Acquire(ctx, key, ttl)
			if errors.Is(err, redis.ErrLockNotAcquired) {
				return nil, fmt.Errorf("%w: %w", importer.ErrLocked, err)
			}
			if err != nil {
				return nil, err
			}
			return lock, nil
		}, cfg.ImportLockTTL), importer.WithLockWait(cfg.ImportLockWait, cfg.ImportLockRetryInterval))
	}
	if deps.producer != nil {
		runnerOpts = append(runnerOpts, importer.WithEvents(deps.producer))
	}

	jobStore := jobs.NewStore(cfg.JobRetention, logger, storeOpts...)
	defer jobStore.Close()

	rowResolver := resolver.NewResolver(cat.stores, cfg.MatchingConfig(), logger)
	runner := importer.NewRunner(rowResolver, cat.collections, cat.tx, jobStore, logger, runnerOpts...)

	if err := registerDependencies(logger, cat, jobStore, runner); err != nil {
		return err
	}

	e, err := newServer(ctx, cfg, logger, checker)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	checker.SetReady(true)

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			logger.WithError(err).Error("HTTP server failed")
		}
	}
	checker.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server")
	}

	// imports run detached from requests, so let them finish before closing storage
	waitForImports(shutdownCtx, runner, logger)

	if err := boot.Stop(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to stop dependencies")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}
	return nil
}

func waitForImports(ctx context.Context, runner *importer.Runner, logger ectologger.Logger) {
	done := make(chan struct{})
	go func() {
		runner.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("Import jobs still running at shutdown")
	}
}

func registerDependencies(logger ectologger.Logger, cat *catalog, jobStore *jobs.Store, runner *importer.Runner) error {
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return err
	}

	return errors.Join(
		ectoinject.RegisterInstance[ectologger.Logger](container, logger),
		ectoinject.RegisterInstance[*jobs.Store](container, jobStore),
		ectoinject.RegisterInstance[*importer.Runner](container, runner),
		ectoinject.RegisterInstance[collections.Store](container, cat.collections),
		ectoinject.RegisterInstance[resolver.CreatorStore](container, cat.stores.Composers, duplicates.ComposerStoreName),
		ectoinject.RegisterInstance[resolver.CreatorStore](container, cat.stores.Authors, duplicates.AuthorStoreName),
	)
}

func newServer(ctx context.Context, cfg *config.Config, logger ectologger.Logger, checker *health.Checker) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	if cfg.AuthEnabled {
		verifier, err := middleware.NewOIDCVerifier(ctx, cfg.AuthIssuerURL, cfg.AuthClientID)
		if err != nil {
			logger.WithError(err).Errorf("Failed to discover OIDC issuer %s", cfg.AuthIssuerURL)
			return nil, err
		}
		api.Use(middleware.Authentication(logger, verifier))
	}

	collections.Register(api)
	imports.Register(api)
	duplicates.Register(api)

	return e, nil
}
