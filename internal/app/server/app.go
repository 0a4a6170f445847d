// Package server assembles the chatflow editor, its storage and the HTTP API
// from a Config and runs them until the context is cancelled.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/adapters/httpapi"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/adapters/repository/file"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/adapters/repository/memory"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/adapters/repository/postgres"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/adapters/repository/sqlite"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/services"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/app/usecases"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/core/flow"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/config"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/logging"
	"github.com/CorruptEntity0982/BiteSpeedDemo/internal/infrastructure/metrics"
)

// MetricsNamespace prefixes every exported metric
const MetricsNamespace = "chatflow"

const shutdownTimeout = 10 * time.Second

// App is a fully wired chatflow server
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	metrics       *metrics.Collector
	repo          flow.Repository
	closeRepo     func() error
	notifications *services.MemoryNotifier
	editor        *usecases.Editor
	handler       http.Handler
}

// New opens storage, restores the configured flow if it was saved before and
// builds the HTTP handler.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	repo, closeRepo, err := OpenRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	collector := metrics.NewCollector(MetricsNamespace)
	notes := services.NewMemoryNotifier(cfg.Editor.NotificationBuffer)

	opts := []usecases.EditorOption{
		usecases.WithGraph(flow.NewGraph(cfg.Editor.FlowID, cfg.Editor.FlowName)),
		usecases.WithResolver(flow.NewResolver(flow.ResolverOptions{RejectSelfLoops: cfg.Editor.RejectSelfLoops})),
		usecases.WithRepository(repo),
		usecases.WithNotifier(services.MultiNotifier{services.NewLogNotifier(logger), notes}),
		usecases.WithLogger(logger),
		usecases.WithMetrics(collector),
		usecases.WithStrictValidation(cfg.Editor.StrictValidation),
	}
	if cfg.Editor.SeedWelcome {
		opts = append(opts, usecases.WithInitialNodes(flow.WelcomeNode()))
	}
	editor := usecases.NewEditor(opts...)

	rec, err := editor.Load(ctx, cfg.Editor.FlowID)
	switch {
	case err == nil:
		logger.Info("restored saved flow",
			zap.String("flow_id", rec.ID),
			zap.Int64("version", rec.Version))
	case errors.Is(err, flow.ErrFlowNotFound):
		logger.Info("starting a new flow",
			zap.String("flow_id", cfg.Editor.FlowID),
			zap.Int("nodes", len(editor.Snapshot().Nodes)))
	default:
		_ = closeRepo()
		return nil, fmt.Errorf("failed to restore flow %s: %w", cfg.Editor.FlowID, err)
	}

	api := httpapi.NewServer(httpapi.Options{
		Editor:         editor,
		Repository:     repo,
		Notifications:  notes,
		Metrics:        collector,
		Logger:         logger,
		RequestTimeout: cfg.RequestTimeout,
	})

	return &App{
		cfg:           cfg,
		logger:        logger,
		metrics:       collector,
		repo:          repo,
		closeRepo:     closeRepo,
		notifications: notes,
		editor:        editor,
		handler:       api.Routes(),
	}, nil
}

// OpenRepository creates the flow store selected by cfg.Storage.Driver. The
// returned func releases it.
func OpenRepository(ctx context.Context, cfg *config.Config) (flow.Repository, func() error, error) {
	nop := func() error { return nil }

	if cfg.Storage.Driver == config.DriverMemory {
		return memory.NewRepository(), nop, nil
	}

	serializer, err := cfg.Serializer()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		repo, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, serializer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return repo, repo.Close, nil
	case config.DriverPostgres:
		repo, err := postgres.Connect(ctx, cfg.Storage.DatabaseURL, serializer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return repo, func() error { repo.Close(); return nil }, nil
	case config.DriverFile:
		repo, err := file.NewRepository(cfg.Storage.FlowDir, serializer)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open flow directory: %w", err)
		}
		return repo, nop, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Serve builds a logger and an App from cfg and runs it until ctx is done
func Serve(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	app, err := New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))
		return err
	}
	return app.Run(ctx)
}

// Handler returns the HTTP API
func (a *App) Handler() http.Handler {
	return a.handler
}

// Editor returns the flow editor
func (a *App) Editor() *usecases.Editor {
	return a.editor
}

// Run serves HTTP on cfg.Addr until ctx is cancelled, then shuts down
// gracefully and releases storage.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("chatflow server listening",
			zap.String("addr", a.cfg.Addr),
			zap.String("storage", a.cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = a.Close()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if cerr := a.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

// Close releases storage
func (a *App) Close() error {
	if a.closeRepo == nil {
		return nil
	}
	closeRepo := a.closeRepo
	a.closeRepo = nil
	return closeRepo()
}
