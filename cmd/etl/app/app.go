package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"user-etl/cmd/etl/di"
	"user-etl/internal/config"
	"user-etl/internal/domain/run"
	"user-etl/pkg/logger"
)

// publishTimeout bounds the report write.
const publishTimeout = 5 * time.Second

// App represents the application
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Container *di.Container
}

// New creates a new application instance
func New(ctx context.Context) (*App, error) {
	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	l, err := initLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create DI container
	container, err := di.NewContainer(ctx, cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    l,
		Container: container,
	}, nil
}

// Run executes one pipeline run, publishes its report and releases every
// resource. The returned error covers shutdown only; stage failures are in
// the report.
func (a *App) Run(ctx context.Context) (report *run.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.Logger.Error("panic recovered in application",
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			report = nil
			err = errors.Join(fmt.Errorf("application panic: %v", r), a.shutdown())
		}
	}()

	a.Logger.Info("starting application",
		zap.String("service", a.Config.Logger.ServiceName),
		zap.String("version", a.Config.Logger.ServiceVersion),
		zap.String("environment", a.Config.App.Environment),
	)

	report = a.Container.Pipeline.Run(ctx)
	a.logReport(report)
	a.publishReport(ctx, report)

	return report, a.shutdown()
}

// ExitCode maps a report to the process exit status. Failed stages only
// change the status when strict exit is enabled; a missing report always
// does.
func (a *App) ExitCode(report *run.Report) int {
	if report == nil {
		return 1
	}
	if a.Config.App.StrictExit && !report.Succeeded() {
		return 1
	}
	return 0
}

// logReport writes one summary line per stage.
func (a *App) logReport(report *run.Report) {
	log := a.Logger.With(zap.String("run_id", report.RunID))

	for _, s := range report.Stages {
		fields := []zap.Field{
			zap.String("stage", string(s.Stage)),
			zap.String("status", string(s.Status)),
			zap.Int("rows", s.Rows),
			zap.Duration("duration", s.Duration),
		}
		if s.Dropped > 0 {
			fields = append(fields, zap.Int("dropped", s.Dropped))
		}

		switch s.Status {
		case run.StatusFailed:
			fields = append(fields, zap.String("kind", string(s.Kind)), zap.String("error", s.Message))
			log.Error("stage result", fields...)
		case run.StatusSkipped:
			log.Warn("stage result", fields...)
		default:
			log.Info("stage result", fields...)
		}
	}
}

// publishReport saves the report when a report store is configured. Failures
// are logged and never change the outcome of the run.
func (a *App) publishReport(ctx context.Context, report *run.Report) {
	if a.Container.Reports == nil {
		return
	}

	// The run context may already be canceled by a signal.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := a.Container.Reports.Save(saveCtx, report); err != nil {
		a.Logger.Warn("failed to publish run report", zap.String("run_id", report.RunID), zap.Error(err))
		return
	}

	a.Logger.Debug("run report published", zap.String("run_id", report.RunID))
}

// shutdown releases container resources and flushes the logger
func (a *App) shutdown() error {
	var errs []error

	// Close container resources
	if a.Container != nil {
		if err := a.Container.Close(); err != nil {
			a.Logger.Error("failed to close container", zap.Error(err))
			errs = append(errs, fmt.Errorf("container close: %w", err))
		}
	}

	a.Logger.Info("application shutdown complete")

	// Sync logger
	if err := a.Logger.Sync(); err != nil {
		// Ignore sync errors for stdout/stderr
		if err.Error() != "sync /dev/stdout: invalid argument" &&
			err.Error() != "sync /dev/stderr: invalid argument" {
			errs = append(errs, fmt.Errorf("logger sync: %w", err))
		}
	}

	return errors.Join(errs...)
}

// loadConfig loads application configuration
func loadConfig() (*config.Config, error) {
	return config.LoadConfig(getConfigPath())
}

// initLogger initializes the application logger
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	loggerCfg := logger.Config{
		Level:            cfg.Logger.Level,
		Format:           cfg.Logger.Format,
		OutputPath:       cfg.Logger.OutputPath,
		SlowQuerySeconds: cfg.Logger.SlowQuerySeconds,
		EnableSampling:   cfg.Logger.EnableSampling,
		ServiceName:      cfg.Logger.ServiceName,
		ServiceVersion:   cfg.Logger.ServiceVersion,
		Environment:      cfg.App.Environment,
	}

	return logger.NewWithConfig(loggerCfg)
}

// getConfigPath returns the directory searched for app.env
func getConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "."
}
