// Package app assembles the pieces both front-ends share: configuration,
// logging, the credential store and the two classifiers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Brownie44l1/osteo-care/internal/auth"
	"github.com/Brownie44l1/osteo-care/internal/config"
	"github.com/Brownie44l1/osteo-care/internal/diagnosis"
	"github.com/Brownie44l1/osteo-care/internal/log"
	"github.com/Brownie44l1/osteo-care/internal/metrics"
	"github.com/Brownie44l1/osteo-care/internal/model"
	"github.com/Brownie44l1/osteo-care/internal/store"
)

// ShutdownTimeout bounds graceful HTTP shutdown.
const ShutdownTimeout = 10 * time.Second

// LoadConfig reads configuration and builds the process logger. verbose
// forces debug level.
func LoadConfig(path string, verbose bool, w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, log.New(w, cfg.LogLevel, cfg.LogFormat), nil
}

// App holds long-lived process resources.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Recorder
	Users   store.UserRepository
	Auth    *auth.Service
	Models  *model.Set
}

// New opens the credential store, starts the ONNX runtime and loads both
// classifiers, fetching missing artifacts first. Any failure is fatal.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Metrics: metrics.New()}

	users, err := store.Open(ctx, cfg.DatabaseURL, cfg.SQLiteDir())
	if err != nil {
		return nil, fmt.Errorf("open user store: %w", err)
	}
	a.Users = users
	a.Auth = auth.NewService(users)

	if err := model.InitRuntime(cfg.OnnxRuntimeLib); err != nil {
		_ = a.Close()
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	models, err := model.LoadSet(ctx, client,
		modelSpec(cfg.ImageModel, model.ImageDefaults()),
		modelSpec(cfg.QuestionnaireModel, model.QuestionnaireDefaults()),
		logger,
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("load models: %w", err)
	}
	a.Models = models

	logger.Info("models loaded",
		"image_model", cfg.ImageModel.Path,
		"image_classes", models.Image.Metadata.Classes,
		"questionnaire_model", cfg.QuestionnaireModel.Path,
	)
	return a, nil
}

func modelSpec(m config.Model, defaults model.Metadata) model.Spec {
	return model.Spec{
		Path:         m.Path,
		MetadataPath: m.MetadataPath,
		Source:       model.Source{ArtifactID: m.ArtifactID, URL: m.ArtifactURL},
		Defaults:     defaults,
	}
}

// Diagnosis returns a diagnosis service over the loaded classifiers using
// the given severity wording.
func (a *App) Diagnosis(severity diagnosis.Labels) *diagnosis.Service {
	return diagnosis.NewService(a.Models.Image, a.Models.Questionnaire,
		diagnosis.WithSeverityLabels(severity),
		diagnosis.WithLogger(a.Logger),
		diagnosis.WithMetrics(a.Metrics),
	)
}

// Close releases models, the runtime and the store, in that order.
func (a *App) Close() error {
	var errs []error
	if a.Models != nil {
		a.Models.Close()
	}
	if err := model.ShutdownRuntime(); err != nil {
		errs = append(errs, err)
	}
	if a.Users != nil {
		if err := a.Users.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Serve runs srv until ctx is done, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}
