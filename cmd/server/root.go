package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/osteo-care/internal/app"
	"github.com/Brownie44l1/osteo-care/internal/diagnosis"
	"github.com/Brownie44l1/osteo-care/internal/handlers"
	"github.com/Brownie44l1/osteo-care/internal/session"
	"github.com/Brownie44l1/osteo-care/internal/version"
)

const program = "osteo-server"

// sweepInterval is how often expired sessions are dropped.
const sweepInterval = 10 * time.Minute

type options struct {
	configPath string
	port       string
	verbose    bool
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   program,
		Short: "Knee osteoarthritis assessment web server",
		Long: `osteo-server serves the Osteo Care web front-end: knee X-ray severity
grading, the risk questionnaire, and account sign up / log in.

Both ONNX classifiers are loaded at startup and downloaded first when
missing and an artifact source is configured.`,
		Version:       version.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file (default ./osteo.yaml if present)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "listen port (overrides PORT)")

	cmd.AddCommand(version.NewCmd(program))
	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, logger, err := app.LoadConfig(opts.configPath, opts.verbose, os.Stderr)
	if err != nil {
		return err
	}
	if opts.port != "" {
		cfg.Port = opts.port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	sessions := session.NewStore(cfg.SessionTTL, cfg.SecureCookies)
	go sessions.Run(ctx, sweepInterval)

	h, err := handlers.NewHandler(a.Diagnosis(diagnosis.WebSeverityLabels), a.Auth, sessions, handlers.Options{
		UploadDir:              cfg.UploadDir,
		MaxUploadBytes:         cfg.MaxUploadBytes,
		MaxConcurrentInference: cfg.MaxConcurrentInference,
		CORSOrigin:             cfg.CORSOrigin,
		Logger:                 logger,
		Metrics:                a.Metrics,
	})
	if err != nil {
		return fmt.Errorf("build handlers: %w", err)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("starting", "program", program, "version", version.Version(), "port", cfg.Port)
	return app.Serve(ctx, srv, logger)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
