package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/osteo-care/internal/app"
	"github.com/Brownie44l1/osteo-care/internal/dashboard"
	"github.com/Brownie44l1/osteo-care/internal/diagnosis"
	"github.com/Brownie44l1/osteo-care/internal/version"
)

const program = "osteo-dashboard"

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
		Short: "Knee osteoarthritis assessment Telegram bot",
		Long: `osteo-dashboard runs the Osteo Care Telegram bot: send a knee X-ray for a
severity grade, or answer the questionnaire for a risk level.

A small HTTP listener on --port serves /health and /metrics.`,
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
	cmd.Flags().StringVarP(&opts.port, "port", "p", "", "health and metrics port (overrides PORT)")

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
	if err := cfg.ValidateDashboard(); err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	logger.Info("authorized on telegram", "account", api.Self.UserName)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}()

	bot := dashboard.NewBot(api, a.Diagnosis(diagnosis.DashboardSeverityLabels), a.Auth, dashboard.Options{
		Logger:           logger,
		MaxDownloadBytes: cfg.MaxUploadBytes,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	mux.Handle("/metrics", a.Metrics.Handler())
	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting", "program", program, "version", version.Version(), "port", cfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Serve(gctx, srv, logger) })
	g.Go(func() error { return bot.Run(gctx) })
	return g.Wait()
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
