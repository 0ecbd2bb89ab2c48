package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/captcha"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/config"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/db"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/delivery"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/mailer"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/metrics"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/ratelimit"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/repository"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/suppression"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/tracking"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/web"
	"github.com/rafaelfmuniz/socialbluepro-sub000/internal/web/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server and campaign dispatcher",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return err
	}

	supp, err := suppression.Open(cfg.Suppression.Path)
	if err != nil {
		return err
	}
	defer supp.Close()

	leads := repository.NewLeadRepository(database.DB)
	channels := repository.NewChannelRepository(database.DB)
	segments := repository.NewSegmentRepository(database.DB)
	campaigns := repository.NewCampaignRepository(database.DB)
	trackingRepo := repository.NewTrackingRepository(database.DB)

	m := metrics.New()
	transport := mailer.NewTransport(cfg.Delivery.Timeout, logger)

	legacy := mailer.LegacyChannelFromConfig(
		cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password,
		cfg.Mail.Security, cfg.Mail.FromEmail, cfg.Mail.FromName, cfg.Mail.ReplyTo,
	)
	resolver := mailer.NewResolver(channels, legacy, logger)

	pipeline := delivery.NewPipeline(delivery.PipelineOptions{
		Resolver:    resolver,
		Transport:   transport,
		Tracking:    trackingRepo,
		Campaigns:   campaigns,
		Suppression: supp,
		Metrics:     m,
		BaseURL:     cfg.Tracking.BaseURL,
		SendsPerSec: 1 / cfg.Delivery.SendDelay.Seconds(),
		Logger:      logger,
	})
	dispatcher := delivery.NewDispatcher(campaigns, leads, trackingRepo, pipeline, m, cfg.Delivery.DispatchInterval, logger)

	captchaProvider, err := captcha.New(cfg.Captcha)
	if err != nil {
		return err
	}

	api := handlers.New(handlers.Options{
		Leads:      leads,
		Channels:   channels,
		Segments:   segments,
		Campaigns:  campaigns,
		Tracking:   trackingRepo,
		Dispatcher: dispatcher,
		Harness:    mailer.NewHarness(transport, logger),
		Captcha:    captchaProvider,
		Throttle:   ratelimit.New(cfg.Server.SubmitPerMinute, 0),
		Metrics:    m,
		Logger:     logger,
	})
	track := tracking.NewHandler(trackingRepo, campaigns, supp, m, logger)
	srv := web.NewServer(cfg.Server.ListenAddr, api, track, m, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher.Start(ctx)
	defer dispatcher.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
