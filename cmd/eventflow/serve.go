package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"eventflow/internal/adapters/auth"
	"eventflow/internal/adapters/email"
	httpdelivery "eventflow/internal/delivery/http"
	"eventflow/internal/delivery/http/controllers"
	"eventflow/internal/services"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the ledger reconciliation job",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	locker, closeLocker, err := newLocker()
	if err != nil {
		return err
	}
	defer closeLocker()

	mailer, err := email.NewMailer(email.MailerConfig{
		Provider:    cfg.Email.Provider,
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SES: email.SESConfig{
			Region:             cfg.Email.AWSRegion,
			AccessKeyID:        cfg.Email.AWSAccessKeyID,
			SecretAccessKey:    cfg.Email.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.Email.InsecureSkipVerify,
		},
	})
	if err != nil {
		return err
	}
	notifier := services.NewEmailNotifier(mailer, email.NewTemplateRenderer())

	coord := services.NewCoordinator(store, locker, notifier, coordinatorOptions())
	reconciler := services.NewLedgerReconciler(store, coord)

	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty; tokens signed with an empty key will be accepted")
	}
	handler := httpdelivery.NewRouter(httpdelivery.RouterConfig{
		Events:         controllers.NewEventController(logger, coord),
		Registrations:  controllers.NewRegistrationController(logger, coord),
		Reports:        controllers.NewReportController(logger, coord),
		Verifier:       auth.NewJWTVerifier(cfg.JWTSecret),
		Logger:         logger,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "addr", server.Addr, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return reconciler.Start(ctx, cfg.ReconcileInterval)
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		return err
	}
	logger.Info("Server exited properly")
	return nil
}
