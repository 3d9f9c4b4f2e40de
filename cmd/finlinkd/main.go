// finlinkd serves the transaction aggregation API: AA consents and data
// sessions, device message ingestion, and reconciliation between the two.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jask/finlink/internal/aa"
	"github.com/jask/finlink/internal/classifier"
	"github.com/jask/finlink/internal/config"
	"github.com/jask/finlink/internal/database"
	"github.com/jask/finlink/internal/database/repository"
	"github.com/jask/finlink/internal/httpapi"
	"github.com/jask/finlink/internal/logger"
	"github.com/jask/finlink/internal/secrets"
	"github.com/jask/finlink/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "finlinkd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	users := repository.NewUserRepo(db)
	consents := repository.NewConsentRepo(db)
	sessions := repository.NewSessionRepo(db)
	txns := repository.NewTransactionRepo(db)

	// config wins; the secret store covers installs that keep credentials
	// out of config files
	aaSecret := cfg.AA.ClientSecret
	if aaSecret == "" {
		aaSecret, _ = secrets.Fetch(secrets.AAClientSecret)
	}
	signingKey := cfg.Auth.SigningKey
	if signingKey == "" {
		signingKey, _ = secrets.Fetch(secrets.SigningKey)
	}
	if signingKey == "" {
		return errors.New("auth signing key not configured")
	}

	provider := aa.NewClient(cfg.AA.BaseURL, cfg.AA.LoginURL, cfg.AA.ClientID, aaSecret, cfg.AA.ProductInstanceID)

	var cls classifier.Classifier
	switch cfg.Classifier.Provider {
	case "heuristic":
		cls = classifier.NewHeuristic()
	case "http", "":
		if cfg.Classifier.URL == "" {
			return errors.New("classifier.url required for http classifier")
		}
		cls = classifier.NewHTTPClassifier(cfg.Classifier.URL)
	default:
		return fmt.Errorf("unknown classifier provider %q", cfg.Classifier.Provider)
	}

	var sameName service.MerchantComparator
	if cfg.Reconcile.FuzzyMerchants {
		sameName = service.FuzzyMerchants(2)
	}
	window := time.Duration(cfg.Reconcile.WindowMinutes) * time.Minute

	ingestor := service.NewIngestor(txns, cls, loc, log)
	reconciler := service.NewReconciler(txns, window, sameName, log)
	authSvc := service.NewAuthService(users, []byte(signingKey),
		time.Duration(cfg.Auth.OTPTTLMinutes)*time.Minute, log)
	consentSvc := service.NewConsentService(consents, provider, log)
	sessionSvc := service.NewSessionService(sessions, consents, provider, ingestor, reconciler, log)
	txnSvc := service.NewTransactionService(txns)

	handler := httpapi.NewHandler(authSvc, consentSvc, sessionSvc, ingestor, txnSvc, log)

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
