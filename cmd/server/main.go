package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dknauss/twofactor-bridge/internal/bridge"
	"github.com/dknauss/twofactor-bridge/internal/challenge"
	"github.com/dknauss/twofactor-bridge/internal/config"
	"github.com/dknauss/twofactor-bridge/internal/db"
	"github.com/dknauss/twofactor-bridge/internal/hook"
	policyengine "github.com/dknauss/twofactor-bridge/internal/policy/engine"
	policyrepo "github.com/dknauss/twofactor-bridge/internal/policy/repository"
	"github.com/dknauss/twofactor-bridge/internal/security"
	"github.com/dknauss/twofactor-bridge/internal/server"
	"github.com/dknauss/twofactor-bridge/internal/source"
	"github.com/dknauss/twofactor-bridge/internal/source/backupcode"
	backupcoderepo "github.com/dknauss/twofactor-bridge/internal/source/backupcode/repository"
	"github.com/dknauss/twofactor-bridge/internal/source/emailcode"
	emailcoderepo "github.com/dknauss/twofactor-bridge/internal/source/emailcode/repository"
	"github.com/dknauss/twofactor-bridge/internal/source/totp"
	totprepo "github.com/dknauss/twofactor-bridge/internal/source/totp/repository"
	"github.com/dknauss/twofactor-bridge/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if cfg.ChallengeTokenSecret == "" {
		log.Fatal("CHALLENGE_TOKEN_SECRET is not set")
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	ctx := context.Background()
	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "twofactor-bridge", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	hasher := security.NewHasher(cfg.BcryptCost)
	backups := backupcode.NewStore(backupcoderepo.NewPostgresRepository(database), hasher, uuid.NewString)

	sources := source.NewRegistry()
	totpSource := totp.New(totprepo.NewPostgresRepository(database), cfg.TOTPIssuer, backups)
	if err := sources.Register(totpSource); err != nil {
		log.Fatalf("sources: %v", err)
	}
	if cfg.SendGridAPIKey != "" {
		mailer := emailcode.NewSendGridMailer(cfg.SendGridAPIKey, cfg.EmailFromName, cfg.EmailFromAddress, logger)
		emailSource := emailcode.New(emailcoderepo.NewPostgresRepository(database), mailer, cfg.EmailTTL())
		if err := sources.Register(emailSource); err != nil {
			log.Fatalf("sources: %v", err)
		}
	}

	hooks := hook.New()
	for _, name := range sources.Names() {
		bridge.New(sources, name).Attach(hooks)
	}

	evaluator, err := policyengine.NewOPAEvaluator(ctx)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	tokens := security.NewChallengeTokenProvider(
		[]byte(cfg.ChallengeTokenSecret), cfg.ChallengeTokenIssuer, cfg.TokenTTL())

	svc, err := challenge.NewService(
		hooks, evaluator, policyrepo.NewPostgresRepository(database), tokens,
		providers.MeterProvider)
	if err != nil {
		log.Fatalf("challenge: %v", err)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.New(svc, database, logger).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
	logger.Info("HTTP server stopped")
}
