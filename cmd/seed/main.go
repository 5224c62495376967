// seed enrolls a development user for local testing: a TOTP secret (printed as
// an otpauth:// URL), recovery codes (printed once), an email enrollment, and
// org enforcement defaults. Idempotent for the TOTP secret: an already
// enrolled user is left alone.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/dknauss/twofactor-bridge/internal/config"
	"github.com/dknauss/twofactor-bridge/internal/db"
	policydomain "github.com/dknauss/twofactor-bridge/internal/policy/domain"
	policyrepo "github.com/dknauss/twofactor-bridge/internal/policy/repository"
	"github.com/dknauss/twofactor-bridge/internal/security"
	"github.com/dknauss/twofactor-bridge/internal/source/backupcode"
	backupcoderepo "github.com/dknauss/twofactor-bridge/internal/source/backupcode/repository"
	emailcoderepo "github.com/dknauss/twofactor-bridge/internal/source/emailcode/repository"
	"github.com/dknauss/twofactor-bridge/internal/source/totp"
	totprepo "github.com/dknauss/twofactor-bridge/internal/source/totp/repository"
)

func main() {
	userID := flag.String("user", "dev-user", "user id to enroll")
	email := flag.String("email", "dev@example.com", "email address for the email-code source")
	org := flag.String("org", "default", "org id for enforcement settings")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx := context.Background()
	hasher := security.NewHasher(cfg.BcryptCost)
	backups := backupcode.NewStore(backupcoderepo.NewPostgresRepository(database), hasher, uuid.NewString)
	totpSource := totp.New(totprepo.NewPostgresRepository(database), cfg.TOTPIssuer, backups)

	url, err := totpSource.Enroll(ctx, *userID, *email)
	switch {
	case errors.Is(err, totp.ErrAlreadyEnrolled):
		fmt.Printf("user %s already has a TOTP secret; skipping\n", *userID)
	case err != nil:
		log.Fatalf("totp enroll: %v", err)
	default:
		fmt.Printf("TOTP enrollment URL for %s:\n%s\n", *userID, url)
		codes, err := backups.Generate(ctx, *userID, 0)
		if err != nil {
			log.Fatalf("backup codes: %v", err)
		}
		fmt.Println("Recovery codes (shown once):")
		for _, c := range codes {
			fmt.Println("  " + c)
		}
	}

	if err := emailcoderepo.NewPostgresRepository(database).SetEnrollment(ctx, *userID, *email); err != nil {
		log.Fatalf("email enrollment: %v", err)
	}

	enf := &policydomain.Enforcement{OrgID: *org}
	if err := policyrepo.NewPostgresRepository(database).Upsert(ctx, enf); err != nil {
		log.Fatalf("enforcement: %v", err)
	}
	fmt.Printf("seeded user=%s org=%s email=%s\n", *userID, *org, *email)
}
