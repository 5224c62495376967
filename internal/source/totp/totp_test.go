package totp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pqtotp "github.com/pquerna/otp/totp"

	"github.com/dknauss/twofactor-bridge/internal/source"
)

type memoryRepository struct {
	mu      sync.Mutex
	secrets map[string]string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{secrets: make(map[string]string)}
}

func (r *memoryRepository) Secret(ctx context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.secrets[userID], nil
}

func (r *memoryRepository) SetSecret(ctx context.Context, userID, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets[userID] = secret
	return nil
}

func (r *memoryRepository) DeleteSecret(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.secrets, userID)
	return nil
}

type stubBackups struct {
	has      bool
	consumed string
}

func (s *stubBackups) Has(ctx context.Context, userID string) (bool, error) {
	return s.has, nil
}

func (s *stubBackups) Consume(ctx context.Context, userID, code string) (bool, error) {
	if s.has && code == "good-code" {
		s.consumed = code
		s.has = false
		return true, nil
	}
	return false, nil
}

func enroll(t *testing.T, s *Source, userID string) string {
	t.Helper()
	url, err := s.Enroll(context.Background(), userID, userID+"@example.com")
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	return url
}

func TestEnabled_FollowsEnrollment(t *testing.T) {
	s := New(newMemoryRepository(), "example", nil)
	ctx := context.Background()

	enabled, err := s.Enabled(ctx, "u1")
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	if enabled {
		t.Error("unenrolled user reported enabled")
	}

	enroll(t, s, "u1")

	enabled, err = s.Enabled(ctx, "u1")
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	if !enabled {
		t.Error("enrolled user reported disabled")
	}
}

func TestMethod_ReflectsEnrollment(t *testing.T) {
	s := New(newMemoryRepository(), "example", nil)
	ctx := context.Background()

	m, err := s.Method(ctx, "u1")
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	if m != source.MethodNone {
		t.Errorf("Method = %q for unenrolled user, want none", m)
	}

	enroll(t, s, "u1")

	m, err = s.Method(ctx, "u1")
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	if m != source.MethodTOTP {
		t.Errorf("Method = %q, want %q", m, source.MethodTOTP)
	}
}

func TestValidatePrimary_CurrentWindowCode(t *testing.T) {
	repo := newMemoryRepository()
	s := New(repo, "example", nil)
	ctx := context.Background()
	enroll(t, s, "u1")

	secret, err := repo.Secret(ctx, "u1")
	if err != nil {
		t.Fatalf("Secret: %v", err)
	}
	code, err := pqtotp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode: %v", err)
	}

	ok, err := s.ValidatePrimary(ctx, "u1", code)
	if err != nil {
		t.Fatalf("ValidatePrimary: %v", err)
	}
	if !ok {
		t.Error("current-window code rejected")
	}

	ok, err = s.ValidatePrimary(ctx, "u1", "000000")
	if err != nil {
		t.Fatalf("ValidatePrimary: %v", err)
	}
	if ok {
		t.Error("bogus code accepted")
	}
}

func TestValidatePrimary_NoSecretFailsWithoutError(t *testing.T) {
	s := New(newMemoryRepository(), "example", nil)
	ok, err := s.ValidatePrimary(context.Background(), "ghost", "123456")
	if err != nil {
		t.Fatalf("ValidatePrimary: %v", err)
	}
	if ok {
		t.Error("user without a secret validated")
	}
}

func TestEnroll_ReturnsProvisioningURL(t *testing.T) {
	s := New(newMemoryRepository(), "Example Corp", nil)
	url := enroll(t, s, "u1")
	if !strings.HasPrefix(url, "otpauth://totp/") {
		t.Errorf("Enroll URL = %q, want otpauth://totp/ prefix", url)
	}
	if !strings.Contains(url, "Example") {
		t.Errorf("Enroll URL %q does not carry the issuer", url)
	}
}

func TestEnroll_SecondEnrollmentRejected(t *testing.T) {
	s := New(newMemoryRepository(), "example", nil)
	enroll(t, s, "u1")
	if _, err := s.Enroll(context.Background(), "u1", "u1@example.com"); !errors.Is(err, ErrAlreadyEnrolled) {
		t.Errorf("second Enroll error = %v, want ErrAlreadyEnrolled", err)
	}
}

func TestBackupCapability_DelegatesToStore(t *testing.T) {
	backups := &stubBackups{has: true}
	s := New(newMemoryRepository(), "example", backups)
	ctx := context.Background()

	has, err := s.HasBackupCodes(ctx, "u1")
	if err != nil {
		t.Fatalf("HasBackupCodes: %v", err)
	}
	if !has {
		t.Error("HasBackupCodes = false, want true")
	}

	ok, err := s.ValidateBackup(ctx, "u1", "good-code")
	if err != nil {
		t.Fatalf("ValidateBackup: %v", err)
	}
	if !ok || backups.consumed != "good-code" {
		t.Error("matching backup code was not consumed")
	}
}

func TestBackupCapability_NilStoreReportsNone(t *testing.T) {
	s := New(newMemoryRepository(), "example", nil)
	ctx := context.Background()

	has, err := s.HasBackupCodes(ctx, "u1")
	if err != nil {
		t.Fatalf("HasBackupCodes: %v", err)
	}
	if has {
		t.Error("nil backup store reported codes")
	}

	ok, err := s.ValidateBackup(ctx, "u1", "anything")
	if err != nil {
		t.Fatalf("ValidateBackup: %v", err)
	}
	if ok {
		t.Error("nil backup store validated a code")
	}
}
