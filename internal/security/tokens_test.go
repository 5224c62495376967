package security

import (
	"errors"
	"testing"
	"time"
)

func TestChallengeToken_RoundTrip(t *testing.T) {
	p := NewChallengeTokenProvider([]byte("test-secret"), "twofactor-bridge", 5*time.Minute)

	token, challengeID, err := p.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" || challengeID == "" {
		t.Fatal("Issue returned empty token or challenge id")
	}

	userID, gotChallengeID, err := p.Validate(token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("userID = %q, want user-42", userID)
	}
	if gotChallengeID != challengeID {
		t.Errorf("challengeID = %q, want %q", gotChallengeID, challengeID)
	}
}

func TestChallengeToken_FreshChallengeIDPerIssue(t *testing.T) {
	p := NewChallengeTokenProvider([]byte("test-secret"), "twofactor-bridge", 5*time.Minute)

	_, first, err := p.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, second, err := p.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if first == second {
		t.Error("two issues produced the same challenge id")
	}
}

func TestChallengeToken_WrongSecretRejected(t *testing.T) {
	issuer := NewChallengeTokenProvider([]byte("secret-a"), "twofactor-bridge", 5*time.Minute)
	verifier := NewChallengeTokenProvider([]byte("secret-b"), "twofactor-bridge", 5*time.Minute)

	token, _, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate error = %v, want ErrInvalidToken", err)
	}
}

func TestChallengeToken_WrongIssuerRejected(t *testing.T) {
	issuer := NewChallengeTokenProvider([]byte("test-secret"), "service-a", 5*time.Minute)
	verifier := NewChallengeTokenProvider([]byte("test-secret"), "service-b", 5*time.Minute)

	token, _, err := issuer.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := verifier.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate error = %v, want ErrInvalidToken", err)
	}
}

func TestChallengeToken_ExpiredRejected(t *testing.T) {
	p := NewChallengeTokenProvider([]byte("test-secret"), "twofactor-bridge", -time.Minute)

	token, _, err := p.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, _, err := p.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Validate error = %v, want ErrInvalidToken", err)
	}
}

func TestChallengeToken_GarbageRejected(t *testing.T) {
	p := NewChallengeTokenProvider([]byte("test-secret"), "twofactor-bridge", 5*time.Minute)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, _, err := p.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidToken", token, err)
		}
	}
}
