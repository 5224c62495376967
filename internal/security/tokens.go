package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned when a challenge token is malformed, expired,
// or fails signature verification.
var ErrInvalidToken = errors.New("invalid challenge token")

// ChallengeClaims holds JWT claims for a challenge token: which user is mid
// second-factor challenge, bound to a challenge instance id.
type ChallengeClaims struct {
	jwt.RegisteredClaims
	ChallengeID string `json:"challenge_id"`
}

// ChallengeTokenProvider issues and validates short-lived HS256 tokens that
// carry the user id between rendering a challenge form and verifying its
// submission, so the host never trusts a client-supplied user id.
type ChallengeTokenProvider struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewChallengeTokenProvider returns a provider signing with secret. ttl bounds
// how long a rendered challenge stays answerable.
func NewChallengeTokenProvider(secret []byte, issuer string, ttl time.Duration) *ChallengeTokenProvider {
	return &ChallengeTokenProvider{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue returns a signed token binding userID to a fresh challenge id, plus
// that challenge id.
func (p *ChallengeTokenProvider) Issue(userID string) (token string, challengeID string, err error) {
	challengeID = uuid.New().String()
	now := time.Now()
	claims := ChallengeClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    p.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			ID:        uuid.New().String(),
		},
		ChallengeID: challengeID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(p.secret)
	if err != nil {
		return "", "", err
	}
	return token, challengeID, nil
}

// Validate parses and verifies token, returning the bound user and challenge
// ids. Any failure maps to ErrInvalidToken.
func (p *ChallengeTokenProvider) Validate(token string) (userID string, challengeID string, err error) {
	var claims ChallengeClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return p.secret, nil
	}, jwt.WithIssuer(p.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.ChallengeID == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.ChallengeID, nil
}
