// Package challenge is the host-side harness around the hook chains: it runs
// detection (plus enforcement policy), renders the combined challenge form,
// and verifies submissions, while issuing the token that ties the two requests
// of one challenge together.
package challenge

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dknauss/twofactor-bridge/internal/hook"
	policydomain "github.com/dknauss/twofactor-bridge/internal/policy/domain"
	policyengine "github.com/dknauss/twofactor-bridge/internal/policy/engine"
	policyrepo "github.com/dknauss/twofactor-bridge/internal/policy/repository"
	"github.com/dknauss/twofactor-bridge/internal/security"
)

// Service orchestrates one user's second-factor challenge. The evaluator and
// enforcement repo are optional; without them only the detect chain decides.
type Service struct {
	hooks     *hook.Hooks
	evaluator policyengine.Evaluator
	enfRepo   policyrepo.Repository
	tokens    *security.ChallengeTokenProvider

	verifications metric.Int64Counter
}

// NewService wires the orchestration service. meterProvider may be a no-op
// provider; counters are still created.
func NewService(
	hooks *hook.Hooks,
	evaluator policyengine.Evaluator,
	enfRepo policyrepo.Repository,
	tokens *security.ChallengeTokenProvider,
	meterProvider metric.MeterProvider,
) (*Service, error) {
	meter := meterProvider.Meter("twofactor-bridge/challenge")
	verifications, err := meter.Int64Counter(
		"twofactor.verifications",
		metric.WithDescription("Second-factor verification attempts by result."),
	)
	if err != nil {
		return nil, fmt.Errorf("challenge: create counter: %w", err)
	}
	return &Service{
		hooks:         hooks,
		evaluator:     evaluator,
		enfRepo:       enfRepo,
		tokens:        tokens,
		verifications: verifications,
	}, nil
}

// NeedsSecondFactor folds the detect chain for userID and then applies org
// enforcement policy. Policy can upgrade a false to true (e.g. require_always)
// but never downgrades a detected requirement.
func (s *Service) NeedsSecondFactor(ctx context.Context, userID, orgID string, roles []string) (bool, error) {
	detected, err := s.hooks.RunDetect(ctx, false, userID)
	if err != nil {
		return detected, err
	}
	if s.evaluator == nil {
		return detected, nil
	}
	enf, err := s.lookupEnforcement(ctx, orgID)
	if err != nil {
		return detected, err
	}
	required, err := s.evaluator.SecondFactorRequired(ctx, enf, policyengine.Input{
		Detected: detected,
		Roles:    roles,
	})
	if err != nil {
		return detected, err
	}
	return detected || required, nil
}

// RenderForm writes the concatenated challenge fragments for userID into w.
func (s *Service) RenderForm(ctx context.Context, w io.Writer, userID string) error {
	return s.hooks.RunRender(ctx, w, userID)
}

// Verify folds the validate chain over the submission, seeded false. The
// result is counted per outcome.
func (s *Service) Verify(ctx context.Context, userID string, sub hook.Submission) (bool, error) {
	valid, err := s.hooks.RunValidate(ctx, false, userID, sub)
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case !valid:
		outcome = "failure"
	}
	s.verifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return valid, err
}

// IssueToken returns a signed challenge token for userID and its challenge id.
func (s *Service) IssueToken(userID string) (token, challengeID string, err error) {
	return s.tokens.Issue(userID)
}

// ValidateToken resolves a challenge token back to its user and challenge ids.
func (s *Service) ValidateToken(token string) (userID, challengeID string, err error) {
	return s.tokens.Validate(token)
}

func (s *Service) lookupEnforcement(ctx context.Context, orgID string) (*policydomain.Enforcement, error) {
	if s.enfRepo == nil || orgID == "" {
		return nil, nil
	}
	return s.enfRepo.GetByOrgID(ctx, orgID)
}
