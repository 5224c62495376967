package engine

import (
	"context"

	"github.com/dknauss/twofactor-bridge/internal/policy/domain"
)

// Input is the evaluation context for one user's sign-in: whether the detect
// chain already flagged them, and the roles the host reports for them.
type Input struct {
	Detected bool
	Roles    []string
}

// Evaluator decides whether a user must complete a second-factor challenge.
// Implementations must be monotonic over Input.Detected: a detected user is
// always required.
type Evaluator interface {
	SecondFactorRequired(ctx context.Context, enf *domain.Enforcement, in Input) (bool, error)
}
