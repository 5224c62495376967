// Package engine evaluates second-factor enforcement policy with OPA Rego.
package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/dknauss/twofactor-bridge/internal/policy/domain"
)

const policyQuery = "data.twofactor.enforcement.required"

// Default Rego policy: detected users are always required; orgs can force the
// challenge for everyone or for specific roles.
const defaultRegoPolicy = `package twofactor.enforcement

default required = false

required if {
	input.detected
}

required if {
	input.org.require_always
}

required if {
	some role in input.org.require_for_roles
	role in input.user.roles
}
`

// OPAEvaluator evaluates enforcement policy using the embedded Rego module.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the default policy and returns an evaluator.
func NewOPAEvaluator(ctx context.Context) (*OPAEvaluator, error) {
	compiler, err := ast.CompileModules(map[string]string{"enforcement.rego": defaultRegoPolicy})
	if err != nil {
		return nil, fmt.Errorf("policy: compile: %w", err)
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: prepare: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// SecondFactorRequired implements Evaluator. A nil enf means the org has no
// stored settings and nothing is forced beyond the detect result.
func (e *OPAEvaluator) SecondFactorRequired(ctx context.Context, enf *domain.Enforcement, in Input) (bool, error) {
	org := map[string]interface{}{
		"require_always":    false,
		"require_for_roles": []string{},
	}
	if enf != nil {
		org["require_always"] = enf.RequireAlways
		org["require_for_roles"] = enf.RequireForRoles
	}
	input := map[string]interface{}{
		"detected": in.Detected,
		"org":      org,
		"user": map[string]interface{}{
			"roles": in.Roles,
		},
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("policy: eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return in.Detected, nil
	}
	required, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return in.Detected, fmt.Errorf("policy: unexpected result type %T", rs[0].Expressions[0].Value)
	}
	// Policy can force true, never waive a detected requirement.
	return required || in.Detected, nil
}
