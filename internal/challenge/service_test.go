package challenge

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/dknauss/twofactor-bridge/internal/hook"
	policydomain "github.com/dknauss/twofactor-bridge/internal/policy/domain"
	policyengine "github.com/dknauss/twofactor-bridge/internal/policy/engine"
	policyrepo "github.com/dknauss/twofactor-bridge/internal/policy/repository"
	"github.com/dknauss/twofactor-bridge/internal/security"
)

type stubEvaluator struct {
	required bool
	err      error
	gotEnf   *policydomain.Enforcement
	gotInput policyengine.Input
}

func (s *stubEvaluator) SecondFactorRequired(ctx context.Context, enf *policydomain.Enforcement, in policyengine.Input) (bool, error) {
	s.gotEnf = enf
	s.gotInput = in
	if s.err != nil {
		return false, s.err
	}
	return s.required || in.Detected, nil
}

type stubEnfRepo struct {
	byOrg map[string]*policydomain.Enforcement
}

func (s *stubEnfRepo) GetByOrgID(ctx context.Context, orgID string) (*policydomain.Enforcement, error) {
	return s.byOrg[orgID], nil
}

func (s *stubEnfRepo) Upsert(ctx context.Context, e *policydomain.Enforcement) error {
	s.byOrg[e.OrgID] = e
	return nil
}

func newService(t *testing.T, h *hook.Hooks, ev policyengine.Evaluator, repo *stubEnfRepo) *Service {
	t.Helper()
	tokens := security.NewChallengeTokenProvider([]byte("test-secret"), "twofactor-bridge", 5*time.Minute)
	var enfRepo policyrepo.Repository
	if repo != nil {
		enfRepo = repo
	}
	svc, err := NewService(h, ev, enfRepo, tokens, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func detectTrue(ctx context.Context, v bool, userID string) (bool, error)  { return true, nil }
func detectPass(ctx context.Context, v bool, userID string) (bool, error) { return v, nil }

func TestNeedsSecondFactor_DetectChainDecides(t *testing.T) {
	h := hook.New()
	h.OnDetect(detectTrue)
	svc := newService(t, h, nil, nil)

	needs, err := svc.NeedsSecondFactor(context.Background(), "u1", "", nil)
	if err != nil {
		t.Fatalf("NeedsSecondFactor: %v", err)
	}
	if !needs {
		t.Error("detect chain said true, service said false")
	}
}

func TestNeedsSecondFactor_NoEvaluatorNoDetection(t *testing.T) {
	h := hook.New()
	h.OnDetect(detectPass)
	svc := newService(t, h, nil, nil)

	needs, err := svc.NeedsSecondFactor(context.Background(), "u1", "org-1", []string{"admin"})
	if err != nil {
		t.Fatalf("NeedsSecondFactor: %v", err)
	}
	if needs {
		t.Error("nothing detected and no evaluator, but challenge required")
	}
}

func TestNeedsSecondFactor_PolicyUpgrades(t *testing.T) {
	h := hook.New()
	h.OnDetect(detectPass)
	ev := &stubEvaluator{required: true}
	repo := &stubEnfRepo{byOrg: map[string]*policydomain.Enforcement{
		"org-1": {OrgID: "org-1", RequireAlways: true},
	}}
	svc := newService(t, h, ev, repo)

	needs, err := svc.NeedsSecondFactor(context.Background(), "u1", "org-1", []string{"admin"})
	if err != nil {
		t.Fatalf("NeedsSecondFactor: %v", err)
	}
	if !needs {
		t.Error("policy required the challenge, service said no")
	}
	if ev.gotEnf == nil || ev.gotEnf.OrgID != "org-1" {
		t.Errorf("evaluator saw enforcement %+v, want org-1 settings", ev.gotEnf)
	}
	if len(ev.gotInput.Roles) != 1 || ev.gotInput.Roles[0] != "admin" {
		t.Errorf("evaluator saw roles %v, want [admin]", ev.gotInput.Roles)
	}
}

func TestNeedsSecondFactor_UnknownOrgGetsNilEnforcement(t *testing.T) {
	h := hook.New()
	h.OnDetect(detectPass)
	ev := &stubEvaluator{}
	repo := &stubEnfRepo{byOrg: map[string]*policydomain.Enforcement{}}
	svc := newService(t, h, ev, repo)

	if _, err := svc.NeedsSecondFactor(context.Background(), "u1", "org-x", nil); err != nil {
		t.Fatalf("NeedsSecondFactor: %v", err)
	}
	if ev.gotEnf != nil {
		t.Errorf("evaluator saw enforcement %+v for unknown org, want nil", ev.gotEnf)
	}
}

func TestNeedsSecondFactor_EvaluatorErrorPropagates(t *testing.T) {
	wantErr := errors.New("policy down")
	h := hook.New()
	h.OnDetect(detectPass)
	svc := newService(t, h, &stubEvaluator{err: wantErr}, &stubEnfRepo{byOrg: map[string]*policydomain.Enforcement{}})

	if _, err := svc.NeedsSecondFactor(context.Background(), "u1", "org-1", nil); !errors.Is(err, wantErr) {
		t.Errorf("NeedsSecondFactor error = %v, want %v", err, wantErr)
	}
}

func TestRenderForm_ConcatenatesFragments(t *testing.T) {
	h := hook.New()
	h.OnRender(func(ctx context.Context, w io.Writer, userID string) error {
		_, err := w.Write([]byte("<p>one</p>"))
		return err
	})
	h.OnRender(func(ctx context.Context, w io.Writer, userID string) error {
		_, err := w.Write([]byte("<p>two</p>"))
		return err
	})
	svc := newService(t, h, nil, nil)

	var sb strings.Builder
	if err := svc.RenderForm(context.Background(), &sb, "u1"); err != nil {
		t.Fatalf("RenderForm: %v", err)
	}
	if sb.String() != "<p>one</p><p>two</p>" {
		t.Errorf("RenderForm output = %q", sb.String())
	}
}

func TestVerify_SeedsFalse(t *testing.T) {
	h := hook.New()
	var seenSeed bool
	h.OnValidate(func(ctx context.Context, v bool, userID string, sub hook.Submission) (bool, error) {
		seenSeed = v
		return sub.Get("code") == "123456", nil
	})
	svc := newService(t, h, nil, nil)

	valid, err := svc.Verify(context.Background(), "u1", hook.Submission{"code": {"123456"}})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if seenSeed {
		t.Error("validate chain was seeded true")
	}
	if !valid {
		t.Error("Verify = false for passing chain")
	}

	valid, err = svc.Verify(context.Background(), "u1", hook.Submission{})
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if valid {
		t.Error("Verify = true for empty submission")
	}
}

func TestTokens_RoundTripThroughService(t *testing.T) {
	svc := newService(t, hook.New(), nil, nil)

	token, challengeID, err := svc.IssueToken("u1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	userID, gotID, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if userID != "u1" || gotID != challengeID {
		t.Errorf("ValidateToken = (%q, %q), want (u1, %q)", userID, gotID, challengeID)
	}

	if _, _, err := svc.ValidateToken("garbage"); !errors.Is(err, security.ErrInvalidToken) {
		t.Errorf("ValidateToken(garbage) error = %v, want ErrInvalidToken", err)
	}
}
