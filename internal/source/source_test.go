package source

import (
	"context"
	"testing"
)

type stubSource struct {
	name string
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Enabled(ctx context.Context, userID string) (bool, error) {
	return false, nil
}
func (s *stubSource) ValidatePrimary(ctx context.Context, userID, code string) (bool, error) {
	return false, nil
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	s := &stubSource{name: "totp"}
	if err := r.Register(s); err != nil {
		t.Fatalf("Register: %v", err)
	}
	got, ok := r.Lookup("totp")
	if !ok {
		t.Fatal("Lookup should find registered source")
	}
	if got != Source(s) {
		t.Error("Lookup returned a different source")
	}
	if _, ok := r.Lookup("email"); ok {
		t.Error("Lookup should miss unregistered source")
	}
}

func TestRegistry_DuplicateName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubSource{name: "totp"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&stubSource{name: "totp"}); err == nil {
		t.Error("Register should reject duplicate name")
	}
}

func TestRegistry_EmptyName(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubSource{name: ""}); err == nil {
		t.Error("Register should reject empty name")
	}
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"totp", "email", "duo"} {
		if err := r.Register(&stubSource{name: n}); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
	}
	names := r.Names()
	want := []string{"duo", "email", "totp"}
	if len(names) != len(want) {
		t.Fatalf("Names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
