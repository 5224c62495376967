// Package source defines the capability surface of an external second-factor
// source and the registry bridges use to probe for one. A source that is not
// registered is treated as not installed; bridges degrade to pass-through
// rather than failing.
package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Method tags a user's configured primary second-factor mechanism.
type Method string

const (
	// MethodNone means the user has no primary method configured.
	MethodNone Method = ""
	// MethodTOTP is a time-based one-time code from an authenticator app.
	MethodTOTP Method = "totp"
	// MethodEmail is a one-time code delivered to the user's email address.
	MethodEmail Method = "email"
)

// Source is the minimal capability set every external second-factor source
// provides. Optional capabilities (MethodReporter, BackupValidator,
// ChallengeSender) are probed by interface assertion at each use.
type Source interface {
	// Name identifies the source; it keys the registry and derives the
	// source's form field names.
	Name() string
	// Enabled reports whether the user has this source's second factor
	// configured. Read-only; no side effects.
	Enabled(ctx context.Context, userID string) (bool, error)
	// ValidatePrimary checks a submitted code against the user's configured
	// primary method. A single attempt; the source owns any secret material.
	ValidatePrimary(ctx context.Context, userID, code string) (bool, error)
}

// MethodReporter is implemented by sources that distinguish between primary
// methods per user. Sources with a single fixed method may omit it; bridges
// then treat an enabled user as having a code-entry method.
type MethodReporter interface {
	Method(ctx context.Context, userID string) (Method, error)
}

// BackupValidator is implemented by sources that support single-use recovery
// codes. A successful ValidateBackup consumes the code on the source's side.
type BackupValidator interface {
	HasBackupCodes(ctx context.Context, userID string) (bool, error)
	ValidateBackup(ctx context.Context, userID, code string) (bool, error)
}

// ChallengeSender is implemented by sources whose method requires pushing a
// challenge to the user before they can answer (e.g. an email code).
type ChallengeSender interface {
	SendChallenge(ctx context.Context, userID string) error
}

// Registry maps source name to loaded Source. Lookup failure is the normal
// "source not installed" condition, not an error.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Source
}

// NewRegistry returns an empty source registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]Source)}
}

// Register adds s under its name. Registering two sources with the same name
// is a wiring mistake and returns an error.
func (r *Registry) Register(s Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := s.Name()
	if name == "" {
		return fmt.Errorf("source: cannot register source with empty name")
	}
	if _, exists := r.m[name]; exists {
		return fmt.Errorf("source: %q already registered", name)
	}
	r.m[name] = s
	return nil
}

// Lookup returns the source registered under name, or ok false when absent.
func (r *Registry) Lookup(name string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.m[name]
	return s, ok
}

// Names returns the registered source names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.m))
	for n := range r.m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
