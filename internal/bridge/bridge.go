// Package bridge connects one external second-factor source to the host's
// challenge hooks. A Bridge is stateless: three callbacks (detect, render,
// validate) that consult the source registry per invocation and pass through
// untouched when their source is not installed. Several bridges can share the
// same hooks; each upgrades the accumulated boolean, never downgrades it.
package bridge

import (
	"context"
	"io"

	"github.com/dknauss/twofactor-bridge/internal/hook"
	"github.com/dknauss/twofactor-bridge/internal/source"
)

// Bridge binds one source, by name, to the host's hooks. Field names for the
// submitted code and backup code are derived from the source name so that two
// bridges on the same form never collide with each other or with the host.
type Bridge struct {
	sourceName  string
	sources     *source.Registry
	codeField   string
	backupField string
}

// New returns a bridge for the source registered (or later registered) under
// sourceName in sources.
func New(sources *source.Registry, sourceName string) *Bridge {
	return &Bridge{
		sourceName:  sourceName,
		sources:     sources,
		codeField:   sourceName + "-code",
		backupField: sourceName + "-backup-code",
	}
}

// CodeField is the form field name this bridge reads the primary code from.
func (b *Bridge) CodeField() string { return b.codeField }

// BackupField is the form field name this bridge reads the backup code from.
func (b *Bridge) BackupField() string { return b.backupField }

// Attach registers the bridge's three callbacks on h.
func (b *Bridge) Attach(h *hook.Hooks) {
	h.OnDetect(b.Detect)
	h.OnRender(b.Render)
	h.OnValidate(b.Validate)
}

// Detect reports whether the user needs a second-factor challenge. A true
// accumulated by an earlier bridge is returned unchanged; an absent source
// passes needs through untouched. Otherwise the source's own enabled check
// decides. No side effects.
func (b *Bridge) Detect(ctx context.Context, needs bool, userID string) (bool, error) {
	if needs {
		return true, nil
	}
	src, ok := b.sources.Lookup(b.sourceName)
	if !ok {
		return needs, nil
	}
	enabled, err := src.Enabled(ctx, userID)
	if err != nil {
		return needs, err
	}
	return enabled, nil
}

// Render writes this bridge's challenge form fragment for the user: one
// numeric code input for the configured method, plus a collapsed backup-code
// input when the user has recovery codes. Email-method sources get their
// challenge sent first, once per invocation; re-rendering re-sends, which is
// the documented behavior of the pattern. Emits nothing when the source is
// absent or the user has no enabled method. Never emits a form element,
// submit control, or hidden routing fields; those belong to the host.
func (b *Bridge) Render(ctx context.Context, w io.Writer, userID string) error {
	src, ok := b.sources.Lookup(b.sourceName)
	if !ok {
		return nil
	}
	enabled, err := src.Enabled(ctx, userID)
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}
	method, err := b.userMethod(ctx, src, userID)
	if err != nil {
		return err
	}
	if method == source.MethodNone {
		return nil
	}
	if method == source.MethodEmail {
		if sender, ok := src.(source.ChallengeSender); ok {
			if err := sender.SendChallenge(ctx, userID); err != nil {
				return err
			}
		}
	}
	if err := writeCodeInput(w, b.codeField, method); err != nil {
		return err
	}
	if backups, ok := src.(source.BackupValidator); ok {
		has, err := backups.HasBackupCodes(ctx, userID)
		if err != nil {
			return err
		}
		if has {
			if err := writeBackupInput(w, b.backupField); err != nil {
				return err
			}
		}
	}
	return nil
}

// Validate checks the submitted code(s) against the source. A true accumulated
// by an earlier bridge is returned unchanged; an absent source passes valid
// through. Submitted values are sanitized before use. The primary code is
// tried first when present; a submitted backup code is the fallback. When
// every attempt fails, or nothing usable was submitted, the result is an
// explicit false. One attempt per code, no retries.
func (b *Bridge) Validate(ctx context.Context, valid bool, userID string, sub hook.Submission) (bool, error) {
	if valid {
		return true, nil
	}
	src, ok := b.sources.Lookup(b.sourceName)
	if !ok {
		return valid, nil
	}
	code := sanitizeCode(sub.Get(b.codeField))
	backup := sanitizeCode(sub.Get(b.backupField))
	if code != "" {
		method, err := b.userMethod(ctx, src, userID)
		if err != nil {
			return false, err
		}
		if method != source.MethodNone {
			ok, err := src.ValidatePrimary(ctx, userID, code)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
	if backup != "" {
		if backups, ok := src.(source.BackupValidator); ok {
			ok, err := backups.ValidateBackup(ctx, userID, backup)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}

// userMethod resolves the user's primary method. Sources without a
// MethodReporter have a single fixed code-entry method, reported as totp-style.
func (b *Bridge) userMethod(ctx context.Context, src source.Source, userID string) (source.Method, error) {
	reporter, ok := src.(source.MethodReporter)
	if !ok {
		return source.MethodTOTP, nil
	}
	return reporter.Method(ctx, userID)
}
