// Package hook provides the host's named extension points for second-factor
// bridges: two boolean value-filter chains (detect, validate) and one
// notification chain (render). Callbacks run in registration order within a
// single request; the chains hold no per-request state of their own.
package hook

import (
	"context"
	"io"
)

// Filter is a boolean value-filter callback. It receives the value accumulated
// by earlier callbacks and returns the possibly-upgraded value. A callback with
// nothing to contribute must return the incoming value unchanged.
type Filter func(ctx context.Context, value bool, userID string) (bool, error)

// ValidateFilter is a boolean value-filter callback that also receives the
// request's form submission.
type ValidateFilter func(ctx context.Context, valid bool, userID string, sub Submission) (bool, error)

// Renderer is a notification callback that writes a markup fragment for the
// given user. Renderers with nothing to show write nothing and return nil.
type Renderer func(ctx context.Context, w io.Writer, userID string) error

// Hooks holds the three extension points a bridge attaches to. The host runs
// RunDetect before RunRender before RunValidate for one challenge instance.
// Registration happens at startup; Hooks is not safe for concurrent mutation
// after callbacks start running.
type Hooks struct {
	detect   []Filter
	render   []Renderer
	validate []ValidateFilter
}

// New returns an empty Hooks.
func New() *Hooks {
	return &Hooks{}
}

// OnDetect appends f to the detection chain.
func (h *Hooks) OnDetect(f Filter) {
	h.detect = append(h.detect, f)
}

// OnRender appends r to the rendering chain.
func (h *Hooks) OnRender(r Renderer) {
	h.render = append(h.render, r)
}

// OnValidate appends f to the validation chain.
func (h *Hooks) OnValidate(f ValidateFilter) {
	h.validate = append(h.validate, f)
}

// RunDetect folds the detection chain over seed. Every callback runs; callbacks
// are responsible for returning an already-true value unchanged, so the fold is
// monotonic when they honor that contract. The first error stops the chain.
func (h *Hooks) RunDetect(ctx context.Context, seed bool, userID string) (bool, error) {
	v := seed
	for _, f := range h.detect {
		var err error
		v, err = f(ctx, v, userID)
		if err != nil {
			return v, err
		}
	}
	return v, nil
}

// RunRender runs the rendering chain in order, concatenating output into w.
func (h *Hooks) RunRender(ctx context.Context, w io.Writer, userID string) error {
	for _, r := range h.render {
		if err := r(ctx, w, userID); err != nil {
			return err
		}
	}
	return nil
}

// RunValidate folds the validation chain over seed, passing the submission to
// each callback. Same monotonicity contract as RunDetect.
func (h *Hooks) RunValidate(ctx context.Context, seed bool, userID string, sub Submission) (bool, error) {
	v := seed
	for _, f := range h.validate {
		var err error
		v, err = f(ctx, v, userID, sub)
		if err != nil {
			return v, err
		}
	}
	return v, nil
}
