// Package ai talks to the external text-generation services that write
// diary replies.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator turns one prompt into one reply. Every non-nil error it
// returns is an *Error.
type Generator interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Error is the single failure type of the reply client. Network, auth,
// quota and malformed-response failures all collapse into it.
type Error struct {
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrEmptyReply is wrapped when a service answers with no text.
var ErrEmptyReply = errors.New("empty reply")

func newError(provider string, err error) *Error {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr
	}
	return &Error{Provider: provider, Message: err.Error(), Err: err}
}

// guard runs call and converts its failures, including panics inside the
// provider SDK, into *Error.
func guard(ctx context.Context, provider string, call func(ctx context.Context) (string, error)) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = ""
			err = &Error{Provider: provider, Message: fmt.Sprintf("panic: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return "", newError(provider, err)
	}

	reply, err = call(ctx)
	if err != nil {
		return "", newError(provider, err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", newError(provider, ErrEmptyReply)
	}
	return reply, nil
}
