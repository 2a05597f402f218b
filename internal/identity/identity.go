// Package identity verifies bearer tokens issued by the external identity
// provider and removes principals from it.
package identity

import (
	"context"
	"errors"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrExpired      = errors.New("token expired")
	ErrMalformed    = errors.New("malformed token")
	ErrUnverifiable = errors.New("unverifiable token")
)

// MaxSubjectLength bounds the subject identifier the provider may issue.
const MaxSubjectLength = 128

// Identity is the verified principal carried by a request.
type Identity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	Name          string
}

// Verifier validates a raw bearer token and returns the principal it names.
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Reason returns the short rejection label used in logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unverifiable"
	}
}

// Message returns the client-facing rejection text for err.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "No token provided. Authorization denied."
	case errors.Is(err, ErrExpired):
		return "Token expired. Please re-authenticate."
	case errors.Is(err, ErrMalformed):
		return "Invalid token provided."
	default:
		return "Unauthorized. Invalid token."
	}
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
