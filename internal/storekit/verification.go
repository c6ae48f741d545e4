package storekit

import (
	"errors"
	"fmt"
)

// ErrFailedVerification is returned when a signed payload did not pass the
// store backend's verification.
var ErrFailedVerification = errors.New("transaction failed verification")

// VerificationResult is the tagged envelope every signed record crosses
// the boundary in. There is no default payload: callers must go through
// Unwrap and handle the unverified variant explicitly.
type VerificationResult[T any] struct {
	verified bool
	value    T
	signed   string
	err      error
}

// Verified wraps a payload that passed verification together with its
// signed (JWS) representation.
func Verified[T any](value T, signed string) VerificationResult[T] {
	return VerificationResult[T]{verified: true, value: value, signed: signed}
}

// Unverified wraps a verification failure. The payload is unusable. The
// returned result always unwraps to an error matching ErrFailedVerification.
func Unverified[T any](err error) VerificationResult[T] {
	switch {
	case err == nil:
		err = ErrFailedVerification
	case !errors.Is(err, ErrFailedVerification):
		err = fmt.Errorf("%w: %v", ErrFailedVerification, err)
	}
	return VerificationResult[T]{err: err}
}

// IsVerified reports which variant this result carries.
func (r VerificationResult[T]) IsVerified() bool {
	return r.verified
}

// Unwrap returns the payload and its signed representation, or the
// verification error for the unverified variant.
func (r VerificationResult[T]) Unwrap() (T, string, error) {
	if !r.verified {
		var zero T
		if r.err == nil {
			return zero, "", ErrFailedVerification
		}
		return zero, "", r.err
	}
	return r.value, r.signed, nil
}
