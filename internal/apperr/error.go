// Package apperr classifies every error the coordinator can return to a
// caller into a stable kind string plus optional structured detail, per
// the error taxonomy of the coordination contract: value/economic errors
// and authorization failures are surfaced verbatim, chain errors carry
// the indexer's diagnostic, and internal invariant violations never leak
// as an opaque stack.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error classification. Callers should
// switch on Kind, never on Error() text.
type Kind string

const (
	// Input validation
	MissingParams       Kind = "missing_params"
	InvalidMode         Kind = "invalid_mode"
	InvalidAddress      Kind = "invalid_address"
	InvalidScript       Kind = "invalid_script"
	InvalidUnit         Kind = "invalid_unit"
	InvalidWitnessCbor  Kind = "invalid_witness_cbor"

	// Authorization
	SignerNotAllowedKind Kind = "signer_not_allowed"

	// Resource state
	SessionNotFoundKind   Kind = "session_not_found"
	NotEnoughWitnessesKind Kind = "not_enough_witnesses"

	// Value / economic
	InsufficientAdaKind    Kind = "insufficient_ada"
	InsufficientTokensKind Kind = "insufficient_tokens"
	ChangeBelowMinAdaKind  Kind = "change_below_min_ada"

	// External
	ChainErrorKind     Kind = "chain_error"
	SubmitRejectedKind Kind = "submit_rejected"
)

// Error is the structured error every public coordinator operation
// returns instead of an opaque error chain.
type Error struct {
	Kind    Kind
	Message string
	Detail  map[string]any
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with no detail or cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an Error that attributes message to an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithDetail attaches structured detail and returns the same Error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Detail == nil {
		e.Detail = make(map[string]any)
	}
	e.Detail[key] = value
	return e
}

// SignerNotAllowed builds the authorization failure carrying both the
// accepted and ignored key-hash sets for diagnosis.
func SignerNotAllowed(accepted, ignored []string) *Error {
	return New(SignerNotAllowedKind, "no submitted witness matched the session's required key hashes").
		WithDetail("accepted", accepted).
		WithDetail("ignored", ignored)
}

// NotEnoughWitnesses builds the resource-state failure for a premature submit.
func NotEnoughWitnesses(collected, required int) *Error {
	return New(NotEnoughWitnessesKind, "not enough witnesses collected to submit").
		WithDetail("collected", collected).
		WithDetail("required", required)
}

// SessionNotFound builds the resource-state failure for an unknown session id.
func SessionNotFound(sessionID string) *Error {
	return New(SessionNotFoundKind, "no session with this id").WithDetail("session_id", sessionID)
}

// SubmitRejected builds the external failure for a non-2xx submit response.
func SubmitRejected(diagnostic string) *Error {
	return New(SubmitRejectedKind, "the chain node rejected the submitted transaction").
		WithDetail("diagnostic", diagnostic)
}

// Is reports whether err is an *Error of the given kind, unwrapping once.
func Is(err error, kind Kind) bool {
	ae, ok := err.(*Error)
	if !ok {
		ae, ok = errors.Unwrap(err).(*Error)
	}
	return ok && ae.Kind == kind
}
