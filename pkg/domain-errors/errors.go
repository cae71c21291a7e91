// Package dErrors provides coded domain errors. Services construct these at
// the boundary between infrastructure facts (pkg/platform/sentinel) and
// caller-facing behavior, so handlers can map a code to a status without
// string matching.
package dErrors

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation: caller input failed structural or uniqueness
	// constraints. The message carries every violation, not just the first.
	CodeValidation Code = "validation"
	// CodeInvalidInput: a single malformed value at a trust boundary
	// (unparseable ID, empty secret).
	CodeInvalidInput Code = "invalid_input"
	// CodeInvariantViolation: an aggregate constructor rejected state that
	// would break a model invariant. Services usually re-code these as
	// CodeValidation before returning to callers.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeNotFound: a referenced entity does not exist.
	CodeNotFound Code = "not_found"
	// CodeConflict: a uniqueness or concurrent-modification conflict.
	CodeConflict Code = "conflict"
	// CodeDomainRule: a user-facing business rule failed (for example
	// feature resolution for a tenant with no edition). Key carries the
	// localization key for rendering.
	CodeDomainRule Code = "domain_rule"
	// CodeMisconfiguration: platform setup is broken (expected static role
	// or permission catalog missing). Fatal, not a user error.
	CodeMisconfiguration Code = "misconfiguration"
	// CodeDependency: an external collaborator (storage provisioner,
	// cipher, identity) reported failure.
	CodeDependency Code = "dependency"
	// CodeUnauthorized and CodeForbidden map to authentication and
	// authorization failures at the transport layer.
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	// CodeInternal: unexpected infrastructure failure.
	CodeInternal Code = "internal"
)

// Error is a coded domain error with optional cause and localization key.
type Error struct {
	Code    Code
	Message string
	Key     string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewWithKey constructs a coded error carrying a localization key alongside
// the already-rendered message.
func NewWithKey(code Code, key, message string) *Error {
	return &Error{Code: code, Key: key, Message: message}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err or anything it wraps carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	if de.Code == code {
		return true
	}
	return HasCode(de.cause, code)
}

// KeyOf returns the localization key of err, or "" if err carries none.
func KeyOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Key
	}
	return ""
}

// Validation builds a CodeValidation error from a multierror so the caller
// sees every violation. Returns nil when violations is nil or empty.
func Validation(violations *multierror.Error) error {
	if violations == nil || len(violations.Errors) == 0 {
		return nil
	}
	return &Error{Code: CodeValidation, Message: violations.Error(), cause: violations}
}

// Violations extracts the individual violation messages from a
// CodeValidation error built by Validation. Returns nil for other errors.
func Violations(err error) []string {
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return nil
	}
	msgs := make([]string, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
