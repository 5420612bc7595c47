package client

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of registry failure classes.
type ErrorKind string

const (
	// KindBlocked means the registry refuses this client; fatal for a whole batch
	KindBlocked ErrorKind = "blocked"
	// KindInvalidReply means the reply parsed but lacks a checkVatResponse
	KindInvalidReply ErrorKind = "invalid_reply"
	// KindParseError means the reply body could not be parsed as XML
	KindParseError ErrorKind = "parse_error"
	// KindTransport covers no content, error status, timeout and abort
	KindTransport ErrorKind = "transport"
)

// Raw diagnostic tokens carried by RegistryError.
const (
	TokenBlocked    = "IP_BLOCKED"
	TokenInvalid    = "invalid"
	TokenParseError = "parsererror"
	TokenNoContent  = "nocontent"
	TokenError      = "error"
	TokenTimeout    = "timeout"
	TokenAbort      = "abort"
)

// RegistryError is the only error type Verify returns.
type RegistryError struct {
	Kind ErrorKind
	// Token is the raw underlying status, kept for diagnostics
	Token string
	Err   error
}

func (e *RegistryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("registry %s (%s): %v", e.Kind, e.Token, e.Err)
	}
	return fmt.Sprintf("registry %s (%s)", e.Kind, e.Token)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the scheduler may try the same identifier again.
// Only a blocked client is final; the scheduler aborts the batch on it.
func (e *RegistryError) Retryable() bool {
	return e.Kind != KindBlocked
}

func newRegistryError(kind ErrorKind, token string, err error) *RegistryError {
	return &RegistryError{Kind: kind, Token: token, Err: err}
}

// KindOf extracts the failure class; unclassified errors count as transport failures.
func KindOf(err error) ErrorKind {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindTransport
}

// TokenOf extracts the raw diagnostic token, falling back to the error text.
func TokenOf(err error) string {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Token
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
