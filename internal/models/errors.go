package models

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no session credential is held. The call is
	// refused before any network traffic happens.
	ErrUnauthenticated = errors.New("no session credential")

	// ErrSessionExpired means the server rejected the credential mid-session.
	// The credential is already invalidated when this error is returned.
	ErrSessionExpired = errors.New("session expired, re-authentication required")
)

// RemoteError is a non-success response from the registry API carrying the
// server-supplied reason, if any.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("registry rejected request (status %d): %s", e.Status, e.Message)
}

// TransportError is a connect or handshake failure on the push channel.
type TransportError struct {
	Attempt int
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("sync channel transport failure (attempt %d): %v", e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError is a local precondition failure. It never reaches the
// network layer.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// IsValidationError reports whether err is a local validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
