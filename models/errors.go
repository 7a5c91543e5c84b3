package models

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a fatal startup problem such as a missing credential.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedType is returned for uploads that are neither images nor PDFs.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrExtraction is returned when a document cannot be opened at all.
	ErrExtraction = errors.New("document extraction failed")
	// ErrEmptyInput is returned when there is no text and no usable attachment.
	ErrEmptyInput = errors.New("empty input")
	// ErrInvalidTurn is returned when a malformed exchange is appended.
	ErrInvalidTurn = errors.New("invalid turn")
	// ErrUploadTooLarge is returned for uploads over MaxUploadBytes.
	ErrUploadTooLarge = errors.New("upload too large")
	// ErrBusy is returned when an action arrives while a submission is in flight.
	ErrBusy = errors.New("a request is already being processed")
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("session not found")
)

// RemoteServiceError wraps a failed chat-completion call. The message of the
// underlying error is kept verbatim.
type RemoteServiceError struct {
	Provider string
	Err      error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// IsRemote reports whether err came from the remote completion service.
func IsRemote(err error) bool {
	var remote *RemoteServiceError
	return errors.As(err, &remote)
}

// ConfigError builds a configuration error with context.
func ConfigError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
