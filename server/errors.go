package server

import (
	"errors"
	"net/http"

	"github.com/Desarso/docassist/models"
)

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string {
	return "invalid upload: " + e.err.Error()
}

func (e *badRequestError) Unwrap() error {
	return e.err
}

// StatusFor maps an action error to its HTTP status.
func StatusFor(err error) int {
	var bad *badRequestError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &bad), errors.Is(err, models.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, models.ErrUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrExtraction):
		return http.StatusUnprocessableEntity
	case models.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
