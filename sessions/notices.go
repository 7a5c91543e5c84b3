package sessions

import (
	"errors"

	"github.com/Desarso/docassist/models"
)

// NoticeFor turns an error into the message shown to the user. Local,
// recoverable problems are warnings; remote failures and internal faults
// are errors. A nil error has no notice.
func NoticeFor(err error) *models.Notice {
	if err == nil {
		return nil
	}

	var remote *models.RemoteServiceError
	switch {
	case errors.Is(err, models.ErrEmptyInput):
		return warning("Please enter a question or attach a file.")
	case errors.Is(err, models.ErrBusy):
		return warning("Please wait until the current answer has arrived.")
	case errors.Is(err, models.ErrUploadTooLarge):
		return warning("The file is too large. Uploads are limited to 10 MB.")
	case errors.Is(err, models.ErrUnsupportedType):
		return warning("This file type is not supported here. " + err.Error())
	case errors.Is(err, models.ErrExtraction):
		return warning("The document could not be read. Please try another file. " + err.Error())
	case errors.Is(err, models.ErrInvalidTurn):
		return &models.Notice{Level: models.NoticeError, Message: "Internal error: " + err.Error()}
	case errors.As(err, &remote):
		return &models.Notice{Level: models.NoticeError, Message: remote.Error()}
	default:
		return &models.Notice{Level: models.NoticeError, Message: err.Error()}
	}
}

func warning(message string) *models.Notice {
	return &models.Notice{Level: models.NoticeWarning, Message: message}
}
