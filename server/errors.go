package server

import (
	"net/http"
	"strings"

	"github.com/teranos/framemark/errors"
)

// errNoWorkspace is returned by commands that need an open store.
var errNoWorkspace = errors.WithHint(
	errors.NewInvalidRequestError("no workspace open"),
	"send an init command first",
)

// errorCode classifies err for clients. Unknown errors are "internal".
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, errors.ErrMismatch):
		return "mismatch", http.StatusConflict
	case errors.IsStale(err):
		return "stale", http.StatusConflict
	case errors.Is(err, errors.ErrNotCalibrated):
		return "not_calibrated", http.StatusPreconditionFailed
	case errors.Is(err, errors.ErrNoImages):
		return "no_images", http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrTransformFailed):
		return "transform_failed", http.StatusBadGateway
	case errors.Is(err, errors.ErrInvalidRequest):
		return "invalid_request", http.StatusBadRequest
	default:
		return "internal", http.StatusInternalServerError
	}
}

// newErrorBody builds the wire form of err, hints included.
func newErrorBody(err error) *ErrorBody {
	code, _ := errorCode(err)
	return &ErrorBody{
		Code:    code,
		Message: err.Error(),
		Hint:    strings.Join(errors.GetAllHints(err), "; "),
	}
}
