package errors

import (
	"errors"
	"net/http"

	"github.com/tsel-ticketmaster/tm-gate/pkg/status"
)

// ApplicativeError carries the HTTP status code and machine readable
// status alongside the human readable message, so use cases can fail
// with the exact envelope the HTTP edge should emit.
type ApplicativeError struct {
	HTTPStatusCode int
	Status         string
	Message        string
}

func (e *ApplicativeError) Error() string {
	return e.Message
}

func New(httpStatusCode int, status string, message string) error {
	return &ApplicativeError{
		HTTPStatusCode: httpStatusCode,
		Status:         status,
		Message:        message,
	}
}

// Destruct resolves any error into an ApplicativeError. Errors that are
// not applicative are masked as internal server errors so internals do
// not leak through the HTTP edge.
func Destruct(err error) *ApplicativeError {
	var ae *ApplicativeError
	if errors.As(err, &ae) {
		return ae
	}

	return &ApplicativeError{
		HTTPStatusCode: http.StatusInternalServerError,
		Status:         status.INTERNAL_SERVER_ERROR,
		Message:        err.Error(),
	}
}
