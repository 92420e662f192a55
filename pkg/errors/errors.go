package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound  = errors.New("document not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrMissingProcessKey = errors.New("missing process key")
	ErrStaleChunk        = errors.New("stale chunk submission")
	ErrRunNotFound       = errors.New("run not found")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
)

// Titles shown to the user alongside the message text.
const (
	TitleDataError    = "Data Error"
	TitleUnknownError = "Unknown Error"
)

const (
	MessageDataMissing    = "There was some data missing while processing the site content, please refresh the page and try again."
	MessageDataIncomplete = "The data is incomplete for processing the request, please reload the page and try again."
)

type AppError struct {
	Err        error
	Title      string
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// DataError is the validation failure returned before any run state is touched.
func DataError(sentinel error) *AppError {
	return &AppError{
		Err:        sentinel,
		Title:      TitleDataError,
		Message:    MessageDataMissing,
		StatusCode: http.StatusBadRequest,
	}
}

func UnknownError(sentinel error) *AppError {
	return &AppError{
		Err:        sentinel,
		Title:      TitleUnknownError,
		Message:    MessageDataIncomplete,
		StatusCode: http.StatusBadRequest,
	}
}

// TitleAndText returns the user facing pair for err.
func TitleAndText(err error) (string, string) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Title != "" {
		return appErr.Title, appErr.Message
	}
	return TitleUnknownError, MessageDataIncomplete
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStaleChunk):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMissingProcessKey):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
