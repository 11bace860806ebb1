package httperrors

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github/chapool/relayer/internal/relayer/errs"
)

const (
	TypeGeneric  = "GENERIC"
	TypeNotReady = "NOT_READY"
)

var (
	ErrNotReady = NewHTTPError(521, TypeNotReady, "Not ready.")
)

// HTTPError is the JSON error payload of the management server.
type HTTPError struct {
	Code  int    `json:"status"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

func NewHTTPError(code int, errorType string, title string) *HTTPError {
	return &HTTPError{Code: code, Type: errorType, Title: title}
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

var statusByCode = map[string]int{
	"UNSUPPORTED_CHAIN":      http.StatusBadRequest,
	"INVALID_ADDRESS":        http.StatusBadRequest,
	"INVALID_TRANSACTION":    http.StatusBadRequest,
	"UNKNOWN_FUNCTION":       http.StatusBadRequest,
	"INVALID_INTENT":         http.StatusBadRequest,
	"INVALID_AMOUNT":         http.StatusBadRequest,
	"INVALID_TRANSACTION_ID": http.StatusBadRequest,
	"NONCE_CONFLICT":         http.StatusConflict,
	"SUBMISSION_REJECTED":    http.StatusUnprocessableEntity,
	"CONNECTIVITY":           http.StatusBadGateway,
	"MISSING_CREDENTIAL":     http.StatusServiceUnavailable,
}

// FromError maps err to an HTTPError. Relayer error kinds keep their code as type; anything
// unclassified becomes a 500 without leaking its message.
func FromError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return NewHTTPError(echoErr.Code, TypeGeneric, http.StatusText(echoErr.Code))
	}

	code := errs.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		return NewHTTPError(http.StatusInternalServerError, TypeGeneric, http.StatusText(http.StatusInternalServerError))
	}

	return NewHTTPError(status, code, err.Error())
}
