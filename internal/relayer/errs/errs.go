// Package errs holds the error kinds returned by the relayer core.
//
// Every error leaving the core wraps exactly one of the sentinels below, so callers classify
// with errors.Is and the HTTP layer maps Code(err) to its payload.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrUnsupportedChain     = errors.New("unsupported chain")
	ErrConnectivity         = errors.New("chain endpoint unreachable")
	ErrMissingCredential    = errors.New("missing signing credential")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrUnknownFunction      = errors.New("unknown contract function")
	ErrNonceConflict        = errors.New("nonce conflict")
	ErrSubmissionRejected   = errors.New("submission rejected")
	ErrInvalidIntent        = errors.New("invalid transfer intent")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidTransactionID = errors.New("invalid transaction id")
)

// kindError attaches a sentinel kind to an underlying cause.
type kindError struct {
	kind  error
	cause error
	msg   string
}

func (e *kindError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.msg, e.kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.msg, e.kind, e.cause)
}

// Is reports the kind; the cause chain is still reachable through Unwrap.
func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.cause
}

// Wrap tags cause with kind. A nil cause yields a plain kind error carrying msg.
func Wrap(kind error, cause error, msg string) error {
	return &kindError{kind: kind, cause: cause, msg: msg}
}

// Wrapf is Wrap with a format string.
func Wrapf(kind error, cause error, format string, args ...interface{}) error {
	return Wrap(kind, cause, fmt.Sprintf(format, args...))
}

// New returns an error of the given kind without an underlying cause.
func New(kind error, msg string) error {
	return Wrap(kind, nil, msg)
}

// Newf is New with a format string.
func Newf(kind error, format string, args ...interface{}) error {
	return Wrap(kind, nil, fmt.Sprintf(format, args...))
}

var codes = []struct {
	kind error
	code string
}{
	{ErrUnsupportedChain, "UNSUPPORTED_CHAIN"},
	{ErrConnectivity, "CONNECTIVITY"},
	{ErrMissingCredential, "MISSING_CREDENTIAL"},
	{ErrInvalidAddress, "INVALID_ADDRESS"},
	{ErrInvalidTransaction, "INVALID_TRANSACTION"},
	{ErrUnknownFunction, "UNKNOWN_FUNCTION"},
	{ErrNonceConflict, "NONCE_CONFLICT"},
	{ErrSubmissionRejected, "SUBMISSION_REJECTED"},
	{ErrInvalidIntent, "INVALID_INTENT"},
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInvalidTransactionID, "INVALID_TRANSACTION_ID"},
}

// Code maps err to a stable machine readable code. Unclassified errors map to "INTERNAL".
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.kind) {
			return c.code
		}
	}
	return "INTERNAL"
}
