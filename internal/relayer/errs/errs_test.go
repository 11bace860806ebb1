package errs_test

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/relayer/errs"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	err := errs.Wrap(errs.ErrConnectivity, io.ErrUnexpectedEOF, "failed to dial chain 1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConnectivity))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, errs.ErrUnsupportedChain))
	assert.Equal(t, "failed to dial chain 1: chain endpoint unreachable: unexpected EOF", err.Error())
}

func TestKindSurvivesPkgErrorsWrap(t *testing.T) {
	err := errors.Wrap(errs.Newf(errs.ErrUnsupportedChain, "chain %d", 5), "failed to resolve")

	assert.True(t, errors.Is(err, errs.ErrUnsupportedChain))
	assert.Equal(t, "UNSUPPORTED_CHAIN", errs.Code(err))
}

func TestCode(t *testing.T) {
	assert.Equal(t, "", errs.Code(nil))
	assert.Equal(t, "INTERNAL", errs.Code(io.EOF))
	assert.Equal(t, "NONCE_CONFLICT", errs.Code(errs.New(errs.ErrNonceConflict, "nonce too low")))
	assert.Equal(t, "SUBMISSION_REJECTED", errs.Code(errs.ErrSubmissionRejected))
	assert.Equal(t, "UNKNOWN_FUNCTION", errs.Code(errs.Wrap(errs.ErrUnknownFunction, nil, "mint")))
}
