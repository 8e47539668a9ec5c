package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/fishlwr/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"no table", errors.ErrCodeNoTableFound, "detail page has no tables"},
		{"invalid param", errors.CodeInvalidParam, "length must be positive"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ae := errors.New(tc.code, tc.message)
			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestNewf(t *testing.T) {
	t.Parallel()
	ae := errors.Newf(errors.ErrCodeInsufficientData, "need 2 samples, got %d", 1)
	assert.Equal(t, "need 2 samples, got 1", ae.Message)
}

func TestError_Format(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[LWR_003] no tables", errors.New(errors.ErrCodeNoTableFound, "no tables").Error())
	assert.Equal(t, "[LWR_003] no tables: id=344",
		errors.New(errors.ErrCodeNoTableFound, "no tables").WithDetail("id=344").Error())

	wrapped := errors.Wrap(fmt.Errorf("dial tcp: refused"), errors.ErrCodeFetchConnection, "fetch failed")
	assert.Equal(t, "[FET_003] fetch failed: dial tcp: refused", wrapped.Error())
}

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("root DB error")
	wrapped := errors.Wrap(root, errors.CodeDBConnectionError, "connection failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.CodeDBConnectionError, wrapped.Code)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
	assert.True(t, stderrors.Is(wrapped, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeNonConvergent, "solver stalled")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")
	assert.Equal(t, errors.ErrCodeNonConvergent, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.ErrCodeFetchTimeout, "timeout")
	outer := errors.Wrap(inner, errors.ErrCodeEntityFetchFailed, "fetch failed")
	assert.Equal(t, errors.ErrCodeEntityFetchFailed, outer.Code)
	assert.True(t, errors.IsCode(outer, errors.ErrCodeFetchTimeout))
}

func TestWithDetailAndCause_NilSafe(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))

	base := errors.Internal("boom")
	withCause := base.WithCause(stderrors.New("cause"))
	assert.Nil(t, base.Cause, "original must not be mutated")
	assert.NotNil(t, withCause.Cause)
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeDegenerateFit,
		errors.GetCode(fmt.Errorf("ctx: %w", errors.New(errors.ErrCodeDegenerateFit, "flat"))))
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeSpeciesNotFound, "x")))
	assert.True(t, errors.IsNotFound(errors.Wrap(errors.NotFound("x"), errors.CodeInternal, "wrapped")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestFactories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeInvalidParam, errors.InvalidParam("x").Code)
	assert.Equal(t, errors.CodeConflict, errors.Conflict("x").Code)
	assert.Equal(t, errors.CodeRateLimit, errors.RateLimit("x").Code)
	assert.NotEmpty(t, errors.Internal("x").Stack)
}

//Personal.AI order the ending
