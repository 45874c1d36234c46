package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/molgrid/pkg/errors"
)

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"setup", errors.ErrCodeInvalidConfig, "resolution must be positive"},
		{"parse", errors.ErrCodeStructureMalformed, "short record"},
		{"geometry", errors.ErrCodeInvalidRadius, "radius 0"},
		{"resource", errors.ErrCodeAcceleratorAlloc, "out of device memory"},
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
			assert.Contains(t, ae.Stack, "errors_test.go")
		})
	}
}

func TestAppError_ErrorFormat(t *testing.T) {
	ae := errors.New(errors.ErrCodeUnknownAtomType, "unknown atom type")
	assert.Equal(t, "[SETUP_004] unknown atom type", ae.Error())

	withDetail := ae.WithDetail("Carbonish")
	assert.Equal(t, "[SETUP_004] unknown atom type: Carbonish", withDetail.Error())
	assert.Empty(t, ae.Detail, "WithDetail must not mutate the receiver")

	wrapped := errors.Wrap(stderrors.New("eof"), errors.ErrCodeStructureMalformed, "read record")
	assert.Equal(t, "[PARSE_002] read record: eof", wrapped.Error())
}

func TestWithDetailf(t *testing.T) {
	ae := errors.New(errors.ErrCodeListMalformed, "bad line").WithDetailf("line %d", 7)
	assert.Equal(t, "line 7", ae.Detail)
}

func TestNilSafeBuilders(t *testing.T) {
	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrCodeInternal, "x"))
}

func TestWrap_UnknownPreservesCode(t *testing.T) {
	inner := errors.New(errors.ErrCodeInvalidRadius, "radius 0")
	outer := errors.Wrap(inner, errors.CodeUnknown, "rasterize")
	assert.Equal(t, errors.ErrCodeInvalidRadius, outer.Code)
	assert.True(t, stderrors.Is(outer, inner))
}

func TestIsCode_TraversesChain(t *testing.T) {
	inner := errors.New(errors.ErrCodeAcceleratorAlloc, "alloc")
	mid := fmt.Errorf("forward: %w", inner)
	outer := errors.Wrap(mid, errors.ErrCodeInternal, "batch")

	assert.True(t, errors.IsCode(outer, errors.ErrCodeInternal))
	assert.True(t, errors.IsCode(outer, errors.ErrCodeAcceleratorAlloc))
	assert.False(t, errors.IsCode(outer, errors.ErrCodeInvalidRadius))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.ErrCodeInternal))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.ErrCodeListUnreadable, errors.GetCode(errors.New(errors.ErrCodeListUnreadable, "x")))
}

func TestTaxonomyClassifiers(t *testing.T) {
	setup := errors.New(errors.ErrCodeEmptyExampleSet, "no decoys")
	parse := errors.New(errors.ErrCodeAtomListMismatch, "3 vs 2")
	geom := errors.New(errors.ErrCodeChannelOutOfRange, "channel 40")
	res := errors.New(errors.ErrCodeAcceleratorAlloc, "alloc")

	assert.True(t, errors.IsSetupError(setup))
	assert.False(t, errors.IsSetupError(parse))
	assert.True(t, errors.IsParseError(parse))
	assert.True(t, errors.IsGeometryError(geom))
	assert.True(t, errors.IsResourceError(res))

	// classification survives a non-taxonomy wrapper
	wrapped := errors.Wrap(geom, errors.ErrCodeInternal, "forward")
	assert.True(t, errors.IsGeometryError(wrapped))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, errors.IsNotFound(errors.NotFound("x")))
	assert.True(t, errors.IsNotFound(errors.New(errors.ErrCodeCacheMiss, "miss")))
	assert.False(t, errors.IsNotFound(errors.Internal("x")))
}

func TestConvenienceFactories(t *testing.T) {
	assert.Equal(t, errors.ErrCodeBadRequest, errors.InvalidParam("x").Code)
	assert.Equal(t, errors.ErrCodeInternal, errors.Internal("x").Code)
	assert.Equal(t, "radius -1", errors.Newf(errors.ErrCodeInvalidRadius, "radius %d", -1).Message)
}

//Personal.AI order the ending
