package errors

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusForCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{ErrCodeInternal, 500},
		{ErrCodeBadRequest, 400},
		{ErrCodeNotFound, 404},
		{ErrCodeInvalidConfig, 400},
		{ErrCodeUnsupportedFormat, 415},
		{ErrCodeAcceleratorAlloc, 507},
		{ErrorCode("NOPE_001"), 500},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, HTTPStatusForCode(tt.code), tt.code)
	}
}

func TestDefaultMessageForCode(t *testing.T) {
	assert.Equal(t, "atom radius must be positive", DefaultMessageForCode(ErrCodeInvalidRadius))
	assert.Equal(t, "unknown error", DefaultMessageForCode(ErrorCode("NOPE_001")))
}

func TestClientServerSplit(t *testing.T) {
	assert.True(t, IsClientError(ErrCodeChannelOutOfRange))
	assert.False(t, IsClientError(ErrCodeGridBufferSize))
	assert.True(t, IsServerError(ErrCodeGridBufferSize))
}

func TestModuleForCode(t *testing.T) {
	assert.Equal(t, ModuleCommon, ModuleForCode(ErrCodeInternal))
	assert.Equal(t, ModuleSetup, ModuleForCode(ErrCodeUnknownAtomType))
	assert.Equal(t, ModuleParse, ModuleForCode(ErrCodeStructureMalformed))
	assert.Equal(t, ModuleGeometry, ModuleForCode(ErrCodeInvalidRadius))
	assert.Equal(t, ModuleResource, ModuleForCode(ErrCodeAcceleratorAlloc))
	assert.Equal(t, "UNKNOWN", ModuleForCode(""))
	assert.Equal(t, "OK", ModuleForCode(CodeOK))
}

func TestErrorCodeFormat_Convention(t *testing.T) {
	pattern := regexp.MustCompile(`^[A-Z]+_\d{3}$`)
	for code := range ErrorCodeHTTPStatus {
		assert.Regexp(t, pattern, string(code))
		_, ok := ErrorCodeMessage[code]
		assert.True(t, ok, "missing message for %s", code)
	}
}

//Personal.AI order the ending
