package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorMessage(t *testing.T) {
	cause := errors.New("disk full")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", New(CodeNotFound, "constant not found"), "[NOT_FOUND] constant not found"},
		{"formatted", Newf(CodeNotSupported, "unsupported file type: %s", "x.py"), "[NOT_SUPPORTED] unsupported file type: x.py"},
		{"wrapped", Wrap(cause, CodeInternal, "write failed"), "[INTERNAL_ERROR] write failed: disk full"},
		{
			"sorted context",
			AddContext(AddContext(New(CodeConflict, "ambiguous"), CtxPath, "a.rb"), CtxConstant, "::Order"),
			"[CONFLICT] ambiguous (constant=::Order, path=a.rb)",
		},
		{
			"context key overwritten",
			AddContext(AddContext(New(CodeConflict, "ambiguous"), CtxPath, "a.rb"), CtxPath, "b.rb"),
			"[CONFLICT] ambiguous (path=b.rb)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestCodes(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeInternal, "write failed")
	assert.ErrorIs(t, err, cause)

	validation := fmt.Errorf("load: %w", New(CodeValidationError, "invalid input"))
	assert.True(t, IsCode(validation, CodeValidationError))
	assert.False(t, IsCode(validation, CodeNotFound))
	assert.Equal(t, CodeValidationError, CodeOf(validation))

	assert.False(t, IsCode(errors.New("plain"), CodeInternal))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestAddContext(t *testing.T) {
	err := AddContext(errors.New("boom"), CtxOperation, "scan")
	assert.True(t, IsCode(err, CodeInternal))

	// Context lands on the DomainError inside a fmt wrapper.
	inner := New(CodeNotFound, "missing")
	outer := AddContext(fmt.Errorf("resolve: %w", inner), CtxConstant, "::Order")

	var de *DomainError
	require.ErrorAs(t, outer, &de)
	value, ok := de.Value(CtxConstant)
	require.True(t, ok)
	assert.Equal(t, "::Order", value)
	_, ok = de.Value(CtxPath)
	assert.False(t, ok)
}
