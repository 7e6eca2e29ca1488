package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeDriver, "scroll"))

	cause := errors.New("target closed")
	err := Wrap(cause, ErrorTypeDriver, "scroll to bottom")
	assert.EqualError(t, err, "driver error: scroll to bottom: target closed")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrorTypeDriver, TypeOf(err))

	outer := fmt.Errorf("collect: %w", err)
	assert.Equal(t, ErrorTypeDriver, TypeOf(outer))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(context.Canceled))
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{New(ErrorTypeParsing, "bad node"), false},
		{New(ErrorTypeFetch, "status 404"), false},
		{New(ErrorTypeLoginTimeout, "no login"), true},
		{New(ErrorTypeNavigation, "no bookmarks"), true},
		{errors.New("plain"), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsFatal(tt.err), "%v", tt.err)
	}
}
