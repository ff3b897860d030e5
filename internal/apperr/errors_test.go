package apperr

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapClassifiesOSErrors(t *testing.T) {
	_, err := os.ReadFile("/definitely/not/here.md")
	require.Error(t, err)
	wrapped := Wrap("read", "/definitely/not/here.md", err)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, err.Error(), wrapped.Error(), "message must be the OS text verbatim")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap("op", "p", nil))
}

func TestWrapKeepsTaggedErrors(t *testing.T) {
	orig := New(KindProtected, "move", "01_Inbox", "cannot move a system folder")
	assert.Same(t, orig, Wrap("other", "x", orig))
}

func TestSentinelMatching(t *testing.T) {
	cases := []struct {
		kind     Kind
		sentinel error
	}{
		{KindConflict, ErrConflict},
		{KindConflict, ErrAlreadyExists},
		{KindValidation, ErrValidation},
		{KindRecursive, ErrRecursive},
		{KindTransport, ErrTransport},
	}
	for _, c := range cases {
		err := fmt.Errorf("outer: %w", New(c.kind, "op", "", "msg"))
		assert.ErrorIs(t, err, c.sentinel, "kind %v", c.kind)
	}
	assert.NotErrorIs(t, New(KindConflict, "op", "", "msg"), ErrNotFound)
}

func TestKindOfForeign(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
