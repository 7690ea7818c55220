package errors

import (
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFiltersNils(t *testing.T) {
	err := New(nil, nil)
	assert.NoError(t, err)
}

func TestNewSingleErrorUnwrapped(t *testing.T) {
	sentinel := goerrors.New("boom")
	err := New(sentinel, nil)
	assert.Same(t, sentinel, err)
}

func TestNewJoinsMultiple(t *testing.T) {
	a := goerrors.New("a failed")
	b := goerrors.New("b failed")
	err := New(a, nil, b)
	require.Error(t, err)

	var me *MultiError
	require.ErrorAs(t, err, &me)
	assert.Len(t, me.Errors, 2)
	assert.True(t, goerrors.Is(err, a))
	assert.True(t, goerrors.Is(err, b))
}
