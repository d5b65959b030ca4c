package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallLimiter_EnforcesMax(t *testing.T) {
	cl := NewCallLimiter(2)

	require.NoError(t, cl.Increment())
	require.NoError(t, cl.Increment())
	assert.Equal(t, 2, cl.Count())
	assert.Equal(t, 0, cl.Remaining())

	err := cl.Increment()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max provider calls")
}

func TestCallLimiter_Unlimited(t *testing.T) {
	cl := NewCallLimiter(0)
	for i := 0; i < 50; i++ {
		require.NoError(t, cl.Increment())
	}
	assert.Equal(t, 50, cl.Count())
	assert.Equal(t, -1, cl.Remaining())
}
