package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	step, ok, err := Next("/assessment/client")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "referral", step.ID)

	// IDs are accepted as well as routes
	step, ok, err = Next("behaviors")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "/assessment/goals", step.Route)
}

func TestNext_Last(t *testing.T) {
	last := steps[len(steps)-1]
	_, ok, err := Next(last.Route)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrev(t *testing.T) {
	step, ok, err := Prev("/assessment/referral")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "client", step.ID)

	_, ok, err = Prev("/assessment/client")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUnknownStep(t *testing.T) {
	_, _, err := Next("/billing")
	assert.ErrorIs(t, err, ErrUnknownStep)

	_, _, err = Prev("")
	assert.ErrorIs(t, err, ErrUnknownStep)
}

func TestSteps_Walk(t *testing.T) {
	all := Steps()
	require.NotEmpty(t, all)

	route := all[0].Route
	for i := 1; i < len(all); i++ {
		step, ok, err := Next(route)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, all[i], step)
		route = step.Route
	}

	// Steps returns a copy
	all[0].Title = "changed"
	assert.NotEqual(t, "changed", Steps()[0].Title)
}
