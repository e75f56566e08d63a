package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleHappyPath(t *testing.T) {
	var l Lifecycle
	assert.Equal(t, StateNotStarted, l.State())
	assert.False(t, l.Active())

	require.NoError(t, l.TransitionBegin())
	assert.Equal(t, StateActive, l.State())
	assert.True(t, l.Active())

	require.NoError(t, l.TransitionCommit())
	assert.Equal(t, StateCommitted, l.State())
	assert.False(t, l.Active())
}

func TestLifecycleRollback(t *testing.T) {
	var l Lifecycle
	require.NoError(t, l.TransitionBegin())
	require.NoError(t, l.TransitionRollback())
	assert.Equal(t, StateRolledBack, l.State())
}

func TestLifecycleIllegalTransitions(t *testing.T) {
	t.Run("commit before begin", func(t *testing.T) {
		var l Lifecycle
		assert.Error(t, l.TransitionCommit())
	})

	t.Run("rollback before begin", func(t *testing.T) {
		var l Lifecycle
		assert.Error(t, l.TransitionRollback())
	})

	t.Run("double begin", func(t *testing.T) {
		var l Lifecycle
		require.NoError(t, l.TransitionBegin())
		assert.Error(t, l.TransitionBegin())
	})

	t.Run("commit after rollback", func(t *testing.T) {
		var l Lifecycle
		require.NoError(t, l.TransitionBegin())
		require.NoError(t, l.TransitionRollback())
		assert.Error(t, l.TransitionCommit())
	})

	t.Run("begin after close", func(t *testing.T) {
		var l Lifecycle
		l.TransitionClose()
		assert.Error(t, l.TransitionBegin())
	})
}

func TestLifecycleCloseReportsPreviousState(t *testing.T) {
	var l Lifecycle
	require.NoError(t, l.TransitionBegin())

	// An active handle reports active so the backend can roll it back.
	assert.Equal(t, StateActive, l.TransitionClose())
	assert.Equal(t, StateClosed, l.State())

	// Close is idempotent.
	assert.Equal(t, StateClosed, l.TransitionClose())
	assert.Equal(t, StateClosed, l.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "not-started", StateNotStarted.String())
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "committed", StateCommitted.String())
	assert.Equal(t, "rolled-back", StateRolledBack.String())
	assert.Equal(t, "closed", StateClosed.String())
}
