package exception

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreErrorFormatting(t *testing.T) {
	cause := errors.New("disk full")
	err := NewStoreError("repository", "failed to store connector", cause)

	assert.Equal(t, "[repository] failed to store connector: disk full", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, err.StackTrace)
}

func TestStoreErrorWithoutCause(t *testing.T) {
	err := NewStoreError("model", "no cause here", nil)
	assert.Equal(t, "[model] no cause here", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestNewStoreErrorfExtractsTrailingError(t *testing.T) {
	cause := errors.New("boom")
	err := NewStoreErrorf("upgrade", "migrating job %d", 42, cause)

	assert.Equal(t, "migrating job 42", err.Message)
	assert.ErrorIs(t, err, cause)
}

func TestClassifiedConstructors(t *testing.T) {
	dup := NewDuplicateEntity("repository", "connector exists", nil)
	assert.True(t, IsDuplicateEntity(dup))
	assert.False(t, IsEntityNotFound(dup))

	missing := NewEntityNotFound("repository", "no such job", nil)
	assert.True(t, IsEntityNotFound(missing))
	assert.False(t, IsDuplicateEntity(missing))

	unsupported := NewUnsupportedInputType("model", "weird variant")
	assert.ErrorIs(t, unsupported, ErrUnsupportedInputType)

	cause := errors.New("value mapping failed")
	failed := NewUpgradeFailure("upgrade", "connector upgrade failed", cause)
	assert.True(t, IsUpgradeFailure(failed))
	assert.ErrorIs(t, failed, cause)
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	inner := NewEntityNotFound("repository", "connection 7 does not exist", nil)
	wrapped := fmt.Errorf("updating connection: %w", inner)

	assert.True(t, IsEntityNotFound(wrapped))

	var se *StoreError
	require.True(t, errors.As(wrapped, &se))
	assert.Equal(t, "repository", se.Module)
}

func TestExtractErrorMessage(t *testing.T) {
	assert.Equal(t, "", ExtractErrorMessage(nil))
	assert.Equal(t, "plain", ExtractErrorMessage(errors.New("plain")))

	se := NewStoreError("config", "bad yaml", errors.New("line 3"))
	assert.Equal(t, "bad yaml", ExtractErrorMessage(se))
}
