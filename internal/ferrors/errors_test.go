package ferrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage("failed to write page", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindStorage, KindOf(err))
	assert.Contains(t, err.Error(), "disk full")
}

func TestIsNotFound(t *testing.T) {
	err := NotFound("audit record")

	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestAs(t *testing.T) {
	err := SigningMissing("keystore missing ed25519_private")

	appErr, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, KindSigningMissing, appErr.Kind)
}
