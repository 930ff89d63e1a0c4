package restore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratedPasswordsAreFreshPerUser(t *testing.T) {
	src := GeneratedPasswords{}

	first, err := src.TemporaryPassword("alice")
	require.NoError(t, err)
	second, err := src.TemporaryPassword("alice")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.GreaterOrEqual(t, len(first), 16)
}

func TestStaticPasswordIsShared(t *testing.T) {
	src := StaticPassword("SharedTemp1!")

	first, err := src.TemporaryPassword("alice")
	require.NoError(t, err)
	second, err := src.TemporaryPassword("bob")
	require.NoError(t, err)

	assert.Equal(t, "SharedTemp1!", first)
	assert.Equal(t, first, second)
}
