package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashAndVerify(t *testing.T) {
	hash, err := HashPassword("correct-horse")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse", hash)

	require.True(t, VerifyPassword("correct-horse", hash))
	require.False(t, VerifyPassword("wrong", hash))
	require.False(t, VerifyPassword("correct-horse", "not-a-hash"))
}

func TestPasswordHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("correct-horse")
	require.NoError(t, err)
	h2, err := HashPassword("correct-horse")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
