package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	phc, err := HashSecret("s3cret", "pepper")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	ok, err := VerifySecret("s3cret", "pepper", phc)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySecret("wrong", "pepper", phc)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = VerifySecret("s3cret", "other-pepper", phc)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashSecret_Empty(t *testing.T) {
	_, err := HashSecret("", "pepper")
	assert.Error(t, err)
}

func TestVerifySecret_Malformed(t *testing.T) {
	for _, phc := range []string{
		"",
		"$bcrypt$v=19$m=1,t=1,p=1$aa$bb",
		"$argon2id$v=19$garbage$aa$bb",
		"$argon2id$v=19$m=16384,t=2,p=1$!!$bb",
	} {
		_, err := VerifySecret("x", "y", phc)
		assert.ErrorIs(t, err, ErrInvalidPHC, phc)
	}
}
