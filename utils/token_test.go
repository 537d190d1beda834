package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyJWT(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	token, err := GenerateToken("42", "user")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "user", claims.Role)
}

func TestVerifyJWTRejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	_, err := VerifyToken("not.a.token")
	assert.Error(t, err)
}

func TestVerifyJWTRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-a")
	token, err := GenerateToken("1", "user")
	require.NoError(t, err)

	t.Setenv("JWT_SECRET", "secret-b")
	_, err = VerifyToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, CheckPassword(hash, "s3cret-pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestShareTokenRoundTrip(t *testing.T) {
	token, err := GenerateShareToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)

	hash, err := HashShareToken(token)
	require.NoError(t, err)
	assert.True(t, VerifyShareToken(hash, token))
	assert.False(t, VerifyShareToken(hash, "forged"))
	assert.False(t, VerifyShareToken("", token))
}

func TestShareSlugsAreUnique(t *testing.T) {
	a, err := GenerateShareSlug()
	require.NoError(t, err)
	b, err := GenerateShareSlug()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
