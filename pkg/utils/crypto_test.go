package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := Encrypt([]byte("access-token-value"), testKey)
	require.NoError(t, err)
	assert.NotEqual(t, "access-token-value", encrypted)

	decrypted, err := Decrypt(encrypted, testKey)
	require.NoError(t, err)
	assert.Equal(t, "access-token-value", decrypted)
}

func TestEncryptProducesUniqueCiphertext(t *testing.T) {
	first, err := Encrypt([]byte("same input"), testKey)
	require.NoError(t, err)
	second, err := Encrypt([]byte("same input"), testKey)
	require.NoError(t, err)

	// Nonce is random per call.
	assert.NotEqual(t, first, second)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	encrypted, err := Encrypt([]byte("secret"), testKey)
	require.NoError(t, err)

	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	_, err = Decrypt(encrypted, otherKey)
	assert.Error(t, err)
}

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("jwt-secret", "42", "7", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("jwt-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "7", claims.WorkspaceID)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken("jwt-secret", "42", "7", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("jwt-secret", "42", "7", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken("jwt-secret", token)
	assert.Error(t, err)
}

func TestStateTokenCarriesCodeVerifier(t *testing.T) {
	token, err := GenerateStateToken("jwt-secret", "42", "7", "verifier-abc", 15*time.Minute)
	require.NoError(t, err)

	claims, err := ValidateToken("jwt-secret", token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.UserID)
	assert.Equal(t, "7", claims.WorkspaceID)
	assert.Equal(t, "verifier-abc", claims.CodeVerifier)
}

func TestGenerateCodeVerifier(t *testing.T) {
	first, err := GenerateCodeVerifier()
	require.NoError(t, err)
	second, err := GenerateCodeVerifier()
	require.NoError(t, err)

	// 32 random bytes, base64url without padding.
	assert.Len(t, first, 43)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "=")
}
