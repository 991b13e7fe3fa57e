package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	for _, plain := range []string{"x", "exactly16bytes!!", "smtp-password-with-some-length"} {
		enc, err := Encrypt(plain, testKey)
		require.NoError(t, err)
		assert.NotContains(t, enc, plain)

		dec, err := Decrypt(enc, testKey)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func TestEncrypt_Errors(t *testing.T) {
	_, err := Encrypt("", testKey)
	assert.Error(t, err)

	_, err = Encrypt("data", []byte("short"))
	assert.Error(t, err)
}

func TestDecrypt_Errors(t *testing.T) {
	_, err := Decrypt("not-hex", testKey)
	assert.Error(t, err)

	_, err = Decrypt("00ff", testKey)
	assert.Error(t, err)

	_, err = Decrypt("00ff00ff00ff00ff00ff00ff00ff00ff", []byte("short"))
	assert.Error(t, err)
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey()
	require.NoError(t, err)
	b, err := GenerateAPIKey()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a, APIKeyPrefix))
	assert.Len(t, a, len(APIKeyPrefix)+48)
	assert.NotEqual(t, a, b)
}

func TestHashAPIKey(t *testing.T) {
	h1 := HashAPIKey("fk_abc", "secret")
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, HashAPIKey("fk_abc", "secret"))
	assert.NotEqual(t, h1, HashAPIKey("fk_abc", "other"))
}

func TestLastFour(t *testing.T) {
	assert.Equal(t, "4242", LastFour("4242 4242 4242 4242"))
	assert.Equal(t, "1234", LastFour("5555-0000-1111-1234"))
	assert.Equal(t, "12", LastFour("12"))
}
