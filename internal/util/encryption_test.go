package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestEncryptDecrypt(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		sealed, err := Encrypt(testKey, "1//refresh-token")
		require.NoError(t, err)
		assert.NotContains(t, sealed, "refresh")

		plain, err := Decrypt(testKey, sealed)
		require.NoError(t, err)
		assert.Equal(t, "1//refresh-token", plain)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := Encrypt("abcd", "x")
		assert.Error(t, err)
	})

	t.Run("rejects tampered ciphertext", func(t *testing.T) {
		sealed, err := Encrypt(testKey, "value")
		require.NoError(t, err)

		tampered := []byte(sealed)
		tampered[len(tampered)-3] ^= 0x01
		_, err = Decrypt(testKey, string(tampered))
		assert.Error(t, err)
	})
}

func TestSealString(t *testing.T) {
	t.Run("passes through without key", func(t *testing.T) {
		v, err := SealString("", "token")
		require.NoError(t, err)
		assert.Equal(t, "token", v)

		opened, err := OpenString("", v)
		require.NoError(t, err)
		assert.Equal(t, "token", opened)
	})

	t.Run("prefixes sealed values", func(t *testing.T) {
		v, err := SealString(testKey, "token")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(v, encryptedPrefix))

		opened, err := OpenString(testKey, v)
		require.NoError(t, err)
		assert.Equal(t, "token", opened)
	})

	t.Run("legacy plaintext is readable with a key", func(t *testing.T) {
		opened, err := OpenString(testKey, "plain-token")
		require.NoError(t, err)
		assert.Equal(t, "plain-token", opened)
	})

	t.Run("sealed value without key fails", func(t *testing.T) {
		v, err := SealString(testKey, "token")
		require.NoError(t, err)
		_, err = OpenString("", v)
		assert.Error(t, err)
	})
}
